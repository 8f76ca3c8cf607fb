package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors for chain reads and settlement.
var (
	// ErrResourceNotFound means the account does not hold the requested
	// resource. For balance reads this is equivalent to a zero balance, never
	// a fatal error.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrTxFailed means the ledger executed the transaction but it did not
	// succeed (non-zero VM status).
	ErrTxFailed = errors.New("transaction execution failed")

	// ErrSettleTimeout means the transaction was not observed as settled
	// within the configured wait window.
	ErrSettleTimeout = errors.New("settlement wait timed out")
)

// Client is a thin Aptos fullnode REST client. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient returns a Client for the given fullnode base URL (the /v1 root).
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "chain").Logger(),
	}
}

// EntryFunctionPayload is the JSON form of an entry-function transaction
// payload.
type EntryFunctionPayload struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// GetResource fetches a Move resource from an account and returns its raw
// "data" object. A 404 (missing account or resource) maps to
// ErrResourceNotFound.
func (c *Client) GetResource(ctx context.Context, address, resourceType string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/accounts/%s/resource/%s", c.baseURL, address, url.PathEscape(resourceType))
	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrResourceNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get resource %s: status %d: %s", resourceType, status, truncateBody(body))
	}

	var out struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	return out.Data, nil
}

// GetBalance reads the CoinStore balance of coinType held by address, in base
// units. A missing coin store reads as zero.
func (c *Client) GetBalance(ctx context.Context, address, coinType string) (*big.Int, error) {
	store := fmt.Sprintf("0x1::coin::CoinStore<%s>", coinType)
	data, err := c.GetResource(ctx, address, store)
	if errors.Is(err, ErrResourceNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}

	var cs struct {
		Coin struct {
			Value string `json:"value"`
		} `json:"coin"`
	}
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("decode coin store: %w", err)
	}
	v, ok := new(big.Int).SetString(cs.Coin.Value, 10)
	if !ok {
		return nil, fmt.Errorf("non-numeric coin value %q", cs.Coin.Value)
	}
	return v, nil
}

// SequenceNumber returns the account's current sequence number.
func (c *Client) SequenceNumber(ctx context.Context, address string) (uint64, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/accounts/%s", c.baseURL, address))
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("get account %s: status %d: %s", address, status, truncateBody(body))
	}
	var acct struct {
		SequenceNumber string `json:"sequence_number"`
	}
	if err := json.Unmarshal(body, &acct); err != nil {
		return 0, fmt.Errorf("decode account: %w", err)
	}
	return strconv.ParseUint(acct.SequenceNumber, 10, 64)
}

// SubmitEntryFunction fetches the account's committed sequence number and
// submits payload at it. Callers that issue more than one transaction from
// the same key must manage the sequence themselves and use
// SubmitEntryFunctionAt instead: the committed number only advances once a
// transaction executes, so two fetch-and-submit rounds in close succession
// would collide.
func (c *Client) SubmitEntryFunction(ctx context.Context, acct *Account, payload EntryFunctionPayload, maxGas, gasPrice uint64) (string, error) {
	seq, err := c.SequenceNumber(ctx, acct.Address())
	if err != nil {
		return "", fmt.Errorf("sequence number: %w", err)
	}
	return c.SubmitEntryFunctionAt(ctx, acct, seq, payload, maxGas, gasPrice)
}

// SubmitEntryFunctionAt builds a user transaction for payload at the given
// sequence number, obtains its BCS signing message from the node, signs it
// locally, submits it, and returns the transaction hash. It does not wait for
// settlement.
func (c *Client) SubmitEntryFunctionAt(ctx context.Context, acct *Account, seq uint64, payload EntryFunctionPayload, maxGas, gasPrice uint64) (string, error) {
	txn := map[string]any{
		"sender":                    acct.Address(),
		"sequence_number":           strconv.FormatUint(seq, 10),
		"max_gas_amount":            strconv.FormatUint(maxGas, 10),
		"gas_unit_price":            strconv.FormatUint(gasPrice, 10),
		"expiration_timestamp_secs": strconv.FormatInt(time.Now().Add(2*time.Minute).Unix(), 10),
		"payload": map[string]any{
			"type":           "entry_function_payload",
			"function":       payload.Function,
			"type_arguments": payload.TypeArguments,
			"arguments":      payload.Arguments,
		},
	}

	signingMsg, err := c.encodeSubmission(ctx, txn)
	if err != nil {
		return "", err
	}

	txn["signature"] = map[string]any{
		"type":       "ed25519_signature",
		"public_key": acct.PublicKeyHex(),
		"signature":  acct.Sign(signingMsg),
	}

	body, status, err := c.post(ctx, c.baseURL+"/transactions", txn)
	if err != nil {
		return "", err
	}
	if status != http.StatusAccepted && status != http.StatusOK {
		return "", fmt.Errorf("submit transaction: status %d: %s", status, truncateBody(body))
	}
	var pending struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(body, &pending); err != nil {
		return "", fmt.Errorf("decode pending transaction: %w", err)
	}

	c.log.Info().Str("tx_hash", pending.Hash).Str("function", payload.Function).Msg("transaction submitted")
	return pending.Hash, nil
}

// WaitForSettlement polls the ledger until the transaction is executed. It
// returns nil on success, ErrTxFailed when the VM reports failure, and
// ErrSettleTimeout when the window elapses first.
func (c *Client) WaitForSettlement(ctx context.Context, txHash string, pollEvery, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		settled, err := c.transactionSettled(ctx, txHash)
		if err != nil {
			return err
		}
		if settled {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrSettleTimeout, txHash)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// transactionSettled returns (true, nil) once the transaction executed
// successfully, (false, nil) while still pending or unknown, and an error
// when execution failed.
func (c *Client) transactionSettled(ctx context.Context, txHash string) (bool, error) {
	body, status, err := c.get(ctx, c.baseURL+"/transactions/by_hash/"+txHash)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		// Not yet known to this node.
		return false, nil
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("get transaction %s: status %d: %s", txHash, status, truncateBody(body))
	}

	var tx struct {
		Type     string `json:"type"`
		Success  *bool  `json:"success"`
		VMStatus string `json:"vm_status"`
	}
	if err := json.Unmarshal(body, &tx); err != nil {
		return false, fmt.Errorf("decode transaction: %w", err)
	}
	if tx.Type == "pending_transaction" || tx.Success == nil {
		return false, nil
	}
	if !*tx.Success {
		return false, fmt.Errorf("%w: %s: %s", ErrTxFailed, txHash, tx.VMStatus)
	}
	return true, nil
}

// encodeSubmission asks the node for the BCS signing message of an unsigned
// transaction. The response is a hex string.
func (c *Client) encodeSubmission(ctx context.Context, txn map[string]any) ([]byte, error) {
	body, status, err := c.post(ctx, c.baseURL+"/transactions/encode_submission", txn)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("encode submission: status %d: %s", status, truncateBody(body))
	}
	var msg string
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decode signing message: %w", err)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(msg, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signing message is not hex: %w", err)
	}
	return raw, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, u string, payload any) ([]byte, int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "…"
	}
	return string(b)
}
