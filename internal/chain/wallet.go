package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aptosphere/go-swap-backend/internal/token"
)

// Liquidswap mainnet deployment.
const (
	liquidswapModuleAccount = "0x190d44266241744264b964a37b8f09863167a12d3e70cda39376cfb4e3561e12"
	liquidswapScripts       = liquidswapModuleAccount + "::scripts_v2::swap"
	liquidswapCurveUncorr   = liquidswapModuleAccount + "::curves::Uncorrelated"

	transferCoinsFunction = "0x1::aptos_account::transfer_coins"
)

// Wallet is the custodial account's transaction face. It signs and submits
// swap and transfer entry functions and waits for their settlement.
//
// All submissions from the custodial key share one sequence-number stream, so
// every submission goes through a single lock even when multiple swap
// pipelines run concurrently. The lock also guards a local sequence counter:
// the node only reports the last *committed* number, which lags submissions
// that are still settling, so the wallet fetches it once and advances it
// itself on every accepted submission. Balance reads and quoting stay fully
// parallel.
type Wallet struct {
	client  *Client
	account *Account

	maxGas     uint64
	gasPrice   uint64
	settlePoll time.Duration
	settleMax  time.Duration

	submitMu sync.Mutex
	nextSeq  uint64
	seqKnown bool

	log zerolog.Logger
}

// NewWallet wires the custodial signer to a fullnode client.
func NewWallet(client *Client, account *Account, maxGas, gasPrice uint64, settleTimeout time.Duration, log zerolog.Logger) *Wallet {
	return &Wallet{
		client:     client,
		account:    account,
		maxGas:     maxGas,
		gasPrice:   gasPrice,
		settlePoll: 2 * time.Second,
		settleMax:  settleTimeout,
		log:        log.With().Str("component", "wallet").Logger(),
	}
}

// Address returns the custodial account address users deposit into.
func (w *Wallet) Address() string { return w.account.Address() }

// SubmitSwap submits a liquidswap uncorrelated-curve swap of inUnits of the
// source coin for at least minOutUnits of the destination coin. It returns
// the transaction hash without waiting for settlement.
func (w *Wallet) SubmitSwap(ctx context.Context, from, to token.Coin, inUnits, minOutUnits *big.Int) (string, error) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	payload := EntryFunctionPayload{
		Function:      liquidswapScripts,
		TypeArguments: []string{from.TypeTag, to.TypeTag, liquidswapCurveUncorr},
		Arguments:     []any{inUnits.String(), minOutUnits.String()},
	}
	hash, err := w.submit(ctx, payload)
	if err != nil {
		return "", err
	}
	w.log.Info().
		Str("tx_hash", hash).
		Str("from", from.Symbol).
		Str("to", to.Symbol).
		Str("in_units", inUnits.String()).
		Msg("swap submitted")
	return hash, nil
}

// SubmitTransfer submits a coin transfer of amountUnits to recipient and
// returns the transaction hash without waiting for settlement.
func (w *Wallet) SubmitTransfer(ctx context.Context, coin token.Coin, amountUnits *big.Int, recipient string) (string, error) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	payload := EntryFunctionPayload{
		Function:      transferCoinsFunction,
		TypeArguments: []string{coin.TypeTag},
		Arguments:     []any{recipient, amountUnits.String()},
	}
	hash, err := w.submit(ctx, payload)
	if err != nil {
		return "", err
	}
	w.log.Info().
		Str("tx_hash", hash).
		Str("coin", coin.Symbol).
		Str("recipient", recipient).
		Msg("transfer submitted")
	return hash, nil
}

// submit signs and submits payload at the next local sequence number. The
// caller must hold submitMu. The committed number is fetched lazily on the
// first submission (and after any failure) and advanced locally on every
// accepted one, so back-to-back submissions never reuse a number while
// earlier transactions are still settling. After an error the local counter
// is discarded: the failed submission may or may not have reached the
// mempool, so the next submission resyncs from the node.
func (w *Wallet) submit(ctx context.Context, payload EntryFunctionPayload) (string, error) {
	if !w.seqKnown {
		seq, err := w.client.SequenceNumber(ctx, w.account.Address())
		if err != nil {
			return "", fmt.Errorf("sequence number: %w", err)
		}
		w.nextSeq = seq
		w.seqKnown = true
	}

	hash, err := w.client.SubmitEntryFunctionAt(ctx, w.account, w.nextSeq, payload, w.maxGas, w.gasPrice)
	if err != nil {
		w.seqKnown = false
		return "", err
	}
	w.nextSeq++
	return hash, nil
}

// WaitForSettlement blocks until the transaction settles, fails, or the
// configured settlement window elapses.
func (w *Wallet) WaitForSettlement(ctx context.Context, txHash string) error {
	return w.client.WaitForSettlement(ctx, txHash, w.settlePoll, w.settleMax)
}
