package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aptosphere/go-swap-backend/internal/token"
)

type fakeWallet struct {
	swapHash    string
	swapErr     error
	settleErr   error
	transferErr error

	gotIn        *big.Int
	gotMinOut    *big.Int
	gotAmount    *big.Int
	gotRecipient string
	settled      []string
}

func (f *fakeWallet) SubmitSwap(_ context.Context, _, _ token.Coin, inUnits, minOutUnits *big.Int) (string, error) {
	if f.swapErr != nil {
		return "", f.swapErr
	}
	f.gotIn = new(big.Int).Set(inUnits)
	f.gotMinOut = new(big.Int).Set(minOutUnits)
	return f.swapHash, nil
}

func (f *fakeWallet) SubmitTransfer(_ context.Context, _ token.Coin, amountUnits *big.Int, recipient string) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.gotAmount = new(big.Int).Set(amountUnits)
	f.gotRecipient = recipient
	return "0xpayout", nil
}

func (f *fakeWallet) WaitForSettlement(_ context.Context, txHash string) error {
	f.settled = append(f.settled, txHash)
	return f.settleErr
}

func testPair(t *testing.T) (token.Coin, token.Coin) {
	t.Helper()
	reg := token.NewRegistry()
	apt, _ := reg.Resolve("APT")
	usdc, err := reg.Resolve("USDC")
	if err != nil {
		t.Fatal(err)
	}
	return apt, usdc
}

func newExecutor(wallet SwapSubmitter, rates RateSource, balances BalanceReader, maxBps int64) *SwapExecutor {
	return &SwapExecutor{
		Wallet:            wallet,
		Rates:             rates,
		Balance:           balances,
		Address:           "0xcustodial",
		SubmitSlippageBps: 50,
		MaxSlippageBps:    maxBps,
		Log:               zerolog.Nop(),
	}
}

func TestExecutor_RepricesAndMeasuresOutput(t *testing.T) {
	apt, usdc := testPair(t)
	wallet := &fakeWallet{swapHash: "0xswap"}
	rates := &fakeRates{out: big.NewInt(500000)}
	balances := &fakeBalances{seq: map[string][]string{
		usdc.TypeTag: {"1000", "499000"},
	}}
	e := newExecutor(wallet, rates, balances, 0)

	var submitted string
	out, hash, err := e.Execute(context.Background(), apt, usdc, big.NewInt(9100000), big.NewInt(510000), func(h string) {
		submitted = h
		if len(wallet.settled) != 0 {
			t.Error("onSubmitted fired after the settlement wait")
		}
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if hash != "0xswap" || submitted != "0xswap" {
		t.Fatalf("hash = %q, submitted = %q", hash, submitted)
	}
	// Repriced with the deposit, not the original quote.
	if rates.calls[0].String() != "9100000" {
		t.Fatalf("repriced with %s", rates.calls[0])
	}
	// minOut = expected less 50 bps.
	if wallet.gotMinOut.String() != "497500" {
		t.Fatalf("minOut = %s", wallet.gotMinOut)
	}
	// Output is the destination balance delta.
	if out.String() != "498000" {
		t.Fatalf("output = %s", out)
	}
}

func TestExecutor_SlippageGuardAborts(t *testing.T) {
	apt, usdc := testPair(t)
	wallet := &fakeWallet{swapHash: "0xswap"}
	// Quote promised 510000 but repricing now yields 480000: a 5.8% drop
	// against a 100 bps ceiling.
	rates := &fakeRates{out: big.NewInt(480000)}
	e := newExecutor(wallet, rates, &fakeBalances{}, 100)

	_, _, err := e.Execute(context.Background(), apt, usdc, big.NewInt(9100000), big.NewInt(510000), nil)
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("got %v, want ErrSlippageExceeded", err)
	}
	if wallet.gotIn != nil {
		t.Fatal("swap must not be submitted when the guard trips")
	}
}

func TestExecutor_GuardDisabledByZero(t *testing.T) {
	apt, usdc := testPair(t)
	wallet := &fakeWallet{swapHash: "0xswap"}
	rates := &fakeRates{out: big.NewInt(100)} // far below quote
	balances := &fakeBalances{seq: map[string][]string{
		usdc.TypeTag: {"0", "99"},
	}}
	e := newExecutor(wallet, rates, balances, 0)

	if _, _, err := e.Execute(context.Background(), apt, usdc, big.NewInt(9100000), big.NewInt(510000), nil); err != nil {
		t.Fatalf("guard disabled, Execute should proceed: %v", err)
	}
}

func TestExecutor_SettlementFailureKeepsHash(t *testing.T) {
	apt, usdc := testPair(t)
	wallet := &fakeWallet{swapHash: "0xswap", settleErr: errors.New("vm abort")}
	rates := &fakeRates{out: big.NewInt(500000)}
	e := newExecutor(wallet, rates, &fakeBalances{}, 0)

	_, hash, err := e.Execute(context.Background(), apt, usdc, big.NewInt(9100000), nil, nil)
	if err == nil {
		t.Fatal("expected settlement error")
	}
	if hash != "0xswap" {
		t.Fatalf("hash = %q; the submitted hash must survive for triage", hash)
	}
}

func TestExecutor_FallsBackToMinOutOnDrainedBalance(t *testing.T) {
	apt, usdc := testPair(t)
	wallet := &fakeWallet{swapHash: "0xswap"}
	rates := &fakeRates{out: big.NewInt(500000)}
	// Another pipeline paid out USDC between our two reads.
	balances := &fakeBalances{seq: map[string][]string{
		usdc.TypeTag: {"900000", "400000"},
	}}
	e := newExecutor(wallet, rates, balances, 0)

	out, _, err := e.Execute(context.Background(), apt, usdc, big.NewInt(9100000), nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.String() != "497500" {
		t.Fatalf("output = %s; want the minOut floor", out)
	}
}

func TestForwarder_ForwardsAndSettles(t *testing.T) {
	_, usdc := testPair(t)
	wallet := &fakeWallet{}
	f := &PayoutForwarder{Wallet: wallet, Log: zerolog.Nop()}

	var submitted string
	hash, err := f.Forward(context.Background(), usdc, big.NewInt(498000), "0xuser", func(h string) { submitted = h })
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if hash != "0xpayout" || submitted != "0xpayout" {
		t.Fatalf("hash = %q, submitted = %q", hash, submitted)
	}
	if wallet.gotRecipient != "0xuser" || wallet.gotAmount.String() != "498000" {
		t.Fatalf("transfer args: %s to %s", wallet.gotAmount, wallet.gotRecipient)
	}
}

func TestForwarder_SettlementFailureKeepsHash(t *testing.T) {
	_, usdc := testPair(t)
	wallet := &fakeWallet{settleErr: errors.New("timeout")}
	f := &PayoutForwarder{Wallet: wallet, Log: zerolog.Nop()}

	hash, err := f.Forward(context.Background(), usdc, big.NewInt(1), "0xuser", nil)
	if err == nil {
		t.Fatal("expected settlement error")
	}
	if hash != "0xpayout" {
		t.Fatalf("hash = %q; must survive for triage", hash)
	}
}
