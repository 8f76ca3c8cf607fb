// Package services – SwapExecutor
//
// This file implements swap execution against the pool. The quote attached at
// confirmation time is advisory only: the executor reprices the deposit
// actually observed, applies the slippage policy, submits the swap, and
// measures the settled output as the growth of the custodial account's
// destination balance across the transaction.
package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/aptosphere/go-swap-backend/internal/token"
)

const bpsDenominator = 10000

// SwapSubmitter signs and submits a pool swap and waits for its settlement.
type SwapSubmitter interface {
	SubmitSwap(ctx context.Context, from, to token.Coin, inUnits, minOutUnits *big.Int) (string, error)
	WaitForSettlement(ctx context.Context, txHash string) error
}

// SwapExecutor turns a confirmed deposit into the destination asset.
type SwapExecutor struct {
	Wallet  SwapSubmitter
	Rates   RateSource
	Balance BalanceReader
	Address string

	// SubmitSlippageBps is baked into the transaction's minimum-out argument.
	SubmitSlippageBps int64
	// MaxSlippageBps aborts before submission when the repriced output falls
	// more than this far below the quote. Zero disables the guard.
	MaxSlippageBps int64

	Log zerolog.Logger
}

// Execute reprices inUnits, enforces the slippage guard against quoteOut,
// submits the swap, and waits for settlement. onSubmitted is invoked with the
// transaction hash as soon as submission succeeds, before the settlement wait,
// so the caller can persist it first.
//
// It returns the settled output in destination base units and the hash.
func (e *SwapExecutor) Execute(ctx context.Context, from, to token.Coin, inUnits, quoteOut *big.Int, onSubmitted func(txHash string)) (*big.Int, string, error) {
	expected, err := e.Rates.CalculateRate(ctx, from, to, inUnits)
	if err != nil {
		return nil, "", fmt.Errorf("reprice: %w", err)
	}

	if e.MaxSlippageBps > 0 && quoteOut != nil && quoteOut.Sign() > 0 {
		floor := applyBps(quoteOut, e.MaxSlippageBps)
		if expected.Cmp(floor) < 0 {
			return nil, "", fmt.Errorf("%w: repriced %s below floor %s", ErrSlippageExceeded, expected, floor)
		}
	}

	minOut := applyBps(expected, e.SubmitSlippageBps)

	before, err := e.Balance.GetBalance(ctx, e.Address, to.TypeTag)
	if err != nil {
		return nil, "", fmt.Errorf("pre-swap balance: %w", err)
	}

	hash, err := e.Wallet.SubmitSwap(ctx, from, to, inUnits, minOut)
	if err != nil {
		return nil, "", fmt.Errorf("submit swap: %w", err)
	}
	if onSubmitted != nil {
		onSubmitted(hash)
	}

	if err := e.Wallet.WaitForSettlement(ctx, hash); err != nil {
		return nil, hash, fmt.Errorf("swap settlement: %w", err)
	}

	after, err := e.Balance.GetBalance(ctx, e.Address, to.TypeTag)
	if err != nil {
		return nil, hash, fmt.Errorf("post-swap balance: %w", err)
	}
	output := new(big.Int).Sub(after, before)
	if output.Sign() <= 0 {
		// The pool honored minOut, so a non-positive delta means another
		// pipeline drained the destination asset between our two reads. Fall
		// back to the floor we demanded of the pool.
		output.Set(minOut)
	}

	e.Log.Info().
		Str("tx_hash", hash).
		Str("in_units", inUnits.String()).
		Str("output_units", output.String()).
		Msg("swap settled")
	return output, hash, nil
}

// applyBps returns v scaled down by bps basis points, in integer arithmetic.
func applyBps(v *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(bpsDenominator-bps))
	return out.Div(out, big.NewInt(bpsDenominator))
}
