// Package services – DepositWatcher
//
// This file implements deposit detection. The watcher samples the custodial
// account's balance of the source asset on a fixed interval and reports the
// incoming deposit once the balance has grown enough to cover the expected
// amount. The first sample taken after confirmation is the baseline, so funds
// already sitting in the account are never mistaken for the user's deposit.
package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"github.com/aptosphere/go-swap-backend/internal/token"
)

// BalanceReader reads an account's balance of a coin type in base units.
// A missing coin store reads as zero.
type BalanceReader interface {
	GetBalance(ctx context.Context, address, coinType string) (*big.Int, error)
}

// DepositWatcher polls for an expected deposit into the custodial account.
type DepositWatcher struct {
	Chain        BalanceReader
	Address      string
	PollInterval time.Duration
	Timeout      time.Duration
	Log          zerolog.Logger
}

// Await blocks until the custodial balance of coin has grown by roughly the
// target amount, the window elapses, or ctx is cancelled. It returns the
// usable deposit: the observed balance growth minus the coin's gas margin,
// which is what the pipeline is allowed to swap.
//
// A deposit counts as arrived once growth reaches target minus the margin, so
// a sender who deducts network fees from the amount still clears the bar. On
// timeout, any growth that exceeds the margin alone is accepted as a partial
// deposit rather than stranding the funds; otherwise ErrDepositTimeout.
func (w *DepositWatcher) Await(ctx context.Context, coin token.Coin, target *big.Int) (*big.Int, error) {
	baseline, err := w.Chain.GetBalance(ctx, w.Address, coin.TypeTag)
	if err != nil {
		return nil, fmt.Errorf("baseline balance: %w", err)
	}

	threshold := new(big.Int).Sub(target, coin.GasMargin)
	if threshold.Sign() < 0 {
		threshold.SetInt64(0)
	}

	w.Log.Info().
		Str("coin", coin.Symbol).
		Str("target_units", target.String()).
		Str("baseline_units", baseline.String()).
		Dur("timeout", w.Timeout).
		Msg("awaiting deposit")

	deadline := time.NewTimer(w.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(w.PollInterval)
	defer tick.Stop()

	observed := new(big.Int)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			if observed.Cmp(coin.GasMargin) > 0 {
				usable := new(big.Int).Sub(observed, coin.GasMargin)
				w.Log.Warn().
					Str("coin", coin.Symbol).
					Str("observed_units", observed.String()).
					Msg("deposit window elapsed; proceeding with partial deposit")
				return usable, nil
			}
			return nil, fmt.Errorf("%w: observed %s of %s %s base units",
				ErrDepositTimeout, observed, target, coin.Symbol)
		case <-tick.C:
			depositPolls.Inc()
			balance, err := w.Chain.GetBalance(ctx, w.Address, coin.TypeTag)
			if err != nil {
				// Transient node errors just cost one sample.
				w.Log.Warn().Err(err).Str("coin", coin.Symbol).Msg("balance poll failed")
				continue
			}
			observed.Sub(balance, baseline)
			if observed.Sign() < 0 {
				// Balance shrank (a concurrent payout of the same asset);
				// re-anchor so growth from here still counts.
				baseline.Set(balance)
				observed.SetInt64(0)
				continue
			}
			if observed.Cmp(threshold) >= 0 {
				usable := new(big.Int).Sub(observed, coin.GasMargin)
				if usable.Sign() <= 0 {
					continue
				}
				w.Log.Info().
					Str("coin", coin.Symbol).
					Str("observed_units", observed.String()).
					Str("usable_units", usable.String()).
					Msg("deposit confirmed")
				return usable, nil
			}
		}
	}
}
