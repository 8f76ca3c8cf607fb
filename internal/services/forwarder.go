// Package services – PayoutForwarder
//
// This file implements the final pipeline stage: forwarding the swapped funds
// from the custodial account to the user's bound payout address.
package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/aptosphere/go-swap-backend/internal/token"
)

// TransferSubmitter signs and submits a coin transfer and waits for its
// settlement.
type TransferSubmitter interface {
	SubmitTransfer(ctx context.Context, coin token.Coin, amountUnits *big.Int, recipient string) (string, error)
	WaitForSettlement(ctx context.Context, txHash string) error
}

// PayoutForwarder pushes settled swap output to the recipient.
type PayoutForwarder struct {
	Wallet TransferSubmitter
	Log    zerolog.Logger
}

// Forward transfers amountUnits of coin to recipient and waits for
// settlement. onSubmitted is invoked with the transaction hash before the
// settlement wait so the caller can persist it first; a payout that fails
// after this point has left the custodial account and must be triaged by
// hash, never resubmitted blindly.
func (f *PayoutForwarder) Forward(ctx context.Context, coin token.Coin, amountUnits *big.Int, recipient string, onSubmitted func(txHash string)) (string, error) {
	hash, err := f.Wallet.SubmitTransfer(ctx, coin, amountUnits, recipient)
	if err != nil {
		return "", fmt.Errorf("submit payout: %w", err)
	}
	if onSubmitted != nil {
		onSubmitted(hash)
	}

	if err := f.Wallet.WaitForSettlement(ctx, hash); err != nil {
		return hash, fmt.Errorf("payout settlement: %w", err)
	}

	f.Log.Info().
		Str("tx_hash", hash).
		Str("coin", coin.Symbol).
		Str("amount_units", amountUnits.String()).
		Str("recipient", recipient).
		Msg("payout settled")
	return hash, nil
}
