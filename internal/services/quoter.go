// Package services – Quoter
//
// This file implements the quoting stage: it resolves the token pair, converts
// the human-decimal amount into base units at the source asset's precision,
// reads the pool rate, and converts the estimate back for display. All
// arithmetic between the two boundary conversions happens on integers.
package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aptosphere/go-swap-backend/internal/token"
)

// RateSource computes the expected output base units for a swap. The pool
// implementation performs one on-chain read per call and never retries.
type RateSource interface {
	CalculateRate(ctx context.Context, from, to token.Coin, inUnits *big.Int) (*big.Int, error)
}

// Quote is one priced swap request. Amounts are carried in base units; the
// decimal views exist only for display.
type Quote struct {
	From     token.Coin
	To       token.Coin
	Amount   decimal.Decimal
	InUnits  *big.Int
	OutUnits *big.Int
	At       time.Time
}

// OutAmount returns the estimated output as a human-readable decimal.
func (q *Quote) OutAmount() decimal.Decimal { return q.To.FromBaseUnits(q.OutUnits) }

// Quoter prices swap requests against a RateSource.
type Quoter struct {
	Registry *token.Registry
	Source   RateSource
}

// Quote validates the pair and amount and prices the swap. Rate failures are
// wrapped in ErrRateUnavailable and leave no trace; the user just asks again.
func (s *Quoter) Quote(ctx context.Context, fromSym, toSym, amount string) (*Quote, error) {
	tr := otel.Tracer("services/Quoter")
	ctx, span := tr.Start(ctx, "Quote",
		trace.WithAttributes(
			attribute.String("swap.from", fromSym),
			attribute.String("swap.to", toSym),
			attribute.String("swap.amount", amount),
		),
	)
	defer span.End()

	from, err := s.Registry.Resolve(fromSym)
	if err != nil {
		return nil, err
	}
	to, err := s.Registry.Resolve(toSym)
	if err != nil {
		return nil, err
	}
	if from.Symbol == to.Symbol {
		return nil, fmt.Errorf("%w: %s/%s", ErrSamePair, from.Symbol, to.Symbol)
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil || amt.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	inUnits := from.ToBaseUnits(amt)
	if inUnits.Sign() <= 0 {
		// Below one base unit of the source asset, e.g. 1e-9 APT.
		return nil, ErrInvalidAmount
	}

	outUnits, err := s.Source.CalculateRate(ctx, from, to, inUnits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}

	quotesTotal.WithLabelValues(from.Symbol, to.Symbol).Inc()
	return &Quote{
		From:     from,
		To:       to,
		Amount:   amt,
		InUnits:  inUnits,
		OutUnits: outUnits,
		At:       time.Now().UTC(),
	}, nil
}
