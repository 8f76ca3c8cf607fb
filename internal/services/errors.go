// Package services implements the swap orchestration pipeline: quoting,
// deposit detection, swap execution, and payout forwarding. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

var (
	// ErrInvalidAmount is returned when a requested amount is not a positive
	// decimal, or rounds to zero base units of the source asset.
	ErrInvalidAmount = errors.New("amount must be a positive decimal")

	// ErrSamePair is returned when the source and destination tokens are the
	// same asset. Both tokens resolved fine; there is just nothing to swap.
	ErrSamePair = errors.New("source and destination tokens are identical")

	// ErrRateUnavailable is returned when the pool rate cannot be computed.
	// Nothing is persisted; the caller may simply ask again.
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrNoPendingIntent is returned by Confirm/Reject when the session has no
	// quoted intent to act on.
	ErrNoPendingIntent = errors.New("no pending swap intent")

	// ErrRecipientUnbound is returned by Confirm when the session has no payout
	// address bound, so a completed swap would have nowhere to go.
	ErrRecipientUnbound = errors.New("no payout address bound to session")

	// ErrSwapInProgress is returned by Confirm when the session already has a
	// pipeline in a non-terminal status.
	ErrSwapInProgress = errors.New("a swap is already in progress")

	// ErrDepositTimeout indicates the expected deposit never arrived within the
	// configured window.
	ErrDepositTimeout = errors.New("deposit not received in time")

	// ErrSlippageExceeded indicates the output recomputed at execution time fell
	// too far below the confirmed quote.
	ErrSlippageExceeded = errors.New("price moved beyond slippage tolerance")

	// ErrSwapNotFound indicates the requested swap record does not exist.
	ErrSwapNotFound = errors.New("swap not found")
)
