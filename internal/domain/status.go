package domain

// SwapStatus is the lifecycle state of a SwapRecord.
//
// The happy path is strictly sequential:
//
//	PENDING_DEPOSIT → DEPOSIT_CONFIRMED → SWAP_SUBMITTED → SWAP_CONFIRMED
//	               → PAYOUT_SUBMITTED → COMPLETED
//
// FAILED is reachable from any non-terminal state on an unrecoverable error.
// TIMED_OUT is reachable only from PENDING_DEPOSIT (the deposit never
// arrived). A status never moves backward.
type SwapStatus string

const (
	StatusPendingDeposit   SwapStatus = "PENDING_DEPOSIT"
	StatusDepositConfirmed SwapStatus = "DEPOSIT_CONFIRMED"
	StatusSwapSubmitted    SwapStatus = "SWAP_SUBMITTED"
	StatusSwapConfirmed    SwapStatus = "SWAP_CONFIRMED"
	StatusPayoutSubmitted  SwapStatus = "PAYOUT_SUBMITTED"
	StatusCompleted        SwapStatus = "COMPLETED"
	StatusFailed           SwapStatus = "FAILED"
	StatusTimedOut         SwapStatus = "TIMED_OUT"
)

// rank orders the sequential states so transitions can be checked for
// monotonicity. Terminal states have no outgoing transitions at all.
var rank = map[SwapStatus]int{
	StatusPendingDeposit:   0,
	StatusDepositConfirmed: 1,
	StatusSwapSubmitted:    2,
	StatusSwapConfirmed:    3,
	StatusPayoutSubmitted:  4,
	StatusCompleted:        5,
}

// Terminal reports whether no further transitions are allowed from s.
func (s SwapStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// CanTransitionTo reports whether moving from s to next is legal. Forward
// moves along the sequence are allowed (including skipping is not: only the
// immediate successor), FAILED is allowed from any non-terminal state, and
// TIMED_OUT only from PENDING_DEPOSIT.
func (s SwapStatus) CanTransitionTo(next SwapStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusFailed:
		return true
	case StatusTimedOut:
		return s == StatusPendingDeposit
	default:
		cur, ok := rank[s]
		nxt, ok2 := rank[next]
		return ok && ok2 && nxt == cur+1
	}
}
