package strategy

import "errors"

var (
	// ErrNotConfigured indicates a required collaborator was not wired before use.
	ErrNotConfigured = errors.New("strategy: engine not configured")
	// ErrUnauthorized indicates the caller lacks the governance tier an operation requires.
	ErrUnauthorized = errors.New("strategy: unauthorized")
	// ErrAmountZero indicates the effective amount after clamping was zero.
	ErrAmountZero = errors.New("strategy: amount must be positive")
	// ErrRedemptionsPending blocks the valuation cycle while capital is in flight.
	ErrRedemptionsPending = errors.New("strategy: redemptions in flight")
	// ErrPendingUnderflow signals bookkeeping corruption: a claim settled more
	// than the ledger holds outstanding. Never clamped.
	ErrPendingUnderflow = errors.New("strategy: pending redemptions underflow")
	// ErrInvalidTicket indicates a claim referenced a malformed withdrawal ticket.
	ErrInvalidTicket = errors.New("strategy: invalid withdrawal ticket")
	// ErrInvalidLimit indicates a deposit limit outside the representable range.
	ErrInvalidLimit = errors.New("strategy: deposit limit must be non-negative")
)
