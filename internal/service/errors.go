package service

import "errors"

// Business-rule and validation errors. Handlers map these to actionable HTTP
// responses; anything not in this list is an internal failure.
var (
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrSlotNotFound           = errors.New("slot not found")
	ErrSlotUnpublished        = errors.New("slot is not published")
	ErrUserBlocked            = errors.New("user is blocked")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrConfiguration          = errors.New("slot pricing configuration is corrupt")
	ErrInvalidStateTransition = errors.New("invalid topup state transition")
	ErrDuplicateTransaction   = errors.New("transaction id already recorded")

	// ErrTransient means the transaction kept losing serialization conflicts
	// after bounded retries. Distinct from the business errors above so the
	// caller can prompt "try again" instead of "insufficient stock".
	ErrTransient = errors.New("transient conflict, please retry")
)
