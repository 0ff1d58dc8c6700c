package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different amount")
)
