package redemption

import "errors"

var (
	ErrNotFound         = errors.New("redemption not found")
	ErrRewardNotFound   = errors.New("reward not found")
	ErrNotPending       = errors.New("redemption is not pending")
	ErrAlreadyPending   = errors.New("member already has an open redemption")
	ErrNotVoidable      = errors.New("redemption cannot be voided")
	ErrPermissionDenied = errors.New("role not permitted to void redemptions")
	// ErrInvalidOrExpiredOTP deliberately collapses wrong-code, expired
	// and already-used cases so callers cannot tell them apart.
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired code")
)
