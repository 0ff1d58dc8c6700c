package redemption

// CreateRequest opens a pending redemption for a member.
type CreateRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	RewardID string `json:"reward_id" validate:"required,uuid"`
}

// CompleteRequest settles a redemption with the member's one-time code.
type CompleteRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	OTP   string `json:"otp" validate:"required,otp"`
}

// VoidRequest reverses a completed redemption.
type VoidRequest struct {
	VoidReason string `json:"void_reason" validate:"required,max=255"`
}

// IssueOTPResponse returns the code to the staff terminal, which relays
// it to the member out of band.
type IssueOTPResponse struct {
	Code      string `json:"code"`
	ExpiresAt string `json:"expires_at"`
}
