package validator_test

import (
	"testing"

	"github.com/loyaltyhub/points-api/internal/pkg/validator"
)

type earnForm struct {
	Phone  string `json:"phone" validate:"required,phone"`
	Points int64  `json:"points" validate:"required,gt=0"`
	OTP    string `json:"otp" validate:"omitempty,otp"`
	Role   string `json:"role" validate:"omitempty,role"`
}

func TestValidateAcceptsGoodInput(t *testing.T) {
	errs := validator.Validate(earnForm{Phone: "+77011234567", Points: 50, OTP: "004217", Role: "cashier"})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidatePhone(t *testing.T) {
	for _, phone := range []string{"", "123", "notaphone", "+7701x234567", "+7701123456789012345"} {
		errs := validator.Validate(earnForm{Phone: phone, Points: 10})
		if errs == nil || errs["phone"] == "" {
			t.Fatalf("phone %q: expected validation error, got %v", phone, errs)
		}
	}
}

func TestValidateOTP(t *testing.T) {
	for _, code := range []string{"12345", "1234567", "12345a", "abcdef"} {
		errs := validator.Validate(earnForm{Phone: "+77011234567", Points: 10, OTP: code})
		if errs == nil || errs["otp"] == "" {
			t.Fatalf("otp %q: expected validation error, got %v", code, errs)
		}
	}

	// Leading zeros are a valid code.
	if errs := validator.Validate(earnForm{Phone: "+77011234567", Points: 10, OTP: "000042"}); errs != nil {
		t.Fatalf("unexpected errors for zero-padded code: %v", errs)
	}
}

func TestValidateRole(t *testing.T) {
	if errs := validator.Validate(earnForm{Phone: "+77011234567", Points: 10, Role: "superuser"}); errs == nil || errs["role"] == "" {
		t.Fatalf("expected role error, got %v", errs)
	}
}

func TestValidatePoints(t *testing.T) {
	if errs := validator.Validate(earnForm{Phone: "+77011234567", Points: -5}); errs == nil || errs["points"] == "" {
		t.Fatalf("expected points error, got %v", errs)
	}
}
