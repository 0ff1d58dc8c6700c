package redemption

import "testing"

func TestGenerateOTPFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateOTP()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 characters, got %q", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}
