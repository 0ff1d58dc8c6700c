package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verify validates an HMAC-SHA256 signature over a raw webhook body.
// The signature may carry a "sha256=" prefix as some providers send it.
// Returns true only on an exact match; empty secrets always fail.
func Verify(payload []byte, sig string, secret string) bool {
	if secret == "" || sig == "" {
		return false
	}

	sig = strings.TrimPrefix(sig, "sha256=")

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	expected := h.Sum(nil)

	given, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	return hmac.Equal(given, expected)
}

// Sign creates an HMAC-SHA256 signature, used by tests and local tooling.
func Sign(payload []byte, secret string) string {
	if secret == "" {
		return ""
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
