package signature_test

import (
	"testing"

	"github.com/loyaltyhub/points-api/internal/pkg/signature"
)

func TestVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1"}`)
	sig := signature.Sign(payload, "secret")

	if !signature.Verify(payload, sig, "secret") {
		t.Fatal("valid signature rejected")
	}
	if !signature.Verify(payload, "sha256="+sig, "secret") {
		t.Fatal("prefixed signature rejected")
	}
}

func TestVerifyRejects(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1"}`)
	sig := signature.Sign(payload, "secret")

	if signature.Verify(payload, sig, "other-secret") {
		t.Fatal("wrong secret accepted")
	}
	if signature.Verify([]byte(`tampered`), sig, "secret") {
		t.Fatal("tampered payload accepted")
	}
	if signature.Verify(payload, "not-hex", "secret") {
		t.Fatal("garbage signature accepted")
	}
	if signature.Verify(payload, sig, "") {
		t.Fatal("empty secret accepted")
	}
	if signature.Verify(payload, "", "secret") {
		t.Fatal("empty signature accepted")
	}
}
