package pincode_test

import (
	"testing"

	"github.com/loyaltyhub/points-api/internal/pkg/pincode"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := pincode.Hash("4921")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "4921" {
		t.Fatal("hash stored plaintext")
	}

	if !pincode.Verify("4921", hash) {
		t.Fatal("correct PIN rejected")
	}
	if pincode.Verify("0000", hash) {
		t.Fatal("wrong PIN accepted")
	}
	if pincode.Verify("4921", "") {
		t.Fatal("empty hash accepted")
	}
}
