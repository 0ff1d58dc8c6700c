package redemption

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const otpTTL = 5 * time.Minute

var otpSpace = big.NewInt(1000000)

// generateOTP returns a uniformly random 6-digit code, leading zeros
// preserved.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
