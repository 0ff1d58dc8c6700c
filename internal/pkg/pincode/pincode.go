package pincode

import (
	"golang.org/x/crypto/bcrypt"
)

const cost = 12 // bcrypt cost factor

// Hash hashes a staff PIN using bcrypt
func Hash(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	return string(bytes), err
}

// Verify compares a PIN with its stored hash
func Verify(pin, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	return err == nil
}
