// Package otp generates and verifies numeric delivery codes. Only bcrypt hashes
// are persisted.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// DefaultLength is the number of digits of a delivery code.
const DefaultLength = 6

// Generate returns a random numeric code of length digits and its bcrypt hash.
func Generate(length int) (code string, hash string, err error) {
	if length <= 0 {
		return "", "", fmt.Errorf("otp length must be positive")
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	code = fmt.Sprintf("%0*d", length, n)
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash otp: %w", err)
	}
	return code, string(h), nil
}

// Verify compares a submitted code with the stored hash.
func Verify(code, hash string) bool {
	if code == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
