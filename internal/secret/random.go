package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	tokenBytes = 32
	otpMin     = 100000
	otpSpan    = 900000 // otpMin..999999 inclusive
)

// Generator draws tokens and OTPs from crypto/rand.
type Generator struct{}

// RandomToken returns 32 random bytes, base64url encoded.
func (Generator) RandomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomOTP returns a code uniformly distributed over [100000, 999999],
// so it always has six digits.
func (Generator) RandomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
