package code

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// OTP returns a 6-digit one-time code, uniformly distributed over
// [100000, 999999].
func OTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// ResetToken returns an opaque 64-character hex token (32 random bytes)
// for password resets.
func ResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
