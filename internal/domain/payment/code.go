package payment

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	otpCodeMin = 100000
	otpCodeMax = 999999
)

// GenerateCode returns a six-digit code drawn uniformly from [100000, 999999]
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpCodeMax-otpCodeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpCodeMin), nil
}
