package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const ResetCodeLength = 5

var resetCodeSpace = big.NewInt(100000)

// NewResetCode returns a uniformly random 5-digit numeric code.
func NewResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpace)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%05d", n.Int64()), nil
}
