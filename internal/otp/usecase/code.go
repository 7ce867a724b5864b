package usecase

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeMin = 100_000
	codeMax = 999_999
)

// RandomCode draws six digit codes uniformly from [100000, 999999].
type RandomCode struct{}

func NewRandomCode() *RandomCode {
	return &RandomCode{}
}

func (*RandomCode) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("otp: read random: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
