package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const generateCharset = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"!@#$%^&*()-_=+[]{}"

// GeneratePassword returns a random password of n characters drawn
// uniformly from the generation charset using the CSPRNG.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		n = 20
	}

	max := big.NewInt(int64(len(generateCharset)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = generateCharset[idx.Int64()]
	}
	return string(out), nil
}
