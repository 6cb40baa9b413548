package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// GenerateRandomString returns a URL-safe random string built from n random bytes.
func GenerateRandomString(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("security: random bytes: %w", errRead)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateDigits returns a random numeric code of the given length.
func GenerateDigits(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("security: invalid code length %d", length)
	}
	out := make([]byte, length)
	ten := big.NewInt(10)
	for i := range out {
		digit, errRand := rand.Int(rand.Reader, ten)
		if errRand != nil {
			return "", fmt.Errorf("security: random digit: %w", errRand)
		}
		out[i] = byte('0' + digit.Int64())
	}
	return string(out), nil
}
