package registry

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet excludes the ambiguous characters 0, O, 1 and I.
// Its length divides 256, so reducing a random byte modulo the
// length keeps the distribution uniform.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// GenerateCode returns a random room code such as "K7QF2M".
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("registry: generate code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
