package util

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
)

const (
	SessionCodeLength  = 6
	sessionCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateSessionCode returns a random code of uppercase letters and digits.
// Uniqueness among live sessions is the caller's job.
func GenerateSessionCode() (string, error) {
	max := big.NewInt(int64(len(sessionCodeCharset)))
	code := make([]byte, SessionCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = sessionCodeCharset[n.Int64()]
	}
	return string(code), nil
}

// NormalizeSessionCode makes user-typed codes comparable with stored ones.
func NormalizeSessionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
