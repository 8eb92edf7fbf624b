// Package token generates the opaque session credentials and numeric
// one-time codes used by the auth flows.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"strings"
)

// NewOpaque returns a URL-safe random credential of n bytes entropy together
// with the hash the store keeps.
func NewOpaque(n int) (raw string, hash string, err error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashOpaque(raw), nil
}

// HashOpaque maps a raw credential to its stored form.
func HashOpaque(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewOTP returns a numeric one-time code of the given digit length.
func NewOTP(digits int) (string, error) {
	var b strings.Builder
	b.Grow(digits)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// MatchOTP compares a presented code against the stored one in constant
// time.
func MatchOTP(presented, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
