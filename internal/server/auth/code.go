// Package auth implements the credential primitives of the device login
// flow: one-time code generation and hashing, session token derivation and
// input format checks.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/dmitrijs2005/devicegate/internal/common"
)

var codeSpace = big.NewInt(10000)

// GenerateCode returns a uniformly distributed, zero-padded 4-digit code
// drawn from crypto/rand.
func GenerateCode() (string, error) {
	return GenerateCodeFrom(rand.Reader)
}

// GenerateCodeFrom is GenerateCode over an explicit entropy source.
func GenerateCodeFrom(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", common.CodeLength, n.Int64()), nil
}

// CodeHasher produces the at-rest form of a one-time code. With a secret it
// is HMAC-SHA256 keyed by that secret, otherwise plain SHA-256; in both cases
// the result is lowercase hex.
type CodeHasher struct {
	secret []byte
}

func NewCodeHasher(secret string) *CodeHasher {
	return &CodeHasher{secret: []byte(secret)}
}

func (h *CodeHasher) Hash(code string) string {
	if len(h.secret) == 0 {
		sum := sha256.Sum256([]byte(code))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares two hashes in constant time.
func Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
