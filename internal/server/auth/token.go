package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"golang.org/x/crypto/blake2b"
)

const tokenKeySize = 32

// GenerateSessionToken derives a session token from the verified code and
// device id. The digest is keyed BLAKE2b with a fresh random key that is
// discarded afterwards, so knowing (code, deviceID) later does not allow the
// token to be recomputed.
func GenerateSessionToken(code, deviceID string) (string, error) {
	return GenerateSessionTokenFrom(rand.Reader, code, deviceID)
}

// GenerateSessionTokenFrom is GenerateSessionToken with an explicit key source.
func GenerateSessionTokenFrom(r io.Reader, code, deviceID string) (string, error) {
	key := make([]byte, tokenKeySize)
	defer common.WipeByteArray(key)

	if _, err := io.ReadFull(r, key); err != nil {
		return "", fmt.Errorf("token key: %w", err)
	}

	h, err := blake2b.New(common.SessionTokenLength/2, key)
	if err != nil {
		return "", fmt.Errorf("token hash: %w", err)
	}
	h.Write([]byte(code))
	h.Write([]byte{0})
	h.Write([]byte(deviceID))

	return hex.EncodeToString(h.Sum(nil)), nil
}
