package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/devicegate/internal/common"
)

const maxFileNameBytes = 255

// SanitizeFileName reduces name to a safe base name: directory parts, ".."
// sequences, control characters and characters reserved on common file
// systems are removed and the result is cut to 255 bytes. An empty result
// is common.ErrorInvalidFileName.
func SanitizeFileName(name string) (string, error) {
	name = strings.ToValidUTF8(name, "")
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"|?*`, r) {
			return -1
		}
		return r
	}, name)

	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "")
	}
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ". ")

	if len(name) > maxFileNameBytes {
		cut := maxFileNameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimRight(name[:cut], ". ")
	}

	if name == "" {
		return "", common.ErrorInvalidFileName
	}
	return name, nil
}

// StorageKey is the blob key prefix for a sanitized file name of userID; each
// upload stores its bytes under a unique key below it. Hashing the
// name keeps user supplied characters out of object keys and paths.
func StorageKey(userID, fileName string) string {
	sum := sha256.Sum256([]byte(fileName))
	return "users/" + userID + "/" + hex.EncodeToString(sum[:])
}
