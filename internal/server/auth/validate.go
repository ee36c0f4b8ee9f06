package auth

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/devicegate/internal/common"
)

const maxEmailLength = 254

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// NormalizeEmail trims email and checks that it is a single bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > maxEmailLength {
		return "", common.ErrorInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", common.ErrorInvalidEmail
	}
	return email, nil
}

// NormalizeDeviceID trims deviceID and checks its character set and length.
func NormalizeDeviceID(deviceID string) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if !deviceIDPattern.MatchString(deviceID) {
		return "", common.ErrorInvalidDeviceID
	}
	return deviceID, nil
}

// ValidateCode accepts exactly CodeLength ASCII digits.
func ValidateCode(code string) error {
	if len(code) != common.CodeLength {
		return common.ErrorInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return common.ErrorInvalidCode
		}
	}
	return nil
}

// ValidateTokenFormat accepts exactly SessionTokenLength lowercase hex chars.
func ValidateTokenFormat(token string) error {
	if len(token) != common.SessionTokenLength {
		return common.ErrorInvalidToken
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return common.ErrorInvalidToken
		}
	}
	return nil
}
