// Package common defines shared constants, sentinel errors and small helpers
// used across devicegate components. Callers should use errors.Is to match
// these values, or KindOf to classify an error for a transport.
package common

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that the request layer can map it to a
// transport status without knowing every individual error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindStorage:
		return "STORAGE_FAILURE"
	default:
		return "INTERNAL"
	}
}

var (
	// Kind sentinels. Every specific error below wraps exactly one of them.
	ErrorValidation   = errors.New("validation error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorNotFound     = errors.New("not found")
	ErrorStorage      = errors.New("storage failure")
	ErrorInternal     = errors.New("internal error")

	// Input validation.
	ErrorInvalidEmail    = fmt.Errorf("%w: invalid email", ErrorValidation)
	ErrorInvalidDeviceID = fmt.Errorf("%w: invalid device id", ErrorValidation)
	ErrorInvalidCode     = fmt.Errorf("%w: code must be 4 digits", ErrorValidation)
	ErrorInvalidToken    = fmt.Errorf("%w: malformed session token", ErrorValidation)
	ErrorInvalidFileName = fmt.Errorf("%w: invalid file name", ErrorValidation)
	ErrorEmptyContent    = fmt.Errorf("%w: empty file content", ErrorValidation)
	ErrorContentTooLarge = fmt.Errorf("%w: file content too large", ErrorValidation)

	// Code lifecycle.
	ErrorNoPendingCode     = fmt.Errorf("%w: no pending code, request a new one", ErrorValidation)
	ErrorIncorrectCode     = fmt.Errorf("%w: incorrect code", ErrorValidation)
	ErrorCodeExpired       = fmt.Errorf("%w: code expired, request a new one", ErrorValidation)
	ErrorTooManyAttempts   = fmt.Errorf("%w: too many attempts, request a new code", ErrorValidation)
	ErrorTooManyRequests   = fmt.Errorf("%w: code requested too recently", ErrorValidation)
	ErrorUnknownIdentity   = fmt.Errorf("%w: unknown email/device pair", ErrorUnauthorized)
	ErrorAmbiguousIdentity = fmt.Errorf("%w: device does not resolve to a single user", ErrorNotFound)

	// Sessions.
	ErrorSessionNotFound = fmt.Errorf("%w: session not found", ErrorUnauthorized)
	ErrorSessionExpired  = fmt.Errorf("%w: session expired", ErrorUnauthorized)

	// Files.
	ErrorFileNotFound = fmt.Errorf("%w: file not found", ErrorNotFound)
	ErrorBlobMissing  = fmt.Errorf("%w: stored content is missing", ErrorNotFound)
)

// KindOf reports the Kind of err. Errors that wrap none of the kind
// sentinels are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrorValidation):
		return KindValidation
	case errors.Is(err, ErrorUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrorNotFound):
		return KindNotFound
	case errors.Is(err, ErrorStorage):
		return KindStorage
	default:
		return KindInternal
	}
}

// IsThrottled tells whether err is a rate-limit style validation failure.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrorTooManyRequests) || errors.Is(err, ErrorTooManyAttempts)
}

// Storage wraps err as a STORAGE_FAILURE. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrorStorage, op, err)
}
