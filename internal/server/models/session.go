package models

import "time"

// Session binds a bearer token to the user and device that verified a code.
type Session struct {
	Token     string
	CodeHash  string
	DeviceID  string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now. A zero
// ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
