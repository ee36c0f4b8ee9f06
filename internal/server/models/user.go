package models

import "time"

// User is a registered (email, device) identity. Users are created by the
// seed tool or an external registration process and never mutated here.
type User struct {
	ID        string
	Email     string
	DeviceID  string
	CreatedAt time.Time
}
