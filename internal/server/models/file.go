// Package models defines server-side data models persisted in the database.
package models

import "time"

// StoredFile is the catalog row for one user file. The bytes live in the
// blob store under StorageKey; (UserID, FileName) is unique.
type StoredFile struct {
	ID         string
	UserID     string
	FileName   string
	StorageKey string
	SizeBytes  int64
	SHA256     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
