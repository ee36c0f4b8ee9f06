// Package pending keeps the one-time codes that were issued to devices and
// not yet consumed. Entries live only as long as the process.
package pending

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/server/auth"
)

// Entry is the state kept for one device.
type Entry struct {
	CodeHash  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
}

// Store maps device ids to their pending code. At most one code is pending
// per device; it is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	entries     map[string]*Entry
	maxAttempts int
}

// NewStore creates an empty store. maxAttempts <= 0 disables the limit on
// failed verifications.
func NewStore(maxAttempts int) *Store {
	return &Store{
		entries:     make(map[string]*Entry),
		maxAttempts: maxAttempts,
	}
}

// Put records codeHash for deviceID, replacing any previous entry.
func (s *Store) Put(deviceID, codeHash string, now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[deviceID] = &Entry{
		CodeHash:  codeHash,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// PutIfIdle is Put guarded by a resend interval: when a live entry for
// deviceID was issued less than interval ago nothing is stored and
// common.ErrorTooManyRequests is returned.
func (s *Store) PutIfIdle(deviceID, codeHash string, now time.Time, ttl, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[deviceID]; ok && interval > 0 && now.Before(e.ExpiresAt) && now.Sub(e.IssuedAt) < interval {
		return common.ErrorTooManyRequests
	}
	s.entries[deviceID] = &Entry{
		CodeHash:  codeHash,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// Verify checks codeHash against the entry for deviceID and consumes the
// entry on success. The whole check runs under the store lock, so two
// concurrent verifications of the same code cannot both succeed.
//
// A mismatch keeps the entry so the caller may retry, but counts the
// attempt; the failure that reaches the limit removes the entry, as does
// verifying after expiry.
func (s *Store) Verify(deviceID, codeHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[deviceID]
	if !ok {
		return common.ErrorNoPendingCode
	}
	if !now.Before(e.ExpiresAt) {
		delete(s.entries, deviceID)
		return common.ErrorCodeExpired
	}
	if !auth.Equal(e.CodeHash, codeHash) {
		e.Attempts++
		if s.maxAttempts > 0 && e.Attempts >= s.maxAttempts {
			delete(s.entries, deviceID)
			return common.ErrorTooManyAttempts
		}
		return common.ErrorIncorrectCode
	}

	delete(s.entries, deviceID)
	return nil
}

// Get returns a copy of the entry for deviceID.
func (s *Store) Get(deviceID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[deviceID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Delete drops the entry for deviceID, if any.
func (s *Store) Delete(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, deviceID)
}

// DeleteIf drops the entry for deviceID only while it still holds codeHash,
// so a newer code issued in the meantime survives. It reports whether an
// entry was removed.
func (s *Store) DeleteIf(deviceID, codeHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[deviceID]
	if !ok || e.CodeHash != codeHash {
		return false
	}
	delete(s.entries, deviceID)
	return true
}

// Sweep removes entries that expired at or before now and returns how many
// were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of pending entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
