package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/dbx"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/users"
	"github.com/google/uuid"
)

// --- in-memory repositories ---

type memUsers struct {
	mu    sync.Mutex
	users []*models.User
	err   error
	calls int
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	m.users = append(m.users, &cp)
	return u, nil
}

func (m *memUsers) Lookup(ctx context.Context, email, deviceID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email && u.DeviceID == deviceID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) LookupByDevice(ctx context.Context, deviceID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var found []*models.User
	for _, u := range m.users {
		if u.DeviceID == deviceID {
			found = append(found, u)
		}
	}
	switch len(found) {
	case 0:
		return nil, common.ErrorNotFound
	case 1:
		cp := *found[0]
		return &cp, nil
	default:
		return nil, common.ErrorAmbiguousIdentity
	}
}

type memSessions struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	findCalls int
	createErr error
}

func (m *memSessions) Create(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *s
	m.sessions[s.Token] = &cp
	return nil
}

func (m *memSessions) Find(ctx context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	s, ok := m.sessions[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

type memFiles struct {
	mu        sync.Mutex
	files     map[string]*models.StoredFile
	upsertErr error
}

func fileKey(userID, name string) string { return userID + "/" + name }

func (m *memFiles) Upsert(ctx context.Context, f *models.StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	k := fileKey(f.UserID, f.FileName)
	if old, ok := m.files[k]; ok {
		f.ID = old.ID
		f.CreatedAt = old.CreatedAt
	} else {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		f.CreatedAt = time.Now()
	}
	f.UpdatedAt = time.Now()
	cp := *f
	m.files[k] = &cp
	return nil
}

func (m *memFiles) GetByUserAndName(ctx context.Context, userID, name string) (*models.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileKey(userID, name)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memFiles) ListByUser(ctx context.Context, userID string) ([]*models.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.StoredFile
	for _, f := range m.files {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}

type memRepoManager struct {
	users    *memUsers
	sessions *memSessions
	files    *memFiles
}

var _ repomanager.RepositoryManager = (*memRepoManager)(nil)

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		users:    &memUsers{},
		sessions: &memSessions{sessions: map[string]*models.Session{}},
		files:    &memFiles{files: map[string]*models.StoredFile{}},
	}
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *memRepoManager) Sessions(dbx.DBTX) sessions.Repository       { return m.sessions }
func (m *memRepoManager) Files(dbx.DBTX) files.Repository             { return m.files }

// --- notifier ---

type recordingNotifier struct {
	mu     sync.Mutex
	codes  map[string]string
	err    error
	onSend func(u *models.User)
}

func (n *recordingNotifier) SendCode(ctx context.Context, u *models.User, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.onSend != nil {
		n.onSend(u)
	}
	if n.err != nil {
		return n.err
	}
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[u.DeviceID] = code
	return nil
}
