package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/auth"
	"github.com/dmitrijs2005/devicegate/internal/server/blobstore"
	"github.com/dmitrijs2005/devicegate/internal/server/config"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/moby/locker"
)

// FileService gates per-user file storage behind session tokens. File
// identity is (user, sanitized name); uploading an existing name replaces
// the stored content. Every upload gets its own blob key, so the catalog row
// never points at bytes it does not describe.
type FileService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	blobs          blobstore.Store
	locks          *locker.Locker
	logger         logging.Logger
	chunkSize      int
	maxUploadBytes int64

	now func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store,
	cfg *config.Config, logger logging.Logger) *FileService {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = blobstore.DefaultChunkSize
	}
	return &FileService{
		db:             db,
		repomanager:    m,
		blobs:          blobs,
		locks:          locker.New(),
		logger:         logger.With("module", "files"),
		chunkSize:      chunk,
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            time.Now,
	}
}

// Authorize resolves token to the id of the user owning the session.
// Malformed tokens are rejected before any storage access.
func (s *FileService) Authorize(ctx context.Context, token string) (string, error) {
	if err := auth.ValidateTokenFormat(token); err != nil {
		return "", err
	}

	session, err := s.repomanager.Sessions(s.db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorSessionNotFound
		}
		return "", fmt.Errorf("find session: %w", err)
	}
	if session.Expired(s.now()) {
		return "", common.ErrorSessionExpired
	}
	return session.UserID, nil
}

func lockKey(userID, fileName string) string {
	return userID + "\x00" + fileName
}

// Upload stores r as fileName for userID, replacing earlier content.
func (s *FileService) Upload(ctx context.Context, userID, fileName string, r io.Reader) (*models.StoredFile, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return nil, err
	}

	lk := lockKey(userID, name)
	s.locks.Lock(lk)
	defer func() { _ = s.locks.Unlock(lk) }()

	repo := s.repomanager.Files(s.db)

	prev, err := repo.GetByUserAndName(ctx, userID, name)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("find file: %w", err)
	}

	if s.maxUploadBytes > 0 {
		r = &limitReader{r: r, n: s.maxUploadBytes}
	}

	key := StorageKey(userID, name) + "/" + uuid.NewString()
	obj, err := s.blobs.Put(ctx, key, r)
	if err != nil {
		return nil, err
	}

	file := &models.StoredFile{
		UserID:     userID,
		FileName:   name,
		StorageKey: key,
		SizeBytes:  obj.Size,
		SHA256:     obj.SHA256,
	}
	if err := repo.Upsert(ctx, file); err != nil {
		s.discardBlob(ctx, key)
		return nil, fmt.Errorf("record file: %w", err)
	}

	if prev != nil && prev.StorageKey != key {
		s.discardBlob(ctx, prev.StorageKey)
	}

	s.logger.Info(ctx, "file stored", "user_id", userID, "file_id", file.ID, "size", file.SizeBytes)
	return file, nil
}

// discardBlob removes a blob no catalog row refers to. Failures leave an
// orphan behind and are only logged.
func (s *FileService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn(ctx, "orphaned blob", "key", key, "error", err)
	}
}

// Download opens fileName of userID for streaming. Files of other users are
// indistinguishable from missing ones.
func (s *FileService) Download(ctx context.Context, userID, fileName string) (*Download, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return nil, err
	}

	lk := lockKey(userID, name)
	s.locks.Lock(lk)
	defer func() { _ = s.locks.Unlock(lk) }()

	file, err := s.repomanager.Files(s.db).GetByUserAndName(ctx, userID, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorFileNotFound
		}
		return nil, fmt.Errorf("find file: %w", err)
	}

	ok, err := s.blobs.Exists(ctx, file.StorageKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Error(ctx, "catalog points at missing blob", "user_id", userID, "file_id", file.ID)
		return nil, common.ErrorBlobMissing
	}

	rc, err := s.blobs.Open(ctx, file.StorageKey)
	if err != nil {
		return nil, err
	}
	return NewDownload(file, rc, s.chunkSize), nil
}

// List returns the files owned by userID.
func (s *FileService) List(ctx context.Context, userID string) ([]*models.StoredFile, error) {
	files, err := s.repomanager.Files(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

func (s *FileService) UploadWithToken(ctx context.Context, token, fileName string, r io.Reader) (*models.StoredFile, error) {
	userID, err := s.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Upload(ctx, userID, fileName, r)
}

func (s *FileService) DownloadWithToken(ctx context.Context, token, fileName string) (*Download, error) {
	userID, err := s.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Download(ctx, userID, fileName)
}

// limitReader fails with common.ErrorContentTooLarge once more than n bytes
// were requested from r.
type limitReader struct {
	r       io.Reader
	n       int64
	tripped bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.tripped {
		return 0, common.ErrorContentTooLarge
	}
	if int64(len(p)) > l.n+1 {
		p = p[:l.n+1]
	}
	n, err := l.r.Read(p)
	if int64(n) <= l.n {
		l.n -= int64(n)
		return n, err
	}
	l.tripped = true
	return int(l.n), common.ErrorContentTooLarge
}
