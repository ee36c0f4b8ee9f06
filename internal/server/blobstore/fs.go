package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/devicegate/internal/common"
)

// FSStore keeps blobs as files under a root directory. Put writes into a
// temporary file next to the target and renames it into place, so readers
// only ever see complete files.
type FSStore struct {
	root      string
	chunkSize int
}

// NewFSStore creates root if needed.
func NewFSStore(root string, chunkSize int) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("fs store: empty root")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, common.Storage("create root", err)
	}
	return &FSStore{root: root, chunkSize: chunkSize}, nil
}

func (s *FSStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", fmt.Errorf("%w: %q", err, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader) (*Object, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, common.Storage("mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, common.Storage("create temp", err)
	}
	published := false
	defer func() {
		if !published {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	c := newChunkCopier(s.chunkSize)
	if err := c.copy(ctx, tmp, r); err != nil {
		return nil, err
	}
	if c.size == 0 {
		return nil, common.ErrorEmptyContent
	}
	if err := tmp.Sync(); err != nil {
		return nil, common.Storage("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, common.Storage("close", err)
	}
	// a cancellation that arrived during the last chunk still wins
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return nil, common.Storage("rename", err)
	}
	published = true

	return c.object(key), nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorBlobMissing
		}
		return nil, common.Storage("open", err)
	}
	return f, nil
}

func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, common.Storage("stat", err)
	}
	return fi.Mode().IsRegular(), nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return common.Storage("remove", err)
	}
	return nil
}
