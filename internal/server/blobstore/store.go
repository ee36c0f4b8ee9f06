// Package blobstore keeps the bytes of user files. The catalog row in the
// files repository points at a key here; nothing in this package knows about
// users or sessions.
//
// Every backend publishes atomically: a reader never sees a partially
// written object, and a failed or cancelled Put leaves the previous object
// (if any) untouched.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"strings"

	"github.com/dmitrijs2005/devicegate/internal/common"
)

// DefaultChunkSize is used when a backend is built with a non-positive chunk size.
const DefaultChunkSize = 64 * 1024

// Object describes a published blob.
type Object struct {
	Key    string
	Size   int64
	SHA256 string
}

// Store is implemented by FSStore, S3Store and MinioStore.
type Store interface {
	// Put streams r under key. An empty stream is rejected with
	// common.ErrorEmptyContent and nothing is published.
	Put(ctx context.Context, key string, r io.Reader) (*Object, error)

	// Open returns a reader for key, or common.ErrorBlobMissing.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var errInvalidKey = errors.New("invalid blob key")

// validateKey accepts slash separated relative keys without dot segments.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.ContainsRune(key, '\\') || path.Clean(key) != key {
		return errInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "." || seg == ".." {
			return errInvalidKey
		}
	}
	return nil
}

// chunkCopier copies src to dst chunk by chunk, checking ctx between
// chunks, and keeps a running size and SHA-256 of what went through.
type chunkCopier struct {
	buf  []byte
	sum  hash.Hash
	size int64
}

func newChunkCopier(chunkSize int) *chunkCopier {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &chunkCopier{buf: make([]byte, chunkSize), sum: sha256.New()}
}

// copy returns read errors as they are, since they belong to the caller's
// stream; write errors are STORAGE_FAILURE.
func (c *chunkCopier) copy(ctx context.Context, dst io.Writer, src io.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := src.Read(c.buf)
		if n > 0 {
			if _, werr := dst.Write(c.buf[:n]); werr != nil {
				return common.Storage("write", werr)
			}
			c.sum.Write(c.buf[:n])
			c.size += int64(n)
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func (c *chunkCopier) object(key string) *Object {
	return &Object{Key: key, Size: c.size, SHA256: hex.EncodeToString(c.sum.Sum(nil))}
}

// countingReader hashes and counts bytes as a streaming upload pulls them.
// The first read failure other than io.EOF is kept in err, since SDKs tend
// to flatten the errors of the body they consume.
type countingReader struct {
	ctx  context.Context
	r    io.Reader
	sum  hash.Hash
	size int64
	err  error
}

func (c *countingReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	if n > 0 {
		c.sum.Write(p[:n])
		c.size += int64(n)
	}
	if err != nil && !errors.Is(err, io.EOF) && c.err == nil {
		c.err = err
	}
	return n, err
}

// Backends accepted by New.
const (
	BackendFS    = "fs"
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// Options select and configure a backend.
type Options struct {
	Backend   string
	Root      string
	ChunkSize int
	S3        S3Config
}

// New builds the Store named by o.Backend.
func New(ctx context.Context, o Options) (Store, error) {
	switch o.Backend {
	case BackendFS, "":
		return NewFSStore(o.Root, o.ChunkSize)
	case BackendS3:
		return NewS3Store(ctx, o.S3, o.ChunkSize)
	case BackendMinio:
		return NewMinioStore(ctx, o.S3, o.ChunkSize)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", o.Backend)
	}
}
