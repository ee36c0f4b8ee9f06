package blobstore

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioPartSize bounds the memory a single streaming upload may buffer.
const minioPartSize = 16 << 20

// minioAPI is the subset of *minio.Client used here.
type minioAPI interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// MinioStore streams blobs to an S3-compatible server with minio-go. Uploads
// of unknown length go out as multipart uploads, which the server makes
// visible only on completion.
type MinioStore struct {
	client    minioAPI
	getObject func(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	bucket    string
	chunkSize int
}

// normaliseEndpoint accepts either "minio:9000" or "http(s)://minio:9000".
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}
	return raw, false, nil
}

var newMinioClient = func(endpoint string, opts *minio.Options) (*minio.Client, error) {
	return minio.New(endpoint, opts)
}

// NewMinioStore connects to cfg.Endpoint and checks that the bucket exists.
func NewMinioStore(ctx context.Context, cfg S3Config, chunkSize int) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("minio store: empty bucket")
	}
	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := newMinioClient(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, common.Storage("bucket exists", err)
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", cfg.Bucket)
	}

	return newMinioStore(client, minioGetter(client), cfg.Bucket, chunkSize), nil
}

func newMinioStore(client minioAPI, get func(context.Context, string, string) (io.ReadCloser, error), bucket string, chunkSize int) *MinioStore {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &MinioStore{client: client, getObject: get, bucket: bucket, chunkSize: chunkSize}
}

// minioGetter opens an object and stats it right away, because GetObject
// itself is lazy and would report a missing key only on first Read.
func minioGetter(c *minio.Client) func(context.Context, string, string) (io.ReadCloser, error) {
	return func(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
		obj, err := c.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		if _, err := obj.Stat(); err != nil {
			_ = obj.Close()
			return nil, err
		}
		return obj, nil
	}
}

func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %q", err, key)
	}

	br := bufio.NewReaderSize(r, s.chunkSize)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.ErrorEmptyContent
		}
		return nil, err
	}

	cr := &countingReader{ctx: ctx, r: br, sum: sha256.New()}
	_, err := s.client.PutObject(ctx, s.bucket, key, cr, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		PartSize:    minioPartSize,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if cr.err != nil {
			return nil, cr.err
		}
		return nil, common.Storage("put object", err)
	}

	return &Object{Key: key, Size: cr.size, SHA256: hex.EncodeToString(cr.sum.Sum(nil))}, nil
}

func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %q", err, key)
	}
	rc, err := s.getObject(ctx, s.bucket, key)
	if err != nil {
		if isMinioNotFound(err) {
			return nil, common.ErrorBlobMissing
		}
		return nil, common.Storage("get object", err)
	}
	return rc, nil
}

func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, fmt.Errorf("%w: %q", err, key)
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, common.Storage("stat object", err)
	}
	return true, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("%w: %q", err, key)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isMinioNotFound(err) {
		return common.Storage("remove object", err)
	}
	return nil
}
