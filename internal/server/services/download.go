package services

import (
	"errors"
	"io"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/server/blobstore"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
)

// Download is an open file being streamed to a client. It is consumed once
// through Next (or WriteTo) and must be closed.
type Download struct {
	File *models.StoredFile

	rc   io.ReadCloser
	buf  []byte
	done bool
}

// NewDownload wraps rc so it is handed out in chunks of chunkSize bytes.
func NewDownload(file *models.StoredFile, rc io.ReadCloser, chunkSize int) *Download {
	if chunkSize <= 0 {
		chunkSize = blobstore.DefaultChunkSize
	}
	return &Download{File: file, rc: rc, buf: make([]byte, chunkSize)}
}

// Next returns the next chunk of content, or io.EOF once everything was
// read. The slice is reused by the following call.
func (d *Download) Next() ([]byte, error) {
	if d.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(d.rc, d.buf)
	switch {
	case err == nil:
		return d.buf[:n], nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		d.done = true
		if n == 0 {
			return nil, io.EOF
		}
		return d.buf[:n], nil
	default:
		d.done = true
		return nil, common.Storage("read blob", err)
	}
}

// WriteTo streams the remaining chunks to w.
func (d *Download) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		chunk, err := d.Next()
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

// Close releases the underlying blob reader.
func (d *Download) Close() error {
	d.done = true
	return d.rc.Close()
}
