// Package storage defines the object store boundary used by the media services.
// Implementations exist for Google Cloud Storage, Amazon S3 (and S3-compatible
// endpoints) and an in-process memory store.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when the requested object does not exist
	ErrNotFound = errors.New("object not found")

	// ErrPreconditionFailed is returned when a conditional write loses against
	// a concurrent writer
	ErrPreconditionFailed = errors.New("precondition failed")
)

// ObjectInfo describes a stored object as returned by List
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// ProgressFunc receives the number of bytes sent so far and the total size.
// total is zero when the size is unknown.
type ProgressFunc func(transferred, total int64)

// PutOptions controls how an object is written
type PutOptions struct {
	ContentType string
	// Size is the exact body length, or zero if unknown
	Size     int64
	Metadata map[string]string
	Progress ProgressFunc

	// IfMatch makes the write conditional on the current version of the object
	IfMatch string
	// IfNoneMatch makes the write succeed only if the object does not exist yet
	IfNoneMatch bool
}

// Store is the set of object operations the services rely on
type Store interface {
	// Put writes body under key and returns the new version token
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (string, error)
	// Get reads the whole object and its version token
	Get(ctx context.Context, key string) ([]byte, string, error)
	// List returns every object whose key starts with prefix
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// SignedURL returns a temporary read URL for key valid for ttl
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete removes the object at key
	Delete(ctx context.Context, key string) error
	// Close releases the underlying client
	Close() error
}

// progressReader wraps an io.Reader and reports how many bytes have passed through it
type progressReader struct {
	reader      io.Reader
	total       int64
	transferred int64
	report      ProgressFunc
}

func newProgressReader(r io.Reader, total int64, report ProgressFunc) io.Reader {
	if report == nil {
		return r
	}
	return &progressReader{reader: r, total: total, report: report}
}

// Read implements the io.Reader interface
func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		pr.report(pr.transferred, pr.total)
	}
	return n, err
}
