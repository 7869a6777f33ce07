// Package storage provides read-only buckets that serve module resources
// from local directories, Amazon S3, Google Cloud Storage, Azure Blob
// Storage or memory.
//
// A bucket becomes the source of a module through NewSource:
//
//	bucket, err := storage.NewS3(ctx, storage.S3Config{
//	    Bucket: "my-translations",
//	    Region: "eu-west-1",
//	    Prefix: "app/",
//	})
//	if err != nil {
//	    return err
//	}
//	registry.Register(&catalog.Module{
//	    Name:   "App",
//	    Source: storage.NewSource(storage.Observe(bucket, "s3"), 10*time.Second),
//	})
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a named object does not exist.
var ErrNotFound = errors.New("object not found")

// DefaultTimeout bounds each bucket call made through a Source.
const DefaultTimeout = 30 * time.Second

// Bucket is a read-only set of named objects.
type Bucket interface {
	// List returns every object name, relative to the bucket's prefix,
	// with "/" separators.
	List(ctx context.Context) ([]string, error)
	// Open returns the content of the named object.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Close releases the client.
	Close() error
}

// Source adapts a Bucket to the synchronous artifact source used by
// modules. Each call is bounded by a timeout.
type Source struct {
	bucket  Bucket
	timeout time.Duration
}

// NewSource wraps b. A non-positive timeout uses DefaultTimeout.
func NewSource(b Bucket, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Source{bucket: b, timeout: timeout}
}

// List returns the object names of the bucket.
func (s *Source) List() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.bucket.List(ctx)
}

// Open reads the whole object before returning so the timeout does not
// cut off a reader still held by the caller.
func (s *Source) Open(name string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rc, err := s.bucket.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Close closes the underlying bucket.
func (s *Source) Close() error {
	return s.bucket.Close()
}

// normalizePrefix returns prefix as "a/b/" or "".
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// objectKey joins prefix and a relative object name.
func objectKey(prefix, name string) string {
	return prefix + strings.TrimPrefix(path.Clean("/"+name), "/")
}

// relativeName strips prefix from key. Directory markers and keys outside
// the prefix report false.
func relativeName(prefix, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok || rest == "" || strings.HasSuffix(rest, "/") {
		return "", false
	}
	return rest, true
}
