package storage

import (
	"context"
	"io"
	"time"

	"github.com/kdsmith18542/localekit/observability"
)

// ObservableBucket reports every call of a wrapped bucket to the global
// observer.
type ObservableBucket struct {
	bucket      Bucket
	storageType string
}

// Observe wraps b. storageType labels the reported operations, such as
// "s3" or "local".
func Observe(b Bucket, storageType string) *ObservableBucket {
	return &ObservableBucket{bucket: b, storageType: storageType}
}

// List lists the wrapped bucket with observability.
func (o *ObservableBucket) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := o.bucket.List(ctx)
	observability.GetObserver().OnStorageOperation(ctx, "list", o.storageType, time.Since(start), err == nil)
	return names, err
}

// Open opens an object of the wrapped bucket with observability.
func (o *ObservableBucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := o.bucket.Open(ctx, name)
	observability.GetObserver().OnStorageOperation(ctx, "open", o.storageType, time.Since(start), err == nil)
	return rc, err
}

// Close closes the wrapped bucket.
func (o *ObservableBucket) Close() error {
	return o.bucket.Close()
}
