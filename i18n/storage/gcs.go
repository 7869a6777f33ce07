package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig holds configuration for a Google Cloud Storage bucket.
type GCSConfig struct {
	Bucket string `yaml:"bucket" env:"BUCKET"`
	Prefix string `yaml:"prefix" env:"PREFIX"`
	// CredentialsFile is a service account JSON file. Application default
	// credentials are used when empty.
	CredentialsFile string `yaml:"credentialsFile" env:"CREDENTIALS_FILE"`
}

// GCS serves objects under a prefix of a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a GCS bucket with the specified configuration.
func NewGCS(ctx context.Context, config GCSConfig, opts ...option.ClientOption) (*GCS, error) {
	if config.Bucket == "" {
		return nil, errors.New("gcs: bucket name is required")
	}
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &GCS{client: client, bucket: config.Bucket, prefix: normalizePrefix(config.Prefix)}, nil
}

// List iterates every object under the prefix.
func (g *GCS) List(ctx context.Context) ([]string, error) {
	var names []string
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: g.prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", g.bucket, err)
		}
		if name, ok := relativeName(g.prefix, attrs.Name); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Open returns a reader for the object.
func (g *GCS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucket).Object(objectKey(g.prefix, name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", name, err)
	}
	return r, nil
}

// Close closes the client.
func (g *GCS) Close() error {
	return g.client.Close()
}
