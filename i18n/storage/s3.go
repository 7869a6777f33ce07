package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds configuration for an S3 bucket.
// Credentials fall back to the default AWS chain when not set.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string `yaml:"bucket" env:"BUCKET"`
	Region string `yaml:"region" env:"REGION"`
	// Prefix is the key prefix holding the resources.
	Prefix          string `yaml:"prefix" env:"PREFIX"`
	AccessKeyID     string `yaml:"-" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"SECRET_ACCESS_KEY"`
	// Endpoint is a custom endpoint for S3-compatible services.
	Endpoint       string `yaml:"endpoint" env:"ENDPOINT"`
	ForcePathStyle bool   `yaml:"forcePathStyle" env:"FORCE_PATH_STYLE"`
}

type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 serves objects under a prefix of an S3 bucket.
type S3 struct {
	client s3API
	bucket string
	prefix string
}

// NewS3 creates an S3 bucket with the specified configuration.
//
// Example:
//
//	// Using environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
//	b, err := storage.NewS3(ctx, storage.S3Config{
//	    Bucket: "translations",
//	    Region: "us-west-2",
//	})
//
//	// Using an S3-compatible service (like MinIO)
//	b, err := storage.NewS3(ctx, storage.S3Config{
//	    Bucket:         "translations",
//	    Endpoint:       "http://localhost:9000",
//	    ForcePathStyle: true,
//	})
func NewS3(ctx context.Context, config S3Config) (*S3, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3: bucket name is required")
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, fmt.Errorf("s3: load AWS config: %w", err)
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsConfig.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     config.AccessKeyID,
				SecretAccessKey: config.SecretAccessKey,
			}, nil
		})
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.ForcePathStyle
	})
	return newS3(client, config.Bucket, config.Prefix), nil
}

func newS3(client s3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: normalizePrefix(prefix)}
}

// List pages through every object under the prefix.
func (s *S3) List(ctx context.Context) ([]string, error) {
	var names []string
	var continuationToken *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			ContinuationToken: continuationToken,
		}
		if s.prefix != "" {
			input.Prefix = aws.String(s.prefix)
		}

		result, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", s.bucket, err)
		}
		for _, object := range result.Contents {
			if object.Key == nil {
				continue
			}
			if name, ok := relativeName(s.prefix, *object.Key); ok {
				names = append(names, name)
			}
		}

		if result.IsTruncated == nil || !*result.IsTruncated {
			break
		}
		continuationToken = result.NextContinuationToken
	}
	return names, nil
}

// Open returns the body of the object.
func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s.prefix, name)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("s3: get %s: %w", name, err)
	}
	return result.Body, nil
}

// Close is a no-op; the S3 client holds no resources.
func (s *S3) Close() error { return nil }
