package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureConfig holds configuration for an Azure Blob Storage container.
type AzureConfig struct {
	AccountName string `yaml:"account" env:"ACCOUNT"`
	AccountKey  string `yaml:"-" env:"KEY"`
	Container   string `yaml:"container" env:"CONTAINER"`
	Prefix      string `yaml:"prefix" env:"PREFIX"`
	// ServiceURL overrides https://<account>.blob.core.windows.net/, for
	// example to target Azurite.
	ServiceURL string `yaml:"serviceURL" env:"SERVICE_URL"`
}

// Azure serves blobs under a prefix of a container.
type Azure struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzure creates an Azure bucket authenticated with a shared key.
func NewAzure(config AzureConfig) (*Azure, error) {
	if config.AccountName == "" || config.AccountKey == "" || config.Container == "" {
		return nil, errors.New("azure: account name, account key, and container are required")
	}
	cred, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("azure: create credentials: %w", err)
	}
	serviceURL := config.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", config.AccountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: create client: %w", err)
	}
	return &Azure{client: client, container: config.Container, prefix: normalizePrefix(config.Prefix)}, nil
}

// List pages through every blob under the prefix.
func (a *Azure) List(ctx context.Context) ([]string, error) {
	var opts *azblob.ListBlobsFlatOptions
	if a.prefix != "" {
		prefix := a.prefix
		opts = &azblob.ListBlobsFlatOptions{Prefix: &prefix}
	}

	var names []string
	pager := a.client.NewListBlobsFlatPager(a.container, opts)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure: list %s: %w", a.container, err)
		}
		for _, blob := range resp.Segment.BlobItems {
			if blob.Name == nil {
				continue
			}
			if name, ok := relativeName(a.prefix, *blob.Name); ok {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// Open downloads the blob as a stream.
func (a *Azure) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, objectKey(a.prefix, name), nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("azure: download %s: %w", name, err)
	}
	return resp.Body, nil
}

// Close is a no-op for the Azure SDK client.
func (a *Azure) Close() error { return nil }
