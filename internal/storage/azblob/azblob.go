// Package azblob uploads objects to an Azure storage container.
package azblob

import (
	"context"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/storage"

	"visionbench/internal/domain"
)

// Bucket wraps one blob container.
type Bucket struct {
	container *storage.Container
}

// Config names the container and the env vars holding the account credentials.
type Config struct {
	Container  string
	AccountEnv string
	KeyEnv     string
}

// NewBucket creates a container client with the storage account key.
func NewBucket(cfg Config) (*Bucket, error) {
	account, key := os.Getenv(cfg.AccountEnv), os.Getenv(cfg.KeyEnv)
	if account == "" || key == "" {
		return nil, domain.Configf("missing azure storage credentials in env %s/%s", cfg.AccountEnv, cfg.KeyEnv)
	}
	if cfg.Container == "" {
		return nil, domain.Configf("azure: container is required")
	}
	sc, err := storage.NewBasicClient(account, key)
	if err != nil {
		return nil, err
	}
	blobCli := sc.GetBlobService()
	return &Bucket{container: blobCli.GetContainerReference(cfg.Container)}, nil
}

// Put overwrites the block blob at key. The SDK call is not cancellable, so
// ctx is only checked before the upload starts.
func (b *Bucket) Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blob := b.container.GetBlobReference(key)
	blob.Properties.ContentLength = size
	return blob.CreateBlockBlobFromReader(body, nil)
}
