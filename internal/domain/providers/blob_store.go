package providers

import (
	"context"
)

// BlobStore persists report documents in durable object storage.
type BlobStore interface {
	// Put uploads data under the given object key.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// GetURL returns a retrieval URL for a previously stored key.
	GetURL(ctx context.Context, key string) (string, error)
}
