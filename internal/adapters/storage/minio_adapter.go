package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/activmedica/backend/internal/domain/providers"
	minioclient "github.com/activmedica/backend/internal/infrastructure/clients/minio"
	"github.com/minio/minio-go/v7"
)

// MinioAdapter implements the BlobStore provider using MinIO object storage.
type MinioAdapter struct {
	client    *minioclient.Client
	urlExpiry time.Duration
}

// NewMinioAdapter creates a new MinIO blob store adapter.
func NewMinioAdapter(client *minioclient.Client, urlExpiry time.Duration) providers.BlobStore {
	if urlExpiry <= 0 {
		urlExpiry = 7 * 24 * time.Hour
	}
	return &MinioAdapter{
		client:    client,
		urlExpiry: urlExpiry,
	}
}

// Put uploads data under the given object key.
func (a *MinioAdapter) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.client.Client().PutObject(
		ctx,
		a.client.Bucket(),
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("failed to upload object %q: %w", key, err)
	}
	return nil
}

// GetURL returns a presigned retrieval URL for a stored object.
func (a *MinioAdapter) GetURL(ctx context.Context, key string) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", key))

	presigned, err := a.client.Client().PresignedGetObject(ctx, a.client.Bucket(), key, a.urlExpiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %q: %w", key, err)
	}
	return presigned.String(), nil
}
