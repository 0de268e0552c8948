package minio

import (
	"context"
	"fmt"

	"github.com/activmedica/backend/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client wraps a MinIO object storage client bound to the report bucket.
type Client struct {
	client *minio.Client
	bucket string
}

// NewClient creates a new MinIO client and ensures the report bucket exists.
func NewClient(ctx context.Context, cfg *config.MinioConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Client{client: mc, bucket: cfg.Bucket}, nil
}

// Client returns the underlying MinIO client
func (c *Client) Client() *minio.Client {
	return c.client
}

// Bucket returns the report bucket name
func (c *Client) Bucket() string {
	return c.bucket
}
