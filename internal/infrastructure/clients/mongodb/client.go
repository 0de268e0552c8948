package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/activmedica/backend/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client wraps a MongoDB client bound to the application database.
type Client struct {
	client   *mongo.Client
	database string
}

// NewClient creates a new MongoDB client and verifies the connection.
func NewClient(ctx context.Context, cfg *config.MongoConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{client: client, database: cfg.Database}, nil
}

// Database returns a handle to the application database
func (c *Client) Database() *mongo.Database {
	return c.client.Database(c.database)
}

// Close disconnects the client
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
