package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps the shared Redis connection used by the sync stream publisher
// and the worker consumers.
type Client struct {
	*redis.Client
}

// NewClient creates a client from a URL of the form
// redis://[:password@]host:port[/db]. The instance ID is set as the
// connection name so each daemon shows up separately in CLIENT LIST.
func NewClient(redisURL, instanceID string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if instanceID != "" {
		opts.ClientName = "feedsync:" + instanceID
	}

	return &Client{Client: redis.NewClient(opts)}, nil
}

// Ping fails fast on startup when Redis is unreachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
