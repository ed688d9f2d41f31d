// Package redis builds the go-redis client used for the query embedding cache.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/bookrag/pkg/errors"
	options "github.com/kart-io/bookrag/pkg/options/redis"
)

// Client wraps the go-redis client together with the options it was built from.
type Client struct {
	client *goredis.Client
	opts   *options.Options
}

// NewClientOptions converts options into go-redis options.
func NewClientOptions(opts *options.Options) *goredis.Options {
	return &goredis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolTimeout:  opts.PoolTimeout,
	}
}

// New creates a Redis client and verifies the connection with a ping.
// Invalid options are reported as configuration errors.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, errors.ErrConfiguration.WithMessage("redis options cannot be nil")
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, errors.ErrConfiguration.WithMessagef("invalid redis options: %v", errs[0])
	}

	rdb := goredis.NewClient(NewClientOptions(opts))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr(), err)
	}

	return &Client{client: rdb, opts: opts}, nil
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "redis"
}

// Ping checks if the connection to Redis is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

// Client returns the underlying go-redis client.
func (c *Client) Client() *goredis.Client {
	return c.client
}

// Options returns the options the client was built from.
func (c *Client) Options() *options.Options {
	return c.opts
}
