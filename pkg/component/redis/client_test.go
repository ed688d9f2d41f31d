package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bookrag/pkg/errors"
	options "github.com/kart-io/bookrag/pkg/options/redis"
)

func TestNewClientOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Host = "cache.local"
	opts.Port = 6380
	opts.Password = "secret"
	opts.Database = 2

	got := NewClientOptions(opts)
	assert.Equal(t, "cache.local:6380", got.Addr)
	assert.Equal(t, "secret", got.Password)
	assert.Equal(t, 2, got.DB)
	assert.Equal(t, opts.PoolSize, got.PoolSize)
	assert.Equal(t, opts.DialTimeout, got.DialTimeout)
}

func TestNewInvalidOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))

	opts := options.NewOptions()
	opts.Port = 0
	_, err = New(context.Background(), opts)
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
}

func TestNewUnreachable(t *testing.T) {
	opts := options.NewOptions()
	opts.Port = 1
	opts.MaxRetries = -1
	opts.DialTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
