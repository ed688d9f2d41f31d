package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimitedProviderDisabled(t *testing.T) {
	p := &mockProvider{name: "m"}
	assert.Same(t, Provider(p), NewRateLimitedProvider(p, 0, 1))
}

func TestRateLimitedProviderWaits(t *testing.T) {
	p := NewRateLimitedProvider(&mockProvider{name: "m"}, 1, 1)
	ctx := context.Background()

	_, err := p.EmbedSingle(ctx, "a")
	require.NoError(t, err)

	// 令牌已用完，第二次调用在超时前拿不到令牌
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = p.Generate(short, "q", "")
	assert.Error(t, err)
}

func TestRateLimitedProviderDelegates(t *testing.T) {
	p := NewRateLimitedProvider(&mockProvider{name: "m"}, 1000, 10)
	ctx := context.Background()

	out, err := p.Chat(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock response", out)

	vecs, err := p.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, "m", p.Name())
}
