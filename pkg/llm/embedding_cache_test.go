package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bookrag/internal/pkg/rag/textutil"
)

// fakeRedis 只实现缓存用到的 Get/Set/Del。
type fakeRedis struct {
	goredis.Cmdable

	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return goredis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return goredis.NewIntResult(int64(len(keys)), nil)
}

// countingEmbedder 记录底层调用的文本。
type countingEmbedder struct {
	mu    sync.Mutex
	calls [][]string
}

func (c *countingEmbedder) Name() string { return "counting" }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls = append(c.calls, texts)
	c.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func TestCachedEmbedSingle(t *testing.T) {
	rdb := newFakeRedis()
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, rdb, &EmbeddingCacheConfig{TTL: time.Hour, KeyPrefix: "emb:", Namespace: "gemini/text-embedding-004"})

	v1, err := c.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	v2, err := c.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, inner.calls, 1)
	for k, ttl := range rdb.ttls {
		assert.Contains(t, k, "emb:")
		assert.Equal(t, time.Hour, ttl)
	}
}

func TestCachedEmbedOnlyMisses(t *testing.T) {
	rdb := newFakeRedis()
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, rdb, nil)

	_, err := c.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)

	vecs, err := c.Embed(context.Background(), []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 1}, {3, 1}, {1, 1}}, vecs)
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])
}

func TestCachedEmbedNamespaceSeparatesModels(t *testing.T) {
	rdb := newFakeRedis()
	a := NewCachedEmbeddingProvider(&countingEmbedder{}, rdb, &EmbeddingCacheConfig{Namespace: "m1"})
	b := NewCachedEmbeddingProvider(&countingEmbedder{}, rdb, &EmbeddingCacheConfig{Namespace: "m2"})
	assert.NotEqual(t, a.cacheKey("x"), b.cacheKey("x"))
}

func TestCachedEmbedKeyFormat(t *testing.T) {
	c := NewCachedEmbeddingProvider(&countingEmbedder{}, newFakeRedis(), &EmbeddingCacheConfig{KeyPrefix: "emb:", Namespace: "ollama/nomic"})

	key := c.cacheKey("hello")
	assert.Equal(t, "emb:"+textutil.HashString("ollama/nomic\x00hello"), key)
	assert.Len(t, key, len("emb:")+64)
}

func TestCachedEmbedRedisFailureFallsBack(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failGet = true
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, rdb, nil)

	v, err := c.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, v)
	assert.Len(t, inner.calls, 1)
}

func TestCachedEmbedCorruptedEntryIsReplaced(t *testing.T) {
	rdb := newFakeRedis()
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, rdb, nil)
	rdb.data[c.cacheKey("hello")] = "not json"

	v, err := c.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, v)
	assert.NotEqual(t, "not json", rdb.data[c.cacheKey("hello")])
}

func TestCachedEmbedNilRedis(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, nil, nil)

	_, err := c.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2)
	assert.Equal(t, "counting", c.Name())
}
