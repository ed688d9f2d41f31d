package bookrag

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/bookrag/internal/bookrag/store"
	"github.com/kart-io/bookrag/pkg/component/redis"
	"github.com/kart-io/bookrag/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/bookrag/pkg/llm/gemini"
	_ "github.com/kart-io/bookrag/pkg/llm/ollama"
	_ "github.com/kart-io/bookrag/pkg/llm/openai"
	cacheopts "github.com/kart-io/bookrag/pkg/options/cache"
	llmopts "github.com/kart-io/bookrag/pkg/options/llm"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	ragopts "github.com/kart-io/bookrag/pkg/options/rag"
)

// closer 释放启动时创建的客户端。
type closer func(ctx context.Context)

// newProvider 创建供应商并按配置限速。
func newProvider(opts *llmopts.ProviderOptions) (llm.Provider, error) {
	provider, err := llm.NewProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(provider, opts.RateLimit, opts.Burst), nil
}

// NewEmbedder 创建 Embedding 供应商。启用缓存时用 Redis 缓存向量，
// Redis 不可用只记录警告，服务继续以无缓存方式运行。
func NewEmbedder(ctx context.Context, opts *llmopts.ProviderOptions, cacheOpts *cacheopts.Options) (llm.EmbeddingProvider, closer, error) {
	provider, err := newProvider(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized", "provider", opts.Provider, "model", opts.Model)

	if cacheOpts == nil || !cacheOpts.Enabled {
		logger.Info("Embedding cache is disabled")
		return provider, nil, nil
	}

	client, err := redis.New(ctx, cacheOpts.Redis)
	if err != nil {
		logger.Warnw("failed to connect to redis, embedding cache will be disabled", "error", err.Error())
		return provider, nil, nil
	}
	logger.Infow("Embedding cache initialized", "addr", cacheOpts.Redis.Addr(), "ttl", cacheOpts.TTL.String())

	cached := llm.NewCachedEmbeddingProvider(provider, client.Client(), &llm.EmbeddingCacheConfig{
		TTL:       cacheOpts.TTL,
		KeyPrefix: cacheOpts.KeyPrefix,
		Namespace: opts.Provider + "/" + opts.Model,
	})
	return cached, func(context.Context) { _ = client.Close() }, nil
}

// NewChat 创建生成模型供应商。
func NewChat(opts *llmopts.ProviderOptions) (llm.ChatProvider, error) {
	provider, err := newProvider(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized", "provider", opts.Provider, "model", opts.Model)
	return provider, nil
}

// NewIndex 创建配置的向量索引。
func NewIndex(ctx context.Context, ragOpts *ragopts.Options, qdrantOpts *qdrantopts.Options, milvusOpts *milvusopts.Options) (store.VectorIndex, closer, error) {
	index, err := store.New(ctx, ragOpts.VectorStore, qdrantOpts, milvusOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	logger.Infow("Vector store initialized", "backend", ragOpts.VectorStore, "collection", ragOpts.Collection)
	return index, func(ctx context.Context) { _ = index.Close(ctx) }, nil
}

// closeAll 逆序调用 closers。
func closeAll(ctx context.Context, closers []closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] != nil {
			closers[i](ctx)
		}
	}
}
