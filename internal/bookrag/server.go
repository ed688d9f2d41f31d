// Package bookrag wires the question answering service for the book: vector
// store, LLM providers, biz layer, HTTP handlers and the server manager.
package bookrag

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kart-io/bookrag/internal/bookrag/biz"
	"github.com/kart-io/bookrag/internal/bookrag/handler"
	"github.com/kart-io/bookrag/internal/bookrag/metrics"
	"github.com/kart-io/bookrag/internal/bookrag/router"
	"github.com/kart-io/bookrag/pkg/infra/app"
	"github.com/kart-io/bookrag/pkg/infra/middleware"
	"github.com/kart-io/bookrag/pkg/infra/server"
	httpserver "github.com/kart-io/bookrag/pkg/infra/server/transport/http"
	"github.com/kart-io/bookrag/pkg/infra/tracing"
	cacheopts "github.com/kart-io/bookrag/pkg/options/cache"
	llmopts "github.com/kart-io/bookrag/pkg/options/llm"
	logopts "github.com/kart-io/bookrag/pkg/options/logger"
	middlewareopts "github.com/kart-io/bookrag/pkg/options/middleware"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	ragopts "github.com/kart-io/bookrag/pkg/options/rag"
	httpopts "github.com/kart-io/bookrag/pkg/options/server/http"
	tracingopts "github.com/kart-io/bookrag/pkg/options/tracing"
)

// Name is the name of the application.
const Name = "bookrag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	MiddlewareOptions *middlewareopts.Options
	EmbeddingOptions  *llmopts.ProviderOptions
	ChatOptions       *llmopts.ProviderOptions
	RAGOptions        *ragopts.Options
	QdrantOptions     *qdrantopts.Options
	MilvusOptions     *milvusopts.Options
	CacheOptions      *cacheopts.Options
	TracingOptions    *tracingopts.Options
	ShutdownTimeout   time.Duration
}

// Server represents the bookrag server.
type Server struct {
	srv     *server.Manager
	http    *httpserver.Server
	closers []closer
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting bookrag service...")

	s := &Server{}
	ok := false
	defer func() {
		if !ok {
			closeAll(context.Background(), s.closers)
		}
	}()

	// 2. 初始化链路追踪
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions, app.GetVersion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.closers = append(s.closers, func(ctx context.Context) { _ = tp.Shutdown(ctx) })
	logger.Infow("Tracing initialized", "enabled", tp.Enabled())

	// 3. 初始化向量存储
	index, closeIndex, err := NewIndex(ctx, cfg.RAGOptions, cfg.QdrantOptions, cfg.MilvusOptions)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeIndex)

	// 4. 初始化 LLM 供应商（Embedding 可选 Redis 缓存）
	embedder, closeCache, err := NewEmbedder(ctx, cfg.EmbeddingOptions, cfg.CacheOptions)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeCache)

	chat, err := NewChat(cfg.ChatOptions)
	if err != nil {
		return nil, err
	}

	// 5. 初始化指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ragMetrics := metrics.NewRAGMetrics(registry)
	httpMetrics := middleware.NewMetricsCollector(registry, metrics.Namespace)

	// 6. 初始化 Biz 层
	ragService := biz.NewRAGService(index, embedder, chat, &biz.ServiceConfig{
		Collection:      cfg.RAGOptions.Collection,
		TopK:            cfg.RAGOptions.TopK,
		MaxContextChars: cfg.RAGOptions.MaxContextChars,
	}, ragMetrics)
	logger.Infow("RAG service initialized",
		"collection", cfg.RAGOptions.Collection,
		"top_k", cfg.RAGOptions.TopK,
		"max_context_chars", cfg.RAGOptions.MaxContextChars,
		"cache.enabled", cfg.CacheOptions.Enabled,
	)

	// 7. 初始化 Handler 层
	ragHandler := handler.NewHandler(ragService)

	// 8. 初始化服务器
	s.http = httpserver.NewServer(cfg.HTTPOptions, cfg.MiddlewareOptions, httpMetrics)
	s.srv = server.NewManager(cfg.ShutdownTimeout, s.http)

	// 9. 注册路由
	router.Register(s.http.Engine(), ragHandler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	logger.Infow("bookrag service is ready", "addr", cfg.HTTPOptions.Addr)
	ok = true
	return s, nil
}

// Run starts the server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	defer closeAll(context.Background(), s.closers)
	return s.srv.Run(ctx)
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Listen: %s\n", cfg.HTTPOptions.Addr)
	fmt.Printf("  Vector store: %s (collection %s)\n", cfg.RAGOptions.VectorStore, cfg.RAGOptions.Collection)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
}

// Addr returns the HTTP listen address, the bound one once the server has started.
func (s *Server) Addr() string {
	return s.http.Addr()
}
