// Package http provides the gin-based HTTP transport.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/kart-io/logger"

	bizerrors "github.com/kart-io/bookrag/pkg/errors"
	"github.com/kart-io/bookrag/pkg/infra/middleware"
	mwopts "github.com/kart-io/bookrag/pkg/options/middleware"
	options "github.com/kart-io/bookrag/pkg/options/server/http"
	"github.com/kart-io/bookrag/pkg/utils/response"
	"github.com/kart-io/bookrag/pkg/utils/validator"
)

// Server is the HTTP server implementation.
type Server struct {
	opts   *options.Options
	engine *gin.Engine

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new HTTP server and applies the middleware chain.
// metrics may be nil.
func NewServer(serverOpts *options.Options, middlewareOpts *mwopts.Options, metrics *middleware.MetricsCollector) *Server {
	if serverOpts == nil {
		serverOpts = options.NewOptions()
	}
	if middlewareOpts == nil {
		middlewareOpts = mwopts.NewOptions()
	}

	gin.SetMode(gin.ReleaseMode)
	binding.Validator = validator.Global()

	// 创建 Gin 引擎（不使用默认中间件）
	engine := gin.New()

	s := &Server{
		opts:   serverOpts,
		engine: engine,
	}

	// 中间件必须在注册路由之前应用，路由组创建时会复制当前的 handlers
	s.applyMiddleware(middlewareOpts, metrics)

	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, bizerrors.ErrRouteNotFound)
	})

	return s
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the bound address once the server has started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listen address and serves in the background.
// Bind failures are returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "addr", ln.Addr().String(), "error", err.Error())
		}
	}()
	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// applyMiddleware applies the chain in order:
// recovery, request-id, logger, metrics, cors, timeout.
func (s *Server) applyMiddleware(opts *mwopts.Options, metrics *middleware.MetricsCollector) {
	_ = opts.Complete()

	s.engine.Use(
		middleware.RecoveryWithOptions(*opts.Recovery, nil),
		middleware.RequestIDWithOptions(*opts.RequestID, nil),
		middleware.LoggerWithOptions(*opts.Logger),
	)
	if metrics != nil {
		s.engine.Use(metrics.Middleware())
	}
	s.engine.Use(
		middleware.CORSWithOptions(*opts.CORS),
		middleware.TimeoutWithOptions(*opts.Timeout),
	)
}
