// Package options contains flags and options for initializing the bookrag server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	bookrag "github.com/kart-io/bookrag/internal/bookrag"
	"github.com/kart-io/bookrag/pkg/app/cliflag"
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

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MiddlewareOptions contains the HTTP middleware chain configuration.
	MiddlewareOptions *middlewareopts.Options `json:"middleware" mapstructure:"middleware"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains generative model configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RAGOptions contains collection and retrieval configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// QdrantOptions contains Qdrant configuration.
	QdrantOptions *qdrantopts.Options `json:"qdrant" mapstructure:"qdrant"`

	// MilvusOptions contains Milvus configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// CacheOptions contains the query embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:       httpopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		MiddlewareOptions: middlewareopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		ChatOptions:       llmopts.NewChatOptions(),
		RAGOptions:        ragopts.NewOptions(),
		QdrantOptions:     qdrantopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		TracingOptions:    tracingopts.NewOptions(),
		ShutdownTimeout:   30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"), "http")
	o.LogOptions.AddFlags(fss.FlagSet("log"), "log")
	o.MiddlewareOptions.AddFlags(fss.FlagSet("middleware"), "middleware")
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"), "rag")
	o.QdrantOptions.AddFlags(fss.FlagSet("qdrant"), "qdrant")
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus")
	o.CacheOptions.AddFlags(fss.FlagSet("cache"), "cache")
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"), "tracing")

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.MiddlewareOptions.Complete(); err != nil {
		return fmt.Errorf("middleware: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.RAGOptions.Complete(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := o.QdrantOptions.Complete(); err != nil {
		return fmt.Errorf("qdrant: %w", err)
	}
	if err := o.MilvusOptions.Complete(); err != nil {
		return fmt.Errorf("milvus: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return o.TracingOptions.Complete()
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.MiddlewareOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	switch o.RAGOptions.VectorStore {
	case ragopts.StoreQdrant:
		errs = append(errs, o.QdrantOptions.Validate()...)
	case ragopts.StoreMilvus:
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a bookrag.Config based on ServerOptions.
func (o *ServerOptions) Config() (*bookrag.Config, error) {
	return &bookrag.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		MiddlewareOptions: o.MiddlewareOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		ChatOptions:       o.ChatOptions,
		RAGOptions:        o.RAGOptions,
		QdrantOptions:     o.QdrantOptions,
		MilvusOptions:     o.MilvusOptions,
		CacheOptions:      o.CacheOptions,
		TracingOptions:    o.TracingOptions,
		ShutdownTimeout:   o.ShutdownTimeout,
	}, nil
}
