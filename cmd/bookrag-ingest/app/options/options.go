// Package options contains flags and options for the bookrag ingestion command.
package options

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	bookrag "github.com/kart-io/bookrag/internal/bookrag"
	"github.com/kart-io/bookrag/internal/pkg/rag/docutil"
	"github.com/kart-io/bookrag/pkg/app/cliflag"
	"github.com/kart-io/bookrag/pkg/infra/watch"
	llmopts "github.com/kart-io/bookrag/pkg/options/llm"
	logopts "github.com/kart-io/bookrag/pkg/options/logger"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	ragopts "github.com/kart-io/bookrag/pkg/options/rag"
	tracingopts "github.com/kart-io/bookrag/pkg/options/tracing"
)

// 摄取时 Embedding 调用的默认速率。
const (
	defaultIngestRateLimit = 5
	defaultIngestBurst     = 1
)

// IngestOptions contains the configuration options for an ingestion run.
type IngestOptions struct {
	LogOptions       *logopts.Options         `json:"log" mapstructure:"log"`
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	RAGOptions       *ragopts.Options         `json:"rag" mapstructure:"rag"`
	QdrantOptions    *qdrantopts.Options      `json:"qdrant" mapstructure:"qdrant"`
	MilvusOptions    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
	TracingOptions   *tracingopts.Options     `json:"tracing" mapstructure:"tracing"`

	// DocsDir is the root of the documents to ingest.
	DocsDir string `json:"docs-dir" mapstructure:"docs-dir"`
	// Extensions are the file extensions that are ingested.
	Extensions []string `json:"extensions" mapstructure:"extensions"`
	// Workers is the number of documents processed in parallel.
	Workers int `json:"workers" mapstructure:"workers"`
	// LockFile serializes ingestion runs. Empty disables locking.
	LockFile string `json:"lock-file" mapstructure:"lock-file"`
	// Watch keeps the command running and re-ingests changed files.
	Watch bool `json:"watch" mapstructure:"watch"`
	// WatchDebounce is the quiet period before changed files are re-ingested.
	WatchDebounce time.Duration `json:"watch-debounce" mapstructure:"watch-debounce"`
}

// NewIngestOptions creates an IngestOptions instance with default values.
func NewIngestOptions() *IngestOptions {
	embedding := llmopts.NewEmbeddingOptions()
	embedding.RateLimit = defaultIngestRateLimit
	embedding.Burst = defaultIngestBurst

	return &IngestOptions{
		LogOptions:       logopts.NewOptions(),
		EmbeddingOptions: embedding,
		RAGOptions:       ragopts.NewOptions(),
		QdrantOptions:    qdrantopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		DocsDir:          "docs",
		Extensions:       append([]string(nil), docutil.DefaultExtensions...),
		Workers:          1,
		LockFile:         filepath.Join(os.TempDir(), "bookrag-ingest.lock"),
		WatchDebounce:    watch.DefaultDebounce,
	}
}

// Flags returns the flag sets grouped by section.
func (o *IngestOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("ingest")
	fs.StringVar(&o.DocsDir, "docs-dir", o.DocsDir, "Directory containing the book documents.")
	fs.StringSliceVar(&o.Extensions, "extensions", o.Extensions, "File extensions to ingest.")
	fs.IntVar(&o.Workers, "workers", o.Workers, "Number of documents processed in parallel.")
	fs.StringVar(&o.LockFile, "lock-file", o.LockFile, "Lock file that prevents concurrent runs. Empty disables locking.")
	fs.BoolVar(&o.Watch, "watch", o.Watch, "Keep running and re-ingest files when they change.")
	fs.DurationVar(&o.WatchDebounce, "watch-debounce", o.WatchDebounce, "Quiet period before changed files are re-ingested.")

	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"), "rag")
	o.QdrantOptions.AddFlags(fss.FlagSet("qdrant"), "qdrant")
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus")
	o.LogOptions.AddFlags(fss.FlagSet("log"), "log")
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"), "tracing")

	return fss
}

// Complete completes all the required options.
func (o *IngestOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
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
	if len(o.Extensions) == 0 {
		o.Extensions = append([]string(nil), docutil.DefaultExtensions...)
	}
	return o.TracingOptions.Complete()
}

// Validate checks whether the options are valid.
func (o *IngestOptions) Validate() error {
	errs := []error{}

	if o.DocsDir == "" {
		errs = append(errs, fmt.Errorf("docs-dir is required"))
	}
	if o.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1"))
	}
	if o.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("watch-debounce must not be negative"))
	}

	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	switch o.RAGOptions.VectorStore {
	case ragopts.StoreQdrant:
		errs = append(errs, o.QdrantOptions.Validate()...)
	case ragopts.StoreMilvus:
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	errs = append(errs, o.TracingOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a bookrag.IngestConfig based on IngestOptions.
func (o *IngestOptions) Config() (*bookrag.IngestConfig, error) {
	return &bookrag.IngestConfig{
		LogOptions:       o.LogOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		RAGOptions:       o.RAGOptions,
		QdrantOptions:    o.QdrantOptions,
		MilvusOptions:    o.MilvusOptions,
		TracingOptions:   o.TracingOptions,
		DocsDir:          o.DocsDir,
		Extensions:       o.Extensions,
		Workers:          o.Workers,
		LockFile:         o.LockFile,
		Watch:            o.Watch,
		Debounce:         o.WatchDebounce,
	}, nil
}
