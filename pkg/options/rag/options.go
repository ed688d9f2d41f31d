// Package rag provides RAG (Retrieval-Augmented Generation) configuration options.
package rag

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/bookrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Vector store backends.
const (
	StoreQdrant = "qdrant"
	StoreMilvus = "milvus"
	StoreMemory = "memory"
)

// Distance metrics.
const (
	MetricCosine = "cosine"
	MetricDot    = "dot"
	MetricL2     = "l2"
)

// Options contains RAG-specific configuration.
type Options struct {
	// VectorStore selects the vector index backend (qdrant|milvus|memory).
	VectorStore string `json:"vector-store" mapstructure:"vector-store"`

	// Collection is the name of the vector collection.
	Collection string `json:"collection" mapstructure:"collection"`

	// Dimension is the dimension of embedding vectors.
	Dimension int `json:"dimension" mapstructure:"dimension"`

	// Metric is the distance metric of the collection.
	Metric string `json:"metric" mapstructure:"metric"`

	// ChunkSize is the number of characters per chunk.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MaxContextChars caps the context handed to the generative model.
	MaxContextChars int `json:"max-context-chars" mapstructure:"max-context-chars"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		VectorStore:     StoreQdrant,
		Collection:      "physical_ai_book",
		Dimension:       768,
		Metric:          MetricCosine,
		ChunkSize:       1000,
		TopK:            3,
		MaxContextChars: 6000,
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.VectorStore, p+"vector-store", o.VectorStore, "Vector index backend: qdrant, milvus or memory.")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Vector collection name.")
	fs.IntVar(&o.Dimension, p+"dimension", o.Dimension, "Embedding vector dimension.")
	fs.StringVar(&o.Metric, p+"metric", o.Metric, "Distance metric: cosine, dot or l2.")
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Characters per chunk.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of results from similarity search.")
	fs.IntVar(&o.MaxContextChars, p+"max-context-chars", o.MaxContextChars, "Maximum characters of retrieved context passed to the model.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.VectorStore {
	case StoreQdrant, StoreMilvus, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("vector-store %q must be qdrant, milvus or memory", o.VectorStore))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("collection is required"))
	}
	if o.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("dimension must be positive"))
	}
	switch o.Metric {
	case MetricCosine, MetricDot, MetricL2:
	default:
		errs = append(errs, fmt.Errorf("metric %q must be cosine, dot or l2", o.Metric))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.MaxContextChars <= 0 {
		errs = append(errs, fmt.Errorf("max-context-chars must be positive"))
	}
	return errs
}

// Complete completes the RAG options with defaults.
func (o *Options) Complete() error {
	if o.Metric == "" {
		o.Metric = MetricCosine
	}
	if o.VectorStore == "" {
		o.VectorStore = StoreQdrant
	}
	return nil
}
