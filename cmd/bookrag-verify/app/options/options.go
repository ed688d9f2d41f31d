// Package options contains flags and options for the bookrag verification command.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	bookrag "github.com/kart-io/bookrag/internal/bookrag"
	"github.com/kart-io/bookrag/pkg/app/cliflag"
	llmopts "github.com/kart-io/bookrag/pkg/options/llm"
	logopts "github.com/kart-io/bookrag/pkg/options/logger"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	ragopts "github.com/kart-io/bookrag/pkg/options/rag"
)

// VerifyOptions contains the configuration options for the verification command.
type VerifyOptions struct {
	LogOptions    *logopts.Options         `json:"log" mapstructure:"log"`
	ChatOptions   *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	RAGOptions    *ragopts.Options         `json:"rag" mapstructure:"rag"`
	QdrantOptions *qdrantopts.Options      `json:"qdrant" mapstructure:"qdrant"`
	MilvusOptions *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`

	// Timeout bounds every single check.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewVerifyOptions creates a VerifyOptions instance with default values.
func NewVerifyOptions() *VerifyOptions {
	return &VerifyOptions{
		LogOptions:    logopts.NewOptions(),
		ChatOptions:   llmopts.NewChatOptions(),
		RAGOptions:    ragopts.NewOptions(),
		QdrantOptions: qdrantopts.NewOptions(),
		MilvusOptions: milvusopts.NewOptions(),
		Timeout:       30 * time.Second,
	}
}

// Flags returns the flag sets grouped by section.
func (o *VerifyOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"), "rag")
	o.QdrantOptions.AddFlags(fss.FlagSet("qdrant"), "qdrant")
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus")
	o.LogOptions.AddFlags(fss.FlagSet("log"), "log")

	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Timeout of every single check.")
	return fss
}

// Complete completes all the required options.
func (o *VerifyOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
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
	return o.MilvusOptions.Complete()
}

// Validate checks whether the options are valid. Missing credentials are not
// rejected here: they are reported as failed checks.
func (o *VerifyOptions) Validate() error {
	errs := []error{}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// Config builds a bookrag.VerifyConfig based on VerifyOptions.
func (o *VerifyOptions) Config() (*bookrag.VerifyConfig, error) {
	return &bookrag.VerifyConfig{
		LogOptions:    o.LogOptions,
		ChatOptions:   o.ChatOptions,
		RAGOptions:    o.RAGOptions,
		QdrantOptions: o.QdrantOptions,
		MilvusOptions: o.MilvusOptions,
		Timeout:       o.Timeout,
	}, nil
}
