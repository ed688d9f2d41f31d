package middleware

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/bookrag/pkg/options"
)

var _ Config = (*TimeoutOptions)(nil)

// TimeoutOptions defines timeout middleware options.
type TimeoutOptions struct {
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	SkipPaths []string      `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewTimeoutOptions creates default timeout middleware options.
func NewTimeoutOptions() *TimeoutOptions {
	return &TimeoutOptions{
		Timeout:   60 * time.Second,
		SkipPaths: []string{"/metrics"},
	}
}

// AddFlags adds flags for timeout options to the specified FlagSet.
func (o *TimeoutOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"timeout", o.Timeout, "Per-request deadline, upstream calls included. 0 disables it.")
	fs.StringSliceVar(&o.SkipPaths, options.Join(prefixes...)+"skip-paths", o.SkipPaths, "Paths without a request deadline.")
}

// Complete completes the timeout options with defaults.
func (o *TimeoutOptions) Complete() error {
	return nil
}

// Validate validates the timeout options.
func (o *TimeoutOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Timeout < 0 {
		return []error{errors.New("request timeout must not be negative")}
	}
	return nil
}
