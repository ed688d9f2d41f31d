package middleware

import (
	"github.com/kart-io/bookrag/pkg/options"
	"github.com/spf13/pflag"
)

// 确保 LoggerOptions 实现 Config 接口。
var _ Config = (*LoggerOptions)(nil)

// LoggerOptions defines logger middleware options.
type LoggerOptions struct {
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewLoggerOptions creates default logger middleware options.
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{
		SkipPaths: []string{"/metrics"},
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *LoggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.SkipPaths, options.Join(prefixes...)+"skip-paths", o.SkipPaths, "Paths to skip logging.")
}

// Validate validates the logger options.
func (o *LoggerOptions) Validate() []error {
	if o == nil {
		return nil
	}
	return nil
}

// Complete completes the logger options with defaults.
func (o *LoggerOptions) Complete() error {
	return nil
}
