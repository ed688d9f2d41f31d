// Package middleware provides HTTP middleware configuration options.
package middleware

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/bookrag/pkg/options"
)

// Config 定义中间件配置的统一接口。
type Config interface {
	// Validate 验证配置的有效性。
	Validate() []error

	// Complete 完成配置的默认值填充。
	Complete() error

	// AddFlags 添加命令行标志。
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

var _ Config = (*Options)(nil)

// Options groups the middleware chain configuration.
// 中间件按 recovery, request-id, logger, cors, timeout 顺序应用。
type Options struct {
	Recovery  *RecoveryOptions  `json:"recovery" mapstructure:"recovery"`
	RequestID *RequestIDOptions `json:"request-id" mapstructure:"request-id"`
	Logger    *LoggerOptions    `json:"logger" mapstructure:"logger"`
	CORS      *CORSOptions      `json:"cors" mapstructure:"cors"`
	Timeout   *TimeoutOptions   `json:"timeout" mapstructure:"timeout"`
}

// NewOptions 创建默认中间件选项。
func NewOptions() *Options {
	return &Options{
		Recovery:  NewRecoveryOptions(),
		RequestID: NewRequestIDOptions(),
		Logger:    NewLoggerOptions(),
		CORS:      NewCORSOptions(),
		Timeout:   NewTimeoutOptions(),
	}
}

func (o *Options) configs() map[string]Config {
	return map[string]Config{
		"recovery":   o.Recovery,
		"request-id": o.RequestID,
		"logger":     o.Logger,
		"cors":       o.CORS,
		"timeout":    o.Timeout,
	}
}

// AddFlags adds the flags of every middleware under <prefix>.<name>.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	base := options.Join(prefixes...)
	for name, cfg := range o.configs() {
		cfg.AddFlags(fs, base+name)
	}
}

// Complete completes every middleware configuration.
func (o *Options) Complete() error {
	if o.Recovery == nil {
		o.Recovery = NewRecoveryOptions()
	}
	if o.RequestID == nil {
		o.RequestID = NewRequestIDOptions()
	}
	if o.Logger == nil {
		o.Logger = NewLoggerOptions()
	}
	if o.CORS == nil {
		o.CORS = NewCORSOptions()
	}
	if o.Timeout == nil {
		o.Timeout = NewTimeoutOptions()
	}
	for _, cfg := range o.configs() {
		if err := cfg.Complete(); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates every middleware configuration.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	for _, cfg := range o.configs() {
		errs = append(errs, cfg.Validate()...)
	}
	return errs
}
