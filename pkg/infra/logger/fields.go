// Package logger carries structured logging fields through a context so that
// request-scoped values such as request_id and trace_id reach every log line.
package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const loggerFieldsKey contextKey = iota

// Field keys attached by the helpers in this package.
const (
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
)

// fields is copied on every write, so a context never observes a later change.
type fields struct {
	keys   []string
	values map[string]any
}

func fieldsFrom(ctx context.Context) *fields {
	if f, ok := ctx.Value(loggerFieldsKey).(*fields); ok {
		return f
	}
	return &fields{values: map[string]any{}}
}

func (f *fields) with(key string, value any) *fields {
	next := &fields{keys: make([]string, 0, len(f.keys)+1), values: make(map[string]any, len(f.values)+1)}
	next.keys = append(next.keys, f.keys...)
	for k, v := range f.values {
		next.values[k] = v
	}
	if _, ok := next.values[key]; !ok {
		next.keys = append(next.keys, key)
	}
	next.values[key] = value
	return next
}

func withField(ctx context.Context, key string, value any) context.Context {
	return context.WithValue(ctx, loggerFieldsKey, fieldsFrom(ctx).with(key, value))
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withField(ctx, FieldRequestID, requestID)
}

// WithTraceID adds trace_id to the context logger fields.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return withField(ctx, FieldTraceID, traceID)
}

// WithFields adds key-value pairs to the context. A trailing key without a
// value and non-string keys are ignored.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) < 2 {
		return ctx
	}
	f := fieldsFrom(ctx)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			f = f.with(key, keysAndValues[i+1])
		}
	}
	return context.WithValue(ctx, loggerFieldsKey, f)
}

// WithSpan copies trace_id and span_id from the span stored in ctx.
// Contexts without a valid span are returned unchanged.
func WithSpan(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	f := fieldsFrom(ctx).with(FieldTraceID, sc.TraceID().String()).with(FieldSpanID, sc.SpanID().String())
	return context.WithValue(ctx, loggerFieldsKey, f)
}

// Fields returns the context fields as a key-value slice in insertion order.
func Fields(ctx context.Context) []any {
	f := fieldsFrom(ctx)
	if len(f.keys) == 0 {
		return nil
	}
	out := make([]any, 0, len(f.keys)*2)
	for _, k := range f.keys {
		out = append(out, k, f.values[k])
	}
	return out
}

// GetLogger returns the global logger enriched with the context fields.
func GetLogger(ctx context.Context) core.Logger {
	base := logger.Global()
	if kv := Fields(ctx); len(kv) > 0 {
		return base.With(kv...)
	}
	return base
}
