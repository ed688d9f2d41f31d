package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDoJSONRetriesWithFreshBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"q":"hello"}`, string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"answer":"ok"}`)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 2).WithBackoff(time.Millisecond)
	var out struct {
		Answer string `json:"answer"`
	}
	require.NoError(t, c.DoJSON(context.Background(), http.MethodPost, srv.URL, nil, map[string]string{"q": "hello"}, &out))
	assert.Equal(t, "ok", out.Answer)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDoJSONNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(5*time.Second, 0).DoJSON(context.Background(), http.MethodPost, srv.URL, nil, map[string]string{}, nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDoJSONClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "bad key")
	}))
	defer srv.Close()

	err := NewClient(5*time.Second, 3).WithBackoff(time.Millisecond).
		DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.False(t, statusErr.Retryable())
	assert.Equal(t, "bad key", statusErr.Body)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDoJSONHonorsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("X-Api-Key", "secret")
	require.NoError(t, NewClient(5*time.Second, 0).DoJSON(context.Background(), http.MethodGet, srv.URL, header, nil, &struct{}{}))
}

func TestDoCanceledContextStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewClient(5*time.Second, 10).WithBackoff(time.Second).
		DoJSON(ctx, http.MethodGet, srv.URL, nil, nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoPropagatesTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	ctx, span := tp.Tracer("test").Start(context.Background(), "client-request")
	defer span.End()

	require.NoError(t, NewClient(5*time.Second, 0).DoJSON(ctx, http.MethodGet, srv.URL, nil, nil, nil))
	// version-trace_id-parent_id-trace_flags
	assert.Len(t, traceparent, 55)
}
