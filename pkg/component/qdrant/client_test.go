package qdrant

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kart-io/bookrag/pkg/errors"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	"github.com/kart-io/bookrag/pkg/utils/httpclient"
	"github.com/kart-io/bookrag/pkg/utils/json"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, searchAPI string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := qdrantopts.NewOptions()
	opts.URL = srv.URL
	opts.APIKey = "secret"
	opts.Timeout = 5 * time.Second
	opts.SearchAPI = searchAPI

	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(qdrantopts.NewOptions())
	require.Error(t, err)
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
}

func TestGetCollectionNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status":{"error":"Not found: Collection `+"`books`"+` doesn't exist!"},"time":0.0001}`)
	}, qdrantopts.SearchAPIAuto)

	_, err := c.GetCollection(context.Background(), "books")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestGetCollection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/books", r.URL.Path)
		_, _ = io.WriteString(w, `{"result":{"status":"green","points_count":42,"config":{"params":{"vectors":{"size":768,"distance":"Cosine"}}}},"status":"ok"}`)
	}, qdrantopts.SearchAPIAuto)

	info, err := c.GetCollection(context.Background(), "books")
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.PointsCount)
	assert.Equal(t, 768, info.Config.Params.Vectors.Size)
	assert.Equal(t, DistanceCosine, info.Config.Params.Vectors.Distance)
}

func TestCreateCollectionAndUpsert(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		_, _ = io.WriteString(w, `{"result":true,"status":"ok"}`)
	}, qdrantopts.SearchAPIAuto)

	ctx := context.Background()
	require.NoError(t, c.CreateCollection(ctx, "books", VectorParams{Size: 3, Distance: DistanceCosine}))
	require.NoError(t, c.UpsertPoints(ctx, "books", []PointStruct{{
		ID:      "0b8f2a4e-8d5c-5d36-9a57-6a1d2b3c4d5e",
		Vector:  []float32{0.1, 0.2, 0.3},
		Payload: map[string]any{"document_name": "intro.md", "chunk_text": "hello"},
	}}))

	require.Len(t, bodies, 2)
	vectors := bodies[0]["vectors"].(map[string]any)
	assert.EqualValues(t, 3, vectors["size"])
	points := bodies[1]["points"].([]any)
	require.Len(t, points, 1)
	assert.Equal(t, "intro.md", points[0].(map[string]any)["payload"].(map[string]any)["document_name"])
}

func TestUseQueryAPIByVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    bool
	}{
		{"new server", "1.12.4", true},
		{"boundary", "1.10.0", true},
		{"legacy server", "1.9.7", false},
		{"v-prefixed", "v1.11.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				assert.Equal(t, "/", r.URL.Path)
				_, _ = io.WriteString(w, `{"title":"qdrant - vector search engine","version":"`+tt.version+`"}`)
			}, qdrantopts.SearchAPIAuto)

			got, err := c.UseQueryAPI(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			_, _ = c.UseQueryAPI(context.Background())
			assert.Equal(t, 1, calls)
		})
	}
}

func TestUseQueryAPIForced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}, qdrantopts.SearchAPISearch)

	got, err := c.UseQueryAPI(context.Background())
	require.NoError(t, err)
	assert.False(t, got)
}

func TestQueryAndSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 2, body["limit"])
		assert.Equal(t, true, body["with_payload"])

		switch r.URL.Path {
		case "/collections/books/points/query":
			assert.Contains(t, body, "query")
			_, _ = io.WriteString(w, `{"result":{"points":[{"id":"a","score":0.9,"payload":{"chunk_text":"x"}},{"id":7,"score":0.5,"payload":{}}]}}`)
		case "/collections/books/points/search":
			assert.Contains(t, body, "vector")
			_, _ = io.WriteString(w, `{"result":[{"id":"b","score":0.8,"payload":{"chunk_text":"y"}}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, qdrantopts.SearchAPIAuto)

	ctx := context.Background()
	points, err := c.Query(ctx, "books", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "a", points[0].IDString())
	assert.Equal(t, "7", points[1].IDString())

	legacy, err := c.Search(ctx, "books", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, legacy, 1)
	assert.Equal(t, "y", legacy[0].Payload["chunk_text"])
}

func TestCountAndList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/books/points/count":
			_, _ = io.WriteString(w, `{"result":{"count":10}}`)
		case "/collections":
			_, _ = io.WriteString(w, `{"result":{"collections":[{"name":"books"},{"name":"other"}]}}`)
		}
	}, qdrantopts.SearchAPIAuto)

	ctx := context.Background()
	n, err := c.CountPoints(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	names, err := c.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"books", "other"}, names)
}

func TestServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `overloaded`)
	}, qdrantopts.SearchAPIAuto)

	_, err := c.ListCollections(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsNotFound(err))

	var statusErr *httpclient.StatusError
	require.True(t, stderrors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, statusErr.Retryable())
	assert.Contains(t, err.Error(), "overloaded")
}

func TestRequestsCarryTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	var traceparent, accept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		accept = r.Header.Get("Accept")
		_, _ = io.WriteString(w, `{"result":{"collections":[]}}`)
	}, qdrantopts.SearchAPIAuto)

	ctx, span := tp.Tracer("test").Start(context.Background(), "list")
	defer span.End()

	names, err := c.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Len(t, traceparent, 55)
	assert.Equal(t, "application/json", accept)
}
