// Package qdrant is a small REST client for the Qdrant vector database.
package qdrant

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/blang/semver/v4"

	"github.com/kart-io/bookrag/pkg/errors"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	"github.com/kart-io/bookrag/pkg/utils/httpclient"
	"github.com/kart-io/bookrag/pkg/utils/json"
)

// QueryAPIMinVersion is the first server version exposing /points/query.
var QueryAPIMinVersion = semver.MustParse("1.10.0")

// Distance names accepted by Qdrant.
const (
	DistanceCosine = "Cosine"
	DistanceDot    = "Dot"
	DistanceEuclid = "Euclid"
)

// Client wraps the Qdrant REST API.
type Client struct {
	baseURL   string
	header    http.Header
	searchAPI string
	http      *httpclient.Client

	versionOnce sync.Once
	version     semver.Version
	versionErr  error
}

// New creates a new Qdrant client. A missing URL is a configuration error.
// Requests are sent once; failures are reported to the caller without retrying.
func New(opts *qdrantopts.Options) (*Client, error) {
	if opts == nil {
		return nil, errors.ErrConfiguration.WithMessage("qdrant options is nil")
	}
	if opts.URL == "" {
		return nil, errors.ErrConfiguration.WithMessage("qdrant url is not configured (set qdrant.url or QDRANT_URL)")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, errors.ErrConfiguration.WithCause(err)
	}

	searchAPI := opts.SearchAPI
	if searchAPI == "" {
		searchAPI = qdrantopts.SearchAPIAuto
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	if opts.APIKey != "" {
		header.Set("api-key", opts.APIKey)
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.URL, "/"),
		header:    header,
		searchAPI: searchAPI,
		http:      httpclient.NewClient(opts.Timeout, 0),
	}, nil
}

// APIError is a non-2xx response from Qdrant. Message carries status.error of
// the response envelope when present.
type APIError struct {
	StatusCode int
	Message    string

	cause *httpclient.StatusError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("qdrant: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the underlying *httpclient.StatusError.
func (e *APIError) Unwrap() error {
	return e.cause
}

// IsNotFound reports whether err is a 404 from Qdrant.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type errorEnvelope struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

func newAPIError(statusErr *httpclient.StatusError) *APIError {
	apiErr := &APIError{
		StatusCode: statusErr.StatusCode,
		Message:    strings.TrimSpace(statusErr.Body),
		cause:      statusErr,
	}
	var env errorEnvelope
	if json.Unmarshal([]byte(statusErr.Body), &env) == nil && env.Status.Error != "" {
		apiErr.Message = env.Status.Error
	}
	return apiErr
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	err := c.http.DoJSON(ctx, method, c.baseURL+path, c.header, body, result)
	if err == nil {
		return nil
	}
	var statusErr *httpclient.StatusError
	if stderrors.As(err, &statusErr) {
		return newAPIError(statusErr)
	}
	return fmt.Errorf("qdrant: %s %s: %w", method, path, err)
}

// ServerVersion returns the version reported by GET /. The value is fetched once.
func (c *Client) ServerVersion(ctx context.Context) (semver.Version, error) {
	c.versionOnce.Do(func() {
		var info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		}
		if err := c.do(ctx, http.MethodGet, "/", nil, &info); err != nil {
			c.versionErr = err
			return
		}
		c.version, c.versionErr = semver.ParseTolerant(info.Version)
	})
	return c.version, c.versionErr
}

// UseQueryAPI decides between /points/query and the legacy /points/search.
func (c *Client) UseQueryAPI(ctx context.Context) (bool, error) {
	switch c.searchAPI {
	case qdrantopts.SearchAPIQuery:
		return true, nil
	case qdrantopts.SearchAPISearch:
		return false, nil
	}
	v, err := c.ServerVersion(ctx)
	if err != nil {
		return false, err
	}
	return v.GTE(QueryAPIMinVersion), nil
}

// VectorParams is the single unnamed vector configuration of a collection.
type VectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

// CollectionInfo is the subset of GET /collections/{name} we rely on.
type CollectionInfo struct {
	Status      string `json:"status"`
	PointsCount int64  `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors VectorParams `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// GetCollection returns collection info. Missing collections yield an APIError
// for which IsNotFound is true.
func (c *Client) GetCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	var out struct {
		Result CollectionInfo `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// CreateCollection creates a collection with one unnamed vector.
func (c *Client) CreateCollection(ctx context.Context, name string, params VectorParams) error {
	body := map[string]any{"vectors": params}
	return c.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(name), body, nil)
}

// ListCollections returns the collection names.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var out struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Result.Collections))
	for _, col := range out.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

// PointStruct is a point to upsert.
type PointStruct struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// UpsertPoints writes points and waits until they are applied.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []PointStruct) error {
	body := map[string]any{"points": points}
	return c.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(collection)+"/points?wait=true", body, nil)
}

// CountPoints returns the exact number of points in a collection.
func (c *Client) CountPoints(ctx context.Context, collection string) (int64, error) {
	var out struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	if err := c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(collection)+"/points/count", body, &out); err != nil {
		return 0, err
	}
	return out.Result.Count, nil
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      any            `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// IDString returns the point ID as text regardless of its wire type.
func (p ScoredPoint) IDString() string {
	switch v := p.ID.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Query runs a nearest-neighbor query through POST /points/query (Qdrant >= 1.10).
func (c *Client) Query(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	var out struct {
		Result struct {
			Points []ScoredPoint `json:"points"`
		} `json:"result"`
	}
	body := map[string]any{
		"query":        vector,
		"limit":        limit,
		"with_payload": true,
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(collection)+"/points/query", body, &out); err != nil {
		return nil, err
	}
	return out.Result.Points, nil
}

// Search runs a nearest-neighbor query through the legacy POST /points/search.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	var out struct {
		Result []ScoredPoint `json:"result"`
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(collection)+"/points/search", body, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Filter is a Qdrant payload filter.
type Filter struct {
	Must    []map[string]any `json:"must,omitempty"`
	MustNot []map[string]any `json:"must_not,omitempty"`
}

// DocumentFilter matches points whose payload key equals value, except the
// listed point IDs.
func DocumentFilter(key, value string, exceptIDs []string) Filter {
	f := Filter{Must: []map[string]any{{"key": key, "match": map[string]any{"value": value}}}}
	if len(exceptIDs) > 0 {
		f.MustNot = []map[string]any{{"has_id": exceptIDs}}
	}
	return f
}

// DeletePoints removes the points selected by filter and waits until applied.
func (c *Client) DeletePoints(ctx context.Context, collection string, filter Filter) error {
	body := map[string]any{"filter": filter}
	return c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(collection)+"/points/delete?wait=true", body, nil)
}
