// Package milvus wraps the Milvus v2 SDK client for vector collections keyed by string IDs.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/kart-io/bookrag/pkg/errors"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
)

// Field names of every collection created by this package.
const (
	FieldID     = "id"
	FieldVector = "embedding"
)

// metricTypeKey is the index parameter holding the metric type.
const metricTypeKey = "metric_type"

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil || opts.Address == "" {
		return nil, errors.ErrConfiguration.WithMessage("milvus address is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// MetricType maps a metric name (cosine, dot, l2) to the Milvus metric type.
func MetricType(metric string) (entity.MetricType, error) {
	switch metric {
	case "cosine", "":
		return entity.COSINE, nil
	case "dot":
		return entity.IP, nil
	case "l2":
		return entity.L2, nil
	default:
		return "", fmt.Errorf("unsupported metric %q", metric)
	}
}

// metricName maps a Milvus metric type back to cosine, dot or l2.
func metricName(t string) string {
	switch entity.MetricType(strings.ToUpper(t)) {
	case entity.COSINE:
		return "cosine"
	case entity.IP:
		return "dot"
	case entity.L2:
		return "l2"
	default:
		return strings.ToLower(t)
	}
}

// CollectionSchema defines the schema for a vector collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	Metric      string
	IDMaxLen    int
	MetaFields  []MetaField
}

// MetaField defines a metadata field in the collection.
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int // For VARCHAR type
}

// HasCollection reports whether the collection exists.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// CreateCollection creates a collection with a VARCHAR primary key, indexes
// the vector field and loads the collection.
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	metric, err := MetricType(schema.Metric)
	if err != nil {
		return err
	}
	idMaxLen := schema.IDMaxLen
	if idMaxLen <= 0 {
		idMaxLen = 64
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(false)

	collSchema.WithField(
		entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).
			WithMaxLength(int64(idMaxLen)),
	)

	collSchema.WithField(
		entity.NewField().
			WithName(FieldVector).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)),
	)

	for _, f := range schema.MetaFields {
		field := entity.NewField().
			WithName(f.Name).
			WithDataType(f.DataType)
		if f.DataType == entity.FieldTypeVarChar && f.MaxLen > 0 {
			field.WithMaxLength(int64(f.MaxLen))
		}
		collSchema.WithField(field)
	}

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(metric, 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldVector, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.Load(ctx, schema.Name)
}

// Load loads a collection into memory.
func (c *Client) Load(ctx context.Context, name string) error {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// VectorDimension returns the dimension of the vector field.
func (c *Client) VectorDimension(ctx context.Context, name string) (int, error) {
	coll, err := c.client.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(name))
	if err != nil {
		return 0, fmt.Errorf("failed to describe collection: %w", err)
	}
	if coll.Schema == nil {
		return 0, fmt.Errorf("collection %s has no schema", name)
	}
	for _, f := range coll.Schema.Fields {
		if f.DataType != entity.FieldTypeFloatVector {
			continue
		}
		dim, err := strconv.Atoi(f.TypeParams["dim"])
		if err != nil {
			return 0, fmt.Errorf("invalid dim of field %s: %w", f.Name, err)
		}
		return dim, nil
	}
	return 0, fmt.Errorf("collection %s has no float vector field", name)
}

// VectorMetric returns the metric (cosine, dot or l2) of the index on the
// vector field.
func (c *Client) VectorMetric(ctx context.Context, name string) (string, error) {
	desc, err := c.client.DescribeIndex(ctx, milvusclient.NewDescribeIndexOption(name, FieldVector))
	if err != nil {
		return "", fmt.Errorf("failed to describe index: %w", err)
	}
	metric, ok := desc.Params()[metricTypeKey]
	if !ok {
		return "", fmt.Errorf("index of collection %s has no metric type", name)
	}
	return metricName(metric), nil
}

// ListCollections returns the collection names in the database.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	names, err := c.client.ListCollections(ctx, milvusclient.NewListCollectionOption())
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// UpsertData represents rows to be upserted into a collection.
type UpsertData struct {
	IDs        []string
	Embeddings [][]float32
	VarChars   map[string][]string
}

// Upsert writes rows keyed by their string IDs and flushes the collection.
func (c *Client) Upsert(ctx context.Context, collectionName string, data *UpsertData) error {
	if len(data.IDs) == 0 {
		return nil
	}
	if len(data.Embeddings) != len(data.IDs) {
		return fmt.Errorf("ids and embeddings length mismatch: %d != %d", len(data.IDs), len(data.Embeddings))
	}

	columns := make([]column.Column, 0, len(data.VarChars)+2)
	columns = append(columns,
		column.NewColumnVarChar(FieldID, data.IDs),
		column.NewColumnFloatVector(FieldVector, len(data.Embeddings[0]), data.Embeddings),
	)
	for name, values := range data.VarChars {
		columns = append(columns, column.NewColumnVarChar(name, values))
	}

	if _, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...)); err != nil {
		return fmt.Errorf("failed to upsert data: %w", err)
	}

	// Flush so that row counts and searches see the rows immediately.
	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Search performs a vector similarity search.
func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, topK int, outputFields []string) ([]SearchResult, error) {
	if err := c.Load(ctx, collectionName); err != nil {
		return nil, err
	}

	searchVectors := []entity.Vector{entity.FloatVector(vector)}

	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collectionName,
		topK,
		searchVectors,
	).WithANNSField(FieldVector).
		WithSearchParam("nprobe", "16").
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	searchResults := make([]SearchResult, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		result := SearchResult{
			Score:    results[0].Scores[i],
			Metadata: make(map[string]string),
		}

		if idCol, ok := results[0].IDs.(*column.ColumnVarChar); ok {
			result.ID = idCol.Data()[i]
		}

		for _, field := range results[0].Fields {
			if col, ok := field.(*column.ColumnVarChar); ok {
				result.Metadata[col.Name()] = col.Data()[i]
			}
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// Delete removes the rows matching a boolean expression.
func (c *Client) Delete(ctx context.Context, collectionName, expr string) error {
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collectionName).WithExpr(expr)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// GetCollectionStats returns the number of entities in a collection.
func (c *Client) GetCollectionStats(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}

	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
