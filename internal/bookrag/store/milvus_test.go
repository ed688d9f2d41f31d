package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bookrag/pkg/component/milvus"
)

// fakeMilvus 模拟 Milvus 的距离语义：L2 集合按距离升序返回。
type fakeMilvus struct {
	exists        bool
	metric        string
	results       []milvus.SearchResult
	metricCalls   int
	searchErr     error
	deleteExprs   []string
	createdSchema *milvus.CollectionSchema
}

func (f *fakeMilvus) HasCollection(context.Context, string) (bool, error) { return f.exists, nil }
func (f *fakeMilvus) VectorDimension(context.Context, string) (int, error) { return 2, nil }

func (f *fakeMilvus) VectorMetric(context.Context, string) (string, error) {
	f.metricCalls++
	return f.metric, nil
}

func (f *fakeMilvus) CreateCollection(_ context.Context, schema *milvus.CollectionSchema) error {
	f.createdSchema = schema
	f.exists = true
	return nil
}

func (f *fakeMilvus) Upsert(context.Context, string, *milvus.UpsertData) error { return nil }

func (f *fakeMilvus) Search(context.Context, string, []float32, int, []string) ([]milvus.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeMilvus) Delete(_ context.Context, _ string, expr string) error {
	f.deleteExprs = append(f.deleteExprs, expr)
	return nil
}

func (f *fakeMilvus) GetCollectionStats(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeMilvus) ListCollections(context.Context) ([]string, error) { return nil, nil }
func (f *fakeMilvus) Close(context.Context) error { return nil }

func l2Results() []milvus.SearchResult {
	return []milvus.SearchResult{
		{ID: "p1", Score: 0.5, Metadata: map[string]string{PayloadDocumentName: "a.md", PayloadChunkText: "alpha"}},
		{ID: "p2", Score: 3, Metadata: map[string]string{PayloadDocumentName: "b.md", PayloadChunkText: "beta"}},
	}
}

func TestMilvusStoreL2SearchWithoutDescribe(t *testing.T) {
	f := &fakeMilvus{exists: true, metric: "l2", results: l2Results()}
	s := newMilvusStore(f)
	ctx := context.Background()

	hits, err := s.Search(ctx, "books", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.InDelta(t, 1/1.5, hits[0].Score, 1e-6)
	assert.Equal(t, "a.md", hits[0].DocumentName)
	assert.Equal(t, "alpha", hits[0].ChunkText)

	_, err = s.Search(ctx, "books", []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, f.metricCalls)
}

func TestMilvusStoreCosineScoresUnchanged(t *testing.T) {
	f := &fakeMilvus{exists: true, metric: "cosine", results: []milvus.SearchResult{{ID: "p1", Score: 0.9}}}
	hits, err := newMilvusStore(f).Search(context.Background(), "books", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(0.9), hits[0].Score)
}

func TestMilvusStoreMissingCollection(t *testing.T) {
	t.Run("检索前不存在", func(t *testing.T) {
		s := newMilvusStore(&fakeMilvus{})
		_, err := s.Search(context.Background(), "books", []float32{1, 0}, 2)
		assert.ErrorIs(t, err, ErrCollectionNotFound)

		_, err = s.Describe(context.Background(), "books")
		assert.ErrorIs(t, err, ErrCollectionNotFound)
	})

	t.Run("检索时被删除", func(t *testing.T) {
		f := &fakeMilvus{exists: true, metric: "cosine"}
		s := newMilvusStore(f)
		_, err := s.Describe(context.Background(), "books")
		require.NoError(t, err)

		f.exists = false
		f.searchErr = errors.New("failed to load collection: collection not found")
		_, err = s.Search(context.Background(), "books", []float32{1, 0}, 2)
		assert.ErrorIs(t, err, ErrCollectionNotFound)
	})
}

func TestMilvusStoreCreateCollectionRemembersMetric(t *testing.T) {
	f := &fakeMilvus{results: l2Results()}
	s := newMilvusStore(f)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, CollectionSpec{Name: "books", Dimension: 2, Metric: "l2"}))
	assert.Equal(t, 36, f.createdSchema.IDMaxLen)

	hits, err := s.Search(ctx, "books", []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, 0, f.metricCalls)
}

func TestMilvusStorePruneDocument(t *testing.T) {
	f := &fakeMilvus{exists: true}
	s := newMilvusStore(f)
	ctx := context.Background()

	require.NoError(t, s.PruneDocument(ctx, "books", `ch "1".md`, []string{"id-0", "id-1"}))
	require.NoError(t, s.PruneDocument(ctx, "books", "empty.md", nil))

	assert.Equal(t, []string{
		`document_name == "ch \"1\".md" && id not in ["id-0", "id-1"]`,
		`document_name == "empty.md"`,
	}, f.deleteExprs)
}
