package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bookrag/pkg/errors"
)

func newMemoryWithPoints(t *testing.T, n int) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateCollection(ctx, CollectionSpec{Name: "books", Dimension: 2, Metric: "cosine"}))

	points := make([]Point, n)
	for i := range points {
		// 向量与 (1, 0) 的夹角逐渐增大
		points[i] = Point{
			ID:           PointID("doc.md", i),
			Vector:       []float32{float32(n - i), float32(i)},
			DocumentName: "doc.md",
			ChunkText:    fmt.Sprintf("chunk %d", i),
		}
	}
	require.NoError(t, s.Upsert(ctx, "books", points))
	return s
}

func TestMemoryStoreSearchTopK(t *testing.T) {
	s := newMemoryWithPoints(t, 10)

	hits, err := s.Search(context.Background(), "books", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	assert.Equal(t, "chunk 0", hits[0].ChunkText)
	assert.Equal(t, "doc.md", hits[0].DocumentName)
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newMemoryWithPoints(t, 4)

	require.NoError(t, s.Upsert(ctx, "books", []Point{{
		ID:        PointID("doc.md", 0),
		Vector:    []float32{0, 1},
		ChunkText: "rewritten",
	}}))

	n, err := s.Count(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	hits, err := s.Search(ctx, "books", []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", hits[0].ChunkText)
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Describe(ctx, "missing")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	_, err = s.Search(ctx, "missing", []float32{1}, 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	require.NoError(t, s.CreateCollection(ctx, CollectionSpec{Name: "books", Dimension: 3}))
	assert.Error(t, s.CreateCollection(ctx, CollectionSpec{Name: "books", Dimension: 3}))

	err = s.Upsert(ctx, "books", []Point{{ID: "x", Vector: []float32{1, 2}}})
	assert.True(t, errors.IsCode(err, errors.ErrDimensionMismatch.Code))

	_, err = s.Search(ctx, "books", []float32{1, 2}, 3)
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))

	hits, err := s.Search(ctx, "books", []float32{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryStoreMetrics(t *testing.T) {
	ctx := context.Background()
	for _, metric := range []string{"cosine", "dot", "l2"} {
		t.Run(metric, func(t *testing.T) {
			s := NewMemoryStore()
			require.NoError(t, s.CreateCollection(ctx, CollectionSpec{Name: "c", Dimension: 2, Metric: metric}))
			require.NoError(t, s.Upsert(ctx, "c", []Point{
				{ID: "near", Vector: []float32{1, 0.1}},
				{ID: "far", Vector: []float32{-1, 0}},
			}))

			hits, err := s.Search(ctx, "c", []float32{1, 0}, 2)
			require.NoError(t, err)
			require.Len(t, hits, 2)
			assert.Equal(t, "near", hits[0].ID)
			assert.Greater(t, hits[0].Score, hits[1].Score)
		})
	}
}

func TestMemoryStoreListCollections(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateCollection(ctx, CollectionSpec{Name: "b", Dimension: 1}))
	require.NoError(t, s.CreateCollection(ctx, CollectionSpec{Name: "a", Dimension: 1}))

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}
