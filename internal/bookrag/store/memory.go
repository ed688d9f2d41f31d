package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/kart-io/bookrag/internal/pkg/rag/textutil"
	"github.com/kart-io/bookrag/pkg/errors"
)

type memoryCollection struct {
	spec   CollectionSpec
	points map[string]Point
}

// MemoryStore 是进程内的向量索引实现，用于本地运行与测试。
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore 创建内存存储实例。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// Describe 返回集合信息。
func (s *MemoryStore) Describe(_ context.Context, collection string) (*CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return &CollectionInfo{Name: c.spec.Name, Dimension: c.spec.Dimension, Metric: c.spec.Metric}, nil
}

// CreateCollection 创建集合，集合已存在时返回错误。
func (s *MemoryStore) CreateCollection(_ context.Context, spec CollectionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[spec.Name]; ok {
		return fmt.Errorf("collection %s already exists", spec.Name)
	}
	s.collections[spec.Name] = &memoryCollection{spec: spec, points: make(map[string]Point)}
	return nil
}

// Upsert 按 ID 写入点。
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrCollectionNotFound
	}
	for _, p := range points {
		if len(p.Vector) != c.spec.Dimension {
			return errors.ErrDimensionMismatch.WithMessagef("point %s has dimension %d, collection %s expects %d",
				p.ID, len(p.Vector), collection, c.spec.Dimension)
		}
	}
	for _, p := range points {
		p.Vector = slices.Clone(p.Vector)
		c.points[p.ID] = p
	}
	return nil
}

// PruneDocument 删除属于 documentName 但不在 keep 中的点。
func (s *MemoryStore) PruneDocument(_ context.Context, collection, documentName string, keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrCollectionNotFound
	}
	for id, p := range c.points {
		if p.DocumentName == documentName && !slices.Contains(keep, id) {
			delete(c.points, id)
		}
	}
	return nil
}

// Count 返回集合中的点数。
func (s *MemoryStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, ErrCollectionNotFound
	}
	return int64(len(c.points)), nil
}

// ListCollections 返回所有集合名称，按名称排序。
func (s *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.collections)), nil
}

// Search 暴力计算相似度并返回前 topK 个结果。分数相同时按 ID 排序。
func (s *MemoryStore) Search(_ context.Context, collection string, vector []float32, topK int) ([]RetrievalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	if len(vector) != c.spec.Dimension {
		return nil, errors.ErrDimensionMismatch.WithMessagef("query vector has dimension %d, collection %s expects %d",
			len(vector), collection, c.spec.Dimension)
	}
	if topK <= 0 {
		return []RetrievalHit{}, nil
	}

	hits := make([]RetrievalHit, 0, len(c.points))
	for _, p := range c.points {
		hits = append(hits, RetrievalHit{
			ID:           p.ID,
			Score:        score(c.spec.Metric, vector, p.Vector),
			DocumentName: p.DocumentName,
			ChunkText:    p.ChunkText,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Close 无需释放资源。
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

func score(metric string, a, b []float32) float32 {
	switch metric {
	case "dot":
		return float32(textutil.DotProduct(a, b))
	case "l2":
		return similarityFromDistance(textutil.EuclideanDistance(a, b))
	default:
		return float32(textutil.CosineSimilarity(a, b))
	}
}

var _ VectorIndex = (*MemoryStore)(nil)
