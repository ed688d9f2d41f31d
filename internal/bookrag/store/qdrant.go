package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/bookrag/pkg/component/qdrant"
)

// QdrantStore 实现基于 Qdrant REST API 的向量索引。
type QdrantStore struct {
	client   *qdrant.Client
	searcher Searcher

	// metrics 记录 Describe/CreateCollection 见过的集合度量。
	metrics sync.Map
}

// NewQdrantStore 创建 Qdrant 存储实例。
// 检索接口在此处根据服务端版本或配置一次性选定：
// >= 1.10 使用 /points/query，否则使用 /points/search。
func NewQdrantStore(ctx context.Context, client *qdrant.Client) *QdrantStore {
	s := &QdrantStore{client: client}

	useQuery, err := client.UseQueryAPI(ctx)
	if err != nil {
		logger.Warnw("failed to detect qdrant version, using legacy search api", "error", err.Error())
	}
	if useQuery {
		s.searcher = &qdrantQuerySearcher{client: client}
	} else {
		s.searcher = &qdrantLegacySearcher{client: client}
	}
	logger.Infow("qdrant searcher selected", "query_api", useQuery)

	return s
}

// Describe 返回集合信息。
func (s *QdrantStore) Describe(ctx context.Context, collection string) (*CollectionInfo, error) {
	info, err := s.client.GetCollection(ctx, collection)
	if err != nil {
		if qdrant.IsNotFound(err) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	metric := metricFromDistance(info.Config.Params.Vectors.Distance)
	s.metrics.Store(collection, metric)
	return &CollectionInfo{
		Name:      collection,
		Dimension: info.Config.Params.Vectors.Size,
		Metric:    metric,
	}, nil
}

// CreateCollection 创建集合。
func (s *QdrantStore) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	distance, err := distanceFromMetric(spec.Metric)
	if err != nil {
		return err
	}
	if err := s.client.CreateCollection(ctx, spec.Name, qdrant.VectorParams{Size: spec.Dimension, Distance: distance}); err != nil {
		return err
	}
	s.metrics.Store(spec.Name, metricFromDistance(distance))
	return nil
}

// Upsert 按 ID 写入点。
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = qdrant.PointStruct{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: map[string]any{
				PayloadDocumentName: p.DocumentName,
				PayloadChunkText:    p.ChunkText,
			},
		}
	}
	return s.client.UpsertPoints(ctx, collection, structs)
}

// Count 返回集合中的点数。
func (s *QdrantStore) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.client.CountPoints(ctx, collection)
	if qdrant.IsNotFound(err) {
		return 0, ErrCollectionNotFound
	}
	return n, err
}

// ListCollections 返回所有集合名称。
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	return s.client.ListCollections(ctx)
}

// Search 使用启动时选定的检索接口。Euclid 集合返回的是距离，这里转换为相似度。
// 首次检索某个集合时通过 Describe 获取并缓存其度量。
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]RetrievalHit, error) {
	metric, err := s.metric(ctx, collection)
	if err != nil {
		return nil, err
	}
	hits, err := s.searcher.Search(ctx, collection, vector, topK)
	if err != nil {
		if qdrant.IsNotFound(err) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	if metric == "l2" {
		for i := range hits {
			hits[i].Score = similarityFromDistance(float64(hits[i].Score))
		}
	}
	return hits, nil
}

// PruneDocument 删除属于 documentName 但不在 keep 中的点。
func (s *QdrantStore) PruneDocument(ctx context.Context, collection, documentName string, keep []string) error {
	err := s.client.DeletePoints(ctx, collection, qdrant.DocumentFilter(PayloadDocumentName, documentName, keep))
	if qdrant.IsNotFound(err) {
		return ErrCollectionNotFound
	}
	return err
}

func (s *QdrantStore) metric(ctx context.Context, collection string) (string, error) {
	if m, ok := s.metrics.Load(collection); ok {
		return m.(string), nil
	}
	info, err := s.Describe(ctx, collection)
	if err != nil {
		return "", err
	}
	return info.Metric, nil
}

// Close 无需释放资源。
func (s *QdrantStore) Close(context.Context) error {
	return nil
}

type qdrantQuerySearcher struct {
	client *qdrant.Client
}

func (q *qdrantQuerySearcher) Search(ctx context.Context, collection string, vector []float32, topK int) ([]RetrievalHit, error) {
	points, err := q.client.Query(ctx, collection, vector, topK)
	if err != nil {
		return nil, err
	}
	return toHits(points), nil
}

type qdrantLegacySearcher struct {
	client *qdrant.Client
}

func (q *qdrantLegacySearcher) Search(ctx context.Context, collection string, vector []float32, topK int) ([]RetrievalHit, error) {
	points, err := q.client.Search(ctx, collection, vector, topK)
	if err != nil {
		return nil, err
	}
	return toHits(points), nil
}

// toHits 统一 payload 字段。旧版本写入的 filename/text 字段同样可以识别。
func toHits(points []qdrant.ScoredPoint) []RetrievalHit {
	hits := make([]RetrievalHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, RetrievalHit{
			ID:           p.IDString(),
			Score:        p.Score,
			DocumentName: payloadString(p.Payload, PayloadDocumentName, "filename"),
			ChunkText:    payloadString(p.Payload, PayloadChunkText, "text"),
		})
	}
	return hits
}

func payloadString(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := payload[k].(string); ok {
			return v
		}
	}
	return ""
}

func distanceFromMetric(metric string) (string, error) {
	switch metric {
	case "cosine", "":
		return qdrant.DistanceCosine, nil
	case "dot":
		return qdrant.DistanceDot, nil
	case "l2":
		return qdrant.DistanceEuclid, nil
	default:
		return "", fmt.Errorf("unsupported metric %q", metric)
	}
}

func metricFromDistance(distance string) string {
	switch strings.ToLower(distance) {
	case "cosine":
		return "cosine"
	case "dot":
		return "dot"
	case "euclid":
		return "l2"
	default:
		return strings.ToLower(distance)
	}
}

var (
	_ VectorIndex = (*QdrantStore)(nil)
	_ Searcher    = (*qdrantQuerySearcher)(nil)
	_ Searcher    = (*qdrantLegacySearcher)(nil)
)
