package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/bookrag/pkg/component/milvus"
)

// chunk_text 最大字节数。1000 个字符在 UTF-8 下最多 4000 字节。
const milvusChunkTextMaxLen = 8192

// milvusClient 是 MilvusStore 用到的 Milvus 操作。
type milvusClient interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	VectorDimension(ctx context.Context, name string) (int, error)
	VectorMetric(ctx context.Context, name string) (string, error)
	CreateCollection(ctx context.Context, schema *milvus.CollectionSchema) error
	Upsert(ctx context.Context, collection string, data *milvus.UpsertData) error
	Search(ctx context.Context, collection string, vector []float32, topK int, outputFields []string) ([]milvus.SearchResult, error)
	Delete(ctx context.Context, collection, expr string) error
	GetCollectionStats(ctx context.Context, collection string) (int64, error)
	ListCollections(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

var _ milvusClient = (*milvus.Client)(nil)

// MilvusStore 实现基于 Milvus 的向量索引。
type MilvusStore struct {
	client milvusClient

	metrics sync.Map
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return newMilvusStore(client)
}

func newMilvusStore(client milvusClient) *MilvusStore {
	return &MilvusStore{client: client}
}

// Describe 返回集合信息，度量从向量字段的索引读取。
func (s *MilvusStore) Describe(ctx context.Context, collection string) (*CollectionInfo, error) {
	exists, err := s.client.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}
	dim, err := s.client.VectorDimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	info := &CollectionInfo{Name: collection, Dimension: dim}
	if m, ok := s.metrics.Load(collection); ok {
		info.Metric = m.(string)
		return info, nil
	}
	metric, err := s.client.VectorMetric(ctx, collection)
	if err != nil {
		return nil, err
	}
	s.metrics.Store(collection, metric)
	info.Metric = metric
	return info, nil
}

// CreateCollection 创建 Milvus 集合。
func (s *MilvusStore) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	schema := &milvus.CollectionSchema{
		Name:        spec.Name,
		Description: "bookrag document chunks",
		Dimension:   spec.Dimension,
		Metric:      spec.Metric,
		IDMaxLen:    36,
		MetaFields: []milvus.MetaField{
			{Name: PayloadDocumentName, DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: PayloadChunkText, DataType: entity.FieldTypeVarChar, MaxLen: milvusChunkTextMaxLen},
		},
	}
	if err := s.client.CreateCollection(ctx, schema); err != nil {
		return err
	}
	metric := spec.Metric
	if metric == "" {
		metric = "cosine"
	}
	s.metrics.Store(spec.Name, metric)
	return nil
}

// Upsert 批量写入点。
func (s *MilvusStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	data := &milvus.UpsertData{
		IDs:        make([]string, len(points)),
		Embeddings: make([][]float32, len(points)),
		VarChars: map[string][]string{
			PayloadDocumentName: make([]string, len(points)),
			PayloadChunkText:    make([]string, len(points)),
		},
	}
	for i, p := range points {
		data.IDs[i] = p.ID
		data.Embeddings[i] = p.Vector
		data.VarChars[PayloadDocumentName][i] = p.DocumentName
		data.VarChars[PayloadChunkText][i] = p.ChunkText
	}

	if err := s.client.Upsert(ctx, collection, data); err != nil {
		return fmt.Errorf("failed to upsert into milvus: %w", err)
	}
	return nil
}

// Search 执行向量相似度搜索。L2 集合的距离被转换为相似度。
// 首次检索某个集合时通过 Describe 获取并缓存其度量。
func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]RetrievalHit, error) {
	metric, err := s.metric(ctx, collection)
	if err != nil {
		return nil, err
	}

	results, err := s.client.Search(ctx, collection, vector, topK, []string{PayloadDocumentName, PayloadChunkText})
	if err != nil {
		if exists, herr := s.client.HasCollection(ctx, collection); herr == nil && !exists {
			s.metrics.Delete(collection)
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	hits := make([]RetrievalHit, len(results))
	for i, r := range results {
		score := r.Score
		if metric == "l2" {
			score = similarityFromDistance(float64(r.Score))
		}
		hits[i] = RetrievalHit{
			ID:           r.ID,
			Score:        score,
			DocumentName: r.Metadata[PayloadDocumentName],
			ChunkText:    r.Metadata[PayloadChunkText],
		}
	}
	return hits, nil
}

// PruneDocument 删除属于 documentName 但不在 keep 中的行。
func (s *MilvusStore) PruneDocument(ctx context.Context, collection, documentName string, keep []string) error {
	return s.client.Delete(ctx, collection, pruneExpr(documentName, keep))
}

func pruneExpr(documentName string, keep []string) string {
	expr := PayloadDocumentName + " == " + strconv.Quote(documentName)
	if len(keep) == 0 {
		return expr
	}
	quoted := make([]string, len(keep))
	for i, id := range keep {
		quoted[i] = strconv.Quote(id)
	}
	return expr + " && " + milvus.FieldID + " not in [" + strings.Join(quoted, ", ") + "]"
}

func (s *MilvusStore) metric(ctx context.Context, collection string) (string, error) {
	if m, ok := s.metrics.Load(collection); ok {
		return m.(string), nil
	}
	info, err := s.Describe(ctx, collection)
	if err != nil {
		return "", err
	}
	return info.Metric, nil
}

// Count 获取集合行数。
func (s *MilvusStore) Count(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// ListCollections 返回所有集合名称。
func (s *MilvusStore) ListCollections(ctx context.Context) ([]string, error) {
	return s.client.ListCollections(ctx)
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// 确保 MilvusStore 实现了 VectorIndex 接口。
var _ VectorIndex = (*MilvusStore)(nil)
