package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Payload 字段名。
const (
	PayloadDocumentName = "document_name"
	PayloadChunkText    = "chunk_text"
)

// pointNamespace 是生成点 ID 的 UUIDv5 命名空间。
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kart-io/bookrag/points"))

// PointID 根据文档名与块序号生成稳定的点 ID。
// 相同输入总是得到相同 ID，重复写入会覆盖而不是新增。
func PointID(documentName string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, fmt.Appendf(nil, "%s#%d", documentName, chunkIndex)).String()
}

// Point 表示写入索引的一个点。
type Point struct {
	// ID 点 ID，见 PointID。
	ID string
	// Vector 嵌入向量。
	Vector []float32
	// DocumentName 来源文档名。
	DocumentName string
	// ChunkText 块文本。
	ChunkText string
}

// RetrievalHit 表示检索命中结果。
type RetrievalHit struct {
	// ID 点 ID。
	ID string
	// Score 相似度分数，越大越相似。
	Score float32
	// DocumentName 来源文档名。
	DocumentName string
	// ChunkText 块文本。
	ChunkText string
}

// CollectionSpec 集合配置。
type CollectionSpec struct {
	// Name 集合名称。
	Name string
	// Dimension 向量维度。
	Dimension int
	// Metric 距离度量（cosine, dot, l2）。
	Metric string
}

// CollectionInfo 已存在集合的描述信息。
type CollectionInfo struct {
	Name      string
	Dimension int
	// Metric 为空表示后端无法报告度量。
	Metric string
}

// Searcher 定义相似度检索接口。
type Searcher interface {
	// Search 返回与向量最相似的 topK 个结果，按分数降序排列。
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]RetrievalHit, error)
}

// VectorIndex 定义向量索引接口。
type VectorIndex interface {
	Searcher

	// Describe 返回集合信息，集合不存在时返回 ErrCollectionNotFound。
	Describe(ctx context.Context, collection string) (*CollectionInfo, error)

	// CreateCollection 创建集合。
	CreateCollection(ctx context.Context, spec CollectionSpec) error

	// Upsert 按 ID 写入点，已存在的点被覆盖。
	Upsert(ctx context.Context, collection string, points []Point) error

	// PruneDocument 删除属于 documentName 但 ID 不在 keep 中的点。
	PruneDocument(ctx context.Context, collection, documentName string, keep []string) error

	// Count 返回集合中的点数。
	Count(ctx context.Context, collection string) (int64, error)

	// ListCollections 返回所有集合名称。
	ListCollections(ctx context.Context) ([]string, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}
