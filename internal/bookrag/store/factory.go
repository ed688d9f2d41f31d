package store

import (
	"context"

	"github.com/kart-io/bookrag/pkg/component/milvus"
	"github.com/kart-io/bookrag/pkg/component/qdrant"
	"github.com/kart-io/bookrag/pkg/errors"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	ragopts "github.com/kart-io/bookrag/pkg/options/rag"
)

// New 根据配置的后端创建向量索引，后端在进程生命周期内不变。
func New(ctx context.Context, backend string, qdrantOpts *qdrantopts.Options, milvusOpts *milvusopts.Options) (VectorIndex, error) {
	switch backend {
	case ragopts.StoreQdrant:
		client, err := qdrant.New(qdrantOpts)
		if err != nil {
			return nil, err
		}
		return NewQdrantStore(ctx, client), nil
	case ragopts.StoreMilvus:
		client, err := milvus.New(milvusOpts)
		if err != nil {
			return nil, errors.Upstream(err)
		}
		return NewMilvusStore(client), nil
	case ragopts.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.ErrConfiguration.WithMessagef("unknown vector store %q", backend)
	}
}
