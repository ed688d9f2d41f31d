package biz

import (
	"context"
	stderrors "errors"

	"github.com/kart-io/logger"
	"golang.org/x/sync/singleflight"

	"github.com/kart-io/bookrag/internal/bookrag/store"
	"github.com/kart-io/bookrag/pkg/errors"
)

// CollectionManager 确保集合在使用前存在。
type CollectionManager struct {
	index store.VectorIndex
	group singleflight.Group
}

// NewCollectionManager 创建集合管理器。
func NewCollectionManager(index store.VectorIndex) *CollectionManager {
	return &CollectionManager{index: index}
}

// EnsureCollection 集合不存在时按 spec 创建，已存在时不做任何修改。
// 维度不一致返回 ErrDimensionMismatch（配置错误）；度量不一致只记录警告。
// 同一进程内对同名集合的并发调用合并为一次。
func (m *CollectionManager) EnsureCollection(ctx context.Context, spec store.CollectionSpec) error {
	if spec.Name == "" || spec.Dimension <= 0 {
		return errors.ErrConfiguration.WithMessagef("invalid collection spec: name=%q dimension=%d", spec.Name, spec.Dimension)
	}

	_, err, _ := m.group.Do(spec.Name, func() (any, error) {
		return nil, m.ensure(ctx, spec)
	})
	return err
}

func (m *CollectionManager) ensure(ctx context.Context, spec store.CollectionSpec) error {
	info, err := m.index.Describe(ctx, spec.Name)
	switch {
	case err == nil:
		return checkCollection(spec, info)
	case !stderrors.Is(err, store.ErrCollectionNotFound):
		return errors.Upstream(err)
	}

	logger.Infow("creating collection", "collection", spec.Name, "dimension", spec.Dimension, "metric", spec.Metric)
	if err := m.index.CreateCollection(ctx, spec); err != nil {
		// 另一个进程可能刚刚创建了集合
		if info, derr := m.index.Describe(ctx, spec.Name); derr == nil {
			return checkCollection(spec, info)
		}
		return errors.Upstream(err)
	}
	return nil
}

func checkCollection(spec store.CollectionSpec, info *store.CollectionInfo) error {
	if info.Dimension != spec.Dimension {
		return errors.ErrDimensionMismatch.WithMessagef("collection %s has dimension %d, expected %d",
			spec.Name, info.Dimension, spec.Dimension)
	}
	if info.Metric != "" && spec.Metric != "" && info.Metric != spec.Metric {
		logger.Warnw("collection metric differs from configuration, keeping existing collection",
			"collection", spec.Name, "existing", info.Metric, "configured", spec.Metric)
	}
	logger.Debugw("collection ready", "collection", spec.Name)
	return nil
}
