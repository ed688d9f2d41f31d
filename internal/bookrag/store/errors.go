package store

import "errors"

// ErrCollectionNotFound 集合不存在。
var ErrCollectionNotFound = errors.New("collection not found")

// similarityFromDistance 将 L2 距离转换为越大越相似的分数。
func similarityFromDistance(d float64) float32 {
	return float32(1 / (1 + d))
}
