// Package store 提供 bookrag 的向量索引访问层。
//
// 该包定义 VectorIndex 与 Searcher 接口，并提供 Qdrant、Milvus
// 与内存三种实现。所有实现都在适配层把各自的返回结构统一转换为
// RetrievalHit，按分数降序排列。
package store
