package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/bookrag/internal/bookrag/metrics"
	"github.com/kart-io/bookrag/internal/bookrag/store"
	"github.com/kart-io/bookrag/internal/pkg/rag/textutil"
	"github.com/kart-io/bookrag/pkg/id"
	"github.com/kart-io/bookrag/pkg/infra/pool"
	"github.com/kart-io/bookrag/pkg/infra/tracing"
	"github.com/kart-io/bookrag/pkg/llm"
)

// Document 待摄取的文档。
type Document struct {
	// Name 文档的稳定名称（相对文档根目录的路径）。
	Name string
	// Text 文档纯文本。
	Text string
}

// IngesterConfig 摄取配置。
type IngesterConfig struct {
	// Collection 集合名称。
	Collection string
	// Dimension 向量维度。
	Dimension int
	// Metric 距离度量。
	Metric string
	// ChunkSize 每块字符数。
	ChunkSize int
	// Workers 并行处理的文档数，小于等于 1 时顺序处理。
	Workers int
}

// ChunkFailure 记录失败的块。
type ChunkFailure struct {
	ID           string `json:"id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	Stage        string `json:"stage"`
	Error        string `json:"error"`
}

// IngestReport 一次摄取运行的结果。
type IngestReport struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	Elapsed     time.Duration  `json:"elapsed"`
	Documents   int            `json:"documents"`
	TotalChunks int            `json:"total_chunks"`
	Succeeded   []string       `json:"succeeded"`
	Failed      []ChunkFailure `json:"failed"`

	mu sync.Mutex
}

func (r *IngestReport) addChunks(n int) {
	r.mu.Lock()
	r.TotalChunks += n
	r.mu.Unlock()
}

func (r *IngestReport) succeed(pointID string) {
	r.mu.Lock()
	r.Succeeded = append(r.Succeeded, pointID)
	r.mu.Unlock()
}

func (r *IngestReport) fail(f ChunkFailure) {
	r.mu.Lock()
	r.Failed = append(r.Failed, f)
	r.mu.Unlock()
}

// Summary 返回一行摘要。
func (r *IngestReport) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("run %s: %d documents, %d chunks, %d succeeded, %d failed in %s",
		r.RunID, r.Documents, r.TotalChunks, len(r.Succeeded), len(r.Failed), r.Elapsed.Round(time.Millisecond))
}

// Ingester 负责把文档写入向量索引。
type Ingester struct {
	index       store.VectorIndex
	embedder    llm.EmbeddingProvider
	collections *CollectionManager
	config      *IngesterConfig
	metrics     *metrics.RAGMetrics
	ids         id.Generator
}

// NewIngester 创建摄取器实例。m 可以为 nil。
func NewIngester(index store.VectorIndex, embedder llm.EmbeddingProvider, collections *CollectionManager, config *IngesterConfig, m *metrics.RAGMetrics) *Ingester {
	return &Ingester{
		index:       index,
		embedder:    embedder,
		collections: collections,
		config:      config,
		metrics:     m,
		ids:         id.NewULIDGenerator(),
	}
}

// Ingest 确保集合存在后摄取所有文档。
// 单个块的 embedding 或写入失败只记录在报告中，不会中止运行。
// 只有集合无法就绪或 ctx 被取消时返回错误，此时报告包含已完成的部分。
func (i *Ingester) Ingest(ctx context.Context, docs []Document) (*IngestReport, error) {
	report := &IngestReport{
		RunID:     i.ids.Generate(),
		StartedAt: time.Now(),
		Documents: len(docs),
		Succeeded: []string{},
		Failed:    []ChunkFailure{},
	}
	defer func() { report.Elapsed = time.Since(report.StartedAt) }()

	spec := store.CollectionSpec{Name: i.config.Collection, Dimension: i.config.Dimension, Metric: i.config.Metric}
	if err := i.collections.EnsureCollection(ctx, spec); err != nil {
		return report, err
	}

	logger.Infow("ingestion started", "run_id", report.RunID, "documents", len(docs), "workers", i.config.Workers)

	if i.config.Workers <= 1 || len(docs) <= 1 {
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			i.ingestDocument(ctx, doc, report)
		}
		return report, ctx.Err()
	}

	if err := i.ingestParallel(ctx, docs, report); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

func (i *Ingester) ingestParallel(ctx context.Context, docs []Document, report *IngestReport) error {
	p, err := pool.NewPool("ingest-"+report.RunID, pool.IngestPoolConfig(i.config.Workers))
	if err != nil {
		return err
	}
	defer p.Release()

	var wg sync.WaitGroup
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			i.ingestDocument(ctx, doc, report)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()
	return nil
}

func (i *Ingester) ingestDocument(ctx context.Context, doc Document, report *IngestReport) {
	chunks := textutil.Chunk(doc.Text, i.config.ChunkSize)
	report.addChunks(len(chunks))

	ctx, span := tracing.StartSpan(ctx, "rag.ingest_document",
		tracing.String("run_id", report.RunID), tracing.String("document", doc.Name), tracing.Int("chunks", len(chunks)))
	failed := 0
	defer func() {
		span.SetAttributes(tracing.Int("failed", failed))
		tracing.EndSpan(span, ctx.Err())
	}()

	keep := make([]string, len(chunks))
	for idx, chunk := range chunks {
		if ctx.Err() != nil {
			return
		}
		pointID := store.PointID(doc.Name, idx)
		keep[idx] = pointID
		stage, err := i.ingestChunk(ctx, pointID, doc.Name, chunk)
		i.metrics.RecordChunk(err)
		if err != nil {
			logger.Warnw("chunk ingestion failed",
				"run_id", report.RunID, "document", doc.Name, "chunk", idx, "stage", stage, "error", err.Error())
			report.fail(ChunkFailure{ID: pointID, DocumentName: doc.Name, ChunkIndex: idx, Stage: stage, Error: err.Error()})
			failed++
			continue
		}
		report.succeed(pointID)
	}

	// 文档变短后，旧版本多出的块不能再被检索到
	if err := i.index.PruneDocument(ctx, i.config.Collection, doc.Name, keep); err != nil {
		logger.Warnw("failed to prune stale chunks", "run_id", report.RunID, "document", doc.Name, "error", err.Error())
	}

	i.metrics.RecordDocument()
	logger.Infow("document ingested", "run_id", report.RunID, "document", doc.Name, "chunks", len(chunks))
}

func (i *Ingester) ingestChunk(ctx context.Context, pointID, docName, chunk string) (string, error) {
	vector, err := i.embedder.EmbedSingle(ctx, chunk)
	if err != nil {
		return metrics.StageEmbed, err
	}
	point := store.Point{ID: pointID, Vector: vector, DocumentName: docName, ChunkText: chunk}
	if err := i.index.Upsert(ctx, i.config.Collection, []store.Point{point}); err != nil {
		return metrics.StageUpsert, err
	}
	return "", nil
}
