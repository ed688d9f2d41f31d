// Package metrics 提供 bookrag 的业务指标收集，基于 Prometheus。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace 所有指标的前缀。
const Namespace = "bookrag"

// 查询结果。
const (
	OutcomeAnswered       = "answered"
	OutcomeNotFound       = "not_found"
	OutcomeValidation     = "validation_error"
	OutcomeUpstreamFailed = "upstream_error"
)

// 查询与摄取阶段。
const (
	StageEmbed    = "embed"
	StageSearch   = "search"
	StageGenerate = "generate"
	StageUpsert   = "upsert"
)

// RAGMetrics bookrag 业务指标。所有方法在 nil 接收者上为空操作。
type RAGMetrics struct {
	queriesTotal      *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	upstreamErrors    *prometheus.CounterVec
	generationsTotal  *prometheus.CounterVec
	chunksIngested    *prometheus.CounterVec
	documentsIngested prometheus.Counter
	contextTruncated  prometheus.Counter
}

// NewRAGMetrics 创建指标并注册到 reg。
func NewRAGMetrics(reg prometheus.Registerer) *RAGMetrics {
	m := &RAGMetrics{
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Questions handled by the query pipeline, by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of upstream pipeline stages.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed upstream calls, by stage.",
		}, []string{"stage"}),
		generationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generations_total",
			Help:      "Translate and personalize calls, by operation and result.",
		}, []string{"operation", "result"}),
		chunksIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingested_chunks_total",
			Help:      "Chunks processed by ingestion, by result.",
		}, []string{"result"}),
		documentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingested_documents_total",
			Help:      "Documents processed by ingestion.",
		}),
		contextTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "context_truncated_total",
			Help:      "Queries whose retrieved context was cut to the character budget.",
		}),
	}
	reg.MustRegister(
		m.queriesTotal,
		m.stageDuration,
		m.upstreamErrors,
		m.generationsTotal,
		m.chunksIngested,
		m.documentsIngested,
		m.contextTruncated,
	)
	return m
}

// RecordQuery 记录一次查询的结果。
func (m *RAGMetrics) RecordQuery(outcome string) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage 记录上游阶段耗时，err 不为 nil 时同时计入错误。
func (m *RAGMetrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.upstreamErrors.WithLabelValues(stage).Inc()
	}
}

// RecordGeneration 记录翻译或改写调用。
func (m *RAGMetrics) RecordGeneration(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.generationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordChunk 记录一个块的摄取结果。
func (m *RAGMetrics) RecordChunk(err error) {
	if m == nil {
		return
	}
	result := "succeeded"
	if err != nil {
		result = "failed"
	}
	m.chunksIngested.WithLabelValues(result).Inc()
}

// RecordDocument 记录一篇文档处理完成。
func (m *RAGMetrics) RecordDocument() {
	if m == nil {
		return
	}
	m.documentsIngested.Inc()
}

// RecordContextTruncated 记录上下文被截断。
func (m *RAGMetrics) RecordContextTruncated() {
	if m == nil {
		return
	}
	m.contextTruncated.Inc()
}
