package biz

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/kart-io/bookrag/internal/bookrag/metrics"
	"github.com/kart-io/bookrag/internal/bookrag/store"
	"github.com/kart-io/bookrag/pkg/errors"
	applogger "github.com/kart-io/bookrag/pkg/infra/logger"
	"github.com/kart-io/bookrag/pkg/infra/tracing"
	"github.com/kart-io/bookrag/pkg/llm"
)

// ServiceConfig 问答服务配置。
type ServiceConfig struct {
	// Collection 集合名称。
	Collection string
	// TopK 检索结果数量。
	TopK int
	// MaxContextChars 上下文字符预算。
	MaxContextChars int
}

// QueryResult 问答结果。
type QueryResult struct {
	// Answer 返回给用户的文本。
	Answer string
	// Hits 检索命中，按分数降序。
	Hits []store.RetrievalHit
	// Found 为 false 表示没有检索到任何上下文。
	Found bool
	// Truncated 表示上下文因字符预算被裁剪。
	Truncated bool
}

// RAGService 组合 embedding、检索与生成，提供问答、翻译和改写。
type RAGService struct {
	searcher store.Searcher
	embedder llm.EmbeddingProvider
	chat     llm.ChatProvider
	config   *ServiceConfig
	metrics  *metrics.RAGMetrics
}

// NewRAGService 创建服务实例。m 可以为 nil。
func NewRAGService(searcher store.Searcher, embedder llm.EmbeddingProvider, chat llm.ChatProvider, config *ServiceConfig, m *metrics.RAGMetrics) *RAGService {
	return &RAGService{
		searcher: searcher,
		embedder: embedder,
		chat:     chat,
		config:   config,
		metrics:  m,
	}
}

// Query 依次执行 校验 → embedding → 检索 → 组装上下文 → 生成。
// 每个阶段只调用一次上游，失败即返回，不重试。
// 检索结果为空不是错误，返回 NotFoundAnswer 且不调用生成模型。
// 返回的错误都是 *errors.Errno，可用 errors.KindOf 判断分类。
func (s *RAGService) Query(ctx context.Context, question string) (result *QueryResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "rag.query", tracing.String("collection", s.config.Collection), tracing.Int("top_k", s.config.TopK))
	defer func() { tracing.EndSpan(span, err) }()
	ctx = applogger.WithSpan(ctx)

	question = strings.TrimSpace(question)
	if question == "" {
		s.metrics.RecordQuery(metrics.OutcomeValidation)
		return nil, errors.ErrValidation.WithMessage("question must not be empty")
	}

	// 1. embedding
	start := time.Now()
	embedCtx, embedSpan := tracing.StartSpan(ctx, "rag.embed")
	vector, err := s.embedder.EmbedSingle(embedCtx, question)
	tracing.EndSpan(embedSpan, err)
	s.metrics.ObserveStage(metrics.StageEmbed, time.Since(start), err)
	if err != nil {
		return nil, s.stageFailed(ctx, metrics.StageEmbed, err)
	}

	// 2. 检索
	start = time.Now()
	searchCtx, searchSpan := tracing.StartSpan(ctx, "rag.search")
	hits, err := s.searcher.Search(searchCtx, s.config.Collection, vector, s.config.TopK)
	if stderrors.Is(err, store.ErrCollectionNotFound) {
		applogger.GetLogger(ctx).Warnw("collection does not exist, answering without context", "collection", s.config.Collection)
		hits, err = nil, nil
	}
	searchSpan.SetAttributes(tracing.Int("hits", len(hits)))
	tracing.EndSpan(searchSpan, err)
	s.metrics.ObserveStage(metrics.StageSearch, time.Since(start), err)
	if err != nil {
		return nil, s.stageFailed(ctx, metrics.StageSearch, err)
	}

	if len(hits) == 0 {
		s.metrics.RecordQuery(metrics.OutcomeNotFound)
		return &QueryResult{Answer: NotFoundAnswer, Hits: []store.RetrievalHit{}}, nil
	}

	// 3. 组装上下文与提示词
	contextText, truncated := AssembleContext(hits, s.config.MaxContextChars)
	if truncated {
		s.metrics.RecordContextTruncated()
		applogger.GetLogger(ctx).Debugw("context truncated", "hits", len(hits), "max_chars", s.config.MaxContextChars)
	}
	prompt := BuildAnswerPrompt(question, contextText)

	// 4. 生成
	answer, err := s.generateAnswer(ctx, prompt)
	if err != nil {
		return nil, s.stageFailed(ctx, metrics.StageGenerate, err)
	}

	s.metrics.RecordQuery(metrics.OutcomeAnswered)
	return &QueryResult{Answer: answer, Hits: hits, Found: true, Truncated: truncated}, nil
}

// Ask 执行 Query，并把错误转换为用户可见的回答。
func (s *RAGService) Ask(ctx context.Context, question string) string {
	result, err := s.Query(ctx, question)
	if err != nil {
		return ErrorAnswer(err)
	}
	return result.Answer
}

// Translate 把文本翻译为乌尔都语。
func (s *RAGService) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.ErrValidation.WithMessage("text must not be empty")
	}
	return s.generate(ctx, "translate", BuildTranslatePrompt(text))
}

// Personalize 按目标硬件改写文本。
func (s *RAGService) Personalize(ctx context.Context, text, hardware string) (string, error) {
	prompt, err := BuildPersonalizePrompt(text, hardware)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, "personalize", prompt)
}

func (s *RAGService) generateAnswer(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "rag.generate", tracing.String("operation", "chat"))
	start := time.Now()
	answer, err := s.chat.Generate(ctx, prompt, "")
	tracing.EndSpan(span, err)
	s.metrics.ObserveStage(metrics.StageGenerate, time.Since(start), err)
	return answer, err
}

func (s *RAGService) generate(ctx context.Context, operation, prompt string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "rag.generate", tracing.String("operation", operation))
	start := time.Now()
	out, err := s.chat.Generate(ctx, prompt, "")
	tracing.EndSpan(span, err)
	s.metrics.ObserveStage(metrics.StageGenerate, time.Since(start), err)
	s.metrics.RecordGeneration(operation, err)
	if err != nil {
		applogger.GetLogger(applogger.WithSpan(ctx)).Errorw("generation failed", "operation", operation, "error", err.Error())
		return "", errors.Upstream(err)
	}
	return out, nil
}

func (s *RAGService) stageFailed(ctx context.Context, stage string, err error) error {
	s.metrics.RecordQuery(metrics.OutcomeUpstreamFailed)
	applogger.GetLogger(ctx).Errorw("query failed", "stage", stage, "kind", errors.KindOf(err).String(), "error", err.Error())

	e := errors.Upstream(err)
	if errors.KindOf(e) != errors.KindUpstream {
		return e
	}
	return e.WithMessagef("%s failed: %s", stage, e.MessageEN)
}
