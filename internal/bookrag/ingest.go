package bookrag

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/kart-io/logger"

	"github.com/kart-io/bookrag/internal/bookrag/biz"
	"github.com/kart-io/bookrag/internal/pkg/rag/docutil"
	"github.com/kart-io/bookrag/pkg/errors"
	"github.com/kart-io/bookrag/pkg/infra/app"
	"github.com/kart-io/bookrag/pkg/infra/tracing"
	"github.com/kart-io/bookrag/pkg/infra/watch"
	llmopts "github.com/kart-io/bookrag/pkg/options/llm"
	logopts "github.com/kart-io/bookrag/pkg/options/logger"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	ragopts "github.com/kart-io/bookrag/pkg/options/rag"
	tracingopts "github.com/kart-io/bookrag/pkg/options/tracing"
)

// IngestName is the name of the ingestion command.
const IngestName = "bookrag-ingest"

// IngestConfig contains the configuration of one ingestion run.
type IngestConfig struct {
	LogOptions       *logopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	QdrantOptions    *qdrantopts.Options
	MilvusOptions    *milvusopts.Options
	TracingOptions   *tracingopts.Options

	// DocsDir 文档根目录。
	DocsDir string
	// Extensions 收录的扩展名。
	Extensions []string
	// Workers 并行处理的文档数。
	Workers int
	// LockFile 单实例锁文件，为空时不加锁。
	LockFile string
	// Watch 首次摄取后继续监听目录变化。
	Watch bool
	// Debounce 监听模式下合并事件的静默时间。
	Debounce time.Duration
	// Out 报告输出，默认 stdout。
	Out io.Writer
}

// Ingest 执行一次摄取，watch 模式下持续到 ctx 结束。
// 只有配置错误会返回 error，上游失败记录在日志和报告里。
func (cfg *IngestConfig) Ingest(ctx context.Context) error {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", IngestName)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 2. 单实例锁
	if cfg.LockFile != "" {
		lock := flock.New(cfg.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return errors.ErrConfiguration.WithMessagef("failed to acquire lock %s: %v", cfg.LockFile, err)
		}
		if !locked {
			return errors.ErrConfiguration.WithMessagef("lock %s is held by another ingestion run", cfg.LockFile)
		}
		defer func() { _ = lock.Unlock() }()
		logger.Infow("Ingestion lock acquired", "path", cfg.LockFile)
	}

	if !docutil.DirExists(cfg.DocsDir) {
		return errors.ErrConfiguration.WithMessagef("docs directory %s does not exist", cfg.DocsDir)
	}

	// 3. 初始化链路追踪
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions, app.GetVersion())
	if err != nil {
		return errors.ErrConfiguration.WithMessagef("failed to initialize tracing: %v", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// 4. 初始化向量存储与 Embedding 供应商
	index, closeIndex, err := NewIndex(ctx, cfg.RAGOptions, cfg.QdrantOptions, cfg.MilvusOptions)
	if err != nil {
		return classify(err)
	}
	defer closeIndex(context.Background())

	embedder, _, err := NewEmbedder(ctx, cfg.EmbeddingOptions, nil)
	if err != nil {
		return classify(err)
	}

	ingester := biz.NewIngester(index, embedder, biz.NewCollectionManager(index), &biz.IngesterConfig{
		Collection: cfg.RAGOptions.Collection,
		Dimension:  cfg.RAGOptions.Dimension,
		Metric:     cfg.RAGOptions.Metric,
		ChunkSize:  cfg.RAGOptions.ChunkSize,
		Workers:    cfg.Workers,
	}, nil)

	// 5. 首次全量摄取
	paths, err := docutil.FindFiles(cfg.DocsDir, cfg.Extensions)
	if err != nil {
		return errors.ErrConfiguration.WithMessagef("failed to scan %s: %v", cfg.DocsDir, err)
	}
	if err := cfg.run(ctx, ingester, paths); err != nil {
		return err
	}
	if !cfg.Watch {
		return nil
	}

	// 6. 监听目录变化，增量摄取
	w, err := watch.New(cfg.DocsDir, cfg.Debounce, func(path string) bool {
		return docutil.HasExtension(path, cfg.Extensions)
	})
	if err != nil {
		return errors.ErrConfiguration.WithMessagef("failed to watch %s: %v", cfg.DocsDir, err)
	}
	w.Subscribe("ingest", func(ctx context.Context, paths []string) {
		if err := cfg.run(ctx, ingester, paths); err != nil {
			logger.Errorw("re-ingestion failed", "error", err.Error())
		}
	})
	return w.Run(ctx)
}

// run 读取并摄取给定文件。读取失败的文件被跳过。
func (cfg *IngestConfig) run(ctx context.Context, ingester *biz.Ingester, paths []string) error {
	docs := make([]biz.Document, 0, len(paths))
	for _, p := range paths {
		f, err := docutil.LoadFile(cfg.DocsDir, p)
		if err != nil {
			logger.Warnw("skipping unreadable document", "path", p, "error", err.Error())
			continue
		}
		docs = append(docs, biz.Document{Name: f.Name, Text: f.Text})
	}

	report, err := ingester.Ingest(ctx, docs)
	fmt.Fprintln(cfg.Out, report.Summary())
	for _, f := range report.Failed {
		fmt.Fprintf(cfg.Out, "  failed %s#%d (%s): %s\n", f.DocumentName, f.ChunkIndex, f.Stage, f.Error)
	}
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify 返回配置错误，其余错误只记录日志。
func classify(err error) error {
	if errors.KindOf(err) == errors.KindConfiguration {
		return err
	}
	logger.Errorw("ingestion aborted", "kind", errors.KindOf(err).String(), "error", err.Error())
	return nil
}
