package bookrag

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/bookrag/internal/bookrag/store"
	"github.com/kart-io/bookrag/pkg/errors"
	"github.com/kart-io/bookrag/pkg/infra/app"
	"github.com/kart-io/bookrag/pkg/llm"
	llmopts "github.com/kart-io/bookrag/pkg/options/llm"
	logopts "github.com/kart-io/bookrag/pkg/options/logger"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	ragopts "github.com/kart-io/bookrag/pkg/options/rag"
)

// VerifyName is the name of the verification command.
const VerifyName = "bookrag-verify"

// VerifyPrompt is sent to the generative model to check its credentials.
const VerifyPrompt = "Say 'Hello Boss' if you can hear me."

// VerifyConfig contains the configuration of the credential checks.
type VerifyConfig struct {
	LogOptions    *logopts.Options
	ChatOptions   *llmopts.ProviderOptions
	RAGOptions    *ragopts.Options
	QdrantOptions *qdrantopts.Options
	MilvusOptions *milvusopts.Options

	// Timeout 每项检查的超时时间。
	Timeout time.Duration
	// Out 结果输出，默认 stdout。
	Out io.Writer
}

// Check 是一项连通性检查，成功时返回说明文字。
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// Verify 检查生成模型与向量数据库，逐项输出结果。任一项失败时返回错误。
func (cfg *VerifyConfig) Verify(ctx context.Context) error {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	cfg.LogOptions.AddInitialField("service.name", VerifyName)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	var checks []Check

	chat, err := NewChat(cfg.ChatOptions)
	if err != nil {
		checks = append(checks, failedCheck("generative model", err))
	} else {
		checks = append(checks, GenerateCheck(chat))
	}

	index, closeIndex, err := NewIndex(ctx, cfg.RAGOptions, cfg.QdrantOptions, cfg.MilvusOptions)
	if err != nil {
		checks = append(checks, failedCheck("vector database", err))
	} else {
		defer closeIndex(context.Background())
		checks = append(checks, VectorDBCheck(index))
	}

	return RunChecks(ctx, cfg.Out, cfg.Timeout, checks...)
}

// GenerateCheck 让生成模型回答 VerifyPrompt。
func GenerateCheck(chat llm.ChatProvider) Check {
	return Check{
		Name: "generative model",
		Run: func(ctx context.Context) (string, error) {
			out, err := chat.Generate(ctx, VerifyPrompt, "")
			if err != nil {
				return "", errors.Upstream(err)
			}
			return strings.TrimSpace(out), nil
		},
	}
}

// VectorDBCheck 列出向量数据库中的集合。
func VectorDBCheck(index store.VectorIndex) Check {
	return Check{
		Name: "vector database",
		Run: func(ctx context.Context) (string, error) {
			names, err := index.ListCollections(ctx)
			if err != nil {
				return "", errors.Upstream(err)
			}
			return fmt.Sprintf("%d collections [%s]", len(names), strings.Join(names, ", ")), nil
		},
	}
}

func failedCheck(name string, err error) Check {
	return Check{Name: name, Run: func(context.Context) (string, error) { return "", err }}
}

// RunChecks 依次执行检查并输出 PASS/FAIL 行。
func RunChecks(ctx context.Context, out io.Writer, timeout time.Duration, checks ...Check) error {
	failed := 0
	for _, c := range checks {
		checkCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			checkCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		detail, err := c.Run(checkCtx)
		cancel()

		if err != nil {
			failed++
			logger.Errorw("check failed", "check", c.Name, "kind", errors.KindOf(err).String(), "error", err.Error())
			fmt.Fprintf(out, "[FAIL] %s: %v\n", c.Name, err)
			continue
		}
		fmt.Fprintf(out, "[PASS] %s: %s\n", c.Name, detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}
