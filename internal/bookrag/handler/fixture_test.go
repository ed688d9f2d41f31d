package handler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/bookrag/internal/bookrag/biz"
	"github.com/kart-io/bookrag/internal/bookrag/store"
	"github.com/kart-io/bookrag/pkg/llm"
)

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = constEmbedder{}.EmbedSingle(ctx, texts[i])
	}
	return out, nil
}

func (constEmbedder) EmbedSingle(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (constEmbedder) Name() string { return "const" }

type echoChat struct{}

func (echoChat) Chat(context.Context, []llm.Message) (string, error)          { return "", nil }
func (echoChat) Generate(_ context.Context, prompt, _ string) (string, error) { return prompt, nil }
func (echoChat) Name() string                                                 { return "echo" }

func newFixtureService(t *testing.T) *biz.RAGService {
	t.Helper()
	index := store.NewMemoryStore()
	require.NoError(t, index.CreateCollection(context.Background(), store.CollectionSpec{Name: "book", Dimension: 2, Metric: "cosine"}))
	return biz.NewRAGService(index, constEmbedder{}, echoChat{}, &biz.ServiceConfig{Collection: "book", TopK: 3, MaxContextChars: 100}, nil)
}
