package bookrag

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bookrag/internal/bookrag/store"
	"github.com/kart-io/bookrag/pkg/errors"
	cacheopts "github.com/kart-io/bookrag/pkg/options/cache"
	llmopts "github.com/kart-io/bookrag/pkg/options/llm"
	logopts "github.com/kart-io/bookrag/pkg/options/logger"
	middlewareopts "github.com/kart-io/bookrag/pkg/options/middleware"
	milvusopts "github.com/kart-io/bookrag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/bookrag/pkg/options/qdrant"
	ragopts "github.com/kart-io/bookrag/pkg/options/rag"
	httpopts "github.com/kart-io/bookrag/pkg/options/server/http"
	tracingopts "github.com/kart-io/bookrag/pkg/options/tracing"
	"github.com/kart-io/bookrag/pkg/utils/json"
)

// fakeOllama 模拟 Ollama 的 embed 与 generate 接口。
type fakeOllama struct {
	failEmbed atomic.Bool
	embeds    atomic.Int32
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/embed":
		f.embeds.Add(1)
		if f.failEmbed.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"model not loaded"}`)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		vectors := make([][]float32, len(req.Input))
		for i := range req.Input {
			vectors[i] = []float32{1, float32(i + 1)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	case "/api/generate":
		_, _ = io.WriteString(w, `{"response":" Hello Boss ","done":true}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newProviderOptions(t *testing.T, f *fakeOllama) *llmopts.ProviderOptions {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	opts := llmopts.NewProviderOptions()
	opts.Provider = "ollama"
	opts.BaseURL = srv.URL
	opts.Model = "test-model"
	opts.Timeout = 5 * time.Second
	require.NoError(t, opts.Complete())
	return opts
}

func newRAGOptions() *ragopts.Options {
	opts := ragopts.NewOptions()
	opts.VectorStore = ragopts.StoreMemory
	opts.Dimension = 2
	opts.ChunkSize = 10
	return opts
}

func newLogOptions() *logopts.Options {
	opts := logopts.NewOptions()
	opts.Level = "ERROR"
	return opts
}

func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newIngestConfig(t *testing.T, f *fakeOllama, docsDir string, out io.Writer) *IngestConfig {
	return &IngestConfig{
		LogOptions:       newLogOptions(),
		EmbeddingOptions: newProviderOptions(t, f),
		RAGOptions:       newRAGOptions(),
		QdrantOptions:    qdrantopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		DocsDir:          docsDir,
		Extensions:       []string{".md", ".txt"},
		Workers:          2,
		Out:              out,
	}
}

func TestIngest(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"intro.md":       "abcdefghijklmno",
		"ch1/robots.txt": "0123456789",
		"ignored.yaml":   "key: value",
	})
	var out bytes.Buffer
	cfg := newIngestConfig(t, &fakeOllama{}, dir, &out)
	cfg.LockFile = filepath.Join(t.TempDir(), "ingest.lock")

	require.NoError(t, cfg.Ingest(context.Background()))
	assert.Contains(t, out.String(), "2 documents, 3 chunks, 3 succeeded, 0 failed")
}

func TestIngestUpstreamFailureIsNotFatal(t *testing.T) {
	dir := writeDocs(t, map[string]string{"intro.md": "abcdefghijklmno"})
	f := &fakeOllama{}
	f.failEmbed.Store(true)
	var out bytes.Buffer

	require.NoError(t, newIngestConfig(t, f, dir, &out).Ingest(context.Background()))
	assert.Contains(t, out.String(), "0 succeeded, 2 failed")
	assert.Contains(t, out.String(), "failed intro.md#0 (embed)")
	assert.EqualValues(t, 2, f.embeds.Load())
}

func TestIngestConfigurationErrors(t *testing.T) {
	t.Run("文档目录不存在", func(t *testing.T) {
		cfg := newIngestConfig(t, &fakeOllama{}, filepath.Join(t.TempDir(), "missing"), io.Discard)
		err := cfg.Ingest(context.Background())
		assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	})

	t.Run("锁被占用", func(t *testing.T) {
		lockPath := filepath.Join(t.TempDir(), "ingest.lock")
		held := flock.New(lockPath)
		locked, err := held.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		t.Cleanup(func() { _ = held.Unlock() })

		cfg := newIngestConfig(t, &fakeOllama{}, writeDocs(t, map[string]string{"a.md": "a"}), io.Discard)
		cfg.LockFile = lockPath
		err = cfg.Ingest(context.Background())
		assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
		assert.Contains(t, err.Error(), "held by another ingestion run")
	})

	t.Run("未知向量存储", func(t *testing.T) {
		cfg := newIngestConfig(t, &fakeOllama{}, writeDocs(t, map[string]string{"a.md": "a"}), io.Discard)
		cfg.RAGOptions.VectorStore = "faiss"
		err := cfg.Ingest(context.Background())
		assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	})
}

func TestRunChecks(t *testing.T) {
	var out bytes.Buffer
	err := RunChecks(context.Background(), &out, time.Second,
		Check{Name: "ok", Run: func(context.Context) (string, error) { return "fine", nil }},
		Check{Name: "broken", Run: func(context.Context) (string, error) {
			return "", errors.ErrUpstream.WithMessage("connection refused")
		}},
		Check{Name: "deadline", Run: func(ctx context.Context) (string, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return "has deadline", nil
		}},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 checks failed")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[PASS] ok: fine", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[FAIL] broken: "))
	assert.Equal(t, "[PASS] deadline: has deadline", lines[2])
}

func TestVerify(t *testing.T) {
	var out bytes.Buffer
	cfg := &VerifyConfig{
		LogOptions:    newLogOptions(),
		ChatOptions:   newProviderOptions(t, &fakeOllama{}),
		RAGOptions:    newRAGOptions(),
		QdrantOptions: qdrantopts.NewOptions(),
		MilvusOptions: milvusopts.NewOptions(),
		Timeout:       5 * time.Second,
		Out:           &out,
	}

	require.NoError(t, cfg.Verify(context.Background()))
	assert.Contains(t, out.String(), "[PASS] generative model: Hello Boss")
	assert.Contains(t, out.String(), "[PASS] vector database: 0 collections []")
}

func TestVerifyConfigurationFailure(t *testing.T) {
	var out bytes.Buffer
	chatOpts := llmopts.NewChatOptions()
	chatOpts.APIKey = ""
	t.Setenv("GEMINI_API_KEY", "")

	cfg := &VerifyConfig{
		LogOptions:    newLogOptions(),
		ChatOptions:   chatOpts,
		RAGOptions:    newRAGOptions(),
		QdrantOptions: qdrantopts.NewOptions(),
		MilvusOptions: milvusopts.NewOptions(),
		Out:           &out,
	}

	assert.Error(t, cfg.Verify(context.Background()))
	assert.Contains(t, out.String(), "[FAIL] generative model")
	assert.Contains(t, out.String(), "[PASS] vector database")
}

func TestVectorDBCheckListsCollections(t *testing.T) {
	index := store.NewMemoryStore()
	require.NoError(t, index.CreateCollection(context.Background(), store.CollectionSpec{Name: "book", Dimension: 2, Metric: "cosine"}))

	detail, err := VectorDBCheck(index).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1 collections [book]", detail)
}

func TestServer(t *testing.T) {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = "127.0.0.1:0"
	f := &fakeOllama{}

	cfg := &Config{
		HTTPOptions:       httpOpts,
		LogOptions:        newLogOptions(),
		MiddlewareOptions: middlewareopts.NewOptions(),
		EmbeddingOptions:  newProviderOptions(t, f),
		ChatOptions:       newProviderOptions(t, f),
		RAGOptions:        newRAGOptions(),
		QdrantOptions:     qdrantopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		TracingOptions:    tracingopts.NewOptions(),
		ShutdownTimeout:   5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := cfg.NewServer(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return s.Addr() != httpOpts.Addr
	}, 5*time.Second, 10*time.Millisecond)
	base := "http://" + s.Addr()

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Brain is Online"}`, string(body))

	// 集合不存在时返回未找到的回答
	resp, err = http.Post(base+"/chat", "application/json", strings.NewReader(`{"question":"What is ROS 2?"}`))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "couldn't find anything")

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `bookrag_queries_total{outcome="not_found"} 1`)
	assert.Contains(t, string(body), "bookrag_http_requests_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
