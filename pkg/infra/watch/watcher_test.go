package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) handle(_ context.Context, paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func startWatcher(t *testing.T, root string, filter Filter) *recorder {
	t.Helper()
	w, err := New(root, 50*time.Millisecond, filter)
	require.NoError(t, err)

	rec := &recorder{}
	w.Subscribe("test", rec.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return rec
}

func TestWatcherDeliversChangedFiles(t *testing.T) {
	root := t.TempDir()
	rec := startWatcher(t, root, func(p string) bool { return strings.HasSuffix(p, ".md") })

	require.NoError(t, os.WriteFile(filepath.Join(root, "intro.md"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.tmp"), []byte("skip"), 0o644))

	require.Eventually(t, func() bool {
		return len(rec.all()) > 0
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{filepath.Join(root, "intro.md")}, rec.all())
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := startWatcher(t, root, nil)

	sub := filepath.Join(root, "chapter1")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// 等待新目录被加入监听
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.md"), []byte("a"), 0o644))

	require.Eventually(t, func() bool {
		for _, p := range rec.all() {
			if p == filepath.Join(sub, "a.md") {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherSubscribe(t *testing.T) {
	w, err := New(t.TempDir(), 0, nil)
	require.NoError(t, err)
	defer w.fsw.Close()

	w.Subscribe("a", func(context.Context, []string) {})
	w.Subscribe("a", func(context.Context, []string) {})
	w.Subscribe("b", func(context.Context, []string) {})
	assert.Equal(t, 2, w.HandlerCount())

	w.Unsubscribe("a")
	w.Unsubscribe("missing")
	assert.Equal(t, 1, w.HandlerCount())
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), 0, nil)
	assert.Error(t, err)
}
