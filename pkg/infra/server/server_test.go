package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunnable struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
	mu       *sync.Mutex
}

func (r *mockRunnable) Name() string { return r.name }

func (r *mockRunnable) Start(context.Context) error {
	r.record("start " + r.name)
	return r.startErr
}

func (r *mockRunnable) Stop(context.Context) error {
	r.record("stop " + r.name)
	return r.stopErr
}

func (r *mockRunnable) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, s)
}

var _ Runnable = (*mockRunnable)(nil)

func newRunnables(names ...string) ([]*mockRunnable, *[]string) {
	log := &[]string{}
	mu := &sync.Mutex{}
	out := make([]*mockRunnable, len(names))
	for i, n := range names {
		out[i] = &mockRunnable{name: n, log: log, mu: mu}
	}
	return out, log
}

func TestManagerStartStopOrder(t *testing.T) {
	rs, log := newRunnables("a", "b")
	m := NewManager(time.Second, rs[0])
	m.AddServer(rs[1])

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, *log)
}

func TestManagerStartFailureStopsStarted(t *testing.T) {
	rs, log := newRunnables("a", "b")
	rs[1].startErr = errors.New("bind failed")
	m := NewManager(time.Second, rs[0], rs[1])

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start server b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, *log)
}

func TestManagerStopAggregatesErrors(t *testing.T) {
	rs, _ := newRunnables("a", "b")
	rs[0].stopErr = errors.New("x")
	rs[1].stopErr = errors.New("y")
	m := NewManager(time.Second, rs[0], rs[1])
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop server a")
	assert.Contains(t, err.Error(), "failed to stop server b")
}

func TestManagerRunStopsOnContextDone(t *testing.T) {
	rs, log := newRunnables("a")
	m := NewManager(time.Second, rs[0])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, func() bool {
		rs[0].mu.Lock()
		defer rs[0].mu.Unlock()
		return len(*log) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, []string{"start a", "stop a"}, *log)
}
