package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingRunner struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (r *recordingRunner) Run(cfg *Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]string(nil), cfg.Headers...))
	return r.err
}

func (r *recordingRunner) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func startWatcher(t *testing.T, r Runner, cfg *Config) (cancel func(), done <-chan error) {
	t.Helper()
	w, err := NewWatcher(r, cfg, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancelCtx := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	t.Cleanup(cancelCtx)
	return cancelCtx, errc
}

func TestWatcher_RegeneratesChangedHeader(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "a.h")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(header, []byte("int f(void);\n"), 0o644))

	r := &recordingRunner{}
	cfg := &Config{Headers: []string{header}, Output: "wrapper.pyx", Jobs: 1}
	cancel, done := startWatcher(t, r, cfg)

	require.NoError(t, os.WriteFile(other, []byte("ignored\n"), 0o644))
	require.NoError(t, os.WriteFile(header, []byte("int f(int);\n"), 0o644))

	require.Eventually(t, func() bool { return len(r.snapshot()) > 0 }, 5*time.Second, 10*time.Millisecond)
	for _, batch := range r.snapshot() {
		assert.Equal(t, []string{header}, batch)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcher_BatchesPendingHeaders(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.h")
	b := filepath.Join(dir, "b.h")
	require.NoError(t, os.WriteFile(a, nil, 0o644))
	require.NoError(t, os.WriteFile(b, nil, 0o644))

	r := &recordingRunner{}
	cfg := &Config{Headers: []string{b, a}, OutputDir: t.TempDir(), Jobs: 2}
	w, err := NewWatcher(r, cfg, time.Hour)
	require.NoError(t, err)
	defer w.stop()

	w.schedule(b)
	w.schedule(a)
	w.schedule(b)
	w.regenerate(zap.NewNop().Sugar())

	batches := r.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{a, b}, batches[0])

	w.regenerate(zap.NewNop().Sugar())
	assert.Len(t, r.snapshot(), 1, "nothing pending, nothing to run")
}

func TestWatcher_KeepsWatchingAfterFailure(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "a.h")
	require.NoError(t, os.WriteFile(header, nil, 0o644))

	r := &recordingRunner{err: errors.New("clang failed")}
	cfg := &Config{Headers: []string{header}, Output: "wrapper.pyx", Jobs: 1}
	startWatcher(t, r, cfg)

	require.NoError(t, os.WriteFile(header, []byte("int f(void);\n"), 0o644))
	require.Eventually(t, func() bool { return len(r.snapshot()) >= 1 }, 5*time.Second, 10*time.Millisecond)

	n := len(r.snapshot())
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(header, []byte("int f(int);\n"), 0o644))
	require.Eventually(t, func() bool { return len(r.snapshot()) > n }, 5*time.Second, 10*time.Millisecond)
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	cfg := &Config{Headers: []string{filepath.Join(t.TempDir(), "gone", "a.h")}}
	_, err := NewWatcher(&recordingRunner{}, cfg, DefaultDebounce)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch ")
}
