package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDeduplicates(t *testing.T) {
	w, err := New(0)
	require.NoError(t, err)
	defer w.Close()

	dir := t.TempDir()
	require.NoError(t, w.Add(dir))
	require.NoError(t, w.Add(dir+string(filepath.Separator)))
	assert.Equal(t, []string{filepath.Clean(dir)}, w.Dirs())
}

func TestAddMissingDirectory(t *testing.T) {
	w, err := New(0)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Add(filepath.Join(t.TempDir(), "missing")))
}

func TestRunReportsDebouncedChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { changes <- paths })
	}()

	target := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(target, []byte("one"), 0644))
	require.NoError(t, os.WriteFile(target, []byte("two"), 0644))

	select {
	case paths := <-changes:
		assert.Contains(t, paths, target)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestRunDropsSkippedPaths(t *testing.T) {
	dir := t.TempDir()
	w, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(dir))

	own := filepath.Join(dir, "scripts.yaml")
	w.Skip = func(path string) bool { return path == own }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { changes <- paths })
	}()

	require.NoError(t, os.WriteFile(own, []byte("documents: []"), 0644))

	select {
	case paths := <-changes:
		t.Fatalf("skipped write reported as change: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	target := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(target, []byte("one"), 0644))
	require.NoError(t, os.WriteFile(own, []byte("documents: [a]"), 0644))

	select {
	case paths := <-changes:
		assert.Equal(t, []string{target}, paths)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	assert.NoError(t, <-done)
}
