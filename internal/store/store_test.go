package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "reports"), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewCreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "reports")

	s, err := New(root, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, root, s.Root())

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("", zap.NewNop())
	require.Error(t, err)
}

func TestWritePublishesAtomically(t *testing.T) {
	s := newTestStore(t)

	err := s.Write("report.pdf", func(path string) error {
		assert.Equal(t, s.Root(), filepath.Dir(path), "render path stays in the output directory")
		return os.WriteFile(path, []byte("%PDF-1.7 content"), 0o644)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Root(), "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 content", string(data))

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp file may remain")
}

func TestWriteFailedRenderLeavesNothing(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("render failed")

	err := s.Write("broken.pdf", func(path string) error {
		require.NoError(t, os.WriteFile(path, []byte("partial"), 0o644))
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteRejectsBadNames(t *testing.T) {
	s := newTestStore(t)
	noop := func(string) error { return nil }

	for _, name := range []string{
		"",
		".",
		"..",
		"../escape.pdf",
		"sub/dir.pdf",
		`win\path.pdf`,
		".hidden.pdf",
		"report.pdf.tmp",
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Write(name, noop), ErrBadName)
		})
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write("a.pdf", func(p string) error {
		return os.WriteFile(p, []byte("aaaa"), 0o644)
	}))
	require.NoError(t, s.Write("b.pdf", func(p string) error {
		return os.WriteFile(p, []byte("bbbbbb"), 0o644)
	}))
	// An in-flight temp file is not part of the inventory.
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "c.pdf.tmp"), []byte("cc"), 0o644))

	count, bytes, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(10), bytes)
}

func TestWatchStopsOnCancel(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Give the watcher a moment to register, then exercise an event.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Write("seen.pdf", func(p string) error {
		return os.WriteFile(p, []byte("x"), 0o644)
	}))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}
