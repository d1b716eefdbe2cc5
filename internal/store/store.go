// Package store owns the report output directory: atomic publication
// of finished reports and a live inventory of what is on disk.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrBadName rejects report names that could escape the output
// directory or collide with in-flight temp files.
var ErrBadName = errors.New("invalid report name")

// tmpSuffix marks reports still being written. Readers and the
// inventory skip them.
const tmpSuffix = ".tmp"

// Store publishes reports into a single flat directory.
type Store struct {
	root   string
	logger *zap.Logger
}

// New creates the output directory if needed and returns a store
// rooted there.
func New(root string, logger *zap.Logger) (*Store, error) {
	if root == "" {
		return nil, errors.New("output directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the directory reports are served from.
func (s *Store) Root() string {
	return s.root
}

// Write publishes a report atomically: render writes the document to
// a temp path in the output directory, and only a successful render
// is renamed into place. A crashed or failed render never leaves a
// partial report visible.
func (s *Store) Write(name string, render func(path string) error) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}

	tmp := filepath.Join(s.root, name+tmpSuffix)
	if err := render(tmp); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, filepath.Join(s.root, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing report: %w", err)
	}
	return nil
}

// Stats returns the number of published reports and their total size
// in bytes. Temp files do not count.
func (s *Store) Stats() (int, int64, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, 0, fmt.Errorf("reading output directory: %w", err)
	}

	var count int
	var bytes int64
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		count++
		bytes += info.Size()
	}
	return count, bytes, nil
}

// Watch keeps the report gauges in step with the directory contents
// until the context is cancelled. Publication, janitor deletion, and
// out-of-band changes all land in the same inventory.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating report watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.root); err != nil {
		return fmt.Errorf("watching %s: %w", s.root, err)
	}

	s.refreshGauges()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.refreshGauges()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("report watcher error", zap.Error(err))
		}
	}
}

func (s *Store) refreshGauges() {
	count, bytes, err := s.Stats()
	if err != nil {
		s.logger.Warn("report inventory failed", zap.Error(err))
		return
	}
	ReportsTotal.Set(float64(count))
	ReportsBytes.Set(float64(bytes))
}

// validName accepts a bare file name: no separators, no parent
// references, not hidden, and not claiming the temp suffix.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, tmpSuffix) {
		return false
	}
	return true
}
