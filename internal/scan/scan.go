// Package scan walks an extracted archive tree and lists the files to render.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/inkweldlabs/repoprint/internal/filter"
)

// FileEntry identifies one file selected for rendering.
type FileEntry struct {
	// Path is the absolute location on disk.
	Path string
	// RelPath is the forward-slash path relative to the scan root.
	RelPath string
	// Ext is the lower-cased extension including the leading dot.
	Ext string
}

// Scan walks root depth-first and returns the files that survive the
// exclusion rules. Entry order is the walker's lexical directory order,
// which is stable for a given tree and therefore keeps page assignment
// deterministic across runs. Directories whose name matches an excluded
// folder are pruned without descending.
func Scan(ctx context.Context, root string, rules *filter.Rules) ([]FileEntry, error) {
	var entries []FileEntry

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if p != root && rules.ExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rules.Excluded(rel) {
			return nil
		}

		entries = append(entries, FileEntry{
			Path:    p,
			RelPath: rel,
			Ext:     strings.ToLower(filepath.Ext(p)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return entries, nil
}
