// Package archive extracts uploaded ZIP archives into per-job scratch
// directories.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedArchive reports input that is not a readable ZIP.
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	// ErrEntryOutsideRoot reports an entry whose path would escape the
	// extraction root.
	ErrEntryOutsideRoot = errors.New("archive entry escapes extraction root")
)

// ExtractZip extracts the ZIP at archivePath into destDir, creating the
// directory if needed. Entry paths are normalized and rejected if they
// would land outside destDir. Non-regular entries (symlinks, devices)
// are skipped.
func ExtractZip(ctx context.Context, archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return fmt.Errorf("%w: %s", ErrUnsupportedArchive, filepath.Base(archivePath))
		}
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating extraction root: %w", err)
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := extractEntry(f, destDir); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

// extractEntry writes one archive entry beneath destDir.
func extractEntry(f *zip.File, destDir string) error {
	rel, err := normalizeEntryPath(f.Name)
	if err != nil {
		return err
	}
	if rel == "" {
		return nil
	}

	target := filepath.Join(destDir, filepath.FromSlash(rel))

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if !f.FileInfo().Mode().IsRegular() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	// A failed Close can mean lost writes; surface it.
	return out.Close()
}

// normalizeEntryPath converts an archive entry name to a safe relative
// slash path. Absolute paths, parent references, and drive prefixes are
// rejected; some archivers emit backslash separators, which are accepted
// and converted.
func normalizeEntryPath(name string) (string, error) {
	p := strings.ReplaceAll(name, `\`, "/")

	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: absolute path %q", ErrEntryOutsideRoot, name)
	}
	if len(p) >= 2 && p[1] == ':' {
		return "", fmt.Errorf("%w: drive prefix %q", ErrEntryOutsideRoot, name)
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: parent reference %q", ErrEntryOutsideRoot, name)
		}
	}

	cleaned := filepath.ToSlash(filepath.Clean(p))
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}
