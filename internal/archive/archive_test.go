package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZip builds a zip on disk from name->content pairs. A trailing
// slash in the name creates a directory entry.
func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		if len(name) > 0 && name[len(name)-1] == '/' {
			_, err := w.Create(name)
			require.NoError(t, err)
			continue
		}
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "test.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestExtractZip(t *testing.T) {
	archive := writeZip(t, map[string]string{
		"src/main.go":    "package main",
		"docs/":          "",
		"README.md":      "# readme",
		"deep/a/b/c.txt": "nested",
	})

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, ExtractZip(context.Background(), archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "deep", "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(data))

	info, err := os.Stat(filepath.Join(dest, "docs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExtractZipNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0644))

	err := ExtractZip(context.Background(), path, t.TempDir())
	assert.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestExtractZipMissingFile(t *testing.T) {
	err := ExtractZip(context.Background(), filepath.Join(t.TempDir(), "gone.zip"), t.TempDir())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedArchive)
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	archive := writeZip(t, map[string]string{
		"ok.txt":           "fine",
		"../../escape.txt": "evil",
	})

	dest := filepath.Join(t.TempDir(), "out")
	err := ExtractZip(context.Background(), archive, dest)
	require.ErrorIs(t, err, ErrEntryOutsideRoot)

	// Nothing may exist outside the destination root.
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractZipCancelled(t *testing.T) {
	archive := writeZip(t, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ExtractZip(ctx, archive, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeEntryPath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain file", "src/main.go", "src/main.go", false},
		{"backslash separators", `src\win\path.txt`, "src/win/path.txt", false},
		{"current dir prefix", "./a.txt", "a.txt", false},
		{"redundant segments", "a//b/./c.txt", "a/b/c.txt", false},
		{"root entry", ".", "", false},
		{"absolute path", "/etc/passwd", "", true},
		{"parent reference", "../outside.txt", "", true},
		{"nested parent reference", "a/../../outside.txt", "", true},
		{"drive prefix", `C:\windows\evil.txt`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeEntryPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEntryOutsideRoot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
