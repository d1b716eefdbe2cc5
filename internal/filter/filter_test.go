package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcluded(t *testing.T) {
	rules := NewRules(
		[]string{"node_modules", ".git", "dist"},
		[]string{".png", "exe", ".MIN.JS"},
	)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"plain source file", "src/main.go", false},
		{"folder match at root", "node_modules/lib/index.js", true},
		{"folder match nested", "app/vendor/node_modules/x.js", true},
		{"dot folder", ".git/config", true},
		{"dot folder as segment", ".git/hooks/pre-commit", true},
		{"extension match", "assets/logo.png", true},
		{"extension match uppercase file", "assets/LOGO.PNG", true},
		{"extension without dot in rules", "bin/tool.exe", true},
		// Extension matching sees only the final dot segment, so a
		// multi-dot rule like .min.js never matches.
		{"multi dot rule not matched", "app/bundle.min.js", false},
		{"no extension", "Makefile", false},
		{"similar folder name not matched", "node_modules_backup/x.js", false},
		{"file named like folder rule", "src/dist", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Excluded(tt.path))
		})
	}
}

func TestExcludedDotFolder(t *testing.T) {
	// path.Ext(".git/config") is "" and ".git" is in folders, so both
	// checks matter. Verify the segment check catches the dot folder.
	rules := NewRules([]string{".git"}, nil)
	assert.True(t, rules.Excluded(".git/config"))
	assert.True(t, rules.Excluded("sub/.git/HEAD"))
	assert.False(t, rules.Excluded("src/git/config"))
}

func TestExcludedDir(t *testing.T) {
	rules := NewRules([]string{"node_modules"}, []string{".png"})

	assert.True(t, rules.ExcludedDir("node_modules"))
	assert.False(t, rules.ExcludedDir("src"))
	// Extensions never exclude directories.
	assert.False(t, rules.ExcludedDir("pictures.png"))
}

func TestNewRulesNormalization(t *testing.T) {
	rules := NewRules(
		[]string{"  build ", "", "tmp"},
		[]string{" PNG ", "", ".", ".Jpg"},
	)

	assert.Equal(t, []string{"build", "tmp"}, rules.Folders())
	assert.Equal(t, []string{".jpg", ".png"}, rules.Extensions())

	assert.True(t, rules.Excluded("build/out.txt"))
	assert.True(t, rules.Excluded("photo.jpg"))
	assert.True(t, rules.Excluded("photo.PNG"))
}

func TestEmptyRules(t *testing.T) {
	rules := NewRules(nil, nil)

	assert.False(t, rules.Excluded("anything/at/all.js"))
	assert.False(t, rules.ExcludedDir("node_modules"))
	assert.Empty(t, rules.Folders())
	assert.Empty(t, rules.Extensions())
}
