// Package filter decides which archive entries are excluded from a report.
package filter

import (
	"path"
	"sort"
	"strings"
)

// Rules holds the exclusion sets for one conversion job. A path is
// excluded when any of its segments matches an excluded folder name, or
// when its extension matches an excluded extension. Matching is exact;
// there is no glob support.
type Rules struct {
	folders    map[string]struct{}
	extensions map[string]struct{}
}

// NewRules builds a rule set from raw folder names and extensions.
// Extensions match case-insensitively and may be given with or without
// the leading dot. Empty entries are dropped.
func NewRules(folders, extensions []string) *Rules {
	r := &Rules{
		folders:    make(map[string]struct{}, len(folders)),
		extensions: make(map[string]struct{}, len(extensions)),
	}
	for _, f := range folders {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		r.folders[f] = struct{}{}
	}
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || e == "." {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.extensions[e] = struct{}{}
	}
	return r
}

// Excluded reports whether the forward-slash relative path is excluded.
func (r *Rules) Excluded(relPath string) bool {
	for _, seg := range strings.Split(relPath, "/") {
		if _, ok := r.folders[seg]; ok {
			return true
		}
	}
	ext := strings.ToLower(path.Ext(relPath))
	if ext == "" {
		return false
	}
	_, ok := r.extensions[ext]
	return ok
}

// ExcludedDir reports whether a single directory name is excluded. The
// scanner uses it to prune whole subtrees without visiting their files.
func (r *Rules) ExcludedDir(name string) bool {
	_, ok := r.folders[name]
	return ok
}

// Folders returns the excluded folder names, sorted for logging.
func (r *Rules) Folders() []string {
	return sortedKeys(r.folders)
}

// Extensions returns the excluded extensions, sorted for logging.
func (r *Rules) Extensions() []string {
	return sortedKeys(r.extensions)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
