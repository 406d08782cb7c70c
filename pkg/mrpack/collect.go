// SPDX-License-Identifier: MPL-2.0

package mrpack

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FilterFunc decides whether a file is excluded from the export. It
// receives the slash-separated path relative to the game root and
// returns true to exclude it.
type FilterFunc func(relPath string) bool

// defaultExcludes are always filtered out of an export regardless of
// user-supplied patterns. They cover launcher bookkeeping and state
// that never belongs in a distributable pack.
var defaultExcludes = []string{
	".cache/**",
	"**/.index/**",
	"logs/**",
	"crash-reports/**",
	"saves/**",
	"screenshots/**",
	"usercache.json",
	"usernamecache.json",
	"options.txt.bak",
}

// FilterGlobs builds a FilterFunc from doublestar glob patterns. The
// built-in default excludes are merged with the given patterns. Invalid
// patterns fail at construction time rather than silently never
// matching.
func FilterGlobs(patterns []string) (FilterFunc, error) {
	merged := make([]string, 0, len(defaultExcludes)+len(patterns))
	merged = append(merged, defaultExcludes...)
	merged = append(merged, patterns...)

	for _, p := range merged {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	return func(relPath string) bool {
		for _, p := range merged {
			if ok, _ := doublestar.Match(p, relPath); ok {
				return true
			}
		}
		return false
	}, nil
}

// Collect walks root recursively and returns the absolute paths of all
// regular files for which filter returns false. The result is in the
// deterministic lexical order of filepath.WalkDir, which keeps repeated
// exports of the same tree byte-comparable. Any traversal error is
// fatal: a partial file list must never silently shrink an export.
func Collect(root string, filter FilterFunc) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve export root: %w", err)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return fmt.Errorf("relativize %s: %w", path, relErr)
		}
		rel = filepath.ToSlash(rel)

		if filter != nil && filter(rel) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search files under %s: %w", root, err)
	}
	return files, nil
}

// RelPath returns the slash-separated path of abs relative to root.
func RelPath(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", abs, err)
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the export root", abs)
	}
	return rel, nil
}
