// Package files expands source globs and writes build outputs.
package files

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match is a file selected by a glob.
type Match struct {
	// Path is the root-relative path in slash form.
	Path string
	// Rel is Path relative to the glob's static base, used to mirror
	// directory structure into a destination.
	Rel string
}

// Normalize strips a leading "./" so patterns match doublestar's slash paths.
func Normalize(pattern string) string {
	for strings.HasPrefix(pattern, "./") {
		pattern = strings.TrimPrefix(pattern, "./")
	}
	return pattern
}

// Base returns the static directory prefix of pattern ("." when none).
func Base(pattern string) string {
	base, _ := doublestar.SplitPattern(Normalize(pattern))
	return base
}

// Glob returns the files under root matching pattern, sorted by path.
func Glob(root, pattern string) ([]Match, error) {
	return GlobAll(root, []string{pattern}, nil)
}

// GlobAll returns the files under root matching any include and none of the
// excludes, de-duplicated and sorted by path. Rel is computed against the
// base of the first include that matched.
func GlobAll(root string, includes, excludes []string) ([]Match, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var matches []Match

	for _, include := range includes {
		pattern := Normalize(include)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob %q", include)
		}
		base := Base(pattern)

		found, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", include, err)
		}

		for _, p := range found {
			if seen[p] || excluded(p, excludes) {
				continue
			}
			seen[p] = true
			matches = append(matches, Match{Path: p, Rel: relTo(base, p)})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	return matches, nil
}

// MatchPath reports whether the root-relative slash path p matches pattern.
func MatchPath(pattern, p string) bool {
	ok, err := doublestar.Match(Normalize(pattern), Normalize(p))
	return err == nil && ok
}

func excluded(p string, excludes []string) bool {
	for _, ex := range excludes {
		if MatchPath(ex, p) {
			return true
		}
	}
	return false
}

func relTo(base, p string) string {
	if base == "." || base == "" {
		return p
	}
	if rel, ok := strings.CutPrefix(p, base+"/"); ok {
		return rel
	}
	return path.Base(p)
}
