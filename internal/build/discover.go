package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultPatterns selects the pages of a site
var DefaultPatterns = []string{"**/*.html"}

// DiscoverStats tracks page discovery
type DiscoverStats struct {
	FilesDiscovered int `json:"files_discovered"` // Files matched by the patterns
	FilesIncluded   int `json:"files_included"`   // Files kept after filtering
	FilesSkipped    int `json:"files_skipped"`    // Files excluded by .gitignore
}

// Discover expands glob patterns relative to dir and returns the matching
// files as sorted, slash-separated paths relative to dir. Files matched by
// dir/.gitignore are skipped.
func Discover(dir string, patterns []string) ([]string, DiscoverStats, error) {
	var stats DiscoverStats
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	gi, err := loadGitIgnore(dir)
	if err != nil {
		return nil, stats, err
	}

	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, stats, fmt.Errorf("invalid page pattern %q", pattern)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, stats, fmt.Errorf("glob %q: %w", pattern, err)
		}

		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			stats.FilesDiscovered++

			if gi != nil && gi.MatchesPath(match) {
				stats.FilesSkipped++
				continue
			}
			files = append(files, match)
			stats.FilesIncluded++
		}
	}

	sort.Strings(files)
	return files, stats, nil
}

// loadGitIgnore compiles dir/.gitignore. A missing file is not an error.
func loadGitIgnore(dir string) (*ignore.GitIgnore, error) {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load .gitignore: %w", err)
	}
	return gi, nil
}
