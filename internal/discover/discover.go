package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

var errBadPattern = errors.New("invalid glob pattern")

// Files lists the regular files in dir whose base name matches pattern and
// returns their paths sorted lexically. The result is a real slice: zero
// matches yields an empty slice and a nil error, never the literal pattern
// string. An unreadable or missing directory is an error; the caller treats
// it as fatal before anything is executed or deleted.
func Files(dir, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("pattern %q: %w", pattern, errBadPattern)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		matched, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			// ValidatePattern above makes this unreachable, but Match's
			// error contract is kept intact.
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if matched {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	// ReadDir order is filesystem-dependent; sort so that discovery order,
	// and therefore invocation and report order, is stable.
	sort.Strings(files)
	return files, nil
}

// Tree lists the regular files anywhere under dir whose base name matches
// pattern, like find(1) with -name. Paths come back in the walk's lexical
// order. Same error contract as Files: any traversal failure is fatal.
func Tree(dir, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("pattern %q: %w", pattern, errBadPattern)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		matched, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if matched {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", dir, err)
	}
	return files, nil
}
