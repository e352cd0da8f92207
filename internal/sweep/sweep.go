package sweep

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"suitedriver/internal/discover"
	"suitedriver/internal/fsops"
	"suitedriver/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Entry records one artifact removed by a sweep.
type Entry struct {
	Path string
	Size int64
}

// Failure records one artifact that could not be removed. Deletion is not
// transactional: earlier removals stand.
type Failure struct {
	Path string
	Err  error
}

// Result summarizes a sweep over one directory.
type Result struct {
	Removed    []Entry
	Failures   []Failure
	BytesFreed int64
}

func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

// Metrics interface for sweep metrics
type Metrics interface {
	FilesSweptTotal() prometheus.Counter
	BytesFreedTotal() prometheus.Counter
	ErrorsTotal() prometheus.Counter
}

// sweepMetrics wraps global metrics to implement Metrics interface
type sweepMetrics struct{}

func (sweepMetrics) FilesSweptTotal() prometheus.Counter { return metrics.FilesSweptTotal }
func (sweepMetrics) BytesFreedTotal() prometheus.Counter { return metrics.BytesFreedTotal }
func (sweepMetrics) ErrorsTotal() prometheus.Counter     { return metrics.ErrorsTotal }

// Sweeper deletes generated test artifacts and the build-output directory.
type Sweeper struct {
	logger  *log.Logger
	deleter fsops.Deleter
	metrics Metrics
	dryRun  bool
}

func NewSweeper(logger *log.Logger, dryRun bool) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		logger:  logger,
		deleter: fsops.OSDeleter{},
		metrics: sweepMetrics{},
		dryRun:  dryRun,
	}
}

// SetDeleter swaps the filesystem backend, used by tests to prove dry-run
// and no-op behavior without touching the disk.
func (s *Sweeper) SetDeleter(d fsops.Deleter) {
	s.deleter = d
}

// Sweep deletes every regular file under dir, at any depth, whose name
// matches pattern, like piping find(1) into rm -- except that zero matches
// is an explicit no-op success instead of the empty-argument failure.
// A per-file deletion error is recorded in the result and does not stop the
// remaining deletions; only a discovery failure (dir missing or unreadable)
// aborts the sweep.
func (s *Sweeper) Sweep(dir, pattern string) (Result, error) {
	var res Result

	files, err := discover.Tree(dir, pattern)
	if err != nil {
		s.metrics.ErrorsTotal().Inc()
		return res, err
	}
	if len(files) == 0 {
		s.logger.Printf("sweep: nothing matching %q under %s", pattern, dir)
		return res, nil
	}

	cleanedDir := filepath.Clean(dir)
	for _, path := range files {
		// Deletes never leave the swept directory.
		if !hasPathPrefix(path, cleanedDir) {
			res.Failures = append(res.Failures, Failure{Path: path, Err: fmt.Errorf("outside %s", cleanedDir)})
			s.metrics.ErrorsTotal().Inc()
			continue
		}

		var size int64
		if info, err := os.Lstat(path); err == nil {
			size = info.Size()
		}

		if s.dryRun {
			// Counted as would-be-freed bytes so the summary matches the
			// per-file sizes; metrics stay untouched since nothing happened.
			s.logger.Printf("[DRY RUN] would delete %s (%d bytes)", path, size)
			res.Removed = append(res.Removed, Entry{Path: path, Size: size})
			res.BytesFreed += size
			continue
		}

		if err := s.deleter.Remove(path); err != nil {
			if os.IsNotExist(err) {
				// Already gone; a concurrent run or the test itself removed it.
				s.logger.Printf("sweep: %s already deleted", path)
				continue
			}
			s.logger.Printf("ERROR: failed to delete %s: %v", path, err)
			res.Failures = append(res.Failures, Failure{Path: path, Err: err})
			s.metrics.ErrorsTotal().Inc()
			continue
		}

		s.logger.Printf("sweep: deleted %s (%d bytes)", path, size)
		res.Removed = append(res.Removed, Entry{Path: path, Size: size})
		res.BytesFreed += size
		s.metrics.FilesSweptTotal().Inc()
		s.metrics.BytesFreedTotal().Add(float64(size))
	}

	return res, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// RemoveOutputDir recursively deletes the build-output directory.
// A missing directory is a success, making repeated cleans idempotent.
func (s *Sweeper) RemoveOutputDir(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.metrics.ErrorsTotal().Inc()
		return fmt.Errorf("stat output dir %s: %w", path, err)
	}

	if s.dryRun {
		s.logger.Printf("[DRY RUN] would remove output directory %s", path)
		return nil
	}

	if err := s.deleter.RemoveAll(path); err != nil {
		s.metrics.ErrorsTotal().Inc()
		return fmt.Errorf("removing output dir %s: %w", path, err)
	}
	s.logger.Printf("sweep: removed output directory %s", path)
	return nil
}
