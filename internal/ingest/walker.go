package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/expscan/expscan/constants"
	"github.com/expscan/expscan/internal/async"
)

// DirStats aggregates one directory walk.
type DirStats struct {
	Scanned  uint32
	Matched  uint32
	Enqueued uint32
	Skipped  uint32
	Failed   uint32
}

// Walker feeds documents found under a root directory into the
// processing queue.
type Walker struct {
	queue  async.Queue
	logger *slog.Logger
}

func NewWalker(queue async.Queue, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{queue: queue, logger: logger}
}

// WalkDirectory walks root, filters by includeExts (defaults to the
// supported document set), skips hidden entries, and enqueues a job per
// matching file. Per-file failures are counted, not fatal.
func (w *Walker) WalkDirectory(ctx context.Context, root string, includeExts []string) (DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return DirStats{}, errors.New("root path is required")
	}

	exts := map[string]struct{}{}
	if len(includeExts) == 0 {
		for e := range constants.AllowedExtensions {
			exts[e] = struct{}{}
		}
	} else {
		for _, e := range includeExts {
			if e = constants.NormalizeExt(e); e != "" {
				exts[e] = struct{}{}
			}
		}
	}

	var stats DirStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			w.logger.Warn("ingest.walk.error", "path", path, "error", walkErr)
			stats.Failed++
			return nil // keep walking
		}
		if isHidden(path) {
			stats.Skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := exts[ext]; !ok {
			stats.Skipped++
			return nil
		}
		stats.Matched++

		job := async.Job{
			Path:        path,
			SubmittedAt: time.Now().UTC(),
			TraceID:     uuid.NewString(),
		}
		if err := w.queue.Enqueue(ctx, job); err != nil {
			w.logger.Error("ingest.enqueue.failed", "path", path, "error", err)
			stats.Failed++
			return nil
		}
		stats.Enqueued++
		return nil
	})
	if err != nil {
		return stats, err
	}

	w.logger.Info("ingest.walk.done",
		"root", root, "scanned", stats.Scanned, "matched", stats.Matched,
		"enqueued", stats.Enqueued, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
