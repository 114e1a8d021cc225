// Package batch migrates whole directories of source documents through a
// bounded worker pool. One document failing never aborts the batch; its
// error becomes an entry in the batch result.
package batch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/internal/logging"
	"github.com/flowport/flowport/pkg/schema"
)

// Item is the outcome of one document within a batch run.
type Item struct {
	Path     string                  `json:"path"`
	Report   *schema.MigrationReport `json:"report,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Duration time.Duration           `json:"duration_ns"`
}

// Result is the outcome of a whole batch run.
type Result struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Items     []Item    `json:"items"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// Runner fans documents out over a worker pool.
type Runner struct {
	pipeline *engine.Pipeline
	workers  int
	logger   *slog.Logger
}

// NewRunner creates a batch runner with the given concurrency.
func NewRunner(pipeline *engine.Pipeline, workers int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{pipeline: pipeline, workers: workers, logger: logger}
}

// RunDir migrates every matching file under dir. Items are ordered by path
// so batch output is reproducible regardless of worker scheduling.
func (r *Runner) RunDir(ctx context.Context, dir string, extensions []string) (*Result, error) {
	paths, err := collectFiles(dir, extensions)
	if err != nil {
		return nil, err
	}
	return r.RunFiles(ctx, paths)
}

// RunFiles migrates the given files concurrently.
func (r *Runner) RunFiles(ctx context.Context, paths []string) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	ctx = logging.WithRunID(ctx, result.RunID)
	log := logging.LogWith(ctx, r.logger)

	pool := newWorkerPool(r.workers)
	result.Items = pool.run(ctx, paths, r.runOne)

	for _, item := range result.Items {
		if item.Error == "" {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	log.InfoContext(ctx, "batch complete",
		slog.Int("documents", len(paths)),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed))
	return result, nil
}

func (r *Runner) runOne(ctx context.Context, path string) Item {
	started := time.Now()
	item := Item{Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		item.Error = err.Error()
		item.Duration = time.Since(started)
		return item
	}

	res, err := r.pipeline.Migrate(ctx, raw)
	if err != nil {
		item.Error = err.Error()
	} else {
		item.Report = res.Report
	}
	item.Duration = time.Since(started)
	return item
}

// collectFiles lists files under dir with one of the given extensions,
// sorted by path. Extensions match case-insensitively and include the dot.
func collectFiles(dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = []string{".bpmn", ".xml"}
	}
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = true
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if wanted[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound,
			"scan %s: %s", dir, err.Error()).WithCause(err)
	}
	sort.Strings(paths)
	return paths, nil
}
