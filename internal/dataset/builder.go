// Package dataset builds labelled feature tables from audio corpora.
package dataset

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
)

// Loader reads the analysis window of a file
type Loader interface {
	Load(path string) (*audio.Waveform, error)
}

// Extractor turns a waveform into a feature vector
type Extractor interface {
	Extract(w *audio.Waveform) (features.Vector, error)
	Dimension() int
}

// Result is the tagged outcome of processing one task. Exactly one of
// Vector and Err is set.
type Result struct {
	Task    Task
	Vector  features.Vector
	Err     error
	Elapsed time.Duration
}

// Builder extracts features for many files in parallel
type Builder struct {
	loader    Loader
	extractor Extractor
	workers   int
	logger    logging.Logger
	metrics   *MetricsCalculator
}

// NewBuilder creates a builder. workers <= 0 uses one worker per CPU.
func NewBuilder(loader Loader, extractor Extractor, workers int, logger logging.Logger) *Builder {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Builder{
		loader:    loader,
		extractor: extractor,
		workers:   workers,
		logger:    logger,
		metrics:   NewMetricsCalculator(logger),
	}
}

// Build processes every task and returns the table of successful rows in
// task order. Per-file failures are logged and skipped; only a cancelled
// context aborts the run.
func (b *Builder) Build(ctx context.Context, tasks []Task) (*Table, *Summary, error) {
	start := time.Now()

	b.logger.Info("Starting feature extraction", logging.Fields{
		"files":   len(tasks),
		"workers": b.workers,
	})

	results := b.run(ctx, tasks)

	// results are gathered and filtered on this goroutine only
	sort.Slice(results, func(i, j int) bool {
		return results[i].Task.Index < results[j].Task.Index
	})

	table := NewTable(b.extractor.Dimension())
	for i := range results {
		r := &results[i]
		if r.Err == nil {
			if err := r.Vector.Validate(); err != nil {
				r.Err = err
			} else if err := table.Append(Row{Path: r.Task.Path, Features: r.Vector, Label: r.Task.Label}); err != nil {
				r.Err = err
			}
		}
		if r.Err != nil {
			b.logger.Warn("Skipping file", logging.Fields{
				"path":   r.Task.Path,
				"reason": b.metrics.CategorizeFailure(r.Err),
				"error":  r.Err.Error(),
			})
		}
	}

	summary := b.metrics.Summarize(results, table, start, time.Now())

	b.logger.Info("Feature extraction completed", logging.Fields{
		"succeeded":  summary.Succeeded,
		"failed":     summary.Failed,
		"duration_s": summary.TotalDuration.Seconds(),
	})

	if err := ctx.Err(); err != nil {
		return table, summary, fmt.Errorf("feature extraction interrupted: %w", err)
	}
	return table, summary, nil
}

// run fans tasks out to the worker pool and collects every result
func (b *Builder) run(ctx context.Context, tasks []Task) []Result {
	jobs := make(chan Task)
	out := make(chan Result, b.workers)

	var wg sync.WaitGroup
	for range b.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				out <- b.process(task)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, task := range tasks {
			select {
			case jobs <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]Result, 0, len(tasks))
	seen := make(map[int]bool, len(tasks))
	for r := range out {
		results = append(results, r)
		seen[r.Task.Index] = true
	}

	// tasks never dispatched because of cancellation
	for _, task := range tasks {
		if !seen[task.Index] {
			results = append(results, Result{Task: task, Err: ctx.Err()})
		}
	}
	return results
}

// process runs one task, converting any fault into a failed result
func (b *Builder) process(task Task) (result Result) {
	start := time.Now()
	result.Task = task

	defer func() {
		if r := recover(); r != nil {
			result.Vector = nil
			result.Err = fmt.Errorf("panic while processing %s: %v", task.Path, r)
		}
		result.Elapsed = time.Since(start)
	}()

	w, err := b.loader.Load(task.Path)
	if err != nil {
		result.Err = err
		return result
	}

	vec, err := b.extractor.Extract(w)
	if err != nil {
		result.Err = fmt.Errorf("extracting %s: %w", task.Path, err)
		return result
	}

	b.logger.Debug("Processed file", logging.Fields{
		"path":  task.Path,
		"label": task.Label,
	})
	result.Vector = vec
	return result
}
