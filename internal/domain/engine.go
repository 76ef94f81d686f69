package domain

import (
	"context"
	"fmt"
	"log/slog"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// EngineOptions carry one run's settings from the command layer down the
// pipeline.
type EngineOptions struct {
	// Roots are the resolved directories or files to scan.
	Roots []m.Path

	// Include and Exclude are glob patterns applied by the scanner.
	Include []string
	Exclude []string

	// ClassPrefix and MethodPrefix select what discovery considers a test.
	ClassPrefix  string
	MethodPrefix string

	// Parallelism bounds concurrent discovery reads. Zero picks a default.
	Parallelism int

	// BatchSize is the number of files per dispatched batch.
	BatchSize int

	// Pool configures workers, supervision, and execution.
	Pool PoolOptions

	// OnPlan, when set, observes the catalog and batch count after discovery,
	// before any batch is dispatched.
	OnPlan func(catalog m.Catalog, batches int)

	// OnResult, when set, observes every file result as it arrives, in
	// addition to aggregation. The TUI uses it for live progress.
	OnResult func(m.FileResult)
}

// Engine wires the run pipeline: scan, discover, batch, execute, aggregate.
type Engine struct {
	fs    adapter.SourceFSAdapter
	files adapter.ScriptFileAdapter
}

// NewEngine constructs an Engine on the given adapters.
func NewEngine(fs adapter.SourceFSAdapter, files adapter.ScriptFileAdapter) *Engine {
	return &Engine{fs: fs, files: files}
}

// Discover scans the roots and builds the catalog without executing anything.
// This is the whole pipeline behind listing commands.
func (e *Engine) Discover(ctx context.Context, options EngineOptions) (m.Catalog, error) {
	files, err := e.fs.Scan(options.Roots, options.Include, options.Exclude)
	if err != nil {
		return nil, fmt.Errorf("scanning sources: %w", err)
	}

	slog.Debug("scan complete", "files", len(files))

	discoverer := NewDiscoverer(e.files, options.ClassPrefix, options.MethodPrefix)
	coordinator := NewCoordinator(e.fs, discoverer, options.Parallelism)

	return coordinator.BuildCatalog(ctx, files)
}

// Run executes the full pipeline and returns the finished summary together
// with the catalog it ran over. A non-nil error means the run itself broke
// (cancellation, pool exhaustion); the summary still carries everything
// aggregated up to that point so callers can render partial results.
func (e *Engine) Run(ctx context.Context, launcher adapter.WorkerLauncher, options EngineOptions) (m.RunSummary, m.Catalog, error) {
	catalog, err := e.Discover(ctx, options)
	if err != nil {
		return m.RunSummary{}, nil, err
	}

	batches := MakeBatches(catalog, options.BatchSize)

	if options.OnPlan != nil {
		options.OnPlan(catalog, len(batches))
	}

	if options.Pool.Workers > len(batches) && len(batches) > 0 {
		slog.Warn("more workers than batches, some will idle",
			"workers", options.Pool.Workers, "batches", len(batches))
	}

	aggregator := NewAggregator(catalog)

	sink := func(result m.FileResult) {
		aggregator.Add(result)

		if options.OnResult != nil {
			options.OnResult(result)
		}
	}

	pool := NewPool(e.fs, launcher, options.Pool)

	if err := pool.Run(ctx, batches, sink); err != nil {
		return aggregator.Finish(), catalog, err
	}

	summary := aggregator.Finish()

	slog.Info("run complete",
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errored", summary.Errored,
		"skipped", summary.Skipped,
		"duration", summary.Duration(),
	)

	return summary, catalog, nil
}
