package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// workerState labels each supervision transition in the logs so respawn and
// shutdown decisions can be audited after a run.
type workerState string

const (
	workerStarting     workerState = "starting"
	workerIdle         workerState = "idle"
	workerBusy         workerState = "busy"
	workerCrashed      workerState = "crashed"
	workerShuttingDown workerState = "shutting_down"
)

// DefaultMaxRespawns is the replacement-worker budget shared by the whole run.
const DefaultMaxRespawns = 3

// PoolOptions configure dispatch and supervision.
type PoolOptions struct {
	// Workers is the number of worker processes. At most 1 means batches run
	// sequentially in-process and no subprocess is ever spawned.
	Workers int

	// MaxRespawns caps how many replacement workers the run may start after
	// crashes or failed launches. Zero disables replacement.
	MaxRespawns int

	// BatchTimeout treats a worker as crashed when a single batch exceeds it.
	// Subprocess mode only; in-process runs rely on the method timeout.
	BatchTimeout time.Duration

	// Executor configures in-process execution and, in subprocess mode, the
	// method planning needed to substitute records for a crashed batch.
	Executor ExecutorOptions
}

// Pool executes the run's batches on a bounded set of persistent workers.
// Workers are started once and reused across batches; the cost this design
// exists to eliminate is per-batch process startup. Idle workers pull from a
// shared queue, so uneven per-file runtimes never leave a static partition
// imbalanced.
type Pool struct {
	fs       adapter.SourceFSAdapter
	launcher adapter.WorkerLauncher
	options  PoolOptions
}

// NewPool constructs a Pool. The launcher may be nil when Workers <= 1.
func NewPool(fs adapter.SourceFSAdapter, launcher adapter.WorkerLauncher, options PoolOptions) *Pool {
	if options.Workers < 1 {
		options.Workers = 1
	}

	return &Pool{fs: fs, launcher: launcher, options: options}
}

// Run executes every batch and streams each completed file's result to sink.
// Sink calls are serialized across workers. Run returns an error only for
// pool-level failures, cancellation or exhaustion of the respawn budget with
// batches still unprocessed; test failures are data in the streamed results.
func (p *Pool) Run(ctx context.Context, batches []m.Batch, sink func(m.FileResult)) error {
	if len(batches) == 0 {
		return nil
	}

	if p.options.Workers <= 1 {
		return p.runInProcess(ctx, batches, sink)
	}

	return p.runWorkers(ctx, batches, sink)
}

// runInProcess is the single-worker mode: sequential batches on an executor
// in this process, no subprocess and no protocol.
func (p *Pool) runInProcess(ctx context.Context, batches []m.Batch, sink func(m.FileResult)) error {
	executor := NewExecutor(p.options.Executor)

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := batch
		HydrateBatch(p.fs, &batch)
		executor.ExecuteBatch(ctx, batch, sink)
	}

	return nil
}

func (p *Pool) runWorkers(ctx context.Context, batches []m.Batch, sink func(m.FileResult)) error {
	queue := make(chan m.Batch)
	abandoned := make(chan struct{})

	var feeding sync.WaitGroup

	feeding.Add(1)

	go func() {
		defer feeding.Done()
		defer close(queue)

		for _, batch := range batches {
			select {
			case queue <- batch:
			case <-ctx.Done():
				return
			case <-abandoned:
				return
			}
		}
	}()

	var (
		workers   sync.WaitGroup
		respawns  atomic.Int64
		processed atomic.Int64
		sinkMu    sync.Mutex
	)

	respawns.Store(int64(p.options.MaxRespawns))

	serialSink := func(result m.FileResult) {
		sinkMu.Lock()
		defer sinkMu.Unlock()

		sink(result)
	}

	for slot := 0; slot < p.options.Workers; slot++ {
		workers.Add(1)

		go func(slot int) {
			defer workers.Done()

			p.superviseWorker(ctx, slot, queue, serialSink, &respawns, &processed)
		}(slot)
	}

	workers.Wait()
	close(abandoned)
	feeding.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	if done := processed.Load(); done != int64(len(batches)) {
		return fmt.Errorf("worker pool exhausted with %d of %d batches unprocessed", int64(len(batches))-done, len(batches))
	}

	return nil
}

// superviseWorker owns one worker slot for the whole run: it keeps a live
// process in the slot, feeds it batches from the shared queue, and replaces
// it after crashes while the respawn budget lasts. When the budget runs out
// the slot goes dark; remaining batches are left for the other slots, and the
// pool reports exhaustion if none survive.
func (p *Pool) superviseWorker(ctx context.Context, slot int, queue <-chan m.Batch, sink func(m.FileResult), respawns, processed *atomic.Int64) {
	log := slog.With("worker", slot)

	proc := p.acquireWorker(ctx, log, respawns, true)
	if proc == nil {
		return
	}

	for batch := range queue {
		batch := batch
		HydrateBatch(p.fs, &batch)

		log.Debug("worker state changed", "state", workerBusy, "batch", batch.Index)

		err := p.dispatch(ctx, proc, batch, sink)
		processed.Add(1)

		if err == nil {
			log.Debug("worker state changed", "state", workerIdle)
			continue
		}

		log.Warn("worker state changed", "state", workerCrashed, "batch", batch.Index, "reason", err)

		_ = proc.Kill()
		_ = proc.Shutdown()

		if ctx.Err() != nil {
			return
		}

		proc = p.acquireWorker(ctx, log, respawns, false)
		if proc == nil {
			return
		}
	}

	log.Debug("worker state changed", "state", workerShuttingDown)

	_ = proc.Send(m.WorkerRequest{Kind: m.FrameShutdown})

	if err := proc.Shutdown(); err != nil {
		log.Warn("worker exited uncleanly", "error", err)
	}
}

// acquireWorker starts a worker and waits for its ready frame. The first
// attempt of a slot is free; every further attempt spends one unit of the
// shared respawn budget. Nil means the slot could not be (re)filled.
func (p *Pool) acquireWorker(ctx context.Context, log *slog.Logger, respawns *atomic.Int64, firstAttemptFree bool) adapter.WorkerProcess {
	free := firstAttemptFree

	for {
		if ctx.Err() != nil {
			return nil
		}

		if !free && respawns.Add(-1) < 0 {
			log.Error("worker respawn budget exhausted")
			return nil
		}

		free = false

		log.Debug("worker state changed", "state", workerStarting)

		proc, err := p.spawn(ctx)
		if err == nil {
			log.Debug("worker state changed", "state", workerIdle)
			return proc
		}

		log.Error("worker failed to start", "error", err)
	}
}

func (p *Pool) spawn(ctx context.Context) (adapter.WorkerProcess, error) {
	proc, err := p.launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}

	response, err := proc.Recv()
	if err != nil {
		_ = proc.Kill()
		_ = proc.Shutdown()

		return nil, fmt.Errorf("waiting for ready frame: %w", err)
	}

	if response.Kind != m.FrameReady {
		_ = proc.Kill()
		_ = proc.Shutdown()

		return nil, fmt.Errorf("unexpected first frame %q", response.Kind)
	}

	return proc, nil
}

// dispatch runs one batch on a live worker and forwards its streamed file
// results. A non-nil return means the worker is considered crashed; by then
// every not-yet-completed file of the batch has been substituted with error
// records carrying the crash reason, so the batch still counts as processed.
func (p *Pool) dispatch(ctx context.Context, proc adapter.WorkerProcess, batch m.Batch, sink func(m.FileResult)) error {
	completed := make(map[m.Path]bool)

	var timedOut atomic.Bool

	if p.options.BatchTimeout > 0 {
		killTimer := time.AfterFunc(p.options.BatchTimeout, func() {
			timedOut.Store(true)
			_ = proc.Kill()
		})
		defer killTimer.Stop()
	}

	fail := func(cause error) error {
		detail := fmt.Sprintf("worker crashed: %v", cause)

		switch {
		case timedOut.Load():
			detail = fmt.Sprintf("batch timed out after %s", p.options.BatchTimeout)
		case ctx.Err() != nil:
			detail = "run cancelled"
		}

		p.substituteBatch(batch, completed, detail, sink)

		return errors.New(detail)
	}

	if err := proc.Send(m.WorkerRequest{Kind: m.FrameBatch, Batch: &batch}); err != nil {
		return fail(err)
	}

	for {
		response, err := proc.Recv()
		if err != nil {
			return fail(err)
		}

		switch response.Kind {
		case m.FrameFile:
			if response.Result == nil {
				continue
			}

			completed[response.Result.File] = true
			sink(*response.Result)
		case m.FrameDone:
			return nil
		case m.FrameReady:
			// Harmless duplicate after a respawn race.
		default:
			slog.Warn("unexpected worker frame", "kind", response.Kind)
		}
	}
}

// substituteBatch emits error records for every file of the batch the worker
// never finished. The same filter planning the worker would have applied
// decides which methods get a record, so substituted output is shaped exactly
// like real output.
func (p *Pool) substituteBatch(batch m.Batch, completed map[m.Path]bool, detail string, sink func(m.FileResult)) {
	planner := NewExecutor(p.options.Executor)

	for _, item := range batch.Items {
		if item.MethodCount() == 0 || completed[item.File] {
			continue
		}

		planned, skipped := planner.planMethods(item)

		sink(m.FileResult{
			File:    item.File,
			Timing:  m.FileTiming{File: item.File},
			Skipped: skipped,
			Records: substituteRecords(item.File, planned, detail),
		})
	}
}
