package domain

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// pipeLauncher launches in-memory workers running the real worker serve loop
// over pipes, so pool, protocol framing, and executor are exercised together
// without subprocesses.
type pipeLauncher struct {
	options ExecutorOptions

	mu       sync.Mutex
	launched int
}

func (l *pipeLauncher) Launch(ctx context.Context) (adapter.WorkerProcess, error) {
	l.mu.Lock()
	l.launched++
	l.mu.Unlock()

	requestReader, requestWriter := io.Pipe()
	responseReader, responseWriter := io.Pipe()

	worker := &pipeWorker{
		requestWriter:  requestWriter,
		responseReader: responseReader,
		encoder:        json.NewEncoder(requestWriter),
		decoder:        json.NewDecoder(responseReader),
		done:           make(chan struct{}),
	}

	go func() {
		defer close(worker.done)
		defer responseWriter.Close()

		_ = ServeWorker(ctx, adapter.NewWorkerStdio(requestReader, responseWriter), NewExecutor(l.options))
	}()

	return worker, nil
}

func (l *pipeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.launched
}

type pipeWorker struct {
	requestWriter  *io.PipeWriter
	responseReader *io.PipeReader
	encoder        *json.Encoder
	decoder        *json.Decoder
	done           chan struct{}
}

func (w *pipeWorker) Send(request m.WorkerRequest) error {
	return w.encoder.Encode(request)
}

func (w *pipeWorker) Recv() (m.WorkerResponse, error) {
	var response m.WorkerResponse
	if err := w.decoder.Decode(&response); err != nil {
		return m.WorkerResponse{}, err
	}

	return response, nil
}

func (w *pipeWorker) Kill() error {
	w.requestWriter.CloseWithError(errors.New("killed"))
	w.responseReader.CloseWithError(errors.New("killed"))

	return nil
}

func (w *pipeWorker) Shutdown() error {
	_ = w.requestWriter.Close()
	<-w.done

	return nil
}

// scriptedWorker is a hand-driven protocol peer for crash scenarios the real
// worker loop cannot produce on demand.
type scriptedWorker struct {
	responses chan m.WorkerResponse
	onBatch   func(batch m.Batch, worker *scriptedWorker)
	closeOnce sync.Once
}

func newScriptedWorker(onBatch func(m.Batch, *scriptedWorker)) *scriptedWorker {
	worker := &scriptedWorker{
		responses: make(chan m.WorkerResponse, 64),
		onBatch:   onBatch,
	}
	worker.emit(m.WorkerResponse{Kind: m.FrameReady})

	return worker
}

func (w *scriptedWorker) emit(response m.WorkerResponse) {
	w.responses <- response
}

func (w *scriptedWorker) die() {
	w.closeOnce.Do(func() { close(w.responses) })
}

func (w *scriptedWorker) Send(request m.WorkerRequest) error {
	switch request.Kind {
	case m.FrameBatch:
		w.onBatch(*request.Batch, w)
	case m.FrameShutdown:
		w.die()
	}

	return nil
}

func (w *scriptedWorker) Recv() (m.WorkerResponse, error) {
	response, ok := <-w.responses
	if !ok {
		return m.WorkerResponse{}, io.EOF
	}

	return response, nil
}

func (w *scriptedWorker) Kill() error     { w.die(); return nil }
func (w *scriptedWorker) Shutdown() error { w.die(); return nil }

// flakyLauncher hands out one scripted worker first, then healthy pipe
// workers, to drive the crash and respawn paths. Later launches are held
// until the scripted worker has received a batch; otherwise a healthy worker
// could win the race for the queue and the crash path would never fire.
type flakyLauncher struct {
	first   func() adapter.WorkerProcess
	healthy pipeLauncher
	gate    chan struct{}

	mu      sync.Mutex
	spawned int
}

func newFlakyLauncher(onBatch func(m.Batch, *scriptedWorker)) *flakyLauncher {
	launcher := &flakyLauncher{gate: make(chan struct{})}

	var once sync.Once

	launcher.first = func() adapter.WorkerProcess {
		return newScriptedWorker(func(batch m.Batch, worker *scriptedWorker) {
			once.Do(func() { close(launcher.gate) })
			onBatch(batch, worker)
		})
	}

	return launcher
}

func (l *flakyLauncher) Launch(ctx context.Context) (adapter.WorkerProcess, error) {
	l.mu.Lock()
	l.spawned++
	first := l.spawned == 1
	l.mu.Unlock()

	if first {
		return l.first(), nil
	}

	select {
	case <-l.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return l.healthy.Launch(ctx)
}

func (l *flakyLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.spawned
}

type deadLauncher struct{}

func (deadLauncher) Launch(context.Context) (adapter.WorkerProcess, error) {
	return nil, errors.New("no interpreter available")
}

func poolFixture() (*fakeFS, []m.Path) {
	contents := map[m.Path]string{
		"/t/alpha.test.js":   `class TestAlpha { test_one() { assert(true); } test_two() { assert(true); } }`,
		"/t/beta.test.js":    `class TestBeta { test_pass() { assert(true); } test_fail() { assert(false, "beta broke"); } }`,
		"/t/gamma.test.js":   `function helperOnly() {}`,
		"/t/delta.test.js":   `class TestDelta { test_throws() { nope(); } }`,
		"/t/epsilon.test.js": `class TestEpsilon { test_ok() { assert(1 === 1); } }`,
		"/t/zeta.test.js":    `class TestZeta { test_many() { assert(2 > 1); } }`,
	}

	files := []m.Path{
		"/t/alpha.test.js", "/t/beta.test.js", "/t/gamma.test.js",
		"/t/delta.test.js", "/t/epsilon.test.js", "/t/zeta.test.js",
	}

	return &fakeFS{contents: contents}, files
}

func buildPoolCatalog(t *testing.T, fs adapter.SourceFSAdapter, files []m.Path) m.Catalog {
	t.Helper()

	catalog, err := newTestCoordinator(fs, 4).BuildCatalog(context.Background(), files)
	require.NoError(t, err)

	return catalog
}

func runPool(t *testing.T, pool *Pool, batches []m.Batch) ([]m.FileResult, error) {
	t.Helper()

	var results []m.FileResult

	err := pool.Run(context.Background(), batches, func(result m.FileResult) {
		results = append(results, result)
	})

	return results, err
}

func outcomesByID(results []m.FileResult) map[string]m.Outcome {
	outcomes := make(map[string]m.Outcome)

	for _, result := range results {
		for _, record := range result.Records {
			outcomes[record.ID()] = record.Outcome
		}
	}

	return outcomes
}

func TestPool_InProcessSequential(t *testing.T) {
	fs, files := poolFixture()
	catalog := buildPoolCatalog(t, fs, files)
	batches := MakeBatches(catalog, 2)

	pool := NewPool(fs, nil, PoolOptions{Workers: 1})

	results, err := runPool(t, pool, batches)
	require.NoError(t, err)

	// One result per file with tests, in catalog order; the classless file
	// keeps its batch slot but produces nothing.
	var got []m.Path
	for _, result := range results {
		got = append(got, result.File)
	}

	require.Equal(t, []m.Path{
		"/t/alpha.test.js", "/t/beta.test.js", "/t/delta.test.js",
		"/t/epsilon.test.js", "/t/zeta.test.js",
	}, got)

	outcomes := outcomesByID(results)
	require.Equal(t, m.Pass, outcomes["/t/alpha.test.js.TestAlpha.test_one"])
	require.Equal(t, m.Fail, outcomes["/t/beta.test.js.TestBeta.test_fail"])
	require.Equal(t, m.Error, outcomes["/t/delta.test.js.TestDelta.test_throws"])
}

func TestPool_WorkerCountsProduceIdenticalOutcomes(t *testing.T) {
	fs, files := poolFixture()
	catalog := buildPoolCatalog(t, fs, files)

	sequential, err := runPool(t, NewPool(fs, nil, PoolOptions{Workers: 1}), MakeBatches(catalog, 2))
	require.NoError(t, err)

	parallel, err := runPool(t, NewPool(fs, &pipeLauncher{}, PoolOptions{Workers: 4, MaxRespawns: DefaultMaxRespawns}), MakeBatches(catalog, 2))
	require.NoError(t, err)

	require.Equal(t, outcomesByID(sequential), outcomesByID(parallel))
}

func TestPool_CrashSubstitutesNotYetCompletedFiles(t *testing.T) {
	fs, files := poolFixture()
	catalog := buildPoolCatalog(t, fs, files)
	batches := MakeBatches(catalog, len(catalog))
	require.Len(t, batches, 1)

	launcher := newFlakyLauncher(func(batch m.Batch, worker *scriptedWorker) {
		// Report the first executable file, then die mid-batch.
		for _, item := range batch.Items {
			if item.MethodCount() == 0 {
				continue
			}

			result := m.FileResult{File: item.File, Timing: m.FileTiming{File: item.File}}
			for _, class := range item.Classes {
				for _, method := range class.Methods {
					result.Records = append(result.Records, m.ExecutionRecord{
						File: item.File, Class: class.Name, Method: method, Outcome: m.Pass,
					})
				}
			}

			worker.emit(m.WorkerResponse{Kind: m.FrameFile, Index: batch.Index, Result: &result})

			break
		}

		worker.die()
	})

	pool := NewPool(fs, launcher, PoolOptions{Workers: 2, MaxRespawns: DefaultMaxRespawns})

	results, err := runPool(t, pool, batches)
	require.NoError(t, err, "a worker crash must not abort the run")

	outcomes := outcomesByID(results)

	require.Equal(t, m.Pass, outcomes["/t/alpha.test.js.TestAlpha.test_one"], "completed file keeps its real records")

	for _, id := range []string{
		"/t/beta.test.js.TestBeta.test_pass",
		"/t/beta.test.js.TestBeta.test_fail",
		"/t/delta.test.js.TestDelta.test_throws",
		"/t/epsilon.test.js.TestEpsilon.test_ok",
		"/t/zeta.test.js.TestZeta.test_many",
	} {
		require.Equal(t, m.Error, outcomes[id], "%s must be crash-substituted", id)
	}

	for _, result := range results {
		if result.File == "/t/alpha.test.js" {
			continue
		}

		for _, record := range result.Records {
			require.Contains(t, record.Detail, "worker crashed")
		}
	}

	require.GreaterOrEqual(t, launcher.count(), 2, "pool must respawn a replacement")
}

func TestPool_BatchTimeoutTreatsWorkerAsCrashed(t *testing.T) {
	fs, files := poolFixture()
	catalog := buildPoolCatalog(t, fs, files)
	batches := MakeBatches(catalog, len(catalog))

	// Accepts the batch and never answers.
	launcher := newFlakyLauncher(func(m.Batch, *scriptedWorker) {})

	pool := NewPool(fs, launcher, PoolOptions{
		Workers:      2,
		MaxRespawns:  DefaultMaxRespawns,
		BatchTimeout: 100 * time.Millisecond,
	})

	start := time.Now()
	results, err := runPool(t, pool, batches)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second, "a hung worker must not hang the run")

	for _, result := range results {
		for _, record := range result.Records {
			require.Equal(t, m.Error, record.Outcome)
			require.Contains(t, record.Detail, "batch timed out")
		}
	}
}

func TestPool_RespawnBudgetExhaustionIsFatal(t *testing.T) {
	fs, files := poolFixture()
	catalog := buildPoolCatalog(t, fs, files)
	batches := MakeBatches(catalog, 2)

	pool := NewPool(fs, deadLauncher{}, PoolOptions{Workers: 2, MaxRespawns: 1})

	results, err := runPool(t, pool, batches)
	require.Error(t, err)
	require.Contains(t, err.Error(), "worker pool exhausted")
	require.Empty(t, results)
}

func TestPool_CancelledBeforeDispatch(t *testing.T) {
	fs, files := poolFixture()
	catalog := buildPoolCatalog(t, fs, files)
	batches := MakeBatches(catalog, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("in process", func(t *testing.T) {
		err := NewPool(fs, nil, PoolOptions{Workers: 1}).Run(ctx, batches, func(m.FileResult) {
			t.Fatal("no results expected after cancellation")
		})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("subprocess mode", func(t *testing.T) {
		err := NewPool(fs, &pipeLauncher{}, PoolOptions{Workers: 2}).Run(ctx, batches, func(m.FileResult) {
			t.Fatal("no results expected after cancellation")
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestPool_SubstitutionRespectsFilter(t *testing.T) {
	fs, files := poolFixture()
	catalog := buildPoolCatalog(t, fs, files)
	batches := MakeBatches(catalog, len(catalog))

	launcher := newFlakyLauncher(func(_ m.Batch, worker *scriptedWorker) {
		worker.die()
	})

	options := PoolOptions{
		Workers:     2,
		MaxRespawns: DefaultMaxRespawns,
		Executor:    ExecutorOptions{Filter: m.ParseFilter("*.TestBeta.*", "")},
	}

	results, err := runPool(t, NewPool(fs, launcher, options), batches)
	require.NoError(t, err)

	outcomes := outcomesByID(results)
	require.Len(t, outcomes, 2, "only the filtered class gets substitution records")
	require.Equal(t, m.Error, outcomes["/t/beta.test.js.TestBeta.test_pass"])
	require.Equal(t, m.Error, outcomes["/t/beta.test.js.TestBeta.test_fail"])
}
