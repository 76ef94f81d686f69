package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// scanFakeFS extends fakeFS with a canned scan result so the engine can run
// entirely in memory.
type scanFakeFS struct {
	fakeFS

	files []m.Path
}

func (f *scanFakeFS) Scan(roots []m.Path, include, exclude []string) ([]m.Path, error) {
	return f.files, nil
}

func newEngineFixture() *scanFakeFS {
	fs, files := poolFixture()

	return &scanFakeFS{fakeFS: *fs, files: files}
}

func TestEngine_RunEndToEnd(t *testing.T) {
	fs := newEngineFixture()
	engine := NewEngine(fs, adapter.NewLocalScriptFileAdapter())

	var streamed []m.Path

	options := EngineOptions{
		Roots:     []m.Path{"/t"},
		BatchSize: 2,
		Pool:      PoolOptions{Workers: 1},
		OnResult:  func(result m.FileResult) { streamed = append(streamed, result.File) },
	}

	summary, catalog, err := engine.Run(context.Background(), nil, options)
	require.NoError(t, err)

	require.Len(t, catalog, 6)
	require.Equal(t, 6, summary.FilesScanned)
	require.Equal(t, 5, summary.FilesWithTests)

	require.Equal(t, 7, summary.Collected)
	require.Equal(t, 7, summary.Executed)
	require.Equal(t, 5, summary.Passed)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Errored)

	require.False(t, summary.Clean(false))
	require.Len(t, streamed, 5, "every executed file streams one result")
}

func TestEngine_RunParallelMatchesSequential(t *testing.T) {
	fs := newEngineFixture()
	engine := NewEngine(fs, adapter.NewLocalScriptFileAdapter())

	base := EngineOptions{Roots: []m.Path{"/t"}, BatchSize: 2}

	sequential := base
	sequential.Pool = PoolOptions{Workers: 1}

	parallel := base
	parallel.Pool = PoolOptions{Workers: 3, MaxRespawns: DefaultMaxRespawns}

	wantSummary, _, err := engine.Run(context.Background(), nil, sequential)
	require.NoError(t, err)

	gotSummary, _, err := engine.Run(context.Background(), &pipeLauncher{}, parallel)
	require.NoError(t, err)

	require.Equal(t, wantSummary.Passed, gotSummary.Passed)
	require.Equal(t, wantSummary.Failed, gotSummary.Failed)
	require.Equal(t, wantSummary.Errored, gotSummary.Errored)
	require.Equal(t, wantSummary.Executed, gotSummary.Executed)

	// Finish sorts into catalog order, so even the record sequences align.
	require.Equal(t, len(wantSummary.Records), len(gotSummary.Records))
	for i := range wantSummary.Records {
		require.Equal(t, wantSummary.Records[i].ID(), gotSummary.Records[i].ID())
		require.Equal(t, wantSummary.Records[i].Outcome, gotSummary.Records[i].Outcome)
	}
}

func TestEngine_DiscoverOnly(t *testing.T) {
	fs := newEngineFixture()
	engine := NewEngine(fs, adapter.NewLocalScriptFileAdapter())

	catalog, err := engine.Discover(context.Background(), EngineOptions{Roots: []m.Path{"/t"}})
	require.NoError(t, err)

	require.Len(t, catalog, 6)
	require.Equal(t, 7, catalog.MethodCount())

	syntaxFailures, readFailures := catalog.Unparsable()
	require.Zero(t, syntaxFailures)
	require.Zero(t, readFailures)
}
