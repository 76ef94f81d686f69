package domain

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// fakeFS serves file contents from memory so coordinator behavior can be
// tested without disk layout.
type fakeFS struct {
	adapter.SourceFSAdapter

	contents map[m.Path]string
	failures map[m.Path]error
}

func (f *fakeFS) ReadFile(path m.Path) ([]byte, error) {
	if err, ok := f.failures[path]; ok {
		return nil, err
	}

	content, ok := f.contents[path]
	if !ok {
		return nil, os.ErrNotExist
	}

	return []byte(content), nil
}

func newTestCoordinator(fs adapter.SourceFSAdapter, parallelism int) *Coordinator {
	return NewCoordinator(fs, newTestDiscoverer(), parallelism)
}

func TestCoordinator_PreservesScannerOrder(t *testing.T) {
	fs := &fakeFS{contents: map[m.Path]string{
		"a.test.js": "class TestA { test_a() {} }",
		"b.test.js": "class TestB { test_b() {} }",
		"c.test.js": "class TestC { test_c() {} }",
		"d.test.js": "function noTests() {}",
	}}

	files := []m.Path{"c.test.js", "a.test.js", "d.test.js", "b.test.js"}

	// High parallelism shakes out ordering races across repeated builds.
	for i := 0; i < 10; i++ {
		catalog, err := newTestCoordinator(fs, 8).BuildCatalog(context.Background(), files)
		require.NoError(t, err)
		require.Len(t, catalog, 4)

		for i, file := range files {
			require.Equal(t, file, catalog[i].File)
		}

		require.Equal(t, "TestC", catalog[0].Classes[0].Name)
		require.Empty(t, catalog[2].Classes)
	}
}

func TestCoordinator_ReadErrorsDistinctFromSyntaxErrors(t *testing.T) {
	fs := &fakeFS{
		contents: map[m.Path]string{
			"ok.test.js":     "class TestOK { test_ok() {} }",
			"broken.test.js": "class TestBroken { test_oops( {",
		},
		failures: map[m.Path]error{
			"gone.test.js": errors.New("permission denied"),
		},
	}

	catalog, err := newTestCoordinator(fs, 2).BuildCatalog(
		context.Background(),
		[]m.Path{"ok.test.js", "gone.test.js", "broken.test.js"},
	)
	require.NoError(t, err)

	require.Nil(t, catalog[0].ParseError)

	require.NotNil(t, catalog[1].ParseError)
	require.Equal(t, m.DiscoveryReadError, catalog[1].ParseError.Kind)
	require.Empty(t, catalog[1].Classes)

	require.NotNil(t, catalog[2].ParseError)
	require.Equal(t, m.DiscoverySyntaxError, catalog[2].ParseError.Kind)

	syntax, read := catalog.Unparsable()
	require.Equal(t, 1, syntax)
	require.Equal(t, 1, read)
}

func TestCoordinator_CancelledContextAborts(t *testing.T) {
	fs := &fakeFS{contents: map[m.Path]string{"a.test.js": "class TestA { test_a() {} }"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCoordinator(fs, 1).BuildCatalog(ctx, []m.Path{"a.test.js"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCoordinator_EmptyFileListYieldsEmptyCatalog(t *testing.T) {
	catalog, err := newTestCoordinator(&fakeFS{}, 1).BuildCatalog(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, catalog)
}
