package domain

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// Coordinator drives the Discoverer over the scanner's file sequence and
// assembles the catalog. Discovery is independent per file, so files are
// processed concurrently; results are written index-addressed so the catalog
// preserves the scanner's order no matter which file finishes first.
type Coordinator struct {
	fs          adapter.SourceFSAdapter
	discoverer  *Discoverer
	parallelism int
}

// NewCoordinator constructs a Coordinator. Parallelism below 1 falls back to
// the CPU count.
func NewCoordinator(fs adapter.SourceFSAdapter, discoverer *Discoverer, parallelism int) *Coordinator {
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	return &Coordinator{
		fs:          fs,
		discoverer:  discoverer,
		parallelism: parallelism,
	}
}

// BuildCatalog reads and discovers every file. Per-file failures never abort
// the build: unreadable files are recorded with a read error, unparsable
// files with a syntax error. Only context cancellation stops it early.
func (c *Coordinator) BuildCatalog(ctx context.Context, files []m.Path) (m.Catalog, error) {
	catalog := make(m.Catalog, len(files))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.parallelism)

	for index, file := range files {
		index, file := index, file
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			content, err := c.fs.ReadFile(file)
			if err != nil {
				slog.Warn("file unreadable during discovery", "file", file, "error", err)

				catalog[index] = m.DiscoveryResult{
					File: file,
					ParseError: &m.DiscoveryError{
						Kind:    m.DiscoveryReadError,
						Message: err.Error(),
					},
				}

				return nil
			}

			catalog[index] = c.discoverer.Discover(file, string(content))

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("catalog built",
		"files", len(catalog),
		"with_tests", catalog.FilesWithTests(),
		"methods", catalog.MethodCount(),
	)

	return catalog, nil
}
