package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/bep/debounce"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// DefaultWatchDebounce coalesces change bursts, editor save storms and branch
// switches, into a single re-run.
const DefaultWatchDebounce = 400 * time.Millisecond

// Watcher re-runs a test run whenever watched files change. The initial run
// is the caller's job; the watcher only reacts to changes after it.
type Watcher struct {
	watch    adapter.WatchAdapter
	interval time.Duration
}

// NewWatcher constructs a Watcher. A non-positive interval falls back to
// DefaultWatchDebounce.
func NewWatcher(watch adapter.WatchAdapter, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchDebounce
	}

	return &Watcher{watch: watch, interval: interval}
}

// Watch blocks until ctx is done, invoking rerun once per debounced burst of
// matching changes.
func (w *Watcher) Watch(ctx context.Context, roots []m.Path, include, exclude []string, rerun func(context.Context)) error {
	trigger := make(chan m.Path, 1)
	debounced := debounce.New(w.interval)

	onChange := func(path m.Path) {
		debounced(func() {
			select {
			case trigger <- path:
			default:
			}
		})
	}

	watchErr := make(chan error, 1)

	go func() {
		watchErr <- w.watch.Watch(ctx, roots, include, exclude, onChange)
	}()

	for {
		select {
		case <-ctx.Done():
			<-watchErr
			return ctx.Err()
		case err := <-watchErr:
			return err
		case path := <-trigger:
			slog.Info("change detected", "path", path)
			rerun(ctx)
		}
	}
}
