package adapter

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	m "jolt.dev/pkg/jolt/internal/model"
)

// WatchAdapter observes source trees for changes to candidate test files.
type WatchAdapter interface {
	// Watch blocks until ctx is done, invoking onChange for every write,
	// create, remove, or rename of a file matching at least one include glob
	// and no exclude glob.
	Watch(ctx context.Context, roots []m.Path, include, exclude []string, onChange func(m.Path)) error
}

// LocalWatchAdapter implements WatchAdapter on top of fsnotify.
type LocalWatchAdapter struct{}

// NewLocalWatchAdapter constructs a LocalWatchAdapter.
func NewLocalWatchAdapter() *LocalWatchAdapter {
	return &LocalWatchAdapter{}
}

// Watch arms a recursive watch over the roots and forwards matching file
// events. Directories created while watching are added on the fly; version
// control and dependency trees are never watched.
func (a *LocalWatchAdapter) Watch(ctx context.Context, roots []m.Path, include, exclude []string, onChange func(m.Path)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range roots {
		if err := addWatchTree(watcher, root); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			handleWatchEvent(watcher, roots, include, exclude, event, onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			slog.Warn("file watcher error", "error", err)
		}
	}
}

func handleWatchEvent(watcher *fsnotify.Watcher, roots []m.Path, include, exclude []string, event fsnotify.Event, onChange func(m.Path)) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			base := filepath.Base(event.Name)
			if base != ".git" && base != "node_modules" {
				_ = addWatchTree(watcher, m.Path(event.Name))
			}

			return
		}
	}

	if event.Has(fsnotify.Chmod) {
		return
	}

	rel, ok := relToAnyRoot(roots, event.Name)
	if !ok {
		return
	}

	if matchAny(include, rel) && !matchAny(exclude, rel) {
		onChange(m.Path(event.Name))
	}
}

// relToAnyRoot returns the slash-separated path of name relative to the first
// root containing it.
func relToAnyRoot(roots []m.Path, name string) (string, bool) {
	for _, root := range roots {
		rel, err := filepath.Rel(string(root), name)
		if err != nil || rel == ".." || filepath.IsAbs(rel) || (len(rel) > 1 && rel[0] == '.' && rel[1] == '.') {
			continue
		}

		return filepath.ToSlash(rel), true
	}

	return "", false
}

func addWatchTree(watcher *fsnotify.Watcher, root m.Path) error {
	info, err := os.Stat(string(root))
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	if !info.IsDir() {
		return watcher.Add(filepath.Dir(string(root)))
	}

	return filepath.WalkDir(string(root), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if path != string(root) && (base == ".git" || base == "node_modules") {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}
