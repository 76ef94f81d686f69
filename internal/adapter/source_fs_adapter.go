// Package adapter contains filesystem, parsing, process, and storage
// adapters for the jolt CLI.
package adapter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	m "jolt.dev/pkg/jolt/internal/model"
)

// SourceFSAdapter abstracts filesystem-specific operations that the domain
// layer relies on when scanning user projects. It intentionally hides direct
// `os` access so the engine logic can be tested without touching the disk.
type SourceFSAdapter interface {
	// Scan walks the provided roots and returns candidate test files that
	// match at least one include glob and no exclude glob. The order is
	// deterministic for a fixed tree: lexical walk order per root, roots in
	// argument order, duplicates dropped. A root that is itself a file is
	// returned directly unless excluded.
	Scan(roots []m.Path, include, exclude []string) ([]m.Path, error)

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// FileInfo returns metadata for a path so callers can check existence or
	// distinguish files from directories.
	FileInfo(path m.Path) (os.FileInfo, error)

	// FindProjectRoot searches for a jolt.yaml or package.json walking up
	// the directory tree.
	FindProjectRoot(startPath m.Path) (m.Path, error)

	// WriteFile writes content to a file with the given permissions.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// MkdirAll creates a directory tree.
	MkdirAll(path m.Path, perm os.FileMode) error

	// RelPath returns the relative path from base to target.
	RelPath(base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalSourceFSAdapter is the concrete implementation backing the
// SourceFSAdapter interface with the local filesystem.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the engine.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Scan walks roots and collects files matching the include/exclude globs.
func (a *LocalSourceFSAdapter) Scan(roots []m.Path, include, exclude []string) ([]m.Path, error) {
	var files []m.Path

	seen := make(map[m.Path]struct{})

	keep := func(path m.Path) {
		if _, ok := seen[path]; ok {
			return
		}

		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range roots {
		info, err := os.Stat(string(root))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}

		if !info.IsDir() {
			if !matchAny(exclude, filepath.ToSlash(filepath.Base(string(root)))) {
				keep(absPath(root))
			}

			continue
		}

		err = filepath.WalkDir(string(root), func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if entry.IsDir() {
				// Version control and dependency trees never hold test files.
				base := filepath.Base(path)
				if path != string(root) && (base == ".git" || base == "node_modules") {
					return filepath.SkipDir
				}

				return nil
			}

			rel, err := filepath.Rel(string(root), path)
			if err != nil {
				return err
			}

			rel = filepath.ToSlash(rel)

			if matchAny(include, rel) && !matchAny(exclude, rel) {
				keep(absPath(m.Path(path)))
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}

	return files, nil
}

// matchAny reports whether any doublestar pattern matches the slash-separated
// relative path. Malformed patterns match nothing.
func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}

	return false
}

func absPath(path m.Path) m.Path {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return path
	}

	return m.Path(abs)
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// FindProjectRoot searches for a jolt.yaml or package.json walking up the
// directory tree.
func (a *LocalSourceFSAdapter) FindProjectRoot(startPath m.Path) (m.Path, error) {
	dir := string(startPath)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		for _, marker := range []string{"jolt.yaml", "package.json"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return m.Path(dir), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no jolt.yaml or package.json found in any parent directory of %s", startPath)
		}

		dir = parent
	}
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	return os.WriteFile(string(path), content, perm)
}

// MkdirAll creates a directory tree.
func (a *LocalSourceFSAdapter) MkdirAll(path m.Path, perm os.FileMode) error {
	return os.MkdirAll(string(path), perm)
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
