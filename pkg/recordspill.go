package pkg

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
)

// Spill is a generic append-only buffer backed by a temporary file of JSON
// lines, for record streams too large to hold comfortably in memory while
// merging reports.
type Spill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Get(index uint64) (T, error)
	Range(f func(index uint64, item T) error) error
	Close() error
}

type spillImpl[T any] struct {
	path    string
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
	length  uint64
}

// Append implements Spill.
func (s *spillImpl[T]) Append(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", s.path, "index", s.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	s.length++

	return nil
}

// Path implements Spill.
func (s *spillImpl[T]) Path() string {
	return s.path
}

// AppendBatch implements Spill.
func (s *spillImpl[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := s.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Close implements Spill. The backing file is removed.
func (s *spillImpl[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		if err := s.file.Close(); err != nil {
			slog.Error("failed to close spill file", "path", s.path, "error", err)
			return err
		}

		if err := os.Remove(s.path); err != nil {
			slog.Warn("failed to remove spill file", "path", s.path, "error", err)
		}

		slog.Debug("closed spill", "path", s.path, "length", s.length)
	}

	return nil
}

// Get implements Spill.
func (s *spillImpl[T]) Get(index uint64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= s.length {
		var zero T

		return zero, fmt.Errorf("index %d out of bounds (length %d)", index, s.length)
	}

	file, err := os.Open(s.path)
	if err != nil {
		var zero T

		slog.Error("failed to open spill for get", "path", s.path, "error", err)

		return zero, fmt.Errorf("failed to open spill file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close spill file", "path", s.path, "error", err)
		}
	}()

	decoder := json.NewDecoder(file)

	var item T

	for i := uint64(0); i <= index; i++ {
		if err := decoder.Decode(&item); err != nil {
			var zero T

			slog.Error("failed to decode item", "path", s.path, "index", i, "error", err)

			return zero, fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}
	}

	return item, nil
}

// Len implements Spill.
func (s *spillImpl[T]) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.length
}

// Range implements Spill.
func (s *spillImpl[T]) Range(fn func(index uint64, item T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		slog.Error("failed to open spill for range", "path", s.path, "error", err)
		return fmt.Errorf("failed to open spill file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close spill file", "path", s.path, "error", err)
		}
	}()

	decoder := json.NewDecoder(file)

	var item T

	length := s.length
	for i := uint64(0); i < length; i++ {
		if err := decoder.Decode(&item); err != nil {
			slog.Error("failed to decode item during range", "path", s.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// NewSpill creates a new Spill for items of type T.
func NewSpill[T any]() (Spill[T], error) {
	tmpDir := filepath.Join(os.TempDir(), "jolt-spill")
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		slog.Error("failed to create spill directory", "path", tmpDir, "error", err)
		return nil, fmt.Errorf("failed to create spill directory: %w", err)
	}

	file, err := os.CreateTemp(tmpDir, "spill-*.jsonl")
	if err != nil {
		slog.Error("failed to create spill file", "path", tmpDir, "error", err)
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}

	slog.Debug("created spill", "path", file.Name())

	return &spillImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: json.NewEncoder(file),
		length:  0,
	}, nil
}
