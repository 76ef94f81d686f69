// Package controller provides output adapters for displaying discovery
// catalogs, live run progress, and stored reports.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	m "jolt.dev/pkg/jolt/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeRun StartMode = iota
	ModeList
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode  StartMode
	quiet bool
	abort func()
}

// WithRunMode sets the UI to live run mode.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// WithListMode sets the UI to catalog listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithQuiet suppresses per-file progress output. Summaries still print.
func WithQuiet(quiet bool) StartOption {
	return func(c *StartConfig) {
		c.quiet = quiet
	}
}

// WithAbort registers a callback fired when the user closes the live view
// before the run completes. Run commands use it to cancel the run context.
func WithAbort(abort func()) StartOption {
	return func(c *StartConfig) {
		c.abort = abort
	}
}

// UI defines the interface for rendering engine output.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayCatalog(ctx context.Context, catalog m.Catalog) error
	DisplayRunPlan(ctx context.Context, catalog m.Catalog, workers int, batches int)
	DisplayFileResult(ctx context.Context, result m.FileResult)
	DisplaySummary(ctx context.Context, summary m.RunSummary) error
	DisplayReport(ctx context.Context, report m.RunReport) error
}

// NewUI selects the interactive TUI when the output is a terminal and the
// plain printer otherwise.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
