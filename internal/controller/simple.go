package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	m "jolt.dev/pkg/jolt/internal/model"
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd   *cobra.Command
	quiet bool
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	config := StartConfig{}
	for _, option := range options {
		option(&config)
	}

	s.quiet = config.quiet

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayCatalog prints the discovery catalog as a table, one row per file.
func (s *SimpleUI) DisplayCatalog(ctx context.Context, catalog m.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderCatalogTable(catalog))

	undiscoverable := false

	for _, result := range catalog {
		if result.ParseError == nil {
			continue
		}

		if !undiscoverable {
			s.printf("\nUndiscoverable files:\n")

			undiscoverable = true
		}

		s.printf("  %s: %s\n", result.File, result.ParseError.Error())
	}

	return nil
}

func renderCatalogTable(catalog m.Catalog) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Classes", "Tests", "Imports"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
	})

	totalClasses := 0
	totalMethods := 0
	totalImports := 0

	for _, result := range catalog {
		table.Append([]string{
			string(result.File),
			fmt.Sprintf("%d", len(result.Classes)),
			fmt.Sprintf("%d", result.MethodCount()),
			fmt.Sprintf("%d", len(result.Imports)),
		})

		totalClasses += len(result.Classes)
		totalMethods += result.MethodCount()
		totalImports += len(result.Imports)
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(catalog)),
		fmt.Sprintf("%d", totalClasses),
		fmt.Sprintf("%d", totalMethods),
		fmt.Sprintf("%d", totalImports),
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayRunPlan shows what is about to run and how.
func (s *SimpleUI) DisplayRunPlan(ctx context.Context, catalog m.Catalog, workers int, batches int) {
	if err := ctx.Err(); err != nil {
		return
	}

	if s.quiet {
		return
	}

	s.printf("Running %d test(s) from %d file(s) with %d worker(s) in %d batch(es)\n",
		catalog.MethodCount(), catalog.FilesWithTests(), workers, batches)
}

// DisplayFileResult prints one line per completed file, plus detail lines for
// every non-passing record.
func (s *SimpleUI) DisplayFileResult(ctx context.Context, result m.FileResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	if s.quiet {
		return
	}

	if len(result.Records) == 0 && result.Skipped == 0 {
		return
	}

	s.printf("%-5s %s (%s)\n", fileVerdict(result), result.File, describeFileResult(result))

	for _, record := range result.Records {
		if record.Outcome == m.Pass {
			continue
		}

		s.printf("  %s %s.%s%s: %s\n",
			strings.ToUpper(string(record.Outcome)), record.Class, record.Method, renderArgsSuffix(record), record.Detail)
	}
}

func fileVerdict(result m.FileResult) string {
	verdict := "PASS"

	for _, record := range result.Records {
		switch record.Outcome {
		case m.Error:
			return "ERROR"
		case m.Fail:
			verdict = "FAIL"
		case m.Pass:
		}
	}

	return verdict
}

func describeFileResult(result m.FileResult) string {
	elapsed := result.Timing.Materialize
	for _, record := range result.Records {
		elapsed += record.Duration
	}

	description := fmt.Sprintf("%d test(s)", len(result.Records))
	if result.Skipped > 0 {
		description += fmt.Sprintf(", %d skipped", result.Skipped)
	}

	return description + " in " + elapsed.Round(time.Millisecond).String()
}

func renderArgsSuffix(record m.ExecutionRecord) string {
	if record.Args == "" {
		return ""
	}

	return "(" + record.Args + ")"
}

// DisplaySummary prints the final counts, failure details, and the verdict.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary m.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderSummaryTable(summary))

	failing := collectFailures(summary)
	if len(failing) > 0 {
		s.printf("\nFailures:\n")

		for _, record := range failing {
			s.printf("  %s [%s]\n", record.ID(), record.Outcome)

			if record.Detail != "" {
				s.printf("      %s\n", record.Detail)
			}
		}
	}

	s.printf("\nFiles: %d scanned, %d with tests, %d unparsable, %d unreadable\n",
		summary.FilesScanned, summary.FilesWithTests, summary.Unparsable, summary.Unreadable)
	s.printf("Total time: %s\n", summary.Duration().Round(time.Millisecond))

	verdict := "PASS"
	if summary.Failed > 0 || summary.Errored > 0 {
		verdict = "FAIL"
	}

	s.printf("\n%s\n", verdict)

	return nil
}

func renderSummaryTable(summary m.RunSummary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Passed", "Failed", "Errored", "Skipped", "Collected", "Executed"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
	})
	table.Append([]string{
		fmt.Sprintf("%d", summary.Passed),
		fmt.Sprintf("%d", summary.Failed),
		fmt.Sprintf("%d", summary.Errored),
		fmt.Sprintf("%d", summary.Skipped),
		fmt.Sprintf("%d", summary.Collected),
		fmt.Sprintf("%d", summary.Executed),
	})
	table.Render()

	return tableBuffer.String()
}

func collectFailures(summary m.RunSummary) []m.ExecutionRecord {
	var failing []m.ExecutionRecord

	for _, record := range summary.Records {
		if record.Outcome == m.Pass {
			continue
		}

		failing = append(failing, record)
	}

	return failing
}

// DisplayReport prints a stored report: run identity first, then the same
// body a live run ends with.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Run %s\n", report.Summary.RunID)
	s.printf("Started: %s  Duration: %s\n",
		report.Summary.Started.Format(time.RFC3339), report.Summary.Duration().Round(time.Millisecond))

	return s.DisplaySummary(ctx, report.Summary)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
