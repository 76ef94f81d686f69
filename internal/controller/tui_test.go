package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	m "jolt.dev/pkg/jolt/internal/model"
)

func TestTUI_DisplayCatalog_Empty(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	err := tui.DisplayCatalog(context.Background(), m.Catalog{})
	if err != nil {
		t.Fatalf("DisplayCatalog() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "No test files found") {
		t.Errorf("Expected empty message, got: %s", output)
	}
}

func TestTUI_DisplayCatalog_SmallList(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	catalog := m.Catalog{
		{File: "a.test.js", Classes: []m.TestClass{{Name: "TestA", Methods: []string{"test_one", "test_two"}}}},
		{File: "b.test.js"},
		{File: "c.test.js", ParseError: &m.DiscoveryError{Kind: m.DiscoverySyntaxError, Message: "unexpected token"}},
	}

	err := tui.DisplayCatalog(context.Background(), catalog)
	if err != nil {
		t.Fatalf("DisplayCatalog() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Jolt - Test Discovery") {
		t.Error("Output should contain header")
	}
	if !strings.Contains(output, "a.test.js") {
		t.Error("Output should contain a.test.js")
	}
	if !strings.Contains(output, "Total: 2 test(s) in 1 class(es) across 3 file(s)") {
		t.Errorf("Output should contain total count, got: %s", output)
	}
	if !strings.Contains(output, "1 file(s) undiscoverable (1 syntax, 0 read)") {
		t.Errorf("Output should count undiscoverable files, got: %s", output)
	}
}

func TestTUI_DisplayReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	report := m.RunReport{Version: m.ReportVersion, Summary: m.RunSummary{RunID: "run-0"}}

	err := tui.DisplayReport(context.Background(), report)
	if err != nil {
		t.Fatalf("DisplayReport() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "No execution records") {
		t.Errorf("Expected empty message, got: %s", output)
	}
}

func TestTUI_DisplayReport_WithRecords(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	report := m.RunReport{
		Version: m.ReportVersion,
		Summary: m.RunSummary{
			RunID:   "run-9",
			Started: time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC),
			Records: []m.ExecutionRecord{
				{File: "a.test.js", Class: "TestA", Method: "test_one", Outcome: m.Pass, Duration: 3 * time.Millisecond},
				{File: "a.test.js", Class: "TestA", Method: "test_two", Outcome: m.Fail, Detail: "expected 4"},
				{File: "b.test.js", Class: "TestB", Method: "test_three", Outcome: m.Error, Detail: "boom"},
			},
			Passed: 1, Failed: 1, Errored: 1,
		},
	}

	err := tui.DisplayReport(context.Background(), report)
	if err != nil {
		t.Fatalf("DisplayReport() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Run run-9",
		"a.test.js: 2 test(s) (passed: 1, failed: 1, errored: 0)",
		"TestA.test_two - expected 4",
		"TestB.test_three - boom",
		"Total: 3 | Passed: 1 | Failed: 1 | Errored: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got: %s", want, output)
		}
	}
}

func TestTUI_DisplaySummary(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	summary := m.RunSummary{
		RunID:  "run-4",
		Passed: 2, Failed: 1,
		Collected: 3, Executed: 3,
		FilesScanned: 2, FilesWithTests: 2,
		Records: []m.ExecutionRecord{
			{File: "a.test.js", Class: "TestA", Method: "test_bad", Outcome: m.Fail, Detail: "nope"},
		},
	}

	err := tui.DisplaySummary(context.Background(), summary)
	if err != nil {
		t.Fatalf("DisplaySummary() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"2 passed", "1 failed", "Collected 3, executed 3", "a.test.js.TestA.test_bad", "FAIL"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got: %s", want, output)
		}
	}
}

func TestRunModel_AbsorbsFileResults(t *testing.T) {
	model := newRunModel()

	updated, _ := model.Update(runPlanMsg{total: 4, files: 2, workers: 2, batches: 1})
	rm := updated.(runModel)

	updated, _ = rm.Update(fileResultMsg{result: m.FileResult{
		File: "a.test.js",
		Records: []m.ExecutionRecord{
			{File: "a.test.js", Class: "TestA", Method: "test_one", Outcome: m.Pass},
			{File: "a.test.js", Class: "TestA", Method: "test_two", Outcome: m.Fail, Detail: "expected 4"},
		},
		Skipped: 1,
	}})
	rm = updated.(runModel)

	if rm.passed != 1 || rm.failed != 1 || rm.skipped != 1 {
		t.Errorf("counts = %d passed, %d failed, %d skipped; want 1, 1, 1", rm.passed, rm.failed, rm.skipped)
	}

	if len(rm.failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(rm.failures))
	}

	got := rm.progressRatio()
	if got != 0.75 {
		t.Errorf("progressRatio() = %v, want 0.75 (2 executed + 1 skipped of 4)", got)
	}

	view := rm.View()
	for _, want := range []string{"Jolt - Test Runner", "4 test(s) from 2 file(s)", "a.test.js"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() should contain %q, got: %s", want, view)
		}
	}
}

func TestRunModel_ProgressRatioClamps(t *testing.T) {
	model := newRunModel()
	model.total = 2
	model.executed = 3

	if got := model.progressRatio(); got != 1 {
		t.Errorf("progressRatio() = %v, want clamped 1", got)
	}

	model.total = 0
	if got := model.progressRatio(); got != 0 {
		t.Errorf("progressRatio() with no plan = %v, want 0", got)
	}
}

func TestRunModel_QuitBeforeDoneAborts(t *testing.T) {
	model := newRunModel()

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	rm := updated.(runModel)

	if !rm.aborted {
		t.Error("quitting a live run should mark it aborted")
	}

	if cmd == nil {
		t.Error("quit should produce a tea.Quit command")
	}
}

func TestRunModel_QuitAfterDoneIsNotAbort(t *testing.T) {
	model := newRunModel()
	model.done = true

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	rm := updated.(runModel)

	if rm.aborted {
		t.Error("quitting after completion should not count as abort")
	}
}

func TestCatalogModel_Pagination(t *testing.T) {
	catalog := make(m.Catalog, 30)
	for i := range catalog {
		catalog[i] = m.DiscoveryResult{File: m.Path("f.test.js")}
	}

	model := newCatalogModel(catalog)
	model.height = 20

	if got := model.itemsPerPage(); got != 8 {
		t.Errorf("itemsPerPage() = %d, want 8 (20 rows minus 12 reserved)", got)
	}

	if !model.needsPagination() {
		t.Error("30 files on a 20-row terminal should paginate")
	}

	if got := model.maxOffset(); got != 22 {
		t.Errorf("maxOffset() = %d, want 22", got)
	}

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	cm := updated.(catalogModel)

	if cm.offset != 22 {
		t.Errorf("G should jump to maxOffset, got %d", cm.offset)
	}

	updated, _ = cm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	cm = updated.(catalogModel)

	if cm.offset != 22 {
		t.Errorf("scrolling past the end should clamp, got %d", cm.offset)
	}
}
