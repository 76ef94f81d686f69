package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	m "jolt.dev/pkg/jolt/internal/model"
)

// Styles shared by the live view and the pagination models. Zero counts
// render faint so the eye lands on the numbers that matter.
var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

const maxVisibleFailures = 5

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output  io.Writer
	quiet   bool
	abort   func()
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the live run view. List mode and quiet mode need no live
// program; their displays are self-contained.
func (p *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	config := StartConfig{}
	for _, option := range options {
		option(&config)
	}

	p.quiet = config.quiet
	p.abort = config.abort

	if config.mode != ModeRun || p.quiet {
		return nil
	}

	model := newRunModel()

	// Get initial terminal size
	if f, ok := p.output.(*os.File); ok {
		width, _, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.setWidth(width)
		}
	}

	p.program = tea.NewProgram(model, tea.WithOutput(p.output), tea.WithContext(ctx))
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		finalModel, err := p.program.Run()
		if err != nil {
			return
		}

		if rm, ok := finalModel.(runModel); ok && rm.aborted && p.abort != nil {
			p.abort()
		}
	}()

	return nil
}

// Close stops the live run view and waits for it to tear down.
func (p *TUI) Close(ctx context.Context) {
	if p.program == nil {
		return
	}

	if ctx.Err() == nil {
		p.program.Send(runDoneMsg{})
	}

	<-p.done
	p.program = nil
}

// Wait blocks until the live view finishes (user closes it).
func (p *TUI) Wait(ctx context.Context) {
	if p.done == nil {
		return
	}

	select {
	case <-p.done:
	case <-ctx.Done():
	}
}

// DisplayRunPlan feeds the collected totals into the live view.
func (p *TUI) DisplayRunPlan(ctx context.Context, catalog m.Catalog, workers int, batches int) {
	if err := ctx.Err(); err != nil {
		return
	}

	if p.program == nil {
		return
	}

	p.program.Send(runPlanMsg{
		total:   catalog.MethodCount(),
		files:   catalog.FilesWithTests(),
		workers: workers,
		batches: batches,
	})
}

// DisplayFileResult feeds one completed file into the live view.
func (p *TUI) DisplayFileResult(ctx context.Context, result m.FileResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	if p.program == nil {
		return
	}

	p.program.Send(fileResultMsg{result: result})
}

// DisplaySummary prints the final counts and verdict under the live view.
func (p *TUI) DisplaySummary(ctx context.Context, summary m.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
		styledCount(passStyle, "✓", summary.Passed, "passed"),
		styledCount(failStyle, "✗", summary.Failed, "failed"),
		styledCount(errorStyle, "⚡", summary.Errored, "errored"),
		styledCount(faintStyle, "→", summary.Skipped, "skipped"))
	fmt.Fprintf(&b, "  📊 Collected %d, executed %d | Files: %d scanned, %d with tests, %d unparsable, %d unreadable\n",
		summary.Collected, summary.Executed,
		summary.FilesScanned, summary.FilesWithTests, summary.Unparsable, summary.Unreadable)

	failing := collectFailures(summary)
	if len(failing) > 0 {
		b.WriteString("\n  Failures:\n")

		for _, record := range failing {
			style, marker := failStyle, "✗"
			if record.Outcome == m.Error {
				style, marker = errorStyle, "⚡"
			}

			fmt.Fprintf(&b, "    %s\n", style.Render(marker+" "+record.ID()))

			if record.Detail != "" {
				fmt.Fprintf(&b, "      %s\n", faintStyle.Render(record.Detail))
			}
		}
	}

	fmt.Fprintf(&b, "\n  ⏱ Total time: %s\n", summary.Duration().Round(time.Millisecond))

	verdict := passStyle.Bold(true).Render("PASS")
	if summary.Failed > 0 || summary.Errored > 0 {
		verdict = failStyle.Bold(true).Render("FAIL")
	}

	fmt.Fprintf(&b, "\n  %s\n", verdict)

	_, err := fmt.Fprint(p.output, b.String())

	return err
}

func styledCount(style lipgloss.Style, marker string, count int, label string) string {
	text := fmt.Sprintf("%s %d %s", marker, count, label)
	if count == 0 {
		return faintStyle.Render(text)
	}

	return style.Render(text)
}

// runPlanMsg carries the collected totals into the live view.
type runPlanMsg struct {
	total   int
	files   int
	workers int
	batches int
}

// fileResultMsg carries one completed file into the live view.
type fileResultMsg struct {
	result m.FileResult
}

// runDoneMsg tells the live view the run finished.
type runDoneMsg struct{}

// runModel represents the Bubble Tea model for the live run view.
type runModel struct {
	bar            progress.Model
	total          int
	files          int
	workers        int
	batches        int
	planned        bool
	completedFiles int
	executed       int
	passed         int
	failed         int
	errored        int
	skipped        int
	lastFile       string
	failures       []string
	width          int
	done           bool
	aborted        bool
	quitting       bool
}

func newRunModel() runModel {
	return runModel{
		bar: progress.New(progress.WithDefaultGradient()),
	}
}

func (rm *runModel) setWidth(width int) {
	rm.width = width

	barWidth := width - 8
	if barWidth > 60 {
		barWidth = 60
	}

	if barWidth < 10 {
		barWidth = 10
	}

	rm.bar.Width = barWidth
}

func (rm runModel) Init() tea.Cmd {
	return nil
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.setWidth(msg.Width)

		return rm, nil

	case runPlanMsg:
		rm.total = msg.total
		rm.files = msg.files
		rm.workers = msg.workers
		rm.batches = msg.batches
		rm.planned = true

		return rm, nil

	case fileResultMsg:
		rm.absorb(msg.result)

		return rm, nil

	case runDoneMsg:
		rm.done = true

		return rm, tea.Quit

	case tea.KeyMsg:
		return rm.handleKeyPress(msg)
	}

	return rm, nil
}

func (rm *runModel) absorb(result m.FileResult) {
	rm.completedFiles++
	rm.lastFile = string(result.File)
	rm.skipped += result.Skipped
	rm.executed += len(result.Records)

	for _, record := range result.Records {
		switch record.Outcome {
		case m.Pass:
			rm.passed++
		case m.Fail:
			rm.failed++
			rm.noteFailure(record)
		case m.Error:
			rm.errored++
			rm.noteFailure(record)
		}
	}
}

func (rm *runModel) noteFailure(record m.ExecutionRecord) {
	rm.failures = append(rm.failures, fmt.Sprintf("%s [%s]", record.ID(), record.Outcome))
}

//nolint:exhaustive // Only quit keys are handled; the run has no navigation
func (rm runModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return rm.quit()
	default:
	}

	if msg.String() == "q" {
		return rm.quit()
	}

	return rm, nil
}

func (rm runModel) quit() (tea.Model, tea.Cmd) {
	rm.quitting = true
	if !rm.done {
		rm.aborted = true
	}

	return rm, tea.Quit
}

// progressRatio counts skips as progress so filtered runs still reach 100%.
func (rm runModel) progressRatio() float64 {
	if rm.total <= 0 {
		return 0
	}

	ratio := float64(rm.executed+rm.skipped) / float64(rm.total)
	if ratio > 1 {
		ratio = 1
	}

	return ratio
}

func (rm runModel) View() string {
	var b strings.Builder

	rm.renderHeader(&b)

	if !rm.planned {
		b.WriteString("  " + faintStyle.Render("discovering tests...") + "\n")

		return b.String()
	}

	fmt.Fprintf(&b, "  🧪 %d test(s) from %d file(s) | %d worker(s), %d batch(es)\n\n",
		rm.total, rm.files, rm.workers, rm.batches)
	fmt.Fprintf(&b, "  %s\n\n", rm.bar.ViewAs(rm.progressRatio()))
	fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
		styledCount(passStyle, "✓", rm.passed, "passed"),
		styledCount(failStyle, "✗", rm.failed, "failed"),
		styledCount(errorStyle, "⚡", rm.errored, "errored"),
		styledCount(faintStyle, "→", rm.skipped, "skipped"))

	if rm.lastFile != "" {
		fmt.Fprintf(&b, "  %s\n", faintStyle.Render("▸ "+rm.lastFile))
	}

	rm.renderFailures(&b)

	b.WriteString("\n  " + faintStyle.Render("q/ctrl+c: cancel run") + "\n")

	return b.String()
}

func (rm runModel) renderHeader(b *strings.Builder) {
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║                       Jolt - Test Runner                       ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n\n")
}

func (rm runModel) renderFailures(b *strings.Builder) {
	if len(rm.failures) == 0 {
		return
	}

	b.WriteString("\n")

	visible := rm.failures
	if len(visible) > maxVisibleFailures {
		fmt.Fprintf(b, "  %s\n",
			faintStyle.Render(fmt.Sprintf("… %d earlier failure(s) not shown", len(visible)-maxVisibleFailures)))

		visible = visible[len(visible)-maxVisibleFailures:]
	}

	for _, failure := range visible {
		fmt.Fprintf(b, "  %s\n", failStyle.Render("✗ "+failure))
	}
}

// DisplayCatalog shows the discovery catalog, paginating when it overflows
// the terminal.
func (p *TUI) DisplayCatalog(ctx context.Context, catalog m.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newCatalogModel(catalog)

	// Get initial terminal size
	if f, ok := p.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	// If list is small, just print and exit
	if !model.needsPagination() {
		_, err := fmt.Fprint(p.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// catalogModel represents the Bubble Tea model for displaying the catalog.
type catalogModel struct {
	catalog      m.Catalog
	totalClasses int
	totalMethods int
	height       int
	width        int
	offset       int // Current scroll offset
	quitting     bool
}

func newCatalogModel(catalog m.Catalog) catalogModel {
	totalClasses := 0
	for _, result := range catalog {
		totalClasses += len(result.Classes)
	}

	return catalogModel{
		catalog:      catalog,
		totalClasses: totalClasses,
		totalMethods: catalog.MethodCount(),
		height:       0, // Will be set on first WindowSizeMsg
		width:        0,
		offset:       0,
		quitting:     false,
	}
}

func (cm catalogModel) Init() tea.Cmd {
	return nil
}

func (cm catalogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		cm.height = msg.Height
		cm.width = msg.Width

		return cm, nil

	case tea.KeyMsg:
		return cm.handleKeyPress(msg)
	}

	return cm, nil
}

//nolint:cyclop,exhaustive // Key handling requires multiple cases for UI navigation
func (cm catalogModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		cm.quitting = true
		return cm, tea.Quit
	default:
		// Handle other key types in the string switch below
	}

	switch msg.String() {
	case "q":
		cm.quitting = true
		return cm, tea.Quit

	case "down", "j":
		cm.offset++

		maxOffset := cm.maxOffset()
		if cm.offset > maxOffset {
			cm.offset = maxOffset
		}

		return cm, nil

	case "up", "k":
		cm.offset--
		if cm.offset < 0 {
			cm.offset = 0
		}

		return cm, nil

	case "g", "home":
		cm.offset = 0

		return cm, nil

	case "G", "end":
		cm.offset = cm.maxOffset()

		return cm, nil

	case "d", "pgdown":
		cm.offset += cm.itemsPerPage()

		maxOffset := cm.maxOffset()
		if cm.offset > maxOffset {
			cm.offset = maxOffset
		}

		return cm, nil

	case "u", "pgup":
		cm.offset -= cm.itemsPerPage()
		if cm.offset < 0 {
			cm.offset = 0
		}

		return cm, nil
	}

	return cm, nil
}

// itemsPerPage calculates how many items can fit on screen.
func (cm catalogModel) itemsPerPage() int {
	if cm.height == 0 {
		return 10 // Default
	}
	// Reserve space for:
	// - Header: 4 lines (box + empty)
	// - Title: 2 lines (summary + empty)
	// - Total: 2 lines (empty + total)
	// - Footer: 3 lines (empty + page + help)
	// - Top margin: 1 line
	// Total: 12 lines
	reserved := 12

	available := cm.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

// maxOffset returns the maximum scroll offset.
func (cm catalogModel) maxOffset() int {
	itemCount := len(cm.catalog)

	perPage := cm.itemsPerPage()
	if perPage <= 0 {
		return 0
	}

	maxOff := itemCount - perPage
	if maxOff < 0 {
		return 0
	}

	return maxOff
}

// needsPagination returns true if the list is too large to fit on screen.
func (cm catalogModel) needsPagination() bool {
	totalFiles := len(cm.catalog)
	if totalFiles == 0 {
		return false
	}

	itemsPerPage := cm.itemsPerPage()

	return totalFiles > itemsPerPage && cm.height > 0
}

func (cm catalogModel) View() string {
	var b strings.Builder

	cm.renderHeader(&b)

	if len(cm.catalog) == 0 {
		b.WriteString("  📭 No test files found\n")
		return b.String()
	}

	cm.renderCatalogList(&b)

	return b.String()
}

func (cm catalogModel) renderHeader(b *strings.Builder) {
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║                      Jolt - Test Discovery                     ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n\n")
}

func (cm catalogModel) renderCatalogList(b *strings.Builder) {
	totalFiles := len(cm.catalog)

	b.WriteString("  🔍 discovered tests:\n\n")

	// Calculate pagination
	itemsPerPage := cm.itemsPerPage()
	needsPagination := totalFiles > itemsPerPage && cm.height > 0

	start := cm.offset

	end := start + itemsPerPage
	if end > totalFiles {
		end = totalFiles
	}

	if start >= totalFiles {
		start = totalFiles - 1
		if start < 0 {
			start = 0
		}
	}

	// Show items for current page
	displayResults := cm.catalog

	if needsPagination {
		displayResults = cm.catalog[start:end]
	}

	for _, result := range displayResults {
		if result.ParseError != nil {
			fmt.Fprintf(b, "  %s: %s\n", result.File, errorStyle.Render(result.ParseError.Error()))
			continue
		}

		classes := fmt.Sprintf("%d class(es)", len(result.Classes))
		methods := fmt.Sprintf("%d test(s)", result.MethodCount())

		if len(result.Classes) == 0 {
			classes = faintStyle.Render(classes)
			methods = faintStyle.Render(methods)
		}

		fmt.Fprintf(b, "  %s: %s, %s, %d import(s)\n", result.File, classes, methods, len(result.Imports))
	}

	// Total count
	b.WriteString("\n")
	fmt.Fprintf(b, "  📊 Total: %d test(s) in %d class(es) across %d file(s)\n",
		cm.totalMethods, cm.totalClasses, totalFiles)

	syntax, read := cm.catalog.Unparsable()
	if syntax+read > 0 {
		fmt.Fprintf(b, "  ⚠️  %d file(s) undiscoverable (%d syntax, %d read)\n", syntax+read, syntax, read)
	}

	// Footer with navigation help
	if needsPagination {
		b.WriteString("\n")

		currentPage := (cm.offset / itemsPerPage) + 1
		totalPages := (totalFiles + itemsPerPage - 1) / itemsPerPage
		fmt.Fprintf(b, "  Page %d/%d | Showing %d-%d of %d\n",
			currentPage, totalPages, start+1, end, totalFiles)
		b.WriteString("  ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit\n")
	}
}

// DisplayReport shows a stored run report, paginating when it overflows the
// terminal.
func (p *TUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newReportModel(report)

	// Get initial terminal size
	if f, ok := p.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	// If report is small, just print and exit
	if !model.needsPagination() {
		_, err := fmt.Fprint(p.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// reportFile holds the records of a single file, in execution order.
type reportFile struct {
	file    string
	records []m.ExecutionRecord
	passed  int
	failed  int
	errored int
}

func buildReportFiles(summary m.RunSummary) []reportFile {
	index := make(map[m.Path]int)
	files := []reportFile{}

	for _, record := range summary.Records {
		at, ok := index[record.File]
		if !ok {
			at = len(files)
			index[record.File] = at

			files = append(files, reportFile{file: string(record.File)})
		}

		files[at].records = append(files[at].records, record)

		switch record.Outcome {
		case m.Pass:
			files[at].passed++
		case m.Fail:
			files[at].failed++
		case m.Error:
			files[at].errored++
		}
	}

	return files
}

// reportModel represents the Bubble Tea model for displaying a run report.
type reportModel struct {
	summary  m.RunSummary
	files    []reportFile
	height   int
	width    int
	offset   int
	quitting bool
}

func newReportModel(report m.RunReport) reportModel {
	return reportModel{
		summary:  report.Summary,
		files:    buildReportFiles(report.Summary),
		height:   0,
		width:    0,
		offset:   0,
		quitting: false,
	}
}

func (rp reportModel) Init() tea.Cmd {
	return nil
}

func (rp reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rp.height = msg.Height
		rp.width = msg.Width

		return rp, nil

	case tea.KeyMsg:
		return rp.handleKeyPress(msg)
	}

	return rp, nil
}

func (rp reportModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // We only handle specific navigation keys
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		rp.quitting = true
		return rp, tea.Quit
	default:
		// Handle other key types in the string switch below
	}

	switch msg.String() {
	case "q":
		rp.quitting = true
		return rp, tea.Quit

	case "down", "j":
		return rp.scrollDown(), nil

	case "up", "k":
		return rp.scrollUp(), nil

	case "g", "home":
		rp.offset = 0
		return rp, nil

	case "G", "end":
		rp.offset = rp.maxOffset()
		return rp, nil

	case "d", "pgdown":
		return rp.scrollPageDown(), nil

	case "u", "pgup":
		return rp.scrollPageUp(), nil
	}

	return rp, nil
}

func (rp reportModel) scrollDown() reportModel {
	rp.offset++

	maxOffset := rp.maxOffset()
	if rp.offset > maxOffset {
		rp.offset = maxOffset
	}

	return rp
}

func (rp reportModel) scrollUp() reportModel {
	rp.offset--
	if rp.offset < 0 {
		rp.offset = 0
	}

	return rp
}

func (rp reportModel) scrollPageDown() reportModel {
	linesPerPage := rp.itemsPerPage()
	targetLine := rp.offset + linesPerPage
	maxOffset := rp.maxOffset()

	if targetLine > maxOffset {
		targetLine = maxOffset
	}

	rp.offset = targetLine

	return rp
}

func (rp reportModel) scrollPageUp() reportModel {
	linesPerPage := rp.itemsPerPage()
	targetLine := rp.offset - linesPerPage

	if targetLine < 0 {
		targetLine = 0
	}

	rp.offset = targetLine

	return rp
}

func (rp reportModel) itemsPerPage() int {
	if rp.height == 0 {
		return 10
	}
	// Reserved lines:
	// - Header box: 4 lines
	// - Run identity + blank: 2 lines
	// - Summary section: 3 lines
	// - Footer (pagination): 3 lines
	// Total: 12 lines
	reserved := 12

	available := rp.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

// totalLines calculates the total number of display lines needed for all files.
func (rp reportModel) totalLines() int {
	total := 0
	for _, rf := range rp.files {
		total++                  // File header line
		total += len(rf.records) // Record detail lines
	}

	return total
}

func (rp reportModel) maxOffset() int {
	totalLines := rp.totalLines()
	available := rp.itemsPerPage()

	if totalLines <= available {
		return 0
	}

	return totalLines - available
}

func (rp reportModel) needsPagination() bool {
	if len(rp.files) == 0 || rp.height == 0 {
		return false
	}

	reserved := 12
	available := rp.height - reserved

	return rp.totalLines() > available
}

func (rp reportModel) View() string {
	var b strings.Builder

	rp.renderHeader(&b)

	if len(rp.files) == 0 {
		b.WriteString("  📭 No execution records in this report\n")
		return b.String()
	}

	rp.renderRecordList(&b)

	return b.String()
}

func (rp reportModel) renderHeader(b *strings.Builder) {
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║                        Jolt - Run Report                       ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(b, "  🧾 Run %s (%s):\n\n", rp.summary.RunID, rp.summary.Started.Format(time.RFC3339))
}

func (rp reportModel) renderRecordList(b *strings.Builder) {
	needsPagination := rp.needsPagination()

	allLines := rp.buildContentLines()
	visibleLines := rp.applyPagination(allLines, needsPagination)

	rp.writeLines(b, visibleLines)
	rp.writeSummary(b)
	rp.writeFooter(b, needsPagination, len(allLines), len(rp.files))
}

func (rp reportModel) buildContentLines() []string {
	allLines := []string{}

	for _, rf := range rp.files {
		statusIcon := passStyle.Render("✓")
		if rf.errored > 0 {
			statusIcon = errorStyle.Render("⚡")
		} else if rf.failed > 0 {
			statusIcon = failStyle.Render("✗")
		}

		allLines = append(allLines, fmt.Sprintf("  %s %s: %d test(s) (passed: %d, failed: %d, errored: %d)",
			statusIcon, rf.file, len(rf.records), rf.passed, rf.failed, rf.errored))

		for _, record := range rf.records {
			line := recordLine(record)
			allLines = append(allLines, line)
		}
	}

	return allLines
}

func recordLine(record m.ExecutionRecord) string {
	name := record.Class + "." + record.Method + renderArgsSuffix(record)
	elapsed := record.Duration.Round(time.Millisecond)

	switch record.Outcome {
	case m.Fail:
		return fmt.Sprintf("    %s %s - %s", failStyle.Render("✗"), name, record.Detail)
	case m.Error:
		return fmt.Sprintf("    %s %s - %s", errorStyle.Render("⚡"), name, record.Detail)
	case m.Pass:
	}

	return fmt.Sprintf("    %s %s (%s)", passStyle.Render("✓"), name, elapsed)
}

func (rp reportModel) applyPagination(allLines []string, needsPagination bool) []string {
	if !needsPagination {
		return allLines
	}

	available := rp.itemsPerPage()
	start := rp.offset
	end := start + available

	if start >= len(allLines) {
		start = len(allLines) - 1
		if start < 0 {
			start = 0
		}
	}

	if end > len(allLines) {
		end = len(allLines)
	}

	return allLines[start:end]
}

func (rp reportModel) writeLines(b *strings.Builder, lines []string) {
	for _, line := range lines {
		fmt.Fprintf(b, "%s\n", line)
	}
}

func (rp reportModel) writeSummary(b *strings.Builder) {
	b.WriteString("\n")
	fmt.Fprintf(b, "  📊 Summary:\n")
	fmt.Fprintf(b, "  Total: %d | Passed: %d | Failed: %d | Errored: %d | Skipped: %d | Time: %s\n",
		rp.summary.Total(), rp.summary.Passed, rp.summary.Failed, rp.summary.Errored,
		rp.summary.Skipped, rp.summary.Duration().Round(time.Millisecond))
}

func (rp reportModel) writeFooter(b *strings.Builder, needsPagination bool, totalLines, totalFiles int) {
	if !needsPagination {
		return
	}

	b.WriteString("\n")

	available := rp.itemsPerPage()
	currentLineStart := rp.offset + 1
	currentLineEnd := rp.offset + available

	if currentLineEnd > totalLines {
		currentLineEnd = totalLines
	}

	fmt.Fprintf(b, "  Lines %d-%d of %d | %d files total\n",
		currentLineStart, currentLineEnd, totalLines, totalFiles)
	b.WriteString("  ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit\n")
}
