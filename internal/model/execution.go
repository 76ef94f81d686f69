// Package model defines the data structures for test discovery and execution.
package model

import "time"

// Outcome is the result kind of one test method invocation. It is a string
// so records serialize readably across the worker boundary and in reports.
type Outcome string

const (
	// Pass indicates the method returned without signaling a failure.
	Pass Outcome = "pass"
	// Fail indicates an assertion-style failure signaled by the test.
	Fail Outcome = "fail"
	// Error indicates any other fault, including setup faults and crashes.
	Error Outcome = "error"
)

// BatchItem is one file's slice of the catalog plus the source text a worker
// needs to materialize it. Workers do no filesystem I/O: sources are loaded
// at dispatch time, and a file that vanished between discovery and dispatch
// carries ReadError instead of source text.
type BatchItem struct {
	File      Path        `json:"file" yaml:"file"`
	Source    string      `json:"source" yaml:"source"`
	Classes   []TestClass `json:"classes,omitempty" yaml:"classes,omitempty"`
	ReadError string      `json:"read_error,omitempty" yaml:"read_error,omitempty"`
}

// MethodCount returns the number of test methods across the item's classes.
func (i BatchItem) MethodCount() int {
	count := 0
	for _, class := range i.Classes {
		count += len(class.Methods)
	}

	return count
}

// Batch is a contiguous slice of the catalog dispatched as one unit of work.
// A batch is owned by exactly one worker at a time.
type Batch struct {
	Index int         `json:"index" yaml:"index"`
	Items []BatchItem `json:"items" yaml:"items"`
}

// ExecutionRecord is the immutable result of running one discovered test
// method invocation. Parameterized methods produce one record per argument
// tuple, with Args rendering the tuple. Duration covers the method invocation
// alone; file materialization cost is carried by FileTiming instead.
type ExecutionRecord struct {
	File     Path          `json:"file" yaml:"file"`
	Class    string        `json:"class" yaml:"class"`
	Method   string        `json:"method" yaml:"method"`
	Args     string        `json:"args,omitempty" yaml:"args,omitempty"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Detail   string        `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// ID renders the record's file.class.method identity used in reports and
// filters.
func (r ExecutionRecord) ID() string {
	id := string(r.File) + "." + r.Class + "." + r.Method
	if r.Args != "" {
		id += "(" + r.Args + ")"
	}

	return id
}

// FileTiming attributes the one shared materialization cost of a file,
// keeping it distinguishable from per-method durations.
type FileTiming struct {
	File        Path          `json:"file" yaml:"file"`
	Materialize time.Duration `json:"materialize" yaml:"materialize"`
}

// FileResult is everything one worker produced for one file of a batch.
type FileResult struct {
	File    Path              `json:"file" yaml:"file"`
	Records []ExecutionRecord `json:"records,omitempty" yaml:"records,omitempty"`
	Timing  FileTiming        `json:"timing" yaml:"timing"`
	Skipped int               `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// BatchResult collects the per-file results of one dispatched batch.
type BatchResult struct {
	Index int          `json:"index" yaml:"index"`
	Files []FileResult `json:"files" yaml:"files"`
}

// RunSummary is the terminal artifact of a run: order-independent counts plus
// the full record sequence. Identical record multisets produce identical
// counts regardless of batch completion order.
type RunSummary struct {
	RunID    string    `json:"run_id" yaml:"run_id"`
	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`

	Records []ExecutionRecord `json:"records,omitempty" yaml:"records,omitempty"`
	Timings []FileTiming      `json:"timings,omitempty" yaml:"timings,omitempty"`

	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Errored int `json:"errored" yaml:"errored"`
	Skipped int `json:"skipped" yaml:"skipped"`

	Collected int `json:"collected" yaml:"collected"`
	Executed  int `json:"executed" yaml:"executed"`

	FilesScanned   int `json:"files_scanned" yaml:"files_scanned"`
	FilesWithTests int `json:"files_with_tests" yaml:"files_with_tests"`
	Unparsable     int `json:"unparsable" yaml:"unparsable"`
	Unreadable     int `json:"unreadable" yaml:"unreadable"`
}

// Total returns how many execution records the run produced.
func (s RunSummary) Total() int {
	return s.Passed + s.Failed + s.Errored
}

// Clean reports whether the run had no failures, errors, or discovery
// problems. Strict mode uses it to derive the exit status.
func (s RunSummary) Clean(strictDiscovery bool) bool {
	if s.Failed > 0 || s.Errored > 0 {
		return false
	}

	if strictDiscovery && (s.Unparsable > 0 || s.Unreadable > 0) {
		return false
	}

	return true
}

// Duration returns the wall-clock time of the whole run.
func (s RunSummary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}
