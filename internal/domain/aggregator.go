package domain

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	m "jolt.dev/pkg/jolt/internal/model"
)

// Aggregator merges streamed file results into the run summary. Results may
// arrive in any order from any number of workers; the counts depend only on
// the multiset of records, and Finish reorders the record sequence into
// catalog order so the same run prints the same report at any worker count.
type Aggregator struct {
	mu      sync.Mutex
	order   map[m.Path]int
	summary m.RunSummary
}

// NewAggregator seeds a summary with everything discovery already knows about
// the run.
func NewAggregator(catalog m.Catalog) *Aggregator {
	syntaxFailures, readFailures := catalog.Unparsable()

	order := make(map[m.Path]int, len(catalog))
	for i, result := range catalog {
		order[result.File] = i
	}

	return &Aggregator{
		order: order,
		summary: m.RunSummary{
			RunID:          uuid.NewString(),
			Started:        time.Now(),
			Collected:      catalog.MethodCount(),
			FilesScanned:   len(catalog),
			FilesWithTests: catalog.FilesWithTests(),
			Unparsable:     syntaxFailures,
			Unreadable:     readFailures,
		},
	}
}

// Add merges one file's results. Safe for concurrent use.
func (a *Aggregator) Add(result m.FileResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.summary.Records = append(a.summary.Records, result.Records...)
	a.summary.Skipped += result.Skipped

	if result.Timing.Materialize > 0 {
		a.summary.Timings = append(a.summary.Timings, result.Timing)
	}

	for _, record := range result.Records {
		a.summary.Executed++

		switch record.Outcome {
		case m.Pass:
			a.summary.Passed++
		case m.Fail:
			a.summary.Failed++
		case m.Error:
			a.summary.Errored++
		}
	}
}

// Finish stamps the end time and returns the summary with records sorted
// into catalog order; within one file, execution order is preserved.
func (a *Aggregator) Finish() m.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.summary.Finished = time.Now()

	records := a.summary.Records
	sort.SliceStable(records, func(i, j int) bool {
		return a.order[records[i].File] < a.order[records[j].File]
	})

	timings := a.summary.Timings
	sort.SliceStable(timings, func(i, j int) bool {
		return a.order[timings[i].File] < a.order[timings[j].File]
	})

	return a.summary
}

// MergeSummaries combines stored run summaries into one, for runs sharded
// across machines and merged after the fact. Counts add up, record sequences
// concatenate in input order, and the merged summary gets a fresh run ID
// spanning the earliest start to the latest finish.
func MergeSummaries(summaries []m.RunSummary) m.RunSummary {
	merged := m.RunSummary{RunID: uuid.NewString()}

	for i, summary := range summaries {
		if i == 0 || summary.Started.Before(merged.Started) {
			merged.Started = summary.Started
		}

		if summary.Finished.After(merged.Finished) {
			merged.Finished = summary.Finished
		}

		merged.Records = append(merged.Records, summary.Records...)
		merged.Timings = append(merged.Timings, summary.Timings...)

		merged.Passed += summary.Passed
		merged.Failed += summary.Failed
		merged.Errored += summary.Errored
		merged.Skipped += summary.Skipped
		merged.Collected += summary.Collected
		merged.Executed += summary.Executed
		merged.FilesScanned += summary.FilesScanned
		merged.FilesWithTests += summary.FilesWithTests
		merged.Unparsable += summary.Unparsable
		merged.Unreadable += summary.Unreadable
	}

	return merged
}
