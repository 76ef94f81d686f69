package domain

import (
	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// DefaultBatchSize is the number of files per batch when none is configured.
// Tens of files amortize worker startup without making crash substitution
// coarse.
const DefaultBatchSize = 25

// MakeBatches partitions the catalog into contiguous slices of at most
// batchSize files, in catalog order. Contiguity is a diagnostic nicety, not a
// correctness requirement: failures in one batch cluster near their source in
// reports. Files with zero discovered classes keep their slot; they are
// skipped at dispatch rather than filtered here.
func MakeBatches(catalog m.Catalog, batchSize int) []m.Batch {
	if batchSize < 1 {
		batchSize = 1
	}

	var batches []m.Batch

	for start := 0; start < len(catalog); start += batchSize {
		end := min(start+batchSize, len(catalog))

		batch := m.Batch{Index: len(batches)}
		for _, result := range catalog[start:end] {
			batch.Items = append(batch.Items, m.BatchItem{
				File:    result.File,
				Classes: result.Classes,
			})
		}

		batches = append(batches, batch)
	}

	return batches
}

// HydrateBatch loads source text for every item that will actually execute.
// Sources are read at dispatch time so only in-flight batches hold file
// contents in memory. A file that cannot be read anymore is marked on the
// item; the execution unit turns that into error records for its methods.
func HydrateBatch(fs adapter.SourceFSAdapter, batch *m.Batch) {
	for i := range batch.Items {
		item := &batch.Items[i]

		if item.MethodCount() == 0 || item.Source != "" || item.ReadError != "" {
			continue
		}

		content, err := fs.ReadFile(item.File)
		if err != nil {
			item.ReadError = err.Error()
			continue
		}

		item.Source = string(content)
	}
}
