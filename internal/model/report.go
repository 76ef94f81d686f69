package model

// ReportVersion is the current on-disk report format version.
const ReportVersion = 1

// RunReport is the persisted form of a finished run: the summary plus the
// discovery catalog (which carries no source text, only derived metadata).
// Reports are stored as JSON or YAML and can be reloaded, merged, and
// compared.
type RunReport struct {
	Version int        `json:"version" yaml:"version"`
	Summary RunSummary `json:"summary" yaml:"summary"`
	Catalog Catalog    `json:"catalog,omitempty" yaml:"catalog,omitempty"`
}

// FailingIDs returns the sorted-input-order identities of every record whose
// outcome is fail or error. Used by report comparison.
func (r RunReport) FailingIDs() []string {
	var ids []string

	for _, record := range r.Summary.Records {
		if record.Outcome == Pass {
			continue
		}

		ids = append(ids, record.ID()+" ["+string(record.Outcome)+"]")
	}

	return ids
}
