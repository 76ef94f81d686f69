package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	m "jolt.dev/pkg/jolt/internal/model"
)

// ReportStore persists run reports and finds them again. Formats are chosen
// by file extension: .yaml/.yml for YAML, anything else is JSON.
type ReportStore interface {
	// Save writes the report into dir as <run id>.json, creating dir if
	// needed, and returns the written path.
	Save(dir m.Path, report m.RunReport) (m.Path, error)

	// SaveAs writes the report to an explicit path.
	SaveAs(path m.Path, report m.RunReport) error

	// Load reads one report back.
	Load(path m.Path) (m.RunReport, error)

	// List returns the report files in dir, oldest first.
	List(dir m.Path) ([]m.Path, error)

	// Latest loads the most recently written report in dir.
	Latest(dir m.Path) (m.RunReport, m.Path, error)
}

// LocalReportStore implements ReportStore on the local filesystem.
type LocalReportStore struct{}

// NewReportStore constructs a LocalReportStore.
func NewReportStore() *LocalReportStore {
	return &LocalReportStore{}
}

// Save writes the report into dir under its run ID.
func (s *LocalReportStore) Save(dir m.Path, report m.RunReport) (m.Path, error) {
	if report.Summary.RunID == "" {
		return "", fmt.Errorf("report has no run id")
	}

	if err := os.MkdirAll(string(dir), 0o755); err != nil {
		return "", fmt.Errorf("creating report directory %s: %w", dir, err)
	}

	path := m.Path(filepath.Join(string(dir), report.Summary.RunID+".json"))

	return path, s.SaveAs(path, report)
}

// SaveAs writes the report to the given path in the format its extension
// names.
func (s *LocalReportStore) SaveAs(path m.Path, report m.RunReport) error {
	report.Version = m.ReportVersion

	content, err := encodeReport(path, report)
	if err != nil {
		return fmt.Errorf("encoding report %s: %w", path, err)
	}

	if err := os.WriteFile(string(path), content, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}

	return nil
}

// Load reads a report and checks its version.
func (s *LocalReportStore) Load(path m.Path) (m.RunReport, error) {
	content, err := os.ReadFile(string(path))
	if err != nil {
		return m.RunReport{}, fmt.Errorf("reading report %s: %w", path, err)
	}

	var report m.RunReport

	if isYAMLPath(path) {
		err = yaml.Unmarshal(content, &report)
	} else {
		err = json.Unmarshal(content, &report)
	}

	if err != nil {
		return m.RunReport{}, fmt.Errorf("decoding report %s: %w", path, err)
	}

	if report.Version != m.ReportVersion {
		return m.RunReport{}, fmt.Errorf("report %s has version %d, expected %d", path, report.Version, m.ReportVersion)
	}

	return report, nil
}

// List returns report files in dir, oldest first by modification time.
func (s *LocalReportStore) List(dir m.Path) ([]m.Path, error) {
	entries, err := os.ReadDir(string(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("listing reports in %s: %w", dir, err)
	}

	type dated struct {
		path m.Path
		mod  int64
	}

	var reports []dated

	for _, entry := range entries {
		if entry.IsDir() || !isReportPath(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		reports = append(reports, dated{
			path: m.Path(filepath.Join(string(dir), entry.Name())),
			mod:  info.ModTime().UnixNano(),
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].mod != reports[j].mod {
			return reports[i].mod < reports[j].mod
		}

		return reports[i].path < reports[j].path
	})

	paths := make([]m.Path, 0, len(reports))
	for _, report := range reports {
		paths = append(paths, report.path)
	}

	return paths, nil
}

// Latest loads the newest report in dir.
func (s *LocalReportStore) Latest(dir m.Path) (m.RunReport, m.Path, error) {
	paths, err := s.List(dir)
	if err != nil {
		return m.RunReport{}, "", err
	}

	if len(paths) == 0 {
		return m.RunReport{}, "", fmt.Errorf("no reports found in %s", dir)
	}

	path := paths[len(paths)-1]

	report, err := s.Load(path)

	return report, path, err
}

func encodeReport(path m.Path, report m.RunReport) ([]byte, error) {
	if isYAMLPath(path) {
		return yaml.Marshal(report)
	}

	return json.MarshalIndent(report, "", "  ")
}

func isYAMLPath(path m.Path) bool {
	ext := strings.ToLower(filepath.Ext(string(path)))

	return ext == ".yaml" || ext == ".yml"
}

func isReportPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))

	return ext == ".json" || ext == ".yaml" || ext == ".yml"
}
