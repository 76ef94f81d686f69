package model

import (
	"path/filepath"
	"strings"
)

// Filter selects which discovered methods execute. The name pattern has the
// form file.class.method where each part may be * (or be omitted from the
// right) to match anything. Suite selects only methods tagged with that suite
// name at materialization time.
type Filter struct {
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Class  string `json:"class,omitempty" yaml:"class,omitempty"`
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
	Suite  string `json:"suite,omitempty" yaml:"suite,omitempty"`
}

// ParseFilter splits a file.class.method pattern into a Filter. Missing or
// empty parts match anything. The file part matches against the path base
// with the extension stripped, mirroring how tests are addressed in reports.
func ParseFilter(pattern, suite string) Filter {
	filter := Filter{Suite: suite}

	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return filter
	}

	parts := strings.SplitN(pattern, ".", 3)

	filter.File = filterPart(parts, 0)
	filter.Class = filterPart(parts, 1)
	filter.Method = filterPart(parts, 2)

	return filter
}

func filterPart(parts []string, index int) string {
	if index >= len(parts) {
		return ""
	}

	part := strings.TrimSpace(parts[index])
	if part == "*" {
		return ""
	}

	return part
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return f.File == "" && f.Class == "" && f.Method == "" && f.Suite == ""
}

// MatchFile reports whether a file may contain selected methods. The match is
// against the path base without extension, so "math" selects "a/math.test.js".
func (f Filter) MatchFile(file Path) bool {
	if f.File == "" {
		return true
	}

	return matchPart(f.File, fileStem(file))
}

// MatchClass reports whether the class name is selected.
func (f Filter) MatchClass(class string) bool {
	if f.Class == "" {
		return true
	}

	return matchPart(f.Class, class)
}

// MatchMethod reports whether the method name is selected.
func (f Filter) MatchMethod(method string) bool {
	if f.Method == "" {
		return true
	}

	return matchPart(f.Method, method)
}

// matchPart supports a single trailing or leading * wildcard besides exact
// matches, which covers the patterns tests are addressed by in practice.
func matchPart(pattern, name string) bool {
	switch {
	case pattern == "*" || pattern == "":
		return true
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(name, strings.TrimPrefix(pattern, "*"))
	}

	return pattern == name
}

// fileStem returns the path base with every extension stripped, so both
// "dir/math.test.js" and "dir/test_math.js" reduce to a stable stem.
func fileStem(file Path) string {
	base := filepath.Base(string(file))
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}

	return base
}
