package model

import "testing"

func TestParseFilter(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		want    Filter
	}{
		{"empty", "", Filter{}},
		{"file only", "math", Filter{File: "math"}},
		{"file and class", "math.TestAdd", Filter{File: "math", Class: "TestAdd"}},
		{"full", "math.TestAdd.test_sum", Filter{File: "math", Class: "TestAdd", Method: "test_sum"}},
		{"stars collapse", "*.*.test_sum", Filter{Method: "test_sum"}},
		{"star file", "*.TestAdd", Filter{Class: "TestAdd"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseFilter(tc.pattern, "")
			if got != tc.want {
				t.Fatalf("ParseFilter(%q) = %+v, want %+v", tc.pattern, got, tc.want)
			}
		})
	}
}

func TestFilterMatchFile(t *testing.T) {
	filter := ParseFilter("math", "")

	if !filter.MatchFile("suite/math.test.js") {
		t.Fatalf("expected stem match for suite/math.test.js")
	}

	if filter.MatchFile("suite/other.test.js") {
		t.Fatalf("did not expect match for suite/other.test.js")
	}
}

func TestFilterWildcards(t *testing.T) {
	filter := ParseFilter("*.Test*.test_a*", "")

	if !filter.MatchClass("TestMath") {
		t.Fatalf("expected prefix wildcard to match TestMath")
	}

	if filter.MatchClass("Helper") {
		t.Fatalf("did not expect Helper to match Test*")
	}

	if !filter.MatchMethod("test_add") {
		t.Fatalf("expected test_a* to match test_add")
	}

	if filter.MatchMethod("test_sub") {
		t.Fatalf("did not expect test_a* to match test_sub")
	}
}

func TestFilterSuffixWildcard(t *testing.T) {
	filter := Filter{Method: "*_slow"}

	if !filter.MatchMethod("test_big_slow") {
		t.Fatalf("expected *_slow to match test_big_slow")
	}

	if filter.MatchMethod("test_fast") {
		t.Fatalf("did not expect *_slow to match test_fast")
	}
}

func TestFilterEmpty(t *testing.T) {
	if !ParseFilter("", "").Empty() {
		t.Fatalf("expected empty filter")
	}

	if ParseFilter("", "smoke").Empty() {
		t.Fatalf("suite selection should not be empty")
	}
}
