package model

// Path represents a file system path.
type Path string

// SourceUnit couples a file path with its raw text. It is read once during
// discovery and travels inside batches so workers never touch the filesystem.
type SourceUnit struct {
	Path   Path
	Source string
}

// ImportRecord captures one module reference found in a source file: a
// top-level CommonJS require call. Symbol is empty for whole-module requires;
// destructuring requires produce one record per bound name. Relative
// specifiers keep their leading dots verbatim in Module so records round-trip
// losslessly.
type ImportRecord struct {
	Module string `json:"module" yaml:"module"`
	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
}

// String renders the record as a dotted name, Module alone when no symbol
// was imported.
func (r ImportRecord) String() string {
	if r.Symbol == "" {
		return r.Module
	}

	return r.Module + "." + r.Symbol
}

// TestClass is one discovered test class: its name and its test methods in
// declaration order.
type TestClass struct {
	Name    string   `json:"name" yaml:"name"`
	Methods []string `json:"methods" yaml:"methods"`
}

// DiscoveryErrorKind separates files that failed to parse from files that
// could not be read at all. The two are reported separately.
type DiscoveryErrorKind string

const (
	// DiscoverySyntaxError marks source text the parser rejected.
	DiscoverySyntaxError DiscoveryErrorKind = "syntax"
	// DiscoveryReadError marks files that vanished or were unreadable.
	DiscoveryReadError DiscoveryErrorKind = "read"
)

// DiscoveryError records why a file contributed nothing to the catalog.
type DiscoveryError struct {
	Kind    DiscoveryErrorKind `json:"kind" yaml:"kind"`
	Message string             `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// DiscoveryResult is everything discovery learned about one file. When
// ParseError is set, Classes and Imports are empty; the file is still
// recorded rather than silently dropped.
type DiscoveryResult struct {
	File       Path            `json:"file" yaml:"file"`
	Classes    []TestClass     `json:"classes,omitempty" yaml:"classes,omitempty"`
	Imports    []ImportRecord  `json:"imports,omitempty" yaml:"imports,omitempty"`
	ParseError *DiscoveryError `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
}

// MethodCount returns the number of test methods across all classes.
func (r DiscoveryResult) MethodCount() int {
	count := 0
	for _, class := range r.Classes {
		count += len(class.Methods)
	}

	return count
}

// Catalog is the ordered sequence of discovery results over all scanned
// files, preserving scanner order. Built once per run, read-only afterwards.
type Catalog []DiscoveryResult

// MethodCount returns the number of discovered test methods in the catalog.
func (c Catalog) MethodCount() int {
	count := 0
	for _, result := range c {
		count += result.MethodCount()
	}

	return count
}

// FilesWithTests returns how many files contributed at least one test class.
func (c Catalog) FilesWithTests() int {
	count := 0
	for _, result := range c {
		if len(result.Classes) > 0 {
			count++
		}
	}

	return count
}

// Unparsable returns how many files failed discovery, split by kind.
func (c Catalog) Unparsable() (syntax, read int) {
	for _, result := range c {
		if result.ParseError == nil {
			continue
		}

		switch result.ParseError.Kind {
		case DiscoverySyntaxError:
			syntax++
		case DiscoveryReadError:
			read++
		}
	}

	return syntax, read
}
