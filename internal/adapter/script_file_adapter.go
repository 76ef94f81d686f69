package adapter

import (
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	m "jolt.dev/pkg/jolt/internal/model"
)

// ScriptFileAdapter encapsulates JavaScript grammar concerns so the domain
// layer can focus on discovery rules while delegating parsing details to an
// infrastructure component.
type ScriptFileAdapter interface {
	// Parse builds an AST for the provided filename/source pair without
	// evaluating the source.
	Parse(filename m.Path, src string) (*ast.Program, error)
}

// LocalScriptFileAdapter provides a concrete ScriptFileAdapter backed by the
// goja parser.
type LocalScriptFileAdapter struct{}

// NewLocalScriptFileAdapter constructs a LocalScriptFileAdapter.
func NewLocalScriptFileAdapter() *LocalScriptFileAdapter {
	return &LocalScriptFileAdapter{}
}

// Parse builds an AST for the provided filename/source pair.
func (a *LocalScriptFileAdapter) Parse(filename m.Path, src string) (*ast.Program, error) {
	program, err := parser.ParseFile(nil, string(filename), src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	return program, nil
}
