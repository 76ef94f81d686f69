// Package domain implements test discovery, batching, execution, and result
// aggregation for jolt.
package domain

import (
	"strings"

	"github.com/dop251/goja/ast"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

const (
	// DefaultClassPrefix marks test classes.
	DefaultClassPrefix = "Test"
	// DefaultMethodPrefix marks test methods inside a test class.
	DefaultMethodPrefix = "test"
)

// Discoverer statically extracts test classes, their methods, and module
// references from source text. It parses and inspects only; the source is
// never evaluated, so discovering a file is free of side effects and
// idempotent.
type Discoverer struct {
	files        adapter.ScriptFileAdapter
	classPrefix  string
	methodPrefix string
}

// NewDiscoverer constructs a Discoverer. Empty prefixes fall back to the
// defaults.
func NewDiscoverer(files adapter.ScriptFileAdapter, classPrefix, methodPrefix string) *Discoverer {
	if classPrefix == "" {
		classPrefix = DefaultClassPrefix
	}

	if methodPrefix == "" {
		methodPrefix = DefaultMethodPrefix
	}

	return &Discoverer{
		files:        files,
		classPrefix:  classPrefix,
		methodPrefix: methodPrefix,
	}
}

// Discover parses one file's source text and returns everything the engine
// needs to know about it. Parse failures are data, not faults: the result
// carries the error and empty classes/imports, and the run continues.
func (d *Discoverer) Discover(file m.Path, source string) m.DiscoveryResult {
	program, err := d.files.Parse(file, source)
	if err != nil {
		return m.DiscoveryResult{
			File: file,
			ParseError: &m.DiscoveryError{
				Kind:    m.DiscoverySyntaxError,
				Message: err.Error(),
			},
		}
	}

	result := m.DiscoveryResult{File: file}

	// Only module-body statements are inspected. Classes or requires nested
	// in functions or conditionals are intentionally invisible.
	for _, statement := range program.Body {
		switch stmt := statement.(type) {
		case *ast.ClassDeclaration:
			if class, ok := d.testClassOf(stmt.Class); ok {
				result.Classes = append(result.Classes, class)
			}
		case *ast.VariableStatement:
			result.Imports = append(result.Imports, requiresOfBindings(stmt.List)...)
		case *ast.LexicalDeclaration:
			result.Imports = append(result.Imports, requiresOfBindings(stmt.List)...)
		case *ast.ExpressionStatement:
			result.Imports = append(result.Imports, requiresOfExpression(stmt.Expression)...)
		}
	}

	return result
}

// testClassOf filters one top-level class literal down to its test methods.
// The class qualifies by name prefix; its immediate body is scanned for
// plain, non-static methods carrying the method prefix, in declaration order.
func (d *Discoverer) testClassOf(class *ast.ClassLiteral) (m.TestClass, bool) {
	if class == nil || class.Name == nil {
		return m.TestClass{}, false
	}

	name := class.Name.Name.String()
	if !strings.HasPrefix(name, d.classPrefix) {
		return m.TestClass{}, false
	}

	test := m.TestClass{Name: name}

	for _, element := range class.Body {
		method, ok := element.(*ast.MethodDefinition)
		if !ok || method.Static || method.Computed || method.Kind != ast.PropertyKindMethod {
			continue
		}

		methodName := propertyName(method.Key)
		if methodName != "" && strings.HasPrefix(methodName, d.methodPrefix) {
			test.Methods = append(test.Methods, methodName)
		}
	}

	return test, true
}

// propertyName resolves statically-known property keys. Computed keys have no
// static name and yield "".
func propertyName(key ast.Expression) string {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name.String()
	case *ast.StringLiteral:
		return k.Value.String()
	}

	return ""
}

// requiresOfBindings records module references from declaration forms:
//
//	const fs = require("fs")            -> fs
//	const { a, b } = require("./util")  -> ./util.a, ./util.b
func requiresOfBindings(bindings []*ast.Binding) []m.ImportRecord {
	var records []m.ImportRecord

	for _, binding := range bindings {
		if binding == nil || binding.Initializer == nil {
			continue
		}

		module, ok := requireTarget(binding.Initializer)
		if !ok {
			continue
		}

		pattern, ok := binding.Target.(*ast.ObjectPattern)
		if !ok {
			records = append(records, m.ImportRecord{Module: module})
			continue
		}

		for _, property := range pattern.Properties {
			if symbol := destructuredName(property); symbol != "" {
				records = append(records, m.ImportRecord{Module: module, Symbol: symbol})
			}
		}
	}

	return records
}

// requiresOfExpression records module references from expression forms:
//
//	require("./setup")                  -> ./setup
//	cached = require("cache")           -> cache
func requiresOfExpression(expr ast.Expression) []m.ImportRecord {
	switch e := expr.(type) {
	case *ast.CallExpression:
		if module, ok := requireTarget(e); ok {
			return []m.ImportRecord{{Module: module}}
		}
	case *ast.AssignExpression:
		if module, ok := requireTarget(e.Right); ok {
			return []m.ImportRecord{{Module: module}}
		}
	}

	return nil
}

// requireTarget matches a require call with a single string-literal argument
// and returns the specifier verbatim, leading dots included.
func requireTarget(expr ast.Expression) (string, bool) {
	call, ok := expr.(*ast.CallExpression)
	if !ok {
		return "", false
	}

	callee, ok := call.Callee.(*ast.Identifier)
	if !ok || callee.Name.String() != "require" || len(call.ArgumentList) != 1 {
		return "", false
	}

	literal, ok := call.ArgumentList[0].(*ast.StringLiteral)
	if !ok {
		return "", false
	}

	return literal.Value.String(), true
}

// destructuredName resolves the imported symbol of one destructuring
// property. For renames (`{ a: b }`) the source name is recorded.
func destructuredName(property ast.Property) string {
	switch p := property.(type) {
	case *ast.PropertyShort:
		return p.Name.Name.String()
	case *ast.PropertyKeyed:
		return propertyName(p.Key)
	}

	return ""
}
