package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

func newTestDiscoverer() *Discoverer {
	return NewDiscoverer(adapter.NewLocalScriptFileAdapter(), "", "")
}

func TestDiscoverer_ClassesAndMethodsInSourceOrder(t *testing.T) {
	source := `
class TestFoo {
    test_a() {}
    helperMethod() {}
    test_b() {}
}

class Helper {
    test_ignored() {}
}

class TestBar {
    test_c() {}
}
`

	result := newTestDiscoverer().Discover("foo.test.js", source)

	require.Nil(t, result.ParseError)
	require.Equal(t, []m.TestClass{
		{Name: "TestFoo", Methods: []string{"test_a", "test_b"}},
		{Name: "TestBar", Methods: []string{"test_c"}},
	}, result.Classes)
}

func TestDiscoverer_SkipsStaticGetterSetterAndComputed(t *testing.T) {
	source := `
class TestKinds {
    test_plain() {}
    static test_static() {}
    get test_getter() { return 1; }
    set test_setter(v) {}
    ["test_" + "computed"]() {}
    "test_quoted"() {}
}
`

	result := newTestDiscoverer().Discover("kinds.test.js", source)

	require.Nil(t, result.ParseError)
	require.Len(t, result.Classes, 1)
	require.Equal(t, []string{"test_plain", "test_quoted"}, result.Classes[0].Methods)
}

func TestDiscoverer_NestedClassesInvisible(t *testing.T) {
	source := `
function wrapper() {
    class TestNested {
        test_hidden() {}
    }
    return TestNested;
}

if (true) {
    class TestConditional {
        test_hidden() {}
    }
}
`

	result := newTestDiscoverer().Discover("nested.test.js", source)

	require.Nil(t, result.ParseError)
	require.Empty(t, result.Classes)
}

func TestDiscoverer_SyntaxErrorIsDataNotFault(t *testing.T) {
	result := newTestDiscoverer().Discover("broken.test.js", "class TestBroken {\n    test_oops( {\n}\n")

	require.NotNil(t, result.ParseError)
	require.Equal(t, m.DiscoverySyntaxError, result.ParseError.Kind)
	require.Empty(t, result.Classes)
	require.Empty(t, result.Imports)
}

func TestDiscoverer_Idempotent(t *testing.T) {
	source := `
const fs = require("fs");

class TestOnce {
    test_stable() {}
}
`
	discoverer := newTestDiscoverer()

	first := discoverer.Discover("once.test.js", source)
	second := discoverer.Discover("once.test.js", source)

	require.Equal(t, first, second)
}

func TestDiscoverer_RequireForms(t *testing.T) {
	source := `
const fs = require("fs");
const { add, sub } = require("./calc");
const { join: j } = require("../paths");
let cached;
cached = require("cache");
require("./setup");

function later() {
    require("./not-top-level");
}
`

	result := newTestDiscoverer().Discover("imports.test.js", source)

	require.Nil(t, result.ParseError)
	require.Equal(t, []m.ImportRecord{
		{Module: "fs"},
		{Module: "./calc", Symbol: "add"},
		{Module: "./calc", Symbol: "sub"},
		{Module: "../paths", Symbol: "join"},
		{Module: "cache"},
		{Module: "./setup"},
	}, result.Imports)
}

func TestDiscoverer_RelativeSpecifiersKeepLeadingDots(t *testing.T) {
	source := `const { helper } = require(".");`

	result := newTestDiscoverer().Discover("dot.test.js", source)

	require.Nil(t, result.ParseError)
	require.Equal(t, []m.ImportRecord{{Module: ".", Symbol: "helper"}}, result.Imports)
	require.Equal(t, "..helper", result.Imports[0].String())
	require.Equal(t, ".", result.Imports[0].Module)
}

func TestDiscoverer_CustomPrefixes(t *testing.T) {
	source := `
class SpecMath {
    check_adds() {}
    test_not_this_prefix() {}
}
`

	discoverer := NewDiscoverer(adapter.NewLocalScriptFileAdapter(), "Spec", "check_")
	result := discoverer.Discover("custom.test.js", source)

	require.Equal(t, []m.TestClass{{Name: "SpecMath", Methods: []string{"check_adds"}}}, result.Classes)
}

func TestDiscoverer_ClassWithNoTestMethodsStillRecorded(t *testing.T) {
	source := `
class TestEmpty {
    setup() {}
}
`

	result := newTestDiscoverer().Discover("noop.test.js", source)

	require.Len(t, result.Classes, 1)
	require.Empty(t, result.Classes[0].Methods)
	require.Equal(t, 0, result.MethodCount())
}
