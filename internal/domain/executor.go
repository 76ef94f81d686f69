package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"

	m "jolt.dev/pkg/jolt/internal/model"
)

// assertBootstrap is evaluated in every fresh runtime before the file under
// test. It provides the one truth-check primitive tests signal failures with;
// outcome classification keys off the AssertionError name.
const assertBootstrap = `
function AssertionError(message) {
    var error = new Error(message || "assertion failed");
    error.name = "AssertionError";
    return error;
}

function assert(condition, message) {
    if (!condition) {
        throw AssertionError(message);
    }
}
`

var assertProgram = goja.MustCompile("jolt:assert", assertBootstrap, false)

var errMethodTimeout = errors.New("method timeout exceeded")

// ExecutorOptions configure batch execution inside a worker.
type ExecutorOptions struct {
	// Filter limits which discovered methods run. Non-matching methods are
	// counted as skipped and produce no record.
	Filter m.Filter

	// MethodTimeout interrupts a single method invocation when positive.
	MethodTimeout time.Duration
}

// Executor is the execution unit that runs inside a worker (or in-process
// when the pool is sized to one). For each file it materializes the source
// once in a fresh runtime shared by all of that file's test methods, then
// invokes the methods in discovery order with per-method isolation.
type Executor struct {
	options ExecutorOptions
}

// NewExecutor constructs an Executor.
func NewExecutor(options ExecutorOptions) *Executor {
	return &Executor{options: options}
}

// consolePrinter routes console output from test code to the log file so
// worker stdout stays reserved for result frames.
type consolePrinter struct{}

func (consolePrinter) Log(s string)   { slog.Info("console.log", "output", s) }
func (consolePrinter) Warn(s string)  { slog.Warn("console.warn", "output", s) }
func (consolePrinter) Error(s string) { slog.Error("console.error", "output", s) }

// plannedMethod is one method invocation selected by the name filter.
type plannedMethod struct {
	class  string
	method string
}

// ExecuteBatch runs every file of the batch and hands each file's result to
// sink as soon as the file completes. Streaming per file is what lets the
// pool substitute precise error records when a worker dies mid-batch. Files
// with no discovered test classes keep their batch slot but are skipped here.
func (e *Executor) ExecuteBatch(ctx context.Context, batch m.Batch, sink func(m.FileResult)) {
	for _, item := range batch.Items {
		if item.MethodCount() == 0 {
			continue
		}

		sink(e.executeFile(ctx, item))
	}
}

// executeFile materializes one file and runs its selected methods. Every
// fault is contained at the smallest unit it occurs in: a method fault yields
// one error record, a materialization fault yields error records for all of
// the file's selected methods, and neither aborts the rest of the batch.
func (e *Executor) executeFile(ctx context.Context, item m.BatchItem) m.FileResult {
	result := m.FileResult{File: item.File, Timing: m.FileTiming{File: item.File}}

	planned, skipped := e.planMethods(item)
	result.Skipped = skipped

	if len(planned) == 0 {
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Records = substituteRecords(item.File, planned, "run cancelled before execution")
		return result
	}

	if item.ReadError != "" {
		result.Records = substituteRecords(item.File, planned, "file read failed: "+item.ReadError)
		return result
	}

	vm, err := e.newRuntime(item)
	if err != nil {
		result.Records = substituteRecords(item.File, planned, "runtime setup failed: "+err.Error())
		return result
	}

	// One shared materialization per file; its cost is attributed to the
	// file timing, never to any method's duration.
	start := time.Now()
	err = materialize(vm, item)
	result.Timing.Materialize = time.Since(start)

	if err != nil {
		result.Records = substituteRecords(item.File, planned, "materialization failed: "+faultDetail(err))
		return result
	}

	result.Records = e.runPlanned(ctx, vm, item, planned, &result.Skipped)

	return result
}

// planMethods applies the name filter to the item's discovered methods,
// preserving discovery order. Suite selection cannot be decided statically
// and is applied after materialization.
func (e *Executor) planMethods(item m.BatchItem) ([]plannedMethod, int) {
	var planned []plannedMethod

	skipped := 0

	if !e.options.Filter.MatchFile(item.File) {
		return nil, item.MethodCount()
	}

	for _, class := range item.Classes {
		if !e.options.Filter.MatchClass(class.Name) {
			skipped += len(class.Methods)
			continue
		}

		for _, method := range class.Methods {
			if !e.options.Filter.MatchMethod(method) {
				skipped++
				continue
			}

			planned = append(planned, plannedMethod{class: class.Name, method: method})
		}
	}

	return planned, skipped
}

// newRuntime builds the fresh namespace one file materializes into: a new
// runtime with require resolving relative to the file, console routed to the
// log, and the assert primitive installed.
func (e *Executor) newRuntime(item m.BatchItem) (*goja.Runtime, error) {
	vm := goja.New()

	registry := require.NewRegistry(require.WithGlobalFolders(filepath.Dir(string(item.File))))
	registry.RegisterNativeModule("console", console.RequireWithPrinter(consolePrinter{}))
	registry.Enable(vm)
	console.Enable(vm)

	if _, err := vm.RunProgram(assertProgram); err != nil {
		return nil, fmt.Errorf("installing assert: %w", err)
	}

	return vm, nil
}

// materialize compiles and evaluates the file's source once. The program
// name is the file path so require() resolves relative specifiers and stack
// traces point at the real file.
func materialize(vm *goja.Runtime, item m.BatchItem) error {
	program, err := goja.Compile(string(item.File), item.Source, false)
	if err != nil {
		return err
	}

	_, err = vm.RunProgram(program)

	return err
}

// runPlanned instantiates each class once and invokes its selected methods in
// discovery order.
func (e *Executor) runPlanned(ctx context.Context, vm *goja.Runtime, item m.BatchItem, planned []plannedMethod, skipped *int) []m.ExecutionRecord {
	var records []m.ExecutionRecord

	instances := make(map[string]*goja.Object)
	broken := make(map[string]string)

	for index, plan := range planned {
		if err := ctx.Err(); err != nil {
			records = append(records, substituteRecords(item.File, planned[index:], "run cancelled")...)
			return records
		}

		if detail, bad := broken[plan.class]; bad {
			records = append(records, errorRecord(item.File, plan, detail))
			continue
		}

		instance, ok := instances[plan.class]
		if !ok {
			built, err := instantiate(vm, plan.class)
			if err != nil {
				detail := err.Error()
				broken[plan.class] = detail
				records = append(records, errorRecord(item.File, plan, detail))

				continue
			}

			instance = built
			instances[plan.class] = instance
		}

		records = append(records, e.invokeMethod(vm, instance, item.File, plan, skipped)...)
	}

	return records
}

// instantiate resolves the class binding by its discovered name and
// constructs one instance shared by the class's methods. The name is
// evaluated as an expression because top-level class declarations create
// lexical bindings, not global object properties.
func instantiate(vm *goja.Runtime, className string) (*goja.Object, error) {
	value, err := vm.RunString(className)
	if err != nil {
		return nil, fmt.Errorf("class %s is not defined after materialization", className)
	}

	constructor, ok := goja.AssertConstructor(value)
	if !ok {
		return nil, fmt.Errorf("%s is not a constructable class", className)
	}

	instance, err := constructor(nil)
	if err != nil {
		return nil, fmt.Errorf("constructing %s: %s", className, faultDetail(err))
	}

	return instance, nil
}

// invokeMethod runs one planned method, expanding parameterized methods into
// one invocation per argument tuple. Suite tags are read off the function
// object at this point because they only exist after materialization.
func (e *Executor) invokeMethod(vm *goja.Runtime, instance *goja.Object, file m.Path, plan plannedMethod, skipped *int) []m.ExecutionRecord {
	value := instance.Get(plan.method)
	if value == nil || goja.IsUndefined(value) {
		return []m.ExecutionRecord{errorRecord(file, plan, "method "+plan.method+" not found on "+plan.class)}
	}

	callable, ok := goja.AssertFunction(value)
	if !ok {
		return []m.ExecutionRecord{errorRecord(file, plan, plan.method+" is not a function")}
	}

	function := value.ToObject(vm)

	if e.options.Filter.Suite != "" && !taggedWith(function, e.options.Filter.Suite) {
		*skipped++
		return nil
	}

	tuples := paramTuples(function)
	if tuples == nil {
		return []m.ExecutionRecord{e.invokeOnce(vm, callable, instance, file, plan, nil)}
	}

	records := make([]m.ExecutionRecord, 0, len(tuples))
	for _, tuple := range tuples {
		records = append(records, e.invokeOnce(vm, callable, instance, file, plan, tuple))
	}

	return records
}

// invokeOnce performs a single timed invocation and classifies its outcome.
func (e *Executor) invokeOnce(vm *goja.Runtime, callable goja.Callable, instance *goja.Object, file m.Path, plan plannedMethod, args []interface{}) m.ExecutionRecord {
	record := m.ExecutionRecord{
		File:   file,
		Class:  plan.class,
		Method: plan.method,
		Args:   renderArgs(args),
	}

	values := make([]goja.Value, 0, len(args))
	for _, arg := range args {
		values = append(values, vm.ToValue(arg))
	}

	var timer *time.Timer
	if e.options.MethodTimeout > 0 {
		timer = time.AfterFunc(e.options.MethodTimeout, func() {
			vm.Interrupt(errMethodTimeout)
		})
	}

	start := time.Now()
	returned, err := callable(instance, values...)
	record.Duration = time.Since(start)

	if timer != nil {
		timer.Stop()
		vm.ClearInterrupt()
	}

	record.Outcome, record.Detail = classify(returned, err, e.options.MethodTimeout)

	return record
}

// classify maps an invocation result onto the outcome taxonomy: assertion
// failures are fail, every other fault is error, anything else passes.
func classify(returned goja.Value, err error, timeout time.Duration) (m.Outcome, string) {
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return m.Error, fmt.Sprintf("timed out after %s", timeout)
		}

		var exception *goja.Exception
		if errors.As(err, &exception) {
			if object, ok := exception.Value().(*goja.Object); ok {
				if name := object.Get("name"); name != nil && name.String() == "AssertionError" {
					return m.Fail, stringProp(object, "message")
				}
			}

			return m.Error, exception.String()
		}

		return m.Error, err.Error()
	}

	if isThenable(returned) {
		return m.Error, "async test methods are not supported"
	}

	return m.Pass, ""
}

// faultDetail renders a materialization or construction fault, preferring
// the thrown value's own rendering.
func faultDetail(err error) string {
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return exception.String()
	}

	return err.Error()
}

// isThenable detects returned promises so unsupported async methods surface
// as errors instead of false passes.
func isThenable(value goja.Value) bool {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return false
	}

	object, ok := value.(*goja.Object)
	if !ok {
		return false
	}

	then := object.Get("then")
	if then == nil {
		return false
	}

	_, callable := goja.AssertFunction(then)

	return callable
}

// taggedWith reports whether the method function carries the suite tag.
func taggedWith(function *goja.Object, suite string) bool {
	value := function.Get("suites")
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return false
	}

	tags, ok := value.Export().([]interface{})
	if !ok {
		return false
	}

	for _, tag := range tags {
		if name, ok := tag.(string); ok && name == suite {
			return true
		}
	}

	return false
}

// paramTuples reads the params property off the method function. Nil means
// the method is not parameterized; scalar entries become single-argument
// tuples.
func paramTuples(function *goja.Object) [][]interface{} {
	value := function.Get("params")
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil
	}

	entries, ok := value.Export().([]interface{})
	if !ok {
		return nil
	}

	tuples := make([][]interface{}, 0, len(entries))

	for _, entry := range entries {
		if tuple, ok := entry.([]interface{}); ok {
			tuples = append(tuples, tuple)
			continue
		}

		tuples = append(tuples, []interface{}{entry})
	}

	return tuples
}

// renderArgs renders an argument tuple the way it appears in reports.
func renderArgs(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}

	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, fmt.Sprintf("%v", arg))
	}

	return strings.Join(parts, ", ")
}

// substituteRecords marks every remaining planned method with the same
// root-cause detail. Used for materialization faults, read failures, and
// cancellation.
func substituteRecords(file m.Path, planned []plannedMethod, detail string) []m.ExecutionRecord {
	records := make([]m.ExecutionRecord, 0, len(planned))
	for _, plan := range planned {
		records = append(records, errorRecord(file, plan, detail))
	}

	return records
}

func errorRecord(file m.Path, plan plannedMethod, detail string) m.ExecutionRecord {
	return m.ExecutionRecord{
		File:    file,
		Class:   plan.class,
		Method:  plan.method,
		Outcome: m.Error,
		Detail:  detail,
	}
}

func stringProp(object *goja.Object, name string) string {
	value := object.Get(name)
	if value == nil || goja.IsUndefined(value) {
		return ""
	}

	return value.String()
}
