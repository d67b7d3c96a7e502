// Package realm builds the per-realm initial object graph (spec.md §2
// "Realm / Intrinsics"): the intrinsic prototypes, the global object and
// its environment, the host hooks, and the builtin catalog surface the VM's
// builtin contract requires. Only enough builtins are implemented in full
// to drive the engine's observable surfaces and the end-to-end semantics
// spec.md §8 exercises; the rest of the catalog is a contract each new
// builtin satisfies by registering a native function here (spec.md §1:
// "Individual builtins ... are implementations of that contract").
package realm

import (
	"reflect"

	"github.com/BasixKOR/boa/internal/bytecode"
	"github.com/BasixKOR/boa/internal/config"
	"github.com/BasixKOR/boa/internal/environment"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/logger"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/parser"
	"github.com/BasixKOR/boa/internal/promise"
	"github.com/BasixKOR/boa/internal/shape"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// ModuleLoader is the pluggable resolver interface spec.md §6 names; the
// embedder supplies one, the realm only calls through it.
type ModuleLoader interface {
	Resolve(referrer, specifier string) (string, error)
	Load(resolved string) (string, error)
}

// HostHooks collects the embedder-implemented callbacks of spec.md §6.
// Every field is optional; zero values give the spec's default behavior.
type HostHooks struct {
	PromiseRejectionTracker    func(p *object.Object, operation string)
	EnsureCanCompileStrings    func(parameters, body string, direct bool) error
	HasSourceTextAvailable     func(fn *object.Object) bool
	EnsureCanAddPrivateElement func(obj *object.Object) error
	LocalTimezoneOffsetSeconds func(unixSeconds int64) int
	MaxBufferSize              func() int
	Loader                     ModuleLoader
}

// Realm is one self-contained set of intrinsics, a global object, and its
// global environment (spec.md GLOSSARY "Realm").
type Realm struct {
	Heap     *gc.Heap
	Tree     *shape.Tree
	Interner *intern.Table
	Options  config.Options
	Jobs     *promise.Queue
	VM       *vm.VM
	Log      logger.Log

	Global    *object.Object
	GlobalEnv *environment.Env
	Hooks     HostHooks

	intr        *vm.Intrinsics
	errorProtos map[errors.Kind]*object.Object
	errorCtors  map[string]*object.Object

	hostDefined map[reflect.Type]any
}

// New bootstraps a realm with standard intrinsics (spec.md §6
// Context::new). The logger is the realm's own diagnostic channel,
// separate from JS-visible errors.
func New(opts config.Options, log logger.Log) *Realm {
	interner := intern.NewTable()
	heap := gc.NewHeap()
	tree := shape.NewTree(interner)
	jobs := &promise.Queue{}

	r := &Realm{
		Heap:        heap,
		Tree:        tree,
		Interner:    interner,
		Options:     opts,
		Jobs:        jobs,
		Log:         log,
		hostDefined: make(map[reflect.Type]any),
		errorProtos: make(map[errors.Kind]*object.Object),
		errorCtors:  make(map[string]*object.Object),
	}
	r.VM = vm.New(heap, tree, interner, &r.Options, jobs)
	r.bootstrapIntrinsics()
	heap.AddRoot(r.roots)
	return r
}

func (r *Realm) roots() []gc.Traceable {
	out := []gc.Traceable{r.Global, r.GlobalEnv}
	for _, p := range r.errorProtos {
		out = append(out, p)
	}
	intr := r.intr
	for _, o := range []*object.Object{
		intr.ObjectProto, intr.FunctionProto, intr.ArrayProto, intr.StringProto,
		intr.NumberProto, intr.BooleanProto, intr.SymbolProto, intr.BigIntProto,
		intr.GeneratorProto, intr.PromiseProto, intr.RegExpProto, intr.IteratorProto,
	} {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// HostDefined is the realm-scoped typed bag spec.md §6 exposes: one value
// per Go type identity.
func (r *Realm) HostDefined() map[reflect.Type]any { return r.hostDefined }

// SetHostDefined stores v under its dynamic type.
func (r *Realm) SetHostDefined(v any) { r.hostDefined[reflect.TypeOf(v)] = v }

// Eval parses, compiles, and runs a script source, returning its completion
// value (spec.md §6 Context::eval). Each call is one VM turn: the budget
// resets and the WeakRef keep-alive list clears when it returns.
func (r *Realm) Eval(source string) (value.Value, error) {
	cb, err := r.CompileScript(source, false)
	if err != nil {
		return value.Undefined, err
	}
	r.VM.ResetBudget()
	v, err := r.VM.RunProgram(cb)
	r.Heap.EndTurn()
	return v, err
}

// CompileScript runs the front half of the pipeline (lexer, parser, early
// errors, bytecode compiler) without executing.
func (r *Realm) CompileScript(source string, isModule bool) (*bytecode.CodeBlock, error) {
	prog, err := parser.ParseProgramStrict(source, r.Interner, isModule, r.Options.StrictModeByDefault)
	if err != nil {
		if pe, ok := err.(*parser.Error); ok {
			r.Log.AddError(nil, logger.Loc{Start: pe.Loc.Start}, pe.Msg)
			return nil, errors.New(errors.KindSyntax, "%s", pe.Msg)
		}
		return nil, err
	}
	cb, err := bytecode.Compile(prog, r.Interner)
	if err != nil {
		return nil, err
	}
	cb.SetSourceRecursive(source)
	return cb, nil
}

// RunJobs drains the microtask queue to empty, running finalizers queued by
// the collector as ordinary jobs, then ends the turn (spec.md §4.7 "Drained
// by the embedder between script turns"; §4.6 keep-alive clearing).
func (r *Realm) RunJobs() {
	onUnhandled := func(err error) {
		r.Log.AddError(nil, logger.Loc{}, "unhandled job error: "+err.Error())
	}
	r.VM.ResetBudget()
	r.Jobs.Drain(onUnhandled)
	for _, fin := range r.Heap.DrainFinalizers() {
		fin.Run()
	}
	r.Jobs.Drain(onUnhandled)
	r.VM.ClearJobRoots()
	r.Heap.EndTurn()
}

// RegisterGlobalProperty defines a property on the global object (spec.md
// §6 Context::register_global_property).
func (r *Realm) RegisterGlobalProperty(name string, v value.Value, writable, enumerable, configurable bool) error {
	_, err := r.Global.VTable().DefineOwnProperty(r.Global, r.VM, r.Global.Key(name), object.Descriptor{
		HasValue: true, Value: v,
		Writable: writable, Enumerable: enumerable, Configurable: configurable,
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	})
	return err
}

// NewError materializes one of the spec.md §7 error kinds as a JS Error
// object carrying message, name, and stack.
func (r *Realm) NewError(kind errors.Kind, msg string) *object.Object {
	proto, ok := r.errorProtos[kind]
	if !ok {
		proto = r.errorProtos[errors.KindUserThrown]
	}
	o := r.VM.NewObject(proto)
	o.SetKind(object.KindError)
	r.VM.DefineHiddenProperty(o, o.Key("message"), stringValue(msg))
	r.VM.DefineHiddenProperty(o, o.Key("stack"), stringValue(kind.String()+": "+msg+"\n"+r.VM.CaptureStack()))
	return o
}

func stringValue(s string) value.Value {
	return value.String(jsstring.New(s))
}
