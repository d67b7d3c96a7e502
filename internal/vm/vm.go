// Package vm executes bytecode.CodeBlocks (spec.md §4.4): a single-threaded
// cooperative interpreter with a per-frame value stack, an environment
// chain, a runtime exception-handler stack, and frame-saving suspension for
// generators and async functions.
//
// The dispatch core is a flat switch over the opcode, the interpreter
// analog of the jump-table dispatch go-ethereum's core/vm documents for the
// EVM (one operation struct per opcode, a program-counter loop); spec.md
// §4.4 explicitly allows any dispatch strategy with identical semantics.
// Calls recurse through Go (each JS activation is its own run loop
// invocation entered through the callee's vtable), which keeps every
// generator/async suspension at the base of its own loop; the frame stack
// the VM maintains alongside exists for GC rooting, stack traces, and the
// call-depth limit, not for dispatch.
package vm

import (
	"sync/atomic"

	"github.com/BasixKOR/boa/internal/bytecode"
	"github.com/BasixKOR/boa/internal/config"
	"github.com/BasixKOR/boa/internal/environment"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/promise"
	"github.com/BasixKOR/boa/internal/shape"
	"github.com/BasixKOR/boa/internal/value"
)

// Thrown wraps a JS value traveling up the Go call stack as an error while
// the VM unwinds toward a handler (spec.md §4.4 "Exceptions").
type Thrown struct {
	Value value.Value
}

func (t *Thrown) Error() string {
	if t.Value.IsString() {
		return "uncaught: " + t.Value.String_().GoString()
	}
	return "uncaught exception"
}

// Intrinsics is the slice of the realm's initial object graph the VM itself
// needs (spec.md §2 "Realm / Intrinsics"); the realm package builds the full
// graph and hands this subset over.
type Intrinsics struct {
	ObjectProto   *object.Object
	FunctionProto *object.Object
	ArrayProto    *object.Object
	StringProto   *object.Object
	NumberProto   *object.Object
	BooleanProto  *object.Object
	SymbolProto   *object.Object
	BigIntProto   *object.Object
	GeneratorProto *object.Object
	PromiseProto  *object.Object
	RegExpProto   *object.Object
	IteratorProto *object.Object

	SymbolIterator      *value.Symbol
	SymbolAsyncIterator *value.Symbol

	// ArrayValuesFn is the intrinsic %Array.prototype.values% function,
	// compared by identity to decide whether an array iteration can take
	// the direct-elements fast path instead of the full iterator protocol.
	ArrayValuesFn *object.Object
}

// Hooks are realm-supplied callbacks (spec.md §6 "Host hooks" plus the two
// constructors the VM cannot build itself without the realm's intrinsic
// wiring).
type Hooks struct {
	// NewError materializes a native-side error into a JS Error object with
	// message, name, and stack (spec.md §7).
	NewError func(kind errors.Kind, msg string) *object.Object
	// NewRegExp builds a RegExp object for a regex literal.
	NewRegExp func(vm *VM, pattern, flags string) (*object.Object, error)
	// RejectionTracker is notified with "reject" and "handle" operations
	// (spec.md §6 promise_rejection_tracker).
	RejectionTracker func(p *object.Object, operation string)
	// HasSourceText gates Function.prototype.toString's source exposure
	// (spec.md §6 has_source_text_available).
	HasSourceText func(fn *object.Object) bool
}

// VM is one context's interpreter (spec.md §5: one interpreter loop per
// context, no shared mutable state across contexts, no locks).
type VM struct {
	Heap     *gc.Heap
	Tree     *shape.Tree
	Interner *intern.Table
	Opts     *config.Options
	Jobs     *promise.Queue
	Global    *object.Object
	GlobalEnv *environment.Env
	Intr  *Intrinsics
	Hooks Hooks

	frames     []*Frame
	budgetUsed uint64
	cancelled  atomic.Bool

	// privMap pairs the environment-side private-name handles with the
	// object-side identities (two packages, one identity per declaration).
	privMap map[*environment.PrivateName]*object.PrivateName

	// jobRoots approximates GC reachability for values captured by queued
	// job closures; cleared when the queue drains empty.
	jobRoots []value.Value
}

// New builds a VM over an existing heap/interner; the realm package wires
// Global, GlobalEnv, Intr, and Hooks before first use.
func New(heap *gc.Heap, tree *shape.Tree, interner *intern.Table, opts *config.Options, jobs *promise.Queue) *VM {
	vm := &VM{
		Heap:     heap,
		Tree:     tree,
		Interner: interner,
		Opts:     opts,
		Jobs:     jobs,
		privMap:  make(map[*environment.PrivateName]*object.PrivateName),
	}
	heap.AddRoot(vm.roots)
	return vm
}

// roots enumerates the VM's strong roots for a GC cycle: every live frame's
// stack, arguments, environment, and function object, plus job-captured
// values (spec.md §4.6 "Roots: the value stack, all live call frames, the
// environment stack ...").
func (vm *VM) roots() []gc.Traceable {
	var out []gc.Traceable
	add := func(v value.Value) {
		if v.Kind() == value.KindObject {
			if t, ok := v.Object_().(gc.Traceable); ok {
				out = append(out, t)
			}
		}
	}
	for _, f := range vm.frames {
		for _, v := range f.stack {
			add(v)
		}
		for _, v := range f.args {
			add(v)
		}
		if f.env != nil {
			out = append(out, f.env)
		}
		if f.fn != nil {
			out = append(out, f.fn)
		}
		add(f.exception)
	}
	for _, v := range vm.jobRoots {
		add(v)
	}
	return out
}

// Cancel sets the embedder cancellation flag; the interpreter observes it
// at opcode boundaries and raises the non-catchable termination signal
// (spec.md §5 "Cancellation and timeouts").
func (vm *VM) Cancel() { vm.cancelled.Store(true) }

// ResetBudget clears the accumulated opcode cost, called by the embedder at
// each turn boundary.
func (vm *VM) ResetBudget() { vm.budgetUsed = 0 }

// handlerRec is one active OpEnterTry region in a frame.
type handlerRec struct {
	catchPC, finallyPC int32
	env                *environment.Env
	stackDepth         int
	iterDepth          int
	argsDepth          int
	pendingDepth       int
}

// pendingRec is one entry of the finally completion stack: how the shared
// finally block currently executing was entered.
type pendingRec struct {
	isThrow bool
	err     error
}

// Frame is one activation (spec.md §3 "Call frame").
type Frame struct {
	cb   *bytecode.CodeBlock
	fn   *object.Object
	ip   int32
	args []value.Value

	stack      []value.Value
	argsStarts []int
	iters      []*runtimeIter
	handlers   []handlerRec
	pending    []pendingRec

	env *environment.Env

	// thisOverride carries `this` for frames that run against a borrowed
	// environment (class field initializers, static blocks) instead of a
	// fresh function environment.
	thisOverride    value.Value
	hasThisOverride bool

	// exception is the dispatched value OpPushCatchBinding binds.
	exception value.Value

	gen   *generatorState
	async *asyncState
}

func (f *Frame) push(v value.Value) { f.stack = append(f.stack, v) }

func (f *Frame) pop() value.Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *Frame) peek() value.Value { return f.stack[len(f.stack)-1] }

// envAt walks depth parent links from the frame's current environment.
// Private environments carry no slots and exist outside the compiler's
// depth numbering (they are a name-resolution namespace, not a scope), so
// the walk steps over them.
func (f *Frame) envAt(depth int32) *environment.Env {
	e := skipPrivate(f.env)
	for i := int32(0); i < depth && e != nil; i++ {
		e = skipPrivate(e.Parent())
	}
	return e
}

func skipPrivate(e *environment.Env) *environment.Env {
	for e != nil && e.Kind() == environment.KindPrivate {
		e = e.Parent()
	}
	return e
}

// RunProgram executes a compiled top-level script against the global
// environment, with `this` bound to the global object.
func (vm *VM) RunProgram(cb *bytecode.CodeBlock) (value.Value, error) {
	env := environment.NewFunction(vm.Heap.NextID(), vm.GlobalEnv, cb.NumSlots, value.Object(vm.Global), true, value.Undefined, nil)
	vm.applySlotNames(env, cb.LocalNames)
	vm.Heap.Register(env)
	f := &Frame{cb: cb, env: env}
	return vm.runToCompletion(f)
}

// Call implements object.Invoker: invoke fn as a function (spec.md §4.4
// "Call protocol").
func (vm *VM) Call(fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
	obj, ok := asObject(fn)
	if !ok || !obj.IsCallable() {
		return value.Undefined, vm.throwKind(errors.KindType, "%s is not a function", vm.describe(fn))
	}
	return obj.VTable().Call(obj, vm, this, args)
}

// ConstructValue invokes fn as a constructor; newTarget nil means fn itself.
func (vm *VM) ConstructValue(fn value.Value, args []value.Value, newTarget *object.Object) (value.Value, error) {
	obj, ok := asObject(fn)
	if !ok || !obj.IsConstructor() {
		return value.Undefined, vm.throwKind(errors.KindType, "%s is not a constructor", vm.describe(fn))
	}
	return obj.VTable().Construct(obj, vm, args, newTarget)
}

func asObject(v value.Value) (*object.Object, bool) {
	if v.Kind() != value.KindObject {
		return nil, false
	}
	o, ok := v.Object_().(*object.Object)
	return o, ok
}

// describe renders a value for error messages ("undefined is not a
// function"); deliberately short, never a full inspect.
func (vm *VM) describe(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		s := v.String_().GoString()
		if len(s) > 30 {
			s = s[:30] + "..."
		}
		return "\"" + s + "\""
	case value.KindObject:
		return "object"
	default:
		s, err := vm.ToString(v)
		if err != nil {
			return v.Kind().String()
		}
		return s.GoString()
	}
}

// ThrowTyped is throwKind for packages layered above the VM (realm
// builtins): materialize a typed error as a thrown JS Error value.
func (vm *VM) ThrowTyped(kind errors.Kind, format string, args ...any) error {
	return vm.throwKind(kind, format, args...)
}

// throwKind materializes a typed engine error into a thrown JS Error object
// immediately, so the stack trace reflects the throw site.
func (vm *VM) throwKind(kind errors.Kind, format string, args ...any) error {
	ee := errors.New(kind, format, args...)
	if vm.Hooks.NewError != nil {
		return &Thrown{Value: value.Object(vm.Hooks.NewError(ee.Kind, ee.Message))}
	}
	return ee
}

// ErrorValueOf exposes errorValue to the realm's builtins, which settle
// promises with the JS value form of a Go-side error.
func (vm *VM) ErrorValueOf(err error) value.Value { return vm.errorValue(err) }

// errorValue maps any error produced below the VM into the JS value a
// handler binds, normalizing the object/environment layers' sentinel errors
// into the spec's error taxonomy (spec.md §7).
func (vm *VM) errorValue(err error) value.Value {
	switch e := err.(type) {
	case *Thrown:
		return e.Value
	case *errors.EngineError:
		if vm.Hooks.NewError != nil {
			return value.Object(vm.Hooks.NewError(e.Kind, e.Message))
		}
		return value.String(jsstring.New(e.Error()))
	}
	kind := errors.KindType
	switch err {
	case environment.ErrTDZ:
		kind = errors.KindReference
	case environment.ErrConstAssignment:
		kind = errors.KindReference
	case object.ErrInvalidArrayLength:
		kind = errors.KindRange
	}
	if vm.Hooks.NewError != nil {
		return value.Object(vm.Hooks.NewError(kind, err.Error()))
	}
	return value.String(jsstring.New(err.Error()))
}

// dispatchException routes err to the innermost handler of f, restoring the
// environment, stack, and iterator depths recorded when the handler was
// installed (spec.md §4.4 "Exceptions"). Termination is never routed
// (spec.md §5: user try/catch does not intercept it). Reports whether a
// handler took the error.
func (vm *VM) dispatchException(f *Frame, err error) bool {
	if errors.IsTermination(err) {
		return false
	}
	for len(f.handlers) > 0 {
		h := f.handlers[len(f.handlers)-1]
		f.handlers = f.handlers[:len(f.handlers)-1]
		f.env = h.env
		f.stack = f.stack[:h.stackDepth]
		f.iters = f.iters[:h.iterDepth]
		f.argsStarts = f.argsStarts[:h.argsDepth]
		f.pending = f.pending[:h.pendingDepth]
		if h.catchPC != 0 {
			f.exception = vm.errorValue(err)
			f.ip = h.catchPC
			return true
		}
		if h.finallyPC != 0 {
			// Re-wrap so a later EndFinally re-raises the already
			// materialized value instead of minting a second Error object.
			f.pending = append(f.pending, pendingRec{isThrow: true, err: &Thrown{Value: vm.errorValue(err)}})
			f.ip = h.finallyPC
			return true
		}
	}
	return false
}

// CaptureStack renders the live frame stack for Error.stack (spec.md §7
// "stack ... must at least identify function names and positions when
// available").
func (vm *VM) CaptureStack() string {
	out := ""
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		name := f.cb.Name
		if name == "" {
			name = "<anonymous>"
		}
		if out != "" {
			out += "\n"
		}
		out += "    at " + name
	}
	return out
}

// AddJobRoot records a value captured by a queued job closure so the GC
// treats it as reachable until the queue drains.
func (vm *VM) AddJobRoot(v value.Value) { vm.jobRoots = append(vm.jobRoots, v) }

// ClearJobRoots is called by the embedder's RunJobs once the queue is empty.
func (vm *VM) ClearJobRoots() { vm.jobRoots = nil }

// EnvBacking adapts an *object.Object into the narrow property interface
// package environment needs for Object/Global environment records.
type EnvBacking struct {
	Obj *object.Object
	VM  *VM
}

func (b *EnvBacking) GCID() gc.ID                    { return b.Obj.GCID() }
func (b *EnvBacking) Trace(visit func(gc.Traceable)) { visit(b.Obj) }

func (b *EnvBacking) GetProperty(name intern.ID, text string) (value.Value, bool, error) {
	key := object.StringKey(name, text)
	v, err := b.Obj.VTable().Get(b.Obj, b.VM, key, value.Object(b.Obj))
	return v, err == nil, err
}

func (b *EnvBacking) SetProperty(name intern.ID, text string, v value.Value) error {
	key := object.StringKey(name, text)
	_, err := b.Obj.VTable().Set(b.Obj, b.VM, key, v, value.Object(b.Obj))
	return err
}

func (b *EnvBacking) HasProperty(name intern.ID, text string) (bool, error) {
	key := object.StringKey(name, text)
	return b.Obj.VTable().HasProperty(b.Obj, b.VM, key)
}

func (b *EnvBacking) DeleteProperty(name intern.ID, text string) (bool, error) {
	key := object.StringKey(name, text)
	return b.Obj.VTable().Delete(b.Obj, b.VM, key)
}
