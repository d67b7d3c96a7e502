package realm

import (
	"github.com/BasixKOR/boa/internal/compat"
	"github.com/BasixKOR/boa/internal/environment"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// bootstrapIntrinsics builds the realm's initial object graph. The order is
// load-bearing: Object.prototype first (everything chains to it), then
// Function.prototype (every builtin is a function), then everything else.
// Deep intrinsic inheritance (Generator.prototype -> Iterator.prototype ->
// Object.prototype, ...) is plain prototype-pointer wiring set here, no
// language-level inheritance involved (spec.md §9 "Deep inheritance in
// builtins").
//
// Coverage is tracked against config.WellKnownGlobalPaths: entries not
// installed by any install* function below are stubs by omission -- a
// conforming embedder adds them by registering more native functions
// through the same contract (spec.md §1: builtins are implementations of
// the builtin contract, not part of the core design).
func (r *Realm) bootstrapIntrinsics() {
	v := r.VM
	intr := &vm.Intrinsics{}
	v.Intr = intr

	intr.ObjectProto = v.NewObject(nil)
	fp := v.NewNativeFunction("", 0, func(_ *vm.VM, _ value.Value, _ []value.Value) (value.Value, error) {
		return value.Undefined, nil
	})
	fp.VTable().SetPrototypeOf(fp, v, intr.ObjectProto)
	intr.FunctionProto = fp

	intr.ArrayProto = v.NewObject(intr.ObjectProto)
	intr.StringProto = v.NewObject(intr.ObjectProto)
	intr.NumberProto = v.NewObject(intr.ObjectProto)
	intr.BooleanProto = v.NewObject(intr.ObjectProto)
	intr.SymbolProto = v.NewObject(intr.ObjectProto)
	intr.BigIntProto = v.NewObject(intr.ObjectProto)
	intr.IteratorProto = v.NewObject(intr.ObjectProto)
	intr.GeneratorProto = v.NewObject(intr.IteratorProto)
	intr.PromiseProto = v.NewObject(intr.ObjectProto)
	intr.RegExpProto = v.NewObject(intr.ObjectProto)

	intr.SymbolIterator = value.NewSymbol(jsstring.New("Symbol.iterator"), true)
	intr.SymbolAsyncIterator = value.NewSymbol(jsstring.New("Symbol.asyncIterator"), true)
	r.intr = intr

	global := v.NewObject(intr.ObjectProto)
	r.Global = global
	v.Global = global
	genv := environment.NewGlobal(r.Heap.NextID(), &vm.EnvBacking{Obj: global, VM: v}, 0)
	r.Heap.Register(genv)
	r.GlobalEnv = genv
	v.GlobalEnv = genv

	v.Hooks = vm.Hooks{
		NewError: r.NewError,
		NewRegExp: func(machine *vm.VM, pattern, flags string) (*object.Object, error) {
			return r.newRegExpObject(pattern, flags)
		},
		RejectionTracker: func(p *object.Object, op string) {
			if r.Hooks.PromiseRejectionTracker != nil {
				r.Hooks.PromiseRejectionTracker(p, op)
			}
		},
		HasSourceText: func(fn *object.Object) bool {
			if r.Hooks.HasSourceTextAvailable != nil {
				return r.Hooks.HasSourceTextAvailable(fn)
			}
			return true
		},
	}

	r.installGlobalFunctions()
	r.installObjectIntrinsics()
	r.installFunctionIntrinsics()
	r.installErrorIntrinsics()
	r.installArrayIntrinsics()
	r.installStringIntrinsics()
	r.installNumberIntrinsics()
	r.installBooleanSymbolBigInt()
	r.installIteratorIntrinsics()
	r.installMathIntrinsics()
	r.installJSONIntrinsics()
	r.installPromiseIntrinsics()
	if r.Options.Features.Has(compat.Proxy) {
		r.installProxyIntrinsics()
	}
	if r.Options.Features.Has(compat.Reflect) {
		r.installReflectIntrinsics()
	}
	r.installCollectionIntrinsics()
	if r.Options.Features.Has(compat.WeakRefs) {
		r.installWeakIntrinsics()
	}
	r.installRegExpIntrinsics()
	r.installDateIntrinsics()
	r.installArrayBufferStub()
}

// ---- small installation helpers ----

func (r *Realm) method(target *object.Object, name string, length int, fn vm.NativeFunc) {
	f := r.VM.NewNativeFunction(name, length, fn)
	r.VM.DefineHiddenProperty(target, target.Key(name), value.Object(f))
}

func (r *Realm) symbolMethod(target *object.Object, sym *value.Symbol, name string, length int, fn vm.NativeFunc) *object.Object {
	f := r.VM.NewNativeFunction(name, length, fn)
	target.VTable().DefineOwnProperty(target, r.VM, object.SymbolKey(sym), object.Descriptor{
		HasValue: true, Value: value.Object(f),
		Writable: true, Enumerable: false, Configurable: true,
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	})
	return f
}

func (r *Realm) global(name string, v value.Value) {
	r.VM.DefineHiddenProperty(r.Global, r.Global.Key(name), v)
}

// ctor wires a constructor/prototype pair and installs the constructor as
// a global.
func (r *Realm) ctor(name string, length int, proto *object.Object, fn vm.NativeFunc) *object.Object {
	c := r.VM.NewNativeConstructor(name, length, fn)
	r.VM.DefineHiddenProperty(c, c.Key("prototype"), value.Object(proto))
	r.VM.DefineHiddenProperty(proto, proto.Key("constructor"), value.Object(c))
	r.global(name, value.Object(c))
	return c
}

func (r *Realm) throwType(format string, args ...any) error {
	return r.VM.ThrowTyped(errors.KindType, format, args...)
}

func (r *Realm) throwRange(format string, args ...any) error {
	return r.VM.ThrowTyped(errors.KindRange, format, args...)
}

// wellKnownCovered reports whether the bootstrap installed the first
// segment of a config.WellKnownGlobalPaths entry, used by tests to keep
// the catalog and the bootstrap honest with each other.
func (r *Realm) wellKnownCovered(path []string) bool {
	if len(path) == 0 {
		return false
	}
	has, err := r.Global.VTable().HasProperty(r.Global, r.VM, r.Global.Key(path[0]))
	return err == nil && has
}
