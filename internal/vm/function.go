package vm

import (
	"github.com/BasixKOR/boa/internal/bytecode"
	"github.com/BasixKOR/boa/internal/environment"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
)

// NativeFunc is the contract a builtin presents to the VM (spec.md §1:
// individual builtins are "implementations of that contract"): a Go
// function over (this, args) that may re-enter the VM through it.
type NativeFunc func(vm *VM, this value.Value, args []value.Value) (value.Value, error)

// FieldInit is one instance class element installed at construction time:
// a public/private field initializer or a private method/accessor.
type FieldInit struct {
	Key     object.PropertyKey
	HasKey  bool
	Private *object.PrivateName
	Init    *bytecode.CodeBlock // field initializer body; nil for a bare field (undefined)
	Method  value.Value         // pre-built private method (or accessor pair object)
	IsMethod bool
}

// FunctionData is the kind-specific payload of KindFunction objects: either
// a compiled CodeBlock closing over an environment, or a native Go
// function, or a bound-function wrapper.
type FunctionData struct {
	CB     *bytecode.CodeBlock
	Env    *environment.Env
	Native NativeFunc
	Name   string
	Length int

	HomeObject *object.Object // [[HomeObject]] for super property access
	PrivEnv    *environment.Env

	IsClassCtor   bool
	IsDerivedCtor bool
	Fields        []FieldInit // instance elements run by [[Construct]]

	// Bound-function wrapper state (Function.prototype.bind).
	BoundTarget *object.Object
	BoundThis   value.Value
	BoundArgs   []value.Value
}

// Trace keeps a closure's captured environment, home object, bound state,
// and pre-built private methods alive.
func (fd *FunctionData) Trace(visit func(gc.Traceable)) {
	if fd.Env != nil {
		visit(fd.Env)
	}
	if fd.PrivEnv != nil {
		visit(fd.PrivEnv)
	}
	if fd.HomeObject != nil {
		visit(fd.HomeObject)
	}
	if fd.BoundTarget != nil {
		visit(fd.BoundTarget)
	}
	visitIfObject(visit, fd.BoundThis)
	for _, a := range fd.BoundArgs {
		visitIfObject(visit, a)
	}
	for _, f := range fd.Fields {
		visitIfObject(visit, f.Method)
	}
}

func visitIfObject(visit func(gc.Traceable), v value.Value) {
	if v.Kind() == value.KindObject {
		if t, ok := v.Object_().(gc.Traceable); ok {
			visit(t)
		}
	}
}

var (
	funcCallEntry = func(o *object.Object, inv object.Invoker, this value.Value, args []value.Value) (value.Value, error) {
		vm := inv.(*VM)
		return vm.invokeFunctionObject(o, this, args)
	}
	funcConstructEntry = func(o *object.Object, inv object.Invoker, args []value.Value, newTarget *object.Object) (value.Value, error) {
		vm := inv.(*VM)
		return vm.constructFunctionObject(o, args, newTarget)
	}
)

// NewFunctionObject wraps fd in a function object with the realm's
// Function.prototype, name/length properties, and -- for constructable
// functions -- a fresh .prototype object.
func (vm *VM) NewFunctionObject(fd *FunctionData, constructable bool) *object.Object {
	o := vm.NewObject(vm.Intr.FunctionProto)
	o.SetKind(object.KindFunction)
	o.SetData(fd)
	vt := object.Ordinary
	vt.Call = funcCallEntry
	if constructable {
		vt.Construct = funcConstructEntry
	}
	o.SetVTable(&vt)
	vm.DefineHiddenProperty(o, vm.KeyFromString("name"), stringValue(fd.Name))
	vm.DefineHiddenProperty(o, vm.KeyFromString("length"), value.Int32(int32(fd.Length)))
	if constructable && fd.Native == nil {
		proto := vm.NewObject(vm.Intr.ObjectProto)
		vm.DefineHiddenProperty(proto, vm.KeyFromString("constructor"), value.Object(o))
		vm.DefineHiddenProperty(o, vm.KeyFromString("prototype"), value.Object(proto))
	}
	return o
}

// NewNativeFunction wraps a Go function as a callable builtin.
func (vm *VM) NewNativeFunction(name string, length int, fn NativeFunc) *object.Object {
	return vm.NewFunctionObject(&FunctionData{Native: fn, Name: name, Length: length}, false)
}

// NewNativeConstructor wraps a Go function as a constructable builtin whose
// [[Construct]] calls the same implementation with a fresh `this`.
func (vm *VM) NewNativeConstructor(name string, length int, fn NativeFunc) *object.Object {
	return vm.NewFunctionObject(&FunctionData{Native: fn, Name: name, Length: length}, true)
}

// closureFromChild builds a closure for OpNewFunction/class methods: child
// CodeBlock plus the environment chain at the definition site.
func (vm *VM) closureFromChild(cb *bytecode.CodeBlock, env *environment.Env, privEnv *environment.Env, home *object.Object) *object.Object {
	closureEnv := env
	if privEnv != nil {
		closureEnv = privEnv
	}
	fd := &FunctionData{
		CB:         cb,
		Env:        closureEnv,
		Name:       cb.Name,
		Length:     cb.ParamCount,
		HomeObject: home,
		PrivEnv:    privEnv,
	}
	constructable := !cb.IsArrow && !cb.IsGenerator && !cb.IsAsync && !cb.IsMethod
	return vm.NewFunctionObject(fd, constructable)
}

// invokeFunctionObject is every function object's [[Call]] (spec.md §4.4
// "Call protocol" steps 2-3).
func (vm *VM) invokeFunctionObject(fnObj *object.Object, this value.Value, args []value.Value) (value.Value, error) {
	fd := fnObj.Data().(*FunctionData)
	if fd.BoundTarget != nil {
		merged := append(append([]value.Value(nil), fd.BoundArgs...), args...)
		return fd.BoundTarget.VTable().Call(fd.BoundTarget, vm, fd.BoundThis, merged)
	}
	if fd.Native != nil {
		return fd.Native(vm, this, args)
	}
	if fd.IsClassCtor {
		return value.Undefined, vm.throwKind(errors.KindType, "class constructor %s cannot be invoked without 'new'", fd.Name)
	}
	callThis := this
	if !fd.CB.Strict && callThis.IsNullish() {
		callThis = value.Object(vm.Global)
	}
	if fd.CB.IsGenerator {
		return value.Object(vm.newGeneratorObject(fnObj, fd, callThis, args)), nil
	}
	if fd.CB.IsAsync {
		return vm.callAsync(fnObj, fd, callThis, args)
	}
	f := vm.prepareFrame(fnObj, fd, callThis, true, value.Undefined, args)
	return vm.runToCompletion(f)
}

// constructFunctionObject is a bytecode function's [[Construct]]: allocate
// `this` from the target's prototype, run the body, prefer an explicit
// object return (spec.md §4.4; class semantics in class.go).
func (vm *VM) constructFunctionObject(fnObj *object.Object, args []value.Value, newTarget *object.Object) (value.Value, error) {
	fd := fnObj.Data().(*FunctionData)
	if fd.BoundTarget != nil {
		merged := append(append([]value.Value(nil), fd.BoundArgs...), args...)
		return vm.ConstructValue(value.Object(fd.BoundTarget), merged, newTarget)
	}
	if newTarget == nil {
		newTarget = fnObj
	}
	if fd.Native != nil {
		// Native constructors allocate their own result.
		return fd.Native(vm, value.Undefined, args)
	}
	if vm.Opts.MaxCallStackDepth > 0 && len(vm.frames) >= vm.Opts.MaxCallStackDepth {
		return value.Undefined, vm.throwKind(errors.KindRange, "maximum call stack size exceeded")
	}

	var thisObj *object.Object
	if !fd.IsDerivedCtor {
		proto := vm.prototypeForConstruct(newTarget)
		thisObj = vm.NewObject(proto)
	}

	this := value.Undefined
	hasThis := false
	if thisObj != nil {
		this = value.Object(thisObj)
		hasThis = true
	}
	f := vm.prepareFrame(fnObj, fd, this, hasThis, value.Object(newTarget), args)

	// Base-class instance elements install before the body runs; derived
	// classes do it when super() returns (see OpSuperCall).
	if thisObj != nil && len(fd.Fields) > 0 {
		if err := vm.initializeInstance(fd, thisObj); err != nil {
			return value.Undefined, err
		}
	}

	rv, err := vm.runToCompletion(f)
	if err != nil {
		return value.Undefined, err
	}
	if _, ok := asObject(rv); ok {
		return rv, nil
	}
	if fd.IsDerivedCtor {
		// A derived constructor returning a non-object returns `this`,
		// which must have been bound by super().
		boundThis, ok := f.env.This()
		if !ok {
			return value.Undefined, vm.throwKind(errors.KindReference, "must call super constructor before returning from derived constructor")
		}
		return boundThis, nil
	}
	return value.Object(thisObj), nil
}

// prototypeForConstruct reads newTarget.prototype, falling back to
// %Object.prototype% when it is not an object.
func (vm *VM) prototypeForConstruct(newTarget *object.Object) *object.Object {
	protoV, err := vm.GetProperty(value.Object(newTarget), vm.KeyFromString("prototype"))
	if err == nil {
		if p, ok := asObject(protoV); ok {
			return p
		}
	}
	return vm.Intr.ObjectProto
}

// prepareFrame allocates the activation for one bytecode call: a Function
// environment (or a plain declarative one for arrows, which see through to
// the enclosing this/new.target) over the closure's captured chain.
func (vm *VM) prepareFrame(fnObj *object.Object, fd *FunctionData, this value.Value, hasThis bool, newTarget value.Value, args []value.Value) *Frame {
	var env *environment.Env
	if fd.CB.IsArrow {
		env = environment.NewDeclarative(vm.Heap.NextID(), fd.Env, fd.CB.NumSlots)
	} else {
		var home gc.Traceable
		if fd.HomeObject != nil {
			home = fd.HomeObject
		}
		env = environment.NewFunction(vm.Heap.NextID(), fd.Env, fd.CB.NumSlots, this, hasThis && !fd.IsDerivedCtor, newTarget, home)
		env.SetFunction(fnObj)
	}
	vm.applySlotNames(env, fd.CB.LocalNames)
	vm.Heap.Register(env)
	return &Frame{cb: fd.CB, fn: fnObj, env: env, args: args}
}

// bindFunction implements Function.prototype.bind's wrapper object.
func (vm *VM) BindFunction(target *object.Object, boundThis value.Value, boundArgs []value.Value) *object.Object {
	td, _ := target.Data().(*FunctionData)
	name := "bound"
	if td != nil {
		name = "bound " + td.Name
	}
	fd := &FunctionData{
		Name:        name,
		BoundTarget: target,
		BoundThis:   boundThis,
		BoundArgs:   boundArgs,
	}
	return vm.NewFunctionObject(fd, target.IsConstructor())
}
