package vm

import (
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
)

// Generator suspension stores the entire frame (ip, stack, environment
// chain) in the generator object rather than capturing a host thread
// (spec.md §9 "Coroutine lowering for generators and async"); resumption
// pushes the saved frame back and continues dispatch.

type generatorPhase uint8

const (
	genSuspendedStart generatorPhase = iota
	genSuspendedYield
	genRunning
	genDone
)

// generatorState is the data payload of a generator object.
type generatorState struct {
	frame *Frame
	phase generatorPhase
}

// Trace keeps a suspended generator's entire activation alive: its stack,
// environment chain, arguments, and function object (spec.md §4.6: saved
// "stack slice" and environments are GC references).
func (gs *generatorState) Trace(visit func(gc.Traceable)) {
	f := gs.frame
	if f == nil {
		return
	}
	for _, v := range f.stack {
		visitIfObject(visit, v)
	}
	for _, v := range f.args {
		visitIfObject(visit, v)
	}
	if f.env != nil {
		visit(f.env)
	}
	if f.fn != nil {
		visit(f.fn)
	}
}

// newGeneratorObject implements [[Call]] on a generator function: allocate
// the suspended-at-start activation without running any body code.
func (vm *VM) newGeneratorObject(fnObj *object.Object, fd *FunctionData, this value.Value, args []value.Value) *object.Object {
	f := vm.prepareFrame(fnObj, fd, this, true, value.Undefined, args)
	gs := &generatorState{frame: f, phase: genSuspendedStart}
	f.gen = gs

	proto := vm.prototypeForGenerator(fnObj)
	o := vm.NewObject(proto)
	o.SetData(gs)
	return o
}

// prototypeForGenerator reads fn.prototype, defaulting to the intrinsic
// %GeneratorFunction.prototype.prototype%.
func (vm *VM) prototypeForGenerator(fnObj *object.Object) *object.Object {
	protoV, err := vm.GetProperty(value.Object(fnObj), vm.KeyFromString("prototype"))
	if err == nil {
		if p, ok := asObject(protoV); ok {
			return p
		}
	}
	return vm.Intr.GeneratorProto
}

// generatorStateOf extracts the generator payload, or nil when o is not a
// generator object.
func generatorStateOf(o *object.Object) *generatorState {
	gs, _ := o.Data().(*generatorState)
	return gs
}

// IterResult builds a `{value, done}` iterator-result object.
func (vm *VM) IterResult(v value.Value, done bool) value.Value {
	o := vm.NewObject(vm.Intr.ObjectProto)
	vm.DefineDataProperty(o, vm.KeyFromString("value"), v)
	vm.DefineDataProperty(o, vm.KeyFromString("done"), value.Bool(done))
	return value.Object(o)
}

// GeneratorResume drives next/return/throw (spec.md §4.4 "Generators &
// async": "Resumption swaps the saved state back in and dispatches").
// mode: "next" pushes sent into the yield expression; "throw" raises sent
// at the yield site; "return" completes the generator with sent.
func (vm *VM) GeneratorResume(genObj *object.Object, mode string, sent value.Value) (value.Value, error) {
	gs := generatorStateOf(genObj)
	if gs == nil {
		return value.Undefined, vm.throwKind(errors.KindType, "receiver is not a generator")
	}
	switch gs.phase {
	case genRunning:
		return value.Undefined, vm.throwKind(errors.KindType, "generator is already running")
	case genDone:
		switch mode {
		case "throw":
			return value.Undefined, &Thrown{Value: sent}
		case "return":
			return vm.IterResult(sent, true), nil
		default:
			return vm.IterResult(value.Undefined, true), nil
		}
	}

	f := gs.frame
	switch mode {
	case "return":
		// Completing an unfinished generator from outside: drop the saved
		// activation without running pending finally clauses.
		gs.phase = genDone
		gs.frame = nil
		return vm.IterResult(sent, true), nil
	case "throw":
		if gs.phase == genSuspendedStart {
			gs.phase = genDone
			gs.frame = nil
			return value.Undefined, &Thrown{Value: sent}
		}
		if !vm.dispatchException(f, &Thrown{Value: sent}) {
			gs.phase = genDone
			gs.frame = nil
			return value.Undefined, &Thrown{Value: sent}
		}
	default:
		if gs.phase == genSuspendedYield {
			// The sent value becomes the result of the suspended yield.
			f.push(sent)
		}
	}

	gs.phase = genRunning
	sig, v, err := vm.resumeFrame(f)
	if err != nil {
		gs.phase = genDone
		gs.frame = nil
		return value.Undefined, err
	}
	switch sig {
	case sigYield:
		gs.phase = genSuspendedYield
		return vm.IterResult(v, false), nil
	case sigAwait:
		gs.phase = genDone
		gs.frame = nil
		return value.Undefined, vm.throwKind(errors.KindType, "await is only valid in an async function")
	default:
		gs.phase = genDone
		gs.frame = nil
		return vm.IterResult(v, true), nil
	}
}

// ---- async functions ----

// asyncState links a suspended async activation to the promise its call
// returned (spec.md §4.4 "await performs: ... install two native
// continuations via then, save generator state, return").
type asyncState struct {
	promise *object.Object
}

// callAsync implements [[Call]] on an async function: run the body until
// completion or the first await, settling the returned promise accordingly
// (spec.md §4.7 "await x").
func (vm *VM) callAsync(fnObj *object.Object, fd *FunctionData, this value.Value, args []value.Value) (value.Value, error) {
	p := vm.NewPromiseObject()
	f := vm.prepareFrame(fnObj, fd, this, true, value.Undefined, args)
	f.async = &asyncState{promise: p}
	vm.stepAsync(f)
	return value.Object(p), nil
}

// stepAsync advances an async frame until it completes or suspends on an
// await; completion settles the frame's promise.
func (vm *VM) stepAsync(f *Frame) {
	sig, v, err := vm.resumeFrame(f)
	if err != nil {
		if errors.IsTermination(err) {
			// Termination is not representable as a rejection; leave the
			// promise pending and let the embedder observe the signal.
			return
		}
		vm.RejectPromise(f.async.promise, vm.errorValue(err))
		return
	}
	switch sig {
	case sigAwait:
		vm.awaitOn(f, v)
	case sigReturn:
		vm.ResolvePromise(f.async.promise, v)
	case sigYield:
		vm.RejectPromise(f.async.promise, vm.errorValue(vm.throwKind(errors.KindType, "yield is only valid in a generator")))
	}
}

// awaitOn wires the awaited value through the promise machinery: resolve it
// to a promise, install native continuations that re-enter the frame at the
// await site, and leave the frame suspended until the job queue fires one
// (spec.md §4.7: rejection enters the frame with an exception at the await
// site).
func (vm *VM) awaitOn(f *Frame, awaited value.Value) {
	p := vm.PromiseResolveToObject(awaited)
	onFulfilled := func(v value.Value) {
		f.push(v)
		vm.stepAsync(f)
	}
	onRejected := func(reason value.Value) {
		if vm.dispatchException(f, &Thrown{Value: reason}) {
			vm.stepAsync(f)
			return
		}
		vm.RejectPromise(f.async.promise, reason)
	}
	vm.thenNative(p, onFulfilled, onRejected)
}
