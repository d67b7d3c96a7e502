package vm

import (
	"github.com/BasixKOR/boa/internal/bytecode"
	"github.com/BasixKOR/boa/internal/environment"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
)

// signal is how a frame's run loop ended.
type signal uint8

const (
	sigReturn signal = iota
	sigYield
	sigAwait
)

// budgetCheckInterval is how many opcodes run between cancellation-flag
// reads (spec.md §5 "practical cadence: every branch or every fixed opcode
// count").
const budgetCheckInterval = 1024

// runToCompletion executes f until it returns or throws. Suspension opcodes
// are illegal here (generator/async activations go through resumeFrame
// directly) and surface as an internal error rather than silent misbehavior.
func (vm *VM) runToCompletion(f *Frame) (value.Value, error) {
	if vm.Opts.MaxCallStackDepth > 0 && len(vm.frames) >= vm.Opts.MaxCallStackDepth {
		return value.Undefined, vm.throwKind(errors.KindRange, "maximum call stack size exceeded")
	}
	sig, v, err := vm.resumeFrame(f)
	if err != nil {
		return value.Undefined, err
	}
	if sig != sigReturn {
		return value.Undefined, vm.throwKind(errors.KindType, "unexpected suspension outside a generator or async function")
	}
	return v, nil
}

// resumeFrame pushes f and dispatches until it completes, suspends, or
// throws past every handler. The frame is popped on every exit; suspended
// frames are retained by their generator/async state, not by vm.frames.
func (vm *VM) resumeFrame(f *Frame) (signal, value.Value, error) {
	vm.frames = append(vm.frames, f)
	defer func() { vm.frames = vm.frames[:len(vm.frames)-1] }()

	for {
		if vm.budgetUsed%budgetCheckInterval == 0 {
			if vm.cancelled.Load() {
				return sigReturn, value.Undefined, &errors.Termination{Reason: "cancelled"}
			}
		}
		vm.budgetUsed++
		if vm.Opts.OpcodeBudget > 0 && vm.budgetUsed > vm.Opts.OpcodeBudget {
			return sigReturn, value.Undefined, &errors.Termination{Reason: "budget exceeded"}
		}

		in := f.cb.Code[f.ip]
		f.ip++

		sig, v, err := vm.step(f, in)
		if err != nil {
			if vm.dispatchException(f, err) {
				continue
			}
			return sigReturn, value.Undefined, err
		}
		if sig != sigNone {
			return signal(sig - 1), v, nil
		}
	}
}

// stepSignal distinguishes "keep dispatching" from the three loop exits;
// offset by one so the zero value means continue.
type stepSignal uint8

const (
	sigNone stepSignal = iota
	stepReturn
	stepYield
	stepAwait
)

// step executes one instruction. Any returned error routes through the
// frame's handler stack before unwinding to the caller.
func (vm *VM) step(f *Frame, in bytecode.Instr) (stepSignal, value.Value, error) {
	switch in.Op {
	case bytecode.OpNop:

	// ---- constants and stack shuffling ----
	case bytecode.OpConst:
		f.push(f.cb.Constants[in.A])
	case bytecode.OpUndefined:
		f.push(value.Undefined)
	case bytecode.OpNull:
		f.push(value.Null)
	case bytecode.OpTrue:
		f.push(value.True)
	case bytecode.OpFalse:
		f.push(value.False)
	case bytecode.OpPop:
		f.pop()
	case bytecode.OpDup:
		f.push(f.peek())
	case bytecode.OpDup2:
		n := len(f.stack)
		f.push(f.stack[n-2])
		f.push(f.stack[n-1])
	case bytecode.OpSwap:
		n := len(f.stack)
		f.stack[n-1], f.stack[n-2] = f.stack[n-2], f.stack[n-1]

	// ---- locals ----
	case bytecode.OpGetLocal:
		v, err := f.envAt(in.A).GetSlot(int(in.B))
		if err != nil {
			return 0, value.Undefined, vm.bindingError(err)
		}
		f.push(v)
	case bytecode.OpSetLocal:
		v := f.peek()
		if err := f.envAt(in.A).SetSlot(int(in.B), v); err != nil {
			return 0, value.Undefined, vm.bindingError(err)
		}
	case bytecode.OpInitLocal:
		f.envAt(in.A).InitSlot(int(in.B), 0, environment.BindingMutable, f.pop())
	case bytecode.OpInitConst:
		f.envAt(in.A).InitSlot(int(in.B), 0, environment.BindingImmutable, f.pop())
	case bytecode.OpDeclareTDZ:
		f.envAt(in.A).DeclareTDZ(int(in.B), 0, environment.BindingMutable)

	// ---- dynamic names ----
	case bytecode.OpGetVar:
		text := f.cb.Constants[in.A].String_().GoString()
		id := vm.Interner.Intern(text)
		v, found, err := f.env.Resolve(id, text)
		if err != nil {
			return 0, value.Undefined, vm.bindingError(err)
		}
		if !found {
			return 0, value.Undefined, vm.throwKind(errors.KindReference, "%s is not defined", text)
		}
		f.push(v)
	case bytecode.OpSetVar:
		text := f.cb.Constants[in.A].String_().GoString()
		id := vm.Interner.Intern(text)
		v := f.peek()
		found, err := f.env.ResolveSet(id, text, v)
		if err != nil {
			return 0, value.Undefined, vm.bindingError(err)
		}
		if !found {
			if f.cb.Strict {
				return 0, value.Undefined, vm.throwKind(errors.KindReference, "%s is not defined", text)
			}
			if err := vm.SetProperty(value.Object(vm.Global), vm.KeyFromString(text), v, false); err != nil {
				return 0, value.Undefined, err
			}
		}
	case bytecode.OpTypeofVar:
		text := f.cb.Constants[in.A].String_().GoString()
		id := vm.Interner.Intern(text)
		v, found, err := f.env.Resolve(id, text)
		if err != nil || !found {
			f.push(stringValue("undefined"))
		} else {
			f.push(stringValue(vm.typeofValue(v)))
		}

	// ---- properties ----
	case bytecode.OpGetProp:
		base := f.pop()
		ic := &f.cb.ICSlots[in.B]
		if o, ok := asObject(base); ok {
			if v, hit := vm.icLoad(ic, o); hit {
				f.push(v)
				break
			}
		}
		key, err := vm.MakeKey(f.cb.Constants[in.A])
		if err != nil {
			return 0, value.Undefined, err
		}
		v, err := vm.GetProperty(base, key)
		if err != nil {
			return 0, value.Undefined, vm.normalizeObjectError(err)
		}
		if o, ok := asObject(base); ok {
			vm.icStore(ic, o, key)
		}
		f.push(v)
	case bytecode.OpGetPropComputed:
		keyV := f.pop()
		base := f.pop()
		key, err := vm.MakeKey(keyV)
		if err != nil {
			return 0, value.Undefined, err
		}
		v, err := vm.GetProperty(base, key)
		if err != nil {
			return 0, value.Undefined, vm.normalizeObjectError(err)
		}
		f.push(v)
	case bytecode.OpSetProp:
		v := f.pop()
		base := f.pop()
		key, err := vm.MakeKey(f.cb.Constants[in.A])
		if err != nil {
			return 0, value.Undefined, err
		}
		if err := vm.SetProperty(base, key, v, f.cb.Strict); err != nil {
			return 0, value.Undefined, err
		}
		f.push(v)
	case bytecode.OpSetPropComputed:
		v := f.pop()
		keyV := f.pop()
		base := f.pop()
		key, err := vm.MakeKey(keyV)
		if err != nil {
			return 0, value.Undefined, err
		}
		if err := vm.SetProperty(base, key, v, f.cb.Strict); err != nil {
			return 0, value.Undefined, err
		}
		f.push(v)
	case bytecode.OpDeleteProp:
		base := f.pop()
		key, err := vm.MakeKey(f.cb.Constants[in.A])
		if err != nil {
			return 0, value.Undefined, err
		}
		ok, err := vm.deleteProperty(base, key, f.cb.Strict)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Bool(ok))
	case bytecode.OpDeletePropComputed:
		keyV := f.pop()
		base := f.pop()
		key, err := vm.MakeKey(keyV)
		if err != nil {
			return 0, value.Undefined, err
		}
		ok, err := vm.deleteProperty(base, key, f.cb.Strict)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Bool(ok))
	case bytecode.OpUpdateProp:
		base := f.pop()
		key, err := vm.MakeKey(f.cb.Constants[in.A])
		if err != nil {
			return 0, value.Undefined, err
		}
		if err := vm.updateProperty(f, base, key, in.B); err != nil {
			return 0, value.Undefined, err
		}
	case bytecode.OpUpdatePrivate:
		base := f.pop()
		desc := f.cb.PrivateNames[in.A]
		old, err := vm.getPrivate(f, base, desc)
		if err != nil {
			return 0, value.Undefined, err
		}
		oldNum, err := vm.ToNumeric(old)
		if err != nil {
			return 0, value.Undefined, err
		}
		delta := 1
		if in.B&2 != 0 {
			delta = -1
		}
		newV, err := vm.stepNumeric(oldNum, delta)
		if err != nil {
			return 0, value.Undefined, err
		}
		if err := vm.setPrivate(f, base, desc, newV); err != nil {
			return 0, value.Undefined, err
		}
		if in.B&1 != 0 {
			f.push(newV)
		} else {
			f.push(oldNum)
		}
	case bytecode.OpUpdatePropComputed:
		keyV := f.pop()
		base := f.pop()
		key, err := vm.MakeKey(keyV)
		if err != nil {
			return 0, value.Undefined, err
		}
		if err := vm.updateProperty(f, base, key, in.A); err != nil {
			return 0, value.Undefined, err
		}

	// ---- private elements ----
	case bytecode.OpGetPrivate:
		base := f.pop()
		v, err := vm.getPrivate(f, base, f.cb.PrivateNames[in.A])
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(v)
	case bytecode.OpSetPrivate:
		v := f.pop()
		base := f.pop()
		if err := vm.setPrivate(f, base, f.cb.PrivateNames[in.A], v); err != nil {
			return 0, value.Undefined, err
		}
		f.push(v)
	case bytecode.OpHasPrivate:
		base := f.pop()
		obj, ok := asObject(base)
		if !ok {
			return 0, value.Undefined, vm.throwKind(errors.KindType, "cannot use 'in' operator on %s", base.Kind().String())
		}
		pn, err := vm.resolvePrivate(f, f.cb.PrivateNames[in.A])
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Bool(obj.HasPrivate(pn)))

	// ---- construction ----
	case bytecode.OpNewObject:
		f.push(value.Object(vm.NewObject(vm.Intr.ObjectProto)))
	case bytecode.OpNewArray:
		f.push(value.Object(vm.NewArrayObject()))
	case bytecode.OpArrayHole:
		arr, _ := asObject(f.peek())
		vm.arrayAppendHole(arr)
	case bytecode.OpArrayPushElem:
		v := f.pop()
		arr, _ := asObject(f.peek())
		vm.arrayAppend(arr, v)
	case bytecode.OpArraySpreadElem:
		src := f.pop()
		arr, _ := asObject(f.peek())
		it, err := vm.getIterator(src)
		if err != nil {
			return 0, value.Undefined, err
		}
		for {
			v, done, err := it.next()
			if err != nil {
				return 0, value.Undefined, err
			}
			if done {
				break
			}
			vm.arrayAppend(arr, v)
		}
	case bytecode.OpObjectDefineProp:
		v := f.pop()
		keyV := f.pop()
		obj, _ := asObject(f.peek())
		key, err := vm.MakeKey(keyV)
		if err != nil {
			return 0, value.Undefined, err
		}
		if err := vm.DefineDataProperty(obj, key, v); err != nil {
			return 0, value.Undefined, err
		}
	case bytecode.OpObjectDefineGetter, bytecode.OpObjectDefineSetter:
		fn := f.pop()
		keyV := f.pop()
		obj, _ := asObject(f.peek())
		key, err := vm.MakeKey(keyV)
		if err != nil {
			return 0, value.Undefined, err
		}
		if err := vm.defineAccessor(obj, key, fn, in.Op == bytecode.OpObjectDefineGetter); err != nil {
			return 0, value.Undefined, err
		}
	case bytecode.OpObjectSpreadProp:
		src := f.pop()
		obj, _ := asObject(f.peek())
		if err := vm.copyDataProperties(obj, src, nil); err != nil {
			return 0, value.Undefined, err
		}
	case bytecode.OpNewFunction:
		fn := vm.closureFromChild(f.cb.Children[in.A], f.env, nil, nil)
		f.push(value.Object(fn))
	case bytecode.OpNewClass:
		if err := vm.buildClass(f, f.cb.Children[in.A], f.cb.Classes[in.B]); err != nil {
			return 0, value.Undefined, err
		}
	case bytecode.OpRegExp:
		flags := f.pop().String_().GoString()
		pattern := f.pop().String_().GoString()
		re, err := vm.Hooks.NewRegExp(vm, pattern, flags)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Object(re))

	// ---- calls ----
	case bytecode.OpArgsStart:
		f.argsStarts = append(f.argsStarts, len(f.stack))
	case bytecode.OpSpreadArgsMarker:
		src := f.pop()
		it, err := vm.getIterator(src)
		if err != nil {
			return 0, value.Undefined, err
		}
		for {
			v, done, err := it.next()
			if err != nil {
				return 0, value.Undefined, err
			}
			if done {
				break
			}
			f.push(v)
		}
	case bytecode.OpCall:
		start := f.argsStarts[len(f.argsStarts)-1]
		f.argsStarts = f.argsStarts[:len(f.argsStarts)-1]
		args := append([]value.Value(nil), f.stack[start:]...)
		this := f.stack[start-1]
		callee := f.stack[start-2]
		f.stack = f.stack[:start-2]
		res, err := vm.Call(callee, this, args)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpNew:
		start := f.argsStarts[len(f.argsStarts)-1]
		f.argsStarts = f.argsStarts[:len(f.argsStarts)-1]
		args := append([]value.Value(nil), f.stack[start:]...)
		callee := f.stack[start-1]
		f.stack = f.stack[:start-1]
		res, err := vm.ConstructValue(callee, args, nil)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpSuperCall:
		start := f.argsStarts[len(f.argsStarts)-1]
		f.argsStarts = f.argsStarts[:len(f.argsStarts)-1]
		args := append([]value.Value(nil), f.stack[start:]...)
		f.stack = f.stack[:start]
		res, err := vm.superCall(f, args)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpReturn:
		return stepReturn, f.pop(), nil
	case bytecode.OpThrow:
		return 0, value.Undefined, &Thrown{Value: f.pop()}

	// ---- control flow ----
	case bytecode.OpJump:
		f.ip = in.A
	case bytecode.OpJumpIfFalse:
		if !f.pop().ToBoolean() {
			f.ip = in.A
		}
	case bytecode.OpJumpIfTrue:
		if f.pop().ToBoolean() {
			f.ip = in.A
		}
	case bytecode.OpJumpIfNullish:
		if f.pop().IsNullish() {
			f.ip = in.A
		}
	case bytecode.OpJumpIfNotNullish:
		if !f.pop().IsNullish() {
			f.ip = in.A
		}
	case bytecode.OpJumpIfUndefined:
		if f.peek().IsUndefined() {
			f.pop()
			f.ip = in.A
		}

	// ---- operators ----
	case bytecode.OpAdd:
		b, a := f.pop(), f.pop()
		res, err := vm.Add(a, b)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow:
		b, a := f.pop(), f.pop()
		res, err := vm.numericBinop(numericOpName(in.Op), a, b)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr:
		b, a := f.pop(), f.pop()
		res, err := vm.bitwiseBinop(bitwiseOpName(in.Op), a, b)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpNeg:
		res, err := vm.negate(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpPos:
		n, err := vm.ToNumber(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Number(n))
	case bytecode.OpNot:
		f.push(value.Bool(!f.pop().ToBoolean()))
	case bytecode.OpBitNot:
		res, err := vm.bitNot(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpToNumeric:
		res, err := vm.ToNumeric(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)
	case bytecode.OpToString:
		s, err := vm.ToString(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.String(s))
	case bytecode.OpTypeof:
		f.push(stringValue(vm.typeofValue(f.pop())))
	case bytecode.OpInstanceOf:
		b, a := f.pop(), f.pop()
		ok, err := vm.instanceOf(a, b)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Bool(ok))
	case bytecode.OpIn:
		b, a := f.pop(), f.pop()
		ok, err := vm.hasPropertyIn(a, b)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Bool(ok))
	case bytecode.OpEq, bytecode.OpNotEq:
		b, a := f.pop(), f.pop()
		eq, err := vm.looseEquals(a, b)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Bool(eq == (in.Op == bytecode.OpEq)))
	case bytecode.OpStrictEq:
		b, a := f.pop(), f.pop()
		f.push(value.Bool(value.StrictEquals(a, b)))
	case bytecode.OpStrictNotEq:
		b, a := f.pop(), f.pop()
		f.push(value.Bool(!value.StrictEquals(a, b)))
	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		b, a := f.pop(), f.pop()
		res, err := vm.relational(in.Op, a, b)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(res)

	// ---- this / super ----
	case bytecode.OpThis:
		if f.hasThisOverride {
			f.push(f.thisOverride)
			break
		}
		this, ok := f.env.This()
		if !ok {
			return 0, value.Undefined, vm.throwKind(errors.KindReference, "must call super constructor before accessing 'this'")
		}
		f.push(this)
	case bytecode.OpNewTarget:
		f.push(f.env.NewTarget())
	case bytecode.OpSuperProp:
		this := f.pop()
		key, err := vm.MakeKey(f.cb.Constants[in.A])
		if err != nil {
			return 0, value.Undefined, err
		}
		v, err := vm.superProperty(f, this, key)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(v)
	case bytecode.OpSuperPropComputed:
		keyV := f.pop()
		this := f.pop()
		key, err := vm.MakeKey(keyV)
		if err != nil {
			return 0, value.Undefined, err
		}
		v, err := vm.superProperty(f, this, key)
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(v)

	// ---- scopes ----
	case bytecode.OpEnterScope:
		env := environment.NewDeclarative(vm.Heap.NextID(), f.env, int(in.A))
		vm.applySlotNames(env, f.cb.ScopeNames[in.B])
		vm.Heap.Register(env)
		f.env = env
	case bytecode.OpExitScope:
		f.env = f.env.Parent()
	case bytecode.OpCopyScope:
		clone := f.env.CloneForIteration(vm.Heap.NextID())
		vm.Heap.Register(clone)
		f.env = clone
	case bytecode.OpEnterWithScope:
		obj, err := vm.ToObject(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		env := environment.NewObject(vm.Heap.NextID(), f.env, &EnvBacking{Obj: obj, VM: vm}, true)
		vm.Heap.Register(env)
		f.env = env

	// ---- exceptions ----
	case bytecode.OpEnterTry:
		f.handlers = append(f.handlers, handlerRec{
			catchPC: in.A, finallyPC: in.B,
			env:          f.env,
			stackDepth:   len(f.stack),
			iterDepth:    len(f.iters),
			argsDepth:    len(f.argsStarts),
			pendingDepth: len(f.pending),
		})
	case bytecode.OpExitTry:
		f.handlers = f.handlers[:len(f.handlers)-1]
	case bytecode.OpPushCatchBinding:
		switch {
		case in.B >= 0:
			f.envAt(in.A).InitSlot(int(in.B), 0, environment.BindingMutable, f.exception)
		case in.B == -1:
			f.push(f.exception)
		}
		f.exception = value.Undefined
	case bytecode.OpEnterFinally:
		f.pending = append(f.pending, pendingRec{})
	case bytecode.OpEndFinally:
		p := f.pending[len(f.pending)-1]
		f.pending = f.pending[:len(f.pending)-1]
		if p.isThrow {
			return 0, value.Undefined, p.err
		}
	case bytecode.OpPopPending:
		f.pending = f.pending[:len(f.pending)-1]

	// ---- suspension ----
	case bytecode.OpYield:
		return stepYield, f.pop(), nil
	case bytecode.OpAwait:
		return stepAwait, f.pop(), nil

	// ---- iteration ----
	case bytecode.OpGetIterator:
		it, err := vm.getIterator(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		f.iters = append(f.iters, it)
	case bytecode.OpIterNext:
		it := f.iters[len(f.iters)-1]
		if it.done {
			f.push(value.Undefined)
			break
		}
		v, done, err := it.next()
		if err != nil {
			return 0, value.Undefined, err
		}
		if done {
			it.done = true
			f.push(value.Undefined)
		} else {
			f.push(v)
		}
	case bytecode.OpIterNextOrJump:
		it := f.iters[len(f.iters)-1]
		if it.done {
			f.iters = f.iters[:len(f.iters)-1]
			f.ip = in.A
			break
		}
		v, done, err := it.next()
		if err != nil {
			return 0, value.Undefined, err
		}
		if done {
			it.done = true
			f.iters = f.iters[:len(f.iters)-1]
			f.ip = in.A
		} else {
			f.push(v)
		}
	case bytecode.OpIterRestArray:
		it := f.iters[len(f.iters)-1]
		arr := vm.NewArrayObject()
		for !it.done {
			v, done, err := it.next()
			if err != nil {
				return 0, value.Undefined, err
			}
			if done {
				it.done = true
				break
			}
			vm.arrayAppend(arr, v)
		}
		f.push(value.Object(arr))
	case bytecode.OpIterClose:
		it := f.iters[len(f.iters)-1]
		f.iters = f.iters[:len(f.iters)-1]
		if err := vm.closeIterator(it); err != nil {
			return 0, value.Undefined, err
		}
	case bytecode.OpForInNames:
		it, err := vm.forInEnumerator(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		f.iters = append(f.iters, it)

	// ---- destructuring ----
	case bytecode.OpObjectRestExcluding:
		src := f.pop()
		rest := vm.NewObject(vm.Intr.ObjectProto)
		if err := vm.copyDataProperties(rest, src, f.cb.ExcludeSets[in.A]); err != nil {
			return 0, value.Undefined, err
		}
		f.push(value.Object(rest))

	// ---- parameters ----
	case bytecode.OpGetArg:
		if int(in.A) < len(f.args) {
			f.push(f.args[in.A])
		} else {
			f.push(value.Undefined)
		}
	case bytecode.OpGetRestArgs:
		if int(in.A) < len(f.args) {
			f.push(value.Object(vm.NewArrayOf(f.args[in.A:]...)))
		} else {
			f.push(value.Object(vm.NewArrayObject()))
		}
	case bytecode.OpGetCallee:
		f.push(value.Object(f.fn))
	case bytecode.OpCreateMappedArguments:
		f.push(value.Object(vm.newArgumentsObject(f, true)))
	case bytecode.OpCreateUnmappedArguments:
		f.push(value.Object(vm.newArgumentsObject(f, false)))

	case bytecode.OpGetAsyncIterator:
		iterObj, err := vm.getAsyncIteratorObject(f.pop())
		if err != nil {
			return 0, value.Undefined, err
		}
		f.push(iterObj)

	default:
		return 0, value.Undefined, vm.throwKind(errors.KindType, "unknown opcode %s", in.Op)
	}
	return sigNone, value.Undefined, nil
}

func numericOpName(op bytecode.Opcode) string {
	switch op {
	case bytecode.OpSub:
		return "-"
	case bytecode.OpMul:
		return "*"
	case bytecode.OpDiv:
		return "/"
	case bytecode.OpMod:
		return "%"
	default:
		return "**"
	}
}

func bitwiseOpName(op bytecode.Opcode) string {
	switch op {
	case bytecode.OpBitAnd:
		return "&"
	case bytecode.OpBitOr:
		return "|"
	case bytecode.OpBitXor:
		return "^"
	case bytecode.OpShl:
		return "<<"
	case bytecode.OpShr:
		return ">>"
	default:
		return ">>>"
	}
}

// relational maps the four comparison opcodes onto the one abstract
// less-than primitive, mirroring the spec's operand swaps.
func (vm *VM) relational(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	var lt, undef bool
	var err error
	switch op {
	case bytecode.OpLt:
		lt, undef, err = vm.lessThan(a, b)
	case bytecode.OpGt:
		lt, undef, err = vm.lessThan(b, a)
	case bytecode.OpLe:
		lt, undef, err = vm.lessThan(b, a)
		lt = !lt
	case bytecode.OpGe:
		lt, undef, err = vm.lessThan(a, b)
		lt = !lt
	}
	if err != nil {
		return value.Undefined, err
	}
	if undef {
		return value.False, nil
	}
	return value.Bool(lt), nil
}

// bindingError maps the environment sentinels to typed throws with the slot
// context lost by design (the compiler's static resolution already proved
// which binding it is; the message stays generic).
func (vm *VM) bindingError(err error) error {
	switch err {
	case environment.ErrTDZ:
		return vm.throwKind(errors.KindReference, "cannot access binding before initialization")
	case environment.ErrConstAssignment:
		return vm.throwKind(errors.KindReference, "assignment to constant variable")
	}
	return err
}

// updateProperty implements ++/-- on a member expression: one read, one
// numeric step, one write, pushing the pre- or post-step value per flags.
func (vm *VM) updateProperty(f *Frame, base value.Value, key object.PropertyKey, flags int32) error {
	old, err := vm.GetProperty(base, key)
	if err != nil {
		return vm.normalizeObjectError(err)
	}
	oldNum, err := vm.ToNumeric(old)
	if err != nil {
		return err
	}
	delta := 1
	if flags&2 != 0 {
		delta = -1
	}
	newV, err := vm.stepNumeric(oldNum, delta)
	if err != nil {
		return err
	}
	if err := vm.SetProperty(base, key, newV, f.cb.Strict); err != nil {
		return err
	}
	if flags&1 != 0 {
		f.push(newV)
	} else {
		f.push(oldNum)
	}
	return nil
}
