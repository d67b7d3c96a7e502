package realm

import (
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/promise"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// installPromiseIntrinsics wires %Promise%, %Promise.prototype%, and the
// four combinators (spec.md §4.7).
func (r *Realm) installPromiseIntrinsics() {
	v := r.VM
	proto := r.intr.PromiseProto

	promiseCtor := r.ctor("Promise", 1, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		executor := arg(args, 0)
		if eo, ok := asObj(executor); !ok || !eo.IsCallable() {
			return value.Undefined, r.throwType("Promise resolver is not a function")
		}
		p := v.NewPromiseObject()
		resolve, reject := r.resolvingFunctions(p)
		if _, err := v.Call(executor, value.Undefined, []value.Value{resolve, reject}); err != nil {
			v.RejectPromise(p, v.ErrorValueOf(err))
		}
		return value.Object(p), nil
	})

	r.method(promiseCtor, "resolve", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return value.Object(v.PromiseResolveToObject(arg(args, 0))), nil
	})
	r.method(promiseCtor, "reject", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		p := v.NewPromiseObject()
		v.RejectPromise(p, arg(args, 0))
		return value.Object(p), nil
	})
	r.method(promiseCtor, "all", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return r.combinator(promise.CombinatorAll, arg(args, 0))
	})
	r.method(promiseCtor, "allSettled", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return r.combinator(promise.CombinatorAllSettled, arg(args, 0))
	})
	r.method(promiseCtor, "any", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return r.combinator(promise.CombinatorAny, arg(args, 0))
	})
	r.method(promiseCtor, "race", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return r.combinator(promise.CombinatorRace, arg(args, 0))
	})

	r.method(proto, "then", 2, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		p, ok := v.IsPromise(this)
		if !ok {
			return value.Undefined, r.throwType("Promise.prototype.then called on a non-promise")
		}
		derived := v.NewPromiseObject()
		v.PerformThen(p, arg(args, 0), arg(args, 1), derived)
		return value.Object(derived), nil
	})
	r.method(proto, "catch", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		p, ok := v.IsPromise(this)
		if !ok {
			return value.Undefined, r.throwType("Promise.prototype.catch called on a non-promise")
		}
		derived := v.NewPromiseObject()
		v.PerformThen(p, value.Undefined, arg(args, 0), derived)
		return value.Object(derived), nil
	})
	r.method(proto, "finally", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		p, ok := v.IsPromise(this)
		if !ok {
			return value.Undefined, r.throwType("Promise.prototype.finally called on a non-promise")
		}
		onFinally := arg(args, 0)
		wrap := func(passthrough func(value.Value) (value.Value, error)) value.Value {
			return value.Object(v.NewNativeFunction("", 1, func(v *vm.VM, _ value.Value, cbArgs []value.Value) (value.Value, error) {
				if fo, ok := asObj(onFinally); ok && fo.IsCallable() {
					if _, err := v.Call(onFinally, value.Undefined, nil); err != nil {
						return value.Undefined, err
					}
				}
				return passthrough(arg(cbArgs, 0))
			}))
		}
		derived := v.NewPromiseObject()
		v.PerformThen(p,
			wrap(func(val value.Value) (value.Value, error) { return val, nil }),
			wrap(func(reason value.Value) (value.Value, error) { return value.Undefined, &vm.Thrown{Value: reason} }),
			derived)
		return value.Object(derived), nil
	})
}

// resolvingFunctions builds the idempotent resolve/reject pair handed to a
// Promise executor (spec.md §4.7 "Resolution functions created at
// construction are idempotent").
func (r *Realm) resolvingFunctions(p *object.Object) (value.Value, value.Value) {
	v := r.VM
	alreadySettled := false
	resolve := v.NewNativeFunction("", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		if alreadySettled {
			return value.Undefined, nil
		}
		alreadySettled = true
		v.ResolvePromise(p, arg(args, 0))
		return value.Undefined, nil
	})
	reject := v.NewNativeFunction("", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		if alreadySettled {
			return value.Undefined, nil
		}
		alreadySettled = true
		v.RejectPromise(p, arg(args, 0))
		return value.Undefined, nil
	})
	return value.Object(resolve), value.Object(reject)
}

// combinator implements Promise.all/allSettled/any/race over an iterable of
// inputs, the per-index bookkeeping delegated to promise.Combinator.
func (r *Realm) combinator(kind promise.CombinatorKind, iterable value.Value) (value.Value, error) {
	v := r.VM
	result := v.NewPromiseObject()

	var inputs []value.Value
	if err := r.iterate(iterable, func(item value.Value) error {
		inputs = append(inputs, item)
		return nil
	}); err != nil {
		v.RejectPromise(result, v.ErrorValueOf(err))
		return value.Object(result), nil
	}

	if len(inputs) == 0 {
		switch kind {
		case promise.CombinatorAll, promise.CombinatorAllSettled:
			v.ResolvePromise(result, value.Object(v.NewArrayOf()))
		case promise.CombinatorAny:
			v.RejectPromise(result, value.Object(r.NewAggregateError(nil, "all promises were rejected")))
		}
		return value.Object(result), nil
	}

	c := promise.NewCombinator(kind, len(inputs))
	settle := func(settled bool, res value.Value, rejected bool) {
		if !settled {
			return
		}
		switch kind {
		case promise.CombinatorAll:
			if rejected {
				v.RejectPromise(result, res)
				return
			}
			v.ResolvePromise(result, value.Object(v.NewArrayOf(c.Results...)))
		case promise.CombinatorAllSettled:
			v.ResolvePromise(result, value.Object(v.NewArrayOf(c.Results...)))
		case promise.CombinatorAny:
			if rejected {
				v.RejectPromise(result, value.Object(r.NewAggregateError(c.Errors, "all promises were rejected")))
				return
			}
			v.ResolvePromise(result, res)
		case promise.CombinatorRace:
			if rejected {
				v.RejectPromise(result, res)
				return
			}
			v.ResolvePromise(result, res)
		}
	}

	for i, input := range inputs {
		i := i
		p := v.PromiseResolveToObject(input)
		onFul := v.NewNativeFunction("", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
			val := arg(args, 0)
			if kind == promise.CombinatorAllSettled {
				val = r.settledResult("fulfilled", val, false)
			}
			settled, res, rejected := c.OnFulfilled(i, val)
			if kind == promise.CombinatorRace || kind == promise.CombinatorAny {
				res = val
			}
			settle(settled, res, rejected)
			return value.Undefined, nil
		})
		onRej := v.NewNativeFunction("", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
			reason := arg(args, 0)
			if kind == promise.CombinatorAllSettled {
				wrapped := r.settledResult("rejected", reason, true)
				settled, res, rejected := c.OnFulfilled(i, wrapped)
				settle(settled, res, rejected)
				return value.Undefined, nil
			}
			settled, res, rejected := c.OnRejected(i, reason)
			if kind == promise.CombinatorRace || kind == promise.CombinatorAll {
				res = reason
			}
			settle(settled, res, rejected)
			return value.Undefined, nil
		})
		derived := v.NewPromiseObject()
		v.PerformThen(p, value.Object(onFul), value.Object(onRej), derived)
	}
	return value.Object(result), nil
}

// settledResult builds an allSettled entry: {status, value} or
// {status, reason}.
func (r *Realm) settledResult(status string, v value.Value, rejected bool) value.Value {
	o := r.VM.NewObject(r.intr.ObjectProto)
	r.VM.DefineDataProperty(o, o.Key("status"), stringValue(status))
	if rejected {
		r.VM.DefineDataProperty(o, o.Key("reason"), v)
	} else {
		r.VM.DefineDataProperty(o, o.Key("value"), v)
	}
	return value.Object(o)
}
