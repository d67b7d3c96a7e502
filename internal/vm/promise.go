package vm

import (
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/promise"
	"github.com/BasixKOR/boa/internal/value"
)

// NewPromiseObject allocates a pending promise with the realm's prototype.
func (vm *VM) NewPromiseObject() *object.Object {
	o := vm.NewObject(vm.Intr.PromiseProto)
	o.SetKind(object.KindPromise)
	o.SetData(promise.New())
	return o
}

// PromiseDataOf extracts the state machine, nil for non-promises.
func PromiseDataOf(o *object.Object) *promise.Promise {
	p, _ := o.Data().(*promise.Promise)
	return p
}

// IsPromise reports whether v is a promise object of this realm.
func (vm *VM) IsPromise(v value.Value) (*object.Object, bool) {
	o, ok := asObject(v)
	if !ok || o.Kind() != object.KindPromise {
		return nil, false
	}
	return o, PromiseDataOf(o) != nil
}

// PromiseResolveToObject implements PromiseResolve: pass realm promises
// through, wrap everything else in a resolved (or thenable-tracking)
// promise.
func (vm *VM) PromiseResolveToObject(v value.Value) *object.Object {
	if p, ok := vm.IsPromise(v); ok {
		return p
	}
	p := vm.NewPromiseObject()
	vm.ResolvePromise(p, v)
	return p
}

// ResolvePromise settles p with v, with the thenable indirection spec.md
// §4.7 requires: resolving with a thenable enqueues a
// PromiseResolveThenableJob so the thenable's `then` never runs on the
// resolving caller's stack.
func (vm *VM) ResolvePromise(p *object.Object, v value.Value) {
	pd := PromiseDataOf(p)
	if pd == nil || pd.State != promise.Pending {
		return
	}
	if thenable, thenFn, ok := vm.asThenable(v); ok {
		vm.AddJobRoot(value.Object(p))
		vm.AddJobRoot(v)
		vm.Jobs.Enqueue(promise.Job{
			Kind: promise.PromiseResolveThenableJob,
			Run: func() error {
				resolve := vm.NewNativeFunction("", 1, func(vm *VM, this value.Value, args []value.Value) (value.Value, error) {
					vm.ResolvePromise(p, argOr(args, 0))
					return value.Undefined, nil
				})
				reject := vm.NewNativeFunction("", 1, func(vm *VM, this value.Value, args []value.Value) (value.Value, error) {
					vm.RejectPromise(p, argOr(args, 0))
					return value.Undefined, nil
				})
				_, err := vm.Call(thenFn, thenable, []value.Value{value.Object(resolve), value.Object(reject)})
				if err != nil {
					vm.RejectPromise(p, vm.errorValue(err))
				}
				return nil
			},
		})
		return
	}
	reactions := pd.Resolve(v)
	for _, r := range reactions {
		vm.enqueueReaction(r, v, false)
	}
}

// RejectPromise settles p as rejected, notifying the host's rejection
// tracker when no handler was attached yet (spec.md §6
// promise_rejection_tracker).
func (vm *VM) RejectPromise(p *object.Object, reason value.Value) {
	pd := PromiseDataOf(p)
	if pd == nil || pd.State != promise.Pending {
		return
	}
	reactions := pd.Reject(reason)
	if !pd.IsHandled && vm.Hooks.RejectionTracker != nil {
		vm.Hooks.RejectionTracker(p, "reject")
	}
	for _, r := range reactions {
		vm.enqueueReaction(r, reason, true)
	}
}

// asThenable reports whether v is an object with a callable `then`.
func (vm *VM) asThenable(v value.Value) (value.Value, value.Value, bool) {
	o, ok := asObject(v)
	if !ok {
		return value.Undefined, value.Undefined, false
	}
	thenV, err := o.VTable().Get(o, vm, vm.KeyFromString("then"), v)
	if err != nil {
		return value.Undefined, value.Undefined, false
	}
	if to, ok := asObject(thenV); ok && to.IsCallable() {
		return v, thenV, true
	}
	return value.Undefined, value.Undefined, false
}

// PerformThen implements the core of Promise.prototype.then over an
// existing derived promise (spec.md §4.7 "then(onFulfilled, onRejected)").
func (vm *VM) PerformThen(p *object.Object, onFulfilled, onRejected value.Value, derived *object.Object) {
	pd := PromiseDataOf(p)
	r := promise.Reaction{Derived: value.Object(derived)}
	if fo, ok := asObject(onFulfilled); ok && fo.IsCallable() {
		r.OnFulfilled, r.HasOnFulfilled = onFulfilled, true
	}
	if ro, ok := asObject(onRejected); ok && ro.IsCallable() {
		r.OnRejected, r.HasOnRejected = onRejected, true
	}
	wasHandled := pd.IsHandled
	pd.IsHandled = true
	if !wasHandled && pd.State == promise.Rejected && vm.Hooks.RejectionTracker != nil {
		vm.Hooks.RejectionTracker(p, "handle")
	}
	if pd.Then(r) {
		return
	}
	vm.enqueueReaction(r, pd.Value, pd.State == promise.Rejected)
}

// enqueueReaction schedules one PromiseReactionJob (spec.md §4.7 "a job is
// enqueued"; SUPPLEMENTED FEATURES: reaction jobs are first-class records).
func (vm *VM) enqueueReaction(r promise.Reaction, settled value.Value, rejected bool) {
	vm.AddJobRoot(r.Derived)
	vm.AddJobRoot(settled)
	vm.AddJobRoot(r.OnFulfilled)
	vm.AddJobRoot(r.OnRejected)
	vm.Jobs.Enqueue(promise.Job{
		Kind: promise.PromiseReactionJob,
		Run: func() error {
			derived, _ := asObject(r.Derived)
			var handler value.Value
			hasHandler := false
			if rejected {
				handler, hasHandler = r.OnRejected, r.HasOnRejected
			} else {
				handler, hasHandler = r.OnFulfilled, r.HasOnFulfilled
			}
			if !hasHandler {
				// Pass-through: fulfillments flow, rejections re-reject.
				if derived != nil {
					if rejected {
						vm.RejectPromise(derived, settled)
					} else {
						vm.ResolvePromise(derived, settled)
					}
				}
				return nil
			}
			res, err := vm.Call(handler, value.Undefined, []value.Value{settled})
			if derived == nil {
				return err
			}
			if err != nil {
				vm.RejectPromise(derived, vm.errorValue(err))
				return nil
			}
			vm.ResolvePromise(derived, res)
			return nil
		},
	})
}

// thenNative attaches Go continuations to a promise, the mechanism `await`
// uses so resumption closures never materialize as JS functions.
func (vm *VM) thenNative(p *object.Object, onFulfilled func(value.Value), onRejected func(reason value.Value)) {
	fulfilledFn := vm.NewNativeFunction("", 1, func(vm *VM, this value.Value, args []value.Value) (value.Value, error) {
		onFulfilled(argOr(args, 0))
		return value.Undefined, nil
	})
	rejectedFn := vm.NewNativeFunction("", 1, func(vm *VM, this value.Value, args []value.Value) (value.Value, error) {
		onRejected(argOr(args, 0))
		return value.Undefined, nil
	})
	vm.PerformThen(p, value.Object(fulfilledFn), value.Object(rejectedFn), vm.NewPromiseObject())
}

func argOr(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}
