package vm

import (
	"github.com/BasixKOR/boa/internal/environment"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
)

// runtimeIter is the frame-side iterator record OpGetIterator pushes onto
// the frame's iterator stack (spec.md §4.3: "the iterator/enumerator itself
// lives on the frame's own iterator stack, not the value stack").
type runtimeIter struct {
	next    func() (value.Value, bool, error)
	done    bool
	iterObj value.Value // the JS iterator object, for IteratorClose; zero for internal iterators
}

// getIterator implements GetIterator(v, sync): @@iterator protocol for
// objects, a code-point iterator for strings, and a direct-elements fast
// path for ordinary arrays whose @@iterator is still the intrinsic
// (spec.md §4.3 GetIterator; spec.md §4.5 indexed elements).
func (vm *VM) getIterator(v value.Value) (*runtimeIter, error) {
	if v.IsString() {
		return stringIterator(v.String_()), nil
	}
	o, ok := asObject(v)
	if !ok {
		return nil, vm.throwKind(errors.KindType, "%s is not iterable", vm.describe(v))
	}

	method, err := o.VTable().Get(o, vm, object.SymbolKey(vm.Intr.SymbolIterator), v)
	if err != nil {
		return nil, vm.normalizeObjectError(err)
	}
	if o.Kind() == object.KindArray {
		if m, ok := asObject(method); ok && m == vm.Intr.ArrayValuesFn {
			inner := object.ArrayIterator(o)
			return &runtimeIter{next: inner.Next}, nil
		}
	}
	mo, ok := asObject(method)
	if !ok || !mo.IsCallable() {
		return nil, vm.throwKind(errors.KindType, "%s is not iterable", vm.describe(v))
	}
	iterV, err := vm.Call(method, v, nil)
	if err != nil {
		return nil, err
	}
	iterObj, ok := asObject(iterV)
	if !ok {
		return nil, vm.throwKind(errors.KindType, "iterator result is not an object")
	}
	nextFn, err := iterObj.VTable().Get(iterObj, vm, vm.KeyFromString("next"), iterV)
	if err != nil {
		return nil, vm.normalizeObjectError(err)
	}
	it := &runtimeIter{iterObj: iterV}
	it.next = func() (value.Value, bool, error) {
		res, err := vm.Call(nextFn, iterV, nil)
		if err != nil {
			return value.Undefined, false, err
		}
		resObj, ok := asObject(res)
		if !ok {
			return value.Undefined, false, vm.throwKind(errors.KindType, "iterator result is not an object")
		}
		doneV, err := resObj.VTable().Get(resObj, vm, vm.KeyFromString("done"), res)
		if err != nil {
			return value.Undefined, false, vm.normalizeObjectError(err)
		}
		if doneV.ToBoolean() {
			return value.Undefined, true, nil
		}
		val, err := resObj.VTable().Get(resObj, vm, vm.KeyFromString("value"), res)
		if err != nil {
			return value.Undefined, false, vm.normalizeObjectError(err)
		}
		return val, false, nil
	}
	return it, nil
}

// stringIterator iterates a string by code point, pairing surrogates
// (spec.md §3 String: codePointAt combines pairs).
func stringIterator(s jsstring.String) *runtimeIter {
	i := 0
	return &runtimeIter{next: func() (value.Value, bool, error) {
		if i >= s.Length() {
			return value.Undefined, true, nil
		}
		_, width := s.CodePointAt(i)
		part := s.Slice(i, i+width)
		i += width
		return value.String(part), false, nil
	}}
}

// getAsyncIteratorObject implements GetAsyncIterator for the for-await-of
// lowering: @@asyncIterator first, the sync @@iterator as the fallback
// (whose results the lowered loop then awaits like any other value). The
// returned iterator OBJECT goes on the value stack -- the lowering drives
// next() through ordinary call opcodes so each result can suspend through
// OpAwait.
func (vm *VM) getAsyncIteratorObject(v value.Value) (value.Value, error) {
	method, err := vm.GetProperty(v, object.SymbolKey(vm.Intr.SymbolAsyncIterator))
	if err != nil {
		return value.Undefined, err
	}
	if mo, ok := asObject(method); !ok || !mo.IsCallable() {
		method, err = vm.GetProperty(v, object.SymbolKey(vm.Intr.SymbolIterator))
		if err != nil {
			return value.Undefined, err
		}
	}
	mo, ok := asObject(method)
	if !ok || !mo.IsCallable() {
		return value.Undefined, vm.throwKind(errors.KindType, "%s is not async iterable", vm.describe(v))
	}
	iterV, err := vm.Call(method, v, nil)
	if err != nil {
		return value.Undefined, err
	}
	if _, ok := asObject(iterV); !ok {
		return value.Undefined, vm.throwKind(errors.KindType, "iterator result is not an object")
	}
	return iterV, nil
}

// applySlotNames labels a fresh environment's slots for dynamic lookup.
func (vm *VM) applySlotNames(env *environment.Env, names []string) {
	for i, n := range names {
		if n != "" {
			env.SetSlotName(i, vm.Interner.Intern(n))
		}
	}
}

// closeIterator implements IteratorClose: call the iterator's return
// method if it defines one and the iteration didn't already complete.
func (vm *VM) closeIterator(it *runtimeIter) error {
	if it.done || it.iterObj.Kind() != value.KindObject {
		return nil
	}
	retV, err := vm.GetProperty(it.iterObj, vm.KeyFromString("return"))
	if err != nil {
		return err
	}
	if ro, ok := asObject(retV); ok && ro.IsCallable() {
		_, err := vm.Call(retV, it.iterObj, nil)
		return err
	}
	return nil
}

// forInEnumerator builds the for-in key enumerator: own-then-inherited
// enumerable string keys, each name visited once with shadowing respected,
// snapshot per prototype level (spec.md §4.3 ForInLoopInit/Next).
func (vm *VM) forInEnumerator(v value.Value) (*runtimeIter, error) {
	if v.IsNullish() {
		return &runtimeIter{next: func() (value.Value, bool, error) {
			return value.Undefined, true, nil
		}}, nil
	}
	obj, err := vm.ToObject(v)
	if err != nil {
		return nil, err
	}

	var names []string
	seen := make(map[string]bool)
	for o := obj; o != nil; {
		keys, err := o.VTable().OwnPropertyKeys(o, vm)
		if err != nil {
			return nil, vm.normalizeObjectError(err)
		}
		for _, k := range keys {
			if k.IsSym || seen[k.Text] {
				continue
			}
			seen[k.Text] = true
			desc, present, err := o.VTable().GetOwnProperty(o, vm, k)
			if err != nil {
				return nil, vm.normalizeObjectError(err)
			}
			if present && desc.Enumerable {
				names = append(names, k.Text)
			}
		}
		o, err = o.VTable().GetPrototypeOf(o, vm)
		if err != nil {
			return nil, vm.normalizeObjectError(err)
		}
	}

	i := 0
	return &runtimeIter{next: func() (value.Value, bool, error) {
		if i >= len(names) {
			return value.Undefined, true, nil
		}
		name := names[i]
		i++
		return stringValue(name), false, nil
	}}, nil
}
