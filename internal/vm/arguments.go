package vm

import (
	"github.com/BasixKOR/boa/internal/environment"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
)

// argumentsData is the payload of a mapped arguments object: reads and
// writes of indices that name simple positional parameters alias the
// parameter's environment slot in both directions (spec.md §4.3
// CreateMappedArgumentsObject). The element section keeps a mirror of the
// values so key enumeration and JSON still see them.
type argumentsData struct {
	env   *environment.Env
	slots []int32
}

func (d *argumentsData) Trace(visit func(gc.Traceable)) {
	if d.env != nil {
		visit(d.env)
	}
}

// paramSlot reports the environment slot aliased by index key, -1 if the
// key is not a mapped parameter index.
func (d *argumentsData) paramSlot(key object.PropertyKey) int32 {
	if key.IsSym {
		return -1
	}
	idx, ok := object.ArrayIndex(key.Text)
	if !ok || int(idx) >= len(d.slots) {
		return -1
	}
	return d.slots[idx]
}

var mappedArgumentsGet = func(o *object.Object, inv object.Invoker, key object.PropertyKey, receiver value.Value) (value.Value, error) {
	d := o.Data().(*argumentsData)
	if slot := d.paramSlot(key); slot >= 0 {
		v, err := d.env.GetSlot(int(slot))
		if err == nil {
			return v, nil
		}
	}
	return object.Ordinary.Get(o, inv, key, receiver)
}

var mappedArgumentsSet = func(o *object.Object, inv object.Invoker, key object.PropertyKey, v value.Value, receiver value.Value) (bool, error) {
	d := o.Data().(*argumentsData)
	if slot := d.paramSlot(key); slot >= 0 {
		if err := d.env.SetSlot(int(slot), v); err == nil {
			if idx, ok := object.ArrayIndex(key.Text); ok {
				o.SetElement(idx, v)
			}
			return true, nil
		}
	}
	return object.Ordinary.Set(o, inv, key, v, receiver)
}

// newArgumentsObject builds the frame's `arguments` object: an
// array-indexed snapshot of the call's arguments with `length`, `callee`
// (sloppy only), an @@iterator, and -- for the mapped form -- live
// parameter aliasing.
func (vm *VM) newArgumentsObject(f *Frame, mapped bool) *object.Object {
	o := vm.NewObject(vm.Intr.ObjectProto)
	o.SetKind(object.KindArguments)
	for i, a := range f.args {
		o.SetElement(uint32(i), a)
	}
	vm.DefineHiddenProperty(o, vm.KeyFromString("length"), value.Int32(int32(len(f.args))))
	vm.defineArgumentsIterator(o)

	if !mapped {
		return o
	}
	o.SetData(&argumentsData{env: f.env, slots: f.cb.ParamSlots})
	vt := *o.VTable()
	vt.Get = mappedArgumentsGet
	vt.Set = mappedArgumentsSet
	o.SetVTable(&vt)
	if f.fn != nil {
		vm.DefineHiddenProperty(o, vm.KeyFromString("callee"), value.Object(f.fn))
	}
	return o
}

// defineArgumentsIterator installs @@iterator as an index walk over the
// object's own array-like surface, sharing the same protocol adapter
// for-of and Array.from use.
func (vm *VM) defineArgumentsIterator(o *object.Object) {
	iterFn := vm.NewNativeFunction("[Symbol.iterator]", 0, func(vm *VM, this value.Value, _ []value.Value) (value.Value, error) {
		obj, ok := asObject(this)
		if !ok {
			return value.Undefined, vm.throwKind(errors.KindType, "arguments iterator requires an object receiver")
		}
		inner, err := object.IteratorFromArrayLike(obj, vm)
		if err != nil {
			return value.Undefined, err
		}
		return vm.newIteratorObject(inner.Next), nil
	})
	o.VTable().DefineOwnProperty(o, vm, object.SymbolKey(vm.Intr.SymbolIterator), object.Descriptor{
		HasValue: true, Value: value.Object(iterFn),
		Writable: true, Enumerable: false, Configurable: true,
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	})
}

// newIteratorObject wraps a Go next function as a JS iterator object over
// %Iterator.prototype%.
func (vm *VM) newIteratorObject(next func() (value.Value, bool, error)) value.Value {
	o := vm.NewObject(vm.Intr.IteratorProto)
	nextFn := vm.NewNativeFunction("next", 0, func(vm *VM, _ value.Value, _ []value.Value) (value.Value, error) {
		v, done, err := next()
		if err != nil {
			return value.Undefined, err
		}
		return vm.IterResult(v, done), nil
	})
	vm.DefineHiddenProperty(o, vm.KeyFromString("next"), value.Object(nextFn))
	return value.Object(o)
}
