package vm

import (
	"github.com/BasixKOR/boa/internal/bytecode"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/shape"
	"github.com/BasixKOR/boa/internal/value"
)

// NewObject allocates an ordinary object rooted in this VM's heap and shape
// tree with the given prototype.
func (vm *VM) NewObject(proto *object.Object) *object.Object {
	o := object.New(vm.Heap.NextID(), vm.Tree, vm.Tree.Root(), proto)
	vm.Heap.Register(o)
	return o
}

// NewArrayObject allocates an empty Array with the realm's array prototype.
func (vm *VM) NewArrayObject() *object.Object {
	o := vm.NewObject(vm.Intr.ArrayProto)
	return object.NewArray(o)
}

// NewArrayOf builds an Array from a value slice, the workhorse behind rest
// arguments, spread collection, and builtin results.
func (vm *VM) NewArrayOf(items ...value.Value) *object.Object {
	arr := vm.NewArrayObject()
	for i, v := range items {
		arr.SetElement(uint32(i), v)
	}
	arr.Data().(*object.ArrayData).Length = uint32(len(items))
	return arr
}

// arrayAppend pushes v one past the array's current length.
func (vm *VM) arrayAppend(arr *object.Object, v value.Value) {
	d := arr.Data().(*object.ArrayData)
	arr.SetElement(d.Length, v)
	d.Length++
}

// arrayAppendHole extends length without defining the index (elision).
func (vm *VM) arrayAppendHole(arr *object.Object) {
	d := arr.Data().(*object.ArrayData)
	d.Length++
}

// MakeKey converts a property-key value (string, symbol, or number) into an
// object.PropertyKey, interning string text (ToPropertyKey, spec.md §4.3).
func (vm *VM) MakeKey(v value.Value) (object.PropertyKey, error) {
	if v.IsSymbol() {
		return object.SymbolKey(v.Symbol_()), nil
	}
	s, err := vm.ToString(v)
	if err != nil {
		return object.PropertyKey{}, err
	}
	return vm.KeyFromString(s.GoString()), nil
}

// KeyFromString mints a key from Go text: array indices stay uninterned
// (they address the elements section), everything else gets an intern id.
func (vm *VM) KeyFromString(text string) object.PropertyKey {
	if _, ok := object.ArrayIndex(text); ok {
		return object.PropertyKey{Text: text}
	}
	return object.StringKey(vm.Interner.Intern(text), text)
}

// GetProperty reads key off base, which may be a primitive: primitives
// resolve against their wrapper prototype with the primitive itself as
// receiver (spec.md §4.5 ordinary [[Get]] with a receiver).
func (vm *VM) GetProperty(base value.Value, key object.PropertyKey) (value.Value, error) {
	if o, ok := asObject(base); ok {
		return o.VTable().Get(o, vm, key, base)
	}
	holder, err := vm.primitiveHolder(base, key)
	if err != nil {
		return value.Undefined, err
	}
	if holder == nil {
		return value.Undefined, nil
	}
	return holder.VTable().Get(holder, vm, key, base)
}

// SetProperty writes key on base. strict controls whether a rejected write
// raises a TypeError or is dropped silently (spec.md §4.2 strict mode).
func (vm *VM) SetProperty(base value.Value, key object.PropertyKey, v value.Value, strict bool) error {
	o, ok := asObject(base)
	if !ok {
		if base.IsNullish() {
			return vm.throwKind(errors.KindType, "cannot set property of %s", base.Kind().String())
		}
		if strict {
			return vm.throwKind(errors.KindType, "cannot create property on %s", base.Kind().String())
		}
		return nil
	}
	ok, err := o.VTable().Set(o, vm, key, v, base)
	if err != nil {
		return vm.normalizeObjectError(err)
	}
	if !ok && strict {
		return vm.throwKind(errors.KindType, "cannot assign to read only property '%s'", keyText(key))
	}
	return nil
}

// DefineDataProperty defines an enumerable/writable/configurable data
// property, the default used by object literals and array construction.
func (vm *VM) DefineDataProperty(o *object.Object, key object.PropertyKey, v value.Value) error {
	ok, err := o.VTable().DefineOwnProperty(o, vm, key, object.Descriptor{
		HasValue: true, Value: v,
		Writable: true, Enumerable: true, Configurable: true,
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	})
	if err != nil {
		return vm.normalizeObjectError(err)
	}
	if !ok {
		return vm.throwKind(errors.KindType, "cannot define property '%s'", keyText(key))
	}
	return nil
}

// DefineHiddenProperty defines a non-enumerable writable configurable data
// property, the shape of builtin methods and function name/length.
func (vm *VM) DefineHiddenProperty(o *object.Object, key object.PropertyKey, v value.Value) {
	o.VTable().DefineOwnProperty(o, vm, key, object.Descriptor{
		HasValue: true, Value: v,
		Writable: true, Enumerable: false, Configurable: true,
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	})
}

// icLoad consults a property read site's inline cache: a hit means the
// receiver's shape is the one recorded at fill time, so the value sits in a
// known storage slot and the ordinary lookup can be skipped (spec.md §4.3
// "On subsequent execution the VM may fast-path when the object's current
// shape matches").
func (vm *VM) icLoad(ic *bytecode.ICSlot, o *object.Object) (value.Value, bool) {
	if !ic.Valid || ic.NotCachable {
		return value.Undefined, false
	}
	if uint64(o.Shape().ID()) != ic.ShapeID {
		return value.Undefined, false
	}
	return o.SlotValue(int(ic.Slot)), true
}

// icStore fills a read site's cache after a miss. Only an own, plain-data
// property of an ordinary-shaped object is cachable; everything else --
// prototype hits, accessors, dictionary shapes, exotic receivers -- pins
// the site to the ordinary path (spec.md §4.3 IC flags).
func (vm *VM) icStore(ic *bytecode.ICSlot, o *object.Object, key object.PropertyKey) {
	if ic.NotCachable || key.IsSym || key.ID == 0 {
		return
	}
	if o.Kind() == object.KindProxy || o.Shape().IsDictionary() {
		ic.NotCachable = true
		return
	}
	slot, attrs, ok := o.Shape().Lookup(key.ID)
	if !ok || attrs.Kind != shape.KindData {
		return
	}
	ic.ShapeID = uint64(o.Shape().ID())
	ic.Slot = int32(slot)
	ic.Valid = true
}

// normalizeObjectError upgrades package object's sentinel errors into typed
// throws; anything already typed passes through.
func (vm *VM) normalizeObjectError(err error) error {
	switch err {
	case object.ErrInvalidArrayLength:
		return vm.throwKind(errors.KindRange, "invalid array length")
	case object.ErrProxyInvariant:
		return vm.throwKind(errors.KindType, "proxy trap result violates target invariant")
	case object.ErrRevokedProxy:
		return vm.throwKind(errors.KindType, "cannot perform operation on a revoked proxy")
	}
	return err
}

func keyText(key object.PropertyKey) string {
	if key.IsSym {
		if key.Sym.HasDesc {
			return "Symbol(" + key.Sym.Description.GoString() + ")"
		}
		return "Symbol()"
	}
	return key.Text
}

// primitiveHolder resolves the wrapper object a primitive's property read
// goes through; string index/length reads short-circuit without allocating
// a wrapper.
func (vm *VM) primitiveHolder(base value.Value, key object.PropertyKey) (*object.Object, error) {
	switch base.Kind() {
	case value.KindUndefined, value.KindNull:
		return nil, vm.throwKind(errors.KindType, "cannot read properties of %s (reading '%s')", base.Kind().String(), keyText(key))
	case value.KindString:
		w := vm.NewObject(vm.Intr.StringProto)
		return object.NewStringObject(w, base.String_()), nil
	case value.KindInt32, value.KindFloat64:
		return vm.Intr.NumberProto, nil
	case value.KindBool:
		return vm.Intr.BooleanProto, nil
	case value.KindSymbol:
		return vm.Intr.SymbolProto, nil
	case value.KindBigInt:
		return vm.Intr.BigIntProto, nil
	}
	return nil, nil
}

// ToObject implements the ToObject abstract operation (spec.md §4.3 opcode
// ToObject): wrap primitives, reject null/undefined.
func (vm *VM) ToObject(v value.Value) (*object.Object, error) {
	if o, ok := asObject(v); ok {
		return o, nil
	}
	switch v.Kind() {
	case value.KindString:
		return object.NewStringObject(vm.NewObject(vm.Intr.StringProto), v.String_()), nil
	case value.KindInt32, value.KindFloat64:
		o := vm.NewObject(vm.Intr.NumberProto)
		o.SetData(v)
		return o, nil
	case value.KindBool:
		o := vm.NewObject(vm.Intr.BooleanProto)
		o.SetData(v)
		return o, nil
	case value.KindSymbol:
		o := vm.NewObject(vm.Intr.SymbolProto)
		o.SetData(v)
		return o, nil
	case value.KindBigInt:
		o := vm.NewObject(vm.Intr.BigIntProto)
		o.SetData(v)
		return o, nil
	}
	return nil, vm.throwKind(errors.KindType, "cannot convert %s to object", v.Kind().String())
}

// copyDataProperties implements the object-spread/rest CopyDataProperties
// operation: copy src's own enumerable keys onto dst, minus excluded names.
func (vm *VM) copyDataProperties(dst *object.Object, src value.Value, excluded []string) error {
	if src.IsNullish() {
		return nil
	}
	from, err := vm.ToObject(src)
	if err != nil {
		return err
	}
	keys, err := from.VTable().OwnPropertyKeys(from, vm)
	if err != nil {
		return vm.normalizeObjectError(err)
	}
outer:
	for _, k := range keys {
		if !k.IsSym {
			for _, ex := range excluded {
				if k.Text == ex {
					continue outer
				}
			}
		}
		desc, present, err := from.VTable().GetOwnProperty(from, vm, k)
		if err != nil {
			return vm.normalizeObjectError(err)
		}
		if !present || !desc.Enumerable {
			continue
		}
		v, err := from.VTable().Get(from, vm, k, src)
		if err != nil {
			return vm.normalizeObjectError(err)
		}
		if err := vm.DefineDataProperty(dst, k, v); err != nil {
			return err
		}
	}
	return nil
}

// defineAccessor merges fn into key's accessor descriptor on o, preserving
// the other half of an existing get/set pair (object literal getter/setter
// definition, spec.md §4.3 OpObjectDefineGetter/Setter).
func (vm *VM) defineAccessor(o *object.Object, key object.PropertyKey, fn value.Value, isGetter bool) error {
	desc := object.Descriptor{
		Enumerable: true, Configurable: true,
		HasEnumerable: true, HasConfigurable: true,
	}
	existing, present, err := o.VTable().GetOwnProperty(o, vm, key)
	if err != nil {
		return vm.normalizeObjectError(err)
	}
	if present && existing.IsAccessor() {
		desc.Get, desc.Set = existing.Get, existing.Set
	}
	if isGetter {
		desc.Get = fn
	} else {
		desc.Set = fn
	}
	desc.HasGet, desc.HasSet = true, true
	_, err = o.VTable().DefineOwnProperty(o, vm, key, desc)
	return vm.normalizeObjectError(err)
}

// deleteProperty implements the delete operator over a base value.
func (vm *VM) deleteProperty(base value.Value, key object.PropertyKey, strict bool) (bool, error) {
	o, ok := asObject(base)
	if !ok {
		if base.IsNullish() {
			return false, vm.throwKind(errors.KindType, "cannot delete property of %s", base.Kind().String())
		}
		return true, nil
	}
	ok, err := o.VTable().Delete(o, vm, key)
	if err != nil {
		return false, vm.normalizeObjectError(err)
	}
	if !ok && strict {
		return false, vm.throwKind(errors.KindType, "cannot delete property '%s'", keyText(key))
	}
	return ok, nil
}

// instanceOf implements OrdinaryHasInstance (spec.md §4.3 InstanceOf).
func (vm *VM) instanceOf(left, right value.Value) (bool, error) {
	ctor, ok := asObject(right)
	if !ok || !ctor.IsCallable() {
		return false, vm.throwKind(errors.KindType, "right-hand side of 'instanceof' is not callable")
	}
	protoV, err := vm.GetProperty(right, vm.KeyFromString("prototype"))
	if err != nil {
		return false, err
	}
	proto, ok := asObject(protoV)
	if !ok {
		return false, vm.throwKind(errors.KindType, "constructor prototype is not an object")
	}
	cur, ok := asObject(left)
	if !ok {
		return false, nil
	}
	for {
		next, err := cur.VTable().GetPrototypeOf(cur, vm)
		if err != nil {
			return false, vm.normalizeObjectError(err)
		}
		if next == nil {
			return false, nil
		}
		if next == proto {
			return true, nil
		}
		cur = next
	}
}

// hasPropertyIn implements the `in` operator.
func (vm *VM) hasPropertyIn(left, right value.Value) (bool, error) {
	o, ok := asObject(right)
	if !ok {
		return false, vm.throwKind(errors.KindType, "cannot use 'in' operator on %s", right.Kind().String())
	}
	key, err := vm.MakeKey(left)
	if err != nil {
		return false, err
	}
	ok, err = o.VTable().HasProperty(o, vm, key)
	return ok, vm.normalizeObjectError(err)
}

// FunctionToString implements Function.prototype.toString's source slicing
// (SUPPLEMENTED FEATURES): the function's own span of the retained source,
// or the synthesized native form when the host withholds text.
func (vm *VM) FunctionToString(fn *object.Object) string {
	fd, ok := fn.Data().(*FunctionData)
	if !ok {
		return "function () { [native code] }"
	}
	if fd.CB != nil && fd.CB.Source != "" && fd.CB.SourceEnd > fd.CB.SourceStart &&
		int(fd.CB.SourceEnd) <= len(fd.CB.Source) && (vm.Hooks.HasSourceText == nil || vm.Hooks.HasSourceText(fn)) {
		return fd.CB.Source[fd.CB.SourceStart:fd.CB.SourceEnd]
	}
	name := fd.Name
	return "function " + name + "() { [native code] }"
}

// stringValue is a tiny convenience for builtin plumbing.
func stringValue(s string) value.Value { return value.String(jsstring.New(s)) }
