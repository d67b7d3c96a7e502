package object

import (
	"sort"
	"strconv"

	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/shape"
	"github.com/BasixKOR/boa/internal/value"
)

// Ordinary is the shared vtable every plain object uses unless an exotic
// kind overrides specific entries (spec.md §4.5: "The ordinary vtable is
// the default; exotic kinds install overrides").
var Ordinary = VTable{
	GetOwnProperty:    ordinaryGetOwnProperty,
	DefineOwnProperty: ordinaryDefineOwnProperty,
	HasProperty:       ordinaryHasProperty,
	Get:               ordinaryGet,
	Set:               ordinarySet,
	Delete:            ordinaryDelete,
	OwnPropertyKeys:   ordinaryOwnPropertyKeys,
	GetPrototypeOf:    ordinaryGetPrototypeOf,
	SetPrototypeOf:    ordinarySetPrototypeOf,
	IsExtensible:      ordinaryIsExtensible,
	PreventExtensions: ordinaryPreventExtensions,
}

func ordinaryGetOwnProperty(o *Object, inv Invoker, key PropertyKey) (Descriptor, bool, error) {
	if key.IsSym {
		d, ok := o.symProps[key.Sym]
		return d, ok, nil
	}
	if idx, ok := ArrayIndex(key.Text); ok {
		if v, present := o.GetElement(idx); present {
			attrs := o.ElementAttrs(idx)
			return Descriptor{
				HasValue: true, Value: v,
				Writable: attrs.Writable, Enumerable: attrs.Enumerable, Configurable: attrs.Configurable,
				HasWritable: true, HasEnumerable: true, HasConfigurable: true,
			}, true, nil
		}
	}
	slot, attrs, ok := o.shape.Lookup(key.ID)
	if !ok {
		return Descriptor{}, false, nil
	}
	d := Descriptor{
		Enumerable: attrs.Enumerable, Configurable: attrs.Configurable,
		HasEnumerable: true, HasConfigurable: true,
	}
	if attrs.Kind == shape.KindAccessor {
		d.Get = o.slot(slot)
		d.Set = o.setterAt(slot)
		d.HasGet, d.HasSet = true, true
	} else {
		d.Value = o.slot(slot)
		d.Writable = attrs.Writable
		d.HasValue, d.HasWritable = true, true
	}
	return d, true, nil
}

func ordinaryHasProperty(o *Object, inv Invoker, key PropertyKey) (bool, error) {
	desc, ok, err := o.VTable().GetOwnProperty(o, inv, key)
	if err != nil {
		return false, err
	}
	if ok {
		_ = desc
		return true, nil
	}
	if o.proto == nil {
		return false, nil
	}
	return o.proto.VTable().HasProperty(o.proto, inv, key)
}

func ordinaryGet(o *Object, inv Invoker, key PropertyKey, receiver value.Value) (value.Value, error) {
	desc, ok, err := o.VTable().GetOwnProperty(o, inv, key)
	if err != nil {
		return value.Undefined, err
	}
	if !ok {
		if o.proto == nil {
			return value.Undefined, nil
		}
		return o.proto.VTable().Get(o.proto, inv, key, receiver)
	}
	if desc.IsAccessor() {
		if desc.Get.IsUndefined() || !desc.HasGet {
			return value.Undefined, nil
		}
		return inv.Call(desc.Get, receiver, nil)
	}
	return desc.Value, nil
}

func ordinarySet(o *Object, inv Invoker, key PropertyKey, v value.Value, receiver value.Value) (bool, error) {
	desc, ok, err := o.VTable().GetOwnProperty(o, inv, key)
	if err != nil {
		return false, err
	}
	if ok {
		if desc.IsAccessor() {
			if desc.Set.IsUndefined() || !desc.HasSet {
				return false, nil
			}
			_, err := inv.Call(desc.Set, receiver, []value.Value{v})
			return err == nil, err
		}
		if !desc.Writable {
			return false, nil
		}
		if receiver.Kind() != value.KindObject || receiver.Object_() != o {
			// Receiver differs from o: define the property on the receiver
			// instead (spec's generic OrdinarySet algorithm).
			if recvObj, ok2 := receiver.Object_().(*Object); ok2 {
				existing, present, _ := recvObj.VTable().GetOwnProperty(recvObj, inv, key)
				if present {
					if existing.IsAccessor() || !existing.Writable {
						return false, nil
					}
					return recvObj.VTable().DefineOwnProperty(recvObj, inv, key, Descriptor{
						HasValue: true, Value: v,
					})
				}
				return recvObj.VTable().DefineOwnProperty(recvObj, inv, key, Descriptor{
					HasValue: true, Value: v, Writable: true, Enumerable: true, Configurable: true,
					HasWritable: true, HasEnumerable: true, HasConfigurable: true,
				})
			}
			return false, nil
		}
		return o.VTable().DefineOwnProperty(o, inv, key, Descriptor{HasValue: true, Value: v})
	}
	if o.proto != nil {
		return o.proto.VTable().Set(o.proto, inv, key, v, receiver)
	}
	if recvObj, ok2 := receiver.Object_().(*Object); ok2 {
		return recvObj.VTable().DefineOwnProperty(recvObj, inv, key, Descriptor{
			HasValue: true, Value: v, Writable: true, Enumerable: true, Configurable: true,
			HasWritable: true, HasEnumerable: true, HasConfigurable: true,
		})
	}
	return false, nil
}

// ordinaryDefineOwnProperty implements ValidateAndApplyPropertyDescriptor
// (spec.md §4.5), simplified: current attributes are read from the shape,
// compatibility is checked, and the result is applied either as a shape
// transition (adds/reconfigures a named slot) or as an indexed-element
// write.
func ordinaryDefineOwnProperty(o *Object, inv Invoker, key PropertyKey, desc Descriptor) (bool, error) {
	if !key.IsSym {
		if idx, ok := ArrayIndex(key.Text); ok {
			present := o.HasElement(idx)
			if !present {
				if !o.extensible {
					return false, nil
				}
			} else {
				existing := o.ElementAttrs(idx)
				if !existing.Configurable {
					if desc.HasConfigurable && desc.Configurable {
						return false, nil
					}
					isAccessor := desc.IsAccessor()
					if isAccessor && !desc.IsGeneric() {
						return false, nil
					}
					if !existing.Writable {
						if desc.HasWritable && desc.Writable {
							return false, nil
						}
						if desc.HasValue {
							old, _ := o.GetElement(idx)
							if !value.StrictEquals(desc.Value, old) {
								return false, nil
							}
						}
					}
				}
			}
			attrs := o.ElementAttrs(idx)
			if desc.HasWritable {
				attrs.Writable = desc.Writable
			}
			if desc.HasEnumerable {
				attrs.Enumerable = desc.Enumerable
			}
			if desc.HasConfigurable {
				attrs.Configurable = desc.Configurable
			}
			if desc.HasValue {
				o.SetElement(idx, desc.Value)
			} else if !present {
				o.SetElement(idx, value.Undefined)
			}
			o.SetElementAttrs(idx, attrs)
			return true, nil
		}
	}

	existing, present, err := o.VTable().GetOwnProperty(o, inv, key)
	if err != nil {
		return false, err
	}
	if !present {
		if !o.extensible {
			return false, nil
		}
	} else if !existing.Configurable {
		if desc.HasConfigurable && desc.Configurable {
			return false, nil
		}
		if desc.IsAccessor() != existing.IsAccessor() && !desc.IsGeneric() {
			return false, nil
		}
		if existing.IsData() && !existing.Writable {
			if desc.HasWritable && desc.Writable {
				return false, nil
			}
			if desc.HasValue && !value.StrictEquals(desc.Value, existing.Value) {
				return false, nil
			}
		}
	}

	merged := Descriptor{
		Writable:     coalesce(desc.HasWritable, desc.Writable, !present || existing.Writable),
		Enumerable:   coalesce(desc.HasEnumerable, desc.Enumerable, present && existing.Enumerable),
		Configurable: coalesce(desc.HasConfigurable, desc.Configurable, present && existing.Configurable),
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	}
	isAccessor := desc.IsAccessor() || (present && existing.IsAccessor() && desc.IsGeneric())
	if isAccessor {
		get, set := desc.Get, desc.Set
		if present && existing.IsAccessor() {
			if !desc.HasGet {
				get = existing.Get
			}
			if !desc.HasSet {
				set = existing.Set
			}
		}
		merged.Get, merged.Set = get, set
		merged.HasGet, merged.HasSet = true, true
	} else {
		v := desc.Value
		if !desc.HasValue && present {
			v = existing.Value
		}
		merged.Value = v
		merged.HasValue = true
	}

	if key.IsSym {
		if o.symProps == nil {
			o.symProps = make(map[*value.Symbol]Descriptor)
		}
		o.symProps[key.Sym] = merged
		return true, nil
	}

	attrs := shape.Attrs{
		Writable: merged.Writable, Enumerable: merged.Enumerable, Configurable: merged.Configurable,
		Kind: shape.KindData,
	}
	if isAccessor {
		attrs.Kind = shape.KindAccessor
	}
	newShape := o.tree.Transition(o.shape, key.ID, attrs)
	o.shape = newShape
	slot, _, _ := newShape.Lookup(key.ID)
	if isAccessor {
		o.setAccessor(slot, merged.Get, merged.Set)
	} else {
		delete(o.accSetters, slot)
		o.setSlot(slot, merged.Value)
	}
	return true, nil
}

func coalesce(has bool, v bool, fallback bool) bool {
	if has {
		return v
	}
	return fallback
}

func ordinaryDelete(o *Object, inv Invoker, key PropertyKey) (bool, error) {
	if key.IsSym {
		d, present := o.symProps[key.Sym]
		if !present {
			return true, nil
		}
		if !d.Configurable {
			return false, nil
		}
		delete(o.symProps, key.Sym)
		return true, nil
	}
	if idx, ok := ArrayIndex(key.Text); ok {
		if !o.HasElement(idx) {
			return true, nil
		}
		if !o.ElementAttrs(idx).Configurable {
			return false, nil
		}
		o.DeleteElement(idx)
		return true, nil
	}
	_, present, err := o.VTable().GetOwnProperty(o, inv, key)
	if err != nil || !present {
		return true, err
	}
	_, attrs, _ := o.shape.Lookup(key.ID)
	if !attrs.Configurable {
		return false, nil
	}
	// Deletion drops the object into dictionary mode (spec.md §4.5):
	// rebuild a shape over the remaining keys, which also invalidates this
	// object's inline-cache fast path since its shape identity changes.
	keys := o.shape.OwnKeys()
	remainingKeys := make([]intern.ID, 0, len(keys))
	attrsOf := make(map[intern.ID]shape.Attrs, len(keys))
	newStorage := make([]value.Value, 0, len(keys))
	var newSetters map[int]value.Value
	target := key.ID
	for _, k := range keys {
		if k == target {
			continue
		}
		slot, a, _ := o.shape.Lookup(k)
		remainingKeys = append(remainingKeys, k)
		attrsOf[k] = a
		if a.Kind == shape.KindAccessor {
			if newSetters == nil {
				newSetters = make(map[int]value.Value)
			}
			newSetters[len(newStorage)] = o.setterAt(slot)
		}
		newStorage = append(newStorage, o.slot(slot))
	}
	o.shape = o.tree.Dictionary(o.shape, remainingKeys, attrsOf)
	o.storage = newStorage
	o.accSetters = newSetters
	return true, nil
}

// ordinaryOwnPropertyKeys returns integer-index keys in ascending order, then
// string keys in shape insertion order, then symbol keys in a stable (but
// otherwise arbitrary) order -- the three-group ordering spec.md §8 requires
// of ordinary [[OwnPropertyKeys]]. Symbol keys aren't tracked by the shape
// tree (shape.Tree only models named *string* layout transitions, see
// Object.symProps), so their relative order among themselves isn't
// insertion-preserving; callers that need that must track it separately.
func ordinaryOwnPropertyKeys(o *Object, inv Invoker) ([]PropertyKey, error) {
	var out []PropertyKey
	for _, idx := range o.ElementIndices() {
		out = append(out, PropertyKey{Text: strconv.FormatUint(uint64(idx), 10)})
	}
	for _, k := range o.shape.OwnKeys() {
		out = append(out, PropertyKey{ID: k, Text: o.tree.KeyText(k)})
	}
	syms := make([]*value.Symbol, 0, len(o.symProps))
	for s := range o.symProps {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].ID() < syms[j].ID() })
	for _, s := range syms {
		out = append(out, PropertyKey{Sym: s, IsSym: true})
	}
	return out, nil
}

func ordinaryGetPrototypeOf(o *Object, inv Invoker) (*Object, error) { return o.proto, nil }

func ordinarySetPrototypeOf(o *Object, inv Invoker, proto *Object) (bool, error) {
	if o.proto == proto {
		return true, nil
	}
	if !o.extensible {
		return false, nil
	}
	// Reject cycles (spec.md §3 invariant: "prototype chain is acyclic").
	for p := proto; p != nil; p = p.proto {
		if p == o {
			return false, nil
		}
	}
	o.proto = proto
	return true, nil
}

func ordinaryIsExtensible(o *Object, inv Invoker) (bool, error) { return o.extensible, nil }

func ordinaryPreventExtensions(o *Object, inv Invoker) (bool, error) {
	o.setExtensible(false)
	return true, nil
}
