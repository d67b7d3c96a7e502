package realm

import (
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// installProxyIntrinsics wires %Proxy% and Proxy.revocable over the object
// layer's Proxy exotic vtable (spec.md §4.5 "Proxy exotic").
func (r *Realm) installProxyIntrinsics() {
	v := r.VM
	proxyCtor := v.NewNativeConstructor("Proxy", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		target, ok := asObj(arg(args, 0))
		if !ok {
			return value.Undefined, r.throwType("Proxy target must be an object")
		}
		handler, ok := asObj(arg(args, 1))
		if !ok {
			return value.Undefined, r.throwType("Proxy handler must be an object")
		}
		p := v.NewObject(nil)
		object.NewProxy(p, target, handler)
		return value.Object(p), nil
	})
	r.global("Proxy", value.Object(proxyCtor))
	r.method(proxyCtor, "revocable", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		target, ok := asObj(arg(args, 0))
		if !ok {
			return value.Undefined, r.throwType("Proxy target must be an object")
		}
		handler, ok := asObj(arg(args, 1))
		if !ok {
			return value.Undefined, r.throwType("Proxy handler must be an object")
		}
		p := v.NewObject(nil)
		object.NewProxy(p, target, handler)
		revoke := v.NewNativeFunction("revoke", 0, func(v *vm.VM, _ value.Value, _ []value.Value) (value.Value, error) {
			p.Revoke()
			return value.Undefined, nil
		})
		out := v.NewObject(r.intr.ObjectProto)
		v.DefineDataProperty(out, out.Key("proxy"), value.Object(p))
		v.DefineDataProperty(out, out.Key("revoke"), value.Object(revoke))
		return value.Object(out), nil
	})
}

// installReflectIntrinsics wires %Reflect%: thin forwards to the internal
// method vtable, free once the vtable exists (SUPPLEMENTED FEATURES).
func (r *Realm) installReflectIntrinsics() {
	v := r.VM
	reflectObj := v.NewObject(r.intr.ObjectProto)
	r.global("Reflect", value.Object(reflectObj))

	objArg := func(args []value.Value, i int, op string) (*object.Object, error) {
		o, ok := asObj(arg(args, i))
		if !ok {
			return nil, r.throwType("Reflect.%s called on non-object", op)
		}
		return o, nil
	}

	r.method(reflectObj, "get", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "get")
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		receiver := arg(args, 0)
		if len(args) > 2 {
			receiver = args[2]
		}
		return o.VTable().Get(o, v, key, receiver)
	})
	r.method(reflectObj, "set", 3, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "set")
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		receiver := arg(args, 0)
		if len(args) > 3 {
			receiver = args[3]
		}
		ok, err := o.VTable().Set(o, v, key, arg(args, 2), receiver)
		return value.Bool(ok), err
	})
	r.method(reflectObj, "has", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "has")
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		ok, err := o.VTable().HasProperty(o, v, key)
		return value.Bool(ok), err
	})
	r.method(reflectObj, "deleteProperty", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "deleteProperty")
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		ok, err := o.VTable().Delete(o, v, key)
		return value.Bool(ok), err
	})
	r.method(reflectObj, "ownKeys", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "ownKeys")
		if err != nil {
			return value.Undefined, err
		}
		keys, err := o.VTable().OwnPropertyKeys(o, v)
		if err != nil {
			return value.Undefined, err
		}
		arr := v.NewArrayObject()
		for _, k := range keys {
			if k.IsSym {
				r.arrayPush(arr, value.SymbolValue(k.Sym))
			} else {
				r.arrayPush(arr, stringValue(k.Text))
			}
		}
		return value.Object(arr), nil
	})
	r.method(reflectObj, "getPrototypeOf", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "getPrototypeOf")
		if err != nil {
			return value.Undefined, err
		}
		p, err := o.VTable().GetPrototypeOf(o, v)
		if err != nil {
			return value.Undefined, err
		}
		if p == nil {
			return value.Null, nil
		}
		return value.Object(p), nil
	})
	r.method(reflectObj, "setPrototypeOf", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "setPrototypeOf")
		if err != nil {
			return value.Undefined, err
		}
		var p *object.Object
		if po, ok := asObj(arg(args, 1)); ok {
			p = po
		} else if !arg(args, 1).IsNull() {
			return value.Undefined, r.throwType("Reflect.setPrototypeOf prototype must be an object or null")
		}
		ok, err := o.VTable().SetPrototypeOf(o, v, p)
		return value.Bool(ok), err
	})
	r.method(reflectObj, "defineProperty", 3, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "defineProperty")
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		desc, err := r.descriptorFromObject(arg(args, 2))
		if err != nil {
			return value.Undefined, err
		}
		ok, err := o.VTable().DefineOwnProperty(o, v, key, desc)
		if err == object.ErrInvalidArrayLength {
			return value.False, nil
		}
		return value.Bool(ok), err
	})
	r.method(reflectObj, "getOwnPropertyDescriptor", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "getOwnPropertyDescriptor")
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		desc, present, err := o.VTable().GetOwnProperty(o, v, key)
		if err != nil || !present {
			return value.Undefined, err
		}
		return r.descriptorToObject(desc), nil
	})
	r.method(reflectObj, "isExtensible", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "isExtensible")
		if err != nil {
			return value.Undefined, err
		}
		ok, err := o.VTable().IsExtensible(o, v)
		return value.Bool(ok), err
	})
	r.method(reflectObj, "preventExtensions", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := objArg(args, 0, "preventExtensions")
		if err != nil {
			return value.Undefined, err
		}
		ok, err := o.VTable().PreventExtensions(o, v)
		return value.Bool(ok), err
	})
	r.method(reflectObj, "apply", 3, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		list, err := r.listFromArrayLike(arg(args, 2))
		if err != nil {
			return value.Undefined, err
		}
		return v.Call(arg(args, 0), arg(args, 1), list)
	})
	r.method(reflectObj, "construct", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		list, err := r.listFromArrayLike(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		var nt *object.Object
		if len(args) > 2 {
			nt, _ = asObj(args[2])
		}
		return v.ConstructValue(arg(args, 0), list, nt)
	})
}

func (r *Realm) listFromArrayLike(v value.Value) ([]value.Value, error) {
	if v.IsNullish() {
		return nil, nil
	}
	o, ok := asObj(v)
	if !ok {
		return nil, r.throwType("CreateListFromArrayLike called on non-object")
	}
	it, err := object.IteratorFromArrayLike(o, r.VM)
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for {
		item, done, err := it.Next()
		if err != nil {
			return nil, err
		}
		if done {
			return out, nil
		}
		out = append(out, item)
	}
}
