package realm

import (
	"math"
	"strconv"
	"strings"

	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}

func asObj(v value.Value) (*object.Object, bool) {
	if v.Kind() != value.KindObject {
		return nil, false
	}
	o, ok := v.Object_().(*object.Object)
	return o, ok
}

// installGlobalFunctions defines the value-like globals and the top-level
// functions (spec.md §6's global surface minus the host console/fetch/timer
// objects, which stay with the embedder).
func (r *Realm) installGlobalFunctions() {
	r.global("globalThis", value.Object(r.Global))
	r.global("undefined", value.Undefined)
	r.global("NaN", value.Number(math.NaN()))
	r.global("Infinity", value.Number(math.Inf(1)))

	r.method(r.Global, "isNaN", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		f, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(math.IsNaN(f)), nil
	})
	r.method(r.Global, "isFinite", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		f, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
	})
	r.method(r.Global, "parseFloat", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		s, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		text := strings.TrimSpace(s.GoString())
		end := len(text)
		for end > 0 {
			if _, err := strconv.ParseFloat(text[:end], 64); err == nil {
				break
			}
			end--
		}
		if end == 0 {
			return value.Number(math.NaN()), nil
		}
		f, _ := strconv.ParseFloat(text[:end], 64)
		return value.Number(f), nil
	})
	r.method(r.Global, "parseInt", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		s, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		radix := 0
		if !arg(args, 1).IsUndefined() {
			ri, err := v.ToInt32(arg(args, 1))
			if err != nil {
				return value.Undefined, err
			}
			radix = int(ri)
		}
		return value.Number(parseIntText(s.GoString(), radix)), nil
	})
	// Indirect eval: a fresh top-level parse/compile/run against the realm's
	// own global scope, gated by the host compile-strings hook (spec.md §6
	// ensure_can_compile_strings).
	r.method(r.Global, "eval", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		src := arg(args, 0)
		if !src.IsString() {
			return src, nil
		}
		body := src.String_().GoString()
		if r.Hooks.EnsureCanCompileStrings != nil {
			if err := r.Hooks.EnsureCanCompileStrings("", body, false); err != nil {
				return value.Undefined, r.VM.ThrowTyped(errors.KindHost, "%v", err)
			}
		}
		cb, err := r.CompileScript(body, false)
		if err != nil {
			if ee, ok := err.(*errors.EngineError); ok {
				return value.Undefined, r.VM.ThrowTyped(ee.Kind, "%s", ee.Message)
			}
			return value.Undefined, err
		}
		return v.RunProgram(cb)
	})
}

func parseIntText(text string, radix int) float64 {
	text = strings.TrimSpace(text)
	sign := 1.0
	if len(text) > 0 && (text[0] == '+' || text[0] == '-') {
		if text[0] == '-' {
			sign = -1
		}
		text = text[1:]
	}
	if radix == 0 {
		if len(text) >= 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
			radix = 16
			text = text[2:]
		} else {
			radix = 10
		}
	} else if radix == 16 && len(text) >= 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		text = text[2:]
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	end := 0
	for end < len(text) {
		c := text[end]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'z':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'Z':
			d = int(c-'A') + 10
		default:
			d = 99
		}
		if d >= radix {
			break
		}
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	result := 0.0
	for _, c := range text[:end] {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'z':
			d = int(c-'a') + 10
		default:
			d = int(c-'A') + 10
		}
		result = result*float64(radix) + float64(d)
	}
	return sign * result
}

// installObjectIntrinsics wires %Object% and %Object.prototype%.
func (r *Realm) installObjectIntrinsics() {
	v := r.VM
	proto := r.intr.ObjectProto

	objectCtor := r.ctor("Object", 1, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		a := arg(args, 0)
		if a.IsNullish() {
			return value.Object(v.NewObject(r.intr.ObjectProto)), nil
		}
		o, err := v.ToObject(a)
		if err != nil {
			return value.Undefined, err
		}
		return value.Object(o), nil
	})

	r.method(objectCtor, "keys", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return r.ownKeysFiltered(arg(args, 0), true, false)
	})
	r.method(objectCtor, "values", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return r.ownKeysFiltered(arg(args, 0), false, true)
	})
	r.method(objectCtor, "entries", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return r.ownEntries(arg(args, 0))
	})
	r.method(objectCtor, "getOwnPropertyNames", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := v.ToObject(arg(args, 0))
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
				continue
			}
			r.arrayPush(arr, stringValue(k.Text))
		}
		return value.Object(arr), nil
	})
	r.method(objectCtor, "getOwnPropertyDescriptor", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := v.ToObject(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		desc, present, err := o.VTable().GetOwnProperty(o, v, key)
		if err != nil {
			return value.Undefined, err
		}
		if !present {
			return value.Undefined, nil
		}
		return r.descriptorToObject(desc), nil
	})
	r.method(objectCtor, "defineProperty", 3, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, ok := asObj(arg(args, 0))
		if !ok {
			return value.Undefined, r.throwType("Object.defineProperty called on non-object")
		}
		key, err := v.MakeKey(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		desc, err := r.descriptorFromObject(arg(args, 2))
		if err != nil {
			return value.Undefined, err
		}
		ok, err = o.VTable().DefineOwnProperty(o, v, key, desc)
		if err != nil {
			if err == object.ErrInvalidArrayLength {
				return value.Undefined, r.throwRange("invalid array length")
			}
			return value.Undefined, err
		}
		if !ok {
			return value.Undefined, r.throwType("cannot redefine property: %s", keyDisplay(key))
		}
		return arg(args, 0), nil
	})
	r.method(objectCtor, "create", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		protoArg := arg(args, 0)
		var p *object.Object
		if po, ok := asObj(protoArg); ok {
			p = po
		} else if !protoArg.IsNull() {
			return value.Undefined, r.throwType("Object prototype may only be an Object or null")
		}
		o := v.NewObject(p)
		if props, ok := asObj(arg(args, 1)); ok {
			keys, err := props.VTable().OwnPropertyKeys(props, v)
			if err != nil {
				return value.Undefined, err
			}
			for _, k := range keys {
				dv, err := props.VTable().Get(props, v, k, arg(args, 1))
				if err != nil {
					return value.Undefined, err
				}
				desc, err := r.descriptorFromObject(dv)
				if err != nil {
					return value.Undefined, err
				}
				if _, err := o.VTable().DefineOwnProperty(o, v, k, desc); err != nil {
					return value.Undefined, err
				}
			}
		}
		return value.Object(o), nil
	})
	r.method(objectCtor, "assign", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		target, ok := asObj(arg(args, 0))
		if !ok {
			return value.Undefined, r.throwType("Object.assign target must be an object")
		}
		for _, src := range args[1:] {
			if err := r.copyEnumerableProps(target, src); err != nil {
				return value.Undefined, err
			}
		}
		return arg(args, 0), nil
	})
	r.method(objectCtor, "getPrototypeOf", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, err := v.ToObject(arg(args, 0))
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
	r.method(objectCtor, "setPrototypeOf", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, ok := asObj(arg(args, 0))
		if !ok {
			return arg(args, 0), nil
		}
		var p *object.Object
		if po, ok := asObj(arg(args, 1)); ok {
			p = po
		} else if !arg(args, 1).IsNull() {
			return value.Undefined, r.throwType("Object prototype may only be an Object or null")
		}
		ok, err := o.VTable().SetPrototypeOf(o, v, p)
		if err != nil {
			return value.Undefined, err
		}
		if !ok {
			return value.Undefined, r.throwType("cannot set prototype of this object")
		}
		return arg(args, 0), nil
	})
	r.method(objectCtor, "preventExtensions", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		if o, ok := asObj(arg(args, 0)); ok {
			if _, err := o.VTable().PreventExtensions(o, v); err != nil {
				return value.Undefined, err
			}
		}
		return arg(args, 0), nil
	})
	r.method(objectCtor, "isExtensible", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, ok := asObj(arg(args, 0))
		if !ok {
			return value.False, nil
		}
		ext, err := o.VTable().IsExtensible(o, v)
		return value.Bool(ext), err
	})
	r.method(objectCtor, "freeze", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		if o, ok := asObj(arg(args, 0)); ok {
			if err := r.setIntegrityLevel(o, true); err != nil {
				return value.Undefined, err
			}
		}
		return arg(args, 0), nil
	})
	r.method(objectCtor, "seal", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		if o, ok := asObj(arg(args, 0)); ok {
			if err := r.setIntegrityLevel(o, false); err != nil {
				return value.Undefined, err
			}
		}
		return arg(args, 0), nil
	})
	r.method(objectCtor, "isFrozen", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, ok := asObj(arg(args, 0))
		if !ok {
			return value.True, nil
		}
		frozen, err := r.testIntegrityLevel(o, true)
		return value.Bool(frozen), err
	})

	// %Object.prototype% methods.
	r.method(proto, "hasOwnProperty", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		o, err := v.ToObject(this)
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		_, present, err := o.VTable().GetOwnProperty(o, v, key)
		return value.Bool(present), err
	})
	r.method(proto, "isPrototypeOf", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		target, ok := asObj(arg(args, 0))
		if !ok {
			return value.False, nil
		}
		self, err := v.ToObject(this)
		if err != nil {
			return value.Undefined, err
		}
		for {
			p, err := target.VTable().GetPrototypeOf(target, v)
			if err != nil {
				return value.Undefined, err
			}
			if p == nil {
				return value.False, nil
			}
			if p == self {
				return value.True, nil
			}
			target = p
		}
	})
	r.method(proto, "propertyIsEnumerable", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		o, err := v.ToObject(this)
		if err != nil {
			return value.Undefined, err
		}
		key, err := v.MakeKey(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		desc, present, err := o.VTable().GetOwnProperty(o, v, key)
		return value.Bool(present && desc.Enumerable), err
	})
	r.method(proto, "toString", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		switch this.Kind() {
		case value.KindUndefined:
			return stringValue("[object Undefined]"), nil
		case value.KindNull:
			return stringValue("[object Null]"), nil
		}
		tag := "Object"
		if o, ok := asObj(this); ok {
			switch o.Kind() {
			case object.KindArray:
				tag = "Array"
			case object.KindFunction:
				tag = "Function"
			case object.KindError:
				tag = "Error"
			case object.KindRegExp:
				tag = "RegExp"
			}
		}
		return stringValue("[object " + tag + "]"), nil
	})
	r.method(proto, "valueOf", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		o, err := v.ToObject(this)
		if err != nil {
			return value.Undefined, err
		}
		return value.Object(o), nil
	})
}

// ownKeysFiltered backs Object.keys/values: walk own string keys, filter
// enumerable, return keys or values.
func (r *Realm) ownKeysFiltered(target value.Value, wantKeys, wantValues bool) (value.Value, error) {
	v := r.VM
	o, err := v.ToObject(target)
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
			continue
		}
		desc, present, err := o.VTable().GetOwnProperty(o, v, k)
		if err != nil {
			return value.Undefined, err
		}
		if !present || !desc.Enumerable {
			continue
		}
		if wantKeys {
			r.arrayPush(arr, stringValue(k.Text))
		} else if wantValues {
			val, err := o.VTable().Get(o, v, k, target)
			if err != nil {
				return value.Undefined, err
			}
			r.arrayPush(arr, val)
		}
	}
	return value.Object(arr), nil
}

func (r *Realm) ownEntries(target value.Value) (value.Value, error) {
	v := r.VM
	o, err := v.ToObject(target)
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
			continue
		}
		desc, present, err := o.VTable().GetOwnProperty(o, v, k)
		if err != nil {
			return value.Undefined, err
		}
		if !present || !desc.Enumerable {
			continue
		}
		val, err := o.VTable().Get(o, v, k, target)
		if err != nil {
			return value.Undefined, err
		}
		pair := v.NewArrayOf(stringValue(k.Text), val)
		r.arrayPush(arr, value.Object(pair))
	}
	return value.Object(arr), nil
}

func (r *Realm) copyEnumerableProps(target *object.Object, src value.Value) error {
	v := r.VM
	if src.IsNullish() {
		return nil
	}
	from, err := v.ToObject(src)
	if err != nil {
		return err
	}
	keys, err := from.VTable().OwnPropertyKeys(from, v)
	if err != nil {
		return err
	}
	for _, k := range keys {
		desc, present, err := from.VTable().GetOwnProperty(from, v, k)
		if err != nil {
			return err
		}
		if !present || !desc.Enumerable {
			continue
		}
		val, err := from.VTable().Get(from, v, k, src)
		if err != nil {
			return err
		}
		if _, err := target.VTable().Set(target, v, k, val, value.Object(target)); err != nil {
			return err
		}
	}
	return nil
}

// setIntegrityLevel implements Object.freeze/seal: prevent extensions, then
// reconfigure every own property (non-configurable, and non-writable for
// freeze).
func (r *Realm) setIntegrityLevel(o *object.Object, frozen bool) error {
	v := r.VM
	if _, err := o.VTable().PreventExtensions(o, v); err != nil {
		return err
	}
	keys, err := o.VTable().OwnPropertyKeys(o, v)
	if err != nil {
		return err
	}
	for _, k := range keys {
		desc := object.Descriptor{Configurable: false, HasConfigurable: true}
		if frozen {
			existing, present, err := o.VTable().GetOwnProperty(o, v, k)
			if err != nil {
				return err
			}
			if present && existing.IsData() {
				desc.Writable = false
				desc.HasWritable = true
			}
		}
		if _, err := o.VTable().DefineOwnProperty(o, v, k, desc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Realm) testIntegrityLevel(o *object.Object, frozen bool) (bool, error) {
	v := r.VM
	ext, err := o.VTable().IsExtensible(o, v)
	if err != nil || ext {
		return false, err
	}
	keys, err := o.VTable().OwnPropertyKeys(o, v)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		desc, present, err := o.VTable().GetOwnProperty(o, v, k)
		if err != nil {
			return false, err
		}
		if !present {
			continue
		}
		if desc.Configurable {
			return false, nil
		}
		if frozen && desc.IsData() && desc.Writable {
			return false, nil
		}
	}
	return true, nil
}

// descriptorToObject / descriptorFromObject convert between the engine's
// Descriptor and the JS-visible property-descriptor object shape.
func (r *Realm) descriptorToObject(d object.Descriptor) value.Value {
	v := r.VM
	o := v.NewObject(r.intr.ObjectProto)
	if d.IsAccessor() {
		v.DefineDataProperty(o, o.Key("get"), d.Get)
		v.DefineDataProperty(o, o.Key("set"), d.Set)
	} else {
		v.DefineDataProperty(o, o.Key("value"), d.Value)
		v.DefineDataProperty(o, o.Key("writable"), value.Bool(d.Writable))
	}
	v.DefineDataProperty(o, o.Key("enumerable"), value.Bool(d.Enumerable))
	v.DefineDataProperty(o, o.Key("configurable"), value.Bool(d.Configurable))
	return value.Object(o)
}

func (r *Realm) descriptorFromObject(dv value.Value) (object.Descriptor, error) {
	v := r.VM
	o, ok := asObj(dv)
	if !ok {
		return object.Descriptor{}, r.throwType("property descriptor must be an object")
	}
	var d object.Descriptor
	read := func(name string) (value.Value, bool, error) {
		key := o.Key(name)
		has, err := o.VTable().HasProperty(o, v, key)
		if err != nil || !has {
			return value.Undefined, false, err
		}
		val, err := o.VTable().Get(o, v, key, dv)
		return val, err == nil, err
	}
	if val, has, err := read("value"); err != nil {
		return d, err
	} else if has {
		d.Value, d.HasValue = val, true
	}
	if val, has, err := read("writable"); err != nil {
		return d, err
	} else if has {
		d.Writable, d.HasWritable = val.ToBoolean(), true
	}
	if val, has, err := read("get"); err != nil {
		return d, err
	} else if has {
		d.Get, d.HasGet = val, true
	}
	if val, has, err := read("set"); err != nil {
		return d, err
	} else if has {
		d.Set, d.HasSet = val, true
	}
	if val, has, err := read("enumerable"); err != nil {
		return d, err
	} else if has {
		d.Enumerable, d.HasEnumerable = val.ToBoolean(), true
	}
	if val, has, err := read("configurable"); err != nil {
		return d, err
	} else if has {
		d.Configurable, d.HasConfigurable = val.ToBoolean(), true
	}
	return d, nil
}

func keyDisplay(k object.PropertyKey) string {
	if k.IsSym {
		return "Symbol(...)"
	}
	return k.Text
}

// installFunctionIntrinsics wires %Function.prototype%.
func (r *Realm) installFunctionIntrinsics() {
	proto := r.intr.FunctionProto
	r.method(proto, "call", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		return v.Call(this, arg(args, 0), args[min(1, len(args)):])
	})
	r.method(proto, "apply", 2, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		var list []value.Value
		if a := arg(args, 1); !a.IsNullish() {
			ao, ok := asObj(a)
			if !ok {
				return value.Undefined, r.throwType("CreateListFromArrayLike called on non-object")
			}
			it, err := object.IteratorFromArrayLike(ao, v)
			if err != nil {
				return value.Undefined, err
			}
			for {
				item, done, err := it.Next()
				if err != nil {
					return value.Undefined, err
				}
				if done {
					break
				}
				list = append(list, item)
			}
		}
		return v.Call(this, arg(args, 0), list)
	})
	r.method(proto, "bind", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		target, ok := asObj(this)
		if !ok || !target.IsCallable() {
			return value.Undefined, r.throwType("Function.prototype.bind called on non-callable")
		}
		var bound []value.Value
		if len(args) > 1 {
			bound = append(bound, args[1:]...)
		}
		return value.Object(v.BindFunction(target, arg(args, 0), bound)), nil
	})
	r.method(proto, "toString", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		fn, ok := asObj(this)
		if !ok || !fn.IsCallable() {
			return value.Undefined, r.throwType("Function.prototype.toString requires a function")
		}
		return stringValue(v.FunctionToString(fn)), nil
	})

	r.ctor("Function", 1, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		// Function("a", "b", "return a+b") compiles through the same gate as
		// eval (spec.md §6 ensure_can_compile_strings).
		params := make([]string, 0, len(args))
		body := ""
		for i, a := range args {
			s, err := v.ToString(a)
			if err != nil {
				return value.Undefined, err
			}
			if i == len(args)-1 {
				body = s.GoString()
			} else {
				params = append(params, s.GoString())
			}
		}
		paramText := strings.Join(params, ", ")
		if r.Hooks.EnsureCanCompileStrings != nil {
			if err := r.Hooks.EnsureCanCompileStrings(paramText, body, false); err != nil {
				return value.Undefined, r.VM.ThrowTyped(errors.KindHost, "%v", err)
			}
		}
		src := "(function anonymous(" + paramText + "\n) {\n" + body + "\n})"
		cb, err := r.CompileScript(src, false)
		if err != nil {
			if ee, ok := err.(*errors.EngineError); ok {
				return value.Undefined, r.VM.ThrowTyped(ee.Kind, "%s", ee.Message)
			}
			return value.Undefined, err
		}
		return v.RunProgram(cb)
	})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
