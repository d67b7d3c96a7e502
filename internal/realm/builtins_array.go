package realm

import (
	"sort"

	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

func arrayDataOf(o *object.Object) *object.ArrayData {
	d, _ := o.Data().(*object.ArrayData)
	return d
}

func (r *Realm) arrayPush(arr *object.Object, v value.Value) {
	d := arrayDataOf(arr)
	arr.SetElement(d.Length, v)
	d.Length++
}

// thisArray coerces a method receiver to an Array object.
func (r *Realm) thisArray(this value.Value) (*object.Object, *object.ArrayData, error) {
	o, ok := asObj(this)
	if !ok || o.Kind() != object.KindArray {
		return nil, nil, r.throwType("receiver is not an Array")
	}
	return o, arrayDataOf(o), nil
}

// installArrayIntrinsics wires %Array% and %Array.prototype%. The method
// set covers what the engine's own lowering and observable surfaces lean
// on (iteration, stable sort, the mutators); the long tail of ES2023+
// methods joins through the same contract.
func (r *Realm) installArrayIntrinsics() {
	proto := r.intr.ArrayProto

	arrayCtor := r.ctor("Array", 1, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		arr := v.NewArrayObject()
		if len(args) == 1 && args[0].IsNumber() {
			f := args[0].Float64()
			n := uint32(f)
			if float64(n) != f {
				return value.Undefined, r.throwRange("invalid array length")
			}
			arrayDataOf(arr).Length = n
			return value.Object(arr), nil
		}
		for _, a := range args {
			r.arrayPush(arr, a)
		}
		return value.Object(arr), nil
	})
	r.method(arrayCtor, "isArray", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o, ok := asObj(arg(args, 0))
		return value.Bool(ok && o.Kind() == object.KindArray), nil
	})
	r.method(arrayCtor, "of", 0, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return value.Object(v.NewArrayOf(args...)), nil
	})
	r.method(arrayCtor, "from", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		src := arg(args, 0)
		mapper := arg(args, 1)
		out := v.NewArrayObject()
		apply := func(item value.Value, i int) (value.Value, error) {
			if mapper.IsUndefined() {
				return item, nil
			}
			return v.Call(mapper, value.Undefined, []value.Value{item, value.Int32(int32(i))})
		}
		// Iterables first, array-likes as the fallback, both through the
		// shared iterator plumbing (SUPPLEMENTED FEATURES).
		if o, ok := asObj(src); ok {
			iterMethod, err := o.VTable().Get(o, v, object.SymbolKey(r.intr.SymbolIterator), src)
			if err != nil {
				return value.Undefined, err
			}
			if im, ok := asObj(iterMethod); !ok || !im.IsCallable() {
				it, err := object.IteratorFromArrayLike(o, v)
				if err != nil {
					return value.Undefined, err
				}
				i := 0
				for {
					item, done, err := it.Next()
					if err != nil {
						return value.Undefined, err
					}
					if done {
						break
					}
					mapped, err := apply(item, i)
					if err != nil {
						return value.Undefined, err
					}
					r.arrayPush(out, mapped)
					i++
				}
				return value.Object(out), nil
			}
		}
		i := 0
		err := r.iterate(src, func(item value.Value) error {
			mapped, err := apply(item, i)
			if err != nil {
				return err
			}
			r.arrayPush(out, mapped)
			i++
			return nil
		})
		if err != nil {
			return value.Undefined, err
		}
		return value.Object(out), nil
	})

	r.method(proto, "push", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		for _, a := range args {
			r.arrayPush(arr, a)
		}
		return value.Number(float64(d.Length)), nil
	})
	r.method(proto, "pop", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		if d.Length == 0 {
			return value.Undefined, nil
		}
		d.Length--
		out, _ := arr.GetElement(d.Length)
		arr.DeleteElement(d.Length)
		return out, nil
	})
	r.method(proto, "shift", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		if d.Length == 0 {
			return value.Undefined, nil
		}
		out, _ := arr.GetElement(0)
		for i := uint32(1); i < d.Length; i++ {
			if item, ok := arr.GetElement(i); ok {
				arr.SetElement(i-1, item)
			} else {
				arr.DeleteElement(i - 1)
			}
		}
		d.Length--
		arr.DeleteElement(d.Length)
		return out, nil
	})
	r.method(proto, "unshift", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		n := uint32(len(args))
		for i := d.Length; i > 0; i-- {
			if item, ok := arr.GetElement(i - 1); ok {
				arr.SetElement(i-1+n, item)
			} else {
				arr.DeleteElement(i - 1 + n)
			}
		}
		for i, a := range args {
			arr.SetElement(uint32(i), a)
		}
		d.Length += n
		return value.Number(float64(d.Length)), nil
	})
	r.method(proto, "slice", 2, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		start, end, err := r.sliceBounds(args, int(d.Length))
		if err != nil {
			return value.Undefined, err
		}
		out := v.NewArrayObject()
		for i := start; i < end; i++ {
			if item, ok := arr.GetElement(uint32(i)); ok {
				r.arrayPush(out, item)
			} else {
				r.arrayAppendHoleRealm(out)
			}
		}
		return value.Object(out), nil
	})
	r.method(proto, "concat", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		out := v.NewArrayObject()
		for i := uint32(0); i < d.Length; i++ {
			item, _ := arr.GetElement(i)
			r.arrayPush(out, item)
		}
		for _, a := range args {
			if ao, ok := asObj(a); ok && ao.Kind() == object.KindArray {
				ad := arrayDataOf(ao)
				for i := uint32(0); i < ad.Length; i++ {
					item, _ := ao.GetElement(i)
					r.arrayPush(out, item)
				}
				continue
			}
			r.arrayPush(out, a)
		}
		return value.Object(out), nil
	})
	r.method(proto, "indexOf", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		for i := uint32(0); i < d.Length; i++ {
			if item, ok := arr.GetElement(i); ok && value.StrictEquals(item, arg(args, 0)) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Int32(-1), nil
	})
	r.method(proto, "includes", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		for i := uint32(0); i < d.Length; i++ {
			item, _ := arr.GetElement(i)
			if value.SameValueZero(item, arg(args, 0)) {
				return value.True, nil
			}
		}
		return value.False, nil
	})
	r.method(proto, "join", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		sep := ","
		if !arg(args, 0).IsUndefined() {
			s, err := v.ToString(arg(args, 0))
			if err != nil {
				return value.Undefined, err
			}
			sep = s.GoString()
		}
		out := ""
		for i := uint32(0); i < d.Length; i++ {
			if i > 0 {
				out += sep
			}
			item, ok := arr.GetElement(i)
			if !ok || item.IsNullish() {
				continue
			}
			s, err := v.ToString(item)
			if err != nil {
				return value.Undefined, err
			}
			out += s.GoString()
		}
		return stringValue(out), nil
	})
	r.method(proto, "reverse", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		for i, j := uint32(0), d.Length-1; d.Length > 0 && i < j; i, j = i+1, j-1 {
			a, aok := arr.GetElement(i)
			b, bok := arr.GetElement(j)
			if bok {
				arr.SetElement(i, b)
			} else {
				arr.DeleteElement(i)
			}
			if aok {
				arr.SetElement(j, a)
			} else {
				arr.DeleteElement(j)
			}
		}
		return this, nil
	})

	iterating := func(name string, body func(v *vm.VM, this value.Value, cb value.Value, arr *object.Object, d *object.ArrayData) (value.Value, error)) {
		r.method(proto, name, 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
			arr, d, err := r.thisArray(this)
			if err != nil {
				return value.Undefined, err
			}
			cb := arg(args, 0)
			if co, ok := asObj(cb); !ok || !co.IsCallable() {
				return value.Undefined, r.throwType("%s requires a callback function", name)
			}
			return body(v, this, cb, arr, d)
		})
	}

	iterating("forEach", func(v *vm.VM, this, cb value.Value, arr *object.Object, d *object.ArrayData) (value.Value, error) {
		for i := uint32(0); i < d.Length; i++ {
			item, ok := arr.GetElement(i)
			if !ok {
				continue
			}
			if _, err := v.Call(cb, value.Undefined, []value.Value{item, value.Number(float64(i)), this}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})
	iterating("map", func(v *vm.VM, this, cb value.Value, arr *object.Object, d *object.ArrayData) (value.Value, error) {
		out := v.NewArrayObject()
		for i := uint32(0); i < d.Length; i++ {
			item, ok := arr.GetElement(i)
			if !ok {
				r.arrayAppendHoleRealm(out)
				continue
			}
			res, err := v.Call(cb, value.Undefined, []value.Value{item, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			r.arrayPush(out, res)
		}
		return value.Object(out), nil
	})
	iterating("filter", func(v *vm.VM, this, cb value.Value, arr *object.Object, d *object.ArrayData) (value.Value, error) {
		out := v.NewArrayObject()
		for i := uint32(0); i < d.Length; i++ {
			item, ok := arr.GetElement(i)
			if !ok {
				continue
			}
			keep, err := v.Call(cb, value.Undefined, []value.Value{item, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if keep.ToBoolean() {
				r.arrayPush(out, item)
			}
		}
		return value.Object(out), nil
	})
	iterating("find", func(v *vm.VM, this, cb value.Value, arr *object.Object, d *object.ArrayData) (value.Value, error) {
		for i := uint32(0); i < d.Length; i++ {
			item, _ := arr.GetElement(i)
			hit, err := v.Call(cb, value.Undefined, []value.Value{item, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if hit.ToBoolean() {
				return item, nil
			}
		}
		return value.Undefined, nil
	})
	iterating("some", func(v *vm.VM, this, cb value.Value, arr *object.Object, d *object.ArrayData) (value.Value, error) {
		for i := uint32(0); i < d.Length; i++ {
			item, ok := arr.GetElement(i)
			if !ok {
				continue
			}
			hit, err := v.Call(cb, value.Undefined, []value.Value{item, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if hit.ToBoolean() {
				return value.True, nil
			}
		}
		return value.False, nil
	})
	iterating("every", func(v *vm.VM, this, cb value.Value, arr *object.Object, d *object.ArrayData) (value.Value, error) {
		for i := uint32(0); i < d.Length; i++ {
			item, ok := arr.GetElement(i)
			if !ok {
				continue
			}
			hit, err := v.Call(cb, value.Undefined, []value.Value{item, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if !hit.ToBoolean() {
				return value.False, nil
			}
		}
		return value.True, nil
	})
	r.method(proto, "reduce", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		cb := arg(args, 0)
		acc := value.Undefined
		hasAcc := len(args) > 1
		if hasAcc {
			acc = args[1]
		}
		for i := uint32(0); i < d.Length; i++ {
			item, ok := arr.GetElement(i)
			if !ok {
				continue
			}
			if !hasAcc {
				acc, hasAcc = item, true
				continue
			}
			acc, err = v.Call(cb, value.Undefined, []value.Value{acc, item, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
		}
		if !hasAcc {
			return value.Undefined, r.throwType("reduce of empty array with no initial value")
		}
		return acc, nil
	})

	// sort must be stable on equal elements (spec.md §8 invariant); Go's
	// sort.SliceStable provides exactly that guarantee.
	r.method(proto, "sort", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		comparator := arg(args, 0)
		var items []value.Value
		for i := uint32(0); i < d.Length; i++ {
			if item, ok := arr.GetElement(i); ok {
				items = append(items, item)
			}
		}
		var sortErr error
		sort.SliceStable(items, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			a, b := items[i], items[j]
			if co, ok := asObj(comparator); ok && co.IsCallable() {
				res, err := v.Call(comparator, value.Undefined, []value.Value{a, b})
				if err != nil {
					sortErr = err
					return false
				}
				f, err := v.ToNumber(res)
				if err != nil {
					sortErr = err
					return false
				}
				return f < 0
			}
			sa, err := v.ToString(a)
			if err != nil {
				sortErr = err
				return false
			}
			sb, err := v.ToString(b)
			if err != nil {
				sortErr = err
				return false
			}
			return sa.Compare(sb) < 0
		})
		if sortErr != nil {
			return value.Undefined, sortErr
		}
		for i, item := range items {
			arr.SetElement(uint32(i), item)
		}
		for i := uint32(len(items)); i < d.Length; i++ {
			arr.DeleteElement(i)
		}
		return this, nil
	})

	// values doubles as @@iterator; keys/entries ride the same shape.
	valuesFn := r.symbolMethod(proto, r.intr.SymbolIterator, "values", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		arr, _, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		inner := object.ArrayIterator(arr)
		return r.makeIteratorObject(func() (value.Value, bool, error) { return inner.Next() }), nil
	})
	r.VM.DefineHiddenProperty(proto, proto.Key("values"), value.Object(valuesFn))
	r.intr.ArrayValuesFn = valuesFn

	r.method(proto, "keys", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		_, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		i := uint32(0)
		return r.makeIteratorObject(func() (value.Value, bool, error) {
			if i >= d.Length {
				return value.Undefined, true, nil
			}
			out := value.Number(float64(i))
			i++
			return out, false, nil
		}), nil
	})
	r.method(proto, "entries", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		arr, d, err := r.thisArray(this)
		if err != nil {
			return value.Undefined, err
		}
		i := uint32(0)
		return r.makeIteratorObject(func() (value.Value, bool, error) {
			if i >= d.Length {
				return value.Undefined, true, nil
			}
			item, _ := arr.GetElement(i)
			pair := v.NewArrayOf(value.Number(float64(i)), item)
			i++
			return value.Object(pair), false, nil
		}), nil
	})
}

func (r *Realm) arrayAppendHoleRealm(arr *object.Object) {
	arrayDataOf(arr).Length++
}

// sliceBounds resolves (start, end) arguments against a length with the
// usual negative-index wrapping.
func (r *Realm) sliceBounds(args []value.Value, length int) (int, int, error) {
	v := r.VM
	resolve := func(a value.Value, def int) (int, error) {
		if a.IsUndefined() {
			return def, nil
		}
		f, err := v.ToNumber(a)
		if err != nil {
			return 0, err
		}
		n := int(f)
		if n < 0 {
			n += length
		}
		if n < 0 {
			n = 0
		}
		if n > length {
			n = length
		}
		return n, nil
	}
	start, err := resolve(arg(args, 0), 0)
	if err != nil {
		return 0, 0, err
	}
	end, err := resolve(arg(args, 1), length)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

// iterate drives the full iterator protocol over v, calling fn per value.
func (r *Realm) iterate(src value.Value, fn func(value.Value) error) error {
	v := r.VM
	iterFn, err := v.GetProperty(src, object.SymbolKey(r.intr.SymbolIterator))
	if err != nil {
		return err
	}
	if io, ok := asObj(iterFn); !ok || !io.IsCallable() {
		return r.throwType("value is not iterable")
	}
	iterV, err := v.Call(iterFn, src, nil)
	if err != nil {
		return err
	}
	nextFn, err := v.GetProperty(iterV, r.Global.Key("next"))
	if err != nil {
		return err
	}
	for {
		res, err := v.Call(nextFn, iterV, nil)
		if err != nil {
			return err
		}
		doneV, err := v.GetProperty(res, r.Global.Key("done"))
		if err != nil {
			return err
		}
		if doneV.ToBoolean() {
			return nil
		}
		item, err := v.GetProperty(res, r.Global.Key("value"))
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

// makeIteratorObject wraps a Go next function as a JS iterator object whose
// prototype is %Iterator.prototype% (deep intrinsic inheritance per spec.md
// §9).
func (r *Realm) makeIteratorObject(next func() (value.Value, bool, error)) value.Value {
	v := r.VM
	o := v.NewObject(r.intr.IteratorProto)
	r.method(o, "next", 0, func(v *vm.VM, _ value.Value, _ []value.Value) (value.Value, error) {
		item, done, err := next()
		if err != nil {
			return value.Undefined, err
		}
		return v.IterResult(item, done), nil
	})
	return value.Object(o)
}

// installIteratorIntrinsics gives %Iterator.prototype% its self-returning
// @@iterator and wires the generator prototype's resumption methods
// (spec.md §4.4 "Generators & async").
func (r *Realm) installIteratorIntrinsics() {
	r.symbolMethod(r.intr.IteratorProto, r.intr.SymbolIterator, "[Symbol.iterator]", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		return this, nil
	})

	gen := r.intr.GeneratorProto
	r.method(gen, "next", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		o, ok := asObj(this)
		if !ok {
			return value.Undefined, r.throwType("receiver is not a generator")
		}
		return v.GeneratorResume(o, "next", arg(args, 0))
	})
	r.method(gen, "return", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		o, ok := asObj(this)
		if !ok {
			return value.Undefined, r.throwType("receiver is not a generator")
		}
		return v.GeneratorResume(o, "return", arg(args, 0))
	})
	r.method(gen, "throw", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		o, ok := asObj(this)
		if !ok {
			return value.Undefined, r.throwType("receiver is not a generator")
		}
		return v.GeneratorResume(o, "throw", arg(args, 0))
	})
}
