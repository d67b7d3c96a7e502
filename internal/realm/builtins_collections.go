package realm

import (
	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/helpers"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/promise"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// mapEntry is one Map/Set slot; a deleted entry keeps its position empty so
// live iterators skip rather than shift (insertion-order iteration).
type mapEntry struct {
	key, val value.Value
	deleted  bool
}

// mapData backs Map and Set: a hash index over an insertion-ordered entry
// slice. Keys hash with helpers.HashCombine (the teacher's boost-style
// combiner) over a canonical encoding; collisions resolve by SameValueZero
// scan within the bucket.
type mapData struct {
	entries []mapEntry
	buckets map[uint32][]int
	size    int
}

func (m *mapData) Trace(visit func(gc.Traceable)) {
	for _, e := range m.entries {
		if e.deleted {
			continue
		}
		traceValue(visit, e.key)
		traceValue(visit, e.val)
	}
}

func traceValue(visit func(gc.Traceable), v value.Value) {
	if v.Kind() == value.KindObject {
		if t, ok := v.Object_().(gc.Traceable); ok {
			visit(t)
		}
	}
}

// hashValue produces a bucket key for SameValueZero equality: numbers hash
// by their float64 bits with -0 folded into +0 and every NaN folded
// together, strings by content, objects/symbols by identity.
func hashValue(v value.Value) uint32 {
	switch v.Kind() {
	case value.KindUndefined:
		return helpers.HashCombine(0, 1)
	case value.KindNull:
		return helpers.HashCombine(0, 2)
	case value.KindBool:
		if v.Bool() {
			return helpers.HashCombine(0, 3)
		}
		return helpers.HashCombine(0, 4)
	case value.KindInt32, value.KindFloat64:
		f := v.Float64()
		if f != f {
			return helpers.HashCombine(0, 5)
		}
		// NumberToString renders -0 as "0", folding the two zeros into one
		// bucket exactly as SameValueZero requires.
		return helpers.HashCombineString(6, vm.NumberToString(f))
	case value.KindString:
		return helpers.HashCombineString(7, v.String_().GoString())
	case value.KindBigInt:
		return helpers.HashCombineString(8, v.BigInt_().String())
	case value.KindSymbol:
		return helpers.HashCombine(9, uint32(v.Symbol_().ID()))
	default:
		if o, ok := v.Object_().(*object.Object); ok {
			return helpers.HashCombine(10, uint32(o.GCID()))
		}
		return 10
	}
}

func (m *mapData) find(key value.Value) int {
	for _, idx := range m.buckets[hashValue(key)] {
		e := m.entries[idx]
		if !e.deleted && value.SameValueZero(e.key, key) {
			return idx
		}
	}
	return -1
}

func (m *mapData) set(key, val value.Value) {
	if i := m.find(key); i >= 0 {
		m.entries[i].val = val
		return
	}
	if m.buckets == nil {
		m.buckets = make(map[uint32][]int)
	}
	h := hashValue(key)
	m.entries = append(m.entries, mapEntry{key: key, val: val})
	m.buckets[h] = append(m.buckets[h], len(m.entries)-1)
	m.size++
}

func (m *mapData) delete(key value.Value) bool {
	if i := m.find(key); i >= 0 {
		m.entries[i].deleted = true
		m.entries[i].key = value.Undefined
		m.entries[i].val = value.Undefined
		m.size--
		return true
	}
	return false
}

// installCollectionIntrinsics wires %Map% and %Set%.
func (r *Realm) installCollectionIntrinsics() {
	v := r.VM

	mapProto := v.NewObject(r.intr.ObjectProto)
	r.ctor("Map", 0, mapProto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o := v.NewObject(mapProto)
		o.SetKind(object.KindMap)
		o.SetData(&mapData{})
		if a := arg(args, 0); !a.IsNullish() {
			err := r.iterate(a, func(item value.Value) error {
				pair, ok := asObj(item)
				if !ok {
					return r.throwType("iterator value is not an entry object")
				}
				k, _ := pair.GetElement(0)
				val, _ := pair.GetElement(1)
				o.Data().(*mapData).set(k, val)
				return nil
			})
			if err != nil {
				return value.Undefined, err
			}
		}
		return value.Object(o), nil
	})

	thisMap := func(this value.Value, kind object.Kind, what string) (*mapData, error) {
		o, ok := asObj(this)
		if !ok || o.Kind() != kind {
			return nil, r.throwType("receiver is not a %s", what)
		}
		return o.Data().(*mapData), nil
	}

	r.method(mapProto, "get", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindMap, "Map")
		if err != nil {
			return value.Undefined, err
		}
		if i := m.find(arg(args, 0)); i >= 0 {
			return m.entries[i].val, nil
		}
		return value.Undefined, nil
	})
	r.method(mapProto, "set", 2, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindMap, "Map")
		if err != nil {
			return value.Undefined, err
		}
		m.set(arg(args, 0), arg(args, 1))
		return this, nil
	})
	r.method(mapProto, "has", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindMap, "Map")
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(m.find(arg(args, 0)) >= 0), nil
	})
	r.method(mapProto, "delete", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindMap, "Map")
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(m.delete(arg(args, 0))), nil
	})
	r.sizeAccessor(mapProto, func(this value.Value) (int, error) {
		m, err := thisMap(this, object.KindMap, "Map")
		if err != nil {
			return 0, err
		}
		return m.size, nil
	})
	r.method(mapProto, "forEach", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindMap, "Map")
		if err != nil {
			return value.Undefined, err
		}
		cb := arg(args, 0)
		for _, e := range m.entries {
			if e.deleted {
				continue
			}
			if _, err := v.Call(cb, arg(args, 1), []value.Value{e.val, e.key, this}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})
	r.symbolMethod(mapProto, r.intr.SymbolIterator, "entries", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindMap, "Map")
		if err != nil {
			return value.Undefined, err
		}
		i := 0
		return r.makeIteratorObject(func() (value.Value, bool, error) {
			for i < len(m.entries) {
				e := m.entries[i]
				i++
				if e.deleted {
					continue
				}
				return value.Object(v.NewArrayOf(e.key, e.val)), false, nil
			}
			return value.Undefined, true, nil
		}), nil
	})

	setProto := v.NewObject(r.intr.ObjectProto)
	r.ctor("Set", 0, setProto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o := v.NewObject(setProto)
		o.SetKind(object.KindSet)
		o.SetData(&mapData{})
		if a := arg(args, 0); !a.IsNullish() {
			err := r.iterate(a, func(item value.Value) error {
				o.Data().(*mapData).set(item, item)
				return nil
			})
			if err != nil {
				return value.Undefined, err
			}
		}
		return value.Object(o), nil
	})
	r.method(setProto, "add", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindSet, "Set")
		if err != nil {
			return value.Undefined, err
		}
		m.set(arg(args, 0), arg(args, 0))
		return this, nil
	})
	r.method(setProto, "has", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindSet, "Set")
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(m.find(arg(args, 0)) >= 0), nil
	})
	r.method(setProto, "delete", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindSet, "Set")
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(m.delete(arg(args, 0))), nil
	})
	r.sizeAccessor(setProto, func(this value.Value) (int, error) {
		m, err := thisMap(this, object.KindSet, "Set")
		if err != nil {
			return 0, err
		}
		return m.size, nil
	})
	r.symbolMethod(setProto, r.intr.SymbolIterator, "values", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		m, err := thisMap(this, object.KindSet, "Set")
		if err != nil {
			return value.Undefined, err
		}
		i := 0
		return r.makeIteratorObject(func() (value.Value, bool, error) {
			for i < len(m.entries) {
				e := m.entries[i]
				i++
				if e.deleted {
					continue
				}
				return e.key, false, nil
			}
			return value.Undefined, true, nil
		}), nil
	})
}

// sizeAccessor installs a `size` getter backed by fn.
func (r *Realm) sizeAccessor(proto *object.Object, fn func(this value.Value) (int, error)) {
	v := r.VM
	getter := v.NewNativeFunction("get size", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		n, err := fn(this)
		if err != nil {
			return value.Undefined, err
		}
		return value.Int32(int32(n)), nil
	})
	proto.VTable().DefineOwnProperty(proto, v, proto.Key("size"), object.Descriptor{
		Get: value.Object(getter), Set: value.Undefined,
		HasGet: true, HasSet: true,
		Enumerable: false, Configurable: true,
		HasEnumerable: true, HasConfigurable: true,
	})
}

// weakEntry pairs a weak reference to the key object with its value.
type weakEntry struct {
	key gc.WeakRef
	val value.Value
}

// weakMapData backs WeakMap/WeakSet as a list of gc.WeakRef keyed entries:
// lookups deref through the collector, so an unreachable key reads as
// absent (spec.md §4.6 weak reference contract; the ephemeron-table shape
// SUPPLEMENTED FEATURES notes WeakMap shares with WeakRef).
type weakMapData struct {
	entries map[gc.ID]weakEntry
}

// installWeakIntrinsics wires %WeakMap%, %WeakSet%, %WeakRef%, and
// %FinalizationRegistry% over the collector's weak reference support.
func (r *Realm) installWeakIntrinsics() {
	v := r.VM

	weakKey := func(a value.Value) (*object.Object, error) {
		o, ok := asObj(a)
		if !ok {
			return nil, r.throwType("invalid value used as weak key")
		}
		return o, nil
	}

	makeWeakCollection := func(name string, kind object.Kind, isMap bool) {
		proto := v.NewObject(r.intr.ObjectProto)
		r.ctor(name, 0, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
			o := v.NewObject(proto)
			o.SetKind(kind)
			o.SetData(&weakMapData{entries: make(map[gc.ID]weakEntry)})
			return value.Object(o), nil
		})
		thisWeak := func(this value.Value) (*weakMapData, error) {
			o, ok := asObj(this)
			if !ok || o.Kind() != kind {
				return nil, r.throwType("receiver is not a %s", name)
			}
			return o.Data().(*weakMapData), nil
		}
		lookup := func(w *weakMapData, key *object.Object) (value.Value, bool) {
			e, ok := w.entries[key.GCID()]
			if !ok {
				return value.Undefined, false
			}
			if _, alive := e.key.Deref(); !alive {
				delete(w.entries, key.GCID())
				return value.Undefined, false
			}
			return e.val, true
		}

		setName := "add"
		if isMap {
			setName = "set"
		}
		r.method(proto, setName, 2, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
			w, err := thisWeak(this)
			if err != nil {
				return value.Undefined, err
			}
			key, err := weakKey(arg(args, 0))
			if err != nil {
				return value.Undefined, err
			}
			val := arg(args, 0)
			if isMap {
				val = arg(args, 1)
			}
			w.entries[key.GCID()] = weakEntry{key: r.Heap.NewWeakRef(key), val: val}
			return this, nil
		})
		r.method(proto, "has", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
			w, err := thisWeak(this)
			if err != nil {
				return value.Undefined, err
			}
			key, err := weakKey(arg(args, 0))
			if err != nil {
				return value.Undefined, err
			}
			_, ok := lookup(w, key)
			return value.Bool(ok), nil
		})
		r.method(proto, "delete", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
			w, err := thisWeak(this)
			if err != nil {
				return value.Undefined, err
			}
			key, err := weakKey(arg(args, 0))
			if err != nil {
				return value.Undefined, err
			}
			_, ok := lookup(w, key)
			delete(w.entries, key.GCID())
			return value.Bool(ok), nil
		})
		if isMap {
			r.method(proto, "get", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
				w, err := thisWeak(this)
				if err != nil {
					return value.Undefined, err
				}
				key, err := weakKey(arg(args, 0))
				if err != nil {
					return value.Undefined, err
				}
				val, _ := lookup(w, key)
				return val, nil
			})
		}
	}
	makeWeakCollection("WeakMap", object.KindWeakMap, true)
	makeWeakCollection("WeakSet", object.KindWeakSet, false)

	// WeakRef: deref goes through the heap so a successful read joins the
	// turn's kept-alive list (spec.md §4.6).
	weakRefProto := v.NewObject(r.intr.ObjectProto)
	r.ctor("WeakRef", 1, weakRefProto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		target, err := weakKey(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		o := v.NewObject(weakRefProto)
		o.SetKind(object.KindWeakRef)
		ref := r.Heap.NewWeakRef(target)
		o.SetData(&ref)
		return value.Object(o), nil
	})
	r.method(weakRefProto, "deref", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		o, ok := asObj(this)
		if !ok || o.Kind() != object.KindWeakRef {
			return value.Undefined, r.throwType("receiver is not a WeakRef")
		}
		ref := o.Data().(*gc.WeakRef)
		target, alive := ref.Deref()
		if !alive {
			return value.Undefined, nil
		}
		return value.Object(target.(*object.Object)), nil
	})

	// FinalizationRegistry: cleanup callbacks run as ordinary jobs after a
	// collection confirms unreachability (spec.md §4.6).
	finProto := v.NewObject(r.intr.ObjectProto)
	r.ctor("FinalizationRegistry", 1, finProto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		if co, ok := asObj(cb); !ok || !co.IsCallable() {
			return value.Undefined, r.throwType("FinalizationRegistry requires a cleanup callback")
		}
		o := v.NewObject(finProto)
		o.SetData(&finRegistryData{cleanup: cb, byToken: make(map[*object.Object][]*object.Object)})
		return value.Object(o), nil
	})
	thisRegistry := func(this value.Value) (*finRegistryData, error) {
		o, ok := asObj(this)
		if !ok {
			return nil, r.throwType("receiver is not a FinalizationRegistry")
		}
		d, ok := o.Data().(*finRegistryData)
		if !ok {
			return nil, r.throwType("receiver is not a FinalizationRegistry")
		}
		return d, nil
	}
	r.method(finProto, "register", 2, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		d, err := thisRegistry(this)
		if err != nil {
			return value.Undefined, err
		}
		target, err := weakKey(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		held := arg(args, 1)
		var token *object.Object
		if t, ok := asObj(arg(args, 2)); ok {
			token = t
			d.byToken[token] = append(d.byToken[token], target)
		}
		cb := d.cleanup
		r.Heap.RegisterFinalizer(target, gc.Finalizer{
			Token: token,
			Run: func() {
				v.AddJobRoot(cb)
				v.AddJobRoot(held)
				r.Jobs.Enqueue(finalizerJob(v, cb, held))
			},
		})
		return value.Undefined, nil
	})
	r.method(finProto, "unregister", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		d, err := thisRegistry(this)
		if err != nil {
			return value.Undefined, err
		}
		token, ok := asObj(arg(args, 0))
		if !ok {
			return value.False, nil
		}
		removed := false
		for _, target := range d.byToken[token] {
			if r.Heap.UnregisterFinalizer(target, token) {
				removed = true
			}
		}
		delete(d.byToken, token)
		return value.Bool(removed), nil
	})
}

// finRegistryData is a FinalizationRegistry's payload: its cleanup callback
// plus the token index unregister needs.
type finRegistryData struct {
	cleanup value.Value
	byToken map[*object.Object][]*object.Object
}

func (d *finRegistryData) Trace(visit func(gc.Traceable)) {
	traceValue(visit, d.cleanup)
}

// finalizerJob wraps one cleanup invocation as an ordinary job (spec.md
// §4.7: finalizers run through the same queue as promise reactions).
func finalizerJob(v *vm.VM, cb, held value.Value) promise.Job {
	return promise.Job{
		Run: func() error {
			_, err := v.Call(cb, value.Undefined, []value.Value{held})
			return err
		},
	}
}
