// Package object implements the engine's Object model (spec.md §3 "Object",
// §4.5 "Object & Value Model"): a shape-backed named-property store plus an
// indexed-elements section, a prototype pointer, an extensible flag, an
// optional private-elements list, a kind-discriminated data payload, and a
// vtable of internal methods that ordinary objects share and exotic kinds
// (Array, String, Arguments, Proxy, ...) override.
//
// Dynamic dispatch through a vtable struct (rather than a Go interface per
// object kind) mirrors the pattern go-ethereum's core/vm documents for its
// opcode jump table (operation structs held in a flat array, see
// internal/bytecode and DESIGN.md) and is exactly the tradeoff spec.md §9
// calls out as equally valid to a per-kind enum switch: "a per-object vtable
// pointer (or equivalent tagged-variant dispatch) is the natural mapping; a
// single enum of object kinds with a match at every internal call is
// equally valid." A vtable of function values was chosen here because
// exotic kinds only ever override one or two of the eleven internal
// methods (spec.md §3), so a struct of overridable funcs avoids a giant
// switch repeated at every call site.
package object

import (
	"fmt"
	"sort"

	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/shape"
	"github.com/BasixKOR/boa/internal/value"
)

// Invoker is the narrow interface the object package needs back into the VM
// to call accessor getters/setters and Proxy traps, without importing the vm
// package (which itself imports object). Satisfied by *vm.VM.
type Invoker interface {
	Call(fn value.Value, this value.Value, args []value.Value) (value.Value, error)
}

// Kind discriminates the data payload carried by an object, spec.md §3's
// "data payload discriminated by object kind".
type Kind uint8

const (
	KindOrdinary Kind = iota
	KindArray
	KindFunction
	KindString
	KindArguments
	KindRegExp
	KindMap
	KindSet
	KindWeakMap
	KindWeakSet
	KindWeakRef
	KindPromise
	KindDate
	KindError
	KindTypedArray
	KindArrayBuffer
	KindProxy
)

// PropertyKey is either an interned string or a *value.Symbol, spec.md §3's
// "named string/symbol property layout". Text is retained alongside the
// interned id purely so the array-index fast path (spec.md §4.5 "Indexed
// elements") can recognize canonical numeric keys ("0", "1", ...) without
// this package needing a handle to the interner.
type PropertyKey struct {
	ID    intern.ID
	Text  string
	Sym   *value.Symbol
	IsSym bool
}

func StringKey(id intern.ID, text string) PropertyKey { return PropertyKey{ID: id, Text: text} }
func SymbolKey(s *value.Symbol) PropertyKey            { return PropertyKey{Sym: s, IsSym: true} }

// Key mints a string PropertyKey from raw text through the realm interner
// the shape tree carries. Array-index keys skip interning -- they live in
// the indexed-elements section and never reach the shape table.
func (o *Object) Key(text string) PropertyKey {
	if _, ok := ArrayIndex(text); ok {
		return PropertyKey{Text: text}
	}
	return PropertyKey{ID: o.tree.Intern(text), Text: text}
}

func (k PropertyKey) Equal(other PropertyKey) bool {
	if k.IsSym != other.IsSym {
		return false
	}
	if k.IsSym {
		return k.Sym == other.Sym
	}
	return k.ID == other.ID
}

// PrivateName identifies a private class element (#x) by identity, not by
// name string -- two classes' "#x" never collide (spec.md §3 "private
// names list keyed by private-name identity").
type PrivateName struct {
	Description string
}

// Descriptor is a fully-populated ECMAScript property descriptor, the value
// ValidateAndApplyPropertyDescriptor (spec.md §4.5) reads and writes.
type Descriptor struct {
	Value        value.Value
	Get, Set     value.Value
	HasValue     bool
	HasGet       bool
	HasSet       bool
	Writable     bool
	Enumerable   bool
	Configurable bool
	HasWritable, HasEnumerable, HasConfigurable bool
}

func (d Descriptor) IsAccessor() bool { return d.HasGet || d.HasSet }
func (d Descriptor) IsData() bool     { return d.HasValue || d.HasWritable }
func (d Descriptor) IsGeneric() bool  { return !d.IsAccessor() && !d.IsData() }

// VTable is the set of internal methods spec.md §3 lists. Every entry takes
// the receiving object plus an Invoker for the calls that may re-enter the
// VM (accessor getters/setters, Proxy traps).
type VTable struct {
	GetOwnProperty    func(o *Object, inv Invoker, key PropertyKey) (Descriptor, bool, error)
	DefineOwnProperty func(o *Object, inv Invoker, key PropertyKey, desc Descriptor) (bool, error)
	HasProperty       func(o *Object, inv Invoker, key PropertyKey) (bool, error)
	Get               func(o *Object, inv Invoker, key PropertyKey, receiver value.Value) (value.Value, error)
	Set               func(o *Object, inv Invoker, key PropertyKey, v value.Value, receiver value.Value) (bool, error)
	Delete            func(o *Object, inv Invoker, key PropertyKey) (bool, error)
	OwnPropertyKeys   func(o *Object, inv Invoker) ([]PropertyKey, error)
	GetPrototypeOf    func(o *Object, inv Invoker) (*Object, error)
	SetPrototypeOf    func(o *Object, inv Invoker, proto *Object) (bool, error)
	IsExtensible      func(o *Object, inv Invoker) (bool, error)
	PreventExtensions func(o *Object, inv Invoker) (bool, error)
	Call              func(o *Object, inv Invoker, this value.Value, args []value.Value) (value.Value, error)
	Construct         func(o *Object, inv Invoker, args []value.Value, newTarget *Object) (value.Value, error)
}

// elements backs the indexed-elements section: dense storage below a length
// threshold, sparse (map) storage above it (spec.md §4.5 "Indexed
// elements").
type elements struct {
	dense  []value.Value // index i holds dense[i]; a hole is value.Undefined with present=false in holes
	holes  map[int]bool
	sparse map[uint32]value.Value
	isSparse bool
	// attrs holds non-default attributes for indices defined via
	// Object.defineProperty (spec.md §4.5 end-to-end Array scenario: an
	// index can be made non-configurable). Absent from this map means the
	// ECMAScript default for an array index: writable, enumerable,
	// configurable.
	attrs map[uint32]shape.Attrs
}

const denseSparseThreshold = 1 << 16

// Object is the engine's runtime object (spec.md §3 "Object").
type Object struct {
	id       gc.ID
	tree     *shape.Tree
	shape    *shape.Shape
	storage  []value.Value
	elems    elements
	proto    *Object
	extensible bool
	private  map[*PrivateName]value.Value
	// symProps holds symbol-keyed properties out of line from the shape
	// tree, which only models named *string* property layout transitions
	// (spec.md §3's shape is keyed on "named string/symbol property layout",
	// but symbol keys are comparatively rare and never participate in a
	// hidden-class transition shared across objects the way string keys do,
	// so they are tracked directly rather than through shape.Tree).
	symProps map[*value.Symbol]Descriptor

	// accSetters holds the setter half of an accessor property, keyed by the
	// getter's storage slot. The shape tree allocates exactly one slot per
	// key regardless of data/accessor kind, so the setter lives out of line
	// rather than claiming a second slot another key would collide with.
	accSetters map[int]value.Value

	kind Kind
	data any // kind-specific payload: *ArrayData, *FunctionData, *ProxyData, ...

	vt *VTable
}

// New constructs an ordinary object with the given shape, prototype, and
// heap id. Exotic constructors (NewArray, NewFunction, NewProxy, ...) call
// this and then override vt/kind/data.
func New(id gc.ID, tree *shape.Tree, sh *shape.Shape, proto *Object) *Object {
	return &Object{
		id:         id,
		tree:       tree,
		shape:      sh,
		extensible: true,
		proto:      proto,
		vt:         &Ordinary,
		kind:       KindOrdinary,
	}
}

func (o *Object) GCID() gc.ID   { return o.id }
func (o *Object) Shape() *shape.Shape { return o.shape }
func (o *Object) Tree() *shape.Tree   { return o.tree }
func (o *Object) Kind() Kind    { return o.kind }
func (o *Object) Data() any     { return o.data }
func (o *Object) SetData(d any) { o.data = d }
func (o *Object) Prototype() *Object { return o.proto }
func (o *Object) VTable() *VTable { return o.vt }
func (o *Object) SetVTable(vt *VTable) { o.vt = vt }
func (o *Object) SetKind(k Kind) { o.kind = k }

// IsCallable / IsConstructor satisfy value.Ref so package value can expose
// typeof "function" without importing package object.
func (o *Object) IsCallable() bool    { return o.vt.Call != nil }
func (o *Object) IsConstructor() bool { return o.vt.Construct != nil }

// Trace implements gc.Traceable: an object's GC references are its
// prototype, its named-property storage, its indexed elements, its private
// values, and whatever its kind-specific data payload owns.
func (o *Object) Trace(visit func(gc.Traceable)) {
	if o.proto != nil {
		visit(o.proto)
	}
	for _, v := range o.storage {
		visitValue(visit, v)
	}
	for _, v := range o.accSetters {
		visitValue(visit, v)
	}
	for _, v := range o.elems.dense {
		visitValue(visit, v)
	}
	for _, v := range o.elems.sparse {
		visitValue(visit, v)
	}
	for _, v := range o.private {
		visitValue(visit, v)
	}
	for _, d := range o.symProps {
		if d.IsAccessor() {
			visitValue(visit, d.Get)
			visitValue(visit, d.Set)
		} else {
			visitValue(visit, d.Value)
		}
	}
	if tr, ok := o.data.(interface{ Trace(func(gc.Traceable)) }); ok {
		tr.Trace(visit)
	}
}

func visitValue(visit func(gc.Traceable), v value.Value) {
	if v.Kind() == value.KindObject {
		if ref := v.Object_(); ref != nil {
			if t, ok := ref.(gc.Traceable); ok {
				visit(t)
			}
		}
	}
}

// --- storage slot access, used by the ordinary vtable and by ICs ---

func (o *Object) slot(i int) value.Value {
	if i < 0 || i >= len(o.storage) {
		return value.Undefined
	}
	return o.storage[i]
}

func (o *Object) setSlot(i int, v value.Value) {
	for len(o.storage) <= i {
		o.storage = append(o.storage, value.Undefined)
	}
	o.storage[i] = v
}

// setAccessor stores an accessor pair: the getter occupies the key's shape
// slot, the setter the side table.
func (o *Object) setAccessor(i int, get, set value.Value) {
	o.setSlot(i, get)
	if o.accSetters == nil {
		o.accSetters = make(map[int]value.Value)
	}
	o.accSetters[i] = set
}

func (o *Object) setterAt(i int) value.Value {
	if v, ok := o.accSetters[i]; ok {
		return v
	}
	return value.Undefined
}

// SlotValue reads a named-property storage slot directly, the inline-cache
// fast path's entry point (spec.md §4.3 IC slots). Callers must have
// verified the object's shape against the cache first.
func (o *Object) SlotValue(i int) value.Value { return o.slot(i) }

// Extensible/SetExtensible back IsExtensible/PreventExtensions for ordinary
// objects; exotic kinds that override these still funnel through this flag.
func (o *Object) Extensible() bool      { return o.extensible }
func (o *Object) setExtensible(b bool)  { o.extensible = b }

// ---- private elements (spec.md §3 "an optional private-elements list") ----

func (o *Object) GetPrivate(name *PrivateName) (value.Value, bool) {
	v, ok := o.private[name]
	return v, ok
}

func (o *Object) SetPrivate(name *PrivateName, v value.Value) {
	if o.private == nil {
		o.private = make(map[*PrivateName]value.Value)
	}
	o.private[name] = v
}

func (o *Object) HasPrivate(name *PrivateName) bool {
	_, ok := o.private[name]
	return ok
}

// ---- indexed elements ----

// ArrayIndex reports whether s is a canonical array index (a string key
// whose digits round-trip and are < 2^32-1), and its numeric value.
func ArrayIndex(s string) (uint32, bool) {
	if s == "" || (s[0] == '0' && len(s) > 1) {
		return 0, false
	}
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
		if n >= 1<<32-1 {
			return 0, false
		}
	}
	return uint32(n), true
}

func (o *Object) GetElement(idx uint32) (value.Value, bool) {
	if o.elems.isSparse {
		v, ok := o.elems.sparse[idx]
		return v, ok
	}
	i := int(idx)
	if i < 0 || i >= len(o.elems.dense) {
		return value.Undefined, false
	}
	if o.elems.holes != nil && o.elems.holes[i] {
		return value.Undefined, false
	}
	return o.elems.dense[i], true
}

func (o *Object) HasElement(idx uint32) bool {
	_, ok := o.GetElement(idx)
	return ok
}

// SetElement writes idx, converting dense storage to sparse once the gap
// between the highest index and the current length exceeds a threshold
// (spec.md §4.5 "Transition from dense to sparse happens when the gap ...
// exceeds a threshold").
func (o *Object) SetElement(idx uint32, v value.Value) {
	if !o.elems.isSparse {
		gap := int(idx) - len(o.elems.dense)
		if gap > denseSparseThreshold {
			o.convertToSparse()
		}
	}
	if o.elems.isSparse {
		if o.elems.sparse == nil {
			o.elems.sparse = make(map[uint32]value.Value)
		}
		o.elems.sparse[idx] = v
		return
	}
	for len(o.elems.dense) <= int(idx) {
		o.elems.dense = append(o.elems.dense, value.Undefined)
		if o.elems.holes != nil {
			o.elems.holes[len(o.elems.dense)-1] = true
		}
	}
	if o.elems.holes != nil {
		delete(o.elems.holes, int(idx))
	}
	o.elems.dense[idx] = v
}

func (o *Object) DeleteElement(idx uint32) {
	delete(o.elems.attrs, idx)
	if o.elems.isSparse {
		delete(o.elems.sparse, idx)
		return
	}
	i := int(idx)
	if i < 0 || i >= len(o.elems.dense) {
		return
	}
	if o.elems.holes == nil {
		o.elems.holes = make(map[int]bool)
	}
	o.elems.holes[i] = true
	o.elems.dense[i] = value.Undefined
}

// defaultElemAttrs are the attributes an array index has unless
// Object.defineProperty overrode them (spec.md §4.5 "Indexed elements").
var defaultElemAttrs = shape.Attrs{Writable: true, Enumerable: true, Configurable: true, Kind: shape.KindData}

// ElementAttrs returns the attributes recorded for idx, or the ECMAScript
// default if none were ever overridden.
func (o *Object) ElementAttrs(idx uint32) shape.Attrs {
	if a, ok := o.elems.attrs[idx]; ok {
		return a
	}
	return defaultElemAttrs
}

// SetElementAttrs overrides idx's attributes; storing the all-default value
// is equivalent to clearing the override and is dropped to keep the map
// small.
func (o *Object) SetElementAttrs(idx uint32, attrs shape.Attrs) {
	if attrs == defaultElemAttrs {
		delete(o.elems.attrs, idx)
		return
	}
	if o.elems.attrs == nil {
		o.elems.attrs = make(map[uint32]shape.Attrs)
	}
	o.elems.attrs[idx] = attrs
}

func (o *Object) convertToSparse() {
	m := make(map[uint32]value.Value, len(o.elems.dense))
	for i, v := range o.elems.dense {
		if o.elems.holes != nil && o.elems.holes[i] {
			continue
		}
		m[uint32(i)] = v
	}
	o.elems.sparse = m
	o.elems.dense = nil
	o.elems.holes = nil
	o.elems.isSparse = true
}

// ElementIndices returns present indices in ascending order, used by
// OwnPropertyKeys (integer keys sort before string keys, spec.md's ordinary
// [[OwnPropertyKeys]] contract) and by Array iteration.
func (o *Object) ElementIndices() []uint32 {
	var out []uint32
	if o.elems.isSparse {
		for k := range o.elems.sparse {
			out = append(out, k)
		}
	} else {
		for i := range o.elems.dense {
			if o.elems.holes != nil && o.elems.holes[i] {
				continue
			}
			out = append(out, uint32(i))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (o *Object) String() string {
	return fmt.Sprintf("[object kind=%d id=%d]", o.kind, o.id)
}
