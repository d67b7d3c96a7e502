// Package value implements the engine's tagged Value union (spec.md §3
// "Value"): undefined, null, boolean, int32, float64, string, bigint,
// symbol, or object.
//
// The representation follows the same idiom esbuild uses for its AST nodes
// (js_ast.Expr is a small fixed struct wrapping an "E" marker interface,
// js_ast.EString / js_ast.ENumber / ... are the variants): a Value is a
// small fixed struct carrying a Kind tag plus the minimum payload to
// reconstruct any variant without an allocation for the common scalar
// cases (undefined, null, bool, int32, float64), falling back to a pointer
// field only for the heap-shaped variants (string, bigint, symbol, object).
// This gets most of the benefit of NaN-boxing (spec.md §3 explicitly allows
// either strategy) with ordinary, escape-analysis-friendly Go structs
// instead of unsafe pointer tagging.
package value

import (
	"math"
	"sync/atomic"

	"github.com/BasixKOR/boa/internal/bigint"
	"github.com/BasixKOR/boa/internal/jsstring"
)

// Kind discriminates which field of Value is meaningful.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt32
	KindFloat64
	KindString
	KindBigInt
	KindSymbol
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt32, KindFloat64:
		return "number"
	case KindString:
		return "string"
	case KindBigInt:
		return "bigint"
	case KindSymbol:
		return "symbol"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Ref is the interface satisfied by *object.Object, kept here as an opaque
// handle to avoid an import cycle (package object depends on package value
// for property storage, not the other way around). The VM and object
// package both type-assert through this interface to the concrete object
// type they need.
type Ref interface {
	IsCallable() bool
	IsConstructor() bool
}

// Symbol is a unique, possibly-described value used as a property key or
// as Symbol() values. Identity, not description, is what makes two symbols
// equal -- so this is a pointer type.
type Symbol struct {
	Description jsstring.String
	HasDesc     bool
	id          uint64
}

var nextSymbolID uint64

// NewSymbol allocates a fresh symbol, unique from every other symbol
// regardless of description (spec.md §3: symbols are compared by identity).
func NewSymbol(desc jsstring.String, hasDesc bool) *Symbol {
	return &Symbol{Description: desc, HasDesc: hasDesc, id: atomic.AddUint64(&nextSymbolID, 1)}
}

// ID returns this symbol's creation-order id, used only to give packages
// like object a stable (not spec-mandated) iteration order over
// symbol-keyed properties.
func (s *Symbol) ID() uint64 { return s.id }

// Value is the engine's tagged union, see spec.md §3.
type Value struct {
	kind Kind
	b    bool
	i32  int32
	f64  float64
	str  jsstring.String
	big  bigint.Int
	sym  *Symbol
	obj  Ref
}

var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBool, b: true}
	False     = Value{kind: KindBool, b: false}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Int32 constructs a number stored in the int32 fast path, used whenever a
// double is exactly representable as a signed 32-bit integer (spec.md §3
// "Number").
func Int32(n int32) Value { return Value{kind: KindInt32, i32: n} }

// Number constructs a number value, automatically choosing the int32 fast
// path when n is exactly representable as one -- this is the single place
// that encoding decision is made so equality and typeof never need to care
// which path produced a given mathematical value.
func Number(n float64) Value {
	if n == math.Trunc(n) && !math.Signbit(n) || (n == math.Trunc(n) && math.Signbit(n) && n != 0) {
		if i := int32(n); float64(i) == n {
			return Int32(i)
		}
	}
	return Value{kind: KindFloat64, f64: n}
}

func String(s jsstring.String) Value { return Value{kind: KindString, str: s} }
func BigInt(b bigint.Int) Value      { return Value{kind: KindBigInt, big: b} }
func SymbolValue(s *Symbol) Value    { return Value{kind: KindSymbol, sym: s} }
func Object(o Ref) Value             { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind         { return v.kind }
func (v Value) IsUndefined() bool  { return v.kind == KindUndefined }
func (v Value) IsNull() bool       { return v.kind == KindNull }
func (v Value) IsNullish() bool    { return v.kind == KindUndefined || v.kind == KindNull }
func (v Value) IsObject() bool     { return v.kind == KindObject }
func (v Value) IsString() bool     { return v.kind == KindString }
func (v Value) IsNumber() bool     { return v.kind == KindInt32 || v.kind == KindFloat64 }
func (v Value) IsBigInt() bool     { return v.kind == KindBigInt }
func (v Value) IsSymbol() bool     { return v.kind == KindSymbol }
func (v Value) IsBool() bool       { return v.kind == KindBool }

func (v Value) Bool() bool { return v.b }

// Float64 widens int32 or float64 storage to a float64, the representation
// used by every arithmetic opcode that isn't an integer fast path.
func (v Value) Float64() float64 {
	if v.kind == KindInt32 {
		return float64(v.i32)
	}
	return v.f64
}

// Int32Fast reports whether the number is stored in the int32 fast path and,
// if so, its value -- used by arithmetic opcodes that special-case integer
// overflow-free addition/subtraction.
func (v Value) Int32Fast() (int32, bool) {
	if v.kind == KindInt32 {
		return v.i32, true
	}
	return 0, false
}

func (v Value) String_() jsstring.String { return v.str }
func (v Value) BigInt_() bigint.Int      { return v.big }
func (v Value) Symbol_() *Symbol         { return v.sym }
func (v Value) Object_() Ref             { return v.obj }

// TypeOf implements the `typeof` operator (spec.md §4.3 opcode TypeOf).
// Functions are objects whose IsCallable() is true; callers that need the
// "function" string must check that before falling back to TypeOf.
func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "object"
	case KindBool:
		return "boolean"
	case KindInt32, KindFloat64:
		return "number"
	case KindString:
		return "string"
	case KindBigInt:
		return "bigint"
	case KindSymbol:
		return "symbol"
	case KindObject:
		if v.obj != nil && v.obj.IsCallable() {
			return "function"
		}
		return "object"
	}
	return "undefined"
}

// SameValueZero implements the comparison used by ===, Map/Set key equality,
// and Array.prototype.includes: like strict equality except NaN equals NaN.
// spec.md §3 requires -0 == +0 and NaN != NaN for plain equality, which
// StrictEquals below implements; SameValueZero differs only in the NaN case.
func SameValueZero(a, b Value) bool {
	if a.kind != b.kind {
		// int32 and float64 are the same Number kind for this purpose.
		if a.IsNumber() && b.IsNumber() {
			// fall through to numeric comparison below
		} else {
			return false
		}
	}
	switch {
	case a.IsNumber() && b.IsNumber():
		af, bf := a.Float64(), b.Float64()
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		return af == bf
	default:
		return StrictEquals(a, b)
	}
}

// SameValue implements the SameValue abstract operation used by
// Object.defineProperty compatibility checks and Proxy invariant
// validation: NaN equals NaN, and +0 and -0 are distinguishable.
func SameValue(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		af, bf := a.Float64(), b.Float64()
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		if af == 0 && bf == 0 {
			return math.Signbit(af) == math.Signbit(bf)
		}
		return af == bf
	}
	return StrictEquals(a, b)
}

// StrictEquals implements the === operator: -0 == +0, NaN != NaN, and the
// int32/float64 encodings of the same mathematical value are indistinguishable
// (spec.md §3's equality invariant).
func StrictEquals(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.Float64() == b.Float64()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.str.Equal(b.str)
	case KindBigInt:
		return a.big.Cmp(b.big) == 0
	case KindSymbol:
		return a.sym == b.sym
	case KindObject:
		return a.obj == b.obj
	}
	return false
}

// ToBoolean implements the ToBoolean abstract operation.
func (v Value) ToBoolean() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt32:
		return v.i32 != 0
	case KindFloat64:
		return v.f64 != 0 && !math.IsNaN(v.f64)
	case KindString:
		return v.str.Length() != 0
	case KindBigInt:
		return !v.big.IsZero()
	default:
		return true
	}
}
