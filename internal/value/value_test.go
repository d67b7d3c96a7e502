package value

import (
	"math"
	"testing"

	"github.com/BasixKOR/boa/internal/jsstring"
)

func TestNumberEncodingIsUnobservable(t *testing.T) {
	// spec.md §3: equality never distinguishes the int32 and float64
	// encodings of the same mathematical value.
	a := Int32(5)
	b := Number(5.0)
	if a.Kind() != KindInt32 || b.Kind() != KindInt32 {
		t.Fatalf("5.0 must take the int32 fast path: %v %v", a.Kind(), b.Kind())
	}
	c := Value{kind: KindFloat64, f64: 5}
	if !StrictEquals(a, c) {
		t.Fatalf("int32 and float64 encodings of 5 must compare equal")
	}
}

func TestZeroAndNaNEquality(t *testing.T) {
	negZero := Number(math.Copysign(0, -1))
	posZero := Number(0)
	if !StrictEquals(negZero, posZero) {
		t.Fatalf("-0 === +0 must hold")
	}
	if SameValue(negZero, posZero) {
		t.Fatalf("SameValue must distinguish the zeros")
	}

	nan := Number(math.NaN())
	if StrictEquals(nan, nan) {
		t.Fatalf("NaN !== NaN must hold")
	}
	if !SameValueZero(nan, nan) || !SameValue(nan, nan) {
		t.Fatalf("SameValue(Zero) must equate NaNs")
	}
}

func TestSymbolIdentity(t *testing.T) {
	desc := jsstring.New("d")
	a := NewSymbol(desc, true)
	b := NewSymbol(desc, true)
	if StrictEquals(SymbolValue(a), SymbolValue(b)) {
		t.Fatalf("symbols compare by identity, not description")
	}
	if !StrictEquals(SymbolValue(a), SymbolValue(a)) {
		t.Fatalf("a symbol equals itself")
	}
}

func TestToBoolean(t *testing.T) {
	truthy := []Value{True, Int32(1), Number(-0.5), String(jsstring.New("x"))}
	falsy := []Value{Undefined, Null, False, Int32(0), Number(math.NaN()), String(jsstring.Empty)}
	for _, v := range truthy {
		if !v.ToBoolean() {
			t.Fatalf("%v must be truthy", v)
		}
	}
	for _, v := range falsy {
		if v.ToBoolean() {
			t.Fatalf("%v must be falsy", v)
		}
	}
}

func TestTypeOf(t *testing.T) {
	cases := map[string]Value{
		"undefined": Undefined,
		"object":    Null,
		"boolean":   True,
		"number":    Int32(3),
		"string":    String(jsstring.New("s")),
		"symbol":    SymbolValue(NewSymbol(jsstring.Empty, false)),
	}
	for want, v := range cases {
		if got := v.TypeOf(); got != want {
			t.Fatalf("TypeOf(%v) = %q, want %q", v, got, want)
		}
	}
}
