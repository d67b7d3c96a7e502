package environment

import (
	"testing"

	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/value"
)

func TestTDZAndInit(t *testing.T) {
	env := NewDeclarative(1, nil, 2)
	env.DeclareTDZ(0, 0, BindingMutable)

	if _, err := env.GetSlot(0); err != ErrTDZ {
		t.Fatalf("read before initialization must report TDZ, got %v", err)
	}
	if err := env.SetSlot(0, value.Int32(1)); err != ErrTDZ {
		t.Fatalf("write before initialization must report TDZ, got %v", err)
	}

	env.InitSlot(0, 0, BindingMutable, value.Int32(7))
	v, err := env.GetSlot(0)
	if err != nil || v.Float64() != 7 {
		t.Fatalf("initialized slot read failed: %v %v", v, err)
	}
}

func TestConstAssignment(t *testing.T) {
	env := NewDeclarative(1, nil, 1)
	env.InitSlot(0, 0, BindingImmutable, value.Int32(1))
	if err := env.SetSlot(0, value.Int32(2)); err != ErrConstAssignment {
		t.Fatalf("const write must fail, got %v", err)
	}
}

func TestThisStopsAtFirstFunctionEnv(t *testing.T) {
	outer := NewFunction(1, nil, 0, value.Int32(1), true, value.Undefined, nil)
	// A derived-constructor activation has a Function env with no bound
	// `this` until super() runs; reads must not see the outer binding.
	inner := NewFunction(2, outer, 0, value.Undefined, false, value.Undefined, nil)
	if _, ok := inner.This(); ok {
		t.Fatalf("unbound derived-constructor this must not resolve outward")
	}
	if !inner.BindThis(value.Int32(9)) {
		t.Fatalf("first BindThis must succeed")
	}
	if inner.BindThis(value.Int32(10)) {
		t.Fatalf("second BindThis must fail (double super())")
	}
	v, ok := inner.This()
	if !ok || v.Float64() != 9 {
		t.Fatalf("bound this must read back, got %v %v", v, ok)
	}

	// Declarative (arrow) environments see through to the enclosing
	// function's this.
	arrow := NewDeclarative(3, outer, 0)
	v, ok = arrow.This()
	if !ok || v.Float64() != 1 {
		t.Fatalf("arrow env must see the outer this, got %v %v", v, ok)
	}
}

func TestResolveWalksChainByName(t *testing.T) {
	interner := intern.NewTable()
	x := interner.Intern("x")

	outer := NewDeclarative(1, nil, 1)
	outer.InitSlot(0, x, BindingMutable, value.Int32(1))
	inner := NewDeclarative(2, outer, 0)

	v, found, err := inner.Resolve(x, "x")
	if err != nil || !found || v.Float64() != 1 {
		t.Fatalf("dynamic resolve must find the outer slot, got %v %v %v", v, found, err)
	}

	found, err = inner.ResolveSet(x, "x", value.Int32(5))
	if err != nil || !found {
		t.Fatalf("dynamic assignment must find the outer slot: %v %v", found, err)
	}
	v, _ = outer.GetSlot(0)
	if v.Float64() != 5 {
		t.Fatalf("assignment must write through, got %v", v)
	}
}

func TestCloneForIteration(t *testing.T) {
	env := NewDeclarative(1, nil, 1)
	env.InitSlot(0, 0, BindingMutable, value.Int32(1))

	clone := env.CloneForIteration(2)
	clone.SetSlot(0, value.Int32(2))

	orig, _ := env.GetSlot(0)
	copied, _ := clone.GetSlot(0)
	if orig.Float64() != 1 || copied.Float64() != 2 {
		t.Fatalf("clone must not share slot storage: %v %v", orig, copied)
	}
}

func TestPrivateNameLookup(t *testing.T) {
	n := &PrivateName{Description: "x"}
	env := NewPrivate(1, nil, []*PrivateName{n})
	inner := NewDeclarative(2, env, 0)

	got, ok := inner.LookupPrivate("x")
	if !ok || got != n {
		t.Fatalf("private lookup must find the declaring environment's name by identity")
	}
	if _, ok := inner.LookupPrivate("y"); ok {
		t.Fatalf("undeclared private name must not resolve")
	}
}
