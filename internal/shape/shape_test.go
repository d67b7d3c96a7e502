package shape

import (
	"testing"

	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/test"
)

var dataAttrs = Attrs{Writable: true, Enumerable: true, Configurable: true, Kind: KindData}

func TestTransitionDeterminism(t *testing.T) {
	interner := intern.NewTable()
	tree := NewTree(interner)
	a := interner.Intern("a")
	b := interner.Intern("b")

	// The same insertion history from the empty shape must reach the same
	// shape identity.
	s1 := tree.Transition(tree.Transition(tree.Root(), a, dataAttrs), b, dataAttrs)
	s2 := tree.Transition(tree.Transition(tree.Root(), a, dataAttrs), b, dataAttrs)
	test.AssertEqual(t, s1.ID(), s2.ID())

	// A different insertion order is a different shape.
	s3 := tree.Transition(tree.Transition(tree.Root(), b, dataAttrs), a, dataAttrs)
	if s3.ID() == s1.ID() {
		t.Fatalf("insertion order must distinguish shapes")
	}
}

func TestSlotAssignment(t *testing.T) {
	interner := intern.NewTable()
	tree := NewTree(interner)
	a := interner.Intern("a")
	b := interner.Intern("b")

	s := tree.Transition(tree.Transition(tree.Root(), a, dataAttrs), b, dataAttrs)
	slotA, _, okA := s.Lookup(a)
	slotB, _, okB := s.Lookup(b)
	if !okA || !okB {
		t.Fatalf("both keys must resolve")
	}
	test.AssertEqual(t, slotA, 0)
	test.AssertEqual(t, slotB, 1)
	test.AssertEqual(t, s.SlotCount(), 2)
}

func TestReconfigureKeepsSlot(t *testing.T) {
	interner := intern.NewTable()
	tree := NewTree(interner)
	a := interner.Intern("a")

	s := tree.Transition(tree.Root(), a, dataAttrs)
	frozen := Attrs{Writable: false, Enumerable: true, Configurable: false, Kind: KindData}
	s2 := tree.Transition(s, a, frozen)
	slot, attrs, ok := s2.Lookup(a)
	if !ok {
		t.Fatalf("reconfigured key must still resolve")
	}
	test.AssertEqual(t, slot, 0)
	test.AssertEqual(t, attrs.Writable, false)
	test.AssertEqual(t, s2.SlotCount(), 1)
}

func TestOwnKeysInsertionOrder(t *testing.T) {
	interner := intern.NewTable()
	tree := NewTree(interner)
	names := []string{"x", "y", "z"}
	s := tree.Root()
	for _, n := range names {
		s = tree.Transition(s, interner.Intern(n), dataAttrs)
	}
	keys := s.OwnKeys()
	test.AssertEqual(t, len(keys), 3)
	for i, n := range names {
		test.AssertEqual(t, interner.Lookup(keys[i]), n)
	}
}

func TestDictionaryMode(t *testing.T) {
	interner := intern.NewTable()
	tree := NewTree(interner)
	a := interner.Intern("a")
	b := interner.Intern("b")
	s := tree.Transition(tree.Transition(tree.Root(), a, dataAttrs), b, dataAttrs)

	d := tree.Dictionary(s, []intern.ID{b}, map[intern.ID]Attrs{b: dataAttrs})
	if !d.IsDictionary() {
		t.Fatalf("expected dictionary mode")
	}
	if _, _, ok := d.Lookup(a); ok {
		t.Fatalf("deleted key must not resolve in dictionary shape")
	}
	slot, _, ok := d.Lookup(b)
	if !ok || slot != 0 {
		t.Fatalf("surviving key must compact to slot 0, got %d ok=%v", slot, ok)
	}
	// Dictionary shapes are per-object, never shared.
	d2 := tree.Dictionary(s, []intern.ID{b}, map[intern.ID]Attrs{b: dataAttrs})
	if d.ID() == d2.ID() {
		t.Fatalf("dictionary shapes must not be interned")
	}
}
