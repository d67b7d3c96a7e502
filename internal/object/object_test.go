package object

import (
	"testing"

	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/shape"
	"github.com/BasixKOR/boa/internal/value"
)

type testWorld struct {
	heap     *gc.Heap
	tree     *shape.Tree
	interner *intern.Table
}

func newWorld() *testWorld {
	interner := intern.NewTable()
	return &testWorld{heap: gc.NewHeap(), tree: shape.NewTree(interner), interner: interner}
}

func (w *testWorld) newObject(proto *Object) *Object {
	o := New(w.heap.NextID(), w.tree, w.tree.Root(), proto)
	w.heap.Register(o)
	return o
}

// noCallInvoker fails the test if a vtable path tries to re-enter the VM;
// ordinary data-property tests never should.
type noCallInvoker struct{ t *testing.T }

func (n *noCallInvoker) Call(fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
	n.t.Fatalf("unexpected VM re-entry")
	return value.Undefined, nil
}

func defineData(t *testing.T, inv Invoker, o *Object, name string, v value.Value) {
	t.Helper()
	ok, err := o.VTable().DefineOwnProperty(o, inv, o.Key(name), Descriptor{
		HasValue: true, Value: v,
		Writable: true, Enumerable: true, Configurable: true,
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	})
	if err != nil || !ok {
		t.Fatalf("define %s: %v %v", name, ok, err)
	}
}

func TestGetAfterSet(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	o := w.newObject(nil)

	defineData(t, inv, o, "k", value.Int32(42))
	v, err := o.VTable().Get(o, inv, o.Key("k"), value.Object(o))
	if err != nil || v.Float64() != 42 {
		t.Fatalf("Get after Set: %v %v", v, err)
	}
}

func TestPrototypeChainGet(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	proto := w.newObject(nil)
	defineData(t, inv, proto, "inherited", value.Int32(1))
	o := w.newObject(proto)

	v, err := o.VTable().Get(o, inv, o.Key("inherited"), value.Object(o))
	if err != nil || v.Float64() != 1 {
		t.Fatalf("prototype walk failed: %v %v", v, err)
	}

	// A set through the chain creates an own property on the receiver.
	if _, err := o.VTable().Set(o, inv, o.Key("inherited"), value.Int32(2), value.Object(o)); err != nil {
		t.Fatal(err)
	}
	pv, _ := proto.VTable().Get(proto, inv, proto.Key("inherited"), value.Object(proto))
	ov, _ := o.VTable().Get(o, inv, o.Key("inherited"), value.Object(o))
	if pv.Float64() != 1 || ov.Float64() != 2 {
		t.Fatalf("shadowing broken: proto=%v own=%v", pv, ov)
	}
}

func TestSharedShapesAcrossSameHistory(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	a := w.newObject(nil)
	b := w.newObject(nil)
	for _, name := range []string{"x", "y"} {
		defineData(t, inv, a, name, value.Int32(1))
		defineData(t, inv, b, name, value.Int32(2))
	}
	if a.Shape().ID() != b.Shape().ID() {
		t.Fatalf("objects with the same insertion history must share a shape")
	}
}

func TestNonExtensibleRejectsNewProperties(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	o := w.newObject(nil)
	o.VTable().PreventExtensions(o, inv)

	ok, err := o.VTable().DefineOwnProperty(o, inv, o.Key("nope"), Descriptor{HasValue: true, Value: value.Int32(1)})
	if err != nil || ok {
		t.Fatalf("non-extensible object must reject new properties")
	}
}

func TestNonWritableRejectsSet(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	o := w.newObject(nil)
	o.VTable().DefineOwnProperty(o, inv, o.Key("ro"), Descriptor{
		HasValue: true, Value: value.Int32(1),
		Writable: false, Enumerable: true, Configurable: true,
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	})
	ok, err := o.VTable().Set(o, inv, o.Key("ro"), value.Int32(2), value.Object(o))
	if err != nil || ok {
		t.Fatalf("write to a non-writable data property must fail silently at this layer")
	}
	v, _ := o.VTable().Get(o, inv, o.Key("ro"), value.Object(o))
	if v.Float64() != 1 {
		t.Fatalf("value must be unchanged, got %v", v)
	}
}

func TestPrototypeCycleRejected(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	a := w.newObject(nil)
	b := w.newObject(a)
	ok, err := a.VTable().SetPrototypeOf(a, inv, b)
	if err != nil || ok {
		t.Fatalf("prototype cycle must be rejected")
	}
}

func TestDeleteFallsIntoDictionaryMode(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	o := w.newObject(nil)
	defineData(t, inv, o, "a", value.Int32(1))
	defineData(t, inv, o, "b", value.Int32(2))
	defineData(t, inv, o, "c", value.Int32(3))

	ok, err := o.VTable().Delete(o, inv, o.Key("b"))
	if err != nil || !ok {
		t.Fatalf("delete failed: %v %v", ok, err)
	}
	if !o.Shape().IsDictionary() {
		t.Fatalf("deletion must drop the object into dictionary mode")
	}
	for name, want := range map[string]float64{"a": 1, "c": 3} {
		v, err := o.VTable().Get(o, inv, o.Key(name), value.Object(o))
		if err != nil || v.Float64() != want {
			t.Fatalf("surviving property %s: %v %v", name, v, err)
		}
	}
	if has, _ := o.VTable().HasProperty(o, inv, o.Key("b")); has {
		t.Fatalf("deleted property must be gone")
	}
}

func TestOwnPropertyKeysOrdering(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	o := w.newObject(nil)
	defineData(t, inv, o, "b", value.Int32(1))
	o.SetElement(1, value.Int32(2))
	defineData(t, inv, o, "a", value.Int32(3))
	o.SetElement(0, value.Int32(4))

	keys, err := o.VTable().OwnPropertyKeys(o, inv)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, k := range keys {
		got = append(got, k.Text)
	}
	want := []string{"0", "1", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestArrayLengthSemantics(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	arr := NewArray(w.newObject(nil))

	// Writing an index past length bumps length.
	arr.VTable().DefineOwnProperty(arr, inv, arr.Key("5"), Descriptor{
		HasValue: true, Value: value.Int32(1),
		Writable: true, Enumerable: true, Configurable: true,
		HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	})
	d, _, _ := arr.VTable().GetOwnProperty(arr, inv, arr.Key("length"))
	if d.Value.Float64() != 6 {
		t.Fatalf("length after index write = %v, want 6", d.Value)
	}

	// Truncation stops at a non-configurable index (spec.md §8 scenario 6).
	arr2 := NewArray(w.newObject(nil))
	for i := 0; i < 5; i++ {
		arr2.SetElement(uint32(i), value.Int32(int32(i+1)))
	}
	arr2.Data().(*ArrayData).Length = 5
	arr2.VTable().DefineOwnProperty(arr2, inv, arr2.Key("2"), Descriptor{
		HasValue: true, Value: value.Int32(30),
		Configurable: false, HasConfigurable: true,
	})
	ok, err := arr2.VTable().DefineOwnProperty(arr2, inv, arr2.Key("length"), Descriptor{HasValue: true, Value: value.Int32(2)})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("partial truncation must report failure")
	}
	d2, _, _ := arr2.VTable().GetOwnProperty(arr2, inv, arr2.Key("length"))
	if d2.Value.Float64() != 3 {
		t.Fatalf("length after blocked truncation = %v, want 3", d2.Value)
	}
	if v, present := arr2.GetElement(2); !present || v.Float64() != 30 {
		t.Fatalf("non-configurable index must survive, got %v %v", v, present)
	}
}

func TestStringExotic(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	s := NewStringObject(w.newObject(nil), jsstring.New("hi"))

	d, present, err := s.VTable().GetOwnProperty(s, inv, s.Key("0"))
	if err != nil || !present {
		t.Fatalf("index 0 must exist: %v %v", present, err)
	}
	if d.Value.String_().GoString() != "h" || d.Writable || d.Configurable || !d.Enumerable {
		t.Fatalf("index descriptor wrong: %+v", d)
	}
	ld, _, _ := s.VTable().GetOwnProperty(s, inv, s.Key("length"))
	if ld.Value.Float64() != 2 || ld.Writable || ld.Enumerable || ld.Configurable {
		t.Fatalf("length descriptor wrong: %+v", ld)
	}
	if ok, _ := s.VTable().Delete(s, inv, s.Key("1")); ok {
		t.Fatalf("string indices must not be deletable")
	}
}

func TestAccessorStorageDoesNotCollide(t *testing.T) {
	w := newWorld()
	inv := &noCallInvoker{t}
	o := w.newObject(nil)

	getter := value.Int32(111) // stand-ins: identity is what matters here
	setter := value.Int32(222)
	o.VTable().DefineOwnProperty(o, inv, o.Key("acc"), Descriptor{
		Get: getter, Set: setter, HasGet: true, HasSet: true,
		Enumerable: true, Configurable: true, HasEnumerable: true, HasConfigurable: true,
	})
	defineData(t, inv, o, "after", value.Int32(3))

	d, _, _ := o.VTable().GetOwnProperty(o, inv, o.Key("acc"))
	if d.Get.Float64() != 111 || d.Set.Float64() != 222 {
		t.Fatalf("accessor halves corrupted: %+v", d)
	}
	v, _ := o.VTable().Get(o, inv, o.Key("after"), value.Object(o))
	if v.Float64() != 3 {
		t.Fatalf("data property after an accessor corrupted: %v", v)
	}
}

func TestDenseToSparseElements(t *testing.T) {
	w := newWorld()
	o := w.newObject(nil)
	o.SetElement(0, value.Int32(1))
	o.SetElement(1<<20, value.Int32(2))
	if v, ok := o.GetElement(0); !ok || v.Float64() != 1 {
		t.Fatalf("dense element lost after sparse conversion")
	}
	if v, ok := o.GetElement(1 << 20); !ok || v.Float64() != 2 {
		t.Fatalf("sparse element missing")
	}
	if o.HasElement(5) {
		t.Fatalf("gap index must read as absent")
	}
}
