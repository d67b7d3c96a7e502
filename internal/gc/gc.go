// Package gc implements the engine's tracing garbage collector (spec.md
// §4.6): a precise mark phase rooted in the VM's value stack, live call
// frames, the environment stack, per-realm intrinsics, the interner, and any
// host-registered roots, followed by a sweep that drops everything
// unmarked, including resolving weak references against the mark result.
//
// spec.md §9 notes that "implementations without tracing collectors must
// simulate (arena + indices with a mark phase over roots)" -- that is
// exactly what this package does, since Go's own runtime GC has no idea
// which of our pointers the *language's* WeakRef/FinalizationRegistry
// semantics consider reachable. We therefore keep our own arena of
// Traceable objects and roots and run our own mark phase; real memory is
// still owned and freed by the Go runtime once a Traceable drops out of the
// arena's live set; this layer exists to get reachability and weak-ref
// timing right, not to manage raw memory.
//
// The mark phase's visited set is implemented with
// github.com/deckarep/golang-set/v2, adopted the same way
// ethereum-go-ethereum uses golang-set to track visited/pending items during
// graph and sync bookkeeping (see go.mod and DESIGN.md).
package gc

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// ID identifies one Traceable within a Heap's arena.
type ID uint64

// Traceable is implemented by every GC-owned type: objects, shapes,
// environments, generator contexts, promises. Trace must call visit on
// every GC reference it owns directly (spec.md §4.6 "trace contract").
// Primitive and non-GC fields are simply not visited.
type Traceable interface {
	GCID() ID
	Trace(visit func(Traceable))
}

// WeakRef is a weak reference to a Traceable, resolving to (nil, false) once
// the referent is unreachable from strong roots (spec.md §3 "Environment"
// lifecycle note; §4.6 weak reference contract).
type WeakRef struct {
	heap *Heap
	id   ID
	get  func(ID) Traceable
}

// Deref resolves the weak reference. A successful deref inside the current
// turn appends the referent to the turn's kept-alive list (spec.md §4.6 /
// §4.7): "a WeakRef.deref() that returned a non-null value must keep
// returning a non-null value" for the remainder of the turn.
func (w WeakRef) Deref() (Traceable, bool) {
	if w.heap.isDead(w.id) {
		return nil, false
	}
	obj := w.get(w.id)
	if obj == nil {
		return nil, false
	}
	w.heap.keepAlive(obj)
	return obj, true
}

// Finalizer is registered via FinalizationRegistry.register and invoked
// (conceptually, by the host's job scheduler) once the target becomes
// unreachable and a Collect has confirmed it.
type Finalizer struct {
	Token any
	Run   func()
}

// Heap owns the arena of currently-live Traceables, the root set, and the
// turn-scoped keep-alive list.
type Heap struct {
	objects map[ID]Traceable
	dead    map[ID]bool
	roots   []func() []Traceable

	keptAlive   []Traceable
	keptAliveSet mapset.Set[ID]

	pendingFinalizers []Finalizer
	finalizerOf       map[ID][]Finalizer

	nextID ID
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		objects:     make(map[ID]Traceable),
		dead:        make(map[ID]bool),
		finalizerOf: make(map[ID][]Finalizer),
		keptAliveSet: mapset.NewThreadUnsafeSet[ID](),
	}
}

// NextID allocates a fresh object id for a newly constructed Traceable. The
// constructor is expected to store this id and return it from GCID().
func (h *Heap) NextID() ID {
	h.nextID++
	return h.nextID
}

// Register adds a newly allocated Traceable to the arena.
func (h *Heap) Register(obj Traceable) {
	h.objects[obj.GCID()] = obj
}

// AddRoot registers a function that enumerates the current strong roots of
// one root category (value stack, frame stack, environment stack, realm
// intrinsics, interner, host roots -- spec.md §4.6). Called once per
// Collect.
func (h *Heap) AddRoot(fn func() []Traceable) {
	h.roots = append(h.roots, fn)
}

func (h *Heap) isDead(id ID) bool { return h.dead[id] }

func (h *Heap) keepAlive(obj Traceable) {
	id := obj.GCID()
	if h.keptAliveSet.Contains(id) {
		return
	}
	h.keptAliveSet.Add(id)
	h.keptAlive = append(h.keptAlive, obj)
}

// NewWeakRef creates a weak reference to obj that resolves via lookup in
// this heap's arena.
func (h *Heap) NewWeakRef(obj Traceable) WeakRef {
	return WeakRef{heap: h, id: obj.GCID(), get: func(id ID) Traceable {
		if h.dead[id] {
			return nil
		}
		return h.objects[id]
	}}
}

// RegisterFinalizer attaches fin to target; Collect enqueues it in
// pendingFinalizers once target is confirmed unreachable.
func (h *Heap) RegisterFinalizer(target Traceable, fin Finalizer) {
	id := target.GCID()
	h.finalizerOf[id] = append(h.finalizerOf[id], fin)
}

// UnregisterFinalizer implements FinalizationRegistry.prototype.unregister
// for all finalizers registered under the given token.
func (h *Heap) UnregisterFinalizer(target Traceable, token any) bool {
	id := target.GCID()
	list := h.finalizerOf[id]
	removed := false
	out := list[:0]
	for _, f := range list {
		if f.Token == token {
			removed = true
			continue
		}
		out = append(out, f)
	}
	h.finalizerOf[id] = out
	return removed
}

// Collect runs one mark-sweep cycle: mark every Traceable reachable from a
// root (spec.md §8 "No GC cycle may collect an object reachable from any
// live frame's registers or stack slice"), then sweep everything unmarked,
// queuing any finalizers registered on swept objects.
func (h *Heap) Collect() {
	marked := mapset.NewThreadUnsafeSet[ID]()
	var stack []Traceable

	visit := func(t Traceable) {
		if t == nil {
			return
		}
		if marked.Contains(t.GCID()) {
			return
		}
		marked.Add(t.GCID())
		stack = append(stack, t)
	}

	for _, root := range h.roots {
		for _, obj := range root() {
			visit(obj)
		}
	}
	// Keep-alive entries from the current turn are themselves roots until
	// EndTurn clears them (spec.md §4.6 WeakRef stability within a turn).
	for _, obj := range h.keptAlive {
		visit(obj)
	}

	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		obj.Trace(visit)
	}

	for id, obj := range h.objects {
		if marked.Contains(id) {
			continue
		}
		delete(h.objects, id)
		h.dead[id] = true
		if fins, ok := h.finalizerOf[id]; ok {
			h.pendingFinalizers = append(h.pendingFinalizers, fins...)
			delete(h.finalizerOf, id)
		}
		_ = obj
	}
}

// DrainFinalizers returns and clears the finalizers queued by the most
// recent Collect. The realm's job queue (spec.md §4.7) runs each one as an
// ordinary job.
func (h *Heap) DrainFinalizers() []Finalizer {
	out := h.pendingFinalizers
	h.pendingFinalizers = nil
	return out
}

// EndTurn clears the turn-scoped keep-alive list (spec.md §4.6: "The list is
// cleared at turn end, making those references eligible for collection on
// the next cycle"). Call this at the end of every VM turn, i.e. every
// Context.Eval / Context.RunJobs iteration.
func (h *Heap) EndTurn() {
	h.keptAlive = nil
	h.keptAliveSet = mapset.NewThreadUnsafeSet[ID]()
}
