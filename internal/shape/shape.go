// Package shape implements the hidden-class ("shape") tree described in
// spec.md §3/§4.5: an immutable tree rooted at the empty shape, where each
// non-root node records the property key added at that transition, its
// attributes, and its storage slot index. Objects with the same insertion
// history of properties share the same shape (spec.md's OwnPropertyKeys
// ordering invariant in §8 falls directly out of this).
//
// Transition reuse -- "equal transitions from the same parent must reuse the
// same child" -- is implemented with a bounded LRU cache keyed by
// (parent shape id, property key, attributes), adopted from
// github.com/hashicorp/golang-lru/v2 the way ethereum-go-ethereum bounds its
// own node caches (see go.mod and DESIGN.md). Shapes themselves are never
// evicted -- a Shape stays alive as long as any Object references it, which
// is enforced by the GC tracing Shape pointers as roots of their own
// generation (spec.md §3 "Shapes ... are GC-owned and interned"); only the
// *lookup acceleration* structure is bounded, so a cache miss still finds
// (or rebuilds) the correct shared child, it is just slower.
package shape

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/BasixKOR/boa/internal/intern"
)

// Kind discriminates how property attrs are shaped.
type PropertyKind uint8

const (
	KindData PropertyKind = iota
	KindAccessor
)

// Attrs mirrors the ECMAScript property descriptor attribute bits, minus the
// value/getter/setter which are stored out-of-line in the object's storage
// vector (spec.md §3 "Object" storage vector).
type Attrs struct {
	Writable     bool
	Enumerable   bool
	Configurable bool
	Kind         PropertyKind
}

// ID uniquely identifies a Shape for cache-keying and for inline-cache
// comparisons (spec.md §4.3 "IC slot ... {shape_id, slot_index, flags}").
type ID uint64

type transitionKey struct {
	parent ID
	key    intern.ID
	attrs  Attrs
}

// Transition records one property addition or reconfiguration from a parent
// shape to a child.
type Transition struct {
	Key   intern.ID
	Attrs Attrs
	Slot  int // -1 for a pure reconfiguration that doesn't add a slot
}

// Shape is an immutable node in the hidden-class tree.
type Shape struct {
	id       ID
	parent   *Shape
	trans    Transition
	slotCount int
	protoTag  uint64 // bumped by prototype-change transitions; see Tree.WithPrototype

	mu       sync.Mutex
	children map[transitionKey]*Shape

	dictionary bool // once true, this shape (and its object) use slow/dictionary-mode lookup
	dictKeys   []intern.ID
	dictAttrs  map[intern.ID]Attrs
}

func (s *Shape) ID() ID           { return s.id }
func (s *Shape) Parent() *Shape   { return s.parent }
func (s *Shape) SlotCount() int   { return s.slotCount }
func (s *Shape) IsDictionary() bool { return s.dictionary }

// OwnKeys walks from root to this shape collecting keys in insertion order,
// the order OwnPropertyKeys must return for string keys added via normal
// assignment (spec.md §8's insertion-order invariant). Reconfiguration
// transitions (Slot == -1) are skipped since they don't add a key.
func (s *Shape) OwnKeys() []intern.ID {
	if s.dictionary {
		return append([]intern.ID(nil), s.dictKeys...)
	}
	var chain []*Shape
	for n := s; n != nil && n.parent != nil; n = n.parent {
		chain = append(chain, n)
	}
	keys := make([]intern.ID, 0, len(chain))
	seen := make(map[intern.ID]int, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		t := chain[i].trans
		if t.Slot < 0 {
			continue
		}
		if idx, ok := seen[t.Key]; ok {
			// A later transition reconfigured but kept the same slot; keep
			// original position, which is already correct since slot counts
			// only grow.
			_ = idx
			continue
		}
		seen[t.Key] = len(keys)
		keys = append(keys, t.Key)
	}
	return keys
}

// Lookup finds the slot and attributes for key by walking toward the root,
// mirroring the search an ordinary [[GetOwnProperty]] performs before
// falling back to the prototype chain (spec.md §4.5).
func (s *Shape) Lookup(key intern.ID) (slot int, attrs Attrs, ok bool) {
	if s.dictionary {
		attrs, ok = s.dictAttrs[key]
		if !ok {
			return 0, Attrs{}, false
		}
		for i, k := range s.dictKeys {
			if k == key {
				return i, attrs, true
			}
		}
		return 0, Attrs{}, false
	}
	for n := s; n != nil && n.parent != nil; n = n.parent {
		if n.trans.Key == key {
			return n.trans.Slot, n.trans.Attrs, true
		}
	}
	return 0, Attrs{}, false
}

// Tree owns the root shape and the transition cache shared across every
// object created in a realm (spec.md: shapes "live for the lifetime of
// their containing realm").
type Tree struct {
	root     *Shape
	nextID   uint64
	cache    *lru.Cache[transitionKey, *Shape]
	interner *intern.Table
}

// NewTree creates a shape tree with its own transition cache, sized to hold
// a generous number of distinct transitions before old (but still
// referenced -- eviction here only drops the fast-path lookup, not the
// shape) entries are recycled. The interner is the realm's: shapes key
// properties by intern.ID, so every layer that mints a property key from
// raw text reaches it through the tree.
func NewTree(interner *intern.Table) *Tree {
	cache, _ := lru.New[transitionKey, *Shape](4096)
	t := &Tree{cache: cache, interner: interner}
	t.root = &Shape{id: 0, children: make(map[transitionKey]*Shape)}
	t.nextID = 1
	return t
}

// Intern maps property-key text to the stable id shapes transition on.
func (t *Tree) Intern(text string) intern.ID { return t.interner.Intern(text) }

// KeyText recovers the text of an interned property key.
func (t *Tree) KeyText(id intern.ID) string { return t.interner.Lookup(id) }

// Root is the empty shape every new ordinary object starts from.
func (t *Tree) Root() *Shape { return t.root }

func (t *Tree) allocID() ID {
	return ID(atomic.AddUint64(&t.nextID, 1) - 1)
}

// Transition returns the child of parent reached by adding/reconfiguring key
// with attrs, reusing a cached child when one already represents this exact
// transition (spec.md's "equal transitions from the same parent must reuse
// the same child").
func (t *Tree) Transition(parent *Shape, key intern.ID, attrs Attrs) *Shape {
	tk := transitionKey{parent: parent.id, key: key, attrs: attrs}
	if c, ok := t.cache.Get(tk); ok {
		return c
	}

	parent.mu.Lock()
	if c, ok := parent.children[tk]; ok {
		parent.mu.Unlock()
		t.cache.Add(tk, c)
		return c
	}

	slot := parent.slotCount
	if existingSlot, _, ok := parent.Lookup(key); ok {
		// Reconfiguring an existing property: same slot, new attrs.
		slot = existingSlot
	}
	child := &Shape{
		id:       t.allocID(),
		parent:   parent,
		trans:    Transition{Key: key, Attrs: attrs, Slot: slot},
		children: make(map[transitionKey]*Shape),
	}
	if slot >= parent.slotCount {
		child.slotCount = parent.slotCount + 1
	} else {
		child.slotCount = parent.slotCount
	}
	parent.children[tk] = child
	parent.mu.Unlock()

	t.cache.Add(tk, child)
	return child
}

// Dictionary returns a dictionary-mode shape derived from s, used once an
// object undergoes a property deletion (spec.md §4.5: "Deletion may fall
// back to a slow (dictionary) shape mode ... once dictionary mode is
// entered, ICs for that object are invalidated"). Dictionary shapes are
// never cached or shared -- each object that falls into dictionary mode
// gets its own, since its key set is now arbitrary rather than a shared
// transition history.
func (t *Tree) Dictionary(from *Shape, keys []intern.ID, attrsOf map[intern.ID]Attrs) *Shape {
	d := &Shape{
		id:         t.allocID(),
		parent:     t.root,
		dictionary: true,
		children:   make(map[transitionKey]*Shape),
	}
	d.slotCount = len(keys)
	// Dictionary shapes store their own key->slot map out of line since the
	// parent-chain walk no longer applies once multiple unrelated keys can
	// be deleted independently.
	d.dictKeys = append([]intern.ID(nil), keys...)
	d.dictAttrs = make(map[intern.ID]Attrs, len(attrsOf))
	for k, v := range attrsOf {
		d.dictAttrs[k] = v
	}
	return d
}
