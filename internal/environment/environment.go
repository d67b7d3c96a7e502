// Package environment implements the lexical environment chain spec.md §3
// describes: a linked list of environment records, each one of Declarative,
// Function, Object, Global, or Private, with a fixed-size compile-time slot
// array for the declarative cases (spec.md §4.3 "Scope lowering": variables
// resolve at compile time to an `(environment_depth, slot)` pair).
//
// Grounded on esbuild's internal/ast Scope tree (js_ast.go's Scope/Symbol
// types model compile-time lexical structure the same layered way -- a
// parent pointer plus a per-scope member table) adapted here to a *runtime*
// chain of slot arrays rather than a compile-time-only tree, since this
// engine interprets bytecode instead of re-emitting source.
package environment

import (
	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/value"
)

// Kind discriminates the five environment record variants spec.md §3 lists.
type Kind uint8

const (
	KindDeclarative Kind = iota
	KindFunction
	KindObject
	KindGlobal
	KindPrivate
)

// BindingKind distinguishes mutable (`let`/`var`/catch param) from
// immutable (`const`, class binding) slots. TDZ membership is tracked
// separately, by each binding's inTDZ flag.
type BindingKind uint8

const (
	BindingMutable BindingKind = iota
	BindingImmutable
	BindingFunctionVar // `var`/function declarations, initialized to undefined up front
)

// Object is the narrow interface environment needs back into package
// object, avoided as a direct import to keep environment below object in
// the dependency order (object doesn't need environment; environment needs
// object's shape-backed property access for Object/Global environments and
// `with`).
type Object interface {
	gc.Traceable
	GetProperty(name intern.ID, text string) (value.Value, bool, error)
	SetProperty(name intern.ID, text string, v value.Value) error
	HasProperty(name intern.ID, text string) (bool, error)
	DeleteProperty(name intern.ID, text string) (bool, error)
}

// binding is one declarative slot: its current value and whether it's still
// in the temporal dead zone (spec.md's `let`/`const`/`class` semantics).
type binding struct {
	value    value.Value
	kind     BindingKind
	inTDZ    bool
	name     intern.ID // for dynamic (poisoned) lookup and debugging
}

// Env is one environment record. The same struct backs all five kinds;
// fields irrelevant to a given kind are left zero.
type Env struct {
	id     gc.ID
	kind   Kind
	parent *Env

	// Declarative / Function slot array, indexed at compile time.
	slots []binding

	// Function-kind extras (spec.md §3 "Function -- declarative + this,
	// new.target, home object, super binding"). home/funcObject are held as
	// bare Traceables: this package only keeps them alive; the VM is what
	// reads properties off them.
	thisValue  value.Value
	hasThis    bool
	newTarget  value.Value
	homeObject gc.Traceable
	funcObject gc.Traceable

	// Object / Global-kind backing object (spec.md "Object -- backed by an
	// object (used by with, global)"; "Global -- object environment over
	// the global object + a declarative part").
	backing Object

	// Private-kind visible names (spec.md "Private -- carries the set of
	// private names visible inside a class body").
	privateNames map[string]*PrivateName

	// poisoned marks an environment that directly contains `eval` or `with`
	// (spec.md §4.3 "Direct eval or with poisons a scope: all reads/writes
	// inside must use dynamic name lookup that walks the chain").
	poisoned bool
}

// PrivateName identifies one private class element, shared with
// package object's PrivateName by description only -- identity is what
// matters, and the VM holds the canonical *object.PrivateName; this is a
// lightweight handle so environment doesn't need to import object for
// class bodies.
type PrivateName struct {
	Description string
}

// NewDeclarative allocates a fixed-size declarative environment with n
// slots, e.g. for a block or catch clause (spec.md "Declarative --
// fixed-size slot array indexed at compile time").
func NewDeclarative(id gc.ID, parent *Env, n int) *Env {
	return &Env{id: id, kind: KindDeclarative, parent: parent, slots: make([]binding, n)}
}

// NewFunction allocates a function environment: a declarative slot array
// plus this/new.target/home-object/super-binding extras.
func NewFunction(id gc.ID, parent *Env, n int, this value.Value, hasThis bool, newTarget value.Value, home gc.Traceable) *Env {
	return &Env{
		id: id, kind: KindFunction, parent: parent, slots: make([]binding, n),
		thisValue: this, hasThis: hasThis, newTarget: newTarget, homeObject: home,
	}
}

// NewObject allocates an object environment backed by obj, used for `with`
// statements.
func NewObject(id gc.ID, parent *Env, obj Object, poisoned bool) *Env {
	return &Env{id: id, kind: KindObject, parent: parent, backing: obj, poisoned: poisoned}
}

// NewGlobal allocates the realm's global environment: an object part (the
// global object) plus a declarative part for top-level let/const/class
// (spec.md "Global -- object environment over the global object + a
// declarative part for let/const/class/functions at top level").
func NewGlobal(id gc.ID, global Object, declSlots int) *Env {
	return &Env{id: id, kind: KindGlobal, backing: global, slots: make([]binding, declSlots)}
}

// NewPrivate allocates a private-name environment for one class body.
func NewPrivate(id gc.ID, parent *Env, names []*PrivateName) *Env {
	m := make(map[string]*PrivateName, len(names))
	for _, n := range names {
		m[n.Description] = n
	}
	return &Env{id: id, kind: KindPrivate, parent: parent, privateNames: m}
}

func (e *Env) GCID() gc.ID   { return e.id }
func (e *Env) Kind() Kind    { return e.kind }
func (e *Env) Parent() *Env  { return e.parent }
func (e *Env) Poisoned() bool { return e.poisoned }
func (e *Env) MarkPoisoned()  { e.poisoned = true }

// Trace implements gc.Traceable: an environment's GC references are its
// parent, its slot values, its backing object (Object/Global kinds), its
// home/function objects, and new.target if it's an object.
func (e *Env) Trace(visit func(gc.Traceable)) {
	if e.parent != nil {
		visit(e.parent)
	}
	for _, b := range e.slots {
		visitValue(visit, b.value)
	}
	if e.backing != nil {
		visit(e.backing)
	}
	if e.homeObject != nil {
		visit(e.homeObject)
	}
	if e.funcObject != nil {
		visit(e.funcObject)
	}
	visitValue(visit, e.thisValue)
	visitValue(visit, e.newTarget)
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

// --- declarative slot access, used by GetLocal/SetLocal-style opcodes ---

// InitSlot initializes slot i, clearing TDZ membership (spec.md's let/const
// TDZ: a binding is "dead" until its declaration executes). A zero name
// keeps whatever SetSlotName recorded, so dynamic (poisoned-scope) lookup
// still sees the binding.
func (e *Env) InitSlot(i int, name intern.ID, kind BindingKind, v value.Value) {
	if name == 0 {
		name = e.slots[i].name
	}
	e.slots[i] = binding{value: v, kind: kind, name: name}
}

// DeclareTDZ reserves slot i as a let/const binding not yet initialized.
func (e *Env) DeclareTDZ(i int, name intern.ID, kind BindingKind) {
	if name == 0 {
		name = e.slots[i].name
	}
	e.slots[i] = binding{kind: kind, name: name, inTDZ: true}
}

// SetSlotName records slot i's source-level name so the dynamic name
// resolution `with` and direct-eval scopes fall back to (spec.md §4.3) can
// find statically-allocated bindings by name.
func (e *Env) SetSlotName(i int, name intern.ID) {
	if i < len(e.slots) {
		e.slots[i].name = name
	}
}

var ErrTDZ = tdzError{}

type tdzError struct{}

func (tdzError) Error() string { return "cannot access binding before initialization" }

var ErrConstAssignment = constAssignError{}

type constAssignError struct{}

func (constAssignError) Error() string { return "assignment to constant variable" }

// GetSlot reads slot i, returning ErrTDZ if still in the temporal dead zone.
func (e *Env) GetSlot(i int) (value.Value, error) {
	b := e.slots[i]
	if b.inTDZ {
		return value.Undefined, ErrTDZ
	}
	return b.value, nil
}

// SetSlot writes slot i, returning ErrTDZ or ErrConstAssignment as
// appropriate (spec.md §7 "Reference error ... write to a const").
func (e *Env) SetSlot(i int, v value.Value) error {
	b := &e.slots[i]
	if b.inTDZ {
		return ErrTDZ
	}
	if b.kind == BindingImmutable {
		return ErrConstAssignment
	}
	b.value = v
	return nil
}

// This/NewTarget/HomeObject/Function back `this`, `new.target`, and
// `super` resolution, which walk up to the nearest Function environment
// (spec.md "Function -- declarative + this, new.target, home object, super
// binding").
// This stops at the first Function environment rather than continuing past
// one whose `this` is still unbound: a derived constructor's environment
// has no `this` until its super() call, and reads before that must surface
// as the TDZ ReferenceError, not find an outer binding (arrow functions
// never allocate a Function environment, so they still see through).
func (e *Env) This() (value.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if env.kind == KindFunction {
			return env.thisValue, env.hasThis
		}
	}
	return value.Undefined, false
}

func (e *Env) NewTarget() value.Value {
	for env := e; env != nil; env = env.parent {
		if env.kind == KindFunction {
			return env.newTarget
		}
	}
	return value.Undefined
}

func (e *Env) HomeObject() (gc.Traceable, bool) {
	for env := e; env != nil; env = env.parent {
		if env.kind == KindFunction && env.homeObject != nil {
			return env.homeObject, true
		}
	}
	return nil, false
}

// Backing returns the Object/Global environment's backing object.
func (e *Env) Backing() Object { return e.backing }

// BindThis initializes `this` in the nearest Function environment after a
// derived constructor's super() call completes (spec.md §3 "Function --
// declarative + this ... super binding"). Reports false if `this` was
// already bound, which the VM turns into the double-super() ReferenceError.
func (e *Env) BindThis(v value.Value) bool {
	for env := e; env != nil; env = env.parent {
		if env.kind == KindFunction {
			if env.hasThis {
				return false
			}
			env.thisValue = v
			env.hasThis = true
			return true
		}
	}
	return false
}

// SetFunction records the function object whose activation this environment
// is, used by super() to reach the active constructor.
func (e *Env) SetFunction(obj gc.Traceable) { e.funcObject = obj }

// FunctionObject walks up to the nearest Function environment's function
// object (nil outside any function activation).
func (e *Env) FunctionObject() gc.Traceable {
	for env := e; env != nil; env = env.parent {
		if env.kind == KindFunction && env.funcObject != nil {
			return env.funcObject
		}
	}
	return nil
}

// CloneForIteration snapshots this environment's slots into a fresh record
// with the same parent, giving each loop iteration of a let/const for-head
// its own copy so closures created in the body capture per-iteration
// bindings.
func (e *Env) CloneForIteration(id gc.ID) *Env {
	clone := &Env{id: id, kind: e.kind, parent: e.parent, slots: append([]binding(nil), e.slots...), poisoned: e.poisoned}
	return clone
}

// LookupPrivate walks the Private environment chain for a name (spec.md
// "Private -- carries the set of private names visible inside a class
// body").
func (e *Env) LookupPrivate(desc string) (*PrivateName, bool) {
	for env := e; env != nil; env = env.parent {
		if env.kind != KindPrivate {
			continue
		}
		if n, ok := env.privateNames[desc]; ok {
			return n, true
		}
	}
	return nil, false
}

// AnyPoisoned reports whether this environment or any ancestor is
// poisoned, meaning a compile-time-resolved `(depth, slot)` binding may
// actually be shadowed at runtime by `eval`/`with` and must fall back to
// dynamic name resolution (spec.md §4.3).
func (e *Env) AnyPoisoned() bool {
	for env := e; env != nil; env = env.parent {
		if env.poisoned {
			return true
		}
	}
	return false
}

// Resolve performs the dynamic (poisoned-scope) name lookup: walk the chain
// checking each Declarative/Function slot array by name and each
// Object/Global backing object's HasProperty, exactly the fallback spec.md
// §4.3 describes for scopes that contain a direct eval or with.
func (e *Env) Resolve(name intern.ID, text string) (value.Value, bool, error) {
	for env := e; env != nil; env = env.parent {
		switch env.kind {
		case KindDeclarative, KindFunction, KindGlobal:
			for i, b := range env.slots {
				if b.name == name {
					if b.inTDZ {
						return value.Undefined, true, ErrTDZ
					}
					return env.slots[i].value, true, nil
				}
			}
			if env.kind != KindGlobal {
				continue
			}
			fallthrough
		case KindObject:
			if env.backing == nil {
				continue
			}
			if ok, err := env.backing.HasProperty(name, text); err != nil {
				return value.Undefined, false, err
			} else if ok {
				v, _, err := env.backing.GetProperty(name, text)
				return v, true, err
			}
		}
	}
	return value.Undefined, false, nil
}

// ResolveSet is Resolve's assignment counterpart: walk the chain for an
// existing binding of name and write v into it. Reports found=false when no
// binding exists anywhere, in which case the caller decides between a
// sloppy-mode implicit global and a strict-mode ReferenceError (spec.md §7).
func (e *Env) ResolveSet(name intern.ID, text string, v value.Value) (found bool, err error) {
	for env := e; env != nil; env = env.parent {
		switch env.kind {
		case KindDeclarative, KindFunction, KindGlobal:
			for i, b := range env.slots {
				if b.name == name {
					if b.inTDZ {
						return true, ErrTDZ
					}
					if b.kind == BindingImmutable {
						return true, ErrConstAssignment
					}
					env.slots[i].value = v
					return true, nil
				}
			}
			if env.kind != KindGlobal {
				continue
			}
			fallthrough
		case KindObject:
			if env.backing == nil {
				continue
			}
			if ok, err := env.backing.HasProperty(name, text); err != nil {
				return false, err
			} else if ok {
				return true, env.backing.SetProperty(name, text, v)
			}
		}
	}
	return false, nil
}
