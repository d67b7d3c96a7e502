package ast

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/BasixKOR/boa/internal/intern"
)

// ScopeKind mirrors the environment-record kinds package environment
// instantiates at runtime (spec.md §3): a Scope is the compile-time shadow
// of an Env, and the bytecode compiler maps each Scope's Symbols to fixed
// slot indices the same way esbuild's Scope/Symbol pair drives renaming.
type ScopeKind uint8

const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeCatch
	ScopeClass
	// ScopeWith is the poisoned scope a `with` statement opens: it declares
	// nothing itself, and any reference that crosses it must resolve
	// dynamically at runtime (spec.md §4.3).
	ScopeWith
)

type SymbolKind uint8

const (
	SymbolVar SymbolKind = iota
	SymbolLet
	SymbolConst
	SymbolFunctionArg
	SymbolCatch
	SymbolClassName
	SymbolFunctionName
	// SymbolArguments is the implicit `arguments` binding every non-arrow
	// function scope carries (spec.md §4.3 CreateMappedArgumentsObject /
	// CreateUnmappedArgumentsObject).
	SymbolArguments
)

// Symbol is one compile-time binding; SlotIndex is assigned during scope
// resolution and is what the bytecode compiler emits into GetLocal/
// SetLocal operands (spec.md §4.3's fixed-size slot arrays, not a name
// lookup at runtime).
type Symbol struct {
	Name      intern.ID
	Kind      SymbolKind
	SlotIndex int32
	// ClosedOver is set once Lookup finds this symbol from a nested function
	// scope, across a function boundary. The compiler does not read it.
	ClosedOver bool
}

// Scope is the compile-time scope-chain node the parser builds alongside
// the syntax tree and resolves names against as it parses (Lookup).
type Scope struct {
	ID       int32
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope
	Symbols  []Symbol
	ByName   map[intern.ID]int32 // name -> index into Symbols

	// Poisoned marks a scope whose body must resolve names dynamically
	// (spec.md §4.3: a `with` statement, or a direct eval site, poisons the
	// scope it opens).
	Poisoned bool

	// closedOverNames is the set of this scope's own symbol names observed
	// by some descendant function scope during resolution -- tracked with
	// golang-set the way go-ethereum tracks visited-node sets, rather than
	// a second map duplicating ByName's shape (SPEC_FULL.md's DOMAIN STACK:
	// "internal/ast closed-over-variable ... sets during scope
	// resolution").
	closedOverNames mapset.Set[intern.ID]

	// labelNames is every label introduced directly inside this scope
	// (spec.md's labelled break/continue); resolving a "break L"/"continue
	// L" walks Scope.Parent chains checking membership here, mirroring the
	// same closed-over-set bookkeeping shape as closedOverNames.
	labelNames mapset.Set[intern.ID]
}

func NewScope(id int32, kind ScopeKind, parent *Scope) *Scope {
	s := &Scope{
		ID:              id,
		Kind:            kind,
		Parent:          parent,
		ByName:          make(map[intern.ID]int32),
		closedOverNames: mapset.NewThreadUnsafeSet[intern.ID](),
		labelNames:      mapset.NewThreadUnsafeSet[intern.ID](),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Declare adds a new Symbol to s, returning its slot index. Redeclaring an
// existing `var` name in the same function scope is legal (spec.md's `var`
// hoisting semantics) and returns the existing index instead of a new slot.
func (s *Scope) Declare(name intern.ID, kind SymbolKind) int32 {
	if idx, ok := s.ByName[name]; ok && kind == SymbolVar && s.Symbols[idx].Kind == SymbolVar {
		return idx
	}
	idx := int32(len(s.Symbols))
	s.Symbols = append(s.Symbols, Symbol{Name: name, Kind: kind, SlotIndex: idx})
	s.ByName[name] = idx
	return idx
}

func (s *Scope) DeclareLabel(name intern.ID) { s.labelNames.Add(name) }

// MarkPoisoned flags this scope for dynamic-only name resolution.
func (s *Scope) MarkPoisoned() { s.Poisoned = true }

// HasLabel reports whether name is a label reachable from s without
// crossing a function boundary (spec.md: labels are function-local).
func (s *Scope) HasLabel(name intern.ID) bool {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.labelNames.Contains(name) {
			return true
		}
		if cur.Kind == ScopeFunction {
			break
		}
	}
	return false
}

// Lookup walks s's parent chain for name, returning the defining Scope and
// Symbol index. If the reference crosses a function-scope boundary before
// finding the symbol, Lookup adds it to the defining scope's closed-over set
// and sets the defining Symbol's ClosedOver flag.
func (s *Scope) Lookup(name intern.ID) (*Scope, int32, bool) {
	crossedFunction := false
	for cur := s; cur != nil; cur = cur.Parent {
		if idx, ok := cur.ByName[name]; ok {
			if crossedFunction {
				cur.closedOverNames.Add(name)
				cur.Symbols[idx].ClosedOver = true
			}
			return cur, idx, true
		}
		if cur.Kind == ScopeFunction {
			crossedFunction = true
		}
	}
	return nil, 0, false
}

// ClosedOverNames reports every one of s's own symbols some nested function
// scope captured. The compiler does not call it; slot allocation is the
// same whether or not a symbol is captured.
func (s *Scope) ClosedOverNames() []intern.ID {
	return s.closedOverNames.ToSlice()
}
