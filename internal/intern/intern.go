// Package intern deduplicates identifier and literal strings and assigns
// them stable 32-bit symbol ids. This is the bottom of the dependency graph:
// the parser interns the identifiers the lexer scans, the shape
// tree interns property keys by id rather than by string, and the value
// model stores interned ids instead of repeated string headers.
//
// The table design mirrors the symbol table esbuild's ast.SymbolMap /
// ast.Ref keeps per source file (an append-only slice plus a lookup map) --
// here flattened to a single per-context table since a context is one realm,
// not one file among many.
package intern

import "sync"

// ID is a stable handle into a Table. Strings compare by ID where interned.
type ID uint32

// Invalid is never returned by Table.Intern; it is a sentinel for "no id yet".
const Invalid ID = 0

// Table deduplicates strings and assigns each a stable ID. Safe for
// concurrent use because a single Table may be shared by several realms
// within one context (the interner, per spec.md, may be per-process or
// per-context).
type Table struct {
	mu      sync.RWMutex
	byText  map[string]ID
	byID    []string // index 0 is reserved (Invalid)
	wellKnown map[string]ID
}

// NewTable creates an empty interner. Index 0 is reserved so the zero value
// of ID can mean "uninterned".
func NewTable() *Table {
	t := &Table{
		byText: make(map[string]ID, 256),
		byID:   make([]string, 1, 256),
	}
	return t
}

// Intern returns the stable ID for text, allocating a new one if this is the
// first time text has been seen.
func (t *Table) Intern(text string) ID {
	t.mu.RLock()
	if id, ok := t.byText[text]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byText[text]; ok {
		return id
	}
	id := ID(len(t.byID))
	t.byID = append(t.byID, text)
	t.byText[text] = id
	return id
}

// Lookup returns the text for an ID previously returned by Intern. Panics on
// an out-of-range ID; callers never construct IDs except via Intern.
func (t *Table) Lookup(id ID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byID[id]
}

// Len reports how many distinct strings have been interned (excluding the
// reserved zero slot).
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID) - 1
}
