package ast

import "github.com/BasixKOR/boa/internal/intern"

// Binding is a destructuring target: a plain identifier, an array pattern,
// or an object pattern, each of which may itself bind sub-patterns and
// carry a default (spec.md §4.2's destructuring-and-defaults grammar).
// Unlike Expr/Stmt this is a closed struct rather than an interface --
// esbuild's own js_ast.Binding is likewise a concrete tagged struct, not an
// interface, since every destructuring target shares the same few fields.
type Binding struct {
	Kind BindingKind
	Loc  Loc

	// BindingIdentifier
	Name intern.ID
	Ref  Ref

	// BindingArray / BindingObject
	Items []BindingItem
	// Rest is the trailing "...rest" element, nil if absent.
	Rest *Binding
}

type BindingKind uint8

const (
	BindingIdentifier BindingKind = iota
	BindingArray
	BindingObject
)

// BindingItem is one element of an array/object destructuring pattern.
// Key is only meaningful for BindingObject (nil for an array element or a
// hole); Default is the "= expr" fallback, nil if absent.
type BindingItem struct {
	Key      Expr
	Computed bool
	Value    Binding
	Default  Expr
	IsHole   bool // BindingArray elision ("[, x]")
}
