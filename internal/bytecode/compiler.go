package bytecode

import (
	"fmt"

	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/value"
)

// breakableFrame tracks one enclosing loop/switch target for
// break/continue resolution, mirroring the nested-scope bookkeeping esbuild's
// own parser keeps for label resolution (js_parser.go's fnOrArrowDataParse
// loop/label counters), but here driving actual jump-patch lists rather than
// a parse-time legality check.
type breakableFrame struct {
	labels    []intern.ID
	isLoop    bool
	isSwitch  bool
	breaks    []int32 // pcs of a placeholder OpJump, patched once the construct's exit pc is known
	continues []int32 // pcs of a placeholder OpJump, patched once the loop's continue target is known
	// regionDepth is len(Compiler.tryRegions) at the moment this frame was
	// pushed, so a break/continue targeting it knows exactly which active
	// try regions (those pushed after) it must pop handlers for and run
	// finally clauses of.
	regionDepth int
	// pendingDepth is Compiler.sharedFinallyDepth at push time: a break
	// compiled inside a shared finally block crossing this frame must
	// discard the pending completions of every shared finally in between.
	pendingDepth int
	// scopeDepth is Compiler.scopeDepth at push time: a break/continue
	// jumping out of nested block/with scopes must pop the runtime
	// environments it crosses, or the frame's env chain leaks a level.
	scopeDepth int
}

// Compiler lowers one function body (or the top-level program) to a
// CodeBlock. A fresh Compiler is used per function; nested functions get
// their own Compiler sharing the same interner.
type Compiler struct {
	cb         *CodeBlock
	interner   *intern.Table
	curScope   *ast.Scope
	frames     []*breakableFrame
	tryRegions []tryRegion
	// sharedFinallyDepth counts how many shared finally blocks (the single
	// compiled copy OpEnterFinally/OpEndFinally bracket, as opposed to the
	// copies inlined at static exits) enclose the current compile point.
	sharedFinallyDepth int
	// scopeDepth counts the runtime environments currently pushed
	// (OpEnterScope / OpEnterWithScope) at the compile point.
	scopeDepth int
}

// compileError is the panic payload the compiler raises for programs that
// parsed but cannot be lowered; the exported entry points convert it into
// an ordinary SyntaxError so embedders see a catchable failure, never a
// crash.
type compileError struct {
	msg string
}

func (c *Compiler) failf(format string, args ...any) {
	panic(&compileError{msg: fmt.Sprintf(format, args...)})
}

// recoverCompileError converts a compileError panic into *errp; any other
// panic keeps propagating (those are engine bugs).
func recoverCompileError(errp *error) {
	if r := recover(); r != nil {
		if ce, ok := r.(*compileError); ok {
			*errp = errors.SyntaxError("%s", ce.msg)
			return
		}
		panic(r)
	}
}

// Compile lowers a top-level program to its CodeBlock (spec.md §4.3's
// per-function CodeBlock, here rooted at the Program's own implicit
// function-like body).
func Compile(prog *ast.SProgram, interner *intern.Table) (cb *CodeBlock, err error) {
	defer recoverCompileError(&err)
	cb = New("<program>")
	cb.NumSlots = len(prog.Scope.Symbols)
	cb.Strict = prog.Strict
	cb.LocalNames = scopeSlotNames(prog.Scope, interner)
	cb.ArgumentsSlot = -1
	cb.Source = "" // set by the caller that owns the source text, if needed
	c := &Compiler{cb: cb, interner: interner, curScope: prog.Scope}
	c.declareTDZSlots(prog.Scope)
	c.compileScopeBody(prog.Body)
	c.cb.emit(OpUndefined, 0, 0)
	c.cb.emit(OpReturn, 0, 0)
	return cb, nil
}

// CompileFunction lowers one standalone function to a CodeBlock, the
// error-returning wrapper around the internal recursion. strict is the
// enclosing code's strictness; the function's own "use strict" directive
// can only tighten it.
func CompileFunction(fn *ast.Fn, interner *intern.Table, strict bool) (cb *CodeBlock, err error) {
	defer recoverCompileError(&err)
	return compileFunction(fn, interner, strict), nil
}

// compileFunction is the panic-propagating body Compile's recursion uses
// for nested functions; a compileError raised anywhere inside unwinds to
// the outermost exported entry point.
func compileFunction(fn *ast.Fn, interner *intern.Table, strict bool) *CodeBlock {
	cb := New(fnName(fn, interner))
	cb.NumSlots = len(fn.Scope.Symbols)
	cb.ParamCount = len(fn.Params)
	cb.HasRestParam = len(fn.Params) > 0 && fn.Params[len(fn.Params)-1].IsRest
	cb.Strict = strict || hasUseStrict(fn.Body)
	cb.IsArrow = fn.IsArrow()
	cb.IsGenerator = fn.IsGenerator()
	cb.IsAsync = fn.IsAsync()
	cb.SourceStart, cb.SourceEnd = fn.SourceStart, fn.SourceEnd
	cb.LocalNames = scopeSlotNames(fn.Scope, interner)
	cb.ArgumentsSlot = -1

	c := &Compiler{cb: cb, interner: interner, curScope: fn.Scope}
	c.declareTDZSlots(fn.Scope)
	c.compileArgumentsPrologue(fn)
	c.compileParamPrologue(fn)
	if fn.ArrowExpr != nil {
		c.compileExpr(fn.ArrowExpr)
		cb.emit(OpReturn, 0, 0)
	} else {
		c.compileScopeBody(fn.Body)
		cb.emit(OpUndefined, 0, 0)
		cb.emit(OpReturn, 0, 0)
	}
	return cb
}

// scopeSlotNames renders a scope's slot-index-ordered name list for the
// runtime environment's dynamic-lookup labels.
func scopeSlotNames(s *ast.Scope, interner *intern.Table) []string {
	names := make([]string, len(s.Symbols))
	for _, sym := range s.Symbols {
		names[sym.SlotIndex] = interner.Lookup(sym.Name)
	}
	return names
}

// compileArgumentsPrologue materializes the implicit `arguments` binding
// (spec.md §4.3 CreateMappedArgumentsObject / CreateUnmappedArgumentsObject)
// in non-arrow functions: the mapped form for sloppy functions with simple
// parameter lists (indices alias the parameter slots), the unmapped
// snapshot otherwise. Shadowing declarations win: if `arguments` resolves
// to anything but the implicit symbol, no object is created.
func (c *Compiler) compileArgumentsPrologue(fn *ast.Fn) {
	if fn.IsArrow() {
		return
	}
	scope := fn.Scope
	idx, ok := scope.ByName[c.interner.Intern("arguments")]
	if !ok || scope.Symbols[idx].Kind != ast.SymbolArguments {
		return
	}
	slot := scope.Symbols[idx].SlotIndex
	c.cb.ArgumentsSlot = slot

	simple := true
	for _, p := range fn.Params {
		if p.Binding.Kind != ast.BindingIdentifier || p.Default != nil || p.IsRest {
			simple = false
			break
		}
	}
	if simple && !c.cb.Strict {
		c.cb.MappedArguments = true
		c.cb.ParamSlots = make([]int32, len(fn.Params))
		for i, p := range fn.Params {
			_, s, _ := c.resolveName(p.Binding.Ref, p.Binding.Name)
			c.cb.ParamSlots[i] = s
		}
		c.cb.emit(OpCreateMappedArguments, 0, 0)
	} else {
		c.cb.emit(OpCreateUnmappedArguments, 0, 0)
	}
	c.cb.emit(OpInitLocal, 0, slot)
}

// hasUseStrict reports whether a function body opens with a "use strict"
// directive prologue.
func hasUseStrict(body []ast.Stmt) bool {
	for _, s := range body {
		expr, ok := s.(*ast.SExpr)
		if !ok {
			return false
		}
		str, ok := expr.Value.(*ast.EString)
		if !ok {
			return false
		}
		if len(str.Value) == len("use strict") {
			match := true
			for i, c := range "use strict" {
				if str.Value[i] != uint16(c) {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

func fnName(fn *ast.Fn, interner *intern.Table) string {
	if fn.HasName {
		return interner.Lookup(fn.Name)
	}
	return "<anonymous>"
}

// compileParamPrologue binds every parameter from the frame's argument
// slice: the VM never pre-places arguments in environment slots, so
// defaults, destructuring patterns, rest parameters, and the self-name
// binding of a named function expression all go through the same prologue.
func (c *Compiler) compileParamPrologue(fn *ast.Fn) {
	if fn.HasName {
		if idx, ok := fn.Scope.ByName[fn.Name]; ok {
			c.cb.emit(OpGetCallee, 0, 0)
			c.cb.emit(OpInitLocal, 0, fn.Scope.Symbols[idx].SlotIndex)
		}
	}
	positional := len(fn.Params)
	if c.cb.HasRestParam {
		positional--
	}
	for i, p := range fn.Params {
		if p.IsRest {
			c.cb.emit(OpGetRestArgs, int32(positional), 0)
			c.compileDestructure(p.Binding, destructureLet)
			break
		}
		c.cb.emit(OpGetArg, int32(i), 0)
		if p.Default != nil {
			jUndef := c.cb.emit(OpJumpIfUndefined, 0, 0) // pops & jumps if undefined; else leaves the arg
			jDone := c.cb.emit(OpJump, 0, 0)
			c.cb.patchA(jUndef, c.cb.here())
			c.compileExpr(p.Default)
			c.cb.patchA(jDone, c.cb.here())
		}
		c.compileDestructure(p.Binding, destructureLet)
	}
}

// resolve maps a parse-time Ref to a runtime (environment_depth, slot) pair
// by counting Scope.Parent hops from the expression's enclosing scope up to
// the scope the symbol was declared in (spec.md §4.3 "Scope lowering").
func (c *Compiler) resolve(ref ast.Ref) (depth, slot int32) {
	d := int32(0)
	for s := c.curScope; s != nil; s = s.Parent {
		if s.ID == ref.ScopeID {
			return d, s.Symbols[ref.SymbolIndex].SlotIndex
		}
		d++
	}
	return -1, -1
}

// resolveName resolves an identifier to a (depth, slot) pair, preferring
// the parser's binding but falling back to a by-name walk of the scope
// chain. The fallback catches references parsed before their declaration
// (hoisted functions, forward `var`/`let` references), which the single
// parse pass left unresolved; compilation runs after the whole scope is
// known, so the late lookup sees every declaration. A reference that
// crosses a poisoned (`with`) scope on the way to its binding reports
// not-ok: the caller falls back to dynamic name resolution, which is what
// lets the with-object shadow it at runtime (spec.md §4.3).
func (c *Compiler) resolveName(ref ast.Ref, name intern.ID) (depth, slot int32, ok bool) {
	crossedPoisoned := false
	d := int32(0)
	for s := c.curScope; s != nil; s = s.Parent {
		if s.Kind == ast.ScopeWith || s.Poisoned {
			// A with scope has no slot storage at runtime (its record is the
			// object env), so even its own declarations resolve dynamically.
			crossedPoisoned = true
		}
		if ref.Valid && s.ID == ref.ScopeID {
			if crossedPoisoned {
				return -1, -1, false
			}
			return d, s.Symbols[ref.SymbolIndex].SlotIndex, true
		}
		if !ref.Valid {
			if idx, found := s.ByName[name]; found {
				if crossedPoisoned {
					return -1, -1, false
				}
				return d, s.Symbols[idx].SlotIndex, true
			}
		}
		d++
	}
	return -1, -1, false
}

// enterScope emits the runtime env push for s and returns the previous
// compile-time scope so the caller can restore it after compiling s's body.
// Every let/const/class binding starts life poisoned with a TDZ sentinel
// (spec.md's temporal dead zone) until its own declaration statement runs.
func (c *Compiler) enterScope(s *ast.Scope) *ast.Scope {
	prev := c.curScope
	c.cb.emit(OpEnterScope, int32(len(s.Symbols)), c.cb.AddScopeNames(scopeSlotNames(s, c.interner)))
	c.curScope = s
	c.scopeDepth++
	c.declareTDZSlots(s)
	return prev
}

// declareTDZSlots poisons s's own let/const/class bindings with a TDZ
// sentinel; a read through OpGetLocal before the binding's own declaration
// statement runs throws a ReferenceError (spec.md's temporal dead zone).
func (c *Compiler) declareTDZSlots(s *ast.Scope) {
	for _, sym := range s.Symbols {
		if sym.Kind == ast.SymbolLet || sym.Kind == ast.SymbolConst || sym.Kind == ast.SymbolClassName {
			c.cb.emit(OpDeclareTDZ, 0, sym.SlotIndex)
		}
	}
}

func (c *Compiler) exitScope(prev *ast.Scope) {
	c.cb.emit(OpExitScope, 0, 0)
	c.curScope = prev
	c.scopeDepth--
}

// constString interns a Go string as a JS string constant, used for property
// names, dynamic-variable names, and private-name lookups.
func (c *Compiler) constString(s string) int32 {
	return c.cb.AddConst(value.String(jsstring.New(s)))
}

// name returns the interned text for id, used wherever a constant needs the
// UTF-8 source text rather than the id itself (property keys, dynamic
// variable names, private-name descriptions).
func (c *Compiler) name(id intern.ID) string { return c.interner.Lookup(id) }
