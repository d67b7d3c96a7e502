package parser

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/intern"
)

// The early-error pass (spec.md §4.2 "Early errors. Performed after
// parsing each function/script/module") walks the finished tree once and
// rejects the programs the grammar accepts but the language does not:
// strict-mode violations, duplicate declarations, misplaced control flow,
// and `super`/`new.target`/`yield`/`await` outside their homes. Errors
// raise through the same panic/recover channel as parse failures, so an
// embedder sees an ordinary SyntaxError at evaluation time.

// strictReservedWords are identifiers strict code may not bind or assign
// (spec.md §4.2 "use of strict reserved words as identifiers").
var strictReservedWords = map[string]bool{
	"implements": true, "interface": true, "let": true, "package": true,
	"private": true, "protected": true, "public": true, "static": true,
	"yield": true,
}

// eeCtx is the per-function context the walk threads: strictness, the
// suspension kind of the enclosing function, and the label/loop state
// break/continue resolve against.
type eeCtx struct {
	strict     bool
	inFunction bool
	inMethod   bool
	inGen      bool
	inAsync    bool

	labels      map[intern.ID]bool
	loopLabels  map[intern.ID]bool
	loopDepth   int
	switchDepth int
}

func (c eeCtx) withLabel(name intern.ID, isLoop bool) eeCtx {
	labels := make(map[intern.ID]bool, len(c.labels)+1)
	for k := range c.labels {
		labels[k] = true
	}
	labels[name] = true
	out := c
	out.labels = labels
	if isLoop {
		loops := make(map[intern.ID]bool, len(c.loopLabels)+1)
		for k := range c.loopLabels {
			loops[k] = true
		}
		loops[name] = true
		out.loopLabels = loops
	}
	return out
}

func (p *Parser) checkEarlyErrors(prog *ast.SProgram) {
	ctx := eeCtx{strict: prog.Strict}
	p.checkScopeDeclarations(prog.Scope)
	for _, s := range prog.Body {
		p.eeStmt(s, ctx)
	}
}

// checkScopeDeclarations enforces the scope-shape rules: no duplicate
// lexical declarations in one scope, and no `var` sharing a name with a
// lexical declaration in the same scope (spec.md §4.2). Runs over the
// whole scope tree in one sweep.
func (p *Parser) checkScopeDeclarations(s *ast.Scope) {
	lexical := make(map[intern.ID]bool)
	vars := make(map[intern.ID]bool)
	for _, sym := range s.Symbols {
		switch sym.Kind {
		case ast.SymbolLet, ast.SymbolConst, ast.SymbolClassName:
			if lexical[sym.Name] {
				p.fail("identifier '%s' has already been declared", p.interner.Lookup(sym.Name))
			}
			if vars[sym.Name] {
				p.fail("identifier '%s' has already been declared", p.interner.Lookup(sym.Name))
			}
			lexical[sym.Name] = true
		case ast.SymbolVar, ast.SymbolFunctionArg:
			if lexical[sym.Name] {
				p.fail("identifier '%s' has already been declared", p.interner.Lookup(sym.Name))
			}
			vars[sym.Name] = true
		}
	}
	for _, child := range s.Children {
		p.checkScopeDeclarations(child)
	}
}

// checkBindingNames walks a binding target's leaves, rejecting names strict
// code may not bind and the suspension keywords inside their own function
// kinds.
func (p *Parser) checkBindingNames(b ast.Binding, ctx eeCtx) {
	switch b.Kind {
	case ast.BindingIdentifier:
		p.checkBoundName(p.interner.Lookup(b.Name), ctx)
	case ast.BindingArray, ast.BindingObject:
		for _, item := range b.Items {
			if item.IsHole {
				continue
			}
			p.checkBindingNames(item.Value, ctx)
		}
		if b.Rest != nil {
			p.checkBindingNames(*b.Rest, ctx)
		}
	}
}

func (p *Parser) checkBoundName(name string, ctx eeCtx) {
	if ctx.strict {
		if name == "eval" || name == "arguments" {
			p.fail("cannot bind '%s' in strict mode", name)
		}
		if strictReservedWords[name] {
			p.fail("'%s' is a reserved word in strict mode", name)
		}
	}
	if ctx.inGen && name == "yield" {
		p.fail("'yield' cannot be used as an identifier inside a generator")
	}
	if ctx.inAsync && name == "await" {
		p.fail("'await' cannot be used as an identifier inside an async function")
	}
}

// checkFunction validates one function's own surface -- parameter list
// shape, async-generator support -- then walks its body under the
// function's context.
func (p *Parser) checkFunction(fn *ast.Fn, outer eeCtx) {
	if fn.IsAsync() && fn.IsGenerator() {
		p.fail("async generators are not supported")
	}

	ctx := eeCtx{
		strict:     outer.strict || hasUseStrictPrologue(fn.Body),
		inFunction: true,
		inMethod:   fn.IsMethod(),
		inGen:      fn.IsGenerator(),
		inAsync:    fn.IsAsync(),
	}
	if fn.IsArrow() {
		// Arrows inherit the enclosing method-ness and suspension kind for
		// everything except yield (an arrow body never yields).
		ctx.inMethod = outer.inMethod
		ctx.inAsync = ctx.inAsync || outer.inAsync
	}

	simple := true
	for _, param := range fn.Params {
		if param.Binding.Kind != ast.BindingIdentifier || param.Default != nil || param.IsRest {
			simple = false
		}
	}
	seen := make(map[intern.ID]bool, len(fn.Params))
	for _, param := range fn.Params {
		p.checkBindingNames(param.Binding, ctx)
		if param.Binding.Kind == ast.BindingIdentifier {
			if seen[param.Binding.Name] && (ctx.strict || !simple) {
				p.fail("duplicate parameter name '%s' not allowed in this context", p.interner.Lookup(param.Binding.Name))
			}
			seen[param.Binding.Name] = true
		}
		if param.Default != nil {
			p.eeExpr(param.Default, ctx)
		}
	}

	if fn.ArrowExpr != nil {
		p.eeExpr(fn.ArrowExpr, ctx)
		return
	}
	for _, s := range fn.Body {
		p.eeStmt(s, ctx)
	}
}

func (p *Parser) checkClass(class *ast.Class, outer eeCtx) {
	// Class bodies are always strict (spec.md §4.2).
	ctx := outer
	ctx.strict = true
	if class.Super != nil {
		p.eeExpr(class.Super, outer)
	}
	for _, el := range class.Elements {
		if el.Kind == ast.ElementStaticBlock {
			blockCtx := ctx
			blockCtx.inFunction = true
			blockCtx.inMethod = true
			for _, s := range el.Body {
				p.eeStmt(s, blockCtx)
			}
			continue
		}
		if el.Computed {
			p.eeExpr(el.Key, ctx)
		}
		if el.Value != nil {
			if fnExpr, ok := el.Value.(*ast.EFunction); ok {
				p.checkFunction(fnExpr.Fn, ctx)
				continue
			}
			// Field initializers see `this`/`super` like methods do.
			initCtx := ctx
			initCtx.inFunction = true
			initCtx.inMethod = true
			p.eeExpr(el.Value, initCtx)
		}
	}
}

func (p *Parser) eeStmt(s ast.Stmt, ctx eeCtx) {
	switch n := s.(type) {
	case *ast.SExpr:
		p.eeExpr(n.Value, ctx)
	case *ast.SVarDecl:
		for _, d := range n.Decls {
			p.checkBindingNames(d.Binding, ctx)
			if d.Value != nil {
				p.eeExpr(d.Value, ctx)
			}
		}
	case *ast.SBlock:
		for _, inner := range n.Body {
			p.eeStmt(inner, ctx)
		}
	case *ast.SFunction:
		p.checkFunction(n.Fn, ctx)
	case *ast.SClass:
		p.checkClass(n.Class, ctx)
	case *ast.SIf:
		p.eeExpr(n.Test, ctx)
		p.eeStmt(n.Yes, ctx)
		if n.No != nil {
			p.eeStmt(n.No, ctx)
		}
	case *ast.SFor:
		loop := ctx
		loop.loopDepth++
		if n.Init != nil {
			p.eeStmt(n.Init, ctx)
		}
		if n.Test != nil {
			p.eeExpr(n.Test, ctx)
		}
		if n.Update != nil {
			p.eeExpr(n.Update, ctx)
		}
		p.eeStmt(n.Body, loop)
	case *ast.SForInOf:
		if n.Kind == ast.ForOfAwait && !ctx.inAsync {
			p.fail("'for await' is only valid in an async function")
		}
		loop := ctx
		loop.loopDepth++
		if n.Decl != nil {
			p.eeStmt(n.Decl, ctx)
		} else if n.Target != nil {
			p.eeExpr(n.Target, ctx)
		}
		p.eeExpr(n.Subject, ctx)
		p.eeStmt(n.Body, loop)
	case *ast.SWhile:
		loop := ctx
		loop.loopDepth++
		p.eeExpr(n.Test, ctx)
		p.eeStmt(n.Body, loop)
	case *ast.SDoWhile:
		loop := ctx
		loop.loopDepth++
		p.eeStmt(n.Body, loop)
		p.eeExpr(n.Test, ctx)
	case *ast.SReturn:
		if !ctx.inFunction {
			p.fail("'return' outside a function")
		}
		if n.Value != nil {
			p.eeExpr(n.Value, ctx)
		}
	case *ast.SThrow:
		p.eeExpr(n.Value, ctx)
	case *ast.SBreak:
		if n.HasLabel {
			if !ctx.labels[n.Label] {
				p.fail("undefined label '%s'", p.interner.Lookup(n.Label))
			}
		} else if ctx.loopDepth == 0 && ctx.switchDepth == 0 {
			p.fail("illegal break statement")
		}
	case *ast.SContinue:
		if n.HasLabel {
			if !ctx.loopLabels[n.Label] {
				p.fail("undefined label '%s'", p.interner.Lookup(n.Label))
			}
		} else if ctx.loopDepth == 0 {
			p.fail("illegal continue statement")
		}
	case *ast.SLabel:
		p.eeStmt(n.Body, ctx.withLabel(n.Name, isLoopStmt(n.Body)))
	case *ast.STry:
		for _, inner := range n.Body {
			p.eeStmt(inner, ctx)
		}
		if n.Catch != nil {
			if n.Catch.HasBinding {
				p.checkBindingNames(n.Catch.Binding, ctx)
			}
			for _, inner := range n.Catch.Body {
				p.eeStmt(inner, ctx)
			}
		}
		for _, inner := range n.Finally {
			p.eeStmt(inner, ctx)
		}
	case *ast.SSwitch:
		p.eeExpr(n.Test, ctx)
		sw := ctx
		sw.switchDepth++
		for _, cs := range n.Cases {
			if cs.Test != nil {
				p.eeExpr(*cs.Test, ctx)
			}
			for _, inner := range cs.Body {
				p.eeStmt(inner, sw)
			}
		}
	case *ast.SWith:
		if ctx.strict {
			p.fail("'with' statements are not allowed in strict mode")
		}
		p.eeExpr(n.Object, ctx)
		p.eeStmt(n.Body, ctx)
	}
}

func isLoopStmt(s ast.Stmt) bool {
	switch inner := s.(type) {
	case *ast.SFor, *ast.SForInOf, *ast.SWhile, *ast.SDoWhile:
		return true
	case *ast.SLabel:
		return isLoopStmt(inner.Body)
	}
	return false
}

func (p *Parser) eeExpr(e ast.Expr, ctx eeCtx) {
	switch n := e.(type) {
	case *ast.ENumber:
		if ctx.strict && n.LegacyOctal {
			p.fail("octal literals are not allowed in strict mode")
		}
	case *ast.EIdentifier:
		name := p.interner.Lookup(n.Name)
		if ctx.inGen && name == "yield" {
			p.fail("'yield' cannot be used as an identifier inside a generator")
		}
		if ctx.inAsync && name == "await" {
			p.fail("'await' cannot be used as an identifier inside an async function")
		}
		if ctx.strict && strictReservedWords[name] {
			p.fail("'%s' is a reserved word in strict mode", name)
		}
	case *ast.EAssign:
		p.checkAssignTarget(n.Target, ctx)
		p.eeExpr(n.Target, ctx)
		p.eeExpr(n.Value, ctx)
	case *ast.EUpdate:
		p.checkAssignTarget(n.Value, ctx)
		p.eeExpr(n.Value, ctx)
	case *ast.EUnary:
		if ctx.strict && n.Op == ast.UnDelete {
			if _, ok := n.Value.(*ast.EIdentifier); ok {
				p.fail("cannot delete a variable in strict mode")
			}
		}
		p.eeExpr(n.Value, ctx)
	case *ast.EBinary:
		p.eeExpr(n.Left, ctx)
		p.eeExpr(n.Right, ctx)
	case *ast.EConditional:
		p.eeExpr(n.Test, ctx)
		p.eeExpr(n.Yes, ctx)
		p.eeExpr(n.No, ctx)
	case *ast.EDot:
		if _, ok := n.Target.(*ast.ESuper); ok && !ctx.inMethod {
			p.fail("'super' keyword is only valid inside a method")
		}
		p.eeExpr(n.Target, ctx)
	case *ast.EIndex:
		if _, ok := n.Target.(*ast.ESuper); ok && !ctx.inMethod {
			p.fail("'super' keyword is only valid inside a method")
		}
		p.eeExpr(n.Target, ctx)
		p.eeExpr(n.Index, ctx)
	case *ast.ECall:
		if _, ok := n.Target.(*ast.ESuper); ok && !ctx.inMethod {
			p.fail("'super' keyword is only valid inside a method")
		}
		if _, isSuper := n.Target.(*ast.ESuper); !isSuper {
			p.eeExpr(n.Target, ctx)
		}
		for _, a := range n.Args {
			p.eeExpr(a, ctx)
		}
	case *ast.ESpread:
		p.eeExpr(n.Value, ctx)
	case *ast.EArray:
		for _, item := range n.Items {
			if item != nil {
				p.eeExpr(item, ctx)
			}
		}
	case *ast.EObject:
		for _, prop := range n.Properties {
			if prop.Computed && prop.Key != nil {
				p.eeExpr(prop.Key, ctx)
			}
			if fnExpr, ok := prop.Value.(*ast.EFunction); ok {
				p.checkFunction(fnExpr.Fn, ctx)
				continue
			}
			if prop.Value != nil {
				p.eeExpr(prop.Value, ctx)
			}
		}
	case *ast.EFunction:
		p.checkFunction(n.Fn, ctx)
	case *ast.EArrow:
		p.checkFunction(n.Fn, ctx)
	case *ast.EClass:
		p.checkClass(n.Class, ctx)
	case *ast.ETemplate:
		if n.Tag != nil {
			p.eeExpr(n.Tag, ctx)
		}
		for _, part := range n.Parts {
			if part.Value != nil {
				p.eeExpr(part.Value, ctx)
			}
		}
	case *ast.ESequence:
		for _, sub := range n.Exprs {
			p.eeExpr(sub, ctx)
		}
	case *ast.EYield:
		if !ctx.inGen {
			p.fail("'yield' is only valid inside a generator")
		}
		if n.Value != nil {
			p.eeExpr(n.Value, ctx)
		}
	case *ast.EAwait:
		if !ctx.inAsync {
			p.fail("'await' is only valid in an async function")
		}
		p.eeExpr(n.Value, ctx)
	case *ast.ENewTarget:
		if !ctx.inFunction {
			p.fail("'new.target' is only valid inside a function")
		}
	case *ast.EPrivateIn:
		p.eeExpr(n.Object, ctx)
	}
}

// checkAssignTarget rejects strict-mode writes to eval/arguments (spec.md
// §4.2 "assignment to eval/arguments").
func (p *Parser) checkAssignTarget(target ast.Expr, ctx eeCtx) {
	id, ok := target.(*ast.EIdentifier)
	if !ok || !ctx.strict {
		return
	}
	name := p.interner.Lookup(id.Name)
	if name == "eval" || name == "arguments" {
		p.fail("cannot assign to '%s' in strict mode", name)
	}
}

// hasUseStrictPrologue reports a "use strict" directive at the start of a
// function body, mirroring the bytecode compiler's own check.
func hasUseStrictPrologue(body []ast.Stmt) bool {
	for _, s := range body {
		expr, ok := s.(*ast.SExpr)
		if !ok {
			return false
		}
		str, ok := expr.Value.(*ast.EString)
		if !ok {
			return false
		}
		if len(str.Value) != len("use strict") {
			continue
		}
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
	return false
}
