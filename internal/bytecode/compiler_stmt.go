package bytecode

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/intern"
)

// tryRegion is one active try statement at the current compile point. It
// tracks how many runtime handlers the region currently has pushed (two for
// a try with both catch and finally while compiling the body, one inside
// the catch clause, ...) so a static exit (break/continue/return) can pop
// exactly those, and carries the finally clause for inlining at each such
// exit -- the clause runs exactly once per exit even though no single
// runtime jump target is known until the exit itself is compiled (spec.md's
// try/finally completion dominance: a completion written directly in the
// finally clause overrides whatever the try/catch body was doing, which
// falls out for free here since inlining the clause's own break/continue/
// return just makes the original exit's code after it unreachable).
type tryRegion struct {
	handlers     int
	finallyBody  []ast.Stmt
	finallyScope *ast.Scope
}

func (c *Compiler) compileStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.compileStmt(s, nil)
	}
}

// compileScopeBody compiles one scope's statement list, instantiating its
// function declarations first (hoisting: a declaration is callable from
// anywhere in its scope, including code textually above it).
func (c *Compiler) compileScopeBody(stmts []ast.Stmt) {
	c.hoistFunctions(stmts)
	c.compileStmts(stmts)
}

func (c *Compiler) hoistFunctions(stmts []ast.Stmt) {
	for _, s := range stmts {
		fn, ok := s.(*ast.SFunction)
		if !ok {
			continue
		}
		child := compileFunction(fn.Fn, c.interner, c.cb.Strict)
		idx := c.cb.AddChild(child)
		c.cb.emit(OpNewFunction, idx, 0)
		depth, slot := c.resolve(fn.Ref)
		c.cb.emit(OpInitLocal, depth, slot)
	}
}

// compileStmt compiles one statement. labels carries the chain of labels a
// wrapping SLabel introduced (js_ast.SLabel can nest, "a: b: for (...) ..."),
// passed down so the loop/switch this statement turns out to be can resolve
// "break a"/"continue a" from either label.
func (c *Compiler) compileStmt(s ast.Stmt, labels []intern.ID) {
	switch n := s.(type) {
	case *ast.SExpr:
		c.compileExpr(n.Value)
		c.cb.emit(OpPop, 0, 0)
	case *ast.SEmpty, *ast.SDebugger:
		// nothing to emit
	case *ast.SBlock:
		prev := c.enterScope(n.Scope)
		c.compileScopeBody(n.Body)
		c.exitScope(prev)
	case *ast.SVarDecl:
		c.compileVarDecl(n)
	case *ast.SFunction:
		// function declarations are instantiated during scope setup
		// (hoisting); nothing to do at the statement's own position.
	case *ast.SClass:
		c.emitClass(n.Class)
		depth, slot := c.resolve(n.Ref)
		c.cb.emit(OpInitLocal, depth, slot)
	case *ast.SIf:
		c.compileIf(n)
	case *ast.SFor:
		c.compileFor(n, labels)
	case *ast.SForInOf:
		c.compileForInOf(n, labels)
	case *ast.SWhile:
		c.compileWhile(n, labels)
	case *ast.SDoWhile:
		c.compileDoWhile(n, labels)
	case *ast.SReturn:
		c.compileReturn(n)
	case *ast.SThrow:
		c.compileExpr(n.Value)
		c.cb.emit(OpThrow, 0, 0)
	case *ast.SBreak:
		c.compileBreak(n)
	case *ast.SContinue:
		c.compileContinue(n)
	case *ast.SLabel:
		c.compileStmt(n.Body, append(labels, n.Name))
	case *ast.SWith:
		c.compileWith(n)
	case *ast.STry:
		c.compileTry(n)
	case *ast.SSwitch:
		c.compileSwitch(n, labels)
	default:
		c.failf("unhandled statement form")
	}
}

func (c *Compiler) compileVarDecl(n *ast.SVarDecl) {
	mode := declModeFor(n.Kind)
	for _, d := range n.Decls {
		if d.Value != nil {
			c.compileExpr(d.Value)
		} else if n.Kind != ast.DeclVar {
			c.cb.emit(OpUndefined, 0, 0)
		} else {
			continue // uninitialized `var x;` -- the slot already holds undefined
		}
		c.compileDestructure(d.Binding, mode)
	}
}

func (c *Compiler) compileIf(n *ast.SIf) {
	c.compileExpr(n.Test)
	jElse := c.cb.emit(OpJumpIfFalse, 0, 0)
	c.compileStmt(n.Yes, nil)
	if n.No == nil {
		c.cb.patchA(jElse, c.cb.here())
		return
	}
	jEnd := c.cb.emit(OpJump, 0, 0)
	c.cb.patchA(jElse, c.cb.here())
	c.compileStmt(n.No, nil)
	c.cb.patchA(jEnd, c.cb.here())
}

func (c *Compiler) pushBreakable(labels []intern.ID, isLoop, isSwitch bool) *breakableFrame {
	f := &breakableFrame{
		labels: labels, isLoop: isLoop, isSwitch: isSwitch,
		regionDepth:  len(c.tryRegions),
		pendingDepth: c.sharedFinallyDepth,
		scopeDepth:   c.scopeDepth,
	}
	c.frames = append(c.frames, f)
	return f
}

func (c *Compiler) popBreakable() *breakableFrame {
	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return f
}

func (c *Compiler) patchJumps(pcs []int32, target int32) {
	for _, pc := range pcs {
		c.cb.patchA(pc, target)
	}
}

// isLetLikeForInit reports whether a for-loop's own Init declares a
// non-`var` binding, which needs a fresh copied environment each iteration
// so a closure created inside the body captures that iteration's own value
// (spec.md §8 scenario 1).
func isLetLikeForInit(init ast.Stmt) (*ast.SVarDecl, bool) {
	decl, ok := init.(*ast.SVarDecl)
	if !ok || decl.Kind == ast.DeclVar {
		return nil, false
	}
	return decl, true
}

func (c *Compiler) compileFor(n *ast.SFor, labels []intern.ID) {
	prevScope := c.curScope
	if n.Scope != nil {
		prevScope = c.enterScope(n.Scope)
	}
	perIter, _ := isLetLikeForInit(n.Init)
	if n.Init != nil {
		c.compileStmt(n.Init, nil)
	}
	if perIter != nil {
		c.cb.emit(OpCopyScope, int32(len(n.Scope.Symbols)), 0)
	}

	frame := c.pushBreakable(labels, true, false)
	testPC := c.cb.here()
	var jExit int32 = -1
	if n.Test != nil {
		c.compileExpr(n.Test)
		jExit = c.cb.emit(OpJumpIfFalse, 0, 0)
	}
	c.compileStmt(n.Body, nil)
	continuePC := c.cb.here()
	if perIter != nil {
		c.cb.emit(OpCopyScope, int32(len(n.Scope.Symbols)), 0)
	}
	if n.Update != nil {
		c.compileExpr(n.Update)
		c.cb.emit(OpPop, 0, 0)
	}
	c.cb.emit(OpJump, testPC, 0)
	endPC := c.cb.here()
	if jExit >= 0 {
		c.cb.patchA(jExit, endPC)
	}
	c.patchJumps(frame.breaks, endPC)
	c.patchJumps(frame.continues, continuePC)
	c.popBreakable()

	if n.Scope != nil {
		c.exitScope(prevScope)
	}
}

// compileWith lowers `with (obj) body`: evaluate the object, push a
// poisoned Object environment over it, compile the body under the ScopeWith
// compile-time scope so every crossing reference already fell back to
// dynamic resolution (see resolveName), and pop on every exit path.
func (c *Compiler) compileWith(n *ast.SWith) {
	c.compileExpr(n.Object)
	c.cb.emit(OpEnterWithScope, 0, 0)
	c.scopeDepth++
	prev := c.curScope
	c.curScope = n.Scope
	c.compileStmt(n.Body, nil)
	c.curScope = prev
	c.cb.emit(OpExitScope, 0, 0)
	c.scopeDepth--
}

func (c *Compiler) compileForInOf(n *ast.SForInOf, labels []intern.ID) {
	if n.Kind == ast.ForOfAwait {
		c.compileForAwaitOf(n, labels)
		return
	}
	c.compileExpr(n.Subject)
	if n.Kind == ast.ForIn {
		c.cb.emit(OpForInNames, 0, 0)
	} else {
		c.cb.emit(OpGetIterator, 0, 0)
	}

	prevScope := c.curScope
	if n.Scope != nil {
		prevScope = c.enterScope(n.Scope)
	}
	frame := c.pushBreakable(labels, true, false)
	loopStart := c.cb.here()
	jExit := c.cb.emit(OpIterNextOrJump, 0, 0)

	if n.Decl != nil {
		c.compileDestructure(n.Decl.Decls[0].Binding, declModeFor(n.Decl.Kind))
	} else {
		c.compileForOfAssignTarget(n.Target)
	}
	c.compileStmt(n.Body, nil)
	continuePC := c.cb.here()
	c.cb.emit(OpJump, loopStart, 0)
	endPC := c.cb.here()
	c.cb.patchA(jExit, endPC)
	c.patchJumps(frame.breaks, endPC)
	c.patchJumps(frame.continues, continuePC)
	c.popBreakable()
	if n.Scope != nil {
		c.exitScope(prevScope)
	}
}

// compileForAwaitOf lowers `for await (... of subject) body` (spec.md §4.3
// for-await-of). The async iteration protocol is driven entirely through
// existing opcodes -- the iterator object stays on the value stack, each
// next() result is awaited through the same OpAwait suspension an explicit
// `await` uses, and `.done`/`.value` are plain property reads -- so the
// only dedicated instruction is OpGetAsyncIterator.
func (c *Compiler) compileForAwaitOf(n *ast.SForInOf, labels []intern.ID) {
	c.compileExpr(n.Subject)
	c.cb.emit(OpGetAsyncIterator, 0, 0) // [it]

	prevScope := c.curScope
	if n.Scope != nil {
		prevScope = c.enterScope(n.Scope)
	}
	frame := c.pushBreakable(labels, true, false)

	loopStart := c.cb.here()
	c.cb.emit(OpDup, 0, 0)  // [it, it]
	c.cb.emit(OpDup, 0, 0)  // [it, it, it]
	c.cb.emit(OpGetProp, c.constString("next"), c.cb.AddICSlot())
	c.cb.emit(OpSwap, 0, 0) // [it, nextFn, it]
	c.cb.emit(OpArgsStart, 0, 0)
	c.cb.emit(OpCall, 0, 0) // [it, resultPromise]
	c.cb.emit(OpAwait, 0, 0)
	c.cb.emit(OpDup, 0, 0)
	c.cb.emit(OpGetProp, c.constString("done"), c.cb.AddICSlot())
	jExit := c.cb.emit(OpJumpIfTrue, 0, 0) // [it, result]
	c.cb.emit(OpGetProp, c.constString("value"), c.cb.AddICSlot())
	// Async-from-Sync unwrapping: a sync iterator's values may themselves
	// be promises; awaiting here settles them before the binding sees them.
	c.cb.emit(OpAwait, 0, 0)

	if n.Decl != nil {
		c.compileDestructure(n.Decl.Decls[0].Binding, declModeFor(n.Decl.Kind))
	} else {
		c.compileForOfAssignTarget(n.Target)
	}
	c.compileStmt(n.Body, nil) // [it]
	continuePC := c.cb.here()
	c.cb.emit(OpJump, loopStart, 0)

	exitPC := c.cb.here()
	c.cb.patchA(jExit, exitPC)
	c.cb.emit(OpPop, 0, 0) // drop the exhausted result object
	cleanupPC := c.cb.here()
	c.cb.emit(OpPop, 0, 0) // drop the iterator
	c.patchJumps(frame.breaks, cleanupPC)
	c.patchJumps(frame.continues, continuePC)
	c.popBreakable()
	if n.Scope != nil {
		c.exitScope(prevScope)
	}
}

// compileForOfAssignTarget handles "for (x of iterable)" where the loop
// head is a plain assignment target rather than a declaration.
func (c *Compiler) compileForOfAssignTarget(target ast.Expr) {
	switch t := target.(type) {
	case *ast.EIdentifier:
		c.compileIdentifierStore(t)
		c.cb.emit(OpPop, 0, 0)
	case *ast.EDot:
		c.compileExpr(t.Target)
		c.cb.emit(OpSwap, 0, 0)
		c.cb.emit(OpSetProp, c.constString(c.name(t.Name)), 0)
		c.cb.emit(OpPop, 0, 0)
	case *ast.EIndex:
		// stack starts as [value]; rearrange to [target, key, value] via two
		// swaps since OpSwap only exchanges the top two slots.
		c.compileExpr(t.Target)
		c.cb.emit(OpSwap, 0, 0)
		c.compileExpr(t.Index)
		c.cb.emit(OpSwap, 0, 0)
		c.cb.emit(OpSetPropComputed, 0, 0)
		c.cb.emit(OpPop, 0, 0)
	default:
		c.compileDestructureAssign(exprToBinding(target))
	}
}

func (c *Compiler) compileWhile(n *ast.SWhile, labels []intern.ID) {
	frame := c.pushBreakable(labels, true, false)
	testPC := c.cb.here()
	c.compileExpr(n.Test)
	jExit := c.cb.emit(OpJumpIfFalse, 0, 0)
	c.compileStmt(n.Body, nil)
	c.cb.emit(OpJump, testPC, 0)
	endPC := c.cb.here()
	c.cb.patchA(jExit, endPC)
	c.patchJumps(frame.breaks, endPC)
	c.patchJumps(frame.continues, testPC)
	c.popBreakable()
}

func (c *Compiler) compileDoWhile(n *ast.SDoWhile, labels []intern.ID) {
	frame := c.pushBreakable(labels, true, false)
	startPC := c.cb.here()
	c.compileStmt(n.Body, nil)
	continuePC := c.cb.here()
	c.compileExpr(n.Test)
	c.cb.emit(OpJumpIfTrue, startPC, 0)
	endPC := c.cb.here()
	c.patchJumps(frame.breaks, endPC)
	c.patchJumps(frame.continues, continuePC)
	c.popBreakable()
}

// unwindRegions compiles the static-exit unwind sequence for every try
// region from the current innermost one down to (but not including) depth:
// pop that region's still-active runtime handlers, then inline its finally
// clause if it has one. Used when a break, continue, or return exits
// through one or more active try statements.
func (c *Compiler) unwindRegions(depth int) {
	saved := c.tryRegions
	for i := len(saved) - 1; i >= depth; i-- {
		r := saved[i]
		for h := 0; h < r.handlers; h++ {
			c.cb.emit(OpExitTry, 0, 0)
		}
		if r.finallyBody != nil {
			// The inlined clause must see only the regions outside this one:
			// a return inside the clause unwinds outward, never back into
			// the clause being inlined (completion dominance).
			c.tryRegions = saved[:i]
			prev := c.enterScope(r.finallyScope)
			c.compileScopeBody(r.finallyBody)
			c.exitScope(prev)
		}
	}
	c.tryRegions = saved
}

func (c *Compiler) findBreakTarget(n *ast.SBreak) *breakableFrame {
	if !n.HasLabel {
		for i := len(c.frames) - 1; i >= 0; i-- {
			if c.frames[i].isLoop || c.frames[i].isSwitch {
				return c.frames[i]
			}
		}
		c.failf("illegal break statement")
		return nil
	}
	for i := len(c.frames) - 1; i >= 0; i-- {
		for _, l := range c.frames[i].labels {
			if l == n.Label {
				return c.frames[i]
			}
		}
	}
	c.failf("undefined label")
	return nil
}

func (c *Compiler) findContinueTarget(n *ast.SContinue) *breakableFrame {
	if !n.HasLabel {
		for i := len(c.frames) - 1; i >= 0; i-- {
			if c.frames[i].isLoop {
				return c.frames[i]
			}
		}
		c.failf("illegal continue statement")
		return nil
	}
	for i := len(c.frames) - 1; i >= 0; i-- {
		if !c.frames[i].isLoop {
			continue
		}
		for _, l := range c.frames[i].labels {
			if l == n.Label {
				return c.frames[i]
			}
		}
	}
	c.failf("undefined label")
	return nil
}

func (c *Compiler) compileBreak(n *ast.SBreak) {
	frame := c.findBreakTarget(n)
	c.discardPendings(frame.pendingDepth)
	c.unwindRegions(frame.regionDepth)
	c.popScopesTo(frame.scopeDepth)
	pc := c.cb.emit(OpJump, 0, 0)
	frame.breaks = append(frame.breaks, pc)
}

func (c *Compiler) compileContinue(n *ast.SContinue) {
	frame := c.findContinueTarget(n)
	c.discardPendings(frame.pendingDepth)
	c.unwindRegions(frame.regionDepth)
	c.popScopesTo(frame.scopeDepth)
	pc := c.cb.emit(OpJump, 0, 0)
	frame.continues = append(frame.continues, pc)
}

// popScopesTo emits the OpExitScope run a break/continue needs to unwind
// the block/with environments between its own position and the target
// construct's baseline.
func (c *Compiler) popScopesTo(target int) {
	for i := c.scopeDepth; i > target; i-- {
		c.cb.emit(OpExitScope, 0, 0)
	}
}

// discardPendings drops the pending completion of every shared finally
// block between here and the break/continue target: the jump dominates
// whatever completion those blocks were entered with.
func (c *Compiler) discardPendings(targetDepth int) {
	for i := c.sharedFinallyDepth; i > targetDepth; i-- {
		c.cb.emit(OpPopPending, 0, 0)
	}
}

func (c *Compiler) compileReturn(n *ast.SReturn) {
	if n.Value != nil {
		c.compileExpr(n.Value)
	} else {
		c.cb.emit(OpUndefined, 0, 0)
	}
	c.unwindRegions(0)
	c.cb.emit(OpReturn, 0, 0)
}

// compileTry lowers a try/catch/finally statement. A try with both a catch
// and a finally pushes two nested runtime handlers -- a finally-only outer
// one and a catch-only inner one -- so a throw inside the catch clause still
// reaches the finally, exactly the `try{try{B}catch{C}}finally{F}` nesting
// the ECMAScript evaluation semantics decompose into. The handler targets
// are also mirrored into CodeBlock.Handlers as descriptive metadata.
//
// Exceptional entry into the finally block pushes a "throw" pending
// completion (re-raised by OpEndFinally); the normal paths enter through
// OpEnterFinally, which pushes a "normal" one. Static exits -- break,
// continue, return -- never reach the shared block at all: unwindRegions
// inlines the clause at each exit site.
func (c *Compiler) compileTry(n *ast.STry) {
	hasCatch := n.Catch != nil
	hasFinally := n.Finally != nil
	start := c.cb.here()

	var outerPC, innerPC int32 = -1, -1
	if hasFinally {
		outerPC = c.cb.emit(OpEnterTry, 0, 0) // B patched to finallyPC below
	}
	if hasCatch {
		innerPC = c.cb.emit(OpEnterTry, 0, 0) // A patched to catchPC below
	}
	handlers := 0
	if hasCatch {
		handlers++
	}
	if hasFinally {
		handlers++
	}
	regionIdx := len(c.tryRegions)
	c.tryRegions = append(c.tryRegions, tryRegion{handlers: handlers, finallyBody: n.Finally, finallyScope: n.FinallyScope})

	bodyPrev := c.enterScope(n.TryScope)
	c.compileScopeBody(n.Body)
	c.exitScope(bodyPrev)
	if hasCatch {
		c.cb.emit(OpExitTry, 0, 0)
	}
	if hasFinally {
		c.cb.emit(OpExitTry, 0, 0)
	}
	bodyEnd := c.cb.here()
	jOverCatch := c.cb.emit(OpJump, 0, 0)

	var catchPC int32
	var catchDepth, catchSlot int32 = 0, -1
	if hasCatch {
		// The inner handler is consumed by the dispatch that got us here;
		// only the outer finally handler still protects the catch clause.
		c.tryRegions[regionIdx].handlers = handlers - 1
		catchPC = c.cb.here()
		catchPrev := c.enterScope(n.Catch.Scope)
		switch {
		case !n.Catch.HasBinding:
			c.cb.emit(OpPushCatchBinding, 0, -2)
		case n.Catch.Binding.Kind == ast.BindingIdentifier:
			catchDepth, catchSlot = c.resolve(n.Catch.Binding.Ref)
			c.cb.emit(OpPushCatchBinding, catchDepth, catchSlot)
		default:
			c.cb.emit(OpPushCatchBinding, 0, -1)
			c.compileDestructure(n.Catch.Binding, destructureLet)
		}
		c.compileScopeBody(n.Catch.Body)
		c.exitScope(catchPrev)
		if hasFinally {
			c.cb.emit(OpExitTry, 0, 0)
		}
	}
	c.tryRegions = c.tryRegions[:regionIdx]
	c.cb.patchA(jOverCatch, c.cb.here())

	var finallyPC int32
	if hasFinally {
		c.cb.emit(OpEnterFinally, 0, 0)
		finallyPC = c.cb.here()
		c.sharedFinallyDepth++
		finPrev := c.enterScope(n.FinallyScope)
		c.compileScopeBody(n.Finally)
		c.exitScope(finPrev)
		c.sharedFinallyDepth--
		c.cb.emit(OpEndFinally, 0, 0)
	}

	if innerPC >= 0 {
		c.cb.patchA(innerPC, catchPC)
	}
	if outerPC >= 0 {
		c.cb.patchB(outerPC, finallyPC)
	}
	c.cb.AddHandler(ExceptionHandler{
		Start: start, End: bodyEnd,
		CatchPC: catchPC, FinallyPC: finallyPC,
		CatchDepth: catchDepth, CatchSlot: catchSlot,
	})
}

func (c *Compiler) compileSwitch(n *ast.SSwitch, labels []intern.ID) {
	c.compileExpr(n.Test)
	prevScope := c.curScope
	if n.Scope != nil {
		prevScope = c.enterScope(n.Scope)
	}
	for _, cs := range n.Cases {
		c.hoistFunctions(cs.Body)
	}

	frame := c.pushBreakable(labels, false, true)
	// Each comparison pops the discriminant copy before jumping to its body,
	// so a body entered by match or by fallthrough sees an identical stack.
	caseJumps := make([]int32, len(n.Cases))
	defaultIndex := -1
	for i, cs := range n.Cases {
		caseJumps[i] = -1
		if cs.Test == nil {
			defaultIndex = i
			continue
		}
		c.cb.emit(OpDup, 0, 0)
		c.compileExpr(*cs.Test)
		c.cb.emit(OpStrictEq, 0, 0)
		jNext := c.cb.emit(OpJumpIfFalse, 0, 0)
		c.cb.emit(OpPop, 0, 0)
		caseJumps[i] = c.cb.emit(OpJump, 0, 0)
		c.cb.patchA(jNext, c.cb.here())
	}
	c.cb.emit(OpPop, 0, 0)
	jDefaultOrEnd := c.cb.emit(OpJump, 0, 0)

	bodyStarts := make([]int32, len(n.Cases))
	for i, cs := range n.Cases {
		bodyStarts[i] = c.cb.here()
		c.compileStmts(cs.Body)
	}
	endPC := c.cb.here()

	for i, pc := range caseJumps {
		if pc >= 0 {
			c.cb.patchA(pc, bodyStarts[i])
		}
	}
	if defaultIndex >= 0 {
		c.cb.patchA(jDefaultOrEnd, bodyStarts[defaultIndex])
	} else {
		c.cb.patchA(jDefaultOrEnd, endPC)
	}
	c.patchJumps(frame.breaks, endPC)
	c.popBreakable()

	if n.Scope != nil {
		c.exitScope(prevScope)
	}
}
