package bytecode

import (
	"strconv"

	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/bigint"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/value"
)

// compileExpr emits code that leaves exactly one value on the stack, the
// same invariant esbuild's printer keeps for its own expression visitor
// (every Expr produces one printed fragment).
func (c *Compiler) compileExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.ENumber:
		c.cb.emit(OpConst, c.cb.AddConst(value.Number(n.Value)), 0)
	case *ast.EBigInt:
		big, _ := bigint.Parse(n.Text, 0)
		c.cb.emit(OpConst, c.cb.AddConst(value.BigInt(big)), 0)
	case *ast.EString:
		c.cb.emit(OpConst, c.constUnits(n.Value, ""), 0)
	case *ast.ETemplate:
		c.compileTemplate(n)
	case *ast.EBoolean:
		if n.Value {
			c.cb.emit(OpTrue, 0, 0)
		} else {
			c.cb.emit(OpFalse, 0, 0)
		}
	case *ast.ENull:
		c.cb.emit(OpNull, 0, 0)
	case *ast.EUndefined:
		c.cb.emit(OpUndefined, 0, 0)
	case *ast.EThis:
		c.cb.emit(OpThis, 0, 0)
	case *ast.ESuper:
		c.cb.emit(OpThis, 0, 0) // bare `super` only ever appears as a call/member target, handled by the caller
	case *ast.ERegExp:
		c.cb.emit(OpConst, c.constString(n.Pattern), 0)
		c.cb.emit(OpConst, c.constString(n.Flags), 0)
		c.cb.emit(OpRegExp, 0, 0)
	case *ast.EIdentifier:
		c.compileIdentifier(n)
	case *ast.EPrivateIdentifier:
		c.cb.emit(OpGetPrivate, c.cb.AddPrivateName(c.name(n.Name)), 0)
	case *ast.EArray:
		c.compileArrayLiteral(n)
	case *ast.EObject:
		c.compileObjectLiteral(n)
	case *ast.EFunction:
		c.compileFunctionExpr(n.Fn)
	case *ast.EArrow:
		c.compileFunctionExpr(n.Fn)
	case *ast.EClass:
		c.emitClass(n.Class)
	case *ast.EUnary:
		c.compileUnary(n)
	case *ast.EUpdate:
		c.compileUpdate(n)
	case *ast.EBinary:
		c.compileBinary(n)
	case *ast.EAssign:
		c.compileAssign(n)
	case *ast.EConditional:
		c.compileConditional(n)
	case *ast.EDot:
		c.compileDot(n)
	case *ast.EIndex:
		c.compileIndex(n)
	case *ast.EPrivateIn:
		c.compileExpr(n.Object)
		c.cb.emit(OpHasPrivate, c.cb.AddPrivateName(c.name(n.Name)), 0)
	case *ast.ECall:
		c.compileCall(n)
	case *ast.ESequence:
		for i, sub := range n.Exprs {
			if i > 0 {
				c.cb.emit(OpPop, 0, 0)
			}
			c.compileExpr(sub)
		}
	case *ast.EYield:
		c.compileYield(n)
	case *ast.EAwait:
		c.compileExpr(n.Value)
		c.cb.emit(OpAwait, 0, 0)
	case *ast.ENewTarget:
		c.cb.emit(OpNewTarget, 0, 0)
	case *ast.EImportMeta:
		c.cb.emit(OpUndefined, 0, 0)
	default:
		c.failf("unhandled expression form")
	}
}

func (c *Compiler) constUnits(units []uint16, fallback string) int32 {
	if units != nil {
		return c.cb.AddConst(value.String(jsstring.FromUTF16(units)))
	}
	return c.constString(fallback)
}

func (c *Compiler) compileTemplate(n *ast.ETemplate) {
	if n.Tag != nil {
		c.compileTaggedTemplate(n)
		return
	}
	c.cb.emit(OpConst, c.constUnits(n.HeadCooked, n.HeadRaw), 0)
	for _, part := range n.Parts {
		c.compileExpr(part.Value)
		c.cb.emit(OpToString, 0, 0)
		c.cb.emit(OpAdd, 0, 0)
		c.cb.emit(OpConst, c.constUnits(part.Cooked, part.Raw), 0)
		c.cb.emit(OpAdd, 0, 0)
	}
}

// compileTaggedTemplate builds the strings array (with a `.raw` sibling) a
// tagged template passes as its first argument, then the substitutions as
// the remaining arguments.
func (c *Compiler) compileTaggedTemplate(n *ast.ETemplate) {
	c.compileCallee(n.Tag)
	c.cb.emit(OpArgsStart, 0, 0)
	c.cb.emit(OpNewArray, 0, 0)
	c.cb.emit(OpConst, c.constUnits(n.HeadCooked, n.HeadRaw), 0)
	c.cb.emit(OpArrayPushElem, 0, 0)
	for _, part := range n.Parts {
		c.cb.emit(OpConst, c.constUnits(part.Cooked, part.Raw), 0)
		c.cb.emit(OpArrayPushElem, 0, 0)
	}
	c.cb.emit(OpDup, 0, 0)
	c.cb.emit(OpNewArray, 0, 0)
	c.cb.emit(OpConst, c.constString(n.HeadRaw), 0)
	c.cb.emit(OpArrayPushElem, 0, 0)
	for _, part := range n.Parts {
		c.cb.emit(OpConst, c.constString(part.Raw), 0)
		c.cb.emit(OpArrayPushElem, 0, 0)
	}
	c.cb.emit(OpSetProp, c.constString("raw"), 0)
	c.cb.emit(OpPop, 0, 0)
	for _, part := range n.Parts {
		c.compileExpr(part.Value)
	}
	c.cb.emit(OpCall, 0, 0)
}

func (c *Compiler) compileIdentifier(n *ast.EIdentifier) {
	if depth, slot, ok := c.resolveName(n.Ref, n.Name); ok {
		c.cb.emit(OpGetLocal, depth, slot)
		return
	}
	c.cb.emit(OpGetVar, c.constString(c.name(n.Name)), 0)
}

func (c *Compiler) compileArrayLiteral(n *ast.EArray) {
	c.cb.emit(OpNewArray, 0, 0)
	for _, item := range n.Items {
		if item == nil {
			c.cb.emit(OpArrayHole, 0, 0)
			continue
		}
		if sp, ok := item.(*ast.ESpread); ok {
			c.compileExpr(sp.Value)
			c.cb.emit(OpArraySpreadElem, 0, 0)
			continue
		}
		c.compileExpr(item)
		c.cb.emit(OpArrayPushElem, 0, 0)
	}
}

func (c *Compiler) compileObjectLiteral(n *ast.EObject) {
	c.cb.emit(OpNewObject, 0, 0)
	for _, p := range n.Properties {
		switch p.Kind {
		case ast.PropertySpread:
			c.compileExpr(p.Value)
			c.cb.emit(OpObjectSpreadProp, 0, 0)
		case ast.PropertyGet, ast.PropertySet:
			computed := c.compilePropKey(p.Key, p.Computed)
			fn := p.Value.(*ast.EFunction)
			c.compileFunctionExpr(fn.Fn)
			if p.Kind == ast.PropertyGet {
				c.cb.emit(OpObjectDefineGetter, boolInt(computed), 0)
			} else {
				c.cb.emit(OpObjectDefineSetter, boolInt(computed), 0)
			}
		default:
			computed := c.compilePropKey(p.Key, p.Computed)
			c.compileExpr(p.Value)
			c.cb.emit(OpObjectDefineProp, boolInt(computed), 0)
		}
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// compilePropKey emits a property key: a non-computed static key is pushed
// as a constant (reported as non-computed so the defining opcode can still
// read it off the stack uniformly); a computed key is evaluated. Returns
// whether the key ended up needing runtime evaluation.
func (c *Compiler) compilePropKey(key ast.Expr, computed bool) bool {
	if computed {
		c.compileExpr(key)
		return true
	}
	switch k := key.(type) {
	case *ast.EString:
		c.cb.emit(OpConst, c.constUnits(k.Value, ""), 0)
	case *ast.ENumber:
		c.cb.emit(OpConst, c.cb.AddConst(value.Number(k.Value)), 0)
	case *ast.EIdentifier:
		c.cb.emit(OpConst, c.constString(c.name(k.Name)), 0)
	default:
		c.compileExpr(key)
		return true
	}
	return false
}

func (c *Compiler) compileFunctionExpr(fn *ast.Fn) {
	child := compileFunction(fn, c.interner, c.cb.Strict)
	idx := c.cb.AddChild(child)
	c.cb.emit(OpNewFunction, idx, 0)
}

func (c *Compiler) compileUnary(n *ast.EUnary) {
	if n.Op == ast.UnDelete {
		c.compileDelete(n.Value)
		return
	}
	if n.Op == ast.UnTypeof {
		if id, ok := n.Value.(*ast.EIdentifier); ok {
			if _, _, resolved := c.resolveName(id.Ref, id.Name); !resolved {
				c.cb.emit(OpTypeofVar, c.constString(c.name(id.Name)), 0)
				return
			}
		}
	}
	c.compileExpr(n.Value)
	switch n.Op {
	case ast.UnPos:
		c.cb.emit(OpPos, 0, 0)
	case ast.UnNeg:
		c.cb.emit(OpNeg, 0, 0)
	case ast.UnNot:
		c.cb.emit(OpNot, 0, 0)
	case ast.UnBitNot:
		c.cb.emit(OpBitNot, 0, 0)
	case ast.UnTypeof:
		c.cb.emit(OpTypeof, 0, 0)
	case ast.UnVoid:
		c.cb.emit(OpPop, 0, 0)
		c.cb.emit(OpUndefined, 0, 0)
	}
}

func (c *Compiler) compileDelete(target ast.Expr) {
	switch t := target.(type) {
	case *ast.EDot:
		c.compileExpr(t.Target)
		c.cb.emit(OpDeleteProp, c.constString(c.name(t.Name)), 0)
	case *ast.EIndex:
		c.compileExpr(t.Target)
		c.compileExpr(t.Index)
		c.cb.emit(OpDeletePropComputed, 0, 0)
	default:
		c.compileExpr(target)
		c.cb.emit(OpPop, 0, 0)
		c.cb.emit(OpTrue, 0, 0)
	}
}

// compileUpdate emits ++/--. Identifiers (local or dynamic) use the
// generic ToNumeric/Add-or-Sub-by-one pattern since no receiver needs to be
// preserved; member expressions use the atomic UpdateProp opcodes since the
// receiver (and key) must be evaluated exactly once.
func (c *Compiler) compileUpdate(n *ast.EUpdate) {
	flags := updateFlags(n)
	switch t := n.Value.(type) {
	case *ast.EIdentifier:
		if depth, slot, ok := c.resolveName(t.Ref, t.Name); ok {
			c.cb.emit(OpGetLocal, depth, slot)
			c.emitNumericStep(n, func() { c.cb.emit(OpSetLocal, depth, slot) })
			return
		}
		nameIdx := c.constString(c.name(t.Name))
		c.cb.emit(OpGetVar, nameIdx, 0)
		c.emitNumericStep(n, func() { c.cb.emit(OpSetVar, nameIdx, 0) })
	case *ast.EDot:
		if t.Private {
			c.compileExpr(t.Target)
			c.cb.emit(OpUpdatePrivate, c.cb.AddPrivateName(c.name(t.Name)), flags)
			return
		}
		c.compileExpr(t.Target)
		c.cb.emit(OpUpdateProp, c.constString(c.name(t.Name)), flags)
	case *ast.EIndex:
		c.compileExpr(t.Target)
		c.compileExpr(t.Index)
		c.cb.emit(OpUpdatePropComputed, flags, 0)
	default:
		c.failf("invalid increment/decrement target")
	}
}

func updateFlags(n *ast.EUpdate) int32 {
	var f int32
	if n.Prefix {
		f |= 1
	}
	if n.Op == ast.UpdateDecrement {
		f |= 2
	}
	return f
}

// emitNumericStep consumes the current value on TOS (already fetched),
// converts it, computes the stepped value, stores via store, and leaves
// either the old or new numeric value on the stack depending on n.Prefix.
func (c *Compiler) emitNumericStep(n *ast.EUpdate, store func()) {
	c.cb.emit(OpToNumeric, 0, 0)
	c.cb.emit(OpDup, 0, 0)
	c.cb.emit(OpConst, c.cb.AddConst(value.Int32(1)), 0)
	if n.Op == ast.UpdateIncrement {
		c.cb.emit(OpAdd, 0, 0)
	} else {
		c.cb.emit(OpSub, 0, 0)
	}
	store() // pops new, stores, pushes new back: stack is [old, new]
	if n.Prefix {
		c.cb.emit(OpSwap, 0, 0)
		c.cb.emit(OpPop, 0, 0)
	} else {
		c.cb.emit(OpPop, 0, 0)
	}
}

func (c *Compiler) compileBinary(n *ast.EBinary) {
	switch n.Op {
	case ast.BinLogicalAnd:
		c.compileExpr(n.Left)
		c.cb.emit(OpDup, 0, 0)
		skip := c.cb.emit(OpJumpIfFalse, 0, 0)
		c.cb.emit(OpPop, 0, 0)
		c.compileExpr(n.Right)
		c.cb.patchA(skip, c.cb.here())
		return
	case ast.BinLogicalOr:
		c.compileExpr(n.Left)
		c.cb.emit(OpDup, 0, 0)
		skip := c.cb.emit(OpJumpIfTrue, 0, 0)
		c.cb.emit(OpPop, 0, 0)
		c.compileExpr(n.Right)
		c.cb.patchA(skip, c.cb.here())
		return
	case ast.BinNullishCoalescing:
		c.compileExpr(n.Left)
		c.cb.emit(OpDup, 0, 0)
		skip := c.cb.emit(OpJumpIfNotNullish, 0, 0)
		c.cb.emit(OpPop, 0, 0)
		c.compileExpr(n.Right)
		c.cb.patchA(skip, c.cb.here())
		return
	case ast.BinComma:
		c.compileExpr(n.Left)
		c.cb.emit(OpPop, 0, 0)
		c.compileExpr(n.Right)
		return
	case ast.BinIn:
		if priv, ok := n.Left.(*ast.EPrivateIdentifier); ok {
			c.compileExpr(n.Right)
			c.cb.emit(OpHasPrivate, c.cb.AddPrivateName(c.name(priv.Name)), 0)
			return
		}
	}
	c.compileExpr(n.Left)
	c.compileExpr(n.Right)
	c.cb.emit(binOpcode(n.Op), 0, 0)
}

func binOpcode(op ast.BinOp) Opcode {
	switch op {
	case ast.BinAdd:
		return OpAdd
	case ast.BinSub:
		return OpSub
	case ast.BinMul:
		return OpMul
	case ast.BinDiv:
		return OpDiv
	case ast.BinMod:
		return OpMod
	case ast.BinPow:
		return OpPow
	case ast.BinShl:
		return OpShl
	case ast.BinShr:
		return OpShr
	case ast.BinUShr:
		return OpUShr
	case ast.BinBitAnd:
		return OpBitAnd
	case ast.BinBitOr:
		return OpBitOr
	case ast.BinBitXor:
		return OpBitXor
	case ast.BinLt:
		return OpLt
	case ast.BinLe:
		return OpLe
	case ast.BinGt:
		return OpGt
	case ast.BinGe:
		return OpGe
	case ast.BinEq:
		return OpEq
	case ast.BinNe:
		return OpNotEq
	case ast.BinStrictEq:
		return OpStrictEq
	case ast.BinStrictNe:
		return OpStrictNotEq
	case ast.BinIn:
		return OpIn
	case ast.BinInstanceof:
		return OpInstanceOf
	}
	panic("bytecode: unhandled binary operator") // unreachable: every ast.BinOp is mapped above
}

func (c *Compiler) compileAssign(n *ast.EAssign) {
	if n.Op != ast.AssignEq {
		c.compileCompoundAssign(n)
		return
	}
	if isPatternTarget(n.Target) {
		c.compileExpr(n.Value)
		c.cb.emit(OpDup, 0, 0)
		c.compileDestructureAssign(exprToBinding(n.Target))
		return
	}
	switch t := n.Target.(type) {
	case *ast.EIdentifier:
		c.compileExpr(n.Value)
		c.compileIdentifierStore(t)
	case *ast.EDot:
		if t.Private {
			c.compileExpr(t.Target)
			c.compileExpr(n.Value)
			c.cb.emit(OpSetPrivate, c.cb.AddPrivateName(c.name(t.Name)), 0)
			return
		}
		c.compileExpr(t.Target)
		c.compileExpr(n.Value)
		c.cb.emit(OpSetProp, c.constString(c.name(t.Name)), 0)
	case *ast.EIndex:
		c.compileExpr(t.Target)
		c.compileExpr(t.Index)
		c.compileExpr(n.Value)
		c.cb.emit(OpSetPropComputed, 0, 0)
	default:
		c.failf("invalid assignment target")
	}
}

func (c *Compiler) compileIdentifierStore(t *ast.EIdentifier) {
	if depth, slot, ok := c.resolveName(t.Ref, t.Name); ok {
		c.cb.emit(OpSetLocal, depth, slot)
		return
	}
	c.cb.emit(OpSetVar, c.constString(c.name(t.Name)), 0)
}

func isPatternTarget(e ast.Expr) bool {
	switch e.(type) {
	case *ast.EArray, *ast.EObject:
		return true
	}
	return false
}

// exprToBinding reinterprets an array/object literal used as a destructuring
// assignment target as a Binding; the parser keeps these as plain
// expressions until assignment time since the grammar is ambiguous with a
// parenthesized expression until the following "=" is seen.
func exprToBinding(e ast.Expr) ast.Binding {
	switch n := e.(type) {
	case *ast.EArray:
		b := ast.Binding{Kind: ast.BindingArray}
		for _, item := range n.Items {
			if item == nil {
				b.Items = append(b.Items, ast.BindingItem{IsHole: true})
				continue
			}
			if sp, ok := item.(*ast.ESpread); ok {
				rest := exprToBinding(sp.Value)
				b.Rest = &rest
				continue
			}
			if assign, ok := item.(*ast.EAssign); ok && assign.Op == ast.AssignEq {
				b.Items = append(b.Items, ast.BindingItem{Value: exprToBinding(assign.Target), Default: assign.Value})
				continue
			}
			b.Items = append(b.Items, ast.BindingItem{Value: exprToBinding(item)})
		}
		return b
	case *ast.EObject:
		b := ast.Binding{Kind: ast.BindingObject}
		for _, p := range n.Properties {
			if p.Kind == ast.PropertySpread {
				rest := exprToBinding(p.Value)
				b.Rest = &rest
				continue
			}
			val := p.Value
			var def ast.Expr
			if assign, ok := val.(*ast.EAssign); ok && assign.Op == ast.AssignEq {
				val, def = assign.Target, assign.Value
			}
			b.Items = append(b.Items, ast.BindingItem{Key: p.Key, Computed: p.Computed, Value: exprToBinding(val), Default: def})
		}
		return b
	case *ast.EIdentifier:
		return ast.Binding{Kind: ast.BindingIdentifier, Name: n.Name, Ref: n.Ref}
	default:
		return ast.Binding{Kind: ast.BindingIdentifier}
	}
}

// destructureMode distinguishes a destructuring *assignment* (targets are
// existing bindings or member expressions) from a destructuring
// *declaration*, whose identifier leaves initialize a fresh slot -- using
// OpSetLocal there would trip the slot's own TDZ sentinel.
type destructureMode uint8

const (
	destructureAssign destructureMode = iota
	destructureLet
	destructureConst
)

func declModeFor(kind ast.DeclKind) destructureMode {
	if kind == ast.DeclConst {
		return destructureConst
	}
	return destructureLet
}

// compileDestructureAssign consumes the value on top of the stack,
// destructuring it into b's existing binding targets.
func (c *Compiler) compileDestructureAssign(b ast.Binding) {
	c.compileDestructure(b, destructureAssign)
}

func (c *Compiler) compileDestructure(b ast.Binding, mode destructureMode) {
	switch b.Kind {
	case ast.BindingIdentifier:
		if depth, slot, ok := c.resolveName(b.Ref, b.Name); ok {
			switch mode {
			case destructureAssign:
				c.cb.emit(OpSetLocal, depth, slot)
				c.cb.emit(OpPop, 0, 0)
			case destructureLet:
				c.cb.emit(OpInitLocal, depth, slot)
			case destructureConst:
				c.cb.emit(OpInitConst, depth, slot)
			}
			return
		}
		c.cb.emit(OpSetVar, c.constString(c.name(b.Name)), 0)
		c.cb.emit(OpPop, 0, 0)
	case ast.BindingArray:
		c.cb.emit(OpGetIterator, 0, 0)
		for _, item := range b.Items {
			c.cb.emit(OpIterNext, 0, 0)
			if item.IsHole {
				c.cb.emit(OpPop, 0, 0)
				continue
			}
			if item.Default != nil {
				jUndef := c.cb.emit(OpJumpIfUndefined, 0, 0)
				jDone := c.cb.emit(OpJump, 0, 0)
				c.cb.patchA(jUndef, c.cb.here())
				c.compileExpr(item.Default)
				c.cb.patchA(jDone, c.cb.here())
			}
			c.compileDestructure(item.Value, mode)
		}
		if b.Rest != nil {
			c.cb.emit(OpIterRestArray, 0, 0)
			c.compileDestructure(*b.Rest, mode)
		}
		c.cb.emit(OpIterClose, 0, 0)
	case ast.BindingObject:
		excluded := make([]string, 0, len(b.Items))
		for _, item := range b.Items {
			c.cb.emit(OpDup, 0, 0)
			if item.Computed {
				c.compileExpr(item.Key)
				c.cb.emit(OpGetPropComputed, 0, 0)
			} else {
				keyIdx, keyName := c.staticPropKeyConst(item.Key)
				excluded = append(excluded, keyName)
				c.cb.emit(OpGetProp, keyIdx, c.cb.AddICSlot())
			}
			if item.Default != nil {
				jUndef := c.cb.emit(OpJumpIfUndefined, 0, 0)
				jDone := c.cb.emit(OpJump, 0, 0)
				c.cb.patchA(jUndef, c.cb.here())
				c.compileExpr(item.Default)
				c.cb.patchA(jDone, c.cb.here())
			}
			c.compileDestructure(item.Value, mode)
		}
		if b.Rest != nil {
			c.cb.emit(OpObjectRestExcluding, c.cb.AddExcludeSet(excluded), 0)
			c.compileDestructure(*b.Rest, mode)
		} else {
			c.cb.emit(OpPop, 0, 0)
		}
	}
}

// staticPropKeyConst returns the constant index for a non-computed
// destructuring key plus its plain-text form for rest-pattern exclusion.
func (c *Compiler) staticPropKeyConst(key ast.Expr) (int32, string) {
	switch k := key.(type) {
	case *ast.EString:
		return c.constUnits(k.Value, ""), jsstring.FromUTF16(k.Value).GoString()
	case *ast.EIdentifier:
		text := c.name(k.Name)
		return c.constString(text), text
	case *ast.ENumber:
		text := strconv.FormatFloat(k.Value, 'f', -1, 64)
		return c.constString(text), text
	default:
		c.failf("unsupported destructuring key")
		return 0, ""
	}
}

func (c *Compiler) compileCompoundAssign(n *ast.EAssign) {
	logical := n.Op == ast.AssignLogicalAnd || n.Op == ast.AssignLogicalOr || n.Op == ast.AssignNullishCoalescing
	switch t := n.Target.(type) {
	case *ast.EIdentifier:
		c.readIdentifier(t)
		if logical {
			c.compileLogicalAssignRHS(n, func() { c.compileIdentifierStore(t) })
			return
		}
		c.compileExpr(n.Value)
		c.cb.emit(compoundOpcode(n.Op), 0, 0)
		c.compileIdentifierStore(t)
	case *ast.EDot:
		c.compileExpr(t.Target)
		c.cb.emit(OpDup, 0, 0)
		nameIdx := c.constString(c.name(t.Name))
		c.cb.emit(OpGetProp, nameIdx, c.cb.AddICSlot())
		if logical {
			c.compileLogicalAssignRHS(n, func() { c.cb.emit(OpSetProp, nameIdx, 0) })
			return
		}
		c.compileExpr(n.Value)
		c.cb.emit(compoundOpcode(n.Op), 0, 0)
		c.cb.emit(OpSetProp, nameIdx, 0)
	case *ast.EIndex:
		c.compileExpr(t.Target)
		c.compileExpr(t.Index)
		c.cb.emit(OpDup2, 0, 0)
		c.cb.emit(OpGetPropComputed, 0, 0)
		if logical {
			c.compileLogicalAssignRHS(n, func() { c.cb.emit(OpSetPropComputed, 0, 0) })
			return
		}
		c.compileExpr(n.Value)
		c.cb.emit(compoundOpcode(n.Op), 0, 0)
		c.cb.emit(OpSetPropComputed, 0, 0)
	}
}

func (c *Compiler) readIdentifier(t *ast.EIdentifier) {
	if depth, slot, ok := c.resolveName(t.Ref, t.Name); ok {
		c.cb.emit(OpGetLocal, depth, slot)
		return
	}
	c.cb.emit(OpGetVar, c.constString(c.name(t.Name)), 0)
}

// compileLogicalAssignRHS implements &&=/||=/??=, which only evaluate and
// store the right-hand side when the short-circuit test passes, leaving the
// current value as the expression's result otherwise. store consumes the new
// RHS (plus, for a member target, the receiver and key beneath it) and pushes
// the stored value back; on the short-circuit path the receiver and key are
// dropped here so only the current value remains.
func (c *Compiler) compileLogicalAssignRHS(n *ast.EAssign, store func()) {
	receivers := 0
	switch n.Target.(type) {
	case *ast.EDot:
		receivers = 1
	case *ast.EIndex:
		receivers = 2
	}
	var skip int32
	switch n.Op {
	case ast.AssignLogicalAnd:
		c.cb.emit(OpDup, 0, 0)
		skip = c.cb.emit(OpJumpIfFalse, 0, 0)
		c.cb.emit(OpPop, 0, 0)
	case ast.AssignLogicalOr:
		c.cb.emit(OpDup, 0, 0)
		skip = c.cb.emit(OpJumpIfTrue, 0, 0)
		c.cb.emit(OpPop, 0, 0)
	case ast.AssignNullishCoalescing:
		c.cb.emit(OpDup, 0, 0)
		skip = c.cb.emit(OpJumpIfNotNullish, 0, 0)
		c.cb.emit(OpPop, 0, 0)
	}
	c.compileExpr(n.Value)
	store()
	jEnd := c.cb.emit(OpJump, 0, 0)
	c.cb.patchA(skip, c.cb.here())
	for i := 0; i < receivers; i++ {
		c.cb.emit(OpSwap, 0, 0)
		c.cb.emit(OpPop, 0, 0)
	}
	c.cb.patchA(jEnd, c.cb.here())
}

func compoundOpcode(op ast.AssignOp) Opcode {
	switch op {
	case ast.AssignAdd:
		return OpAdd
	case ast.AssignSub:
		return OpSub
	case ast.AssignMul:
		return OpMul
	case ast.AssignDiv:
		return OpDiv
	case ast.AssignMod:
		return OpMod
	case ast.AssignPow:
		return OpPow
	case ast.AssignShl:
		return OpShl
	case ast.AssignShr:
		return OpShr
	case ast.AssignUShr:
		return OpUShr
	case ast.AssignBitAnd:
		return OpBitAnd
	case ast.AssignBitOr:
		return OpBitOr
	case ast.AssignBitXor:
		return OpBitXor
	}
	panic("bytecode: unhandled compound-assignment operator") // unreachable: every ast.AssignOp is mapped above
}

func (c *Compiler) compileConditional(n *ast.EConditional) {
	c.compileExpr(n.Test)
	jFalse := c.cb.emit(OpJumpIfFalse, 0, 0)
	c.compileExpr(n.Yes)
	jEnd := c.cb.emit(OpJump, 0, 0)
	c.cb.patchA(jFalse, c.cb.here())
	c.compileExpr(n.No)
	c.cb.patchA(jEnd, c.cb.here())
}

func (c *Compiler) compileDot(n *ast.EDot) {
	if n.Private {
		c.compileExpr(n.Target)
		c.cb.emit(OpGetPrivate, c.cb.AddPrivateName(c.name(n.Name)), 0)
		return
	}
	if _, ok := n.Target.(*ast.ESuper); ok {
		c.cb.emit(OpThis, 0, 0)
		c.cb.emit(OpSuperProp, c.constString(c.name(n.Name)), 0)
		return
	}
	c.compileExpr(n.Target)
	if n.OptionalChain {
		c.cb.emit(OpDup, 0, 0)
		jNullish := c.cb.emit(OpJumpIfNullish, 0, 0)
		c.cb.emit(OpGetProp, c.constString(c.name(n.Name)), c.cb.AddICSlot())
		jEnd := c.cb.emit(OpJump, 0, 0)
		c.cb.patchA(jNullish, c.cb.here())
		c.cb.emit(OpPop, 0, 0)
		c.cb.emit(OpUndefined, 0, 0)
		c.cb.patchA(jEnd, c.cb.here())
		return
	}
	c.cb.emit(OpGetProp, c.constString(c.name(n.Name)), c.cb.AddICSlot())
}

func (c *Compiler) compileIndex(n *ast.EIndex) {
	if _, ok := n.Target.(*ast.ESuper); ok {
		c.cb.emit(OpThis, 0, 0)
		c.compileExpr(n.Index)
		c.cb.emit(OpSuperPropComputed, 0, 0)
		return
	}
	c.compileExpr(n.Target)
	if n.OptionalChain {
		c.cb.emit(OpDup, 0, 0)
		jNullish := c.cb.emit(OpJumpIfNullish, 0, 0)
		c.compileExpr(n.Index)
		c.cb.emit(OpGetPropComputed, 0, 0)
		jEnd := c.cb.emit(OpJump, 0, 0)
		c.cb.patchA(jNullish, c.cb.here())
		c.cb.emit(OpPop, 0, 0)
		c.cb.emit(OpUndefined, 0, 0)
		c.cb.patchA(jEnd, c.cb.here())
		return
	}
	c.compileExpr(n.Index)
	c.cb.emit(OpGetPropComputed, 0, 0)
}

// compileCallee pushes a call's callee followed by its `this` value, the
// [callee, this] layout OpCall/OpNew/OpSuperCall expect beneath their
// argument list.
func (c *Compiler) compileCallee(target ast.Expr) {
	switch t := target.(type) {
	case *ast.EDot:
		if _, ok := t.Target.(*ast.ESuper); ok {
			c.cb.emit(OpThis, 0, 0)
			c.cb.emit(OpSuperProp, c.constString(c.name(t.Name)), 0)
			c.cb.emit(OpThis, 0, 0)
			return
		}
		c.compileExpr(t.Target)
		c.cb.emit(OpDup, 0, 0)
		if t.Private {
			c.cb.emit(OpGetPrivate, c.cb.AddPrivateName(c.name(t.Name)), 0)
		} else {
			c.cb.emit(OpGetProp, c.constString(c.name(t.Name)), c.cb.AddICSlot())
		}
		c.cb.emit(OpSwap, 0, 0)
	case *ast.EIndex:
		if _, ok := t.Target.(*ast.ESuper); ok {
			c.cb.emit(OpThis, 0, 0)
			c.compileExpr(t.Index)
			c.cb.emit(OpSuperPropComputed, 0, 0)
			c.cb.emit(OpThis, 0, 0)
			return
		}
		c.compileExpr(t.Target)
		c.cb.emit(OpDup, 0, 0)
		c.compileExpr(t.Index)
		c.cb.emit(OpGetPropComputed, 0, 0)
		c.cb.emit(OpSwap, 0, 0)
	default:
		c.compileExpr(target)
		c.cb.emit(OpUndefined, 0, 0)
	}
}

// compileCall handles ordinary calls, method calls, optional chains, super
// calls, and new expressions. Stack discipline: [callee, this, arg...]
// between a matching OpArgsStart and OpCall/OpNew/OpSuperCall.
func (c *Compiler) compileCall(n *ast.ECall) {
	if n.IsNew {
		c.compileExpr(n.Target)
		c.cb.emit(OpArgsStart, 0, 0)
		c.compileArgs(n.Args)
		c.cb.emit(OpNew, 0, 0)
		return
	}
	if _, ok := n.Target.(*ast.ESuper); ok {
		c.cb.emit(OpArgsStart, 0, 0)
		c.compileArgs(n.Args)
		c.cb.emit(OpSuperCall, 0, 0)
		return
	}
	if !n.OptionalChain && !chainHasOptional(n.Target) {
		c.compileCallee(n.Target)
		c.cb.emit(OpArgsStart, 0, 0)
		c.compileArgs(n.Args)
		c.cb.emit(OpCall, 0, 0)
		return
	}
	// An optional call/member anywhere in the chain short-circuits the
	// whole expression to undefined without evaluating the rest. The
	// nullish test applies to the callee, which sits beneath `this`.
	c.compileCallee(n.Target)
	c.cb.emit(OpSwap, 0, 0)
	c.cb.emit(OpDup, 0, 0)
	jNullish := c.cb.emit(OpJumpIfNullish, 0, 0)
	c.cb.emit(OpSwap, 0, 0)
	c.cb.emit(OpArgsStart, 0, 0)
	c.compileArgs(n.Args)
	c.cb.emit(OpCall, 0, 0)
	jEnd := c.cb.emit(OpJump, 0, 0)
	c.cb.patchA(jNullish, c.cb.here())
	c.cb.emit(OpPop, 0, 0)
	c.cb.emit(OpPop, 0, 0)
	c.cb.emit(OpUndefined, 0, 0)
	c.cb.patchA(jEnd, c.cb.here())
}

func chainHasOptional(e ast.Expr) bool {
	switch t := e.(type) {
	case *ast.EDot:
		return t.OptionalChain || chainHasOptional(t.Target)
	case *ast.EIndex:
		return t.OptionalChain || chainHasOptional(t.Target)
	case *ast.ECall:
		return t.OptionalChain || chainHasOptional(t.Target)
	}
	return false
}

// compileArgs pushes each argument; a spread argument is evaluated then
// immediately flattened in place by OpSpreadArgsMarker.
func (c *Compiler) compileArgs(args []ast.Expr) {
	for _, a := range args {
		if sp, ok := a.(*ast.ESpread); ok {
			c.compileExpr(sp.Value)
			c.cb.emit(OpSpreadArgsMarker, 0, 0)
			continue
		}
		c.compileExpr(a)
	}
}

// compileYield lowers both plain yield and yield* delegation. Delegation is
// lowered to an inline iteration loop over the operand's iterator, yielding
// each produced value outward; values sent back in via next() feed the
// enclosing generator, not the delegate.
func (c *Compiler) compileYield(n *ast.EYield) {
	if n.Value != nil {
		c.compileExpr(n.Value)
	} else {
		c.cb.emit(OpUndefined, 0, 0)
	}
	if !n.Delegate {
		c.cb.emit(OpYield, 0, 0)
		return
	}
	c.cb.emit(OpGetIterator, 0, 0)
	loopStart := c.cb.here()
	jExit := c.cb.emit(OpIterNextOrJump, 0, 0)
	c.cb.emit(OpYield, 0, 0)
	c.cb.emit(OpPop, 0, 0)
	c.cb.emit(OpJump, loopStart, 0)
	c.cb.patchA(jExit, c.cb.here())
	c.cb.emit(OpUndefined, 0, 0)
}
