package bytecode

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/value"
)

// emitClass compiles the superclass expression (if any) followed by the
// OpNewClass instruction, leaving the class constructor on the stack.
func (c *Compiler) emitClass(class *ast.Class) {
	if class.Super != nil {
		c.compileExpr(class.Super)
	}
	childIdx, classIdx := c.compileClass(class)
	c.cb.emit(OpNewClass, childIdx, classIdx)
}

// compileClass lowers a class body to a child constructor CodeBlock plus a
// class-element table, spec.md §4.2's "Class -- fields + methods" lowered
// the way esbuild's own js_parser keeps a class's member list as a flat
// slice of tagged entries (js_ast.EClass.Properties) rather than a richer
// nested structure. Instance field initializers run against `this` once
// per instantiation (after the constructor's own super() call for a
// derived class); static fields/blocks run once, against the class object
// itself, when OpNewClass executes. Returns the child CodeBlock index and
// class-element table index OpNewClass expects in its A and B operands --
// Children and Classes are independent parallel arrays (a function
// expression compiled earlier in the same enclosing body also appends to
// Children), so the two indices cannot be assumed equal.
func (c *Compiler) compileClass(class *ast.Class) (childIdx, classIdx int32) {
	info := ClassInfo{HasSuper: class.Super != nil, NumSlots: len(class.Scope.Symbols), NameSlot: -1}
	if class.HasName {
		info.Name = c.name(class.Name)
		if idx, ok := class.Scope.ByName[class.Name]; ok {
			info.NameSlot = class.Scope.Symbols[idx].SlotIndex
		}
	}
	var ctorFn *ast.Fn

	// Everything inside the body -- method bodies, computed keys, field
	// initializers, static blocks -- resolves through the class's own scope,
	// which the VM gives a matching runtime environment at OpNewClass.
	prevScope := c.curScope
	c.curScope = class.Scope
	defer func() { c.curScope = prevScope }()

	for _, el := range class.Elements {
		if el.Kind == ast.ElementMethod && !el.Static && !el.Private && !el.Computed && c.isConstructorKey(el.Key) {
			ctorFn = el.Value.(*ast.EFunction).Fn
			continue
		}
		if el.Private {
			priv := el.Key.(*ast.EPrivateIdentifier)
			info.PrivateNames = appendUnique(info.PrivateNames, c.name(priv.Name))
		}
		info.Elements = append(info.Elements, c.compileClassElement(el))
	}

	// Class bodies are always strict code (spec.md §4.2 "Strict mode ...
	// implicitly (modules, classes, ...)").
	var ctorBlock *CodeBlock
	if ctorFn != nil {
		ctorBlock = compileFunction(ctorFn, c.interner, true)
	} else {
		ctorBlock = c.synthesizeDefaultConstructor(class.Super != nil)
	}
	ctorBlock.IsDerivedConstructor = class.Super != nil
	if ctorBlock.Name == "<anonymous>" || ctorBlock.Name == "constructor" {
		ctorBlock.Name = info.Name
	}

	childIdx = c.cb.AddChild(ctorBlock)
	classIdx = c.cb.AddClass(info)
	return childIdx, classIdx
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}

// isConstructorKey reports whether a non-computed method key is the literal
// name "constructor" (a computed key, e.g. ["constructor"](){}, never names
// the actual constructor per spec.md).
func (c *Compiler) isConstructorKey(key ast.Expr) bool {
	id, ok := key.(*ast.EIdentifier)
	return ok && c.name(id.Name) == "constructor"
}

func (c *Compiler) compileClassElement(el ast.ClassElement) ClassElement {
	out := ClassElement{Static: el.Static, Private: el.Private}
	switch el.Kind {
	case ast.ElementMethod:
		out.Kind = ClassMethod
	case ast.ElementGet:
		out.Kind = ClassGetter
	case ast.ElementSet:
		out.Kind = ClassSetter
	case ast.ElementField:
		out.Kind = ClassField
	case ast.ElementStaticBlock:
		out.Kind = ClassStaticBlock
		out.Proto = c.compileKeyedBody(nil, el.Body)
		return out
	}

	c.assignElementKey(&out, el)

	switch el.Kind {
	case ast.ElementMethod, ast.ElementGet, ast.ElementSet:
		fn := el.Value.(*ast.EFunction).Fn
		out.Proto = compileFunction(fn, c.interner, true)
	case ast.ElementField:
		if el.Value != nil {
			out.FieldInit = c.compileKeyedBody(el.Value, nil)
		}
	}
	return out
}

func (c *Compiler) assignElementKey(out *ClassElement, el ast.ClassElement) {
	switch {
	case el.Private:
		priv := el.Key.(*ast.EPrivateIdentifier)
		out.PrivateIndex = c.cb.AddPrivateName(c.name(priv.Name))
	case el.Computed:
		out.Computed = true
		out.KeyBlock = c.compileKeyedBody(el.Key, nil)
	default:
		out.Key = c.staticElementKey(el.Key)
	}
}

func (c *Compiler) staticElementKey(key ast.Expr) value.Value {
	switch k := key.(type) {
	case *ast.EString:
		return value.String(jsstring.FromUTF16(k.Value))
	case *ast.EIdentifier:
		return value.String(jsstring.New(c.name(k.Name)))
	case *ast.ENumber:
		return value.Number(k.Value)
	default:
		c.failf("unsupported class element key")
		return value.Undefined
	}
}

// compileKeyedBody compiles a computed key expression, or a field
// initializer expression, or a static block's statements, into its own
// CodeBlock. It shares the class's own lexical scope as its notional outer
// scope (resolve() counts Scope.Parent hops from there exactly as it would
// for a method), so a reference to the class's own binding name resolves
// correctly; internal/vm runs it against that shared closure environment
// rather than allocating a fresh one, since it is not a user-observable
// function -- just the moment spec.md's class-element evaluation order
// happens to require its own instruction stream.
func (c *Compiler) compileKeyedBody(expr ast.Expr, body []ast.Stmt) *CodeBlock {
	cb := New("<class-element>")
	cb.Strict = true
	sub := &Compiler{cb: cb, interner: c.interner, curScope: c.curScope}
	if expr != nil {
		sub.compileExpr(expr)
	} else {
		sub.compileScopeBody(body)
		cb.emit(OpUndefined, 0, 0)
	}
	cb.emit(OpReturn, 0, 0)
	return cb
}

// synthesizeDefaultConstructor builds the implicit constructor spec.md
// gives a class with none of its own: "constructor(){}" for a base class,
// "constructor(...args){ super(...args); }" for a derived one.
func (c *Compiler) synthesizeDefaultConstructor(derived bool) *CodeBlock {
	cb := New("constructor")
	cb.Strict = true
	if !derived {
		cb.emit(OpUndefined, 0, 0)
		cb.emit(OpReturn, 0, 0)
		return cb
	}
	cb.HasRestParam = true
	cb.emit(OpArgsStart, 0, 0)
	cb.emit(OpGetRestArgs, 0, 0)
	cb.emit(OpSpreadArgsMarker, 0, 0)
	cb.emit(OpSuperCall, 0, 0)
	cb.emit(OpPop, 0, 0)
	cb.emit(OpUndefined, 0, 0)
	cb.emit(OpReturn, 0, 0)
	return cb
}
