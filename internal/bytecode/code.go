package bytecode

import (
	"github.com/BasixKOR/boa/internal/helpers"
	"github.com/BasixKOR/boa/internal/value"
)

// Instr is one fixed-width instruction: an opcode plus up to two int32
// operands. Every opcode in opcode.go documents what A/B mean for it; unused
// operands are left zero.
type Instr struct {
	Op   Opcode
	A, B int32
}

// ICSlot is one property-access site's inline cache (spec.md §4.3 "Each
// property-access opcode reserves a slot of the form {shape_id, slot_index,
// flags}"). The VM fills it on first execution and fast-paths later
// executions whose receiver still has the recorded shape; NotCachable marks
// sites that observed a dictionary-mode shape, an exotic receiver, or an
// accessor, which always take the ordinary path (spec.md §9: correctness
// never depends on the cache).
type ICSlot struct {
	ShapeID     uint64
	Slot        int32
	Valid       bool
	NotCachable bool
}

// ExceptionHandler covers the instruction range [Start, End) of the
// CodeBlock it belongs to. CatchPC and FinallyPC are 0 when absent (pc 0 is
// always the entry instruction of a CodeBlock, never a legal handler target,
// so 0 doubles as "none").
type ExceptionHandler struct {
	Start, End       int32
	CatchPC          int32
	FinallyPC        int32
	CatchDepth       int32 // environment depth (from the frame's entry env) holding the catch binding
	CatchSlot        int32 // -1 if the catch clause has no binding
}

// ClassElement is one compiled class element: a method/accessor/field
// initializer or a static block, spec.md §4.2's "Class -- fields + methods"
// lowered to run against `this` inside the constructor (instance fields) or
// against the class object itself (static fields/blocks).
type ClassElementKind uint8

const (
	ClassMethod ClassElementKind = iota
	ClassGetter
	ClassSetter
	ClassField
	ClassStaticBlock
)

type ClassElement struct {
	Kind      ClassElementKind
	Key       value.Value // string or symbol key; zero Value for private or computed (see below)
	Computed  bool
	KeyBlock  *CodeBlock // computed-key expression, run once at class-definition time; nil unless Computed
	Private   bool
	PrivateIndex int32 // index into CodeBlock.PrivateNames when Private
	Static    bool
	Proto     *CodeBlock // method/getter/setter/static-block body, nil for a field with no initializer
	FieldInit *CodeBlock // field initializer body (evaluated with `this` bound), nil if no initializer
}

// ClassInfo is the compiled form of one class body, indexed by OpNewClass's
// B operand. HasSuper tells the VM a superclass value sits on the stack
// beneath the instruction; PrivateNames lists every private name the body
// declares, which the VM turns into one Private environment covering the
// constructor and every method/initializer.
type ClassInfo struct {
	Name         string
	HasSuper     bool
	Elements     []ClassElement
	PrivateNames []string
	// NumSlots sizes the runtime environment the VM allocates for the class
	// body's own scope; NameSlot (-1 if anonymous) is where the class's
	// inner name binding lives in it.
	NumSlots int
	NameSlot int32
}

// CodeBlock is one compiled function or top-level program body (spec.md
// §4.3 "Bytecode -- a flat, fixed-width instruction array per function").
type CodeBlock struct {
	Name        string
	Code        []Instr
	Constants   []value.Value
	PrivateNames []string // descriptions, resolved to identity via environment.LookupPrivate at runtime
	Children    []*CodeBlock // nested function/method bodies, indexed by OpNewFunction/OpNewClass's A operand
	Classes     []ClassInfo
	ExcludeSets [][]string // named-key exclusion lists for OpObjectRestExcluding, one per rest-pattern site
	ICSlots     []ICSlot   // one per named property read site, indexed by OpGetProp's B operand

	NumSlots    int // this scope's declarative environment size
	ParamCount  int  // declared parameters, the rest parameter included
	HasRestParam bool
	Handlers    []ExceptionHandler

	// LocalNames names the function scope's own slots and ScopeNames the
	// slots of each nested block scope (indexed by OpEnterScope's B
	// operand), so the VM can label environment slots for the dynamic
	// name resolution poisoned scopes fall back to (spec.md §4.3).
	LocalNames []string
	ScopeNames [][]string

	// ArgumentsSlot is where the implicit `arguments` binding lives in the
	// function scope (-1 when shadowed or absent); MappedArguments selects
	// the parameter-aliasing form, with ParamSlots giving each positional
	// parameter's slot (spec.md §4.3 CreateMappedArgumentsObject).
	ArgumentsSlot    int32
	MappedArguments  bool
	ParamSlots       []int32

	Strict      bool
	IsArrow     bool
	IsGenerator bool
	IsAsync     bool
	IsMethod    bool
	IsDerivedConstructor bool // a class constructor with an `extends` clause -- `this` starts in TDZ until super() runs

	SourceStart, SourceEnd int32 // source span, for Function.prototype.toString
	Source      string
}

func New(name string) *CodeBlock {
	return &CodeBlock{Name: name}
}

// SetSourceRecursive attaches the original source text to this block and
// every nested function/class block, so Function.prototype.toString can
// slice each function's own span (SUPPLEMENTED FEATURES: source spans, not
// a re-printed AST).
func (c *CodeBlock) SetSourceRecursive(src string) {
	c.Source = src
	for _, child := range c.Children {
		child.SetSourceRecursive(src)
	}
	for _, info := range c.Classes {
		for _, el := range info.Elements {
			if el.KeyBlock != nil {
				el.KeyBlock.SetSourceRecursive(src)
			}
			if el.Proto != nil {
				el.Proto.SetSourceRecursive(src)
			}
			if el.FieldInit != nil {
				el.FieldInit.SetSourceRecursive(src)
			}
		}
	}
}

// AddConst appends v to the constant pool and returns its index. Entries
// are not deduplicated: adding an equal value twice yields two slots.
func (c *CodeBlock) AddConst(v value.Value) int32 {
	c.Constants = append(c.Constants, v)
	return int32(len(c.Constants) - 1)
}

func (c *CodeBlock) AddChild(child *CodeBlock) int32 {
	c.Children = append(c.Children, child)
	return int32(len(c.Children) - 1)
}

func (c *CodeBlock) AddClass(info ClassInfo) int32 {
	c.Classes = append(c.Classes, info)
	return int32(len(c.Classes) - 1)
}

// AddExcludeSet interns a rest-pattern exclusion list, reusing an identical
// earlier entry (the same object pattern destructured in a loop body emits
// one table entry, not one per compilation site).
func (c *CodeBlock) AddExcludeSet(keys []string) int32 {
	for i, existing := range c.ExcludeSets {
		if helpers.StringArraysEqual(existing, keys) {
			return int32(i)
		}
	}
	c.ExcludeSets = append(c.ExcludeSets, keys)
	return int32(len(c.ExcludeSets) - 1)
}

// AddHandler records a try region's catch/finally targets, descriptive
// metadata mirrored alongside the OpEnterTry/OpExitTry runtime handler
// stack the VM actually dispatches through (JVM-style exception tables are
// the alternative; this engine pushes/pops handler frames at runtime
// instead, since a stack-of-active-handlers falls out naturally from the
// same frame the value stack already lives on).
func (c *CodeBlock) AddHandler(h ExceptionHandler) {
	c.Handlers = append(c.Handlers, h)
}

// AddScopeNames interns one nested scope's slot-name list, indexed by
// OpEnterScope's B operand.
func (c *CodeBlock) AddScopeNames(names []string) int32 {
	for i, existing := range c.ScopeNames {
		if helpers.StringArraysEqual(existing, names) {
			return int32(i)
		}
	}
	c.ScopeNames = append(c.ScopeNames, names)
	return int32(len(c.ScopeNames) - 1)
}

// AddICSlot reserves a fresh inline-cache slot for one property read site.
func (c *CodeBlock) AddICSlot() int32 {
	c.ICSlots = append(c.ICSlots, ICSlot{})
	return int32(len(c.ICSlots) - 1)
}

func (c *CodeBlock) AddPrivateName(desc string) int32 {
	for i, d := range c.PrivateNames {
		if d == desc {
			return int32(i)
		}
	}
	c.PrivateNames = append(c.PrivateNames, desc)
	return int32(len(c.PrivateNames) - 1)
}

// emit appends an instruction and returns its pc, used by the compiler to
// patch forward jumps once a target address is known.
func (c *CodeBlock) emit(op Opcode, a, b int32) int32 {
	c.Code = append(c.Code, Instr{Op: op, A: a, B: b})
	return int32(len(c.Code) - 1)
}

func (c *CodeBlock) patchA(pc int32, a int32) { c.Code[pc].A = a }
func (c *CodeBlock) patchB(pc int32, b int32) { c.Code[pc].B = b }

func (c *CodeBlock) here() int32 { return int32(len(c.Code)) }
