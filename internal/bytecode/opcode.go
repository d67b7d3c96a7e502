// Package bytecode implements the compiled representation spec.md §4.3
// describes: a flat array of fixed-width instructions per function, a
// constant pool, and an exception handler table, produced from
// internal/ast by Compile/CompileFunction and consumed by internal/vm.
//
// Grounded on the opcode-as-flat-array-plus-jump-table idiom go-ethereum's
// core/vm documents for the EVM interpreter (an Opcode byte, a table of
// per-opcode operation structs, a flat []byte/[]Instr program counter loop)
// -- adapted here from a single-byte-no-operand ISA to one with two int32
// operands per instruction, since scope lowering (spec.md §4.3 "variables
// resolve at compile time to an (environment_depth, slot) pair") needs two
// operands for most local-variable opcodes.
package bytecode

// Opcode identifies one VM instruction.
type Opcode uint8

const (
	OpNop Opcode = iota

	// Stack / constants.
	OpConst // A: constant pool index
	OpUndefined
	OpNull
	OpTrue
	OpFalse
	OpPop
	OpDup
	OpDup2 // duplicates the top two stack items as a pair
	OpSwap

	// Declarative-environment slot access, resolved at compile time to an
	// (environment_depth, slot) pair (spec.md §4.3 "Scope lowering"). Set*
	// pops the value, stores it, and pushes it back (assignment is itself an
	// expression).
	OpGetLocal   // A: depth, B: slot
	OpSetLocal   // A: depth, B: slot
	OpInitLocal  // A: depth, B: slot -- clears TDZ, sets value from TOS, does not push back
	OpDeclareTDZ // A: depth, B: slot

	// Dynamic (unresolved-at-parse-time) name access: walks the environment
	// chain by name, falling back to the global object (spec.md §4.3 "Direct
	// eval or with poisons a scope ... dynamic name lookup").
	OpGetVar    // A: name constant index
	OpSetVar    // A: name constant index -- pops, stores, pushes back
	OpTypeofVar // non-throwing typeof of a possibly-unresolved name

	// Property access. Computed variants take the key off the stack; plain
	// variants take it from the constant pool. Set* pops value (and key/
	// receiver), writes, and pushes the value back.
	OpGetProp // A: name constant index, B: inline-cache slot index
	OpGetPropComputed
	OpSetProp
	OpSetPropComputed
	OpDeleteProp
	OpDeletePropComputed
	OpGetPrivate // A: private-name index
	OpSetPrivate
	OpHasPrivate // "#x in obj"

	// Atomic property increment/decrement, used for ++/-- on a member
	// expression since the receiver (and, for a computed key, the key) must
	// be evaluated exactly once (spec.md's member-update evaluation order).
	OpUpdateProp         // A: name constant index, B: flags (bit0 prefix, bit1 decrement)
	OpUpdatePropComputed // A: flags (bit0 prefix, bit1 decrement) -- pops key then target
	OpUpdatePrivate      // A: private-name index, B: flags -- ++/-- on obj.#name

	// Object/array/function/class/regexp construction.
	OpNewObject
	OpNewArray
	OpArrayHole        // appends a hole (elision) to the array below TOS
	OpArrayPushElem    // appends the value on TOS to the array below it
	OpArraySpreadElem  // appends an iterable's elements to the array below TOS
	OpObjectDefineProp   // A: 1 if the key on the stack is computed, else 0 (key came from the constant pool via OpConst)
	OpObjectDefineGetter // same key convention as OpObjectDefineProp
	OpObjectDefineSetter
	OpObjectSpreadProp // merges an object's own enumerable props into the object below TOS
	OpNewFunction      // A: child CodeBlock index -- closes over the current env
	OpNewClass         // A: child CodeBlock index (constructor's own body), B: class element table index
	OpRegExp           // pops flags then pattern (both strings), pushes a RegExp object

	// Calls. Arguments are gathered between a matching OpArgsStart/OpCall(or
	// OpNew/OpSuperCall) pair so a ...spread argument can expand to a
	// variable number of stack items (OpSpreadArgsMarker) without the call
	// site needing to know the final count in advance.
	OpArgsStart        // records the current stack depth as this call's argument-list start
	OpSpreadArgsMarker // pops the iterable just pushed and pushes its elements in its place
	OpCall             // pops args back to the matching ArgsStart, then `this`, then the callee
	OpNew              // like OpCall but constructs; no `this` under the args
	OpSuperCall        // like OpNew, target is the active constructor's [[Prototype]]
	OpReturn
	OpThrow

	// Control flow.
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpJumpIfNullish    // for ?. short-circuit -- pops TOS and jumps if it was null/undefined
	OpJumpIfNotNullish // for ?? and ??= -- pops TOS and jumps if it was neither null nor undefined
	OpJumpIfUndefined  // for default parameters/destructuring defaults -- pops and jumps only if TOS is exactly undefined

	// Arithmetic / logical / relational. ToNumeric implements the ToNumeric
	// abstract operation (used by unary +/- and ++/--, which must support
	// BigInt as well as Number).
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpNeg
	OpPos
	OpNot
	OpBitNot
	OpToNumeric
	OpToString
	OpTypeof
	OpInstanceOf
	OpIn
	OpEq
	OpNotEq
	OpStrictEq
	OpStrictNotEq
	OpLt
	OpLe
	OpGt
	OpGe

	// this / new.target / super.
	OpThis
	OpNewTarget
	OpSuperProp // A: name constant index -- reads Home.Prototype[name] with `this` as receiver
	OpSuperPropComputed
	OpSuperCallTag // unused marker kept for opcode-name symmetry with OpSuperCall; not emitted

	// Scopes.
	OpEnterScope // A: slot count, B: scope-name table index (for dynamic lookup)
	OpExitScope
	OpCopyScope // A: slot count -- replaces the current env with a fresh copy of the same slot values, for per-iteration let/const loop scopes
	// OpEnterWithScope pops an object and pushes a poisoned Object
	// environment over it (spec.md §4.3 PushObjectEnvironment; `with`).
	// OpExitScope closes it like any other scope.
	OpEnterWithScope

	// Exceptions. A try with both a catch and a finally pushes two nested
	// handlers (catch-only inner, finally-only outer), so a throw inside the
	// catch clause still reaches the finally. Static exits (break/continue/
	// return) are handled at compile time: the finally clause is inlined at
	// each exit site, which is also what gives spec.md's completion dominance
	// -- an abrupt completion written in the finally clause makes the
	// original exit's code after it unreachable.
	OpEnterTry         // A: catch pc (0 = none), B: finally pc (0 = none)
	OpExitTry
	OpPushCatchBinding // A: depth, B: slot -- binds the caught value; -1 pushes it on the stack (destructuring), -2 discards it
	OpEnterFinally     // normal-path entry into a shared finally block: pushes a "normal" pending completion
	OpEndFinally       // pops the pending completion: normal falls through, throw re-raises

	// Generators / async (SUPPLEMENTED FEATURES: distinct suspension point
	// from a plain call, driven by internal/vm's generator state). yield*
	// delegation is lowered by the compiler to an iteration loop over plain
	// OpYield, so no dedicated delegate opcode exists.
	OpYield
	OpAwait

	// Iteration protocol. The iterator/enumerator itself lives on the
	// frame's own iterator stack, not the value stack, so GetIterator/
	// ForInNames can be interleaved arbitrarily with other stack traffic
	// (array/object destructuring evaluates interleaved default
	// expressions between IterNext calls).
	OpGetIterator
	OpIterNext     // advances the top iterator, pushing its value (or undefined once exhausted) onto the value stack
	OpIterNextOrJump // A: jump pc taken (and iterator popped) once exhausted; else pushes the next value and leaves the iterator in place -- for-in/for-of loop control, where exhaustion must end the loop rather than silently yield undefined
	OpIterRestArray // drains the top iterator into a new array, pushed onto the value stack
	OpIterClose    // pops the frame's top iterator/enumerator, calling .return() if the iterator defines one
	OpForInNames   // pops an object, pushes a for-in enumerator (its own and inherited enumerable string keys) onto the iterator stack

	// Destructuring support.
	OpObjectRestExcluding // A: index into CodeBlock.ExcludeSets -- builds an object of TOS's own enumerable props minus the named keys

	// OpPopPending discards one pending finally completion without
	// re-dispatching it, emitted when a break/continue jumps out of a shared
	// finally block that was entered with a completion still pending (the
	// break dominates it, spec.md §8 scenario 2's break/continue analog).
	OpPopPending

	// Parameter plumbing. Arguments are kept in the frame's own argument
	// slice rather than pre-copied into environment slots, so destructuring
	// patterns, defaults, and named function expressions (whose slot 0 is
	// the function's own name) all bind through the same prologue code.
	OpGetArg      // A: argument index -- pushes args[A] or undefined
	OpGetRestArgs // A: first rest index -- pushes an array of args[A:]
	OpGetCallee   // pushes the function object being executed

	// OpInitConst is OpInitLocal for const/class bindings: clears TDZ and
	// marks the slot immutable so later OpSetLocal raises the spec's
	// assignment-to-constant error.
	OpInitConst // A: depth, B: slot

	// Arguments object creation (spec.md §4.3 CreateMappedArgumentsObject /
	// CreateUnmappedArgumentsObject). Both push the object; the prologue
	// stores it into the implicit `arguments` slot. The mapped form aliases
	// indices to the simple positional parameters' slots; the unmapped form
	// is a snapshot (strict code, or any non-simple parameter list).
	OpCreateMappedArguments
	OpCreateUnmappedArguments

	// OpGetAsyncIterator pops a value and pushes its async iterator object
	// (@@asyncIterator, falling back to @@iterator), used by the
	// for-await-of lowering, which then drives next()/await through plain
	// call and Await opcodes.
	OpGetAsyncIterator
)

//go:generate stringer -type=Opcode
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "OpUnknown"
}

var opcodeNames = [...]string{
	"Nop", "Const", "Undefined", "Null", "True", "False", "Pop", "Dup", "Dup2", "Swap",
	"GetLocal", "SetLocal", "InitLocal", "DeclareTDZ",
	"GetVar", "SetVar", "TypeofVar",
	"GetProp", "GetPropComputed", "SetProp", "SetPropComputed",
	"DeleteProp", "DeletePropComputed", "GetPrivate", "SetPrivate", "HasPrivate",
	"UpdateProp", "UpdatePropComputed", "UpdatePrivate",
	"NewObject", "NewArray", "ArrayHole", "ArrayPushElem", "ArraySpreadElem",
	"ObjectDefineProp", "ObjectDefineGetter", "ObjectDefineSetter", "ObjectSpreadProp",
	"NewFunction", "NewClass", "RegExp",
	"ArgsStart", "SpreadArgsMarker", "Call", "New", "SuperCall", "Return", "Throw",
	"Jump", "JumpIfFalse", "JumpIfTrue", "JumpIfNullish", "JumpIfNotNullish", "JumpIfUndefined",
	"Add", "Sub", "Mul", "Div", "Mod", "Pow", "BitAnd", "BitOr", "BitXor",
	"Shl", "Shr", "UShr", "Neg", "Pos", "Not", "BitNot", "ToNumeric", "ToString",
	"Typeof", "InstanceOf", "In",
	"Eq", "NotEq", "StrictEq", "StrictNotEq", "Lt", "Le", "Gt", "Ge",
	"This", "NewTarget", "SuperProp", "SuperPropComputed", "SuperCallTag",
	"EnterScope", "ExitScope", "CopyScope", "EnterWithScope",
	"EnterTry", "ExitTry", "PushCatchBinding", "EnterFinally", "EndFinally",
	"Yield", "Await",
	"GetIterator", "IterNext", "IterNextOrJump", "IterRestArray", "IterClose", "ForInNames",
	"ObjectRestExcluding",
	"PopPending",
	"GetArg", "GetRestArgs", "GetCallee",
	"InitConst",
	"CreateMappedArguments", "CreateUnmappedArguments",
	"GetAsyncIterator",
}
