package bytecode

import (
	"strings"
	"testing"

	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/parser"
	"github.com/BasixKOR/boa/internal/test"
)

func compileSrc(t *testing.T, src string) *CodeBlock {
	t.Helper()
	interner := intern.NewTable()
	prog, err := parser.ParseProgram(src, interner, false)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	cb, err := Compile(prog, interner)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return cb
}

func TestCompileSmoke(t *testing.T) {
	cb := compileSrc(t, "let x = 1 + 2; x * 3;")
	if len(cb.Code) == 0 {
		t.Fatalf("no instructions emitted")
	}
	// Every program ends by returning its completion value.
	last := cb.Code[len(cb.Code)-1]
	test.AssertEqual(t, last.Op, OpReturn)
}

func TestJumpTargetsStayInRange(t *testing.T) {
	cb := compileSrc(t, `
		for (let i = 0; i < 10; i++) {
			if (i === 3) continue;
			if (i === 7) break;
		}
		switch (1) { case 1: break; default: }
		try { throw 1 } catch (e) {} finally {}
	`)
	check := func(pc int32) {
		if pc < 0 || int(pc) > len(cb.Code) {
			t.Fatalf("jump target %d out of range [0,%d]", pc, len(cb.Code))
		}
	}
	for _, in := range cb.Code {
		switch in.Op {
		case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpJumpIfNullish, OpJumpIfNotNullish, OpJumpIfUndefined, OpIterNextOrJump:
			check(in.A)
		case OpEnterTry:
			if in.A != 0 {
				check(in.A)
			}
			if in.B != 0 {
				check(in.B)
			}
		}
	}
}

func TestFunctionDeclarationsHoist(t *testing.T) {
	cb := compileSrc(t, "f(); function f(){}")
	// The hoisted instantiation must precede the call.
	sawNewFunction := false
	for _, in := range cb.Code {
		if in.Op == OpNewFunction {
			sawNewFunction = true
		}
		if in.Op == OpCall && !sawNewFunction {
			t.Fatalf("call compiled before the hoisted function instantiation")
		}
	}
	if !sawNewFunction {
		t.Fatalf("function declaration never instantiated")
	}
	test.AssertEqual(t, len(cb.Children), 1)
}

func TestTryFinallyEmitsNestedHandlers(t *testing.T) {
	cb := compileSrc(t, "try { 1 } catch (e) { 2 } finally { 3 }")
	enters := 0
	for _, in := range cb.Code {
		if in.Op == OpEnterTry {
			enters++
		}
	}
	// Finally-only outer plus catch-only inner.
	test.AssertEqual(t, enters, 2)
	test.AssertEqual(t, len(cb.Handlers), 1)
	if cb.Handlers[0].CatchPC == 0 || cb.Handlers[0].FinallyPC == 0 {
		t.Fatalf("handler metadata incomplete: %+v", cb.Handlers[0])
	}
}

func TestExcludeSetsDeduplicate(t *testing.T) {
	cb := New("t")
	a := cb.AddExcludeSet([]string{"x", "y"})
	b := cb.AddExcludeSet([]string{"x", "y"})
	c := cb.AddExcludeSet([]string{"x"})
	test.AssertEqual(t, a, b)
	if a == c {
		t.Fatalf("distinct sets must not merge")
	}
}

func TestDisassembleMarksJumpTargets(t *testing.T) {
	cb := compileSrc(t, "let i = 0; while (i < 3) { i++ }")
	out := cb.Disassemble()
	if !strings.Contains(out, "> ") {
		t.Fatalf("loop disassembly must mark at least one jump target:\n%s", out)
	}
	if !strings.Contains(out, "JumpIfFalse") {
		t.Fatalf("expected the loop test's conditional jump:\n%s", out)
	}
}

func TestGeneratorAndAsyncFlags(t *testing.T) {
	cb := compileSrc(t, "async function a(){ await 1 } function* g(){ yield 1 }")
	if len(cb.Children) != 2 {
		t.Fatalf("expected two child blocks, got %d", len(cb.Children))
	}
	var sawAsync, sawGen bool
	for _, child := range cb.Children {
		if child.IsAsync {
			sawAsync = true
		}
		if child.IsGenerator {
			sawGen = true
		}
	}
	if !sawAsync || !sawGen {
		t.Fatalf("async/generator flags not propagated")
	}
}

func TestArgumentsPrologue(t *testing.T) {
	// Sloppy + simple parameters: mapped, with the parameter slot table.
	cb := compileSrc(t, "function f(a, b){ return arguments }")
	fn := cb.Children[0]
	if !fn.MappedArguments || fn.ArgumentsSlot < 0 || len(fn.ParamSlots) != 2 {
		t.Fatalf("expected a mapped arguments prologue: %+v", fn)
	}
	if fn.Code[0].Op != OpCreateMappedArguments {
		t.Fatalf("prologue must open with the arguments opcode, got %s", fn.Code[0].Op)
	}

	// Strict, or any non-simple list, gets the unmapped snapshot.
	cb = compileSrc(t, `"use strict"; function f(a){ return arguments }`)
	if cb.Children[0].Code[0].Op != OpCreateUnmappedArguments {
		t.Fatalf("strict functions must take the unmapped form")
	}
	cb = compileSrc(t, "function f(a = 1){ return arguments }")
	if cb.Children[0].Code[0].Op != OpCreateUnmappedArguments {
		t.Fatalf("non-simple parameter lists must take the unmapped form")
	}

	// A shadowing parameter suppresses the implicit object entirely.
	cb = compileSrc(t, "function f(arguments){ return arguments }")
	if cb.Children[0].ArgumentsSlot != -1 {
		t.Fatalf("a parameter named arguments must shadow the implicit binding")
	}
}

func TestWithCompilesToDynamicResolution(t *testing.T) {
	cb := compileSrc(t, "let x = 1; with (o) { x = 2 }")
	var sawWith, sawSetVar bool
	for _, in := range cb.Code {
		switch in.Op {
		case OpEnterWithScope:
			sawWith = true
		case OpSetVar:
			sawSetVar = true
		case OpSetLocal:
			if sawWith {
				t.Fatalf("a reference crossing a with scope must not resolve statically")
			}
		}
	}
	if !sawWith || !sawSetVar {
		t.Fatalf("with lowering incomplete: with=%v dynamicSet=%v", sawWith, sawSetVar)
	}
}

func TestForAwaitLowering(t *testing.T) {
	cb := compileSrc(t, "async function f(xs){ for await (const x of xs) {} }")
	fn := cb.Children[0]
	var sawAsyncIter, sawAwait bool
	for _, in := range fn.Code {
		switch in.Op {
		case OpGetAsyncIterator:
			sawAsyncIter = true
		case OpAwait:
			sawAwait = true
		}
	}
	if !sawAsyncIter || !sawAwait {
		t.Fatalf("for-await must lower through GetAsyncIterator and Await: %v %v", sawAsyncIter, sawAwait)
	}
}

func TestCompileErrorsAreSyntaxErrors(t *testing.T) {
	// A parse-legal program the compiler cannot lower must surface as an
	// error, never a panic. Labelled-block breaks pass the early-error pass
	// (the label exists) but the compiler only attaches labels to loops and
	// switches, so this exercises the recover path end to end.
	interner := intern.NewTable()
	prog, err := parser.ParseProgram("lbl: { break lbl }", interner, false)
	if err != nil {
		t.Fatalf("labelled block break should parse: %v", err)
	}
	if _, err := Compile(prog, interner); err == nil {
		t.Fatalf("expected a SyntaxError from the compiler's unwind path")
	}
}

func TestStrictModePropagation(t *testing.T) {
	cb := compileSrc(t, `"use strict"; function f(){} `)
	if !cb.Strict {
		t.Fatalf("directive prologue must make the program strict")
	}
	if len(cb.Children) == 0 || !cb.Children[0].Strict {
		t.Fatalf("strictness must flow into nested functions")
	}
}
