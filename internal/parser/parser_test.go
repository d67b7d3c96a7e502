package parser

import (
	"strings"
	"testing"

	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/test"
)

func parse(t *testing.T, src string) *ast.SProgram {
	t.Helper()
	prog, err := ParseProgram(src, intern.NewTable(), false)
	if err != nil {
		t.Fatalf("parse error for %q: %v", src, err)
	}
	return prog
}

func TestParseVarDecl(t *testing.T) {
	prog := parse(t, "let x = 1, y = 2;")
	test.AssertEqual(t, len(prog.Body), 1)
	decl, ok := prog.Body[0].(*ast.SVarDecl)
	if !ok {
		t.Fatalf("expected SVarDecl, got %T", prog.Body[0])
	}
	test.AssertEqual(t, decl.Kind, ast.DeclLet)
	test.AssertEqual(t, len(decl.Decls), 2)
}

func TestParseClosureOverLoopVariable(t *testing.T) {
	prog := parse(t, `
		let fns = [];
		for (let i = 0; i < 3; i++) {
			fns.push(() => i);
		}
	`)
	test.AssertEqual(t, len(prog.Body), 2)
	forStmt, ok := prog.Body[1].(*ast.SFor)
	if !ok {
		t.Fatalf("expected SFor, got %T", prog.Body[1])
	}
	if forStmt.Scope == nil {
		t.Fatalf("expected the for-loop head to open its own per-iteration scope")
	}
}

func expectParseError(t *testing.T, src, wantSubstring string) {
	t.Helper()
	_, err := ParseProgram(src, intern.NewTable(), false)
	if err == nil {
		t.Fatalf("expected a parse/early error for %q", src)
	}
	if !strings.Contains(err.Error(), wantSubstring) {
		t.Fatalf("error for %q = %q, want mention of %q", src, err.Error(), wantSubstring)
	}
}

func TestParseWithStatement(t *testing.T) {
	prog := parse(t, "with (o) { x = 1 }")
	w, ok := prog.Body[0].(*ast.SWith)
	if !ok {
		t.Fatalf("expected SWith, got %T", prog.Body[0])
	}
	if w.Scope == nil || w.Scope.Kind != ast.ScopeWith || !w.Scope.Poisoned {
		t.Fatalf("with body must open a poisoned ScopeWith scope")
	}
}

func TestParseForAwaitOf(t *testing.T) {
	prog := parse(t, "async function f(){ for await (const x of xs) {} }")
	fn := prog.Body[0].(*ast.SFunction).Fn
	loop, ok := fn.Body[0].(*ast.SForInOf)
	if !ok || loop.Kind != ast.ForOfAwait {
		t.Fatalf("expected a ForOfAwait loop, got %#v", fn.Body[0])
	}
	expectParseError(t, "async function f(){ for await (const x in xs) {} }", "of-loop")
}

func TestImplicitArgumentsBinding(t *testing.T) {
	prog := parse(t, "function f(a){}")
	scope := prog.Body[0].(*ast.SFunction).Fn.Scope
	found := false
	for _, sym := range scope.Symbols {
		if sym.Kind == ast.SymbolArguments {
			found = true
		}
	}
	if !found {
		t.Fatalf("function scopes must carry the implicit arguments symbol")
	}
}

func TestEarlyErrorPass(t *testing.T) {
	expectParseError(t, `"use strict"; eval = 1;`, "strict")
	expectParseError(t, `"use strict"; function f(a, a){}`, "duplicate parameter")
	expectParseError(t, `"use strict"; 0644;`, "octal")
	expectParseError(t, `"use strict"; with ({}) {}`, "with")
	expectParseError(t, `let x = 1; let x = 2;`, "already been declared")
	expectParseError(t, `for (;;) { break missing }`, "undefined label")
	expectParseError(t, `return 1;`, "outside a function")
	expectParseError(t, `async function f(){ let await = 1 }`, "await")
	expectParseError(t, `async function* g(){}`, "async generators")

	// Sloppy counterparts stay legal.
	parse(t, `eval = 1;`)
	parse(t, `function f(a, a){}`)
	parse(t, `0644;`)
	parse(t, `with ({}) {}`)
}

func TestParseArrowShorthand(t *testing.T) {
	prog := parse(t, "let f = x => x + 1;")
	decl := prog.Body[0].(*ast.SVarDecl)
	arrow, ok := decl.Decls[0].Value.(*ast.EArrow)
	if !ok {
		t.Fatalf("expected EArrow, got %T", decl.Decls[0].Value)
	}
	test.AssertEqual(t, len(arrow.Fn.Params), 1)
	if arrow.Fn.ArrowExpr == nil {
		t.Fatalf("expected a concise arrow body")
	}
}

func TestParseTryFinally(t *testing.T) {
	prog := parse(t, `
		try {
			foo();
		} finally {
			bar();
		}
	`)
	tryStmt, ok := prog.Body[0].(*ast.STry)
	if !ok {
		t.Fatalf("expected STry, got %T", prog.Body[0])
	}
	if tryStmt.Catch != nil {
		t.Fatalf("expected no catch clause")
	}
	test.AssertEqual(t, len(tryStmt.Finally), 1)
}

func TestParseClassWithPrivateField(t *testing.T) {
	prog := parse(t, `
		class Counter {
			#count = 0;
			static #max = 10;
			inc() { return ++this.#count; }
		}
	`)
	cls, ok := prog.Body[0].(*ast.SClass)
	if !ok {
		t.Fatalf("expected SClass, got %T", prog.Body[0])
	}
	test.AssertEqual(t, len(cls.Class.Elements), 3)
	test.AssertEqual(t, cls.Class.Elements[0].Private, true)
}

func TestParseAsyncGenerator(t *testing.T) {
	prog := parse(t, `
		async function* gen() {
			yield await fetchNext();
		}
	`)
	fn, ok := prog.Body[0].(*ast.SFunction)
	if !ok {
		t.Fatalf("expected SFunction, got %T", prog.Body[0])
	}
	test.AssertEqual(t, fn.Fn.IsAsync(), true)
	test.AssertEqual(t, fn.Fn.IsGenerator(), true)
}

func TestParseOptionalChainingAndNullish(t *testing.T) {
	prog := parse(t, "let v = a?.b?.[c] ?? d;")
	decl := prog.Body[0].(*ast.SVarDecl)
	bin, ok := decl.Decls[0].Value.(*ast.EBinary)
	if !ok {
		t.Fatalf("expected EBinary, got %T", decl.Decls[0].Value)
	}
	test.AssertEqual(t, bin.Op, ast.BinNullishCoalescing)
}

func TestParseDestructuringParams(t *testing.T) {
	prog := parse(t, "function f({ a, b: [c, d] }, ...rest) {}")
	fn := prog.Body[0].(*ast.SFunction)
	test.AssertEqual(t, len(fn.Fn.Params), 2)
	test.AssertEqual(t, fn.Fn.Params[0].Binding.Kind, ast.BindingObject)
}
