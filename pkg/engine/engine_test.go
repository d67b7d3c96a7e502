package engine

import (
	"testing"

	"github.com/BasixKOR/boa/internal/test"
	"github.com/BasixKOR/boa/internal/value"
)

func newCtx(t *testing.T, opts Options) *Context {
	t.Helper()
	c, err := NewContext(opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestEvalReturnsCompletionValue(t *testing.T) {
	c := newCtx(t, Options{})
	v, err := c.Eval("6 * 7")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, c.ToGoString(v), "42")
}

func TestEvalSurfacesThrownErrors(t *testing.T) {
	c := newCtx(t, Options{})
	_, err := c.Eval("null.x")
	if err == nil {
		t.Fatalf("expected a TypeError")
	}
	if _, ok := err.(*Error); !ok {
		t.Fatalf("expected the public Error type, got %T", err)
	}
}

func TestSyntaxErrorBeforeExecution(t *testing.T) {
	c := newCtx(t, Options{})
	_, err := c.Eval("let = = 1")
	e, ok := err.(*Error)
	if !ok || e.Kind != "SyntaxError" {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}

func TestRegisterGlobalFunction(t *testing.T) {
	c := newCtx(t, Options{})
	if err := c.RegisterGlobalFunction("hostAdd", 2, func(_ Value, args []Value) (Value, error) {
		return NumberValue(args[0].Float64() + args[1].Float64()), nil
	}); err != nil {
		t.Fatal(err)
	}
	v, err := c.Eval("hostAdd(40, 2)")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, c.ToGoString(v), "42")
}

func TestRegisterGlobalProperty(t *testing.T) {
	c := newCtx(t, Options{})
	if err := c.RegisterGlobalProperty("HOST_NAME", StringValue("boa"), false, false, false); err != nil {
		t.Fatal(err)
	}
	v, err := c.Eval("HOST_NAME + '!'")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, c.ToGoString(v), "boa!")
}

func TestBudgetTermination(t *testing.T) {
	c := newCtx(t, Options{OpcodeBudget: 50_000})
	_, err := c.Eval("while (true) {}")
	if err == nil || !IsTermination(err) {
		t.Fatalf("expected a termination signal, got %v", err)
	}
}

func TestRunJobsDrainsMicrotasks(t *testing.T) {
	c := newCtx(t, Options{})
	if _, err := c.Eval("globalThis.done = false; Promise.resolve().then(() => { done = true })"); err != nil {
		t.Fatal(err)
	}
	v, _ := c.Eval("done")
	test.AssertEqual(t, c.ToGoString(v), "false")
	c.RunJobs()
	v, _ = c.Eval("done")
	test.AssertEqual(t, c.ToGoString(v), "true")
}

func TestModuleLifecycle(t *testing.T) {
	c := newCtx(t, Options{})
	m, err := c.ParseModule("main", "let base = 40; base + 2")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Link(); err != nil {
		t.Fatal(err)
	}
	v, err := m.Evaluate()
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, c.ToGoString(v), "42")
	// A second Evaluate returns the cached completion.
	v2, err := m.Evaluate()
	if err != nil || !value.StrictEquals(v, v2) {
		t.Fatalf("re-evaluation must return the cached completion")
	}
}
