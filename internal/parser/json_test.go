package parser

import (
	"testing"

	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/test"
)

func TestParseJSONObject(t *testing.T) {
	e, err := ParseJSON(`{"a": 1, "b": [true, null, "x"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, ok := e.(*ast.EObject)
	if !ok {
		t.Fatalf("expected EObject, got %T", e)
	}
	test.AssertEqual(t, len(obj.Properties), 2)
}

func TestParseJSONInvalid(t *testing.T) {
	_, err := ParseJSON(`{a: 1}`)
	if err == nil {
		t.Fatalf("expected an error for an unquoted key")
	}
}

func TestParseJSONNumberNegative(t *testing.T) {
	e, err := ParseJSON(`-12.5`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := e.(*ast.ENumber)
	if !ok {
		t.Fatalf("expected ENumber, got %T", e)
	}
	test.AssertEqual(t, n.Value, -12.5)
}
