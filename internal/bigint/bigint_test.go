package bigint

import "testing"

func TestParseBases(t *testing.T) {
	cases := map[string]string{
		"123":    "123",
		"0xff":   "255",
		"0o17":   "15",
		"0b1010": "10",
	}
	for in, want := range cases {
		v, ok := Parse(in, 0)
		if !ok || v.String() != want {
			t.Fatalf("Parse(%q) = %q ok=%v, want %q", in, v.String(), ok, want)
		}
	}
	if _, ok := Parse("12x", 0); ok {
		t.Fatalf("malformed literal must fail")
	}
}

func TestTruncatingDivMod(t *testing.T) {
	// ECMAScript BigInt division truncates toward zero, unlike math/big's
	// Euclidean Mod.
	a, _ := Parse("-7", 10)
	b, _ := Parse("2", 10)
	q, err := a.Div(b)
	if err != nil || q.String() != "-3" {
		t.Fatalf("-7n / 2n = %v (%v), want -3", q, err)
	}
	r, err := a.Mod(b)
	if err != nil || r.String() != "-1" {
		t.Fatalf("-7n %% 2n = %v (%v), want -1", r, err)
	}
	if _, err := a.Div(FromInt64(0)); err == nil {
		t.Fatalf("division by zero must error")
	}
}

func TestPowBudget(t *testing.T) {
	base := FromInt64(2)
	small, err := base.Pow(FromInt64(10))
	if err != nil || small.String() != "1024" {
		t.Fatalf("2n**10n = %v (%v)", small, err)
	}
	if _, err := base.Pow(FromInt64(2_000_000_000)); err == nil {
		t.Fatalf("bits(x)*y budget must reject huge exponents")
	}
	if _, err := base.Pow(FromInt64(-1)); err == nil {
		t.Fatalf("negative exponents must be rejected")
	}
}

func TestAsIntNUintN(t *testing.T) {
	v := FromInt64(0x1FF) // 9 bits set
	if got := v.AsUintN(8).String(); got != "255" {
		t.Fatalf("AsUintN(8) = %s, want 255", got)
	}
	if got := v.AsIntN(8).String(); got != "-1" {
		t.Fatalf("AsIntN(8) = %s, want -1", got)
	}
	if got := FromInt64(127).AsIntN(8).String(); got != "127" {
		t.Fatalf("AsIntN(8) of 127 = %s", got)
	}
}

func TestShifts(t *testing.T) {
	if got := FromInt64(1).Shl(70); got.bitLen() != 71 {
		t.Fatalf("Shl must widen past machine words")
	}
	if got := FromInt64(1024).Shr(10).String(); got != "1" {
		t.Fatalf("Shr = %s", got)
	}
}
