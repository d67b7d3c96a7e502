package vm

import (
	"math"
	"testing"

	"github.com/BasixKOR/boa/internal/test"
)

// NumberToString is one of spec.md §6's bit-exact surfaces; these expected
// strings are the published reference forms.
func TestNumberToString(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-1, "-1"},
		{0.5, "0.5"},
		{-0.5, "-0.5"},
		{100, "100"},
		{0.001, "0.001"},
		{1e-7, "1e-7"},
		{1.5e-7, "1.5e-7"},
		{1e21, "1e+21"},
		{1.5e21, "1.5e+21"},
		{1e20, "100000000000000000000"},
		{123456789, "123456789"},
		{0.1, "0.1"},
		{1234.5678, "1234.5678"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{9007199254740991, "9007199254740991"},
	}
	for _, c := range cases {
		test.AssertEqual(t, NumberToString(c.in), c.want)
	}
}

func TestStringToNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"  42  ", 42},
		{"0x10", 16},
		{"0b101", 5},
		{"0o17", 15},
		{"1e3", 1000},
		{"-1.5", -1.5},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
	}
	for _, c := range cases {
		got := stringToNumber(c.in)
		if got != c.want {
			t.Fatalf("stringToNumber(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	if !math.IsNaN(stringToNumber("12abc")) || !math.IsNaN(stringToNumber("-0x10")) {
		t.Fatalf("malformed numeric strings must produce NaN")
	}
}

func TestToInt32Wrapping(t *testing.T) {
	cases := []struct {
		in   float64
		want int32
	}{
		{0, 0},
		{1.9, 1},
		{-1.9, -1},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{4294967296, 0},
		{4294967297, 1},
		{2147483648, -2147483648},
	}
	for _, c := range cases {
		if got := toInt32(c.in); got != c.want {
			t.Fatalf("toInt32(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
