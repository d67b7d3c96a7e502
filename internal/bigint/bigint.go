// Package bigint implements the engine's arbitrary-precision signed integer
// value, the representation backing ECMAScript's BigInt primitive (spec.md
// §3 "BigInt").
//
// No library in the retrieval pack offers signed arbitrary-precision
// integers with BigInt pow semantics: the closest candidate,
// github.com/holiman/uint256 (pulled in by ethereum-go-ethereum), is a fixed
// 256-bit *unsigned* integer tuned for EVM word arithmetic and would silently
// wrap on both sign and magnitude, which is observably wrong for a language
// BigInt. math/big is the standard library's arbitrary-precision integer and
// is the type ecosystem code reaches for in its absence (see DESIGN.md).
package bigint

import (
	"fmt"
	"math/big"
)

// Int is an immutable arbitrary-precision signed integer.
type Int struct {
	v *big.Int
}

var zero = &big.Int{}

// FromInt64 wraps a machine integer.
func FromInt64(n int64) Int {
	return Int{v: big.NewInt(n)}
}

// Parse reads a BigInt literal body (decimal, 0x, 0o, 0b prefixed, no
// trailing "n" suffix -- the lexer strips that) in the given base, or base 0
// to auto-detect a prefix.
func Parse(text string, base int) (Int, bool) {
	v, ok := new(big.Int).SetString(text, base)
	if !ok {
		return Int{}, false
	}
	return Int{v: v}, true
}

func (a Int) big() *big.Int {
	if a.v == nil {
		return zero
	}
	return a.v
}

func (a Int) String() string                 { return a.big().String() }
func (a Int) IsZero() bool                    { return a.big().Sign() == 0 }
func (a Int) Sign() int                       { return a.big().Sign() }
func (a Int) Cmp(b Int) int                   { return a.big().Cmp(b.big()) }
func (a Int) Float64() float64                { f, _ := new(big.Float).SetInt(a.big()).Float64(); return f }

func bin(a, b Int, op func(z, x, y *big.Int) *big.Int) Int {
	return Int{v: op(new(big.Int), a.big(), b.big())}
}

func (a Int) Add(b Int) Int { return bin(a, b, (*big.Int).Add) }
func (a Int) Sub(b Int) Int { return bin(a, b, (*big.Int).Sub) }
func (a Int) Mul(b Int) Int { return bin(a, b, (*big.Int).Mul) }

// Div and Mod truncate toward zero, matching ECMAScript's BigInt semantics
// (unlike math/big.Int.Mod, which is Euclidean).
func (a Int) Div(b Int) (Int, error) {
	if b.IsZero() {
		return Int{}, fmt.Errorf("RangeError: division by zero")
	}
	q := new(big.Int)
	q.Quo(a.big(), b.big())
	return Int{v: q}, nil
}

func (a Int) Mod(b Int) (Int, error) {
	if b.IsZero() {
		return Int{}, fmt.Errorf("RangeError: division by zero")
	}
	r := new(big.Int)
	r.Rem(a.big(), b.big())
	return Int{v: r}, nil
}

func (a Int) Neg() Int { return Int{v: new(big.Int).Neg(a.big())} }

func (a Int) BitAnd(b Int) Int { return bin(a, b, (*big.Int).And) }
func (a Int) BitOr(b Int) Int  { return bin(a, b, (*big.Int).Or) }
func (a Int) BitXor(b Int) Int { return bin(a, b, (*big.Int).Xor) }
func (a Int) BitNot() Int      { return Int{v: new(big.Int).Not(a.big())} }

func (a Int) Shl(bits uint) Int { return Int{v: new(big.Int).Lsh(a.big(), bits)} }
func (a Int) Shr(bits uint) Int { return Int{v: new(big.Int).Rsh(a.big(), bits)} }

// bitLen approximates the spec's "bits(x)": the number of bits needed to
// represent the magnitude of x, at least 1.
func (a Int) bitLen() int64 {
	n := int64(a.big().BitLen())
	if n == 0 {
		return 1
	}
	return n
}

// Pow implements BigInt exponentiation with the budget from spec.md §3:
// bits(x) * y <= 1e9, else a RangeError. A negative y also returns a
// RangeError.
func (a Int) Pow(y Int) (Int, error) {
	if y.Sign() < 0 {
		return Int{}, fmt.Errorf("RangeError: exponent must be non-negative")
	}
	if !y.v.IsInt64() {
		return Int{}, fmt.Errorf("RangeError: exponent too large")
	}
	exp := y.v.Int64()
	if a.bitLen()*exp > 1_000_000_000 {
		return Int{}, fmt.Errorf("RangeError: BigInt is too large")
	}
	return Int{v: new(big.Int).Exp(a.big(), y.big(), nil)}, nil
}

// AsIntN / AsUintN implement BigInt.asIntN / BigInt.asUintN: truncate to the
// low `bits` bits, signed or unsigned.
func (a Int) AsUintN(bits uint) Int {
	if bits == 0 {
		return Int{v: new(big.Int)}
	}
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
	return Int{v: new(big.Int).And(a.big(), mask)}
}

func (a Int) AsIntN(bits uint) Int {
	u := a.AsUintN(bits)
	if bits == 0 {
		return u
	}
	signBit := new(big.Int).Lsh(big.NewInt(1), bits-1)
	if u.big().Cmp(signBit) >= 0 {
		full := new(big.Int).Lsh(big.NewInt(1), bits)
		return Int{v: new(big.Int).Sub(u.big(), full)}
	}
	return u
}
