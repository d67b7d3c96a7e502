package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/BasixKOR/boa/internal/bigint"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/value"
)

// ---- conversions ----

// ToPrimitive implements OrdinaryToPrimitive with the given hint ("number"
// or "string"); objects try valueOf/toString in hint order.
func (vm *VM) ToPrimitive(v value.Value, hint string) (value.Value, error) {
	if _, ok := asObject(v); !ok {
		return v, nil
	}
	order := []string{"valueOf", "toString"}
	if hint == "string" {
		order = []string{"toString", "valueOf"}
	}
	for _, name := range order {
		m, err := vm.GetProperty(v, vm.KeyFromString(name))
		if err != nil {
			return value.Undefined, err
		}
		if mo, ok := asObject(m); ok && mo.IsCallable() {
			res, err := vm.Call(m, v, nil)
			if err != nil {
				return value.Undefined, err
			}
			if res.Kind() != value.KindObject {
				return res, nil
			}
		}
	}
	return value.Undefined, vm.throwKind(errors.KindType, "cannot convert object to primitive value")
}

// ToNumber implements the ToNumber abstract operation.
func (vm *VM) ToNumber(v value.Value) (float64, error) {
	switch v.Kind() {
	case value.KindUndefined:
		return math.NaN(), nil
	case value.KindNull:
		return 0, nil
	case value.KindBool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case value.KindInt32, value.KindFloat64:
		return v.Float64(), nil
	case value.KindString:
		return stringToNumber(v.String_().GoString()), nil
	case value.KindBigInt:
		return 0, vm.throwKind(errors.KindType, "cannot convert a BigInt to a number")
	case value.KindSymbol:
		return 0, vm.throwKind(errors.KindType, "cannot convert a Symbol to a number")
	default:
		prim, err := vm.ToPrimitive(v, "number")
		if err != nil {
			return 0, err
		}
		return vm.ToNumber(prim)
	}
}

// stringToNumber implements the StringNumericLiteral grammar: trimmed empty
// string is 0, hex/octal/binary prefixes, Infinity, else decimal.
func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	neg := false
	body := s
	if body[0] == '+' || body[0] == '-' {
		neg = body[0] == '-'
		body = body[1:]
	}
	if body == "Infinity" {
		if neg {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	if len(body) > 2 && body[0] == '0' {
		base := 0
		switch body[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if neg {
				return math.NaN() // sign is not part of the radix grammar
			}
			n, err := strconv.ParseUint(body[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToNumeric returns a Number or BigInt value (spec.md §4.3 opcode
// ToNumeric, backing unary +/- and ++/--).
func (vm *VM) ToNumeric(v value.Value) (value.Value, error) {
	if v.IsBigInt() {
		return v, nil
	}
	if _, ok := asObject(v); ok {
		prim, err := vm.ToPrimitive(v, "number")
		if err != nil {
			return value.Undefined, err
		}
		if prim.IsBigInt() {
			return prim, nil
		}
		v = prim
	}
	f, err := vm.ToNumber(v)
	if err != nil {
		return value.Undefined, err
	}
	return value.Number(f), nil
}

// ToString implements the ToString abstract operation.
func (vm *VM) ToString(v value.Value) (jsstring.String, error) {
	switch v.Kind() {
	case value.KindUndefined:
		return jsstring.New("undefined"), nil
	case value.KindNull:
		return jsstring.New("null"), nil
	case value.KindBool:
		if v.Bool() {
			return jsstring.New("true"), nil
		}
		return jsstring.New("false"), nil
	case value.KindInt32, value.KindFloat64:
		return jsstring.New(NumberToString(v.Float64())), nil
	case value.KindString:
		return v.String_(), nil
	case value.KindBigInt:
		return jsstring.New(v.BigInt_().String()), nil
	case value.KindSymbol:
		return jsstring.Empty, vm.throwKind(errors.KindType, "cannot convert a Symbol to a string")
	default:
		prim, err := vm.ToPrimitive(v, "string")
		if err != nil {
			return jsstring.Empty, err
		}
		return vm.ToString(prim)
	}
}

// ToInt32 / ToUint32 implement the modular integer conversions behind the
// bitwise operators.
func (vm *VM) ToInt32(v value.Value) (int32, error) {
	f, err := vm.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return toInt32(f), nil
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(math.Trunc(f))))
}

func (vm *VM) ToUint32(v value.Value) (uint32, error) {
	f, err := vm.ToNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, nil
	}
	return uint32(int64(math.Trunc(f))), nil
}

// NumberToString implements the ECMAScript Number-to-String algorithm
// (spec.md §6 "observable bit-exact surfaces"): shortest round-tripping
// digits, fixed notation for exponents in [-6, 20], exponent notation
// outside.
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		return "0"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	neg := ""
	if f < 0 {
		neg = "-"
		f = -f
	}
	// Shortest digits via strconv, then reformat per the spec's bounds.
	mant := strconv.FormatFloat(f, 'e', -1, 64)
	ePos := strings.IndexByte(mant, 'e')
	digits := strings.Replace(mant[:ePos], ".", "", 1)
	exp10, _ := strconv.Atoi(mant[ePos+1:])
	k := len(digits)
	n := exp10 + 1 // digits represent d.ddd * 10^exp10 -> value = 0.digits * 10^n

	switch {
	case k <= n && n <= 21:
		return neg + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return neg + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return neg + "0." + strings.Repeat("0", -n) + digits
	}
	expPart := strconv.Itoa(n - 1)
	if n-1 >= 0 {
		expPart = "+" + expPart
	}
	if k == 1 {
		return neg + digits + "e" + expPart
	}
	return neg + digits[:1] + "." + digits[1:] + "e" + expPart
}

// ---- operators ----

// Add implements the full `+` semantics: ToPrimitive both sides, string
// concatenation if either is a string, BigInt addition if both are BigInts,
// numeric addition otherwise (spec.md §4.3 Add).
func (vm *VM) Add(a, b value.Value) (value.Value, error) {
	pa, err := vm.ToPrimitive(a, "default")
	if err != nil {
		return value.Undefined, err
	}
	pb, err := vm.ToPrimitive(b, "default")
	if err != nil {
		return value.Undefined, err
	}
	if pa.IsString() || pb.IsString() {
		sa, err := vm.ToString(pa)
		if err != nil {
			return value.Undefined, err
		}
		sb, err := vm.ToString(pb)
		if err != nil {
			return value.Undefined, err
		}
		return value.String(sa.Concat(sb)), nil
	}
	if pa.IsBigInt() || pb.IsBigInt() {
		if !pa.IsBigInt() || !pb.IsBigInt() {
			return value.Undefined, vm.throwKind(errors.KindType, "cannot mix BigInt and other types, use explicit conversions")
		}
		return value.BigInt(pa.BigInt_().Add(pb.BigInt_())), nil
	}
	fa, err := vm.ToNumber(pa)
	if err != nil {
		return value.Undefined, err
	}
	fb, err := vm.ToNumber(pb)
	if err != nil {
		return value.Undefined, err
	}
	return value.Number(fa + fb), nil
}

// numericBinop dispatches -, *, /, %, ** over Number and BigInt operands.
func (vm *VM) numericBinop(op string, a, b value.Value) (value.Value, error) {
	na, err := vm.ToNumeric(a)
	if err != nil {
		return value.Undefined, err
	}
	nb, err := vm.ToNumeric(b)
	if err != nil {
		return value.Undefined, err
	}
	if na.IsBigInt() != nb.IsBigInt() {
		return value.Undefined, vm.throwKind(errors.KindType, "cannot mix BigInt and other types, use explicit conversions")
	}
	if na.IsBigInt() {
		return vm.bigintBinop(op, na.BigInt_(), nb.BigInt_())
	}
	x, y := na.Float64(), nb.Float64()
	switch op {
	case "-":
		return value.Number(x - y), nil
	case "*":
		return value.Number(x * y), nil
	case "/":
		return value.Number(x / y), nil
	case "%":
		return value.Number(math.Mod(x, y)), nil
	case "**":
		return value.Number(math.Pow(x, y)), nil
	}
	return value.Undefined, vm.throwKind(errors.KindType, "unknown numeric operator %s", op)
}

func (vm *VM) bigintBinop(op string, x, y bigint.Int) (value.Value, error) {
	switch op {
	case "-":
		return value.BigInt(x.Sub(y)), nil
	case "*":
		return value.BigInt(x.Mul(y)), nil
	case "/":
		r, err := x.Div(y)
		if err != nil {
			return value.Undefined, vm.throwKind(errors.KindRange, "division by zero")
		}
		return value.BigInt(r), nil
	case "%":
		r, err := x.Mod(y)
		if err != nil {
			return value.Undefined, vm.throwKind(errors.KindRange, "division by zero")
		}
		return value.BigInt(r), nil
	case "**":
		r, err := x.Pow(y)
		if err != nil {
			return value.Undefined, vm.throwKind(errors.KindRange, "%v", err)
		}
		return value.BigInt(r), nil
	}
	return value.Undefined, vm.throwKind(errors.KindType, "unknown BigInt operator %s", op)
}

// bitwiseBinop dispatches &, |, ^, <<, >>, >>> over int32/uint32 (or BigInt
// for everything but >>>).
func (vm *VM) bitwiseBinop(op string, a, b value.Value) (value.Value, error) {
	na, err := vm.ToNumeric(a)
	if err != nil {
		return value.Undefined, err
	}
	nb, err := vm.ToNumeric(b)
	if err != nil {
		return value.Undefined, err
	}
	if na.IsBigInt() || nb.IsBigInt() {
		if !na.IsBigInt() || !nb.IsBigInt() {
			return value.Undefined, vm.throwKind(errors.KindType, "cannot mix BigInt and other types, use explicit conversions")
		}
		x, y := na.BigInt_(), nb.BigInt_()
		switch op {
		case "&":
			return value.BigInt(x.BitAnd(y)), nil
		case "|":
			return value.BigInt(x.BitOr(y)), nil
		case "^":
			return value.BigInt(x.BitXor(y)), nil
		case "<<":
			if y.Sign() < 0 {
				return value.BigInt(x.Shr(uint(-y.Float64()))), nil
			}
			return value.BigInt(x.Shl(uint(y.Float64()))), nil
		case ">>":
			if y.Sign() < 0 {
				return value.BigInt(x.Shl(uint(-y.Float64()))), nil
			}
			return value.BigInt(x.Shr(uint(y.Float64()))), nil
		case ">>>":
			return value.Undefined, vm.throwKind(errors.KindType, "BigInts have no unsigned right shift")
		}
	}
	xi := toInt32(na.Float64())
	yi := uint32(toInt32(nb.Float64())) & 31
	switch op {
	case "&":
		return value.Int32(xi & toInt32(nb.Float64())), nil
	case "|":
		return value.Int32(xi | toInt32(nb.Float64())), nil
	case "^":
		return value.Int32(xi ^ toInt32(nb.Float64())), nil
	case "<<":
		return value.Int32(xi << yi), nil
	case ">>":
		return value.Int32(xi >> yi), nil
	case ">>>":
		xu := uint32(xi)
		return value.Number(float64(xu >> yi)), nil
	}
	return value.Undefined, vm.throwKind(errors.KindType, "unknown bitwise operator %s", op)
}

// lessThan implements the abstract relational comparison, returning
// (result, undefinedResult) the four relational operators interpret.
func (vm *VM) lessThan(a, b value.Value) (bool, bool, error) {
	pa, err := vm.ToPrimitive(a, "number")
	if err != nil {
		return false, false, err
	}
	pb, err := vm.ToPrimitive(b, "number")
	if err != nil {
		return false, false, err
	}
	if pa.IsString() && pb.IsString() {
		return pa.String_().Compare(pb.String_()) < 0, false, nil
	}
	if pa.IsBigInt() && pb.IsBigInt() {
		return pa.BigInt_().Cmp(pb.BigInt_()) < 0, false, nil
	}
	if pa.IsBigInt() || pb.IsBigInt() {
		var fa, fb float64
		if pa.IsBigInt() {
			fa = pa.BigInt_().Float64()
		} else {
			fa, err = vm.ToNumber(pa)
			if err != nil {
				return false, false, err
			}
		}
		if pb.IsBigInt() {
			fb = pb.BigInt_().Float64()
		} else {
			fb, err = vm.ToNumber(pb)
			if err != nil {
				return false, false, err
			}
		}
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return false, true, nil
		}
		return fa < fb, false, nil
	}
	fa, err := vm.ToNumber(pa)
	if err != nil {
		return false, false, err
	}
	fb, err := vm.ToNumber(pb)
	if err != nil {
		return false, false, err
	}
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return false, true, nil
	}
	return fa < fb, false, nil
}

// looseEquals implements the == abstract equality comparison, including the
// BigInt/Number/String bridging cases.
func (vm *VM) looseEquals(a, b value.Value) (bool, error) {
	if a.Kind() == b.Kind() || (a.IsNumber() && b.IsNumber()) {
		return value.StrictEquals(a, b), nil
	}
	switch {
	case a.IsNullish() && b.IsNullish():
		return true, nil
	case a.IsNullish() || b.IsNullish():
		return false, nil
	case a.IsNumber() && b.IsString():
		return a.Float64() == stringToNumber(b.String_().GoString()), nil
	case a.IsString() && b.IsNumber():
		return stringToNumber(a.String_().GoString()) == b.Float64(), nil
	case a.IsBigInt() && b.IsString():
		n, ok := bigint.Parse(b.String_().GoString(), 10)
		return ok && a.BigInt_().Cmp(n) == 0, nil
	case a.IsString() && b.IsBigInt():
		return vm.looseEquals(b, a)
	case a.IsBool():
		return vm.looseEquals(value.Number(boolToFloat(a.Bool())), b)
	case b.IsBool():
		return vm.looseEquals(a, value.Number(boolToFloat(b.Bool())))
	case a.IsBigInt() && b.IsNumber():
		f := b.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return false, nil
		}
		return a.BigInt_().Float64() == f, nil
	case a.IsNumber() && b.IsBigInt():
		return vm.looseEquals(b, a)
	case a.Kind() == value.KindObject && (b.IsNumber() || b.IsString() || b.IsBigInt() || b.IsSymbol()):
		pa, err := vm.ToPrimitive(a, "default")
		if err != nil {
			return false, err
		}
		return vm.looseEquals(pa, b)
	case b.Kind() == value.KindObject && (a.IsNumber() || a.IsString() || a.IsBigInt() || a.IsSymbol()):
		pb, err := vm.ToPrimitive(b, "default")
		if err != nil {
			return false, err
		}
		return vm.looseEquals(a, pb)
	}
	return false, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// typeofValue implements the typeof operator's string result, including the
// callable-object "function" case.
func (vm *VM) typeofValue(v value.Value) string {
	return v.TypeOf()
}

// negate implements unary minus over Number and BigInt.
func (vm *VM) negate(v value.Value) (value.Value, error) {
	n, err := vm.ToNumeric(v)
	if err != nil {
		return value.Undefined, err
	}
	if n.IsBigInt() {
		return value.BigInt(n.BigInt_().Neg()), nil
	}
	return value.Number(-n.Float64()), nil
}

// bitNot implements unary ~ over Number and BigInt.
func (vm *VM) bitNot(v value.Value) (value.Value, error) {
	n, err := vm.ToNumeric(v)
	if err != nil {
		return value.Undefined, err
	}
	if n.IsBigInt() {
		return value.BigInt(n.BigInt_().BitNot()), nil
	}
	return value.Int32(^toInt32(n.Float64())), nil
}

// stepNumeric adds delta (+1/-1) to an already-ToNumeric'd value, shared by
// the ++/-- member-expression fast paths.
func (vm *VM) stepNumeric(n value.Value, delta int) (value.Value, error) {
	if n.IsBigInt() {
		d := bigint.FromInt64(int64(delta))
		return value.BigInt(n.BigInt_().Add(d)), nil
	}
	return value.Number(n.Float64() + float64(delta)), nil
}
