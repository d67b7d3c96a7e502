package realm

import (
	"math"
	"strconv"
	"strings"

	"github.com/BasixKOR/boa/internal/bigint"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// thisString coerces a method receiver to the wrapped or primitive string.
func (r *Realm) thisString(this value.Value) (jsstring.String, error) {
	if this.IsString() {
		return this.String_(), nil
	}
	if o, ok := asObj(this); ok && o.Kind() == object.KindString {
		return o.Data().(*object.StringData).Value, nil
	}
	s, err := r.VM.ToString(this)
	return s, err
}

func (r *Realm) installStringIntrinsics() {
	proto := r.intr.StringProto

	r.ctor("String", 1, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return stringValue(""), nil
		}
		if args[0].IsSymbol() {
			sym := args[0].Symbol_()
			if sym.HasDesc {
				return stringValue("Symbol(" + sym.Description.GoString() + ")"), nil
			}
			return stringValue("Symbol()"), nil
		}
		s, err := v.ToString(args[0])
		if err != nil {
			return value.Undefined, err
		}
		return value.String(s), nil
	})

	strMethod := func(name string, length int, fn func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error)) {
		r.method(proto, name, length, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
			s, err := r.thisString(this)
			if err != nil {
				return value.Undefined, err
			}
			return fn(v, s, args)
		})
	}

	strMethod("charCodeAt", 1, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		i, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		idx := int(i)
		if math.IsNaN(i) {
			idx = 0
		}
		if idx < 0 || idx >= s.Length() {
			return value.Number(math.NaN()), nil
		}
		return value.Int32(int32(s.CharCodeAt(idx))), nil
	})
	strMethod("codePointAt", 1, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		i, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		idx := int(i)
		if idx < 0 || idx >= s.Length() {
			return value.Undefined, nil
		}
		cp, _ := s.CodePointAt(idx)
		return value.Number(float64(cp)), nil
	})
	strMethod("charAt", 1, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		i, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		idx := int(i)
		if idx < 0 || idx >= s.Length() {
			return stringValue(""), nil
		}
		return value.String(s.Slice(idx, idx+1)), nil
	})
	strMethod("slice", 2, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		start, end, err := r.sliceBounds(args, s.Length())
		if err != nil {
			return value.Undefined, err
		}
		return value.String(s.Slice(start, end)), nil
	})
	strMethod("substring", 2, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		start, end, err := r.sliceBounds(args, s.Length())
		if err != nil {
			return value.Undefined, err
		}
		return value.String(s.Slice(start, end)), nil
	})
	strMethod("indexOf", 1, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		needle, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		return value.Int32(int32(strings.Index(s.GoString(), needle.GoString()))), nil
	})
	strMethod("includes", 1, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		needle, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(strings.Contains(s.GoString(), needle.GoString())), nil
	})
	strMethod("startsWith", 1, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		needle, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(strings.HasPrefix(s.GoString(), needle.GoString())), nil
	})
	strMethod("endsWith", 1, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		needle, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(strings.HasSuffix(s.GoString(), needle.GoString())), nil
	})
	strMethod("split", 2, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		sep := arg(args, 0)
		if sep.IsUndefined() {
			return value.Object(v.NewArrayOf(value.String(s))), nil
		}
		sepS, err := v.ToString(sep)
		if err != nil {
			return value.Undefined, err
		}
		parts := strings.Split(s.GoString(), sepS.GoString())
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = stringValue(p)
		}
		return value.Object(v.NewArrayOf(out...)), nil
	})
	strMethod("repeat", 1, func(v *vm.VM, s jsstring.String, args []value.Value) (value.Value, error) {
		n, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		if n < 0 || math.IsInf(n, 0) {
			return value.Undefined, r.throwRange("invalid count value")
		}
		return stringValue(strings.Repeat(s.GoString(), int(n))), nil
	})
	strMethod("trim", 0, func(v *vm.VM, s jsstring.String, _ []value.Value) (value.Value, error) {
		return stringValue(strings.TrimSpace(s.GoString())), nil
	})
	strMethod("toLowerCase", 0, func(v *vm.VM, s jsstring.String, _ []value.Value) (value.Value, error) {
		return stringValue(strings.ToLower(s.GoString())), nil
	})
	strMethod("toUpperCase", 0, func(v *vm.VM, s jsstring.String, _ []value.Value) (value.Value, error) {
		return stringValue(strings.ToUpper(s.GoString())), nil
	})
	strMethod("isWellFormed", 0, func(v *vm.VM, s jsstring.String, _ []value.Value) (value.Value, error) {
		return value.Bool(s.IsWellFormed()), nil
	})
	strMethod("toString", 0, func(v *vm.VM, s jsstring.String, _ []value.Value) (value.Value, error) {
		return value.String(s), nil
	})
	strMethod("valueOf", 0, func(v *vm.VM, s jsstring.String, _ []value.Value) (value.Value, error) {
		return value.String(s), nil
	})

	// Strings iterate by code point, pairing surrogates (spec.md §3).
	r.symbolMethod(proto, r.intr.SymbolIterator, "[Symbol.iterator]", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		s, err := r.thisString(this)
		if err != nil {
			return value.Undefined, err
		}
		i := 0
		return r.makeIteratorObject(func() (value.Value, bool, error) {
			if i >= s.Length() {
				return value.Undefined, true, nil
			}
			_, width := s.CodePointAt(i)
			part := s.Slice(i, i+width)
			i += width
			return value.String(part), false, nil
		}), nil
	})
}

func (r *Realm) installNumberIntrinsics() {
	proto := r.intr.NumberProto

	numberCtor := r.ctor("Number", 1, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Int32(0), nil
		}
		if args[0].IsBigInt() {
			return value.Number(args[0].BigInt_().Float64()), nil
		}
		f, err := v.ToNumber(args[0])
		if err != nil {
			return value.Undefined, err
		}
		return value.Number(f), nil
	})
	v := r.VM
	v.DefineHiddenProperty(numberCtor, numberCtor.Key("MAX_SAFE_INTEGER"), value.Number(1<<53-1))
	v.DefineHiddenProperty(numberCtor, numberCtor.Key("MIN_SAFE_INTEGER"), value.Number(-(1<<53 - 1)))
	v.DefineHiddenProperty(numberCtor, numberCtor.Key("EPSILON"), value.Number(math.Nextafter(1, 2)-1))
	v.DefineHiddenProperty(numberCtor, numberCtor.Key("POSITIVE_INFINITY"), value.Number(math.Inf(1)))
	v.DefineHiddenProperty(numberCtor, numberCtor.Key("NEGATIVE_INFINITY"), value.Number(math.Inf(-1)))
	v.DefineHiddenProperty(numberCtor, numberCtor.Key("NaN"), value.Number(math.NaN()))
	r.method(numberCtor, "isInteger", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		a := arg(args, 0)
		if !a.IsNumber() {
			return value.False, nil
		}
		f := a.Float64()
		return value.Bool(!math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)), nil
	})
	r.method(numberCtor, "isFinite", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		a := arg(args, 0)
		return value.Bool(a.IsNumber() && !math.IsNaN(a.Float64()) && !math.IsInf(a.Float64(), 0)), nil
	})
	r.method(numberCtor, "isNaN", 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		a := arg(args, 0)
		return value.Bool(a.IsNumber() && math.IsNaN(a.Float64())), nil
	})

	// thisNumber unwraps a primitive or Number-wrapper receiver.
	thisNumber := func(this value.Value) (float64, error) {
		if this.IsNumber() {
			return this.Float64(), nil
		}
		if o, ok := asObj(this); ok {
			if nv, ok := o.Data().(value.Value); ok && nv.IsNumber() {
				return nv.Float64(), nil
			}
		}
		return 0, r.throwType("Number.prototype method called on incompatible receiver")
	}

	// The four formatting methods are spec.md §6's bit-exact surfaces.
	r.method(proto, "toString", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		f, err := thisNumber(this)
		if err != nil {
			return value.Undefined, err
		}
		radix := 10
		if !arg(args, 0).IsUndefined() {
			ri, err := v.ToInt32(arg(args, 0))
			if err != nil {
				return value.Undefined, err
			}
			radix = int(ri)
		}
		if radix < 2 || radix > 36 {
			return value.Undefined, r.throwRange("toString() radix must be between 2 and 36")
		}
		if radix == 10 {
			return stringValue(vm.NumberToString(f)), nil
		}
		return stringValue(numberToRadixString(f, radix)), nil
	})
	r.method(proto, "toFixed", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		f, err := thisNumber(this)
		if err != nil {
			return value.Undefined, err
		}
		d, err := v.ToInt32(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		if d < 0 || d > 100 {
			return value.Undefined, r.throwRange("toFixed() digits argument must be between 0 and 100")
		}
		if math.IsNaN(f) {
			return stringValue("NaN"), nil
		}
		if math.Abs(f) >= 1e21 {
			return stringValue(vm.NumberToString(f)), nil
		}
		return stringValue(strconv.FormatFloat(f, 'f', int(d), 64)), nil
	})
	r.method(proto, "toExponential", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		f, err := thisNumber(this)
		if err != nil {
			return value.Undefined, err
		}
		digits := -1
		if !arg(args, 0).IsUndefined() {
			d, err := v.ToInt32(arg(args, 0))
			if err != nil {
				return value.Undefined, err
			}
			if d < 0 || d > 100 {
				return value.Undefined, r.throwRange("toExponential() argument must be between 0 and 100")
			}
			digits = int(d)
		}
		out := strconv.FormatFloat(f, 'e', digits, 64)
		return stringValue(normalizeExponent(out)), nil
	})
	r.method(proto, "toPrecision", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		f, err := thisNumber(this)
		if err != nil {
			return value.Undefined, err
		}
		if arg(args, 0).IsUndefined() {
			return stringValue(vm.NumberToString(f)), nil
		}
		p, err := v.ToInt32(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		if p < 1 || p > 100 {
			return value.Undefined, r.throwRange("toPrecision() argument must be between 1 and 100")
		}
		return stringValue(numberToPrecisionString(f, int(p))), nil
	})
	r.method(proto, "valueOf", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		f, err := thisNumber(this)
		if err != nil {
			return value.Undefined, err
		}
		return value.Number(f), nil
	})
}

// normalizeExponent rewrites Go's "1e+05" exponent form into ECMAScript's
// "1e+5" (no leading zeros in the exponent).
func normalizeExponent(s string) string {
	i := strings.IndexAny(s, "eE")
	if i < 0 {
		return s
	}
	mant, exp := s[:i], s[i+1:]
	sign := ""
	if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
		sign = string(exp[0])
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	if sign == "" {
		sign = "+"
	}
	return mant + "e" + sign + exp
}

// numberToPrecisionString implements Number.prototype.toPrecision's
// notation rule: fixed notation with exactly p significant digits unless
// the decimal exponent falls outside [-6, p), which switches to exponential
// (spec.md §6 bit-exact surfaces).
func numberToPrecisionString(f float64, p int) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	neg := ""
	if f < 0 {
		neg = "-"
		f = -f
	}
	if f == 0 {
		if p == 1 {
			return neg + "0"
		}
		return neg + "0." + strings.Repeat("0", p-1)
	}
	mant := strconv.FormatFloat(f, 'e', p-1, 64)
	ePos := strings.IndexByte(mant, 'e')
	digits := strings.Replace(mant[:ePos], ".", "", 1)
	e, _ := strconv.Atoi(mant[ePos+1:])
	if e < -6 || e >= p {
		return neg + normalizeExponent(mant)
	}
	switch {
	case e >= p-1:
		return neg + digits
	case e >= 0:
		return neg + digits[:e+1] + "." + digits[e+1:]
	default:
		return neg + "0." + strings.Repeat("0", -e-1) + digits
	}
}

// numberToRadixString formats an integer-valued double in a non-decimal
// radix; fractional digits are produced to double precision.
func numberToRadixString(f float64, radix int) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	neg := f < 0
	if neg {
		f = -f
	}
	intPart := math.Trunc(f)
	frac := f - intPart
	out := strconv.FormatInt(int64(intPart), radix)
	if frac > 0 {
		digits := "0123456789abcdefghijklmnopqrstuvwxyz"
		out += "."
		for i := 0; i < 20 && frac > 0; i++ {
			frac *= float64(radix)
			d := int(frac)
			out += string(digits[d])
			frac -= float64(d)
		}
	}
	if neg {
		return "-" + out
	}
	return out
}

func (r *Realm) installBooleanSymbolBigInt() {
	v := r.VM

	r.ctor("Boolean", 1, r.intr.BooleanProto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(arg(args, 0).ToBoolean()), nil
	})
	r.method(r.intr.BooleanProto, "toString", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		if this.IsBool() {
			if this.Bool() {
				return stringValue("true"), nil
			}
			return stringValue("false"), nil
		}
		if o, ok := asObj(this); ok {
			if bv, ok := o.Data().(value.Value); ok && bv.IsBool() {
				if bv.Bool() {
					return stringValue("true"), nil
				}
				return stringValue("false"), nil
			}
		}
		return value.Undefined, r.throwType("Boolean.prototype.toString called on incompatible receiver")
	})

	symbolCtor := r.ctor("Symbol", 0, r.intr.SymbolProto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		desc := jsstring.Empty
		hasDesc := false
		if a := arg(args, 0); !a.IsUndefined() {
			s, err := v.ToString(a)
			if err != nil {
				return value.Undefined, err
			}
			desc, hasDesc = s, true
		}
		return value.SymbolValue(value.NewSymbol(desc, hasDesc)), nil
	})
	v.DefineHiddenProperty(symbolCtor, symbolCtor.Key("iterator"), value.SymbolValue(r.intr.SymbolIterator))
	v.DefineHiddenProperty(symbolCtor, symbolCtor.Key("asyncIterator"), value.SymbolValue(r.intr.SymbolAsyncIterator))
	r.method(r.intr.SymbolProto, "toString", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		if !this.IsSymbol() {
			return value.Undefined, r.throwType("Symbol.prototype.toString requires a symbol receiver")
		}
		sym := this.Symbol_()
		if sym.HasDesc {
			return stringValue("Symbol(" + sym.Description.GoString() + ")"), nil
		}
		return stringValue("Symbol()"), nil
	})

	bigintCtor := r.ctor("BigInt", 1, r.intr.BigIntProto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		a := arg(args, 0)
		switch {
		case a.IsBigInt():
			return a, nil
		case a.IsNumber():
			f := a.Float64()
			if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
				return value.Undefined, r.throwRange("the number %s cannot be converted to a BigInt because it is not an integer", vm.NumberToString(f))
			}
			return value.BigInt(bigint.FromInt64(int64(f))), nil
		case a.IsString():
			b, ok := bigint.Parse(strings.TrimSpace(a.String_().GoString()), 0)
			if !ok {
				return value.Undefined, r.VM.ThrowTyped(errors.KindSyntax, "cannot convert %s to a BigInt", a.String_().GoString())
			}
			return value.BigInt(b), nil
		case a.IsBool():
			if a.Bool() {
				return value.BigInt(bigint.FromInt64(1)), nil
			}
			return value.BigInt(bigint.FromInt64(0)), nil
		}
		return value.Undefined, r.throwType("cannot convert %s to a BigInt", a.Kind().String())
	})
	r.method(bigintCtor, "asIntN", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		bits, err := v.ToUint32(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		if !arg(args, 1).IsBigInt() {
			return value.Undefined, r.throwType("BigInt.asIntN requires a BigInt")
		}
		return value.BigInt(arg(args, 1).BigInt_().AsIntN(uint(bits))), nil
	})
	r.method(bigintCtor, "asUintN", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		bits, err := v.ToUint32(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		if !arg(args, 1).IsBigInt() {
			return value.Undefined, r.throwType("BigInt.asUintN requires a BigInt")
		}
		return value.BigInt(arg(args, 1).BigInt_().AsUintN(uint(bits))), nil
	})
	r.method(r.intr.BigIntProto, "toString", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		if !this.IsBigInt() {
			return value.Undefined, r.throwType("BigInt.prototype.toString requires a BigInt receiver")
		}
		return stringValue(this.BigInt_().String()), nil
	})
}
