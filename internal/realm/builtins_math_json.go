package realm

import (
	"math"
	"math/rand"
	"strings"

	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/helpers"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/parser"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// installMathIntrinsics wires %Math%. Arithmetic goes through
// helpers.F64, the teacher's FMA-defeating float wrapper, so results are
// identical across architectures (the same determinism concern that file
// documents for esbuild's own constant folding).
func (r *Realm) installMathIntrinsics() {
	v := r.VM
	mathObj := v.NewObject(r.intr.ObjectProto)
	r.global("Math", value.Object(mathObj))

	v.DefineHiddenProperty(mathObj, mathObj.Key("PI"), value.Number(math.Pi))
	v.DefineHiddenProperty(mathObj, mathObj.Key("E"), value.Number(math.E))
	v.DefineHiddenProperty(mathObj, mathObj.Key("LN2"), value.Number(math.Ln2))
	v.DefineHiddenProperty(mathObj, mathObj.Key("SQRT2"), value.Number(math.Sqrt2))

	unary := func(name string, fn func(helpers.F64) helpers.F64) {
		r.method(mathObj, name, 1, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
			f, err := v.ToNumber(arg(args, 0))
			if err != nil {
				return value.Undefined, err
			}
			return value.Number(fn(helpers.NewF64(f)).Value()), nil
		})
	}
	unary("abs", helpers.F64.Abs)
	unary("floor", helpers.F64.Floor)
	unary("ceil", helpers.F64.Ceil)
	unary("round", func(a helpers.F64) helpers.F64 {
		// ECMAScript rounds half toward +Infinity, unlike Go's math.Round.
		f := a.Value()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return a
		}
		return helpers.NewF64(math.Floor(f + 0.5))
	})
	unary("sqrt", helpers.F64.Sqrt)
	unary("cbrt", helpers.F64.Cbrt)
	unary("sin", helpers.F64.Sin)
	unary("cos", helpers.F64.Cos)
	unary("log2", helpers.F64.Log2)
	unary("trunc", func(a helpers.F64) helpers.F64 { return helpers.NewF64(math.Trunc(a.Value())) })
	unary("sign", func(a helpers.F64) helpers.F64 {
		f := a.Value()
		switch {
		case math.IsNaN(f) || f == 0:
			return a
		case f > 0:
			return helpers.NewF64(1)
		default:
			return helpers.NewF64(-1)
		}
	})
	unary("log", func(a helpers.F64) helpers.F64 { return helpers.NewF64(math.Log(a.Value())) })
	unary("exp", func(a helpers.F64) helpers.F64 { return helpers.NewF64(math.Exp(a.Value())) })

	r.method(mathObj, "pow", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		a, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		b, err := v.ToNumber(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		return value.Number(helpers.NewF64(a).Pow(helpers.NewF64(b)).Value()), nil
	})
	r.method(mathObj, "atan2", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		a, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		b, err := v.ToNumber(arg(args, 1))
		if err != nil {
			return value.Undefined, err
		}
		return value.Number(helpers.NewF64(a).Atan2(helpers.NewF64(b)).Value()), nil
	})
	reduce := func(name string, init float64, pick func(a, b helpers.F64) helpers.F64) {
		r.method(mathObj, name, 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
			acc := helpers.NewF64(init)
			for _, a := range args {
				f, err := v.ToNumber(a)
				if err != nil {
					return value.Undefined, err
				}
				if math.IsNaN(f) {
					return value.Number(math.NaN()), nil
				}
				acc = pick(acc, helpers.NewF64(f))
			}
			return value.Number(acc.Value()), nil
		})
	}
	reduce("max", math.Inf(-1), helpers.Max2)
	reduce("min", math.Inf(1), helpers.Min2)
	r.method(mathObj, "random", 0, func(v *vm.VM, _ value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(rand.Float64()), nil
	})
	r.method(mathObj, "hypot", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		sum := helpers.NewF64(0)
		for _, a := range args {
			f, err := v.ToNumber(a)
			if err != nil {
				return value.Undefined, err
			}
			sum = sum.Add(helpers.NewF64(f).Squared())
		}
		return value.Number(sum.Sqrt().Value()), nil
	})
}

// installJSONIntrinsics wires %JSON%: parse through the shared
// parser.ParseJSON (JSON reuses the engine's own Expr nodes, the teacher's
// json_parser design) and stringify through helpers.QuoteForJSON, which
// already escapes lone surrogates as \uDXXX per spec.md §9's open-question
// resolution.
func (r *Realm) installJSONIntrinsics() {
	v := r.VM
	jsonObj := v.NewObject(r.intr.ObjectProto)
	r.global("JSON", value.Object(jsonObj))

	r.method(jsonObj, "parse", 2, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		src, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		expr, err := parser.ParseJSON(src.GoString())
		if err != nil {
			return value.Undefined, r.VM.ThrowTyped(errors.KindSyntax, "%v", err)
		}
		return r.jsonExprToValue(expr)
	})
	r.method(jsonObj, "stringify", 3, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		indent, err := r.jsonIndent(arg(args, 2))
		if err != nil {
			return value.Undefined, err
		}
		var sb strings.Builder
		ok, err := r.jsonStringify(&sb, arg(args, 0), indent, "")
		if err != nil {
			return value.Undefined, err
		}
		if !ok {
			return value.Undefined, nil
		}
		return stringValue(sb.String()), nil
	})
}

func (r *Realm) jsonExprToValue(e ast.Expr) (value.Value, error) {
	v := r.VM
	switch n := e.(type) {
	case *ast.ENull:
		return value.Null, nil
	case *ast.EBoolean:
		return value.Bool(n.Value), nil
	case *ast.ENumber:
		return value.Number(n.Value), nil
	case *ast.EString:
		return value.String(jsstring.FromUTF16(n.Value)), nil
	case *ast.EArray:
		arr := v.NewArrayObject()
		for _, item := range n.Items {
			iv, err := r.jsonExprToValue(item)
			if err != nil {
				return value.Undefined, err
			}
			r.arrayPush(arr, iv)
		}
		return value.Object(arr), nil
	case *ast.EObject:
		o := v.NewObject(r.intr.ObjectProto)
		for _, p := range n.Properties {
			key := jsstring.FromUTF16(p.Key.(*ast.EString).Value)
			pv, err := r.jsonExprToValue(p.Value)
			if err != nil {
				return value.Undefined, err
			}
			if err := v.DefineDataProperty(o, o.Key(key.GoString()), pv); err != nil {
				return value.Undefined, err
			}
		}
		return value.Object(o), nil
	}
	return value.Undefined, r.throwType("unexpected JSON node")
}

func (r *Realm) jsonIndent(space value.Value) (string, error) {
	switch {
	case space.IsNumber():
		n := int(space.Float64())
		if n > 10 {
			n = 10
		}
		if n < 1 {
			return "", nil
		}
		return strings.Repeat(" ", n), nil
	case space.IsString():
		s := space.String_().GoString()
		if len(s) > 10 {
			s = s[:10]
		}
		return s, nil
	}
	return "", nil
}

// jsonStringify serializes one value; returns ok=false for values JSON
// omits (undefined, functions, symbols).
func (r *Realm) jsonStringify(sb *strings.Builder, val value.Value, indent, current string) (bool, error) {
	v := r.VM

	// Honor toJSON before anything else (Date relies on it).
	if o, ok := asObj(val); ok {
		toJSON, err := o.VTable().Get(o, v, o.Key("toJSON"), val)
		if err != nil {
			return false, err
		}
		if fo, ok := asObj(toJSON); ok && fo.IsCallable() {
			val, err = v.Call(toJSON, value.Object(o), nil)
			if err != nil {
				return false, err
			}
		}
	}

	switch val.Kind() {
	case value.KindNull:
		sb.WriteString("null")
		return true, nil
	case value.KindBool:
		if val.Bool() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
		return true, nil
	case value.KindInt32, value.KindFloat64:
		f := val.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			sb.WriteString("null")
		} else {
			sb.WriteString(vm.NumberToString(f))
		}
		return true, nil
	case value.KindString:
		sb.Write(helpers.QuoteForJSON(val.String_().GoString(), false))
		return true, nil
	case value.KindBigInt:
		return false, r.throwType("do not know how to serialize a BigInt")
	case value.KindObject:
		o, _ := asObj(val)
		if o.IsCallable() {
			return false, nil
		}
		inner := current + indent
		open, closing := "", ""
		if indent != "" {
			open = "\n" + inner
			closing = "\n" + current
		}
		if o.Kind() == object.KindArray {
			d := arrayDataOf(o)
			sb.WriteString("[")
			for i := uint32(0); i < d.Length; i++ {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(open)
				item, _ := o.GetElement(i)
				ok, err := r.jsonStringify(sb, item, indent, inner)
				if err != nil {
					return false, err
				}
				if !ok {
					sb.WriteString("null")
				}
			}
			sb.WriteString(closing)
			sb.WriteString("]")
			return true, nil
		}
		keys, err := o.VTable().OwnPropertyKeys(o, v)
		if err != nil {
			return false, err
		}
		sb.WriteString("{")
		first := true
		for _, k := range keys {
			if k.IsSym {
				continue
			}
			desc, present, err := o.VTable().GetOwnProperty(o, v, k)
			if err != nil {
				return false, err
			}
			if !present || !desc.Enumerable {
				continue
			}
			item, err := o.VTable().Get(o, v, k, val)
			if err != nil {
				return false, err
			}
			var itemSB strings.Builder
			ok, err := r.jsonStringify(&itemSB, item, indent, inner)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			if !first {
				sb.WriteString(",")
			}
			first = false
			sb.WriteString(open)
			sb.Write(helpers.QuoteForJSON(k.Text, false))
			sb.WriteString(":")
			if indent != "" {
				sb.WriteString(" ")
			}
			sb.WriteString(itemSB.String())
		}
		if !first {
			sb.WriteString(closing)
		}
		sb.WriteString("}")
		return true, nil
	}
	return false, nil
}
