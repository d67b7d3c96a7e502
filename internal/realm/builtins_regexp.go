package realm

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// regExpData is the kind-specific payload of a RegExp object. The match
// engine is github.com/dlclark/regexp2 in ECMAScript mode -- Go's standard
// regexp is RE2-syntax and cannot express backreferences or lookbehind,
// both part of the spec.md §6 RegExp surface.
type regExpData struct {
	re        *regexp2.Regexp
	source    string
	flags     string
	global    bool
	sticky    bool
	hasIndices bool
	lastIndex int
}

// newRegExpObject compiles a pattern/flags pair into a RegExp object,
// validating the flag set {d,g,i,m,s,u,v,y} (spec.md §6).
func (r *Realm) newRegExpObject(pattern, flags string) (*object.Object, error) {
	var opts regexp2.RegexOptions = regexp2.ECMAScript
	d := &regExpData{source: pattern, flags: flags}
	seen := map[rune]bool{}
	for _, c := range flags {
		if seen[c] {
			return nil, r.VM.ThrowTyped(errors.KindSyntax, "invalid regular expression flags")
		}
		seen[c] = true
		switch c {
		case 'd':
			d.hasIndices = true
		case 'g':
			d.global = true
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'u', 'v':
			opts |= regexp2.Unicode
		case 'y':
			d.sticky = true
		default:
			return nil, r.VM.ThrowTyped(errors.KindSyntax, "invalid regular expression flag '%c'", c)
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, r.VM.ThrowTyped(errors.KindSyntax, "invalid regular expression: %v", err)
	}
	d.re = re

	o := r.VM.NewObject(r.intr.RegExpProto)
	o.SetKind(object.KindRegExp)
	o.SetData(d)
	return o, nil
}

func (r *Realm) thisRegExp(this value.Value) (*object.Object, *regExpData, error) {
	o, ok := asObj(this)
	if !ok || o.Kind() != object.KindRegExp {
		return nil, nil, r.throwType("receiver is not a RegExp")
	}
	return o, o.Data().(*regExpData), nil
}

func (r *Realm) installRegExpIntrinsics() {
	v := r.VM
	proto := r.intr.RegExpProto

	r.ctor("RegExp", 2, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		pattern := ""
		flags := ""
		if src := arg(args, 0); !src.IsUndefined() {
			if ro, ok := asObj(src); ok && ro.Kind() == object.KindRegExp {
				d := ro.Data().(*regExpData)
				pattern, flags = d.source, d.flags
			} else {
				s, err := v.ToString(src)
				if err != nil {
					return value.Undefined, err
				}
				pattern = s.GoString()
			}
		}
		if fv := arg(args, 1); !fv.IsUndefined() {
			s, err := v.ToString(fv)
			if err != nil {
				return value.Undefined, err
			}
			flags = s.GoString()
		}
		o, err := r.newRegExpObject(pattern, flags)
		if err != nil {
			return value.Undefined, err
		}
		return value.Object(o), nil
	})

	accessor := func(name string, get func(d *regExpData) value.Value) {
		getter := v.NewNativeFunction("get "+name, 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
			_, d, err := r.thisRegExp(this)
			if err != nil {
				return value.Undefined, err
			}
			return get(d), nil
		})
		proto.VTable().DefineOwnProperty(proto, v, proto.Key(name), object.Descriptor{
			Get: value.Object(getter), Set: value.Undefined,
			HasGet: true, HasSet: true,
			Enumerable: false, Configurable: true,
			HasEnumerable: true, HasConfigurable: true,
		})
	}
	accessor("source", func(d *regExpData) value.Value { return stringValue(d.source) })
	accessor("flags", func(d *regExpData) value.Value { return stringValue(d.flags) })
	accessor("global", func(d *regExpData) value.Value { return value.Bool(d.global) })
	accessor("sticky", func(d *regExpData) value.Value { return value.Bool(d.sticky) })
	accessor("hasIndices", func(d *regExpData) value.Value { return value.Bool(d.hasIndices) })

	// lastIndex is a writable data property per spec; modeled as an
	// accessor over the payload so exec's clamping stays in one place.
	lastIndexGetter := v.NewNativeFunction("get lastIndex", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		_, d, err := r.thisRegExp(this)
		if err != nil {
			return value.Undefined, err
		}
		return value.Int32(int32(d.lastIndex)), nil
	})
	lastIndexSetter := v.NewNativeFunction("set lastIndex", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		_, d, err := r.thisRegExp(this)
		if err != nil {
			return value.Undefined, err
		}
		f, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		d.lastIndex = int(f)
		return value.Undefined, nil
	})
	proto.VTable().DefineOwnProperty(proto, v, proto.Key("lastIndex"), object.Descriptor{
		Get: value.Object(lastIndexGetter), Set: value.Object(lastIndexSetter),
		HasGet: true, HasSet: true,
		Enumerable: false, Configurable: false,
		HasEnumerable: true, HasConfigurable: true,
	})

	r.method(proto, "exec", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		_, d, err := r.thisRegExp(this)
		if err != nil {
			return value.Undefined, err
		}
		input, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		return r.regExpExec(d, input.GoString())
	})
	r.method(proto, "test", 1, func(v *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		_, d, err := r.thisRegExp(this)
		if err != nil {
			return value.Undefined, err
		}
		input, err := v.ToString(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		res, err := r.regExpExec(d, input.GoString())
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(!res.IsNull()), nil
	})
	r.method(proto, "toString", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		_, d, err := r.thisRegExp(this)
		if err != nil {
			return value.Undefined, err
		}
		return stringValue("/" + d.source + "/" + d.flags), nil
	})
}

// regExpExec implements RegExpBuiltinExec: lastIndex handling for global/
// sticky patterns -- clamped to [0, len] after each exec (spec.md §3
// invariant) -- plus the match-result array with .index, .input, .groups,
// and, under the d flag, .indices (SUPPLEMENTED FEATURES).
func (r *Realm) regExpExec(d *regExpData, input string) (value.Value, error) {
	v := r.VM
	start := 0
	if d.global || d.sticky {
		start = d.lastIndex
		if start < 0 || start > len(input) {
			d.lastIndex = 0
			return value.Null, nil
		}
	}
	m, err := d.re.FindStringMatchStartingAt(input, start)
	if err != nil {
		return value.Undefined, r.throwType("regular expression execution failed: %v", err)
	}
	if m != nil && d.sticky && m.Index != start {
		m = nil
	}
	if m == nil {
		if d.global || d.sticky {
			d.lastIndex = 0
		}
		return value.Null, nil
	}
	if d.global || d.sticky {
		d.lastIndex = m.Index + m.Length
		if d.lastIndex > len(input) {
			d.lastIndex = len(input)
		}
		if d.lastIndex < 0 {
			d.lastIndex = 0
		}
	}

	groups := m.Groups()
	result := v.NewArrayObject()
	indices := v.NewArrayObject()
	namedGroups := v.NewObject(r.intr.ObjectProto)
	hasNamed := false
	for i, g := range groups {
		if len(g.Captures) == 0 {
			r.arrayPush(result, value.Undefined)
			r.arrayPush(indices, value.Undefined)
		} else {
			c := g.Captures[0]
			r.arrayPush(result, stringValue(c.String()))
			r.arrayPush(indices, value.Object(v.NewArrayOf(
				value.Int32(int32(c.Index)), value.Int32(int32(c.Index+c.Length)))))
		}
		// Positional groups are named by their number in regexp2; anything
		// else is a named capture.
		if i > 0 && !isNumericName(g.Name) {
			hasNamed = true
			val := value.Undefined
			if len(g.Captures) > 0 {
				val = stringValue(g.Captures[0].String())
			}
			v.DefineDataProperty(namedGroups, namedGroups.Key(g.Name), val)
		}
	}
	v.DefineDataProperty(result, result.Key("index"), value.Int32(int32(m.Index)))
	v.DefineDataProperty(result, result.Key("input"), stringValue(input))
	if hasNamed {
		v.DefineDataProperty(result, result.Key("groups"), value.Object(namedGroups))
	} else {
		v.DefineDataProperty(result, result.Key("groups"), value.Undefined)
	}
	if d.hasIndices {
		v.DefineDataProperty(result, result.Key("indices"), value.Object(indices))
	}
	return value.Object(result), nil
}

func isNumericName(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(c rune) bool { return c < '0' || c > '9' }) < 0
}
