package realm

import (
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// installErrorIntrinsics wires the %Error% hierarchy of spec.md §6: a base
// Error plus the six NativeError constructors and AggregateError, each with
// its own prototype chaining to %Error.prototype%.
func (r *Realm) installErrorIntrinsics() {
	v := r.VM

	baseProto := v.NewObject(r.intr.ObjectProto)
	r.method(baseProto, "toString", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		o, ok := asObj(this)
		if !ok {
			return value.Undefined, r.throwType("Error.prototype.toString requires an object receiver")
		}
		nameV, err := v.GetProperty(value.Object(o), o.Key("name"))
		if err != nil {
			return value.Undefined, err
		}
		msgV, err := v.GetProperty(value.Object(o), o.Key("message"))
		if err != nil {
			return value.Undefined, err
		}
		name := "Error"
		if !nameV.IsUndefined() {
			s, err := v.ToString(nameV)
			if err != nil {
				return value.Undefined, err
			}
			name = s.GoString()
		}
		msg := ""
		if !msgV.IsUndefined() {
			s, err := v.ToString(msgV)
			if err != nil {
				return value.Undefined, err
			}
			msg = s.GoString()
		}
		switch {
		case msg == "":
			return stringValue(name), nil
		case name == "":
			return stringValue(msg), nil
		}
		return stringValue(name + ": " + msg), nil
	})
	v.DefineHiddenProperty(baseProto, baseProto.Key("name"), stringValue("Error"))
	v.DefineHiddenProperty(baseProto, baseProto.Key("message"), stringValue(""))

	makeCtor := func(name string, proto *object.Object) *object.Object {
		return r.ctor(name, 1, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
			o := v.NewObject(proto)
			o.SetKind(object.KindError)
			if msg := arg(args, 0); !msg.IsUndefined() {
				s, err := v.ToString(msg)
				if err != nil {
					return value.Undefined, err
				}
				v.DefineHiddenProperty(o, o.Key("message"), value.String(s))
			}
			if opts, ok := asObj(arg(args, 1)); ok {
				has, err := opts.VTable().HasProperty(opts, v, opts.Key("cause"))
				if err != nil {
					return value.Undefined, err
				}
				if has {
					cause, err := v.GetProperty(arg(args, 1), opts.Key("cause"))
					if err != nil {
						return value.Undefined, err
					}
					v.DefineHiddenProperty(o, o.Key("cause"), cause)
				}
			}
			v.DefineHiddenProperty(o, o.Key("stack"), stringValue(name+"\n"+v.CaptureStack()))
			return value.Object(o), nil
		})
	}

	errorCtor := makeCtor("Error", baseProto)
	r.errorProtos[errors.KindUserThrown] = baseProto
	r.errorProtos[errors.KindHost] = baseProto
	r.errorCtors["Error"] = errorCtor

	derived := []struct {
		name string
		kind errors.Kind
		keep bool
	}{
		{"TypeError", errors.KindType, true},
		{"RangeError", errors.KindRange, true},
		{"ReferenceError", errors.KindReference, true},
		{"SyntaxError", errors.KindSyntax, true},
		{"EvalError", errors.KindUserThrown, false},
		{"URIError", errors.KindUserThrown, false},
		{"AggregateError", errors.KindUserThrown, false},
	}
	for _, d := range derived {
		proto := v.NewObject(baseProto)
		v.DefineHiddenProperty(proto, proto.Key("name"), stringValue(d.name))
		ctor := makeCtor(d.name, proto)
		ctor.VTable().SetPrototypeOf(ctor, v, errorCtor)
		if d.keep {
			r.errorProtos[d.kind] = proto
		}
		r.errorCtors[d.name] = ctor
	}
}

// NewAggregateError builds the AggregateError Promise.any rejects with
// (spec.md §4.7).
func (r *Realm) NewAggregateError(errs []value.Value, msg string) *object.Object {
	v := r.VM
	ctor := r.errorCtors["AggregateError"]
	protoV, _ := v.GetProperty(value.Object(ctor), ctor.Key("prototype"))
	proto, _ := asObj(protoV)
	o := v.NewObject(proto)
	o.SetKind(object.KindError)
	v.DefineHiddenProperty(o, o.Key("message"), stringValue(msg))
	v.DefineHiddenProperty(o, o.Key("errors"), value.Object(v.NewArrayOf(errs...)))
	v.DefineHiddenProperty(o, o.Key("stack"), stringValue("AggregateError: "+msg+"\n"+v.CaptureStack()))
	return o
}
