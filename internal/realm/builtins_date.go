package realm

import (
	"fmt"
	"math"
	"time"

	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// dateData is a Date object's payload: milliseconds since the Unix epoch,
// NaN for an invalid date.
type dateData struct {
	epochMillis float64
}

// installDateIntrinsics wires %Date% with the time-value core and the
// bit-exact ISO string surface (spec.md §6 "Date ISO string format"). The
// local-time accessors route through the host timezone hook (spec.md §6
// local_timezone_offset_seconds).
func (r *Realm) installDateIntrinsics() {
	v := r.VM
	proto := v.NewObject(r.intr.ObjectProto)

	dateCtor := r.ctor("Date", 7, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		o := v.NewObject(proto)
		o.SetKind(object.KindDate)
		var millis float64
		switch {
		case len(args) == 0:
			millis = float64(time.Now().UnixMilli())
		case len(args) == 1:
			a := args[0]
			if a.IsString() {
				t, err := time.Parse(time.RFC3339Nano, a.String_().GoString())
				if err != nil {
					millis = math.NaN()
				} else {
					millis = float64(t.UnixMilli())
				}
			} else {
				f, err := v.ToNumber(a)
				if err != nil {
					return value.Undefined, err
				}
				millis = f
			}
		default:
			parts := make([]float64, 7)
			for i := range parts {
				if i < len(args) {
					f, err := v.ToNumber(args[i])
					if err != nil {
						return value.Undefined, err
					}
					parts[i] = f
				}
			}
			if len(args) < 3 {
				parts[2] = 1
			}
			t := time.Date(int(parts[0]), time.Month(int(parts[1])+1), int(parts[2]),
				int(parts[3]), int(parts[4]), int(parts[5]), int(parts[6])*1e6, time.UTC)
			millis = float64(t.UnixMilli()) - float64(r.timezoneOffsetSeconds(t.Unix()))*1000
		}
		o.SetData(&dateData{epochMillis: millis})
		return value.Object(o), nil
	})
	r.method(dateCtor, "now", 0, func(v *vm.VM, _ value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(time.Now().UnixMilli())), nil
	})

	thisDate := func(this value.Value) (*dateData, error) {
		o, ok := asObj(this)
		if !ok || o.Kind() != object.KindDate {
			return nil, r.throwType("receiver is not a Date")
		}
		return o.Data().(*dateData), nil
	}

	r.method(proto, "getTime", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		d, err := thisDate(this)
		if err != nil {
			return value.Undefined, err
		}
		return value.Number(d.epochMillis), nil
	})
	r.method(proto, "valueOf", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		d, err := thisDate(this)
		if err != nil {
			return value.Undefined, err
		}
		return value.Number(d.epochMillis), nil
	})
	r.method(proto, "getTimezoneOffset", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		d, err := thisDate(this)
		if err != nil {
			return value.Undefined, err
		}
		if math.IsNaN(d.epochMillis) {
			return value.Number(math.NaN()), nil
		}
		return value.Int32(int32(-r.timezoneOffsetSeconds(int64(d.epochMillis)/1000) / 60)), nil
	})
	r.method(proto, "toISOString", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		d, err := thisDate(this)
		if err != nil {
			return value.Undefined, err
		}
		if math.IsNaN(d.epochMillis) {
			return value.Undefined, r.throwRange("invalid time value")
		}
		t := time.UnixMilli(int64(d.epochMillis)).UTC()
		out := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03dZ",
			t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
		return stringValue(out), nil
	})
	r.method(proto, "toJSON", 1, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		d, err := thisDate(this)
		if err != nil {
			return value.Undefined, err
		}
		if math.IsNaN(d.epochMillis) {
			return value.Null, nil
		}
		t := time.UnixMilli(int64(d.epochMillis)).UTC()
		out := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03dZ",
			t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
		return stringValue(out), nil
	})
	r.method(proto, "getFullYear", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		d, err := thisDate(this)
		if err != nil {
			return value.Undefined, err
		}
		if math.IsNaN(d.epochMillis) {
			return value.Number(math.NaN()), nil
		}
		local := r.localTime(d)
		return value.Int32(int32(local.Year())), nil
	})
	r.method(proto, "getMonth", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		d, err := thisDate(this)
		if err != nil {
			return value.Undefined, err
		}
		if math.IsNaN(d.epochMillis) {
			return value.Number(math.NaN()), nil
		}
		return value.Int32(int32(r.localTime(d).Month()) - 1), nil
	})
	r.method(proto, "getDate", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		d, err := thisDate(this)
		if err != nil {
			return value.Undefined, err
		}
		if math.IsNaN(d.epochMillis) {
			return value.Number(math.NaN()), nil
		}
		return value.Int32(int32(r.localTime(d).Day())), nil
	})
}

// timezoneOffsetSeconds consults the host hook, defaulting to the process
// timezone.
func (r *Realm) timezoneOffsetSeconds(unixSeconds int64) int {
	if r.Hooks.LocalTimezoneOffsetSeconds != nil {
		return r.Hooks.LocalTimezoneOffsetSeconds(unixSeconds)
	}
	_, offset := time.Unix(unixSeconds, 0).Zone()
	return offset
}

func (r *Realm) localTime(d *dateData) time.Time {
	t := time.UnixMilli(int64(d.epochMillis)).UTC()
	return t.Add(time.Duration(r.timezoneOffsetSeconds(t.Unix())) * time.Second)
}

// installArrayBufferStub registers %ArrayBuffer% with the allocation
// ceiling hook (spec.md §6 max_buffer_size); the typed-array views over it
// are part of the builtin catalog left to the contract, not the core.
func (r *Realm) installArrayBufferStub() {
	v := r.VM
	proto := v.NewObject(r.intr.ObjectProto)
	r.ctor("ArrayBuffer", 1, proto, func(v *vm.VM, _ value.Value, args []value.Value) (value.Value, error) {
		f, err := v.ToNumber(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		n := int(f)
		if n < 0 || float64(n) != f {
			return value.Undefined, r.throwRange("invalid ArrayBuffer length")
		}
		limit := 1 << 30
		if r.Hooks.MaxBufferSize != nil {
			limit = r.Hooks.MaxBufferSize()
		}
		if n > limit {
			return value.Undefined, r.throwRange("ArrayBuffer length exceeds host limit")
		}
		o := v.NewObject(proto)
		o.SetKind(object.KindArrayBuffer)
		o.SetData(make([]byte, n))
		return value.Object(o), nil
	})
	getter := v.NewNativeFunction("get byteLength", 0, func(v *vm.VM, this value.Value, _ []value.Value) (value.Value, error) {
		o, ok := asObj(this)
		if !ok || o.Kind() != object.KindArrayBuffer {
			return value.Undefined, r.throwType("receiver is not an ArrayBuffer")
		}
		return value.Int32(int32(len(o.Data().([]byte)))), nil
	})
	proto.VTable().DefineOwnProperty(proto, v, proto.Key("byteLength"), object.Descriptor{
		Get: value.Object(getter), Set: value.Undefined,
		HasGet: true, HasSet: true,
		Enumerable: false, Configurable: true,
		HasEnumerable: true, HasConfigurable: true,
	})
}
