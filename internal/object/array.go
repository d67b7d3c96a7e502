package object

import (
	"errors"
	"math"

	"github.com/BasixKOR/boa/internal/value"
)

// ErrInvalidArrayLength is returned by the Array vtable's DefineOwnProperty
// when a `length` write isn't a valid array length (spec.md §7 "Range
// error ... invalid array length"). Higher layers (the VM) translate this
// into a thrown RangeError; this package has no notion of exception values.
var ErrInvalidArrayLength = errors.New("invalid array length")

// ArrayData is the kind-specific payload for KindArray objects (spec.md
// §4.5 "Array exotic"). length is tracked here rather than through the
// ordinary shape/storage path since it participates in exotic
// [[DefineOwnProperty]] semantics no ordinary property does.
type ArrayData struct {
	Length        uint32
	LengthWritable bool
}

const lengthText = "length"

// NewArray constructs an empty array object, e.g. for `[]` or `new Array()`.
func NewArray(o *Object) *Object {
	o.SetKind(KindArray)
	o.SetData(&ArrayData{LengthWritable: true})
	o.SetVTable(&arrayVTable)
	return o
}

var arrayVTable = VTable{
	GetOwnProperty:    arrayGetOwnProperty,
	DefineOwnProperty: arrayDefineOwnProperty,
	HasProperty:       ordinaryHasProperty,
	Get:               ordinaryGet,
	Set:               ordinarySet,
	Delete:            arrayDelete,
	OwnPropertyKeys:   arrayOwnPropertyKeys,
	GetPrototypeOf:    ordinaryGetPrototypeOf,
	SetPrototypeOf:    ordinarySetPrototypeOf,
	IsExtensible:      ordinaryIsExtensible,
	PreventExtensions: ordinaryPreventExtensions,
}

func arrayData(o *Object) *ArrayData { return o.Data().(*ArrayData) }

func arrayGetOwnProperty(o *Object, inv Invoker, key PropertyKey) (Descriptor, bool, error) {
	if !key.IsSym && key.Text == lengthText {
		d := arrayData(o)
		return Descriptor{
			HasValue: true, Value: value.Number(float64(d.Length)),
			Writable: d.LengthWritable, Enumerable: false, Configurable: false,
			HasWritable: true, HasEnumerable: true, HasConfigurable: true,
		}, true, nil
	}
	return ordinaryGetOwnProperty(o, inv, key)
}

// arrayDefineOwnProperty implements ArraySetLength and the index>=length
// length-bump rule (spec.md §4.5 "Array exotic").
func arrayDefineOwnProperty(o *Object, inv Invoker, key PropertyKey, desc Descriptor) (bool, error) {
	d := arrayData(o)

	if !key.IsSym && key.Text == lengthText {
		if !desc.HasValue {
			// A bare attribute-only redefine of `length` (e.g. making it
			// non-writable) never changes the numeric value.
			if desc.HasWritable {
				if !d.LengthWritable && desc.Writable {
					return false, nil
				}
				d.LengthWritable = desc.Writable
			}
			return true, nil
		}
		newLen, ok := toArrayLength(desc.Value)
		if !ok {
			return false, ErrInvalidArrayLength
		}
		if !d.LengthWritable && newLen != d.Length {
			return false, nil
		}
		if newLen >= d.Length {
			d.Length = newLen
			if desc.HasWritable {
				d.LengthWritable = desc.Writable
			}
			return true, nil
		}
		// Shrinking: delete indices >= newLen from the top down, stopping at
		// the first non-configurable index encountered and leaving length
		// just past it (spec.md §8 scenario: partial truncation).
		succeeded := true
		finalLen := d.Length
		for _, idx := range descendingIndices(o, newLen, d.Length) {
			if !o.HasElement(idx) {
				continue
			}
			if !o.ElementAttrs(idx).Configurable {
				finalLen = idx + 1
				succeeded = false
				break
			}
			o.DeleteElement(idx)
			finalLen = idx
		}
		d.Length = finalLen
		if desc.HasWritable {
			d.LengthWritable = desc.Writable
		}
		return succeeded, nil
	}

	if idx, ok := ArrayIndex(key.Text); !key.IsSym && ok {
		if idx >= d.Length && !d.LengthWritable {
			return false, nil
		}
		succeeded, err := ordinaryDefineOwnProperty(o, inv, key, desc)
		if err != nil || !succeeded {
			return succeeded, err
		}
		if idx >= d.Length {
			d.Length = idx + 1
		}
		return true, nil
	}

	return ordinaryDefineOwnProperty(o, inv, key, desc)
}

func arrayDelete(o *Object, inv Invoker, key PropertyKey) (bool, error) {
	return ordinaryDelete(o, inv, key)
}

func arrayOwnPropertyKeys(o *Object, inv Invoker) ([]PropertyKey, error) {
	keys, err := ordinaryOwnPropertyKeys(o, inv)
	if err != nil {
		return nil, err
	}
	return append(keys, o.Key(lengthText)), nil
}

// descendingIndices returns the present element indices in [lo, hi) in
// descending order, so truncation deletes from the top (matching the
// ECMAScript ArraySetLength loop direction, which matters for which index
// ends up blocking a partial truncation).
func descendingIndices(o *Object, lo, hi uint32) []uint32 {
	all := o.ElementIndices()
	var out []uint32
	for _, idx := range all {
		if idx >= lo && idx < hi {
			out = append(out, idx)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// toArrayLength implements ToUint32 plus the "exactly representable" check
// CanonicalNumericIndexString/ArraySetLength requires: the value must equal
// its own ToUint32 conversion, i.e. no fractional or out-of-range lengths.
func toArrayLength(v value.Value) (uint32, bool) {
	if !v.IsNumber() {
		return 0, false
	}
	f := v.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	u := uint32(f)
	if float64(u) != f {
		return 0, false
	}
	return u, true
}
