package object

import (
	"strconv"

	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/value"
)

// StringData is the kind-specific payload for KindString wrapper objects
// (`new String("x")`, and the temporary object created to evaluate
// `"x".length`).
type StringData struct {
	Value jsstring.String
}

// NewStringObject wraps a string primitive in a String exotic object
// (spec.md §4.5 "String exotic").
func NewStringObject(o *Object, s jsstring.String) *Object {
	o.SetKind(KindString)
	o.SetData(&StringData{Value: s})
	o.SetVTable(&stringVTable)
	return o
}

var stringVTable = VTable{
	GetOwnProperty:    stringGetOwnProperty,
	DefineOwnProperty: stringDefineOwnProperty,
	HasProperty:       ordinaryHasProperty,
	Get:               ordinaryGet,
	Set:               ordinarySet,
	Delete:            stringDelete,
	OwnPropertyKeys:   stringOwnPropertyKeys,
	GetPrototypeOf:    ordinaryGetPrototypeOf,
	SetPrototypeOf:    ordinarySetPrototypeOf,
	IsExtensible:      ordinaryIsExtensible,
	PreventExtensions: ordinaryPreventExtensions,
}

func stringData(o *Object) *StringData { return o.Data().(*StringData) }

// stringGetOwnProperty implements StringGetOwnProperty: integer indices
// within the wrapped string's length read out a single UTF-16 code unit as
// a length-1 string, non-writable/non-configurable/enumerable; `length` is
// non-writable/non-configurable/non-enumerable (spec.md §4.5 "String
// exotic").
func stringGetOwnProperty(o *Object, inv Invoker, key PropertyKey) (Descriptor, bool, error) {
	s := stringData(o).Value
	if !key.IsSym {
		if key.Text == lengthText {
			return Descriptor{
				HasValue: true, Value: value.Number(float64(s.Length())),
				Writable: false, Enumerable: false, Configurable: false,
				HasWritable: true, HasEnumerable: true, HasConfigurable: true,
			}, true, nil
		}
		if idx, ok := ArrayIndex(key.Text); ok && idx < uint32(s.Length()) {
			ch := s.Slice(int(idx), int(idx)+1)
			return Descriptor{
				HasValue: true, Value: value.String(ch),
				Writable: false, Enumerable: true, Configurable: false,
				HasWritable: true, HasEnumerable: true, HasConfigurable: true,
			}, true, nil
		}
	}
	return ordinaryGetOwnProperty(o, inv, key)
}

// stringDefineOwnProperty rejects any attempt to redefine an own index or
// `length` incompatibly with the descriptors stringGetOwnProperty reports,
// same as the ordinary algorithm would once those are read as existing
// non-configurable properties; everything else falls through to the
// ordinary path.
func stringDefineOwnProperty(o *Object, inv Invoker, key PropertyKey, desc Descriptor) (bool, error) {
	s := stringData(o).Value
	if !key.IsSym {
		if key.Text == lengthText {
			if desc.HasConfigurable && desc.Configurable {
				return false, nil
			}
			if desc.HasWritable && desc.Writable {
				return false, nil
			}
			if desc.HasValue && desc.Value.Float64() != float64(s.Length()) {
				return false, nil
			}
			return true, nil
		}
		if idx, ok := ArrayIndex(key.Text); ok && idx < uint32(s.Length()) {
			if desc.HasConfigurable && desc.Configurable {
				return false, nil
			}
			if desc.HasWritable && desc.Writable {
				return false, nil
			}
			if desc.HasValue {
				ch := s.Slice(int(idx), int(idx)+1)
				if !desc.Value.IsString() || !desc.Value.String_().Equal(ch) {
					return false, nil
				}
			}
			return true, nil
		}
	}
	return ordinaryDefineOwnProperty(o, inv, key, desc)
}

func stringDelete(o *Object, inv Invoker, key PropertyKey) (bool, error) {
	s := stringData(o).Value
	if !key.IsSym {
		if idx, ok := ArrayIndex(key.Text); ok && idx < uint32(s.Length()) {
			return false, nil
		}
	}
	return ordinaryDelete(o, inv, key)
}

// stringOwnPropertyKeys prepends the string's own indices (spec.md §8's
// integer-keys-first ordering) ahead of whatever named/symbol properties
// were added directly to the wrapper object.
func stringOwnPropertyKeys(o *Object, inv Invoker) ([]PropertyKey, error) {
	s := stringData(o).Value
	n := s.Length()
	out := make([]PropertyKey, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, PropertyKey{Text: strconv.Itoa(i)})
	}
	rest, err := ordinaryOwnPropertyKeys(o, inv)
	if err != nil {
		return nil, err
	}
	out = append(out, rest...)
	out = append(out, o.Key(lengthText))
	return out, nil
}
