package object

import "github.com/BasixKOR/boa/internal/value"

// Iterator is the engine-internal shape of the generic iterator protocol:
// repeated calls to Next produce a value until done is true. This mirrors
// the JS-visible `{ next() { return {value, done} } }` protocol without
// needing a full object/property round trip for iteration driven entirely
// from Go (for-of lowering, spread, Array.from).
type Iterator struct {
	Next func() (v value.Value, done bool, err error)
}

// IteratorFromArrayLike builds an Iterator over any object exposing a
// `length` property and indexed `[[Get]]`s -- not just true Arrays (an
// Arguments object or an ad hoc `{length: 3, 0: 'a', ...}` object qualifies
// too) -- reading `length` once up front via ToLength-like truncation
// (SUPPLEMENTED FEATURES: "`internal/object` exposes `IteratorFromArrayLike`
// used by both for-of lowering and `Array.from`, rather than duplicating
// iterator-protocol plumbing per builtin").
func IteratorFromArrayLike(o *Object, inv Invoker) (*Iterator, error) {
	lenVal, err := o.VTable().Get(o, inv, o.Key(lengthText), value.Object(o))
	if err != nil {
		return nil, err
	}
	n := toLength(lenVal)
	i := uint32(0)
	return &Iterator{
		Next: func() (value.Value, bool, error) {
			if i >= n {
				return value.Undefined, true, nil
			}
			key := o.Key(indexText(i))
			v, err := o.VTable().Get(o, inv, key, value.Object(o))
			i++
			if err != nil {
				return value.Undefined, false, err
			}
			return v, false, nil
		},
	}, nil
}

// ArrayIterator builds an Iterator directly over an Array object's own
// elements, bypassing property lookups entirely -- the fast path `for-of`
// lowering uses when it can prove its operand is an ordinary Array (no
// Proxy, no overridden `length` getter).
func ArrayIterator(o *Object) *Iterator {
	d := arrayData(o)
	i := uint32(0)
	return &Iterator{
		Next: func() (value.Value, bool, error) {
			for i < d.Length {
				v, present := o.GetElement(i)
				i++
				if present {
					return v, false, nil
				}
				return value.Undefined, false, nil
			}
			return value.Undefined, true, nil
		},
	}
}

func toLength(v value.Value) uint32 {
	if !v.IsNumber() {
		return 0
	}
	f := v.Float64()
	if f <= 0 {
		return 0
	}
	if f > float64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(f)
}

func indexText(i uint32) string {
	// Mirrors ArrayIndex's canonical decimal form; kept local to avoid a
	// strconv import just for this.
	if i == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}
