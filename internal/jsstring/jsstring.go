// Package jsstring implements the engine's String value (spec.md §3
// "String"): an immutable logical sequence of UTF-16 code units, stored
// either as Latin-1 (one byte per unit, used whenever every unit is < 256)
// or as UTF-16 (two bytes per unit), with unpaired surrogates preserved
// rather than rejected.
//
// The UTF-16 <-> UTF-8 conversion and WTF-8 (surrogate-preserving UTF-8)
// machinery is esbuild's own (internal/helpers.UTF16ToString / StringToUTF16
// / DecodeWTF8Rune): esbuild's string literals carry exactly this
// surrogate-preserving UTF-16 payload today, so the conversion code is kept
// close to verbatim and reused here rather than re-derived.
package jsstring

import (
	"strings"
	"unicode/utf16"

	"github.com/BasixKOR/boa/internal/helpers"
)

// Rep discriminates the storage representation chosen for a String.
type Rep uint8

const (
	RepLatin1 Rep = iota
	RepUTF16
)

// String is an immutable JavaScript string value: a sequence of UTF-16 code
// units. Two Strings with the same code units are interchangeable regardless
// of which Rep produced them.
type String struct {
	latin1 []byte   // valid when rep == RepLatin1; one byte per code unit
	units  []uint16 // valid when rep == RepUTF16
	rep    Rep
}

// Empty is the canonical empty string.
var Empty = String{rep: RepLatin1}

// New builds a String from a Go UTF-8 string, choosing Latin-1 storage when
// every code unit fits in a byte.
func New(s string) String {
	units := helpers.StringToUTF16(s)
	return FromUTF16(units)
}

// FromUTF16 builds a String directly from UTF-16 code units (e.g. as decoded
// by the lexer from a string literal's escape sequences), preserving any
// unpaired surrogates.
func FromUTF16(units []uint16) String {
	for _, u := range units {
		if u > 0xFF {
			return String{rep: RepUTF16, units: units}
		}
	}
	b := make([]byte, len(units))
	for i, u := range units {
		b[i] = byte(u)
	}
	return String{rep: RepLatin1, latin1: b}
}

// Length is the number of UTF-16 code units (ECMAScript's String.length).
func (s String) Length() int {
	if s.rep == RepLatin1 {
		return len(s.latin1)
	}
	return len(s.units)
}

// CharCodeAt returns the raw code unit at index i (String.prototype.charCodeAt).
func (s String) CharCodeAt(i int) uint16 {
	if s.rep == RepLatin1 {
		return uint16(s.latin1[i])
	}
	return s.units[i]
}

// CodePointAt returns the code point at index i, combining a surrogate pair
// if one starts there (String.prototype.codePointAt). The second result is
// the number of code units consumed (1 or 2).
func (s String) CodePointAt(i int) (rune, int) {
	c1 := s.CharCodeAt(i)
	if c1 < 0xD800 || c1 > 0xDBFF || i+1 >= s.Length() {
		return rune(c1), 1
	}
	c2 := s.CharCodeAt(i + 1)
	if c2 < 0xDC00 || c2 > 0xDFFF {
		return rune(c1), 1
	}
	return (rune(c1)-0xD800)<<10 | (rune(c2) - 0xDC00) + 0x10000, 2
}

// Units returns the underlying UTF-16 code units, allocating only for the
// Latin-1 representation.
func (s String) Units() []uint16 {
	if s.rep == RepUTF16 {
		return s.units
	}
	out := make([]uint16, len(s.latin1))
	for i, b := range s.latin1 {
		out[i] = uint16(b)
	}
	return out
}

// Slice returns the code-unit range [start, end) as a new String.
func (s String) Slice(start, end int) String {
	if s.rep == RepLatin1 {
		return String{rep: RepLatin1, latin1: s.latin1[start:end]}
	}
	return String{rep: RepUTF16, units: s.units[start:end]}
}

// Concat appends b's code units after a's.
func (s String) Concat(other String) String {
	if s.rep == RepLatin1 && other.rep == RepLatin1 {
		b := make([]byte, 0, len(s.latin1)+len(other.latin1))
		b = append(b, s.latin1...)
		b = append(b, other.latin1...)
		return String{rep: RepLatin1, latin1: b}
	}
	units := make([]uint16, 0, s.Length()+other.Length())
	units = append(units, s.Units()...)
	units = append(units, other.Units()...)
	return FromUTF16(units)
}

// GoString decodes to a Go UTF-8 string using WTF-8 so unpaired surrogates
// round-trip instead of becoming U+FFFD. Use this only for diagnostics and
// for interning as a property key; JSON.stringify quotes its output with
// helpers.QuoteForJSON instead.
func (s String) GoString() string {
	if s.rep == RepLatin1 {
		return string(s.latin1)
	}
	return helpers.UTF16ToString(s.units)
}

// Equal compares by code unit, the definition used for string equality,
// property-key identity, and Map/Set SameValueZero on strings.
func (s String) Equal(other String) bool {
	if s.rep == RepLatin1 && other.rep == RepLatin1 {
		return string(s.latin1) == string(other.latin1)
	}
	return helpers.UTF16EqualsUTF16(s.Units(), other.Units())
}

// Compare implements the relational string comparison used by <, <=, >, >=:
// a code-unit-wise comparison, not a locale-aware collation.
func (s String) Compare(other String) int {
	a, b := s.Units(), other.Units()
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// IsWellFormed reports whether every surrogate in the string is part of a
// valid pair (no lone surrogate), the predicate behind
// String.prototype.isWellFormed and the %X escaping rule used by
// JSON.stringify (spec.md §9 open question).
func (s String) IsWellFormed() bool {
	units := s.Units()
	for i := 0; i < len(units); i++ {
		c := units[i]
		if c >= 0xD800 && c <= 0xDBFF {
			if i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF {
				i++
				continue
			}
			return false
		}
		if c >= 0xDC00 && c <= 0xDFFF {
			return false
		}
	}
	return true
}

// CodePoints iterates the string as Unicode code points, substituting
// U+FFFD for lone surrogates the way String.prototype.normalize and
// the %-escape path in encodeURI do.
func (s String) CodePoints() []rune {
	units := s.Units()
	return utf16.Decode(units)
}

// Builder incrementally constructs a String. Nothing else in the engine
// uses it at present.
type Builder struct {
	sb strings.Builder
}

func (b *Builder) WriteString(s String) { b.sb.WriteString(s.GoString()) }
func (b *Builder) WriteRune(r rune)     { b.sb.WriteRune(r) }
func (b *Builder) String() String       { return New(b.sb.String()) }
