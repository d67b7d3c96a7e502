// Package compat tracks which optional ECMAScript features a Context
// enables (SPEC_FULL.md's EngineOptions.Features), repurposing the shape of
// esbuild's internal/compat.JSFeature -- a bitset of named language
// features gated by a version check -- for a different gate: whether the
// engine itself was built/configured to support a given optional surface
// (BigInt literals, private fields, top-level await, Proxy, …) rather than
// whether a browser target understands it.
package compat

// JSFeature is a bitset of optional language features, checked by the realm
// bootstrap to decide whether to install the Proxy, Reflect and WeakRef
// intrinsics. The parser does not consult it.
type JSFeature uint32

const (
	BigIntLiterals JSFeature = 1 << iota
	PrivateFields
	PrivateMethods
	TopLevelAwait
	Proxy
	Reflect
	AsyncGenerators
	RegExpUnicodeSets
	WeakRefs
	ClassStaticBlocks
)

// All enables every optional feature; this is the default EngineOptions
// configuration (spec.md names no feature as off-by-default).
const All = BigIntLiterals | PrivateFields | PrivateMethods | TopLevelAwait |
	Proxy | Reflect | AsyncGenerators | RegExpUnicodeSets | WeakRefs | ClassStaticBlocks

func (f JSFeature) Has(feature JSFeature) bool { return f&feature != 0 }

// Names lists every JSFeature whose bit is set in f, in declaration order,
// primarily for diagnostics (e.g. reporting "Proxy is disabled" messages).
func (f JSFeature) Names() []string {
	var out []string
	for _, pair := range []struct {
		bit  JSFeature
		name string
	}{
		{BigIntLiterals, "bigint-literals"},
		{PrivateFields, "private-fields"},
		{PrivateMethods, "private-methods"},
		{TopLevelAwait, "top-level-await"},
		{Proxy, "proxy"},
		{Reflect, "reflect"},
		{AsyncGenerators, "async-generators"},
		{RegExpUnicodeSets, "regexp-unicode-sets"},
		{WeakRefs, "weak-refs"},
		{ClassStaticBlocks, "class-static-blocks"},
	} {
		if f.Has(pair.bit) {
			out = append(out, pair.name)
		}
	}
	return out
}
