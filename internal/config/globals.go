package config

// WellKnownGlobalPaths enumerates every standard global/property path a
// conforming realm exposes (spec.md §6's intrinsics), dot-path form, the
// same catalog esbuild's knownGlobals used to mark free-of-side-effects for
// minification. Here internal/realm's bootstrap (intrinsics.go) and its
// tests use this table the other way around: as a checklist of what the
// global object must end up carrying, and internal/realm/intrinsics.go
// documents against it which entries are fully implemented versus stubbed
// per SPEC_FULL.md's closing note ("others are stubbed with a documented
// contract").
var WellKnownGlobalPaths = [][]string{
	{"Array"},
	{"Boolean"},
	{"Function"},
	{"Math"},
	{"Number"},
	{"Object"},
	{"Proxy"},
	{"Reflect"},
	{"RegExp"},
	{"String"},
	{"Symbol"},
	{"Promise"},
	{"Map"},
	{"Set"},
	{"WeakMap"},
	{"WeakSet"},
	{"WeakRef"},
	{"FinalizationRegistry"},
	{"BigInt"},
	{"Error"},
	{"TypeError"},
	{"RangeError"},
	{"ReferenceError"},
	{"SyntaxError"},
	{"EvalError"},
	{"URIError"},
	{"ArrayBuffer"},

	{"Object", "assign"},
	{"Object", "create"},
	{"Object", "defineProperties"},
	{"Object", "defineProperty"},
	{"Object", "entries"},
	{"Object", "freeze"},
	{"Object", "fromEntries"},
	{"Object", "getOwnPropertyDescriptor"},
	{"Object", "getOwnPropertyDescriptors"},
	{"Object", "getOwnPropertyNames"},
	{"Object", "getOwnPropertySymbols"},
	{"Object", "getPrototypeOf"},
	{"Object", "is"},
	{"Object", "isExtensible"},
	{"Object", "isFrozen"},
	{"Object", "isSealed"},
	{"Object", "keys"},
	{"Object", "preventExtensions"},
	{"Object", "seal"},
	{"Object", "setPrototypeOf"},
	{"Object", "values"},

	{"Object", "prototype", "hasOwnProperty"},
	{"Object", "prototype", "isPrototypeOf"},
	{"Object", "prototype", "propertyIsEnumerable"},
	{"Object", "prototype", "toLocaleString"},
	{"Object", "prototype", "toString"},
	{"Object", "prototype", "valueOf"},

	{"Reflect", "apply"},
	{"Reflect", "construct"},
	{"Reflect", "defineProperty"},
	{"Reflect", "deleteProperty"},
	{"Reflect", "get"},
	{"Reflect", "getOwnPropertyDescriptor"},
	{"Reflect", "getPrototypeOf"},
	{"Reflect", "has"},
	{"Reflect", "isExtensible"},
	{"Reflect", "ownKeys"},
	{"Reflect", "preventExtensions"},
	{"Reflect", "set"},
	{"Reflect", "setPrototypeOf"},

	{"Promise", "all"},
	{"Promise", "allSettled"},
	{"Promise", "any"},
	{"Promise", "race"},
	{"Promise", "reject"},
	{"Promise", "resolve"},
	{"Promise", "prototype", "then"},
	{"Promise", "prototype", "catch"},
	{"Promise", "prototype", "finally"},

	{"Array", "from"},
	{"Array", "isArray"},
	{"Array", "of"},
	{"Array", "prototype", "map"},
	{"Array", "prototype", "filter"},
	{"Array", "prototype", "reduce"},
	{"Array", "prototype", "forEach"},
	{"Array", "prototype", "push"},
	{"Array", "prototype", "pop"},
	{"Array", "prototype", "slice"},
	{"Array", "prototype", "splice"},

	// Math: Static properties
	// https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Global_Objects/Math#Static_properties
	{"Math", "E"},
	{"Math", "LN10"},
	{"Math", "LN2"},
	{"Math", "LOG10E"},
	{"Math", "LOG2E"},
	{"Math", "PI"},
	{"Math", "SQRT1_2"},
	{"Math", "SQRT2"},

	// Math: Static methods
	// https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Global_Objects/Math#Static_methods
	{"Math", "abs"},
	{"Math", "acos"},
	{"Math", "acosh"},
	{"Math", "asin"},
	{"Math", "asinh"},
	{"Math", "atan"},
	{"Math", "atan2"},
	{"Math", "atanh"},
	{"Math", "cbrt"},
	{"Math", "ceil"},
	{"Math", "clz32"},
	{"Math", "cos"},
	{"Math", "cosh"},
	{"Math", "exp"},
	{"Math", "expm1"},
	{"Math", "floor"},
	{"Math", "fround"},
	{"Math", "hypot"},
	{"Math", "imul"},
	{"Math", "log"},
	{"Math", "log10"},
	{"Math", "log1p"},
	{"Math", "log2"},
	{"Math", "max"},
	{"Math", "min"},
	{"Math", "pow"},
	{"Math", "random"},
	{"Math", "round"},
	{"Math", "sign"},
	{"Math", "sin"},
	{"Math", "sinh"},
	{"Math", "sqrt"},
	{"Math", "tan"},
	{"Math", "tanh"},
	{"Math", "trunc"},
}

// IsWellKnown reports whether path (e.g. []string{"Math", "max"}) names an
// entry in WellKnownGlobalPaths, for tests asserting realm bootstrap
// coverage rather than for any runtime lookup (the realm's own property
// tables, not this slice, resolve actual global accesses).
func IsWellKnown(path []string) bool {
	for _, known := range WellKnownGlobalPaths {
		if len(known) != len(path) {
			continue
		}
		match := true
		for i := range path {
			if known[i] != path[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
