// Package config carries the parse/run knobs a realm hands to its parser
// and VM (SPEC_FULL.md's AMBIENT STACK:
// "internal/config.Options ... carries parse/compile knobs"), the way
// esbuild's internal/config.Options is threaded through every phase of a
// build. Where esbuild's Options describes a bundle (JSX pragma, target
// browsers, tree-shaking), Options here describes a JS engine realm
// (strict-mode default, which optional syntax is enabled, resource limits).
package config

import "github.com/BasixKOR/boa/internal/compat"

// Options is immutable once a Context is constructed from it. The realm
// keeps one copy; the VM holds a *Options, the parser receives only
// StrictModeByDefault, and the bytecode compiler receives none of it.
type Options struct {
	// StrictModeByDefault mirrors esbuild's per-file strict-mode detection,
	// but as a realm-wide default rather than a per-module inference: a
	// script with no "use strict" directive of its own still parses and
	// runs as strict code when this is true. Off by default so sloppy-only
	// surfaces (`with`, mapped arguments, implicit globals) behave the way
	// ordinary script code expects.
	StrictModeByDefault bool

	// Features gates which optional intrinsics the realm bootstraps (Proxy,
	// Reflect, WeakRef); the parser does not consult it. It mirrors
	// esbuild's UnsupportedJSFeatures
	// plumbing through Options -- except the gate here is "does this host
	// want this surface at all", not "does the target engine support it".
	Features compat.JSFeature

	// OpcodeBudget caps the number of bytecode instructions a single
	// Context.Eval/RunJobs call may execute before it aborts with a
	// Termination (spec.md §5's host-triggered non-catchable signal),
	// giving an embedder a cooperative way to bound a runaway script
	// without OS-level preemption. Zero means unbounded.
	OpcodeBudget uint64

	// MaxCallStackDepth caps VM call-frame nesting; exceeding it raises a
	// RangeError (spec.md §7's Kind taxonomy), mirroring the "Maximum call
	// stack size exceeded" every production engine raises rather than
	// letting the host process's own stack overflow.
	MaxCallStackDepth int
}

// Default matches spec.md's assumption that a realm behaves like a modern
// engine with every optional feature on and a generous but finite budget,
// unless a host overrides it (directly or via internal/realm.LoadConfig);
// scripts choose strict mode per the language's own rules.
func Default() Options {
	return Options{
		StrictModeByDefault: false,
		Features:            compat.All,
		OpcodeBudget:        0,
		MaxCallStackDepth:   4096,
	}
}
