// Package engine is the public embedder surface (spec.md §6 "Embedder
// API"): Context construction, script evaluation, module lifecycle, the
// microtask pump, and global registration. It wraps internal/realm the way
// the internal packages are wrapped by a thin public API in the teacher
// repository, keeping every internal type out of the exported signatures
// except the Value the embedder inspects.
package engine

import (
	"fmt"

	"github.com/BasixKOR/boa/internal/config"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/helpers"
	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/logger"
	"github.com/BasixKOR/boa/internal/realm"
	"github.com/BasixKOR/boa/internal/value"
	"github.com/BasixKOR/boa/internal/vm"
)

// Options configures a Context.
type Options struct {
	// ConfigPath optionally points at a TOML file of realm options
	// (internal/realm.LoadConfig); zero value means defaults.
	ConfigPath string
	// OpcodeBudget / MaxCallStackDepth override the loaded config when
	// non-zero.
	OpcodeBudget      uint64
	MaxCallStackDepth int
	// LogOptions controls the diagnostic channel (colors, verbosity); the
	// zero value logs errors to stderr.
	LogOptions logger.OutputOptions
	// Timing enables per-phase timing output through the log, the
	// teacher's --timing instrumentation.
	Timing bool
	// Hooks are the spec.md §6 host hooks.
	Hooks realm.HostHooks
}

// Context is one isolate: a realm, its heap, and its job queue (spec.md §6
// Context::new). Not safe for concurrent use; the engine is cooperatively
// single-threaded by design (spec.md §5).
type Context struct {
	realm *realm.Realm
	log   logger.Log
	timer *helpers.Timer
}

// NewContext builds a context containing one realm with standard
// intrinsics.
func NewContext(opts Options) (*Context, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := realm.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("engine: loading config: %w", err)
		}
		cfg = loaded
	}
	if opts.OpcodeBudget != 0 {
		cfg.OpcodeBudget = opts.OpcodeBudget
	}
	if opts.MaxCallStackDepth != 0 {
		cfg.MaxCallStackDepth = opts.MaxCallStackDepth
	}
	log := logger.NewStderrLog(opts.LogOptions)
	c := &Context{log: log}
	if opts.Timing {
		c.timer = &helpers.Timer{}
	}
	c.realm = realm.New(cfg, log)
	c.realm.Hooks = opts.Hooks
	return c, nil
}

// Value is the embedder-facing result of an evaluation.
type Value = value.Value

// Error is an evaluation failure surfaced to the embedder: the thrown JS
// value rendered to text plus the engine-side kind.
type Error struct {
	Kind    string
	Message string
	// Thrown is the raw JS value for embedders that want to inspect it.
	Thrown Value
}

func (e *Error) Error() string { return e.Kind + ": " + e.Message }

// Eval parses, compiles, and runs source as a script, returning its
// completion value (spec.md §6 Context::eval).
func (c *Context) Eval(source string) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			// An interpreter panic is an engine bug, not a script error;
			// surface it with the Go-side stack for the issue report.
			err = fmt.Errorf("engine: internal error: %v\n%s", r, helpers.PrettyPrintedStack())
		}
	}()
	c.beginPhase("eval")
	defer c.endPhase("eval")
	v, rerr := c.realm.Eval(source)
	if rerr != nil {
		return value.Undefined, c.convertError(rerr)
	}
	return v, nil
}

// RunJobs drains the microtask queue until empty (spec.md §6
// Context::run_jobs).
func (c *Context) RunJobs() {
	c.beginPhase("jobs")
	defer c.endPhase("jobs")
	c.realm.RunJobs()
}

// ParseModule begins the module lifecycle for one source text.
func (c *Context) ParseModule(specifier, source string) (*realm.Module, error) {
	m, err := c.realm.ParseModule(specifier, source)
	if err != nil {
		return nil, c.convertError(err)
	}
	return m, nil
}

// RegisterGlobalProperty defines a property on the global object (spec.md
// §6 Context::register_global_property).
func (c *Context) RegisterGlobalProperty(name string, v Value, writable, enumerable, configurable bool) error {
	return c.realm.RegisterGlobalProperty(name, v, writable, enumerable, configurable)
}

// RegisterGlobalFunction exposes a Go function to scripts under name.
func (c *Context) RegisterGlobalFunction(name string, length int, fn func(this Value, args []Value) (Value, error)) error {
	native := c.realm.VM.NewNativeFunction(name, length, func(_ *vm.VM, this value.Value, args []value.Value) (value.Value, error) {
		return fn(this, args)
	})
	return c.realm.RegisterGlobalProperty(name, value.Object(native), true, false, true)
}

// Cancel flips the cooperative cancellation flag; the VM observes it at
// opcode boundaries and terminates with a non-catchable signal (spec.md
// §5).
func (c *Context) Cancel() { c.realm.VM.Cancel() }

// Realm exposes the underlying realm for embedders that need host_defined
// storage or direct intrinsic access.
func (c *Context) Realm() *realm.Realm { return c.realm }

// StringValue builds a JS string value from Go text, for
// RegisterGlobalProperty plumbing.
func StringValue(s string) Value { return value.String(jsstring.New(s)) }

// NumberValue builds a JS number value.
func NumberValue(f float64) Value { return value.Number(f) }

// ToGoString renders any JS value to text the way String(v) would, for
// embedder display. Conversion errors (a symbol, a throwing toString) fall
// back to the typeof name.
func (c *Context) ToGoString(v Value) string {
	s, err := c.realm.VM.ToString(v)
	if err != nil {
		return v.TypeOf()
	}
	return s.GoString()
}

// IsTermination reports whether err is the budget/cancellation signal
// rather than a script-visible error (spec.md §7 taxonomy item 7).
func IsTermination(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == "Termination"
	}
	return errors.IsTermination(err)
}

// convertError renders an engine-internal error into the public Error type.
func (c *Context) convertError(err error) error {
	switch e := err.(type) {
	case *vm.Thrown:
		return &Error{Kind: "Error", Message: c.ToGoString(e.Value), Thrown: e.Value}
	case *errors.EngineError:
		return &Error{Kind: e.Kind.String(), Message: e.Message}
	case *errors.Termination:
		return &Error{Kind: "Termination", Message: e.Reason}
	}
	return err
}

func (c *Context) beginPhase(name string) {
	if c.timer != nil {
		c.timer.Begin(name)
	}
}

func (c *Context) endPhase(name string) {
	if c.timer != nil {
		c.timer.End(name)
		c.timer.Log(c.log)
	}
}
