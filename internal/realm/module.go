package realm

import (
	"github.com/BasixKOR/boa/internal/bytecode"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/value"
)

// ModuleState tracks the spec's module lifecycle (spec.md §6
// parse_module / link / evaluate).
type ModuleState uint8

const (
	ModuleUnlinked ModuleState = iota
	ModuleLinked
	ModuleEvaluated
)

// Module is one parsed module record; evaluation runs the body once,
// caching the completion value. The parser does not accept import
// declarations, so ParseModule records no import requests and a module's
// dependency list stays empty.
type Module struct {
	Specifier string
	realm     *Realm
	cb        *bytecode.CodeBlock
	state     ModuleState
	result    value.Value
	evalErr   error
	requests  []string
	deps      []*Module
}

// ParseModule parses source as module code (always strict, own top-level
// scope).
func (r *Realm) ParseModule(specifier, source string) (*Module, error) {
	cb, err := r.CompileScript(source, true)
	if err != nil {
		return nil, err
	}
	return &Module{Specifier: specifier, realm: r, cb: cb}, nil
}

// Link resolves and loads each recorded import request depth-first via the
// host loader. Since ParseModule records no requests, Link loads nothing
// and only marks the module linked.
func (m *Module) Link() error {
	if m.state != ModuleUnlinked {
		return nil
	}
	loader := m.realm.Hooks.Loader
	for _, spec := range m.requests {
		if loader == nil {
			return errors.New(errors.KindType, "no module loader installed for import of %q", spec)
		}
		resolved, err := loader.Resolve(m.Specifier, spec)
		if err != nil {
			return errors.Wrap(errors.KindType, err, "cannot resolve module %q", spec)
		}
		src, err := loader.Load(resolved)
		if err != nil {
			return errors.Wrap(errors.KindType, err, "cannot load module %q", resolved)
		}
		dep, err := m.realm.ParseModule(resolved, src)
		if err != nil {
			return err
		}
		if err := dep.Link(); err != nil {
			return err
		}
		m.deps = append(m.deps, dep)
	}
	m.state = ModuleLinked
	return nil
}

// Evaluate runs the module body once; later calls return the cached
// completion (spec.md §6 Module::evaluate).
func (m *Module) Evaluate() (value.Value, error) {
	switch m.state {
	case ModuleUnlinked:
		return value.Undefined, errors.New(errors.KindType, "module %q is not linked", m.Specifier)
	case ModuleEvaluated:
		return m.result, m.evalErr
	}
	for _, dep := range m.deps {
		if _, err := dep.Evaluate(); err != nil {
			m.state = ModuleEvaluated
			m.evalErr = err
			return value.Undefined, err
		}
	}
	m.realm.VM.ResetBudget()
	m.result, m.evalErr = m.realm.VM.RunProgram(m.cb)
	m.realm.Heap.EndTurn()
	m.state = ModuleEvaluated
	return m.result, m.evalErr
}
