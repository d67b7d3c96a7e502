// Package promise implements the Promise state machine and the engine's
// job (microtask) queue (spec.md §4.7). A Promise here is the
// kind-specific payload attached to a KindPromise object.Object; this
// package owns the state machine and reaction bookkeeping, while
// package vm drives it (invoking callbacks, enqueuing continuations for
// `await`).
//
// Grounded on spec.md §4.7's prose directly -- no example repo implements
// Promises -- using the same FIFO-queue-of-closures shape esbuild's
// internal/bundler uses for its own deferred work lists (a plain slice
// acting as a queue, drained front-to-back), generalized here to carry
// arbitrary job payloads instead of bundler tasks.
package promise

import (
	"github.com/BasixKOR/boa/internal/gc"
	"github.com/BasixKOR/boa/internal/value"
)

// State is one of the three Promise states spec.md §4.7 lists.
type State uint8

const (
	Pending State = iota
	Fulfilled
	Rejected
)

// Reaction is one `{derived, onFulfilled, onRejected}` record (spec.md
// §4.7 "then(...) creates a derived promise and a reaction record").
// Callback is nil when the corresponding handler arg was omitted, meaning
// the value/reason passes through unchanged.
type Reaction struct {
	// Derived is the promise object `then` returned (a KindPromise
	// object.Object as a value), kept as a Value so tracing it keeps the
	// whole derived object alive, not just its state machine.
	Derived     value.Value
	OnFulfilled value.Value
	OnRejected  value.Value
	HasOnFulfilled, HasOnRejected bool
}

// Promise is the kind-specific payload for KindPromise objects.
type Promise struct {
	State     State
	Value     value.Value // fulfillment value or rejection reason
	Reactions []Reaction
	IsHandled bool
	settled   bool
}

func New() *Promise { return &Promise{} }

// Trace implements the gc trace contract for the promise payload attached
// to a KindPromise object: the settled value/reason and every pending
// reaction's handlers and derived promise are GC references.
func (p *Promise) Trace(visit func(gc.Traceable)) {
	visitValue(visit, p.Value)
	for _, r := range p.Reactions {
		visitValue(visit, r.Derived)
		visitValue(visit, r.OnFulfilled)
		visitValue(visit, r.OnRejected)
	}
}

func visitValue(visit func(gc.Traceable), v value.Value) {
	if v.Kind() == value.KindObject {
		if t, ok := v.Object_().(gc.Traceable); ok {
			visit(t)
		}
	}
}

// Resolve and Reject are idempotent: only the first call settles the
// promise (spec.md §4.7 "Resolution functions ... are idempotent"). They
// return the list of reactions to convert into jobs; the caller (the VM,
// which owns the job queue) is responsible for enqueuing
// PromiseReactionJob for each.
func (p *Promise) Resolve(v value.Value) []Reaction {
	if p.settled {
		return nil
	}
	p.settled = true
	p.State = Fulfilled
	p.Value = v
	out := p.Reactions
	p.Reactions = nil
	return out
}

func (p *Promise) Reject(reason value.Value) []Reaction {
	if p.settled {
		return nil
	}
	p.settled = true
	p.State = Rejected
	p.Value = reason
	out := p.Reactions
	p.Reactions = nil
	return out
}

// Then stores r and returns true if the promise is still pending; if the
// promise is already settled it stores nothing and returns false (the
// caller should enqueue the job itself).
func (p *Promise) Then(r Reaction) (pending bool) {
	if p.State == Pending {
		p.Reactions = append(p.Reactions, r)
		return true
	}
	return false
}

// JobKind distinguishes the two microtask shapes SUPPLEMENTED FEATURES
// calls for as first-class job records rather than one opaque closure type,
// so Context.RunJobs can report which kind of job it ran for diagnostics.
type JobKind uint8

const (
	// PromiseReactionJob runs one settled reaction's onFulfilled/onRejected
	// handler and resolves/rejects the derived promise with the result
	// (spec.md §4.7 "then(...) creates a derived promise and a reaction
	// record ... Otherwise, a job is enqueued").
	PromiseReactionJob JobKind = iota
	// PromiseResolveThenableJob runs when a promise is resolved with a
	// thenable: it calls the thenable's `then` with fresh resolve/reject
	// functions, on its own job so the `then` call never runs synchronously
	// inside the resolving function (SUPPLEMENTED FEATURES: "models
	// PromiseReactionJob and PromiseResolveThenableJob as distinct Job
	// variants").
	PromiseResolveThenableJob
)

func (k JobKind) String() string {
	if k == PromiseResolveThenableJob {
		return "PromiseResolveThenableJob"
	}
	return "PromiseReactionJob"
}

// Job is one queued microtask. Run performs the job's effect and is
// supplied by the VM, which closes over whatever state the job needs (the
// reaction, the promise, the resolved thenable); Kind is carried alongside
// purely for diagnostics/tracing, not dispatch -- Run already is the
// closure for the right behavior.
type Job struct {
	Kind JobKind
	Run  func() error
}

// Queue is the engine's microtask FIFO (spec.md §4.7 "Job queue. FIFO
// queue of microtasks. Drained by the embedder between script turns").
type Queue struct {
	jobs []Job
}

func (q *Queue) Enqueue(j Job) { q.jobs = append(q.jobs, j) }

func (q *Queue) Empty() bool { return len(q.jobs) == 0 }

// Drain runs every queued job to completion, FIFO, including jobs enqueued
// by jobs that ran earlier in the same Drain call (spec.md §5 "Microtasks
// enqueued during a turn execute in FIFO order when the turn ends").
// A job that returns an error without its own handler is reported via
// onUnhandled rather than aborting the drain -- one throwing job must not
// prevent the rest of the queue from running.
func (q *Queue) Drain(onUnhandled func(err error)) {
	for len(q.jobs) > 0 {
		j := q.jobs[0]
		q.jobs = q.jobs[1:]
		if err := j.Run(); err != nil && onUnhandled != nil {
			onUnhandled(err)
		}
	}
}

// All/AllSettled/Any/Race combinator bookkeeping (spec.md §4.7). Each
// tracks how many of n inputs have settled and the per-index results
// slice; the VM drives these via the per-input `then` callbacks it
// installs, calling the matching method here as each input settles.
type Combinator struct {
	Kind      CombinatorKind
	Remaining int
	Results   []value.Value
	Errors    []value.Value // AggregateError errors, Any only
	Done      bool
}

type CombinatorKind uint8

const (
	CombinatorAll CombinatorKind = iota
	CombinatorAllSettled
	CombinatorAny
	CombinatorRace
)

func NewCombinator(kind CombinatorKind, n int) *Combinator {
	return &Combinator{Kind: kind, Remaining: n, Results: make([]value.Value, n), Errors: make([]value.Value, n)}
}

// OnFulfilled records index i's fulfillment and reports whether the
// combinator has now fully settled (and with what outcome), per spec.md
// §4.7's per-combinator rules.
func (c *Combinator) OnFulfilled(i int, v value.Value) (settled bool, result value.Value, rejected bool) {
	if c.Done {
		return false, value.Undefined, false
	}
	switch c.Kind {
	case CombinatorRace:
		c.Done = true
		return true, v, false
	case CombinatorAny:
		c.Done = true
		return true, v, false
	case CombinatorAll:
		c.Results[i] = v
		c.Remaining--
		if c.Remaining == 0 {
			c.Done = true
			return true, value.Undefined, false // caller builds the array from c.Results
		}
	case CombinatorAllSettled:
		c.Results[i] = v
		c.Remaining--
		if c.Remaining == 0 {
			c.Done = true
			return true, value.Undefined, false
		}
	}
	return false, value.Undefined, false
}

// OnRejected records index i's rejection similarly; `any` only settles
// (with an AggregateError) once every input has rejected, `all`/`race`
// settle (reject) on the first rejection, `allSettled` never rejects.
func (c *Combinator) OnRejected(i int, reason value.Value) (settled bool, result value.Value, rejected bool) {
	if c.Done {
		return false, value.Undefined, false
	}
	switch c.Kind {
	case CombinatorRace:
		c.Done = true
		return true, reason, true
	case CombinatorAll:
		c.Done = true
		return true, reason, true
	case CombinatorAny:
		c.Errors[i] = reason
		c.Remaining--
		if c.Remaining == 0 {
			c.Done = true
			return true, value.Undefined, true // caller builds AggregateError from c.Errors
		}
	case CombinatorAllSettled:
		c.Results[i] = reason
		c.Remaining--
		if c.Remaining == 0 {
			c.Done = true
			return true, value.Undefined, false
		}
	}
	return false, value.Undefined, false
}
