package promise

import (
	"testing"

	"github.com/BasixKOR/boa/internal/value"
)

func TestResolveIsIdempotent(t *testing.T) {
	p := New()
	p.Resolve(value.Int32(1))
	p.Reject(value.Int32(2))
	p.Resolve(value.Int32(3))
	if p.State != Fulfilled || p.Value.Float64() != 1 {
		t.Fatalf("only the first settlement may win: state=%v value=%v", p.State, p.Value)
	}
}

func TestThenPendingVsSettled(t *testing.T) {
	p := New()
	if !p.Then(Reaction{}) {
		t.Fatalf("a pending promise must store the reaction")
	}
	reactions := p.Resolve(value.Int32(1))
	if len(reactions) != 1 {
		t.Fatalf("settling must hand back the stored reactions, got %d", len(reactions))
	}
	if p.Then(Reaction{}) {
		t.Fatalf("a settled promise must tell the caller to enqueue directly")
	}
}

func TestQueueFIFOIncludingNestedEnqueues(t *testing.T) {
	var q Queue
	var order []int
	q.Enqueue(Job{Run: func() error {
		order = append(order, 1)
		q.Enqueue(Job{Run: func() error {
			order = append(order, 3)
			return nil
		}})
		return nil
	}})
	q.Enqueue(Job{Run: func() error {
		order = append(order, 2)
		return nil
	}})
	q.Drain(nil)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("drain order = %v, want [1 2 3]", order)
	}
	if !q.Empty() {
		t.Fatalf("queue must be empty after drain")
	}
}

func TestDrainReportsJobErrors(t *testing.T) {
	var q Queue
	var reported []error
	sentinel := &jobError{}
	q.Enqueue(Job{Run: func() error { return sentinel }})
	q.Enqueue(Job{Run: func() error { return nil }})
	q.Drain(func(err error) { reported = append(reported, err) })
	if len(reported) != 1 || reported[0] != sentinel {
		t.Fatalf("one throwing job must not stop the drain: %v", reported)
	}
}

// jobError is a throwaway error type for the drain test.
type jobError struct{}

func (*jobError) Error() string { return "job failed" }

func TestCombinatorAll(t *testing.T) {
	c := NewCombinator(CombinatorAll, 2)
	if settled, _, _ := c.OnFulfilled(0, value.Int32(1)); settled {
		t.Fatalf("all must wait for every input")
	}
	settled, _, rejected := c.OnFulfilled(1, value.Int32(2))
	if !settled || rejected {
		t.Fatalf("all must fulfill once every input fulfilled")
	}
	if c.Results[0].Float64() != 1 || c.Results[1].Float64() != 2 {
		t.Fatalf("per-index results wrong: %v", c.Results)
	}

	c2 := NewCombinator(CombinatorAll, 2)
	settled, reason, rejected := c2.OnRejected(0, value.Int32(9))
	if !settled || !rejected || reason.Float64() != 9 {
		t.Fatalf("all must reject on the first rejection")
	}
}

func TestCombinatorAny(t *testing.T) {
	c := NewCombinator(CombinatorAny, 2)
	if settled, _, _ := c.OnRejected(0, value.Int32(1)); settled {
		t.Fatalf("any must wait for all rejections before rejecting")
	}
	settled, _, rejected := c.OnRejected(1, value.Int32(2))
	if !settled || !rejected {
		t.Fatalf("any must reject once every input rejected")
	}

	c2 := NewCombinator(CombinatorAny, 2)
	settled, v, rejected := c2.OnFulfilled(1, value.Int32(7))
	if !settled || rejected || v.Float64() != 7 {
		t.Fatalf("any must fulfill on the first fulfillment")
	}
}

func TestCombinatorRaceAndAllSettled(t *testing.T) {
	race := NewCombinator(CombinatorRace, 3)
	settled, v, rejected := race.OnFulfilled(1, value.Int32(5))
	if !settled || rejected || v.Float64() != 5 {
		t.Fatalf("race must settle with the first settlement")
	}
	if settled, _, _ := race.OnRejected(0, value.Int32(1)); settled {
		t.Fatalf("race must ignore later settlements")
	}

	as := NewCombinator(CombinatorAllSettled, 2)
	as.OnFulfilled(0, value.Int32(1))
	settled, _, rejected = as.OnRejected(1, value.Int32(2))
	if !settled || rejected {
		t.Fatalf("allSettled always fulfills")
	}
}
