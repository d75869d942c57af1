package sla

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

type captureSink struct {
	mu     sync.Mutex
	events []core.EscalationEvent
	ch     chan core.EscalationEvent
}

func newCaptureSink() *captureSink {
	return &captureSink{ch: make(chan core.EscalationEvent, 16)}
}

func (s *captureSink) Escalate(ev core.EscalationEvent, _ *core.RoutingDecision) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	s.ch <- ev
}

func (s *captureSink) wait(t *testing.T, n int) []core.EscalationEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-s.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for escalation %d of %d", i+1, n)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.EscalationEvent, len(s.events))
	copy(out, s.events)
	return out
}

func testDecision(id string, steps ...core.EscalationStep) *core.RoutingDecision {
	return &core.RoutingDecision{
		MessageID: id,
		TenantID:  "acme",
		Recipient: "support@acme.com",
		Reason:    core.ReasonCategoryDefault,
		Chain:     steps,
	}
}

func TestScheduler_FiresInOrder(t *testing.T) {
	t.Parallel()

	sink := newCaptureSink()
	s := NewScheduler(sink, zap.NewNop())
	defer s.Stop()

	now := time.Now()
	// Declared out of order; the later step must still fire second.
	decision := testDecision("msg-1",
		core.EscalationStep{Recipient: "manager@acme.com", FireAt: now.Add(60 * time.Millisecond), State: core.StepPending},
		core.EscalationStep{Recipient: "lead@acme.com", FireAt: now.Add(10 * time.Millisecond), State: core.StepPending},
	)

	if got := s.Schedule(decision); got != 2 {
		t.Fatalf("Schedule() = %d, want 2", got)
	}

	events := sink.wait(t, 2)
	if events[0].Recipient != "lead@acme.com" {
		t.Errorf("first escalation to %q, want %q", events[0].Recipient, "lead@acme.com")
	}
	if events[1].Recipient != "manager@acme.com" {
		t.Errorf("second escalation to %q, want %q", events[1].Recipient, "manager@acme.com")
	}
	if events[0].Step != 0 || events[1].Step != 1 {
		t.Errorf("steps = %d, %d, want 0, 1", events[0].Step, events[1].Step)
	}

	for i, step := range decision.Chain {
		if step.State != core.StepFired {
			t.Errorf("Chain[%d].State = %q, want %q", i, step.State, core.StepFired)
		}
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestScheduler_PastFireTimeFiresImmediately(t *testing.T) {
	t.Parallel()

	sink := newCaptureSink()
	s := NewScheduler(sink, zap.NewNop())
	defer s.Stop()

	decision := testDecision("msg-1",
		core.EscalationStep{Recipient: "lead@acme.com", FireAt: time.Now().Add(-time.Hour), State: core.StepPending},
	)
	s.Schedule(decision)

	events := sink.wait(t, 1)
	if events[0].Recipient != "lead@acme.com" {
		t.Errorf("escalation to %q, want %q", events[0].Recipient, "lead@acme.com")
	}
}

func TestScheduler_EmptyChain(t *testing.T) {
	t.Parallel()

	sink := newCaptureSink()
	s := NewScheduler(sink, zap.NewNop())
	defer s.Stop()

	if got := s.Schedule(testDecision("msg-1")); got != 0 {
		t.Errorf("Schedule(empty chain) = %d, want 0", got)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	t.Parallel()

	sink := newCaptureSink()
	s := NewScheduler(sink, zap.NewNop())
	defer s.Stop()

	decision := testDecision("msg-1",
		core.EscalationStep{Recipient: "lead@acme.com", FireAt: time.Now().Add(time.Hour), State: core.StepPending},
		core.EscalationStep{Recipient: "manager@acme.com", FireAt: time.Now().Add(2 * time.Hour), State: core.StepPending},
	)
	s.Schedule(decision)
	s.Cancel("msg-1")

	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() after cancel = %d, want 0", got)
	}
	for i, step := range decision.Chain {
		if step.State != core.StepCancelled {
			t.Errorf("Chain[%d].State = %q, want %q", i, step.State, core.StepCancelled)
		}
	}

	select {
	case ev := <-sink.ch:
		t.Errorf("escalation fired after cancel: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_CancelIdempotent(t *testing.T) {
	t.Parallel()

	sink := newCaptureSink()
	s := NewScheduler(sink, zap.NewNop())
	defer s.Stop()

	decision := testDecision("msg-1",
		core.EscalationStep{Recipient: "lead@acme.com", FireAt: time.Now().Add(time.Hour), State: core.StepPending},
	)
	s.Schedule(decision)

	// Double cancel, cancel of an unknown message: all no-ops.
	s.Cancel("msg-1")
	s.Cancel("msg-1")
	s.Cancel("never-scheduled")
}

func TestScheduler_CancelAfterFire(t *testing.T) {
	t.Parallel()

	sink := newCaptureSink()
	s := NewScheduler(sink, zap.NewNop())
	defer s.Stop()

	decision := testDecision("msg-1",
		core.EscalationStep{Recipient: "lead@acme.com", FireAt: time.Now().Add(5 * time.Millisecond), State: core.StepPending},
	)
	s.Schedule(decision)
	sink.wait(t, 1)

	s.Cancel("msg-1")
	if decision.Chain[0].State != core.StepFired {
		t.Errorf("Chain[0].State = %q, want %q (fired steps stay fired)", decision.Chain[0].State, core.StepFired)
	}
}

func TestScheduler_RescheduleReplacesChain(t *testing.T) {
	t.Parallel()

	sink := newCaptureSink()
	s := NewScheduler(sink, zap.NewNop())
	defer s.Stop()

	old := testDecision("msg-1",
		core.EscalationStep{Recipient: "old@acme.com", FireAt: time.Now().Add(30 * time.Millisecond), State: core.StepPending},
	)
	s.Schedule(old)

	replacement := testDecision("msg-1",
		core.EscalationStep{Recipient: "new@acme.com", FireAt: time.Now().Add(30 * time.Millisecond), State: core.StepPending},
	)
	s.Schedule(replacement)

	events := sink.wait(t, 1)
	if events[0].Recipient != "new@acme.com" {
		t.Errorf("escalation to %q, want %q", events[0].Recipient, "new@acme.com")
	}

	select {
	case ev := <-sink.ch:
		t.Errorf("replaced chain still fired: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_Stop(t *testing.T) {
	t.Parallel()

	sink := newCaptureSink()
	s := NewScheduler(sink, zap.NewNop())

	for _, id := range []string{"msg-1", "msg-2", "msg-3"} {
		s.Schedule(testDecision(id,
			core.EscalationStep{Recipient: "lead@acme.com", FireAt: time.Now().Add(time.Hour), State: core.StepPending},
		))
	}
	if got := s.Pending(); got != 3 {
		t.Fatalf("Pending() = %d, want 3", got)
	}

	s.Stop()
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() after Stop = %d, want 0", got)
	}
}
