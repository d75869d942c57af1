package sla

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

// Sink receives escalation events when timers fire. The dispatch
// gateway implements it; the scheduler itself performs no I/O.
type Sink interface {
	Escalate(ev core.EscalationEvent, decision *core.RoutingDecision)
}

// Scheduler is the process-local escalation timer registry. Many
// decisions register timers concurrently; schedule, cancel and firing
// all serialize on one registry lock so a cancel racing a fire
// resolves deterministically: a cancel that lands strictly before fire
// time always wins, and a fire already holding the lock completes and
// is never also cancelled.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	sink    Sink
	logger  *zap.Logger
	now     func() time.Time
}

type entry struct {
	decision  *core.RoutingDecision
	timer     *time.Timer
	next      int
	cancelled bool
}

// NewScheduler creates an empty timer registry.
func NewScheduler(sink Sink, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		entries: make(map[string]*entry),
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// Schedule registers the decision's escalation chain and returns the
// number of steps pending. Steps are sorted by fire time at schedule
// time and armed one at a time, so a later step can never fire before
// an earlier one regardless of timer race order. An empty chain is
// valid and registers nothing.
func (s *Scheduler) Schedule(decision *core.RoutingDecision) int {
	if len(decision.Chain) == 0 {
		return 0
	}
	sort.SliceStable(decision.Chain, func(i, j int) bool {
		return decision.Chain[i].FireAt.Before(decision.Chain[j].FireAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.entries[decision.MessageID]; exists {
		// Re-scheduling the same message replaces its chain.
		old.cancelled = true
		if old.timer != nil {
			old.timer.Stop()
		}
	}

	e := &entry{decision: decision}
	s.entries[decision.MessageID] = e
	s.armLocked(e)

	s.logger.Debug("Escalation chain scheduled",
		zap.String("message_id", decision.MessageID),
		zap.String("tenant", decision.TenantID),
		zap.Int("steps", len(decision.Chain)))
	return len(decision.Chain)
}

// armLocked arms the timer for the entry's next pending step. Caller
// holds the registry lock.
func (s *Scheduler) armLocked(e *entry) {
	for e.next < len(e.decision.Chain) {
		step := &e.decision.Chain[e.next]
		if step.State != core.StepPending {
			e.next++
			continue
		}
		delay := step.FireAt.Sub(s.now())
		if delay < 0 {
			delay = 0
		}
		id := e.decision.MessageID
		idx := e.next
		e.timer = time.AfterFunc(delay, func() {
			s.fire(id, idx)
		})
		return
	}
	// Chain exhausted.
	delete(s.entries, e.decision.MessageID)
}

// fire marks a step fired and emits its event, then arms the next
// step. A fire observing a cancellation is suppressed; it never both
// fires and is silently dropped.
func (s *Scheduler) fire(messageID string, idx int) {
	s.mu.Lock()
	e, ok := s.entries[messageID]
	if !ok || e.cancelled || idx != e.next {
		s.mu.Unlock()
		return
	}
	step := &e.decision.Chain[idx]
	if step.State != core.StepPending {
		// A step in any other state here means the registry lock
		// failed us.
		s.logger.Error("Escalation step in unexpected state",
			zap.String("message_id", messageID),
			zap.Int("step", idx),
			zap.String("state", string(step.State)),
			zap.Error(core.ErrSchedulerRace))
		s.mu.Unlock()
		return
	}
	step.State = core.StepFired
	e.next++
	ev := core.EscalationEvent{
		MessageID: messageID,
		TenantID:  e.decision.TenantID,
		Recipient: step.Recipient,
		Step:      idx,
	}
	decision := e.decision
	s.armLocked(e)
	s.mu.Unlock()

	s.logger.Info("Escalation timer fired",
		zap.String("message_id", ev.MessageID),
		zap.String("tenant", ev.TenantID),
		zap.String("escalate_to", ev.Recipient),
		zap.Int("step", ev.Step))
	if s.sink != nil {
		s.sink.Escalate(ev, decision)
	}
}

// Cancel stops every pending step for the message, typically because a
// human acknowledged it. Cancelling an unknown, already-fired or
// already-cancelled message is a no-op, not an error.
func (s *Scheduler) Cancel(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[messageID]
	if !ok || e.cancelled {
		return
	}
	e.cancelled = true
	if e.timer != nil {
		e.timer.Stop()
	}
	for i := range e.decision.Chain {
		if e.decision.Chain[i].State == core.StepPending {
			e.decision.Chain[i].State = core.StepCancelled
		}
	}
	delete(s.entries, messageID)
	s.logger.Debug("Escalation chain cancelled", zap.String("message_id", messageID))
}

// Pending reports how many messages still have armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels every registered chain, for shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.cancelled = true
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, id)
	}
}
