// Package route holds the core precedence logic: given a tenant
// configuration and a classification, pick the human who must act.
package route

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/mikey/llm-mail-router/internal/addr"
	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/sla"
	"github.com/mikey/llm-mail-router/internal/tenant"
)

// Engine evaluates the routing precedence chain. Decide is a pure
// function of its inputs: same tenant, classification, message and
// unavailable set always produce the same recipient and reason.
type Engine struct {
	logger *zap.Logger
	folder cases.Caser
}

// NewEngine creates a routing engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		logger: logger,
		folder: cases.Fold(),
	}
}

// Decide picks the primary recipient by strict precedence - keyword
// override, VIP override, off-hours override, category default, backup
// fallback - and materializes the escalation chain with absolute fire
// times. unavailable is the caller's signal that a primary recipient
// is unreachable (e.g. a prior delivery failure).
func (e *Engine) Decide(t *tenant.Config, cls *core.Classification, msg *core.Message, unavailable map[string]bool) (*core.RoutingDecision, error) {
	recipient, reason, err := e.pick(t, cls, msg, unavailable)
	if err != nil {
		return nil, err
	}

	policy := t.Policy(cls.Category)
	decision := &core.RoutingDecision{
		MessageID:   msg.ID,
		TenantID:    t.ID,
		Recipient:   recipient,
		Reason:      reason,
		Chain:       e.chain(t, cls.Category, msg, policy),
		SLADeadline: sla.Deadline(msg.ReceivedAt, policy, &t.Hours),
		DecidedAt:   msg.ReceivedAt,
	}

	e.logger.Info("Routing decision",
		zap.String("message_id", msg.ID),
		zap.String("tenant", t.ID),
		zap.String("recipient", recipient),
		zap.String("reason", string(reason)),
		zap.Int("escalation_steps", len(decision.Chain)),
		zap.Time("sla_deadline", decision.SLADeadline))
	return decision, nil
}

func (e *Engine) pick(t *tenant.Config, cls *core.Classification, msg *core.Message, unavailable map[string]bool) (string, core.Reason, error) {
	// Rule 1: keyword triggers bypass everything. Triggers are checked
	// in sorted order so map iteration cannot make decisions flap.
	if len(t.Escalation.KeywordBased) > 0 {
		text := e.folder.String(msg.Subject + " " + msg.Body)
		triggers := make([]string, 0, len(t.Escalation.KeywordBased))
		for kw := range t.Escalation.KeywordBased {
			triggers = append(triggers, kw)
		}
		sort.Strings(triggers)
		for _, kw := range triggers {
			if strings.Contains(text, e.folder.String(kw)) {
				return t.Escalation.KeywordBased[kw], core.ReasonKeywordOverride, nil
			}
		}
	}

	// Rule 2: VIP senders.
	if t.Special.VIPRouteTo != "" && addr.DomainIn(msg.Sender, t.Special.VIPDomains) {
		return t.Special.VIPRouteTo, core.ReasonVIPOverride, nil
	}

	// Rule 3: off-hours staffing, only for categories whose SLA is
	// bound to business hours.
	policy := t.Policy(cls.Category)
	if policy.BusinessHoursOnly && !t.Hours.IsOpen(msg.ReceivedAt) {
		if !t.Hours.IsWorkday(msg.ReceivedAt) && t.Special.WeekendRouteTo != "" {
			return t.Special.WeekendRouteTo, core.ReasonWeekend, nil
		}
		if t.Special.AfterHoursRouteTo != "" {
			return t.Special.AfterHoursRouteTo, core.ReasonAfterHours, nil
		}
	}

	// Rule 4: category default.
	primary, ok := t.Routing[cls.Category]
	if !ok || primary == "" {
		return "", "", fmt.Errorf("category %q has no routing entry for tenant %q: %w",
			cls.Category, t.ID, core.ErrConfigurationInconsistency)
	}
	if !unavailable[primary] {
		return primary, core.ReasonCategoryDefault, nil
	}

	// Rule 5: primary flagged unreachable, substitute the backup.
	if backup := t.BackupRouting[cls.Category]; backup != "" {
		return backup, core.ReasonBackupFallback, nil
	}
	// No backup configured: stay with the primary rather than drop.
	return primary, core.ReasonCategoryDefault, nil
}

// chain converts the category's time-based escalation rules into
// not-yet-fired steps with absolute fire times, ordered by delay. An
// empty chain is valid.
func (e *Engine) chain(t *tenant.Config, category string, msg *core.Message, policy tenant.SLAPolicy) []core.EscalationStep {
	rules := t.Escalation.TimeBased[category]
	if len(rules) == 0 {
		return nil
	}
	sorted := make([]tenant.EscalationRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].After < sorted[j].After
	})

	steps := make([]core.EscalationStep, 0, len(sorted))
	for _, rule := range sorted {
		steps = append(steps, core.EscalationStep{
			Recipient: rule.EscalateTo,
			FireAt:    sla.FireAt(msg.ReceivedAt, rule.After, policy, &t.Hours),
			State:     core.StepPending,
		})
	}
	return steps
}
