package core

import (
	"time"
)

// Message represents an inbound email handed to the engine by the
// inbound transport. It is consumed once and never mutated.
type Message struct {
	ID         string
	Sender     string
	Recipient  string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// Priority is the urgency tier assigned to a classified message.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Source indicates which path produced a classification.
type Source string

const (
	// SourceOracle means the external classification oracle's result
	// was adopted verbatim.
	SourceOracle Source = "oracle"

	// SourceFallback means the tenant's keyword rules produced the
	// classification (oracle absent, errored, or below threshold).
	SourceFallback Source = "fallback"
)

// OracleResult is the raw response from the classification oracle.
type OracleResult struct {
	Category     string
	Confidence   float64
	Reasoning    string
	PriorityHint Priority
}

// CategoryDescriptor is the part of a tenant category the oracle needs
// to build its catalog.
type CategoryDescriptor struct {
	Name        string
	Description string
}

// Classification is the category, confidence and priority attached to
// a message. Created exactly once per message; immutable afterward.
type Classification struct {
	Category   string
	Confidence float64
	Reasoning  string
	Priority   Priority
	Source     Source
}

// Reason records which precedence rule selected the recipient.
type Reason string

const (
	ReasonKeywordOverride Reason = "keyword_override"
	ReasonVIPOverride     Reason = "vip_override"
	ReasonAfterHours      Reason = "after_hours"
	ReasonWeekend         Reason = "weekend"
	ReasonCategoryDefault Reason = "category_default"
	ReasonBackupFallback  Reason = "backup_fallback"
)

// StepState tracks the lifecycle of one escalation chain step.
type StepState string

const (
	StepPending   StepState = "pending"
	StepFired     StepState = "fired"
	StepCancelled StepState = "cancelled"
)

// EscalationStep is one time-delayed fallback recipient in a routing
// decision's escalation chain.
type EscalationStep struct {
	Recipient string
	FireAt    time.Time
	State     StepState
}

// RoutingDecision is the chosen recipient and justification for a
// classified message, plus the not-yet-fired escalation chain. It is
// created by the routing engine and mutated only by the SLA scheduler,
// which marks chain steps fired or cancelled.
type RoutingDecision struct {
	MessageID   string
	TenantID    string
	Recipient   string
	Reason      Reason
	Chain       []EscalationStep
	SLADeadline time.Time
	DecidedAt   time.Time
}

// EscalationEvent is emitted when an escalation timer fires.
type EscalationEvent struct {
	MessageID string
	TenantID  string
	Recipient string
	Step      int
}

// SendStatus is the outcome of a transport send attempt.
type SendStatus string

const (
	SendStatusSent   SendStatus = "sent"
	SendStatusFailed SendStatus = "failed"
)

// SendRequest is handed to the mail transport. The engine only decides
// who and by when; wording lives behind the template refs.
type SendRequest struct {
	To         string
	SubjectRef string
	BodyRef    string
	Variables  map[string]string
}

// SendResult reports whether a send was accepted by the provider.
type SendResult struct {
	Status            SendStatus
	ProviderMessageID string
}

// DecisionRecord is the audit row persisted for every routing decision.
type DecisionRecord struct {
	MessageID   string
	TenantID    string
	Category    string
	Recipient   string
	Reason      Reason
	SLADeadline time.Time
	CreatedAt   time.Time
}
