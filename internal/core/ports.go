package core

import (
	"context"
)

// ClassificationOracle defines the interface to the external service
// that categorizes a message. Implementations may be slow or
// unavailable; callers bound every call with a timeout and fall back
// to keyword rules on failure.
type ClassificationOracle interface {
	// Classify categorizes a message against the tenant's category
	// catalog. Confidence is in [0,1].
	Classify(ctx context.Context, msg *Message, catalog []CategoryDescriptor) (*OracleResult, error)
}

// MailTransport delivers outbound mail. The engine never retries
// transport-level sends.
type MailTransport interface {
	// Send attempts a single delivery.
	Send(ctx context.Context, req *SendRequest) (*SendResult, error)
}

// DecisionLog persists routing decisions for audit.
type DecisionLog interface {
	// Record stores a decision.
	Record(ctx context.Context, rec *DecisionRecord) error

	// Get retrieves a previously recorded decision by message id.
	Get(ctx context.Context, messageID string) (*DecisionRecord, error)

	// Cleanup removes records older than the store's retention.
	Cleanup(ctx context.Context) error
}
