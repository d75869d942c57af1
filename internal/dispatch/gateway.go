// Package dispatch is the only component that talks to the two I/O
// collaborators: the classification oracle and the mail transport.
// Everything above it stays pure and testable without network access.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

// Template refs handed to the transport; wording lives with the
// transport's renderer, the engine only picks recipients.
const (
	TemplateAck        = "acknowledgment"
	TemplateRouted     = "routed_notification"
	TemplateEscalation = "escalation_notice"
)

// Gateway wraps the oracle with a bounded timeout and funnels every
// outbound send through the transport. It also tracks which primary
// recipients have recently failed delivery, feeding the routing
// engine's backup-fallback rule.
type Gateway struct {
	oracle        core.ClassificationOracle
	transport     core.MailTransport
	logger        *zap.Logger
	oracleTimeout time.Duration

	mu          sync.Mutex
	unavailable map[string]bool
}

// NewGateway creates a gateway. oracle may be nil when no provider is
// configured; every classification then takes the fallback path.
func NewGateway(oracle core.ClassificationOracle, transport core.MailTransport, oracleTimeout time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{
		oracle:        oracle,
		transport:     transport,
		logger:        logger,
		oracleTimeout: oracleTimeout,
		unavailable:   make(map[string]bool),
	}
}

// Classify calls the oracle with the configured timeout. Failures are
// returned as the recoverable oracle errors; callers log them and
// proceed on the keyword fallback path rather than blocking.
func (g *Gateway) Classify(ctx context.Context, msg *core.Message, catalog []core.CategoryDescriptor) (*core.OracleResult, error) {
	if g.oracle == nil {
		return nil, core.ErrOracleUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, g.oracleTimeout)
	defer cancel()

	result, err := g.oracle.Classify(ctx, msg, catalog)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", core.ErrOracleTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrOracleUnavailable, err)
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, nil
}

// Send attempts one delivery. A transport failure flags the recipient
// unreachable for subsequent routing decisions; there is no
// transport-level retry here.
func (g *Gateway) Send(ctx context.Context, req *core.SendRequest) *core.SendResult {
	if g.transport == nil {
		return &core.SendResult{Status: core.SendStatusFailed}
	}

	result, err := g.transport.Send(ctx, req)
	if err != nil || result == nil || result.Status == core.SendStatusFailed {
		g.logger.Warn("Outbound delivery failed",
			zap.String("to", req.To),
			zap.String("template", req.BodyRef),
			zap.Error(err))
		g.markUnavailable(req.To)
		return &core.SendResult{Status: core.SendStatusFailed}
	}

	g.markAvailable(req.To)
	return result
}

// Escalate implements the SLA scheduler's sink: one notice to the
// next-tier recipient per fired step.
func (g *Gateway) Escalate(ev core.EscalationEvent, decision *core.RoutingDecision) {
	req := &core.SendRequest{
		To:         ev.Recipient,
		SubjectRef: TemplateEscalation,
		BodyRef:    TemplateEscalation,
		Variables: map[string]string{
			"message_id":         ev.MessageID,
			"tenant_id":          ev.TenantID,
			"step":               fmt.Sprintf("%d", ev.Step),
			"original_recipient": decision.Recipient,
			"sla_deadline":       decision.SLADeadline.Format(time.RFC3339),
		},
	}
	g.Send(context.Background(), req)
}

// Unavailable returns a snapshot of recipients currently flagged
// unreachable, for the routing engine's backup-fallback rule.
func (g *Gateway) Unavailable() map[string]bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	snapshot := make(map[string]bool, len(g.unavailable))
	for to := range g.unavailable {
		snapshot[to] = true
	}
	return snapshot
}

func (g *Gateway) markUnavailable(to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unavailable[to] = true
}

func (g *Gateway) markAvailable(to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.unavailable, to)
}
