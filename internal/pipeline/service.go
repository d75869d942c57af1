// Package pipeline wires the engine components into the per-message
// flow: tenant resolution, classification, routing, SLA scheduling and
// dispatch. One logical task per message; the steps within a message
// are sequential.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/classify"
	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/dispatch"
	"github.com/mikey/llm-mail-router/internal/route"
	"github.com/mikey/llm-mail-router/internal/sla"
	"github.com/mikey/llm-mail-router/internal/tenant"
)

// Service is the decision-and-escalation engine's entry point.
type Service struct {
	directory *tenant.Directory
	resolver  *classify.Resolver
	engine    *route.Engine
	scheduler *sla.Scheduler
	gateway   *dispatch.Gateway
	decisions core.DecisionLog
	logger    *zap.Logger
}

// NewService creates the pipeline service.
func NewService(
	directory *tenant.Directory,
	resolver *classify.Resolver,
	engine *route.Engine,
	scheduler *sla.Scheduler,
	gateway *dispatch.Gateway,
	decisions core.DecisionLog,
	logger *zap.Logger,
) *Service {
	return &Service{
		directory: directory,
		resolver:  resolver,
		engine:    engine,
		scheduler: scheduler,
		gateway:   gateway,
		decisions: decisions,
		logger:    logger,
	}
}

// Route processes one inbound message end to end. Collaborator
// failures degrade to the documented fallbacks; the sender always gets
// an acknowledgment and the business owner a routed decision, even
// under full oracle outage.
func (s *Service) Route(ctx context.Context, msg *core.Message) (*core.RoutingDecision, error) {
	t := s.directory.Resolve(msg.Recipient)

	oracleResult, err := s.gateway.Classify(ctx, msg, t.Catalog())
	if err != nil {
		// Oracle outage degrades to keyword classification, never to a
		// dropped message.
		s.logger.Warn("Oracle unavailable, using keyword fallback",
			zap.String("message_id", msg.ID),
			zap.String("tenant", t.ID),
			zap.Error(err))
		oracleResult = nil
	}

	cls, err := s.resolver.Resolve(t, msg, oracleResult)
	if errors.Is(err, core.ErrConfigurationInconsistency) {
		// Stale or drifted tenant config discovered at decision time:
		// report it and reroute through the default tenant's fallback
		// instead of dropping the message.
		s.logger.Error("Tenant configuration drift, rerouting via default tenant",
			zap.String("message_id", msg.ID),
			zap.String("tenant", t.ID),
			zap.Error(err))
		t = s.directory.Default()
		cls, err = s.resolver.Resolve(t, msg, nil)
	}
	if err != nil {
		return nil, err
	}

	decision, err := s.engine.Decide(t, cls, msg, s.gateway.Unavailable())
	if err != nil {
		return nil, err
	}

	s.scheduler.Schedule(decision)
	s.notify(ctx, msg, cls, decision)

	if s.decisions != nil {
		rec := &core.DecisionRecord{
			MessageID:   decision.MessageID,
			TenantID:    decision.TenantID,
			Category:    cls.Category,
			Recipient:   decision.Recipient,
			Reason:      decision.Reason,
			SLADeadline: decision.SLADeadline,
			CreatedAt:   time.Now(),
		}
		if err := s.decisions.Record(ctx, rec); err != nil {
			s.logger.Error("Failed to record decision", zap.Error(err),
				zap.String("message_id", decision.MessageID))
		}
	}
	return decision, nil
}

// Acknowledge signals that a human responded to the message; every
// pending escalation timer for it is cancelled. Idempotent.
func (s *Service) Acknowledge(messageID string) {
	s.scheduler.Cancel(messageID)
	s.logger.Info("Message acknowledged", zap.String("message_id", messageID))
}

// notify sends the sender's acknowledgment and the routed notification
// to the chosen recipient. Neither failure aborts the pipeline.
func (s *Service) notify(ctx context.Context, msg *core.Message, cls *core.Classification, decision *core.RoutingDecision) {
	vars := map[string]string{
		"message_id":   msg.ID,
		"tenant_id":    decision.TenantID,
		"sender":       msg.Sender,
		"subject":      msg.Subject,
		"category":     cls.Category,
		"priority":     string(cls.Priority),
		"reason":       string(decision.Reason),
		"sla_deadline": decision.SLADeadline.Format(time.RFC3339),
	}

	s.gateway.Send(ctx, &core.SendRequest{
		To:         msg.Sender,
		SubjectRef: dispatch.TemplateAck,
		BodyRef:    dispatch.TemplateAck,
		Variables:  vars,
	})
	s.gateway.Send(ctx, &core.SendRequest{
		To:         decision.Recipient,
		SubjectRef: dispatch.TemplateRouted,
		BodyRef:    dispatch.TemplateRouted,
		Variables:  vars,
	})
}
