// Package classify turns an oracle result or the tenant's keyword
// rules into a final classification. The two-path degradation (oracle
// vs. fallback) is a first-class code path here, not scattered
// defaults.
package classify

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/tenant"
)

// FallbackConfidence is the conservative sentinel assigned when no
// keyword matches and the tenant's default category is used.
const FallbackConfidence = 0.6

// Resolver produces exactly one Classification per message.
type Resolver struct {
	logger *zap.Logger
	folder cases.Caser
}

// NewResolver creates a resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{
		logger: logger,
		folder: cases.Fold(),
	}
}

// Resolve applies the oracle result when it is present, names a known
// category and clears that category's confidence threshold; otherwise
// it falls back to keyword scanning. Either way the winning category
// must exist in the tenant's routing table - configuration drift
// surfaces as ErrConfigurationInconsistency, never a dropped message.
func (r *Resolver) Resolve(t *tenant.Config, msg *core.Message, oracle *core.OracleResult) (*core.Classification, error) {
	var cls *core.Classification

	if oracle != nil {
		if cat := t.CategoryByName(oracle.Category); cat != nil && oracle.Confidence >= cat.ConfidenceThreshold {
			cls = &core.Classification{
				Category:   oracle.Category,
				Confidence: oracle.Confidence,
				Reasoning:  oracle.Reasoning,
				Priority:   cat.Priority,
				Source:     core.SourceOracle,
			}
		} else {
			r.logger.Debug("Oracle result rejected, falling back to keywords",
				zap.String("message_id", msg.ID),
				zap.String("category", oracle.Category),
				zap.Float64("confidence", oracle.Confidence))
		}
	}

	if cls == nil {
		cls = r.fallback(t, msg)
	}

	if _, routed := t.Routing[cls.Category]; !routed {
		return nil, fmt.Errorf("category %q has no routing entry for tenant %q: %w",
			cls.Category, t.ID, core.ErrConfigurationInconsistency)
	}

	if r.containsAny(msg, t.UrgencyKeywords) {
		cls.Priority = core.PriorityUrgent
	}

	r.logger.Info("Message classified",
		zap.String("message_id", msg.ID),
		zap.String("tenant", t.ID),
		zap.String("category", cls.Category),
		zap.Float64("confidence", cls.Confidence),
		zap.String("priority", string(cls.Priority)),
		zap.String("source", string(cls.Source)))
	return cls, nil
}

// fallback scans subject+body case-insensitively against every
// category's keyword set. Most distinct keyword hits wins; ties go to
// the earlier-declared category. No hits at all lands in the tenant's
// default category at the sentinel confidence.
func (r *Resolver) fallback(t *tenant.Config, msg *core.Message) *core.Classification {
	text := r.fold(msg.Subject + " " + msg.Body)

	var winner *tenant.Category
	best := 0
	for i := range t.Categories {
		cat := &t.Categories[i]
		hits := 0
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(text, r.fold(kw)) {
				hits++
			}
		}
		if hits > best {
			best = hits
			winner = cat
		}
	}

	if winner == nil {
		def := t.CategoryByName(t.DefaultCategory)
		return &core.Classification{
			Category:   t.DefaultCategory,
			Confidence: FallbackConfidence,
			Reasoning:  "no category keywords matched",
			Priority:   def.Priority,
			Source:     core.SourceFallback,
		}
	}

	return &core.Classification{
		Category:   winner.Name,
		Confidence: FallbackConfidence,
		Reasoning:  fmt.Sprintf("matched %d keyword(s) for %q", best, winner.Name),
		Priority:   winner.Priority,
		Source:     core.SourceFallback,
	}
}

func (r *Resolver) containsAny(msg *core.Message, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	text := r.fold(msg.Subject + " " + msg.Body)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, r.fold(kw)) {
			return true
		}
	}
	return false
}

func (r *Resolver) fold(s string) string {
	return r.folder.String(s)
}
