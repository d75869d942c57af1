package tenant

import (
	"fmt"

	"github.com/mikey/llm-mail-router/internal/addr"
	"github.com/mikey/llm-mail-router/internal/core"
)

// Validate checks a tenant document exhaustively: every category
// referenced anywhere must be declared, every address non-empty, and
// the business-hours calendar parseable. A document with any defect is
// rejected whole; partially valid configurations are never activated.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("tenant %q: %s: %w", c.ID, fmt.Sprintf(format, args...), core.ErrConfigurationInconsistency)
	}

	if c.ID == "" {
		return fail("missing id")
	}
	if len(c.Domains) == 0 {
		return fail("no domains declared")
	}
	for i, d := range c.Domains {
		c.Domains[i] = addr.Normalize(d)
		if c.Domains[i] == "" {
			return fail("empty domain entry")
		}
	}

	if len(c.Categories) == 0 {
		return fail("no categories declared")
	}
	c.categoryIndex = make(map[string]*Category, len(c.Categories))
	for i := range c.Categories {
		cat := &c.Categories[i]
		if cat.Name == "" {
			return fail("category %d has no name", i)
		}
		if _, dup := c.categoryIndex[cat.Name]; dup {
			return fail("duplicate category %q", cat.Name)
		}
		if cat.ConfidenceThreshold < 0 || cat.ConfidenceThreshold > 1 {
			return fail("category %q: confidence threshold %v outside [0,1]", cat.Name, cat.ConfidenceThreshold)
		}
		if cat.Priority == "" {
			cat.Priority = core.PriorityMedium
		}
		c.categoryIndex[cat.Name] = cat
	}

	if c.DefaultCategory == "" {
		c.DefaultCategory = "general"
	}
	if c.CategoryByName(c.DefaultCategory) == nil {
		return fail("default category %q is not declared", c.DefaultCategory)
	}

	if len(c.Routing) == 0 {
		return fail("empty routing table")
	}
	for category, to := range c.Routing {
		if c.CategoryByName(category) == nil {
			return fail("routing references unknown category %q", category)
		}
		if to == "" {
			return fail("routing for %q has empty address", category)
		}
	}
	for category, to := range c.BackupRouting {
		if c.CategoryByName(category) == nil {
			return fail("backup routing references unknown category %q", category)
		}
		if to == "" {
			return fail("backup routing for %q has empty address", category)
		}
	}

	for category, rules := range c.Escalation.TimeBased {
		if c.CategoryByName(category) == nil {
			return fail("escalation references unknown category %q", category)
		}
		for i, rule := range rules {
			if rule.After <= 0 {
				return fail("escalation for %q step %d has non-positive delay", category, i)
			}
			if rule.EscalateTo == "" {
				return fail("escalation for %q step %d has empty address", category, i)
			}
		}
	}
	for keyword, to := range c.Escalation.KeywordBased {
		if keyword == "" {
			return fail("keyword escalation with empty trigger")
		}
		if to == "" {
			return fail("keyword escalation %q has empty address", keyword)
		}
	}

	if len(c.Special.VIPDomains) > 0 && c.Special.VIPRouteTo == "" {
		return fail("vip_domains declared without vip_route_to")
	}
	for i, d := range c.Special.VIPDomains {
		c.Special.VIPDomains[i] = addr.Normalize(d)
	}

	for category, policy := range c.SLA {
		if c.CategoryByName(category) == nil {
			return fail("sla references unknown category %q", category)
		}
		if policy.Target <= 0 {
			return fail("sla for %q has non-positive target", category)
		}
		if policy.WeekendMultiplier != 0 && policy.WeekendMultiplier < 1 {
			return fail("sla for %q has weekend multiplier below 1", category)
		}
	}

	if err := c.Hours.Compile(); err != nil {
		return fail("business hours: %v", err)
	}
	return nil
}
