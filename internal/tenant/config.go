package tenant

import (
	"time"

	"github.com/mikey/llm-mail-router/internal/core"
)

// Category is one classification bucket a tenant declares. Declaration
// order matters: keyword-fallback ties are broken by it.
type Category struct {
	Name                string        `mapstructure:"name"`
	Description         string        `mapstructure:"description"`
	Priority            core.Priority `mapstructure:"priority"`
	Keywords            []string      `mapstructure:"keywords"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
}

// EscalationRule is one time-based escalation step for a category.
type EscalationRule struct {
	After      time.Duration `mapstructure:"after"`
	EscalateTo string        `mapstructure:"escalate_to"`
}

// Escalation holds a tenant's escalation rules. Keyword triggers fire
// immediately and override everything else; time-based rules build the
// escalation chain.
type Escalation struct {
	TimeBased    map[string][]EscalationRule `mapstructure:"time_based"`
	KeywordBased map[string]string           `mapstructure:"keyword_based"`
}

// SpecialRules covers VIP senders and off-hours staffing.
type SpecialRules struct {
	VIPDomains        []string `mapstructure:"vip_domains"`
	VIPRouteTo        string   `mapstructure:"vip_route_to"`
	AfterHoursRouteTo string   `mapstructure:"after_hours_route_to"`
	WeekendRouteTo    string   `mapstructure:"weekend_route_to"`
}

// SLAPolicy is the per-category response-time commitment.
type SLAPolicy struct {
	Target            time.Duration `mapstructure:"target"`
	BusinessHoursOnly bool          `mapstructure:"business_hours_only"`
	WeekendMultiplier float64       `mapstructure:"weekend_multiplier"`
}

// Config is one tenant's complete, validated configuration. It is
// immutable for the lifetime of a message: reloads build a new value,
// never mutate in place.
type Config struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`

	Domains    []string   `mapstructure:"domains"`
	Categories []Category `mapstructure:"categories"`

	Routing       map[string]string `mapstructure:"routing"`
	BackupRouting map[string]string `mapstructure:"backup_routing"`

	Escalation Escalation           `mapstructure:"escalation"`
	Special    SpecialRules         `mapstructure:"special_rules"`
	Hours      BusinessHours        `mapstructure:"business_hours"`
	SLA        map[string]SLAPolicy `mapstructure:"sla"`

	DefaultCategory string   `mapstructure:"default_category"`
	UrgencyKeywords []string `mapstructure:"urgency_keywords"`

	categoryIndex map[string]*Category
}

// CategoryByName returns the tenant's category declaration, or nil.
func (c *Config) CategoryByName(name string) *Category {
	if c.categoryIndex != nil {
		return c.categoryIndex[name]
	}
	for i := range c.Categories {
		if c.Categories[i].Name == name {
			return &c.Categories[i]
		}
	}
	return nil
}

// Catalog returns the category descriptors handed to the oracle.
func (c *Config) Catalog() []core.CategoryDescriptor {
	catalog := make([]core.CategoryDescriptor, 0, len(c.Categories))
	for _, cat := range c.Categories {
		catalog = append(catalog, core.CategoryDescriptor{
			Name:        cat.Name,
			Description: cat.Description,
		})
	}
	return catalog
}

// Policy returns the SLA policy for a category. Categories without an
// explicit policy get a zero-value policy (no deadline pressure).
func (c *Config) Policy(category string) SLAPolicy {
	return c.SLA[category]
}
