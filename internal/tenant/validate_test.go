package tenant

import (
	"errors"
	"testing"
	"time"

	"github.com/mikey/llm-mail-router/internal/core"
)

func TestValidate_AppliesDefaults(t *testing.T) {
	t.Parallel()

	c := testTenant("acme", "acme.com")
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if c.DefaultCategory != "general" {
		t.Errorf("DefaultCategory = %q, want %q", c.DefaultCategory, "general")
	}
	if got := c.CategoryByName("general").Priority; got != core.PriorityMedium {
		t.Errorf("default priority = %q, want %q", got, core.PriorityMedium)
	}
}

func TestValidate_NormalizesDomains(t *testing.T) {
	t.Parallel()

	c := testTenant("acme", " ACME.Com ")
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if c.Domains[0] != "acme.com" {
		t.Errorf("Domains[0] = %q, want %q", c.Domains[0], "acme.com")
	}
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing id", func(c *Config) { c.ID = "" }},
		{"no domains", func(c *Config) { c.Domains = nil }},
		{"no categories", func(c *Config) { c.Categories = nil }},
		{"duplicate category", func(c *Config) {
			c.Categories = append(c.Categories, Category{Name: "general"})
		}},
		{"threshold above one", func(c *Config) { c.Categories[0].ConfidenceThreshold = 1.5 }},
		{"unknown default category", func(c *Config) { c.DefaultCategory = "billing" }},
		{"empty routing table", func(c *Config) { c.Routing = nil }},
		{"routing to unknown category", func(c *Config) { c.Routing["billing"] = "x@y.example" }},
		{"routing to empty address", func(c *Config) { c.Routing["general"] = "" }},
		{"backup routing to unknown category", func(c *Config) {
			c.BackupRouting = map[string]string{"billing": "x@y.example"}
		}},
		{"escalation for unknown category", func(c *Config) {
			c.Escalation.TimeBased = map[string][]EscalationRule{
				"billing": {{After: time.Hour, EscalateTo: "x@y.example"}},
			}
		}},
		{"escalation with zero delay", func(c *Config) {
			c.Escalation.TimeBased = map[string][]EscalationRule{
				"support": {{After: 0, EscalateTo: "x@y.example"}},
			}
		}},
		{"keyword escalation with empty trigger", func(c *Config) {
			c.Escalation.KeywordBased = map[string]string{"": "x@y.example"}
		}},
		{"vip domains without route", func(c *Config) {
			c.Special.VIPDomains = []string{"big.example"}
		}},
		{"sla for unknown category", func(c *Config) {
			c.SLA["billing"] = SLAPolicy{Target: time.Hour}
		}},
		{"sla with zero target", func(c *Config) {
			c.SLA["support"] = SLAPolicy{Target: 0}
		}},
		{"weekend multiplier below one", func(c *Config) {
			c.SLA["support"] = SLAPolicy{Target: time.Hour, WeekendMultiplier: 0.5}
		}},
		{"broken business hours", func(c *Config) { c.Hours.StartTime = "nope" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := testTenant("acme", "acme.com")
			tt.mutate(c)
			err := c.Validate()
			if !errors.Is(err, core.ErrConfigurationInconsistency) {
				t.Errorf("Validate() error = %v, want ErrConfigurationInconsistency", err)
			}
		})
	}
}
