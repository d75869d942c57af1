package tenant

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

const acmeYAML = `
id: acme
name: Acme Corp
domains:
  - acme.com
categories:
  - name: support
    description: Product issues
    priority: high
    keywords: ["help", "broken", "error"]
    confidence_threshold: 0.75
  - name: general
    description: Everything else
routing:
  support: support@acme.com
  general: info@acme.com
backup_routing:
  support: backup@acme.com
escalation:
  time_based:
    support:
      - after: 2h
        escalate_to: lead@acme.com
      - after: 4h
        escalate_to: manager@acme.com
  keyword_based:
    lawsuit: legal@acme.com
special_rules:
  vip_domains:
    - bigcustomer.com
  vip_route_to: vip@acme.com
  after_hours_route_to: oncall@acme.com
  weekend_route_to: weekend@acme.com
business_hours:
  timezone: UTC
  workdays: [monday, tuesday, wednesday, thursday, friday]
  start_time: "09:00"
  end_time: "17:00"
sla:
  support:
    target: 4h
    business_hours_only: true
    weekend_multiplier: 1.5
default_category: general
urgency_keywords: ["urgent", "asap"]
`

func writeTenantFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeTenantFile(t, t.TempDir(), "acme.yaml", acmeYAML)

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if c.ID != "acme" {
		t.Errorf("ID = %q, want %q", c.ID, "acme")
	}
	if got := len(c.Categories); got != 2 {
		t.Errorf("len(Categories) = %d, want 2", got)
	}
	if got := c.CategoryByName("support").ConfidenceThreshold; got != 0.75 {
		t.Errorf("support threshold = %v, want 0.75", got)
	}

	rules := c.Escalation.TimeBased["support"]
	if len(rules) != 2 {
		t.Fatalf("len(escalation rules) = %d, want 2", len(rules))
	}
	if rules[0].After != 2*time.Hour {
		t.Errorf("rules[0].After = %v, want 2h", rules[0].After)
	}

	policy := c.Policy("support")
	if policy.Target != 4*time.Hour {
		t.Errorf("sla target = %v, want 4h", policy.Target)
	}
	if !policy.BusinessHoursOnly {
		t.Errorf("BusinessHoursOnly = false, want true")
	}
	if policy.WeekendMultiplier != 1.5 {
		t.Errorf("WeekendMultiplier = %v, want 1.5", policy.WeekendMultiplier)
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTenantFile(t, dir, "acme.yaml", acmeYAML)
	writeTenantFile(t, dir, "README.md", "not a tenant")

	snap, err := LoadDir(dir, DefaultTenant(), zap.NewNop())
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if _, ok := snap.Tenant("acme"); !ok {
		t.Errorf("Tenant(%q) not found after LoadDir", "acme")
	}
	if _, ok := snap.Tenant("default"); !ok {
		t.Errorf("Tenant(%q) not found after LoadDir", "default")
	}
}

func TestLoadDir_RejectsBrokenDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTenantFile(t, dir, "acme.yaml", acmeYAML)
	writeTenantFile(t, dir, "broken.yaml", "id: broken\ndomains: []\n")

	_, err := LoadDir(dir, DefaultTenant(), zap.NewNop())
	if !errors.Is(err, core.ErrConfigurationInconsistency) {
		t.Errorf("LoadDir() error = %v, want ErrConfigurationInconsistency", err)
	}
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	t.Parallel()

	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope"), DefaultTenant(), zap.NewNop()); err == nil {
		t.Errorf("LoadDir() error = nil, want error")
	}
}

func TestDefaultTenant_IsValid(t *testing.T) {
	t.Parallel()

	if err := DefaultTenant().Validate(); err != nil {
		t.Errorf("DefaultTenant().Validate() error = %v", err)
	}
}
