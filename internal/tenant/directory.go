package tenant

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/addr"
	"github.com/mikey/llm-mail-router/internal/core"
)

// Snapshot is one immutable generation of the loaded tenant set.
// In-flight decisions keep using the snapshot they resolved against
// even after a reload.
type Snapshot struct {
	tenants  map[string]*Config
	byDomain map[string]*Config
	fallback *Config
}

// NewSnapshot validates every tenant and indexes their domains. Two
// tenants claiming the same domain is a configuration error and fails
// here, at load time, not at resolution time.
func NewSnapshot(tenants []*Config, fallback *Config) (*Snapshot, error) {
	if fallback == nil {
		return nil, fmt.Errorf("snapshot requires a default tenant: %w", core.ErrConfigurationInconsistency)
	}
	if err := fallback.Validate(); err != nil {
		return nil, fmt.Errorf("default tenant: %w", err)
	}

	snap := &Snapshot{
		tenants:  make(map[string]*Config, len(tenants)+1),
		byDomain: make(map[string]*Config),
		fallback: fallback,
	}
	snap.tenants[fallback.ID] = fallback

	for _, t := range tenants {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := snap.tenants[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tenant id %q: %w", t.ID, core.ErrConfigurationInconsistency)
		}
		snap.tenants[t.ID] = t
		for _, domain := range t.Domains {
			if owner, claimed := snap.byDomain[domain]; claimed {
				return nil, fmt.Errorf("domain %q claimed by both %q and %q: %w",
					domain, owner.ID, t.ID, core.ErrConfigurationInconsistency)
			}
			snap.byDomain[domain] = t
		}
	}
	return snap, nil
}

// Tenant looks a tenant up by id.
func (s *Snapshot) Tenant(id string) (*Config, bool) {
	t, ok := s.tenants[id]
	return t, ok
}

// Directory resolves inbound recipients to tenant configurations.
// Reads are lock-free; Reload swaps the whole snapshot atomically.
type Directory struct {
	snap   atomic.Pointer[Snapshot]
	logger *zap.Logger
}

// NewDirectory creates a directory serving the given snapshot.
func NewDirectory(snap *Snapshot, logger *zap.Logger) *Directory {
	d := &Directory{logger: logger}
	d.snap.Store(snap)
	return d
}

// Resolve matches the recipient's domain against the tenant set. An
// unmatched recipient resolves to the default tenant rather than
// failing the message.
func (d *Directory) Resolve(recipient string) *Config {
	snap := d.snap.Load()

	domain, ok := addr.Domain(recipient)
	if !ok {
		d.logger.Warn("Recipient has no usable domain, using default tenant",
			zap.String("recipient", recipient),
			zap.String("tenant", snap.fallback.ID))
		return snap.fallback
	}

	if t, found := snap.byDomain[domain]; found {
		return t
	}

	d.logger.Info("No tenant match, using default tenant",
		zap.String("domain", domain),
		zap.Error(core.ErrNoTenantMatch))
	return snap.fallback
}

// Default returns the default tenant of the current snapshot.
func (d *Directory) Default() *Config {
	return d.snap.Load().fallback
}

// Tenant looks a tenant up by id in the current snapshot.
func (d *Directory) Tenant(id string) (*Config, bool) {
	return d.snap.Load().Tenant(id)
}

// Reload replaces the tenant set. Decisions already holding a Config
// from the old snapshot are unaffected.
func (d *Directory) Reload(snap *Snapshot) {
	d.snap.Store(snap)
	d.logger.Info("Tenant directory reloaded", zap.Int("tenants", len(snap.tenants)))
}
