package tenant

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

// LoadDir reads every tenant document (*.yaml) in dir and builds a
// validated snapshot around the built-in default tenant. Any defect in
// any document rejects the load; a half-loaded tenant set is never
// activated.
func LoadDir(dir string, fallback *Config, logger *zap.Logger) (*Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenants directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	tenants := make([]*Config, 0, len(paths))
	for _, path := range paths {
		t, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
		logger.Info("Loaded tenant document",
			zap.String("tenant", t.ID),
			zap.String("file", path),
			zap.Strings("domains", t.Domains))
	}

	if fallback == nil {
		fallback = DefaultTenant()
	}
	return NewSnapshot(tenants, fallback)
}

// LoadFile parses one tenant document. Validation happens later when
// the snapshot is built.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read tenant document %s: %w", path, err)
	}

	var t Config
	if err := v.Unmarshal(&t); err != nil {
		return nil, fmt.Errorf("failed to decode tenant document %s: %w", path, err)
	}
	return &t, nil
}

// DefaultTenant is the built-in template that catches mail for domains
// no tenant claims. It routes everything to a single inbox with a
// relaxed SLA so unmatched mail degrades gracefully instead of being
// dropped.
func DefaultTenant() *Config {
	return &Config{
		ID:      "default",
		Name:    "Default",
		Domains: []string{"localhost"},
		Categories: []Category{
			{
				Name:                "general",
				Description:         "Anything that does not fit another bucket",
				Priority:            core.PriorityMedium,
				ConfidenceThreshold: 0.8,
			},
		},
		Routing: map[string]string{
			"general": "unrouted@localhost",
		},
		SLA: map[string]SLAPolicy{
			"general": {Target: 24 * time.Hour},
		},
		Hours: BusinessHours{
			Timezone:  "UTC",
			Workdays:  []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
			StartTime: "09:00",
			EndTime:   "17:00",
		},
		DefaultCategory: "general",
		UrgencyKeywords: []string{"urgent", "emergency", "critical", "asap", "immediate"},
	}
}
