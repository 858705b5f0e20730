// Package flags provides feature flags resolved from configuration.
package flags

import (
	"context"
	"maps"

	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Static answers flag lookups from a fixed map loaded at startup.
type Static struct {
	values map[string]bool
}

var _ ports.FeatureFlags = (*Static)(nil)

// NewStatic copies values so later config mutation has no effect.
func NewStatic(values map[string]bool) *Static {
	return &Static{values: maps.Clone(values)}
}

// IsEnabled implements ports.FeatureFlags.
func (s *Static) IsEnabled(_ context.Context, flag string, fallback bool) bool {
	if v, ok := s.values[flag]; ok {
		return v
	}

	return fallback
}
