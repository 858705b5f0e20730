package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// FilterPreference is the persisted selected-category filter.
type FilterPreference struct {
	store  ports.KeyValueStore
	logger *slog.Logger
}

// NewFilterPreference creates a filter preference backed by store.
func NewFilterPreference(store ports.KeyValueStore, logger *slog.Logger) *FilterPreference {
	if store == nil {
		panic("FilterPreference: store is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &FilterPreference{store: store, logger: logger}
}

// Get returns the stored filter, or domain.AllCategories when none is stored
// or the stored value cannot be read.
func (f *FilterPreference) Get(ctx context.Context) (string, error) {
	raw, err := f.store.Get(ctx, ports.KeySelectedCategory)
	if domain.IsNotFound(err) {
		return domain.AllCategories, nil
	}

	if err != nil {
		return "", fmt.Errorf("loading filter: %w", err)
	}

	var category string
	if err := json.Unmarshal(raw, &category); err != nil || strings.TrimSpace(category) == "" {
		f.logger.WarnContext(ctx, "stored filter unreadable, using all", slog.String("raw", string(raw)))
		return domain.AllCategories, nil
	}

	return category, nil
}

// Set persists category. Categories with no quotes are accepted.
func (f *FilterPreference) Set(ctx context.Context, category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "", domain.NewValidationError("category", "filter category is required")
	}

	data, err := json.Marshal(category)
	if err != nil {
		return "", fmt.Errorf("encoding filter: %w", err)
	}

	if err := f.store.Set(ctx, ports.KeySelectedCategory, data); err != nil {
		return "", fmt.Errorf("saving filter: %w", err)
	}

	f.logger.DebugContext(ctx, "filter updated", slog.String("category", category))

	return category, nil
}
