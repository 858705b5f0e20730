package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Selector picks a random quote under the current filter and remembers it
// per session.
type Selector struct {
	collection *QuoteCollection
	filter     *FilterPreference
	cache      ports.Cache
	ttl        time.Duration
	logger     *slog.Logger

	// intN returns a value in [0, n). Replaced in tests.
	intN func(n int) int
}

// SelectorConfig contains the selector's dependencies.
type SelectorConfig struct {
	Collection *QuoteCollection
	Filter     *FilterPreference
	Cache      ports.Cache

	// SessionTTL bounds how long the last displayed quote is remembered.
	SessionTTL time.Duration

	Logger *slog.Logger

	// IntN overrides the random source.
	IntN func(n int) int
}

// NewSelector creates a selector.
func NewSelector(cfg SelectorConfig) *Selector {
	if cfg.Collection == nil || cfg.Filter == nil || cfg.Cache == nil {
		panic("Selector: Collection, Filter and Cache are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	intN := cfg.IntN
	if intN == nil {
		intN = rand.IntN
	}

	return &Selector{
		collection: cfg.Collection,
		filter:     cfg.Filter,
		cache:      cfg.Cache,
		ttl:        cfg.SessionTTL,
		logger:     logger,
		intN:       intN,
	}
}

func lastQuoteKey(sessionID string) string {
	return "session:" + sessionID + ":" + ports.KeyLastQuote
}

// Next picks a uniformly random quote matching the stored filter and records
// it as the session's last displayed quote.
func (s *Selector) Next(ctx context.Context, sessionID string) (domain.Quote, error) {
	filter, err := s.filter.Get(ctx)
	if err != nil {
		return domain.Quote{}, err
	}

	candidates := s.collection.ByCategory(filter)
	if len(candidates) == 0 {
		return domain.Quote{}, domain.NewNoMatchesError(filter)
	}

	q := candidates[s.intN(len(candidates))]

	data, err := json.Marshal(quoteRecord{Text: q.Text, Category: q.Category})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("encoding last quote: %w", err)
	}

	if err := s.cache.Set(ctx, lastQuoteKey(sessionID), data, s.ttl); err != nil {
		// The quote is still shown; only restore-on-reload is lost.
		s.logger.WarnContext(ctx, "remembering last quote failed", slog.Any("error", err))
	}

	return q, nil
}

// Last returns the session's last displayed quote.
func (s *Selector) Last(ctx context.Context, sessionID string) (domain.Quote, error) {
	raw, err := s.cache.Get(ctx, lastQuoteKey(sessionID))
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Quote{}, domain.NewNotFoundError("last quote", "")
		}

		return domain.Quote{}, fmt.Errorf("loading last quote: %w", err)
	}

	var r quoteRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Quote{}, domain.NewNotFoundError("last quote", "")
	}

	return domain.Quote{Text: r.Text, Category: r.Category}, nil
}
