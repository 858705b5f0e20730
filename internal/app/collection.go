package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// quoteRecord is the stored and exported shape of a quote.
type quoteRecord struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

func toRecords(quotes []domain.Quote) []quoteRecord {
	records := make([]quoteRecord, len(quotes))
	for i, q := range quotes {
		records[i] = quoteRecord{Text: q.Text, Category: q.Category}
	}

	return records
}

// QuoteCollection owns the ordered quote sequence. Every mutation is written
// through to the durable store inside the same critical section, so readers
// never observe a state the store does not hold.
type QuoteCollection struct {
	mu      sync.RWMutex
	quotes  []domain.Quote
	store   ports.KeyValueStore
	logger  *slog.Logger
	metrics *telemetry.SyncMetrics
}

// NewQuoteCollection creates an empty collection backed by store. Call Load
// before serving reads. metrics may be nil.
func NewQuoteCollection(store ports.KeyValueStore, logger *slog.Logger, metrics *telemetry.SyncMetrics) *QuoteCollection {
	if store == nil {
		panic("QuoteCollection: store is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteCollection{
		store:   store,
		logger:  logger.With(slog.String("component", "app.QuoteCollection")),
		metrics: metrics,
	}
}

// Load replaces the in-memory sequence with the stored one. A missing key
// yields the built-in defaults, and so does a stored value that is not a
// quote array. Invalid elements of a stored array are skipped; the valid
// ones are kept.
func (c *QuoteCollection) Load(ctx context.Context) error {
	quotes, err := c.readStored(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.quotes = quotes
	c.mu.Unlock()

	c.metrics.SetCollectionSize(len(quotes))
	c.logger.InfoContext(ctx, "quote collection loaded", slog.Int("quotes", len(quotes)))

	return nil
}

func (c *QuoteCollection) readStored(ctx context.Context) ([]domain.Quote, error) {
	raw, err := c.store.Get(ctx, ports.KeyQuotes)
	if domain.IsNotFound(err) {
		return domain.DefaultQuotes(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading quotes: %w", err)
	}

	var records []quoteRecord
	if err := json.Unmarshal(raw, &records); err != nil || records == nil {
		c.logger.WarnContext(ctx, "stored quotes unreadable, using defaults", slog.Any("error", err))
		return domain.DefaultQuotes(), nil
	}

	quotes := make([]domain.Quote, 0, len(records))
	for i, r := range records {
		q := domain.Quote{Text: r.Text, Category: r.Category}
		if err := q.Validate(); err != nil {
			c.logger.WarnContext(ctx, "skipping invalid stored quote", slog.Int("index", i), slog.Any("error", err))
			continue
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}

// Add appends q and persists the collection.
func (c *QuoteCollection) Add(ctx context.Context, q domain.Quote) error {
	return c.Append(ctx, []domain.Quote{q})
}

// Append appends qs in order and persists once.
func (c *QuoteCollection) Append(ctx context.Context, qs []domain.Quote) error {
	if len(qs) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commitLocked(ctx, qs)
}

// Merge appends the candidates whose text is not yet present, counting texts
// accepted earlier in the same batch, and returns what was added.
func (c *QuoteCollection) Merge(ctx context.Context, candidates []domain.Quote) ([]domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(c.quotes)+len(candidates))
	for _, q := range c.quotes {
		seen[q.Text] = struct{}{}
	}

	var added []domain.Quote
	for _, q := range candidates {
		if _, ok := seen[q.Text]; ok {
			continue
		}

		seen[q.Text] = struct{}{}
		added = append(added, q)
	}

	if len(added) == 0 {
		return nil, nil
	}

	if err := c.commitLocked(ctx, added); err != nil {
		return nil, err
	}

	return added, nil
}

// commitLocked appends qs, writes the result and rolls back on failure.
// c.mu must be held for writing.
func (c *QuoteCollection) commitLocked(ctx context.Context, qs []domain.Quote) error {
	prev := len(c.quotes)
	c.quotes = append(c.quotes, qs...)

	if err := c.persistLocked(ctx); err != nil {
		c.quotes = slices.Clip(c.quotes[:prev])
		return err
	}

	c.metrics.SetCollectionSize(len(c.quotes))

	return nil
}

func (c *QuoteCollection) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(toRecords(c.quotes))
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := c.store.Set(ctx, ports.KeyQuotes, data); err != nil {
		c.logger.ErrorContext(ctx, "persisting quotes failed", slog.Any("error", err))

		var unavailable *domain.UnavailableError
		if errors.As(err, &unavailable) {
			return err
		}

		return domain.NewUnavailableError("quote-store", err.Error())
	}

	return nil
}

// All returns a copy of the full sequence.
func (c *QuoteCollection) All() []domain.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.quotes)
}

// ByCategory returns the quotes passing filter, in collection order.
func (c *QuoteCollection) ByCategory(filter string) []domain.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Quote
	for _, q := range c.quotes {
		if q.Matches(filter) {
			out = append(out, q)
		}
	}

	return out
}

// Categories returns the distinct categories in first-appearance order.
func (c *QuoteCollection) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	categories := make([]string, 0)

	for _, q := range c.quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}

	return categories
}

// Len returns the number of quotes.
func (c *QuoteCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.quotes)
}

// Texts returns the set of quote texts.
func (c *QuoteCollection) Texts() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	texts := make(map[string]struct{}, len(c.quotes))
	for _, q := range c.quotes {
		texts[q.Text] = struct{}{}
	}

	return texts
}
