// Package app contains the quote widget's use cases. It coordinates the
// domain and the outside world through ports and owns the quote collection.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const defaultMaxImportBytes = 1 << 20

// CategoryView is the category dropdown: every known category plus the
// current selection.
type CategoryView struct {
	Categories []string
	Selected   string
}

// AddResult is the outcome of adding a quote.
type AddResult struct {
	Quote      domain.Quote
	Submission Submission
}

// QuoteService is the facade the presentation layer talks to.
type QuoteService struct {
	collection *QuoteCollection
	filter     *FilterPreference
	selector   *Selector
	reconciler *Reconciler
	submitter  *Submitter
	notifier   ports.Notifier
	flags      ports.FeatureFlags
	exec       *Executor
	maxImport  int64
	logger     *slog.Logger
}

// QuoteServiceConfig contains the service's collaborators.
type QuoteServiceConfig struct {
	Collection *QuoteCollection
	Filter     *FilterPreference
	Selector   *Selector
	Reconciler *Reconciler
	Submitter  *Submitter
	Notifier   ports.Notifier

	// Flags is optional; without it every flag takes its default.
	Flags ports.FeatureFlags

	// MaxImportBytes caps import payloads. Defaults to 1 MiB.
	MaxImportBytes int64

	Logger *slog.Logger
}

// NewQuoteService creates the facade.
// Panics if a required collaborator is nil. Defaults logger to slog.Default() if nil.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	switch {
	case cfg.Collection == nil:
		panic("QuoteService: Collection is required")
	case cfg.Filter == nil:
		panic("QuoteService: Filter is required")
	case cfg.Selector == nil:
		panic("QuoteService: Selector is required")
	case cfg.Reconciler == nil:
		panic("QuoteService: Reconciler is required")
	case cfg.Submitter == nil:
		panic("QuoteService: Submitter is required")
	case cfg.Notifier == nil:
		panic("QuoteService: Notifier is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxImport := cfg.MaxImportBytes
	if maxImport <= 0 {
		maxImport = defaultMaxImportBytes
	}

	return &QuoteService{
		collection: cfg.Collection,
		filter:     cfg.Filter,
		selector:   cfg.Selector,
		reconciler: cfg.Reconciler,
		submitter:  cfg.Submitter,
		notifier:   cfg.Notifier,
		flags:      cfg.Flags,
		exec:       NewExecutor(logger),
		maxImport:  maxImport,
		logger:     logger.With(slog.String("component", "app.QuoteService")),
	}
}

// Load restores the collection and the filter preference concurrently.
func (s *QuoteService) Load(ctx context.Context) error {
	_, filter, err := Parallel2(ctx,
		func(ctx context.Context) (struct{}, error) { return struct{}{}, s.collection.Load(ctx) },
		s.filter.Get,
	)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	s.logger.InfoContext(ctx, "state restored",
		slog.Int("quotes", s.collection.Len()),
		slog.String("filter", filter),
	)

	return nil
}

// AddQuote validates and appends a quote, then submits it to the remote.
// A failed submission does not undo the append.
func (s *QuoteService) AddQuote(ctx context.Context, text, category string) (AddResult, error) {
	type input struct{ text, category string }

	return Execute(ctx, s.exec, Operation[input, domain.Quote, domain.Quote, AddResult]{
		Name: "add_quote",
		Validate: func(_ context.Context, in input) error {
			_, err := domain.NewQuote(in.text, in.category)
			return err
		},
		Perform: func(_ context.Context, in input) (domain.Quote, error) {
			return domain.NewQuote(in.text, in.category)
		},
		Verify: func(_ context.Context, _ input, q domain.Quote) (domain.Quote, error) {
			return q, nil
		},
		Archive: func(ctx context.Context, _ input, q domain.Quote) error {
			return s.collection.Add(ctx, q)
		},
		Respond: func(ctx context.Context, _ input, q domain.Quote) (AddResult, error) {
			return AddResult{Quote: q, Submission: s.submitter.Submit(ctx, q)}, nil
		},
	}, input{text: text, category: category})
}

// NextQuote shows a random quote under the stored filter.
func (s *QuoteService) NextQuote(ctx context.Context, sessionID string) (domain.Quote, error) {
	return s.selector.Next(ctx, sessionID)
}

// LastQuote restores the session's last displayed quote.
func (s *QuoteService) LastQuote(ctx context.Context, sessionID string) (domain.Quote, error) {
	return s.selector.Last(ctx, sessionID)
}

// Quotes lists the collection, optionally narrowed to one category.
func (s *QuoteService) Quotes(_ context.Context, category string) []domain.Quote {
	if category == "" {
		return s.collection.All()
	}

	return s.collection.ByCategory(category)
}

// Categories returns the category index and the selected filter.
func (s *QuoteService) Categories(ctx context.Context) (CategoryView, error) {
	selected, err := s.filter.Get(ctx)
	if err != nil {
		return CategoryView{}, err
	}

	return CategoryView{Categories: s.collection.Categories(), Selected: selected}, nil
}

// Filter returns the selected category filter.
func (s *QuoteService) Filter(ctx context.Context) (string, error) {
	return s.filter.Get(ctx)
}

// SetFilter persists a new category filter.
func (s *QuoteService) SetFilter(ctx context.Context, category string) (string, error) {
	return s.filter.Set(ctx, category)
}

// Export renders the whole collection for download.
func (s *QuoteService) Export(_ context.Context) ([]byte, error) {
	return EncodeQuotes(s.collection.All())
}

// Import reads a JSON array of quotes from r and appends every element. When
// the import-deduplicate flag is on, elements whose text is already present
// are skipped instead. The count is what was actually appended. The
// collection is unchanged on any error.
func (s *QuoteService) Import(ctx context.Context, r io.Reader) (int, error) {
	var imported int

	n, err := Execute(ctx, s.exec, Operation[io.Reader, []domain.Quote, []domain.Quote, int]{
		Name: "import_quotes",
		Perform: func(_ context.Context, r io.Reader) ([]domain.Quote, error) {
			data, err := io.ReadAll(io.LimitReader(r, s.maxImport+1))
			if err != nil {
				return nil, domain.NewFormatError("payload could not be read", errors.Join(ErrUnreadable, err))
			}

			if int64(len(data)) > s.maxImport {
				return nil, domain.NewFormatError(fmt.Sprintf("payload exceeds %d bytes", s.maxImport), nil)
			}

			return DecodeQuotes(data)
		},
		Verify: func(_ context.Context, _ io.Reader, quotes []domain.Quote) ([]domain.Quote, error) {
			return quotes, nil
		},
		Archive: func(ctx context.Context, _ io.Reader, quotes []domain.Quote) error {
			if !s.dedupImports(ctx) {
				if err := s.collection.Append(ctx, quotes); err != nil {
					return err
				}
				imported = len(quotes)
				return nil
			}

			added, err := s.collection.Merge(ctx, quotes)
			if err != nil {
				return err
			}
			imported = len(added)
			s.logger.DebugContext(ctx, "deduplicated import",
				slog.Int("received", len(quotes)),
				slog.Int("added", imported))
			return nil
		},
		Respond: func(context.Context, io.Reader, []domain.Quote) (int, error) {
			return imported, nil
		},
	}, r)
	if err != nil {
		s.publish(ctx, domain.Failure(importFailureMessage(err)))
		return 0, err
	}

	s.publish(ctx, domain.Success(domain.MsgImportSucceeded))

	return n, nil
}

func (s *QuoteService) dedupImports(ctx context.Context) bool {
	return s.flags != nil && s.flags.IsEnabled(ctx, ports.FlagImportDeduplicate, false)
}

func importFailureMessage(err error) string {
	if errors.Is(err, ErrUnreadable) {
		return domain.MsgImportReadFailed
	}

	if domain.IsFormat(err) {
		return domain.MsgImportBadFormat
	}

	return domain.MsgImportReadFailed
}

// Sync reconciles with the remote now.
func (s *QuoteService) Sync(ctx context.Context) (*SyncResult, error) {
	return s.reconciler.Reconcile(ctx)
}

// SyncStatus returns the latest reconciliation state.
func (s *QuoteService) SyncStatus(_ context.Context) SyncStatus {
	return s.reconciler.Status()
}

// Notifications returns the notifications still on screen.
func (s *QuoteService) Notifications(ctx context.Context) []domain.Notification {
	return s.notifier.Active(ctx)
}

func (s *QuoteService) publish(ctx context.Context, n domain.Notification) {
	if err := s.notifier.Publish(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "publishing notification failed", slog.Any("error", err))
	}
}
