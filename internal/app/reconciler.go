package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const defaultSyncInterval = 60 * time.Second

// SyncOutcome classifies a finished reconciliation run.
type SyncOutcome string

// Sync outcomes.
const (
	SyncAdded  SyncOutcome = "added"
	SyncNoNew  SyncOutcome = "no_new"
	SyncFailed SyncOutcome = "failed"
)

// Sync status texts shown to users.
const (
	StatusSyncing = "Syncing with server..."
	StatusAdded   = "Sync complete! New quotes added."
	StatusNoNew   = "Sync complete! No new quotes."
	StatusFailed  = "Error syncing with server."
)

// SyncResult describes one successful run.
type SyncResult struct {
	Outcome SyncOutcome
	Fetched int
	Added   []domain.Quote
}

// SyncStatus is a snapshot of the reconciler's state.
type SyncStatus struct {
	Text                string
	LastRun             time.Time
	LastOutcome         SyncOutcome
	LastError           string
	ConsecutiveFailures int
	InFlight            bool
	TotalAdded          int
}

// ReconcilerConfig contains the reconciler's dependencies and schedule.
type ReconcilerConfig struct {
	Source     ports.RemoteQuoteSource
	Collection *QuoteCollection
	Notifier   ports.Notifier
	Metrics    *telemetry.SyncMetrics

	// Interval between scheduled runs. Defaults to 60s.
	Interval time.Duration

	// MaxItems caps how many fetched quotes a run considers. Zero means all.
	MaxItems int

	Logger *slog.Logger
}

// Reconciler merges the remote collection into the local one, deduplicating
// by text. At most one run is in flight at any time.
type Reconciler struct {
	source     ports.RemoteQuoteSource
	collection *QuoteCollection
	notifier   ports.Notifier
	metrics    *telemetry.SyncMetrics
	interval   time.Duration
	maxItems   int
	logger     *slog.Logger

	inFlight atomic.Bool

	mu     sync.RWMutex
	status SyncStatus

	now func() time.Time
}

// NewReconciler creates a reconciler. It does not start the schedule.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Source == nil || cfg.Collection == nil || cfg.Notifier == nil {
		panic("Reconciler: Source, Collection and Notifier are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	return &Reconciler{
		source:     cfg.Source,
		collection: cfg.Collection,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		interval:   interval,
		maxItems:   cfg.MaxItems,
		logger:     logger.With(slog.String("component", "app.Reconciler")),
		now:        time.Now,
	}
}

// Run reconciles immediately and then on every interval until ctx is
// cancelled. A tick that finds a run in flight is skipped. Run blocks.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "sync schedule started", slog.Duration("interval", r.interval))

	for {
		r.tick(ctx)

		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "sync schedule stopped")
			return
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.DebugContext(ctx, "sync already in flight, skipping tick")
		return
	}
	defer r.inFlight.Store(false)

	// Failures are already reported through status and notifications.
	_, _ = r.reconcile(ctx)
}

// Reconcile runs one reconciliation now. It returns a ConflictError when a
// run is already in flight and a NetworkError when the remote cannot be read.
func (r *Reconciler) Reconcile(ctx context.Context) (*SyncResult, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, domain.NewConflictError("sync", "a sync is already in progress")
	}
	defer r.inFlight.Store(false)

	return r.reconcile(ctx)
}

func (r *Reconciler) reconcile(ctx context.Context) (*SyncResult, error) {
	start := r.now()
	r.setStatus(func(s *SyncStatus) {
		s.Text = StatusSyncing
		s.InFlight = true
	})

	fetched, err := r.source.FetchQuotes(ctx)
	if err != nil {
		return nil, r.fail(ctx, start, err)
	}

	if r.maxItems > 0 && len(fetched) > r.maxItems {
		fetched = fetched[:r.maxItems]
	}

	added, err := r.collection.Merge(ctx, fetched)
	if err != nil {
		return nil, r.fail(ctx, start, err)
	}

	result := &SyncResult{Outcome: SyncNoNew, Fetched: len(fetched), Added: added}
	text := StatusNoNew

	if len(added) > 0 {
		result.Outcome = SyncAdded
		text = StatusAdded
		r.publish(ctx, domain.Success(domain.MsgSyncFetched))
	}

	r.setStatus(func(s *SyncStatus) {
		s.Text = text
		s.LastRun = start
		s.LastOutcome = result.Outcome
		s.LastError = ""
		s.ConsecutiveFailures = 0
		s.InFlight = false
		s.TotalAdded += len(added)
	})

	r.metrics.ObserveRun(string(result.Outcome), len(added), r.now().Sub(start))
	r.logger.InfoContext(ctx, "sync complete",
		slog.String("outcome", string(result.Outcome)),
		slog.Int("fetched", len(fetched)),
		slog.Int("added", len(added)),
	)

	return result, nil
}

func (r *Reconciler) fail(ctx context.Context, start time.Time, err error) error {
	var failures int

	r.setStatus(func(s *SyncStatus) {
		s.Text = StatusFailed
		s.LastRun = start
		s.LastOutcome = SyncFailed
		s.LastError = err.Error()
		s.ConsecutiveFailures++
		s.InFlight = false
		failures = s.ConsecutiveFailures
	})

	r.publish(ctx, domain.Failure(domain.MsgSyncError))
	r.metrics.ObserveRun(string(SyncFailed), 0, r.now().Sub(start))
	r.logger.WarnContext(ctx, "sync failed",
		slog.Any("error", err),
		slog.Int("consecutive_failures", failures),
	)

	return err
}

func (r *Reconciler) publish(ctx context.Context, n domain.Notification) {
	if err := r.notifier.Publish(ctx, n); err != nil {
		r.logger.WarnContext(ctx, "publishing notification failed", slog.Any("error", err))
	}
}

func (r *Reconciler) setStatus(fn func(*SyncStatus)) {
	r.mu.Lock()
	fn(&r.status)
	r.mu.Unlock()
}

// Status returns a snapshot of the latest sync state.
func (r *Reconciler) Status() SyncStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.status
}
