package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jsamuelsen/quotebook/internal/adapters/notify"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/mocks"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
)

func serverQuotes(texts ...string) []domain.Quote {
	out := make([]domain.Quote, len(texts))
	for i, text := range texts {
		out[i] = domain.Quote{Text: text, Category: "Server"}
	}

	return out
}

type reconcilerFixture struct {
	reconciler *Reconciler
	source     *mocks.MockRemoteQuoteSource
	collection *QuoteCollection
	feed       *notify.Feed
}

func newReconcilerFixture(t *testing.T, cfg ReconcilerConfig) *reconcilerFixture {
	t.Helper()

	fx := &reconcilerFixture{
		source:     mocks.NewMockRemoteQuoteSource(t),
		collection: NewQuoteCollection(memory.NewStore(), discardLogger(), cfg.Metrics),
		feed:       notify.NewFeed(time.Minute, 10),
	}
	require.NoError(t, fx.collection.Load(context.Background()))

	cfg.Source = fx.source
	cfg.Collection = fx.collection
	cfg.Notifier = fx.feed
	cfg.Logger = discardLogger()
	fx.reconciler = NewReconciler(cfg)

	return fx
}

func TestNewReconciler_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewReconciler(ReconcilerConfig{}) })
}

func TestNewReconciler_DefaultInterval(t *testing.T) {
	fx := newReconcilerFixture(t, ReconcilerConfig{})

	assert.Equal(t, 60*time.Second, fx.reconciler.interval)
}

func TestReconciler_AddsNewQuotes(t *testing.T) {
	fx := newReconcilerFixture(t, ReconcilerConfig{MaxItems: 5})
	ctx := context.Background()

	existing := domain.DefaultQuotes()[0].Text
	fx.source.EXPECT().FetchQuotes(mock.Anything).
		Return(serverQuotes("one", existing, "two", "one", "three", "beyond the cap"), nil)

	result, err := fx.reconciler.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, SyncAdded, result.Outcome)
	assert.Equal(t, 5, result.Fetched)
	assert.Equal(t, serverQuotes("one", "two", "three"), result.Added)
	assert.Equal(t, 6, fx.collection.Len())

	status := fx.reconciler.Status()
	assert.Equal(t, StatusAdded, status.Text)
	assert.Equal(t, SyncAdded, status.LastOutcome)
	assert.False(t, status.InFlight)
	assert.Equal(t, 3, status.TotalAdded)

	active := fx.feed.Active(ctx)
	require.Len(t, active, 1)
	assert.Equal(t, domain.MsgSyncFetched, active[0].Message)
	assert.Equal(t, domain.ColorSuccess, active[0].Color)
}

func TestReconciler_NoNewQuotes(t *testing.T) {
	fx := newReconcilerFixture(t, ReconcilerConfig{})
	ctx := context.Background()

	fx.source.EXPECT().FetchQuotes(mock.Anything).Return(domain.DefaultQuotes(), nil)

	result, err := fx.reconciler.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, SyncNoNew, result.Outcome)
	assert.Empty(t, result.Added)
	assert.Equal(t, StatusNoNew, fx.reconciler.Status().Text)
	assert.Empty(t, fx.feed.Active(ctx), "no notification without new quotes")
}

func TestReconciler_NetworkFailure(t *testing.T) {
	fx := newReconcilerFixture(t, ReconcilerConfig{})
	ctx := context.Background()

	fx.source.EXPECT().FetchQuotes(mock.Anything).
		Return(nil, domain.NewNetworkError("fetch quotes", 503, nil))

	before := fx.collection.All()

	for range 2 {
		_, err := fx.reconciler.Reconcile(ctx)
		require.Error(t, err)
		assert.True(t, domain.IsNetwork(err))
	}

	assert.Equal(t, before, fx.collection.All())

	status := fx.reconciler.Status()
	assert.Equal(t, StatusFailed, status.Text)
	assert.Equal(t, SyncFailed, status.LastOutcome)
	assert.Equal(t, 2, status.ConsecutiveFailures)
	assert.Contains(t, status.LastError, "status 503")

	active := fx.feed.Active(ctx)
	require.NotEmpty(t, active)
	assert.Equal(t, domain.MsgSyncError, active[0].Message)
	assert.Equal(t, domain.ColorFailure, active[0].Color)
}

func TestReconciler_SuccessResetsFailures(t *testing.T) {
	fx := newReconcilerFixture(t, ReconcilerConfig{})
	ctx := context.Background()

	fx.source.EXPECT().FetchQuotes(mock.Anything).Return(nil, errors.New("boom")).Once()
	fx.source.EXPECT().FetchQuotes(mock.Anything).Return(nil, nil).Once()

	_, _ = fx.reconciler.Reconcile(ctx)
	_, err := fx.reconciler.Reconcile(ctx)
	require.NoError(t, err)

	status := fx.reconciler.Status()
	assert.Zero(t, status.ConsecutiveFailures)
	assert.Empty(t, status.LastError)
}

func TestReconciler_ManualTriggerWhileInFlight(t *testing.T) {
	fx := newReconcilerFixture(t, ReconcilerConfig{})
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	fx.source.EXPECT().FetchQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		close(started)
		<-release
		return nil, nil
	}).Once()

	done := make(chan error, 1)
	go func() {
		_, err := fx.reconciler.Reconcile(ctx)
		done <- err
	}()

	<-started

	status := fx.reconciler.Status()
	assert.True(t, status.InFlight)
	assert.Equal(t, StatusSyncing, status.Text)

	_, err := fx.reconciler.Reconcile(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	close(release)
	require.NoError(t, <-done)
}

func TestReconciler_TickSkippedWhileInFlight(t *testing.T) {
	fx := newReconcilerFixture(t, ReconcilerConfig{})

	fx.reconciler.inFlight.Store(true)
	fx.reconciler.tick(context.Background())

	fx.source.AssertNotCalled(t, "FetchQuotes", mock.Anything)
}

func TestReconciler_RunsImmediatelyThenOnSchedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	fx := newReconcilerFixture(t, ReconcilerConfig{Interval: 5 * time.Millisecond})

	var calls atomic.Int32
	fx.source.EXPECT().FetchQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		calls.Add(1)
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		fx.reconciler.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestReconciler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewSyncMetrics(reg)
	fx := newReconcilerFixture(t, ReconcilerConfig{Metrics: metrics})
	ctx := context.Background()

	fx.source.EXPECT().FetchQuotes(mock.Anything).Return(serverQuotes("a", "b"), nil).Once()
	fx.source.EXPECT().FetchQuotes(mock.Anything).Return(nil, errors.New("down")).Once()

	_, _ = fx.reconciler.Reconcile(ctx)
	_, _ = fx.reconciler.Reconcile(ctx)

	expected := `
# HELP quotebook_sync_runs_total Reconciliation runs by outcome.
# TYPE quotebook_sync_runs_total counter
quotebook_sync_runs_total{outcome="added"} 1
quotebook_sync_runs_total{outcome="failed"} 1
# HELP quotebook_quotes Quotes currently in the collection.
# TYPE quotebook_quotes gauge
quotebook_quotes 5
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"quotebook_sync_runs_total", "quotebook_quotes"))
}
