//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

func newRemoteClient(t *testing.T, baseURL string, mutate func(*clients.Config)) *acl.RemoteQuoteClient {
	t.Helper()

	cfg := testClientConfig(baseURL)
	if mutate != nil {
		mutate(cfg)
	}

	client, err := clients.New(cfg)
	require.NoError(t, err)

	return acl.NewRemoteQuoteClient(acl.RemoteQuoteClientConfig{
		Client:    client,
		ReadPath:  "/posts",
		WritePath: "/posts",
		Category:  "Server",
	})
}

func TestRemote_FetchTranslatesPosts(t *testing.T) {
	remote := newFakeRemote()
	defer remote.close()
	remote.setTitles("first", "   ", "second")

	quotes, err := newRemoteClient(t, remote.server.URL, nil).FetchQuotes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.Quote{
		{Text: "first", Category: "Server"},
		{Text: "second", Category: "Server"},
	}, quotes)
}

func TestRemote_TransientFailureIsFinal(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		_, _ = w.Write([]byte(`[{"title":"next tick"}]`))
	}))
	defer server.Close()

	client := newRemoteClient(t, server.URL, nil)

	_, err := client.FetchQuotes(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))
	assert.Equal(t, int32(1), attempts.Load(), "the client retry policy is not applied")

	quotes, err := client.FetchQuotes(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestRemote_FailureIsNetworkError(t *testing.T) {
	remote := newFakeRemote()
	defer remote.close()
	remote.setFailing(true)

	client := newRemoteClient(t, remote.server.URL, nil)

	_, err := client.FetchQuotes(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))

	err = client.SubmitQuote(context.Background(), domain.Quote{Text: "x", Category: "y"})
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))
}

func TestRemote_CircuitOpensAndFailsHealth(t *testing.T) {
	remote := newFakeRemote()
	defer remote.close()
	remote.setFailing(true)

	client := newRemoteClient(t, remote.server.URL, func(cfg *clients.Config) {
		cfg.Retry.MaxAttempts = 1
		cfg.Circuit.MaxFailures = 2
		cfg.Circuit.Timeout = 50 * time.Millisecond
	})
	ctx := context.Background()

	require.NoError(t, client.Check(ctx))

	for range 2 {
		_, err := client.FetchQuotes(ctx)
		require.Error(t, err)
	}

	require.Error(t, client.Check(ctx), "open circuit makes the remote unhealthy")

	remote.setFailing(false)
	time.Sleep(60 * time.Millisecond)

	_, err := client.FetchQuotes(ctx)
	require.NoError(t, err, "half-open probe succeeds once the remote recovers")
	assert.NoError(t, client.Check(ctx))
}

func TestRemote_PropagatesRequestIDs(t *testing.T) {
	remote := newFakeRemote()
	defer remote.close()

	ctx := middleware.ContextWithRequestID(context.Background(), "req-123")
	ctx = middleware.ContextWithCorrelationID(ctx, "corr-456")

	_, err := newRemoteClient(t, remote.server.URL, nil).FetchQuotes(ctx)
	require.NoError(t, err)

	header := remote.lastHeader()
	assert.Equal(t, "req-123", header.Get(middleware.HeaderRequestID))
	assert.Equal(t, "corr-456", header.Get(middleware.HeaderCorrelationID))
}

func TestRemote_SubmitSendsTextAndCategory(t *testing.T) {
	remote := newFakeRemote()
	defer remote.close()

	err := newRemoteClient(t, remote.server.URL, nil).SubmitQuote(context.Background(),
		domain.Quote{Text: "Keep it simple.", Category: "Design"})

	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"text": "Keep it simple.", "category": "Design"}}, remote.submissions())
}

func TestStack_ConcurrentSyncsAreGuarded(t *testing.T) {
	s := mustStack(t, stackOptions{})
	s.remote.setTitles("one", "two")

	var (
		wg        sync.WaitGroup
		ok        atomic.Int32
		conflicts atomic.Int32
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.service.Sync(context.Background())
			switch {
			case err == nil:
				ok.Add(1)
			case domain.IsConflict(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected sync error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(8), ok.Load()+conflicts.Load())
	assert.GreaterOrEqual(t, ok.Load(), int32(1))
	assert.Len(t, s.service.Quotes(context.Background(), "Server"), 2, "no duplicates whatever the interleaving")
	assert.Equal(t, 2, s.reconciler.Status().TotalAdded)
}

func TestStack_ConcurrentAddsKeepEveryQuote(t *testing.T) {
	s := mustStack(t, stackOptions{})

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.service.AddQuote(context.Background(), fmt.Sprintf("quote %d", i), "Load")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Len(t, s.service.Quotes(context.Background(), "Load"), 20)
	assert.Len(t, s.remote.submissions(), 20)
}

func TestStack_SQLitePersistsAcrossRestarts(t *testing.T) {
	storageCfg := config.StorageConfig{
		Driver: config.StorageDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "quotebook.db"),
	}
	ctx := context.Background()

	first, err := newStack(stackOptions{storage: storageCfg})
	require.NoError(t, err)

	_, err = first.service.AddQuote(ctx, "Persist me.", "Durability")
	require.NoError(t, err)
	_, err = first.service.SetFilter(ctx, "Durability")
	require.NoError(t, err)
	first.close()

	second := mustStack(t, stackOptions{storage: storageCfg})

	assert.Len(t, second.service.Quotes(ctx, domain.AllCategories), 4)

	filter, err := second.service.Filter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Durability", filter)

	q, err := second.service.NextQuote(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Persist me.", q.Text)
}
