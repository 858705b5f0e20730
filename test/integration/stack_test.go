//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebook/internal/adapters/flags"
	httpadapter "github.com/jsamuelsen/quotebook/internal/adapters/http"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/adapters/notify"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// fakeRemote stands in for the remote quote collection (GET and POST /posts).
type fakeRemote struct {
	mu        sync.Mutex
	titles    []string
	failing   bool
	submitted []map[string]string
	headers   []http.Header

	server *httptest.Server
}

func newFakeRemote() *fakeRemote {
	r := &fakeRemote{}
	r.server = httptest.NewServer(http.HandlerFunc(r.serve))

	return r
}

func (r *fakeRemote) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.headers = append(r.headers, req.Header.Clone())

	if r.failing {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch req.Method {
	case http.MethodGet:
		posts := make([]map[string]any, 0, len(r.titles))
		for i, title := range r.titles {
			posts = append(posts, map[string]any{"userId": 1, "id": i + 1, "title": title, "body": "ignored"})
		}
		_ = json.NewEncoder(w).Encode(posts)

	case http.MethodPost:
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		r.submitted = append(r.submitted, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":101}`)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (r *fakeRemote) setTitles(titles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = titles
}

func (r *fakeRemote) setFailing(failing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = failing
}

func (r *fakeRemote) submissions() []map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]map[string]string(nil), r.submitted...)
}

func (r *fakeRemote) lastHeader() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.headers) == 0 {
		return nil
	}

	return r.headers[len(r.headers)-1]
}

func (r *fakeRemote) close() { r.server.Close() }

// stack is the service wired the way cmd/service wires it, with in-memory
// storage and the fake remote.
type stack struct {
	server     *httptest.Server
	service    *app.QuoteService
	reconciler *app.Reconciler
	remote     *fakeRemote
	opened     *storage.Opened
}

type stackOptions struct {
	storage  config.StorageConfig
	features map[string]bool
	logger   *slog.Logger
}

func testClientConfig(baseURL string) *clients.Config {
	return &clients.Config{
		BaseURL:     baseURL,
		ServiceName: "quote-api",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 1,
		},
	}
}

func newStack(opts stackOptions) (*stack, error) {
	gin.SetMode(gin.TestMode)

	logger := opts.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.storage.Driver == "" {
		opts.storage.Driver = config.StorageDriverMemory
	}

	remote := newFakeRemote()

	opened, err := storage.Open(opts.storage, logger)
	if err != nil {
		remote.close()
		return nil, err
	}

	clientCfg := testClientConfig(remote.server.URL)
	clientCfg.Logger = logger

	httpClient, err := clients.New(clientCfg)
	if err != nil {
		remote.close()
		return nil, err
	}

	quoteClient := acl.NewRemoteQuoteClient(acl.RemoteQuoteClientConfig{
		Client:    httpClient,
		ReadPath:  "/posts",
		WritePath: "/posts",
		Category:  config.DefaultSyncCategory,
		Logger:    logger,
	})

	feed := notify.NewFeed(time.Minute, 20)
	collection := app.NewQuoteCollection(opened.Store, logger, nil)
	filter := app.NewFilterPreference(opened.Store, logger)

	reconciler := app.NewReconciler(app.ReconcilerConfig{
		Source:     quoteClient,
		Collection: collection,
		Notifier:   feed,
		Interval:   time.Hour,
		Logger:     logger,
	})

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Collection: collection,
		Filter:     filter,
		Selector: app.NewSelector(app.SelectorConfig{
			Collection: collection,
			Filter:     filter,
			Cache:      memory.NewCache(),
			SessionTTL: time.Minute,
			Logger:     logger,
		}),
		Reconciler: reconciler,
		Submitter:  app.NewSubmitter(quoteClient, feed, logger),
		Notifier:   feed,
		Flags:      flags.NewStatic(opts.features),
		Logger:     logger,
	})

	if err := service.Load(context.Background()); err != nil {
		remote.close()
		return nil, err
	}

	registry := ports.NewHealthRegistry()
	_ = registry.Register(quoteClient)

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger: logger,
		HealthHandler: handlers.NewHealthHandler(handlers.HealthHandlerConfig{
			Registry:   registry,
			BuildInfo:  handlers.NewBuildInfo("test", "none", "unknown"),
			SyncStatus: reconciler.Status,
		}),
		QuoteHandler: handlers.NewQuoteHandler(service),
		Session:      middleware.SessionOptions{TTL: time.Minute},
		Timeout:      5 * time.Second,
	})

	return &stack{
		server:     httptest.NewServer(engine),
		service:    service,
		reconciler: reconciler,
		remote:     remote,
		opened:     opened,
	}, nil
}

func mustStack(t *testing.T, opts stackOptions) *stack {
	t.Helper()

	s, err := newStack(opts)
	if err != nil {
		t.Fatalf("starting stack: %v", err)
	}

	t.Cleanup(s.close)

	return s
}

func (s *stack) close() {
	s.server.Close()
	s.remote.close()
	_ = s.opened.Close()
}
