// Package main is the entry point for the quotebook service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebook/internal/adapters/flags"
	"github.com/jsamuelsen/quotebook/internal/adapters/http"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/adapters/inbox"
	"github.com/jsamuelsen/quotebook/internal/adapters/notify"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

const cacheSweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Cancelled on SIGINT/SIGTERM. Background workers stop with it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := telemetry.NewSyncMetrics(registry)

	// 5. Open the durable store and the session cache
	opened, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	defer func() {
		if closeErr := opened.Close(); closeErr != nil {
			logger.Error("storage close error", slog.Any("error", closeErr))
		}
	}()

	cache := memory.NewCache()
	feed := notify.NewFeed(cfg.Notifications.TTL, cfg.Notifications.Capacity)

	// 6. Create the remote quote client (ACL pattern)
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Quote.BaseURL,
		ServiceName: cfg.Services.Quote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}

	remote := acl.NewRemoteQuoteClient(acl.RemoteQuoteClientConfig{
		Client:    httpClient,
		ReadPath:  cfg.Services.Quote.ReadPath,
		WritePath: cfg.Services.Quote.WritePath,
		Category:  cfg.Sync.Category,
		Logger:    logger,
	})

	// 7. Health checks
	healthRegistry := ports.NewHealthRegistry()
	if err := healthRegistry.Register(remote); err != nil {
		return fmt.Errorf("registering remote health check: %w", err)
	}

	if opened.Health != nil {
		if err := healthRegistry.Register(opened.Health); err != nil {
			return fmt.Errorf("registering storage health check: %w", err)
		}
	}

	// 8. Application layer
	collection := app.NewQuoteCollection(opened.Store, logger, syncMetrics)
	filter := app.NewFilterPreference(opened.Store, logger)

	reconciler := app.NewReconciler(app.ReconcilerConfig{
		Source:     remote,
		Collection: collection,
		Notifier:   feed,
		Metrics:    syncMetrics,
		Interval:   cfg.Sync.Interval,
		MaxItems:   cfg.Sync.MaxItems,
		Logger:     logger,
	})

	quoteService := app.NewQuoteService(app.QuoteServiceConfig{
		Collection: collection,
		Filter:     filter,
		Selector: app.NewSelector(app.SelectorConfig{
			Collection: collection,
			Filter:     filter,
			Cache:      cache,
			SessionTTL: cfg.Session.TTL,
			Logger:     logger,
		}),
		Reconciler:     reconciler,
		Submitter:      app.NewSubmitter(remote, feed, logger),
		Notifier:       feed,
		Flags:          flags.NewStatic(cfg.Features),
		MaxImportBytes: cfg.Import.MaxBytes,
		Logger:         logger,
	})

	if err := quoteService.Load(ctx); err != nil {
		return fmt.Errorf("loading quotes: %w", err)
	}

	// 9. Background workers
	var workers sync.WaitGroup

	workers.Add(1)
	go func() {
		defer workers.Done()
		cache.RunJanitor(ctx, cacheSweepInterval)
	}()

	if cfg.Sync.Enabled {
		workers.Add(1)
		go func() {
			defer workers.Done()
			reconciler.Run(ctx)
		}()
	}

	if cfg.Import.WatchDir != "" {
		watcher := inbox.New(inbox.Config{
			Dir:      cfg.Import.WatchDir,
			Importer: quoteService,
			Logger:   logger,
		})

		workers.Add(1)
		go func() {
			defer workers.Done()

			if err := watcher.Run(ctx); err != nil {
				logger.Error("inbox watcher failed", slog.Any("error", err))
			}
		}()
	}

	// 10. HTTP server and routes
	healthHandler := handlers.NewHealthHandler(handlers.HealthHandlerConfig{
		Registry:   healthRegistry,
		BuildInfo:  handlers.NewBuildInfo(Version, Commit, BuildTime),
		Gatherer:   registry,
		SyncStatus: reconciler.Status,
	})

	server := http.New(&cfg.Server, logger)

	serviceName := ""
	if cfg.Telemetry.Enabled {
		serviceName = cfg.Telemetry.ServiceName
	}

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		ServiceName:   serviceName,
		HealthHandler: healthHandler,
		QuoteHandler:  handlers.NewQuoteHandler(quoteService),
		Session: middleware.SessionOptions{
			Header:     cfg.Session.Header,
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
		},
		Timeout: cfg.Server.RequestTimeout,
	})

	// 11. Start server (non-blocking)
	serverErr, err := server.Start()
	if err != nil {
		return err
	}

	// 12. Wait for shutdown signal
	err = waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)

	stop()
	workers.Wait()

	return err
}

// waitForShutdown blocks until ctx is cancelled by a signal or the server
// fails, then drains in-flight requests.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	// The parent is already cancelled, so the drain deadline needs its own root.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
