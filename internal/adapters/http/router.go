package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds API requests when no timeout is configured.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains what the router wires together.
type RouterConfig struct {
	Logger *slog.Logger

	// ServiceName names the server spans. Tracing is off when empty.
	ServiceName string

	HealthHandler *handlers.HealthHandler
	QuoteHandler  *handlers.QuoteHandler

	Session middleware.SessionOptions

	// Timeout is the API request deadline; zero disables it.
	Timeout time.Duration
}

// SetupRouter configures middleware and routes on engine.
// Global middleware, first to last:
//  1. ContextLogger: seeds the request logger
//  2. Recovery: catches panics from everything after it
//  3. RequestID and CorrelationID
//  4. otelgin tracing, then request metrics
//  5. Logging (skips /-/)
//
// Routes:
//   - /-/ probes and metrics, no session and no deadline
//   - /api/v1/ widget API, with the session and the request deadline
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.ContextLogger(cfg.Logger),
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)

	if cfg.ServiceName != "" {
		engine.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	}

	engine.Use(telemetry.Middleware(), middleware.Logging())

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1", middleware.Session(cfg.Session))
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout))
	}

	if cfg.QuoteHandler != nil {
		cfg.QuoteHandler.RegisterQuoteRoutes(apiV1)
	}
}

// SetupMinimalRouter registers only the probes. The quotectl smoke tests and
// the benchmarks use it.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.ContextLogger(logger),
		middleware.Recovery(),
		middleware.RequestID(),
	)

	if healthHandler != nil {
		healthHandler.RegisterHealthRoutesOnEngine(engine)
	}
}
