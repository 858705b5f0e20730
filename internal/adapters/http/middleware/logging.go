package middleware

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// ContextLogger puts logger on the request context. It must run before the
// id and session middleware, which enrich what it stored.
func ContextLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}
}

// Logging writes one "request completed" line per API request through the
// context logger, so request, correlation and session ids come along.
// Probe paths and quiet, typically the notification poll, are not logged.
func Logging(quiet ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		if strings.HasPrefix(req.URL.Path, "/-/") || slices.Contains(quiet, req.URL.Path) {
			c.Next()
			return
		}

		target := req.URL.Path
		if req.URL.RawQuery != "" {
			target += "?" + req.URL.RawQuery
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ctx := c.Request.Context()

		logging.FromContext(ctx).Log(ctx, levelFor(status), "request completed",
			slog.String("method", req.Method),
			slog.String("path", target),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// levelFor logs server faults as errors and client mistakes as warnings.
func levelFor(status int) slog.Level {
	switch status / 100 {
	case 5:
		return slog.LevelError
	case 4:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
