// Package middleware provides HTTP middleware for the Gin framework.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	// HeaderRequestID identifies a single request.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID tracks one user action across services. It is
	// propagated from upstream when present.
	HeaderCorrelationID = "X-Correlation-ID"

	// DefaultSessionHeader carries the quote session id.
	DefaultSessionHeader = "X-Session-ID"

	// DefaultSessionCookie is the fallback carrier for browsers.
	DefaultSessionCookie = "quotebook_session"

	// Gin context keys.
	ContextKeyRequestID     = "request_id"
	ContextKeyCorrelationID = "correlation_id"
	ContextKeySessionID     = "session_id"
)

type contextKey string

const (
	ctxKeyRequestID     contextKey = "request_id"
	ctxKeyCorrelationID contextKey = "correlation_id"
	ctxKeySessionID     contextKey = "session_id"
)

// idSource describes where an id is read from and where it is stored.
type idSource struct {
	header string
	cookie string
	ttl    time.Duration
	secure bool
	ginKey string
	enrich func(ctx context.Context, id string) context.Context
}

// identify reads the id from the header, then the cookie, and generates a
// UUID when both are absent. The id is echoed on the response in the same
// carriers and stored on both the gin and the request context.
func identify(src idSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(src.header)

		if id == "" && src.cookie != "" {
			if v, err := c.Cookie(src.cookie); err == nil {
				id = v
			}
		}

		if id == "" {
			id = uuid.NewString()
		}

		c.Set(src.ginKey, id)
		c.Header(src.header, id)

		if src.cookie != "" {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(src.cookie, id, int(src.ttl.Seconds()), "/", "", src.secure, true)
		}

		c.Request = c.Request.WithContext(src.enrich(c.Request.Context(), id))

		c.Next()
	}
}

// RequestID returns middleware that extracts or generates the request id.
func RequestID() gin.HandlerFunc {
	return identify(idSource{
		header: HeaderRequestID,
		ginKey: ContextKeyRequestID,
		enrich: func(ctx context.Context, id string) context.Context {
			return logging.WithRequestID(ContextWithRequestID(ctx, id), id)
		},
	})
}

// CorrelationID returns middleware that propagates or starts a correlation id.
func CorrelationID() gin.HandlerFunc {
	return identify(idSource{
		header: HeaderCorrelationID,
		ginKey: ContextKeyCorrelationID,
		enrich: func(ctx context.Context, id string) context.Context {
			return logging.WithCorrelationID(ContextWithCorrelationID(ctx, id), id)
		},
	})
}

// SessionOptions configures the session middleware.
type SessionOptions struct {
	// Header defaults to X-Session-ID.
	Header string

	// CookieName defaults to quotebook_session.
	CookieName string

	// TTL is the cookie lifetime, matching the session cache TTL.
	TTL time.Duration

	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// Session returns middleware that resolves the quote session. The last
// displayed quote is remembered per session id.
func Session(opts SessionOptions) gin.HandlerFunc {
	if opts.Header == "" {
		opts.Header = DefaultSessionHeader
	}

	if opts.CookieName == "" {
		opts.CookieName = DefaultSessionCookie
	}

	return identify(idSource{
		header: opts.Header,
		cookie: opts.CookieName,
		ttl:    opts.TTL,
		secure: opts.Secure,
		ginKey: ContextKeySessionID,
		enrich: func(ctx context.Context, id string) context.Context {
			return logging.WithSessionID(context.WithValue(ctx, ctxKeySessionID, id), id)
		},
	})
}

func ginString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

// GetRequestID returns the request id, or "" outside the middleware.
func GetRequestID(c *gin.Context) string { return ginString(c, ContextKeyRequestID) }

// GetCorrelationID returns the correlation id, or "" outside the middleware.
func GetCorrelationID(c *gin.Context) string { return ginString(c, ContextKeyCorrelationID) }

// GetSessionID returns the session id, or "" outside the middleware.
func GetSessionID(c *gin.Context) string { return ginString(c, ContextKeySessionID) }

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}

// RequestIDFromContext returns the request id for propagation to the remote.
func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxKeyRequestID) }

// CorrelationIDFromContext returns the correlation id for propagation to the remote.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxKeyCorrelationID)
}

// SessionIDFromContext returns the quote session id.
func SessionIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxKeySessionID) }

// ContextWithRequestID stores a request id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextWithCorrelationID stores a correlation id in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}
