// Package ports declares what the quote services need from the outside:
// durable and session storage, the remote quote endpoint, notifications,
// feature flags and health checks. Every method takes a context and speaks
// domain types; failures are domain errors, so callers never see a driver or
// HTTP error directly.
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// Durable store keys.
const (
	KeyQuotes           = "quotes"
	KeySelectedCategory = "selectedCategory"
)

// Session cache keys.
const (
	KeyLastQuote = "lastQuote"
)

// KeyValueStore persists the quote collection and the selected category as
// opaque JSON documents. A key never written is domain.ErrNotFound; a store
// that cannot be read or written is domain.ErrUnavailable.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces whatever key held.
	Set(ctx context.Context, key string, value []byte) error
}

// Cache holds per-session state that may vanish, such as the last quote a
// session was shown. Missing and expired keys are both domain.ErrNotFound.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set keeps value for ttl; zero keeps it until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete is a no-op for an absent key.
	Delete(ctx context.Context, key string) error
}

// RemoteQuoteSource reads the remote collection as domain quotes: each
// item's title becomes the text and the configured sync category is applied.
// Any transport or status failure is domain.ErrNetwork.
type RemoteQuoteSource interface {
	// FetchQuotes returns the remote collection in the order received.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)
}

// RemoteQuoteSink writes newly authored quotes to the remote endpoint.
type RemoteQuoteSink interface {
	// SubmitQuote sends one quote. Returns domain.ErrNetwork on failure.
	SubmitQuote(ctx context.Context, quote domain.Quote) error
}

// Notifier delivers transient notifications to the user surface.
type Notifier interface {
	// Publish records a notification. Implementations stamp ID and expiry.
	Publish(ctx context.Context, n domain.Notification) error

	// Active returns the notifications that have not expired, newest first.
	Active(ctx context.Context) []domain.Notification
}
