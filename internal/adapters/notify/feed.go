// Package notify keeps the transient notifications shown to users.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// Feed is a bounded, in-memory ports.Notifier. Each notification stays
// visible for ttl; when capacity is reached the oldest entry is dropped.
type Feed struct {
	mu       sync.Mutex
	items    []domain.Notification
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

var _ ports.Notifier = (*Feed)(nil)

// NewFeed creates a feed.
func NewFeed(ttl time.Duration, capacity int) *Feed {
	if capacity < 1 {
		capacity = 1
	}

	return &Feed{
		items:    make([]domain.Notification, 0, capacity),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Publish stamps n with an id and expiry and appends it.
func (f *Feed) Publish(ctx context.Context, n domain.Notification) error {
	now := f.now()
	n.ID = uuid.NewString()
	n.CreatedAt = now
	n.ExpiresAt = now.Add(f.ttl)

	f.mu.Lock()
	if len(f.items) == f.capacity {
		f.items = append(f.items[:0], f.items[1:]...)
	}
	f.items = append(f.items, n)
	f.mu.Unlock()

	logging.FromContext(ctx).DebugContext(ctx, "notification published",
		slog.String("kind", string(n.Kind)),
		slog.String("message", n.Message),
	)

	return nil
}

// Active returns unexpired notifications, newest first, and prunes the rest.
func (f *Feed) Active(_ context.Context) []domain.Notification {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.items[:0]
	for _, n := range f.items {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	f.items = kept

	out := make([]domain.Notification, len(kept))
	for i, n := range kept {
		out[len(kept)-1-i] = n
	}

	return out
}
