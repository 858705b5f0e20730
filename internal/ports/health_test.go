package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name  string
	err   error
	delay time.Duration
}

func (s stubChecker) Name() string { return s.name }

func (s stubChecker) Check(ctx context.Context) error {
	if s.delay == 0 {
		return s.err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
		return s.err
	}
}

func TestHealthRegistry_Register(t *testing.T) {
	r := NewHealthRegistry()

	require.NoError(t, r.Register(stubChecker{name: "quote-store"}))
	require.NoError(t, r.Register(stubChecker{name: "quote-api"}))

	err := r.Register(stubChecker{name: "quote-store"})
	require.ErrorIs(t, err, ErrDuplicateChecker)
	assert.Contains(t, err.Error(), "quote-store")
	assert.Len(t, r.checkers, 2)
}

func TestHealthRegistry_CheckAll(t *testing.T) {
	tests := []struct {
		name     string
		checkers []HealthChecker
		want     HealthStatus
		messages map[string]string
	}{
		{name: "nothing registered", want: HealthStatusHealthy, messages: map[string]string{}},
		{
			name:     "store and remote up",
			checkers: []HealthChecker{stubChecker{name: "quote-store"}, stubChecker{name: "quote-api"}},
			want:     HealthStatusHealthy,
			messages: map[string]string{"quote-store": "", "quote-api": ""},
		},
		{
			name: "remote circuit open",
			checkers: []HealthChecker{
				stubChecker{name: "quote-store"},
				stubChecker{name: "quote-api", err: errors.New("circuit breaker open")},
			},
			want:     HealthStatusUnhealthy,
			messages: map[string]string{"quote-store": "", "quote-api": "circuit breaker open"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewHealthRegistry()
			for _, c := range tt.checkers {
				require.NoError(t, r.Register(c))
			}

			got := r.CheckAll(context.Background())

			assert.Equal(t, tt.want, got.Status)
			assert.False(t, got.Timestamp.IsZero())
			require.Len(t, got.Checks, len(tt.messages))

			for name, msg := range tt.messages {
				assert.Equal(t, msg, got.Checks[name].Message, name)
				assert.Equal(t, msg == "", got.Checks[name].Status == HealthStatusHealthy, name)
			}
		})
	}
}

func TestHealthRegistry_SlowCheckDoesNotHideOthers(t *testing.T) {
	r := NewHealthRegistry()
	require.NoError(t, r.Register(stubChecker{name: "quote-store", err: errors.New("disk full")}))
	require.NoError(t, r.Register(stubChecker{name: "quote-api", delay: 50 * time.Millisecond}))

	got := r.CheckAll(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, got.Status)
	assert.Equal(t, HealthStatusHealthy, got.Checks["quote-api"].Status)
	assert.GreaterOrEqual(t, got.Checks["quote-api"].Duration, 50*time.Millisecond)
}

func TestHealthRegistry_CancelledContext(t *testing.T) {
	r := NewHealthRegistry()
	require.NoError(t, r.Register(stubChecker{name: "quote-api", delay: time.Second}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := r.CheckAll(ctx)

	assert.Equal(t, HealthStatusUnhealthy, got.Status)
	assert.Contains(t, got.Checks["quote-api"].Message, "context canceled")
}
