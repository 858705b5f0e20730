package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Tee fans each record out to a console handler and any number of sinks,
// such as the rolling JSON file. A failing sink does not stop the others.
type Tee struct {
	console slog.Handler
	sinks   []slog.Handler
}

// NewTee returns a handler that writes to console and every sink.
func NewTee(console slog.Handler, sinks ...slog.Handler) *Tee {
	return &Tee{console: console, sinks: sinks}
}

func (t *Tee) all() []slog.Handler {
	return append([]slog.Handler{t.console}, t.sinks...)
}

// Enabled reports true when at least one destination wants the level.
func (t *Tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.all() {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle writes r to each enabled destination and joins their errors.
func (t *Tee) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	var errs []error

	for _, h := range t.all() {
		if !h.Enabled(ctx, r.Level) {
			continue
		}

		errs = append(errs, h.Handle(ctx, r.Clone()))
	}

	return errors.Join(errs...)
}

// WithAttrs applies attrs to every destination.
func (t *Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup opens the group on every destination.
func (t *Tee) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *Tee) derive(fn func(slog.Handler) slog.Handler) *Tee {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, h := range t.sinks {
		sinks[i] = fn(h)
	}

	return &Tee{console: fn(t.console), sinks: sinks}
}
