package logging

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// secretFields are attribute keys whose values never reach a log sink. They
// cover the remote endpoint credentials and the session cookie.
var secretFields = []string{
	"password", "secret", "token", "auth", "authorization", "bearer",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token", "refreshToken", "refresh_token",
	"credential", "credentials",
	"cookie", "set_cookie",
	"privateKey", "private_key", "secretKey", "secret_key",
}

// secretValues catch credentials logged under a neutral key, such as a raw
// header value: JWTs and Bearer or Basic authorization schemes.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`),
}

// DefaultRedactOptions lists the masq rules every quotebook logger applies.
// session_id is deliberately absent so one user's requests can be followed.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(secretFields)+len(secretValues)+2)
	for _, name := range secretFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	opts = append(opts, masq.WithFieldPrefix("secret"), masq.WithFieldPrefix("private"))

	for _, re := range secretValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// NewReplaceAttr builds a slog ReplaceAttr from the default rules plus extra.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), extra...)...)
}

// RedactingHandler applies a ReplaceAttr function in front of handlers that do
// not support slog.HandlerOptions, such as the charm pretty handler.
type RedactingHandler struct {
	next    slog.Handler
	replace func(groups []string, a slog.Attr) slog.Attr
	groups  []string
}

// NewRedactingHandler wraps next so every attribute passes through replace.
func NewRedactingHandler(next slog.Handler, replace func(groups []string, a slog.Attr) slog.Attr) *RedactingHandler {
	return &RedactingHandler{next: next, replace: replace}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle rewrites the record's attributes before delegating.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	for a := range r.Attrs {
		clean.AddAttrs(h.replace(h.groups, a))
	}

	return h.next.Handle(ctx, clean)
}

// WithAttrs redacts attrs once and hands them to the wrapped handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.replace(h.groups, a)
	}

	return &RedactingHandler{next: h.next.WithAttrs(redacted), replace: h.replace, groups: h.groups}
}

// WithGroup records the group so replace sees the full attribute path.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	groups := append(append([]string{}, h.groups...), name)

	return &RedactingHandler{next: h.next.WithGroup(name), replace: h.replace, groups: groups}
}
