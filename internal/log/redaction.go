// Package log provides slog helpers shared by the library and the CLI:
// a handler that scrubs credential material from log attributes and a
// size-rotating log file writer.
package log

import (
	"context"
	"log/slog"
	"strings"
)

// redacted replaces the value of any sensitive attribute.
const redacted = "[REDACTED]"

// sensitiveKeys lists key substrings whose values must never reach a log
// sink. Matching is case-insensitive. An authentication library logs around
// passwords constantly, so the scrubbing happens in the handler rather than
// at each call site.
var sensitiveKeys = []string{
	"password",
	"pass",
	"secret",
	"token",
	"cred",
	"bindpw",
	"userpassword",
	"auth_payload",
}

// RedactingHandler is a slog.Handler that redacts sensitive attributes
// before forwarding records to the wrapped handler.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler wraps next with credential redaction.
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	var attrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, redactAttr(a))
		return true
	})

	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	clean.AddAttrs(attrs...)
	return h.next.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(clean)}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		members := make([]any, len(group))
		for i, member := range group {
			members[i] = redactAttr(member)
		}
		return slog.Group(a.Key, members...)
	}

	key := strings.ToLower(a.Key)
	for _, sens := range sensitiveKeys {
		if strings.Contains(key, sens) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}
