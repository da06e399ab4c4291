package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security-relevant action such as storing or
// revoking credentials. It must never carry secret values.
type AuditEvent struct {
	Action  string
	Outcome string
	Subject string
	Detail  string
	Err     error
}

// Audit logs the event at INFO level with an [AUDIT] prefix.
func Audit(event AuditEvent) {
	logger := current()
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.Subject != "" {
		attrs = append(attrs, slog.String("subject", event.Subject))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}

// Truncate shortens an opaque identifier (state value, request id) for logs.
func Truncate(id string) string {
	const keep = 8
	if len(id) <= keep {
		return id
	}
	return id[:keep] + "..."
}
