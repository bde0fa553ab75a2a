// Package publisher provides audit event sinks.
package publisher

import (
	"context"
	"log/slog"

	"creditgate/pkg/platform/audit"
)

// LogPublisher writes audit events to the structured logger. It is the
// default sink when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Emit(ctx context.Context, event audit.Event) error {
	p.logger.InfoContext(ctx, "audit",
		"event_id", event.ID,
		"category", string(event.Category),
		"subject", event.Subject,
		"action", event.Action,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)
	return nil
}
