package audit

import (
	"context"
	"log/slog"

	"creditgate/pkg/requestcontext"
)

// Publisher emits audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Log records a policy event on the structured logger and forwards it to the
// publisher when one is configured. Request metadata is pulled from the
// context so call sites stay terse.
func Log(ctx context.Context, logger *slog.Logger, publisher Publisher, action, subject string, attrs ...any) {
	event := NewEvent(action, subject, requestcontext.Now(ctx))
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)

	if logger != nil {
		args := append(attrs, "event", action, "subject", subject, "log_type", "audit")
		logger.InfoContext(ctx, action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", action, "error", err)
	}
}
