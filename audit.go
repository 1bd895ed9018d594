package shopauth

import (
	"context"
	"io"
	"log/slog"

	"github.com/MrEthical07/shopauth/internal/audit"
)

// AuditEvent is one security event. It never carries tokens or credentials.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// NewChannelSink returns a sink that hands events to a consumer goroutine.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink returns a sink that writes events to logger.
func NewLogSink(logger *slog.Logger) *audit.LogSink {
	return audit.NewLogSink(logger)
}

func (e *Engine) emitAudit(ctx context.Context, typ, userID string, success bool, reason string) {
	if e.audit == nil {
		return
	}
	event := audit.NewEvent(typ)
	event.UserID = userID
	event.IP = clientIPFromContext(ctx)
	event.Success = success
	event.Reason = reason
	e.audit.Emit(ctx, event)
}
