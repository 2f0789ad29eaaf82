package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// spanContextHandler stamps trace_id and span_id onto records logged from a
// context carrying a span, so log lines written during an instrumented call
// can be matched to its trace.
type spanContextHandler struct {
	next slog.Handler
}

var _ slog.Handler = (*spanContextHandler)(nil)

func newSpanContextHandler(next slog.Handler) *spanContextHandler {
	return &spanContextHandler{next: next}
}

func (h *spanContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *spanContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}

	return h.next.Handle(ctx, record)
}

func (h *spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *spanContextHandler) WithGroup(name string) slog.Handler {
	return &spanContextHandler{next: h.next.WithGroup(name)}
}
