package logging

import (
	"context"
	"log/slog"
)

// stageLevelHandler drops records below a stage's configured minimum level
// (logging.stage_overrides) before they reach the shared handler. It can only
// raise the threshold; the shared handler's level still applies.
type stageLevelHandler struct {
	next slog.Handler
	min  slog.Level
}

func (h *stageLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.next.Enabled(ctx, level)
}

func (h *stageLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.min {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *stageLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &stageLevelHandler{next: h.next.WithAttrs(attrs), min: h.min}
}

func (h *stageLevelHandler) WithGroup(name string) slog.Handler {
	return &stageLevelHandler{next: h.next.WithGroup(name), min: h.min}
}

// WithLevelOverride returns a logger for one pipeline stage that suppresses
// records below level. ForStage uses it to apply logging.stage_overrides, so
// a noisy stage can be quieted without changing the global level. Applying
// it twice replaces the earlier override instead of stacking.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	next := logger.Handler()
	if existing, ok := next.(*stageLevelHandler); ok {
		next = existing.next
	}
	return slog.New(&stageLevelHandler{next: next, min: level})
}
