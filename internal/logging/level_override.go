package logging

import (
	"context"
	"log/slog"
)

// levelFloorHandler drops records below a per-logger minimum before
// delegating to the wrapped handler. The wrapped handler keeps its own
// global level; the floor only ever raises the bar for this logger, so a
// chatty component can be quieted without touching the shared handler.
type levelFloorHandler struct {
	next  slog.Handler
	floor slog.Level
}

func newLevelFloorHandler(next slog.Handler, floor slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &levelFloorHandler{next: next, floor: floor}
}

func (h *levelFloorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.floor {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *levelFloorHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.floor {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *levelFloorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelFloorHandler{
		next:  h.next.WithAttrs(attrs),
		floor: h.floor,
	}
}

func (h *levelFloorHandler) WithGroup(name string) slog.Handler {
	return &levelFloorHandler{
		next:  h.next.WithGroup(name),
		floor: h.floor,
	}
}

func (h *levelFloorHandler) CloneWithLevel(level slog.Level) slog.Handler {
	return &levelFloorHandler{
		next:  h.next,
		floor: level,
	}
}

// WithLevelOverride returns a logger enforcing the provided minimum level
// while preserving existing attributes and handler wiring. Re-applying it to
// an already-floored logger replaces the floor instead of stacking handlers.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return slog.New(newLevelFloorHandler(nil, level))
	}
	if cloner, ok := logger.Handler().(interface{ CloneWithLevel(slog.Level) slog.Handler }); ok {
		return slog.New(cloner.CloneWithLevel(level))
	}
	return slog.New(newLevelFloorHandler(logger.Handler(), level))
}
