package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"cinefuse/internal/logging"
	"cinefuse/internal/queue"
	"cinefuse/internal/services"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String("component", fmt.Sprintf("workflow-%s-runner", lane.name())),
		logging.String(logging.FieldLane, lane.name()),
	)
}

// stageLoggerForLane derives a logger carrying the item, stage and lane
// fields already annotated on ctx by withStageContext.
func (m *Manager) stageLoggerForLane(ctx context.Context, lane *laneState, laneLogger *slog.Logger) *slog.Logger {
	base := laneLogger
	if base == nil && lane != nil {
		base = lane.logger
	}
	if base == nil {
		base = m.logger
	}
	if base == nil {
		base = logging.NewNop()
	}
	return logging.WithContext(ctx, base)
}

func withStageContext(ctx context.Context, lane *laneState, stageName string, item *queue.Item, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if lane != nil {
		ctx = services.WithLane(ctx, lane.name())
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

// deriveStageLabel maps a queue status to the human label shown in progress
// output and notifications.
func deriveStageLabel(status queue.Status) string {
	switch status {
	case queue.StatusFetching:
		return "Fetching metadata"
	case queue.StatusResolving:
		return "Resolving identifiers"
	case queue.StatusCollecting:
		return "Collecting ratings"
	case queue.StatusScoring:
		return "Scoring"
	case queue.StatusPublishing:
		return "Publishing"
	}
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
