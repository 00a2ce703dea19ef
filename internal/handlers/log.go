package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/solatis/alertkeeper/internal/types"
)

// LogHandler writes one structured log line per action.
type LogHandler struct {
	logger zerolog.Logger
}

// NewLogHandler returns a handler logging at info level, or at warn for
// warning and emergency actions.
func NewLogHandler(logger zerolog.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

func (h *LogHandler) ID() string { return LogID }

func (h *LogHandler) Handle(ctx context.Context, action types.Action) error {
	ev := h.logger.Info()
	if action.Level >= types.LevelWarning {
		ev = h.logger.Warn()
	}
	if id, ok := types.RecordIDFromContext(ctx); ok {
		ev = ev.Str("record_id", string(id))
	}
	ev.Str("rule_id", string(action.RuleID)).
		Stringer("alert_level", action.Level).
		Str("message_key", action.MessageKey).
		Fields(action.Metadata).
		Msg("weather alert")
	return nil
}
