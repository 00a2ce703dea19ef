// Package handlers provides the action handlers alertkeeper ships with.
//
// Each handler implements dispatch.Handler. Handlers own their I/O: a
// failure is returned to the dispatcher, which records it in the report and
// carries on with the remaining handlers.
package handlers

import (
	"context"
	"time"

	"github.com/solatis/alertkeeper/internal/types"
)

// Default handler IDs.
const (
	LogID     = "log"
	ConsoleID = "console"
	KafkaID   = "kafka"
	WebhookID = "webhook"
	HistoryID = "history"
)

// Event is the wire form of an action for external consumers.
type Event struct {
	RecordID   types.RecordID `json:"record_id,omitempty"`
	RuleID     types.RuleID   `json:"rule_id"`
	Level      types.Level    `json:"level"`
	MessageKey string         `json:"message_key"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	EmittedAt  time.Time      `json:"emitted_at"`
}

func newEvent(ctx context.Context, action types.Action, now time.Time) Event {
	recordID, _ := types.RecordIDFromContext(ctx)
	return Event{
		RecordID:   recordID,
		RuleID:     action.RuleID,
		Level:      action.Level,
		MessageKey: action.MessageKey,
		Metadata:   action.Metadata,
		EmittedAt:  now.UTC(),
	}
}
