package handlers

import (
	"context"

	"github.com/solatis/alertkeeper/internal/core/db"
	"github.com/solatis/alertkeeper/internal/types"
)

// AlertRecorder persists history entries. *db.AlertStore implements it.
type AlertRecorder interface {
	Insert(ctx context.Context, e *types.AlertEntry) error
}

// HistoryHandler records every action in the alert history.
type HistoryHandler struct {
	store AlertRecorder
}

func NewHistoryHandler(store AlertRecorder) *HistoryHandler {
	return &HistoryHandler{store: store}
}

func (h *HistoryHandler) ID() string { return HistoryID }

func (h *HistoryHandler) Handle(ctx context.Context, action types.Action) error {
	recordID, _ := types.RecordIDFromContext(ctx)
	entry, err := db.EntryFromAction(recordID, action)
	if err != nil {
		return err
	}
	return h.store.Insert(ctx, &entry)
}
