package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sqltypes "github.com/jmoiron/sqlx/types"

	"github.com/solatis/alertkeeper/internal/types"
)

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 50

// MaxRecentLimit is the largest page Recent will return.
const MaxRecentLimit = 1000

// AlertStore persists dispatched actions.
type AlertStore struct {
	q   *Queries
	now func() time.Time
}

// NewAlertStore loads the named queries for db. Migrations must already be applied.
func NewAlertStore(db *sqlx.DB) (*AlertStore, error) {
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &AlertStore{q: q, now: time.Now}, nil
}

// EntryFromAction builds a history row for action. AlertID and CreatedAt are
// left for Insert to fill.
func EntryFromAction(recordID types.RecordID, action types.Action) (types.AlertEntry, error) {
	meta := sqltypes.JSONText("{}")
	if len(action.Metadata) > 0 {
		b, err := json.Marshal(action.Metadata)
		if err != nil {
			return types.AlertEntry{}, fmt.Errorf("marshal metadata: %w", err)
		}
		meta = b
	}
	return types.AlertEntry{
		RecordID:   recordID,
		RuleID:     action.RuleID,
		Level:      action.Level.String(),
		MessageKey: action.MessageKey,
		Metadata:   meta,
	}, nil
}

// Insert writes e, assigning an AlertID and CreatedAt when they are zero.
func (s *AlertStore) Insert(ctx context.Context, e *types.AlertEntry) error {
	if e.AlertID == "" {
		e.AlertID = types.NewAlertID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	// PostgreSQL keeps microseconds; truncate so the stored row reads back equal.
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)
	if len(e.Metadata) == 0 {
		e.Metadata = sqltypes.JSONText("{}")
	}

	_, err := s.q.ExecContext(ctx, "insert-alert",
		e.AlertID, e.RecordID, e.RuleID, e.Level, e.MessageKey, e.Metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", e.AlertID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-empty ruleID
// restricts the result to that rule.
func (s *AlertStore) Recent(ctx context.Context, ruleID types.RuleID, limit int) ([]types.AlertEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}

	entries := []types.AlertEntry{}
	var err error
	if ruleID == "" {
		err = s.q.SelectContext(ctx, "list-recent-alerts", &entries, limit)
	} else {
		err = s.q.SelectContext(ctx, "list-recent-alerts-by-rule", &entries, ruleID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *AlertStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.q.GetContext(ctx, "count-alerts", &n); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

// PruneBefore deletes entries created strictly before cutoff and returns
// how many were removed.
func (s *AlertStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, "prune-alerts", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	return n, nil
}
