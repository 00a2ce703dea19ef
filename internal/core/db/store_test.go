package db

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/alertkeeper/internal/types"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open("sqlite://" + filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return db
}

func newTestStore(t *testing.T) *AlertStore {
	t.Helper()
	s, err := NewAlertStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewAlertStore() error = %v", err)
	}
	return s
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantMemory bool
		wantErr    bool
	}{
		{url: "sqlite://:memory:", wantDriver: "sqlite3", wantMemory: true},
		{url: "sqlite://alerts.db", wantDriver: "sqlite3"},
		{url: "sqlite:///var/lib/ak/alerts.db", wantDriver: "sqlite3"},
		{url: "postgres://u:p@localhost:5432/ak?sslmode=disable", wantDriver: "postgres"},
		{url: "postgresql://localhost/ak", wantDriver: "postgres"},
		{url: "mysql://localhost/ak", wantErr: true},
		{url: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, _, inMemory, err := parseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if driver != tt.wantDriver || inMemory != tt.wantMemory {
				t.Errorf("parseURL() = (%s, memory=%v), want (%s, memory=%v)", driver, inMemory, tt.wantDriver, tt.wantMemory)
			}
		})
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("second MigrateUp() error = %v", err)
	}

	statuses, err := MigrateStatus(db)
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("MigrateStatus() returned no migrations")
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %s not applied", s.ID)
		}
		if s.AppliedAt == nil {
			t.Errorf("migration %s has no applied_at", s.ID)
		}
	}
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Exec("UPDATE migrations SET checksum = 'tampered'"); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := MigrateUp(db); err == nil {
		t.Error("MigrateUp() with tampered checksum error = nil, want mismatch")
	}
}

func TestMigrateStatus_Pending(t *testing.T) {
	db, err := Open("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	statuses, err := MigrateStatus(db)
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v", err)
	}
	for _, s := range statuses {
		if s.Applied {
			t.Errorf("migration %s reported applied on fresh database", s.ID)
		}
	}
}

func TestAlertStore_InsertAndRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []types.AlertEntry{
		{RuleID: "storm", Level: "emergency", MessageKey: "storm.hail", CreatedAt: base},
		{RuleID: "heatwave", Level: "warning", MessageKey: "heatwave.critical_temperature", CreatedAt: base.Add(time.Minute)},
		{RuleID: "storm", Level: "advisory", MessageKey: "storm.alert", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		if err := s.Insert(ctx, &entries[i]); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
		if entries[i].AlertID == "" {
			t.Errorf("Insert(%d) did not assign AlertID", i)
		}
	}

	got, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(Recent()) = %d, want 3", len(got))
	}
	if got[0].MessageKey != "storm.alert" || got[2].MessageKey != "storm.hail" {
		t.Errorf("Recent() order = [%s %s %s], want newest first", got[0].MessageKey, got[1].MessageKey, got[2].MessageKey)
	}
	if !got[2].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got[2].CreatedAt, base)
	}
	if string(got[0].Metadata) != "{}" {
		t.Errorf("Metadata = %q, want {}", got[0].Metadata)
	}

	storm, err := s.Recent(ctx, "storm", 10)
	if err != nil {
		t.Fatalf("Recent(storm) error = %v", err)
	}
	if len(storm) != 2 {
		t.Errorf("len(Recent(storm)) = %d, want 2", len(storm))
	}

	limited, err := s.Recent(ctx, "", 1)
	if err != nil {
		t.Fatalf("Recent(limit 1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(Recent(limit 1)) = %d, want 1", len(limited))
	}
}

func TestAlertStore_EntryFromAction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	action := types.NewAction("storm", types.LevelEmergency, "storm.hail", map[string]any{"rung": 3, "hail": true})
	e, err := EntryFromAction("rec-1", action)
	if err != nil {
		t.Fatalf("EntryFromAction() error = %v", err)
	}
	if err := s.Insert(ctx, &e); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.Recent(ctx, "", 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if got[0].RecordID != "rec-1" || got[0].Level != "emergency" {
		t.Errorf("entry = %+v, want record rec-1 at emergency", got[0])
	}

	var meta map[string]any
	if err := json.Unmarshal(got[0].Metadata, &meta); err != nil {
		t.Fatalf("metadata not JSON: %v", err)
	}
	if meta["rung"] != float64(3) || meta["hail"] != true {
		t.Errorf("metadata = %v, want rung=3 hail=true", meta)
	}
}

func TestAlertStore_PruneBefore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		e := types.AlertEntry{RuleID: "storm", Level: "advisory", MessageKey: "storm.alert", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.Insert(ctx, &e); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	n, err := s.PruneBefore(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("PruneBefore() removed %d, want 2", n)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}
