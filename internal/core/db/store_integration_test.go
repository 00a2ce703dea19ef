//go:build integration

package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/solatis/alertkeeper/internal/types"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "alertkeeper_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://test:test@%s:%s/alertkeeper_test?sslmode=disable", host, port.Port())
}

func TestAlertStore_Postgres(t *testing.T) {
	ctx := context.Background()

	db, err := Open(startPostgres(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second MigrateUp() error = %v", err)
	}

	s, err := NewAlertStore(db)
	if err != nil {
		t.Fatalf("NewAlertStore() error = %v", err)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e, err := EntryFromAction("", types.NewAction("storm", types.LevelWatch, "storm.high_severity", map[string]any{"rung": 1}))
		if err != nil {
			t.Fatalf("EntryFromAction() error = %v", err)
		}
		e.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.Insert(ctx, &e); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := s.Recent(ctx, "storm", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 || !got[0].CreatedAt.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("Recent() = %+v, want 3 entries newest first", got)
	}

	n, err := s.PruneBefore(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("PruneBefore() removed %d, want 2", n)
	}
}
