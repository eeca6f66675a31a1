package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/project-qa/pqa-runtime/internal/history"
)

func startPostgres(t *testing.T) (*tcpostgres.PostgresContainer, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("launcher"),
		tcpostgres.WithUsername("launcher"),
		tcpostgres.WithPassword("launcher"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("connection string: %v", err)
	}
	return container, dsn
}

func TestPostgresSink_SendAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	container, dsn := startPostgres(t)
	defer func() { _ = container.Terminate(context.Background()) }()

	sink, err := New(dsn)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	events := []history.Event{
		{Type: history.EventStart, OccurredAt: time.Now().UTC(), Sidecar: "backend", PID: 100},
		{Type: history.EventExit, OccurredAt: time.Now().UTC(), Sidecar: "backend", PID: 100, Detail: "signal: terminated"},
		{Type: history.EventBudgetExhausted, OccurredAt: time.Now().UTC(), Sidecar: "backend"},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("send %s: %v", e.Type, err)
		}
	}

	var count int
	row := sink.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sidecar_history WHERE sidecar = $1`, "backend")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}
}

func TestPostgresSink_CancelledContext(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	container, dsn := startPostgres(t)
	defer func() { _ = container.Terminate(context.Background()) }()

	sink, err := New(dsn)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := history.Event{Type: history.EventStart, OccurredAt: time.Now().UTC(), Sidecar: "web", PID: 2}
	if err := sink.Send(ctx, e); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestPostgresSink_BadDSN(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
