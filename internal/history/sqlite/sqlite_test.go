package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/project-qa/pqa-runtime/internal/history"
)

func TestSQLiteSink_SendAndQuery(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	sink, err := New("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("close sink: %v", err)
		}
	}()

	ctx := context.Background()
	events := []history.Event{
		{Type: history.EventStart, OccurredAt: time.Now().UTC(), Sidecar: "web", PID: 4321},
		{Type: history.EventExit, OccurredAt: time.Now().UTC(), Sidecar: "web", PID: 4321, Detail: "exit code 1"},
		{Type: history.EventRestart, OccurredAt: time.Now().UTC(), Sidecar: "web", PID: 4322},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("send %s: %v", e.Type, err)
		}
	}

	var count int
	row := sink.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sidecar_history WHERE sidecar = ?`, "web")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}

	var detail string
	row = sink.db.QueryRowContext(ctx, `SELECT detail FROM sidecar_history WHERE event = ?`, "exit")
	if err := row.Scan(&detail); err != nil {
		t.Fatalf("query detail: %v", err)
	}
	if detail != "exit code 1" {
		t.Fatalf("detail = %q", detail)
	}
}

func TestSQLiteSink_InMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	e := history.Event{Type: history.EventStart, OccurredAt: time.Now().UTC(), Sidecar: "mongo", PID: 1}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
