package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcclickhouse "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/project-qa/pqa-runtime/internal/history"
)

func startClickHouse(t *testing.T) (*tcclickhouse.ClickHouseContainer, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcclickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		tcclickhouse.WithUsername("default"),
		tcclickhouse.WithPassword(""),
		tcclickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start clickhouse container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("mapped port: %v", err)
	}
	return container, fmt.Sprintf("%s:%s", host, port.Port())
}

func TestClickHouseSink_SendAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ClickHouse integration test in short mode")
	}

	container, addr := startClickHouse(t)
	defer func() { _ = container.Terminate(context.Background()) }()

	// New creates the table itself; the first Send must work on a fresh
	// database with no setup.
	sink, err := New(addr, "sidecar_history")
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	events := []history.Event{
		{Type: history.EventStart, OccurredAt: time.Now().UTC(), Sidecar: "mongo", PID: 77},
		{Type: history.EventExit, OccurredAt: time.Now().UTC(), Sidecar: "mongo", PID: 77, Detail: "exit code 62"},
		{Type: history.EventRestart, OccurredAt: time.Now().UTC(), Sidecar: "mongo", PID: 78},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("send %s: %v", e.Type, err)
		}
	}

	var count uint64
	row := sink.conn.QueryRow(ctx, `SELECT COUNT(*) FROM sidecar_history WHERE sidecar = 'mongo'`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}
}

func TestClickHouseSink_ConnectError(t *testing.T) {
	if _, err := New("127.0.0.1:1", "sidecar_history"); err == nil {
		t.Fatal("expected connection error")
	}
}
