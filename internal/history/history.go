// Package history exports sidecar lifecycle events to external systems so
// operators can query what the launcher did after the fact.
package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart           EventType = "start"
	EventExit            EventType = "exit"
	EventRestart         EventType = "restart"
	EventBudgetExhausted EventType = "budget_exhausted"
	EventShutdown        EventType = "shutdown"
)

// Event is one sidecar lifecycle occurrence.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Sidecar    string    `json:"sidecar"`
	PID        int       `json:"pid"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for history events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
