// Package diag keeps a bounded in-memory ring of launcher diagnostic
// events and persists it as JSON so a crashed session still leaves a
// trail on disk.
package diag

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ringCap bounds the number of retained events. Older events are
// dropped first.
const ringCap = 200

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Event is one diagnostic entry. The JSON field names are part of the
// on-disk format and must not change.
type Event struct {
	TSMs    int64  `json:"ts_ms"`
	Level   string `json:"level"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Ring is a fixed-capacity event log. Safe for concurrent use.
type Ring struct {
	mu     sync.Mutex
	events []Event
	path   string
	now    func() time.Time
}

// Option configures a Ring.
type Option func(*Ring)

// WithPersistPath sets the JSON file the ring is loaded from and
// persisted to after every push.
func WithPersistPath(path string) Option {
	return func(r *Ring) { r.path = path }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Ring) { r.now = now }
}

// NewRing creates a ring. When a persist path is configured, existing
// events are loaded from it; a missing or malformed file starts empty.
func NewRing(opts ...Option) *Ring {
	r := &Ring{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.path != "" {
		r.events = loadEvents(r.path)
	}
	return r
}

// PathForDataDir returns the diagnostics file location for a data
// directory: <dataDir>/runtime/runtime-events.json. An empty dataDir
// falls back to ~/.project-qa-assistant.
func PathForDataDir(dataDir string) string {
	if strings.TrimSpace(dataDir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataDir = filepath.Join(home, ".project-qa-assistant")
	}
	return filepath.Join(dataDir, "runtime", "runtime-events.json")
}

// Push appends an event, trims to capacity and persists. Persistence
// errors are swallowed: diagnostics must never take the launcher down.
func (r *Ring) Push(level, source, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{
		TSMs:    r.now().UnixMilli(),
		Level:   level,
		Source:  source,
		Message: message,
	})
	if len(r.events) > ringCap {
		r.events = r.events[len(r.events)-ringCap:]
	}
	r.persistLocked()
}

// Snapshot returns up to limit most recent events, oldest first.
// limit <= 0 returns everything.
func (r *Ring) Snapshot(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, n)
	copy(out, r.events[len(r.events)-n:])
	return out
}

// Len returns the current number of retained events.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Ring) persistLocked() {
	if r.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return
	}
	b, err := json.Marshal(r.events)
	if err != nil {
		return
	}
	_ = os.WriteFile(r.path, b, 0o644)
}

func loadEvents(path string) []Event {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var events []Event
	if err := json.Unmarshal(b, &events); err != nil {
		return nil
	}
	if len(events) > ringCap {
		events = events[len(events)-ringCap:]
	}
	return events
}
