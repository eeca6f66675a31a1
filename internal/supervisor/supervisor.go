// Package supervisor spawns the sidecar processes of a launch plan, watches
// their exits and restarts crashed ones within a bounded budget.
package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/project-qa/pqa-runtime/internal/diag"
	"github.com/project-qa/pqa-runtime/internal/env"
	"github.com/project-qa/pqa-runtime/internal/history"
	"github.com/project-qa/pqa-runtime/internal/metrics"
	"github.com/project-qa/pqa-runtime/internal/plan"
	"github.com/project-qa/pqa-runtime/internal/sidecarlog"
)

const (
	DefaultRestartDelay  = 1200 * time.Millisecond
	DefaultMaxRestarts   = 6
	DefaultRestartWindow = 90 * time.Second
)

// Options configures a Supervisor. Zero values pick the defaults above;
// AutoRestart defaults to on via New.
type Options struct {
	AutoRestart   bool
	RestartDelay  time.Duration
	MaxRestarts   int
	RestartWindow time.Duration

	Log        *slog.Logger
	SidecarLog sidecarlog.Config
	History    history.Sink // optional lifecycle event sink
	Diag       *diag.Ring   // optional diagnostics ring

	Environ *env.Env
	Clock   func() time.Time
}

// SidecarStatus is a point-in-time view of one sidecar.
type SidecarStatus struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	Restarts  int       `json:"restarts"`
	StartedAt time.Time `json:"started_at,omitempty"`
	LastExit  string    `json:"last_exit,omitempty"`
}

// exitEvent travels from a watcher goroutine (or a failed spawn) to the
// event loop. gen guards against a stale watcher reporting after a restart.
type exitEvent struct {
	name   string
	gen    uint64
	pid    int
	detail string
	code   int // -1 when killed by signal or never started
}

type handle struct {
	spec      plan.SidecarSpec
	gen       uint64
	pid       int
	running   bool
	restarts  int
	startedAt time.Time
	lastExit  string
	outW      io.WriteCloser
	errW      io.WriteCloser
}

// Supervisor runs one launch plan. All exit handling is serialized through a
// single event-loop goroutine; public methods only touch state under mu.
type Supervisor struct {
	opts Options

	mu           sync.Mutex
	handles      map[string]*handle
	budgets      map[string]*restartBudget
	timers       map[string]*time.Timer
	shuttingDown bool
	started      bool

	events   chan exitEvent
	watchers sync.WaitGroup
	loopDone chan struct{}
}

// New creates a supervisor with auto-restart enabled and defaults filled in.
func New(opts Options) *Supervisor {
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	if opts.MaxRestarts <= 0 {
		opts.MaxRestarts = DefaultMaxRestarts
	}
	if opts.RestartWindow <= 0 {
		opts.RestartWindow = DefaultRestartWindow
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Environ == nil {
		opts.Environ = env.New()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Supervisor{
		opts:     opts,
		handles:  make(map[string]*handle),
		budgets:  make(map[string]*restartBudget),
		timers:   make(map[string]*time.Timer),
		events:   make(chan exitEvent, 16),
		loopDone: make(chan struct{}),
	}
}

// Start validates the plan and spawns every sidecar in order. A sidecar that
// fails to spawn is reported through the normal exit path, so the restart
// policy applies to it like to any crash; Start itself only fails on an
// invalid plan or a second call.
func (s *Supervisor) Start(p plan.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("supervisor already started")
	}
	s.started = true
	for _, spec := range p.Specs {
		s.handles[spec.Name] = &handle{spec: spec}
		s.budgets[spec.Name] = newRestartBudget(s.opts.MaxRestarts, s.opts.RestartWindow)
	}
	s.mu.Unlock()

	go s.loop()

	for _, spec := range p.Specs {
		s.mu.Lock()
		s.spawnLocked(s.handles[spec.Name], false)
		s.mu.Unlock()
	}
	return nil
}

// spawnLocked launches one sidecar and registers its watcher. Failures are
// converted into a synthetic exit event so the caller never branches.
func (s *Supervisor) spawnLocked(h *handle, isRestart bool) {
	h.gen++
	gen := h.gen
	spec := h.spec

	for _, dir := range spec.EnsureDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.opts.Log.Error("create sidecar dir", "sidecar", spec.Name, "dir", dir, "error", err)
		}
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	cmd.Env = s.opts.Environ.Merge(spec.Env)
	configureSysProcAttr(cmd)

	s.closeLogsLocked(h)
	h.outW, h.errW = s.opts.SidecarLog.Writers(spec.Name)
	if h.outW != nil {
		cmd.Stdout = h.outW
	}
	if h.errW != nil {
		cmd.Stderr = h.errW
	}

	if err := cmd.Start(); err != nil {
		s.opts.Log.Error("spawn sidecar", "sidecar", spec.Name, "command", spec.Command, "error", err)
		s.pushDiag(diag.LevelError, spec.Name, "spawn failed: "+err.Error())
		ev := exitEvent{name: spec.Name, gen: gen, detail: "spawn failed: " + err.Error(), code: -1}
		s.watchers.Add(1)
		go func() {
			defer s.watchers.Done()
			s.events <- ev
		}()
		return
	}

	h.pid = cmd.Process.Pid
	h.running = true
	h.startedAt = s.opts.Clock()
	if isRestart {
		h.restarts++
	}

	s.opts.Log.Info("sidecar started", "sidecar", spec.Name, "pid", h.pid, "restart", isRestart)
	s.pushDiag(diag.LevelInfo, spec.Name, fmt.Sprintf("started pid %d", h.pid))
	metrics.IncStart(spec.Name)
	metrics.SetRunning(spec.Name, true)
	s.record(history.EventStart, spec.Name, h.pid, "")
	if isRestart {
		metrics.IncRestart(spec.Name)
		s.record(history.EventRestart, spec.Name, h.pid, "")
	}

	s.watchers.Add(1)
	go func(pid int) {
		defer s.watchers.Done()
		err := cmd.Wait()
		s.events <- exitEvent{
			name:   spec.Name,
			gen:    gen,
			pid:    pid,
			detail: describeExit(cmd.ProcessState, err),
			code:   exitCode(cmd.ProcessState),
		}
	}(h.pid)
}

// loop serializes exit processing. It stops once Shutdown has drained all
// watchers and closed the channel.
func (s *Supervisor) loop() {
	defer close(s.loopDone)
	for ev := range s.events {
		s.handleExit(ev)
	}
}

func (s *Supervisor) handleExit(ev exitEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[ev.name]
	if !ok || ev.gen != h.gen {
		// A watcher from before the last restart; its exit was already handled.
		return
	}
	h.running = false
	h.lastExit = ev.detail
	metrics.SetRunning(ev.name, false)
	metrics.IncExit(ev.name, exitReasonLabel(ev))
	s.record(history.EventExit, ev.name, ev.pid, ev.detail)

	if s.shuttingDown {
		s.opts.Log.Info("sidecar exited during shutdown", "sidecar", ev.name, "detail", ev.detail)
		return
	}

	level := diag.LevelWarn
	if ev.code == 0 {
		level = diag.LevelInfo
	}
	s.opts.Log.Warn("sidecar exited", "sidecar", ev.name, "detail", ev.detail)
	s.pushDiag(level, ev.name, "exited: "+ev.detail)

	if !s.opts.AutoRestart {
		return
	}
	if !s.budgets[ev.name].allow(s.opts.Clock()) {
		s.opts.Log.Error("restart budget exhausted, leaving sidecar stopped", "sidecar", ev.name)
		s.pushDiag(diag.LevelError, ev.name, "restart budget exhausted")
		metrics.IncBudgetExhausted(ev.name)
		s.record(history.EventBudgetExhausted, ev.name, ev.pid, ev.detail)
		return
	}

	name := ev.name
	s.timers[name] = time.AfterFunc(s.opts.RestartDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.timers, name)
		if s.shuttingDown {
			return
		}
		if h := s.handles[name]; h != nil && !h.running {
			s.spawnLocked(h, true)
		}
	})
}

// Shutdown cancels pending restarts, terminates all running sidecars and
// waits for their exits. The context bounds the graceful wait; leftovers are
// force-killed before return. Safe to call more than once; later calls wait
// for the first to finish.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	if s.shuttingDown {
		s.mu.Unlock()
		select {
		case <-s.loopDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.shuttingDown = true
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	for _, h := range s.handles {
		if h.running {
			if err := terminateTree(h.pid); err != nil {
				s.opts.Log.Warn("terminate sidecar", "sidecar", h.spec.Name, "pid", h.pid, "error", err)
			}
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.watchers.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		for _, h := range s.handles {
			if h.running {
				_ = killTree(h.pid)
			}
		}
		s.mu.Unlock()
		<-done
		err = ctx.Err()
	}

	close(s.events)
	<-s.loopDone

	s.mu.Lock()
	for _, h := range s.handles {
		s.closeLogsLocked(h)
	}
	s.mu.Unlock()

	s.record(history.EventShutdown, "", 0, "")
	s.pushDiag(diag.LevelInfo, "supervisor", "shutdown complete")
	return err
}

// Status reports a snapshot of every sidecar. Map iteration order, so
// callers sort if they need a stable listing.
func (s *Supervisor) Status() []SidecarStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SidecarStatus, 0, len(s.handles))
	for _, h := range s.handles {
		st := SidecarStatus{
			Name:     h.spec.Name,
			Running:  h.running,
			Restarts: h.restarts,
			LastExit: h.lastExit,
		}
		if h.running {
			st.PID = h.pid
			st.StartedAt = h.startedAt
		}
		out = append(out, st)
	}
	return out
}

// Running reports whether any sidecar currently has a live process.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handles {
		if h.running {
			return true
		}
	}
	return false
}

func (s *Supervisor) closeLogsLocked(h *handle) {
	if h.outW != nil {
		_ = h.outW.Close()
		h.outW = nil
	}
	if h.errW != nil {
		_ = h.errW.Close()
		h.errW = nil
	}
}

func (s *Supervisor) pushDiag(level, source, message string) {
	if s.opts.Diag != nil {
		s.opts.Diag.Push(level, source, message)
	}
}

func (s *Supervisor) record(typ history.EventType, sidecar string, pid int, detail string) {
	if s.opts.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := history.Event{Type: typ, OccurredAt: s.opts.Clock().UTC(), Sidecar: sidecar, PID: pid, Detail: detail}
	if err := s.opts.History.Send(ctx, e); err != nil {
		s.opts.Log.Warn("history sink send", "event", string(typ), "error", err)
	}
}

// DryRun writes the plan as indented JSON without spawning anything.
func DryRun(w io.Writer, p plan.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func describeExit(state *os.ProcessState, err error) string {
	if state == nil {
		if err != nil {
			return err.Error()
		}
		return "exited"
	}
	if code := state.ExitCode(); code >= 0 {
		return fmt.Sprintf("exit code %d", code)
	}
	// Killed by a signal; ProcessState.String renders "signal: terminated".
	return state.String()
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}

func exitReasonLabel(ev exitEvent) string {
	switch {
	case ev.pid == 0:
		return "start_failed"
	case ev.code >= 0:
		return "code"
	default:
		return "signal"
	}
}
