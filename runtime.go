// Package pqaruntime is the public facade of the desktop runtime launcher:
// resolve a configuration, build a launch plan, run it under a supervisor.
package pqaruntime

import (
	"context"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/project-qa/pqa-runtime/internal/config"
	"github.com/project-qa/pqa-runtime/internal/diag"
	"github.com/project-qa/pqa-runtime/internal/history"
	"github.com/project-qa/pqa-runtime/internal/history/factory"
	"github.com/project-qa/pqa-runtime/internal/metrics"
	"github.com/project-qa/pqa-runtime/internal/plan"
	iapi "github.com/project-qa/pqa-runtime/internal/server"
	"github.com/project-qa/pqa-runtime/internal/supervisor"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Mode = plan.Mode

const (
	ModeLocalFullstack = plan.ModeLocalFullstack
	ModeRemoteSlim     = plan.ModeRemoteSlim
)

type Plan = plan.Plan

type SidecarSpec = plan.SidecarSpec

type PlanConfig = plan.Config

type Profile = config.Profile

type SidecarStatus = supervisor.SidecarStatus

type HistorySink = history.Sink

type DiagRing = diag.Ring

// Supervisor is a thin facade over internal/supervisor.Supervisor.
type Supervisor struct{ inner *supervisor.Supervisor }

type SupervisorOptions = supervisor.Options

func NormalizeMode(raw string) Mode { return plan.NormalizeMode(raw) }

// BuildPlan maps a resolved configuration to a launch plan.
func BuildPlan(cfg PlanConfig) Plan { return plan.Build(cfg) }

// ResolveConfig applies flag > environment > profile > default precedence.
func ResolveConfig(opts config.Options) PlanConfig { return config.Resolve(opts) }

// LoadProfile reads a runtime profile JSON. Any failure yields an empty
// profile rather than an error.
func LoadProfile(path string) Profile { return config.LoadProfile(path) }

func NewSupervisor(opts SupervisorOptions) *Supervisor {
	return &Supervisor{inner: supervisor.New(opts)}
}

func (s *Supervisor) Start(p Plan) error                 { return s.inner.Start(p) }
func (s *Supervisor) Shutdown(ctx context.Context) error { return s.inner.Shutdown(ctx) }
func (s *Supervisor) Status() []SidecarStatus            { return s.inner.Status() }
func (s *Supervisor) Running() bool                      { return s.inner.Running() }

// DryRun writes the plan as JSON without spawning anything.
func DryRun(w io.Writer, p Plan) error { return supervisor.DryRun(w, p) }

// NewHistorySink builds a lifecycle event sink from a DSN
// (sqlite, postgres, clickhouse, opensearch).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewDiagRing creates a diagnostics ring persisted under dataDir.
func NewDiagRing(dataDir string) *DiagRing {
	return diag.NewRing(diag.WithPersistPath(diag.PathForDataDir(dataDir)))
}

// NewHTTPServer starts the control API for the given supervisor.
func NewHTTPServer(addr, basePath string, s *Supervisor, ring *DiagRing, p Plan) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.inner, ring, p)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.RegisterDefault() }

// ServeMetrics runs a /metrics endpoint on addr in the caller goroutine.
func ServeMetrics(addr string) error { return metrics.Serve(addr) }
