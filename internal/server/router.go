// Package server exposes the launcher's control API over HTTP.
// Endpoints:
//
//	GET  {basePath}/status            supervisor status snapshot
//	GET  {basePath}/diagnostics       recent diagnostic events, ?limit=N
//	POST {basePath}/stop              graceful shutdown of all sidecars
//
// The API is loopback-only in practice; the desktop shell queries it the same
// way it used to query in-process runtime commands.
package server

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/project-qa/pqa-runtime/internal/diag"
	"github.com/project-qa/pqa-runtime/internal/plan"
	"github.com/project-qa/pqa-runtime/internal/supervisor"
)

const (
	defaultDiagLimit = 80
	maxDiagLimit     = 300
)

type Router struct {
	sup      *supervisor.Supervisor
	ring     *diag.Ring
	launch   plan.Plan
	basePath string
	now      func() time.Time
}

// NewRouter builds the control API around a running supervisor. ring may be
// nil; /diagnostics then returns an empty list.
func NewRouter(sup *supervisor.Supervisor, ring *diag.Ring, launch plan.Plan, basePath string) *Router {
	return &Router{
		sup:      sup,
		ring:     ring,
		launch:   launch,
		basePath: sanitizeBase(basePath),
		now:      time.Now,
	}
}

// Handler returns a gin-powered http.Handler that can be mounted in any mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/diagnostics", r.handleDiagnostics)
	group.POST("/stop", r.handleStop)
	return g
}

// NewServer starts a standalone control server on addr. The listener is
// bound synchronously so an occupied address fails here rather than inside
// a goroutine nobody observes.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, ring *diag.Ring, launch plan.Plan) (*http.Server, error) {
	r := NewRouter(sup, ring, launch, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() { _ = server.Serve(ln) }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type statusResp struct {
	Mode     string                     `json:"mode"`
	Running  bool                       `json:"running"`
	Ports    plan.Ports                 `json:"ports"`
	Sidecars []supervisor.SidecarStatus `json:"sidecars"`
}

type diagnosticsResp struct {
	GeneratedAtMs int64        `json:"generated_at_ms"`
	Events        []diag.Event `json:"events"`
}

func (r *Router) handleStatus(c *gin.Context) {
	sidecars := r.sup.Status()
	sort.Slice(sidecars, func(i, j int) bool { return sidecars[i].Name < sidecars[j].Name })
	c.JSON(http.StatusOK, statusResp{
		Mode:     r.launch.Mode.String(),
		Running:  r.sup.Running(),
		Ports:    r.launch.Ports,
		Sidecars: sidecars,
	})
}

func (r *Router) handleDiagnostics(c *gin.Context) {
	limit := defaultDiagLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResp{Error: "invalid limit: " + raw})
			return
		}
		limit = clampLimit(n)
	}
	events := []diag.Event{}
	if r.ring != nil {
		events = r.ring.Snapshot(limit)
	}
	c.JSON(http.StatusOK, diagnosticsResp{
		GeneratedAtMs: r.now().UnixMilli(),
		Events:        events,
	})
}

func (r *Router) handleStop(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()
	if err := r.sup.Shutdown(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxDiagLimit {
		return maxDiagLimit
	}
	return n
}
