package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register. Helpers no-op
// until registration succeeds so the launcher works with metrics disabled.
var (
	regOK atomic.Bool

	sidecarStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pqa",
			Subsystem: "sidecar",
			Name:      "starts_total",
			Help:      "Number of sidecar process launches, initial and restart.",
		}, []string{"name"},
	)
	sidecarRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pqa",
			Subsystem: "sidecar",
			Name:      "restarts_total",
			Help:      "Number of automatic sidecar restarts.",
		}, []string{"name"},
	)
	sidecarExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pqa",
			Subsystem: "sidecar",
			Name:      "exits_total",
			Help:      "Number of observed sidecar exits by reason (code or signal).",
		}, []string{"name", "reason"},
	)
	budgetExhaustions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pqa",
			Subsystem: "sidecar",
			Name:      "restart_budget_exhausted_total",
			Help:      "Times a sidecar hit its restart budget and was left stopped.",
		}, []string{"name"},
	)
	sidecarRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pqa",
			Subsystem: "sidecar",
			Name:      "running",
			Help:      "Whether a sidecar currently has a live process (1) or not (0).",
		}, []string{"name"},
	)
)

// Register registers all collectors with r. Safe to call more than once.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{sidecarStarts, sidecarRestarts, sidecarExits, budgetExhaustions, sidecarRunning}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers against the default registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler serves the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Serve runs a standalone metrics endpoint on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func IncStart(name string) {
	if regOK.Load() {
		sidecarStarts.WithLabelValues(name).Inc()
	}
}

func IncRestart(name string) {
	if regOK.Load() {
		sidecarRestarts.WithLabelValues(name).Inc()
	}
}

func IncExit(name, reason string) {
	if regOK.Load() {
		sidecarExits.WithLabelValues(name, reason).Inc()
	}
}

func IncBudgetExhausted(name string) {
	if regOK.Load() {
		budgetExhaustions.WithLabelValues(name).Inc()
	}
}

func SetRunning(name string, up bool) {
	if regOK.Load() {
		v := 0.0
		if up {
			v = 1.0
		}
		sidecarRunning.WithLabelValues(name).Set(v)
	}
}
