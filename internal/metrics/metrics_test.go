package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterAndRecord(t *testing.T) {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Second registration is a no-op.
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	IncStart("web")
	IncRestart("web")
	IncExit("web", "signal:terminated")
	IncBudgetExhausted("backend")
	SetRunning("web", true)
	SetRunning("web", false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)
	body := rec.Body.String()

	for _, want := range []string{
		`pqa_sidecar_starts_total{name="web"} 1`,
		`pqa_sidecar_restarts_total{name="web"} 1`,
		`pqa_sidecar_exits_total{name="web",reason="signal:terminated"} 1`,
		`pqa_sidecar_restart_budget_exhausted_total{name="backend"} 1`,
		`pqa_sidecar_running{name="web"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
