package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"

	authcore "github.com/authcore-dev/authcore"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderExposition(t *testing.T) {
	src := &fakeSource{
		snapshot: authcore.MetricsSnapshot{Counters: map[authcore.MetricID]uint64{
			authcore.MetricLoginSuccess:   42,
			authcore.MetricRefreshFailure: 3,
		}},
		dropped: 7,
	}
	out := NewPrometheusExporterFromSource(src).Render()

	for _, want := range []string{
		"# HELP authcore_login_success_total",
		"# TYPE authcore_login_success_total counter",
		"authcore_login_success_total 42\n",
		"authcore_refresh_failure_total 3\n",
		"authcore_login_failure_total 0\n",
		"authcore_audit_dropped_total 7\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptySource(t *testing.T) {
	src := &fakeSource{snapshot: authcore.MetricsSnapshot{}}
	if out := NewPrometheusExporterFromSource(src).Render(); out != "" {
		t.Fatalf("expected empty exposition, got %q", out)
	}

	var nilExporter *PrometheusExporter
	if out := nilExporter.Render(); out != "" {
		t.Fatalf("nil exporter should render nothing, got %q", out)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	src := &fakeSource{
		snapshot: authcore.MetricsSnapshot{Counters: map[authcore.MetricID]uint64{
			authcore.MetricLoginSuccess: 1,
		}},
	}
	rec := httptest.NewRecorder()
	NewPrometheusExporterFromSource(src).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "authcore_login_success_total 1") {
		t.Fatalf("body missing counter:\n%s", rec.Body.String())
	}
}
