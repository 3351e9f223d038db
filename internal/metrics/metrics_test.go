package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/litescript/ls-constellations/internal/resolver"
)

// Metrics must satisfy the resolver's recorder hook.
var _ resolver.Recorder = (*Metrics)(nil)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveResolution(resolver.OutcomeResolved)
	m.ObserveResolution(resolver.OutcomeResolved)
	m.ObserveResolution(resolver.OutcomeFailed)
	m.ObserveDistanceSource(resolver.DistanceParallax.String())

	if got := testutil.ToFloat64(m.resolutions.WithLabelValues("resolved")); got != 2 {
		t.Errorf("resolved = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.resolutions.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.distanceSources.WithLabelValues("parallax")); got != 1 {
		t.Errorf("parallax = %v, want 1", got)
	}
}

func TestRecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("/api/constellations", 200, 15*time.Millisecond)
	m.RecordRequest("/api/constellations", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/constellations", "200")); got != 1 {
		t.Errorf("200 count = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.requestDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveResolution(resolver.OutcomeUnresolved)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`lsc_resolutions_total{outcome="unresolved"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveResolution("resolved")
	if got := testutil.ToFloat64(b.resolutions.WithLabelValues("resolved")); got != 0 {
		t.Errorf("second instance saw %v resolutions", got)
	}
}
