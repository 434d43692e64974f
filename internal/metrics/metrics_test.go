package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTelemetryIngested()
	c.RecordTelemetryIngested()
	c.RecordAudioIngested()
	c.RecordRetentionEviction("watch_data", 3)
	c.RecordAuthFailure("unauthorized")
	c.RecordClassifySuccess()
	c.RecordClassifyFailure()
	c.RecordClassifyLatency(200 * time.Millisecond)

	if got := testutil.ToFloat64(c.telemetryIngested); got != 2 {
		t.Errorf("telemetryIngested = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.audioIngested); got != 1 {
		t.Errorf("audioIngested = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.retentionEvictions.WithLabelValues("watch_data")); got != 3 {
		t.Errorf("retentionEvictions = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.authFailures.WithLabelValues("unauthorized")); got != 1 {
		t.Errorf("authFailures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.classifySuccess); got != 1 {
		t.Errorf("classifySuccess = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.classifyFail); got != 1 {
		t.Errorf("classifyFail = %v, want 1", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordTelemetryIngested()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "mimamori_telemetry_ingested_total 1") {
		t.Errorf("テレメトリカウンタが出力に含まれない:\n%s", body)
	}
}
