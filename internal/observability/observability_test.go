package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lkpmandiri/backoffice/internal/config"
)

func TestNewLogger_invalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "shouty"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(-1) { // -1 is debug
		t.Errorf("debug should be disabled at the info fallback level")
	}
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth()(rec, httptest.NewRequest(http.MethodGet, "/ui/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("body = %+v", body)
	}
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error {
	return errors.New("connection refused")
}

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

func TestHandleReady_allChecksPass(t *testing.T) {
	handler := HandleReady(ReadinessChecks{
		DefinitionsLoaded: func() bool { return true },
		OpenAPILoaded:     func() bool { return true },
		SessionStore:      okChecker{},
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ui/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body ReadinessResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != "ready" || len(body.Checks) != 3 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleReady_failingDependency(t *testing.T) {
	handler := HandleReady(ReadinessChecks{
		DefinitionsLoaded: func() bool { return true },
		OpenAPILoaded:     func() bool { return true },
		SessionStore:      failingChecker{},
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ui/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ReadinessResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != "not_ready" || body.Checks["session_store"].Error == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleReady_missingDefinitions(t *testing.T) {
	handler := HandleReady(ReadinessChecks{
		DefinitionsLoaded: func() bool { return false },
		OpenAPILoaded:     func() bool { return true },
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ui/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetrics_recording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)

	m.RecordHTTPRequest(http.MethodGet, "/ui/admin/resources/{resource}", 200, 10*time.Millisecond)
	m.RecordSessionIssued()
	m.RecordSessionCleared("unauthorized")
	m.RecordUpload("testimonials", "ok", 1024)
	m.RecordUpload("testimonials", "rejected", 0)
	m.SetDefinitionsLoaded(7)

	if got := testutil.ToFloat64(m.SessionsIssuedTotal); got != 1 {
		t.Errorf("sessions issued = %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsClearedTotal.WithLabelValues("unauthorized")); got != 1 {
		t.Errorf("sessions cleared = %v", got)
	}
	if got := testutil.ToFloat64(m.UploadsTotal.WithLabelValues("testimonials", "rejected")); got != 1 {
		t.Errorf("rejected uploads = %v", got)
	}
	if got := testutil.ToFloat64(m.DefinitionsLoaded); got != 7 {
		t.Errorf("definitions loaded = %v", got)
	}
}

func TestMetricsMiddleware_usesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)

	handler := m.MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/health", nil))

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ui/health", "418")); got != 1 {
		t.Errorf("requests total = %v", got)
	}
}

func TestInitTracing_disabledIsNoOp(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "backoffice", "test")
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestInitTracing_rejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), config.TracingConfig{
		Enabled:  true,
		Exporter: "carrier-pigeon",
	}, "backoffice", "test")
	if err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
