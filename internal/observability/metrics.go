package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	uploadSizeBuckets      = []float64{10240, 102400, 524288, 1048576, 2097152, 5242880}
)

// Metrics holds all Prometheus metric instruments for the BFF.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Backend proxy metrics
	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsIssuedTotal      prometheus.Counter
	SessionsClearedTotal     *prometheus.CounterVec
	SessionVerifyFailedTotal prometheus.Counter

	// Upload metrics
	UploadsTotal    *prometheus.CounterVec
	UploadSizeBytes *prometheus.HistogramVec

	// Lookup cache metrics
	LookupCacheHitsTotal   *prometheus.CounterVec
	LookupCacheMissesTotal *prometheus.CounterVec

	// System metrics
	DefinitionsLoaded        prometheus.Gauge
	OpenAPIOperationsIndexed prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_backend_requests_total",
			Help: "Total number of training-center API requests.",
		}, []string{"resource", "operation", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_backend_request_duration_seconds",
			Help:    "Training-center API request duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"resource"}),

		SessionsIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_sessions_issued_total",
			Help: "Total admin sessions issued at login.",
		}),
		SessionsClearedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_sessions_cleared_total",
			Help: "Total admin sessions cleared.",
		}, []string{"reason"}),
		SessionVerifyFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_session_verify_failed_total",
			Help: "Total rejected session tokens.",
		}),

		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_uploads_total",
			Help: "Total image uploads.",
		}, []string{"folder", "status"}),
		UploadSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_upload_size_bytes",
			Help:    "Accepted upload size in bytes.",
			Buckets: uploadSizeBuckets,
		}, []string{"folder"}),

		LookupCacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_lookup_cache_hits_total",
			Help: "Total lookup cache hits.",
		}, []string{"lookup_id"}),
		LookupCacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_lookup_cache_misses_total",
			Help: "Total lookup cache misses.",
		}, []string{"lookup_id"}),

		DefinitionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backoffice_definitions_loaded",
			Help: "Number of loaded resource definitions.",
		}),
		OpenAPIOperationsIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backoffice_openapi_operations_indexed",
			Help: "Number of indexed OpenAPI operations.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.SessionsIssuedTotal,
		m.SessionsClearedTotal,
		m.SessionVerifyFailedTotal,
		m.UploadsTotal,
		m.UploadSizeBytes,
		m.LookupCacheHitsTotal,
		m.LookupCacheMissesTotal,
		m.DefinitionsLoaded,
		m.OpenAPIOperationsIndexed,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// RecordBackendRequest records a proxied training-center API request.
func (m *Metrics) RecordBackendRequest(resource, operation, status string, duration time.Duration) {
	m.BackendRequestsTotal.WithLabelValues(resource, operation, status).Inc()
	m.BackendRequestDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordSessionIssued records a successful login.
func (m *Metrics) RecordSessionIssued() {
	m.SessionsIssuedTotal.Inc()
}

// RecordSessionCleared records a session removal. reason is "logout" or
// "unauthorized".
func (m *Metrics) RecordSessionCleared(reason string) {
	m.SessionsClearedTotal.WithLabelValues(reason).Inc()
}

// RecordSessionVerifyFailed records a rejected session token.
func (m *Metrics) RecordSessionVerifyFailed() {
	m.SessionVerifyFailedTotal.Inc()
}

// RecordUpload records an upload attempt. status is "ok", "rejected", or
// "failed".
func (m *Metrics) RecordUpload(folder, status string, size int64) {
	m.UploadsTotal.WithLabelValues(folder, status).Inc()
	if status == "ok" {
		m.UploadSizeBytes.WithLabelValues(folder).Observe(float64(size))
	}
}

// RecordLookupCacheHit records a lookup cache hit.
func (m *Metrics) RecordLookupCacheHit(lookupID string) {
	m.LookupCacheHitsTotal.WithLabelValues(lookupID).Inc()
}

// RecordLookupCacheMiss records a lookup cache miss.
func (m *Metrics) RecordLookupCacheMiss(lookupID string) {
	m.LookupCacheMissesTotal.WithLabelValues(lookupID).Inc()
}

// SetDefinitionsLoaded sets the number of loaded resource definitions.
func (m *Metrics) SetDefinitionsLoaded(count float64) {
	m.DefinitionsLoaded.Set(count)
}

// SetOpenAPIOperationsIndexed sets the number of indexed OpenAPI operations.
func (m *Metrics) SetOpenAPIOperationsIndexed(count float64) {
	m.OpenAPIOperationsIndexed.Set(count)
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
