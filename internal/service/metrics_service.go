package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	stepSaves       *prometheus.CounterVec
	submissions     prometheus.Counter
	approvals       prometheus.Counter
	psgcFetches     *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	stepSaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_step_saves_total",
		Help: "Per-step wizard saves, including idempotent resumes",
	}, []string{"step", "outcome"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_submissions_total",
		Help: "Completed enrollment submissions",
	})

	approvals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_approvals_total",
		Help: "Approved registrations",
	})

	psgcFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "psgc_fetches_total",
		Help: "Outbound PSGC lookups by result",
	}, []string{"result"})

	uploadBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "document_upload_bytes",
		Help:    "Stored document sizes after compression",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, stepSaves, submissions, approvals, psgcFetches, uploadBytes, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		stepSaves:       stepSaves,
		submissions:     submissions,
		approvals:       approvals,
		psgcFetches:     psgcFetches,
		uploadBytes:     uploadBytes,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordStepSave tracks wizard progress. outcome is "saved", "resumed" or
// "rejected".
func (m *MetricsService) RecordStepSave(step, outcome string) {
	if m == nil {
		return
	}
	m.stepSaves.WithLabelValues(step, outcome).Inc()
}

// RecordSubmission counts a finalized enrollment.
func (m *MetricsService) RecordSubmission() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordApproval counts an approved registration.
func (m *MetricsService) RecordApproval() {
	if m == nil {
		return
	}
	m.approvals.Inc()
}

// RecordPSGCFetch tracks outbound address lookups. result is "ok" or "error".
func (m *MetricsService) RecordPSGCFetch(result string) {
	if m == nil {
		return
	}
	m.psgcFetches.WithLabelValues(result).Inc()
}

// RecordUploadSize observes the stored size of a compressed document.
func (m *MetricsService) RecordUploadSize(bytes int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Observe(float64(bytes))
}
