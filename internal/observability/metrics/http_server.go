package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal       *prometheus.CounterVec
	answerDuration     *prometheus.HistogramVec
	citationsPerAnswer *prometheus.HistogramVec
	indexBuildsTotal   *prometheus.CounterVec
	indexBuildDuration prometheus.Histogram
	evaluationFailures *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiirag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fiirag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fiirag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiirag",
			Subsystem: "pipeline",
			Name:      "answers_total",
			Help:      "Total successful answers by pipeline mode.",
		},
		[]string{"service", "mode"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fiirag",
			Subsystem: "pipeline",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer latency in seconds by pipeline mode.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	citationsPerAnswer := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fiirag",
			Subsystem: "pipeline",
			Name:      "citations_per_answer",
			Help:      "Distribution of citations attached per grounded answer.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
		},
		[]string{"service"},
	)
	indexBuildsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiirag",
			Subsystem: "index",
			Name:      "builds_total",
			Help:      "Total index builds by outcome.",
		},
		[]string{"service", "status"},
	)
	indexBuildDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fiirag",
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Corpus ingestion and embedding duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	evaluationFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiirag",
			Subsystem: "pipeline",
			Name:      "evaluation_failures_total",
			Help:      "Total evaluated requests that returned an answer without scores.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerDuration,
		citationsPerAnswer,
		indexBuildsTotal,
		indexBuildDuration,
		evaluationFailures,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		answersTotal:       answersTotal,
		answerDuration:     answerDuration,
		citationsPerAnswer: citationsPerAnswer,
		indexBuildsTotal:   indexBuildsTotal,
		indexBuildDuration: indexBuildDuration,
		evaluationFailures: evaluationFailures,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordAnswer(service, mode string, citations int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.answersTotal.WithLabelValues(service, mode).Inc()
	m.answerDuration.WithLabelValues(service, mode).Observe(duration.Seconds())
	if mode != "llm" {
		m.citationsPerAnswer.WithLabelValues(service).Observe(float64(citations))
	}
}

func (m *HTTPServerMetrics) RecordIndexBuild(service string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.indexBuildsTotal.WithLabelValues(service, status).Inc()
	if err == nil {
		m.indexBuildDuration.Observe(duration.Seconds())
	}
}

func (m *HTTPServerMetrics) RecordEvaluationFailure(service string) {
	m.evaluationFailures.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
