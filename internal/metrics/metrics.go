// Package metrics defines the Prometheus collectors for index builds and
// search traffic, and a small listener that exposes them for scraping.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	DocumentsIndexed prometheus.Counter
	DocumentsSkipped prometheus.Counter
	SearchQueries    prometheus.Counter
	SearchDuration   prometheus.Histogram
	SearchResults    prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		DocumentsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsearch_documents_indexed_total",
			Help: "Documents tokenized into the index.",
		}),
		DocumentsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsearch_documents_skipped_total",
			Help: "Documents skipped because their text could not be extracted.",
		}),
		SearchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsearch_search_queries_total",
			Help: "Search queries answered.",
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docsearch_search_duration_seconds",
			Help:    "Time spent ranking a query.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docsearch_search_results",
			Help:    "Number of results returned per query.",
			Buckets: []float64{0, 1, 5, 10, 20},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docsearch_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		}, []string{"method", "path", "status"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.DocumentsIndexed,
		m.DocumentsSkipped,
		m.SearchQueries,
		m.SearchDuration,
		m.SearchResults,
		m.HTTPRequests,
	)
	return m
}

func (m *Metrics) DocumentIndexed() {
	m.DocumentsIndexed.Inc()
}

func (m *Metrics) DocumentSkipped() {
	m.DocumentsSkipped.Inc()
}

// ObserveSearch records one answered query.
func (m *Metrics) ObserveSearch(elapsed time.Duration, results int) {
	m.SearchQueries.Inc()
	m.SearchDuration.Observe(elapsed.Seconds())
	m.SearchResults.Observe(float64(results))
}

// RegisterCache exposes hit and miss counters read from a query cache.
func (m *Metrics) RegisterCache(reg prometheus.Registerer, hits, misses func() uint64) {
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "docsearch_search_cache_hits_total",
			Help: "Queries answered from the result cache.",
		}, func() float64 { return float64(hits()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "docsearch_search_cache_misses_total",
			Help: "Queries that had to be ranked.",
		}, func() float64 { return float64(misses()) }),
	)
}

// Middleware counts every request passing through next. Requests are
// labelled with the ServeMux pattern that handled them, never the raw URL.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.HTTPRequests.WithLabelValues(r.Method, routeLabel(r), strconv.Itoa(sw.status)).Inc()
	})
}

// routeLabel bounds the path label to the set of registered routes.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "other"
	}
	return r.Pattern
}

// Handler serves the registered collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr in the background and returns a
// function that shuts the listener down.
func (m *Metrics) StartServer(addr string, logger *logrus.Entry) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server error")
		}
	}()

	return server.Shutdown
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}
