package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/visaeval/visaeval-backend/pkg/httputil"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_evaluations_total",
			Help: "Total number of eligibility evaluations",
		},
		[]string{"country", "visa_type", "passing"},
	)

	EvaluationScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eligibility_evaluation_score",
			Help:    "Distribution of normalized evaluation scores",
			Buckets: prometheus.LinearBuckets(0, 10, 10),
		},
		[]string{"country"},
	)

	ComparisonsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eligibility_comparisons_total",
			Help: "Total number of cross-country comparisons",
		},
	)

	ComparisonPairsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eligibility_comparison_pairs_skipped_total",
			Help: "Visa pairs skipped during comparisons because scoring failed",
		},
	)

	ExtractionJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_extraction_jobs_total",
			Help: "Document extraction jobs by type, processor and outcome",
		},
		[]string{"document_type", "processor", "status"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "document_extraction_duration_seconds",
			Help: "Duration of document extraction in seconds",
		},
		[]string{"document_type"},
	)

	TravelCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_requirement_cache_lookups_total",
			Help: "Travel requirement cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency labelled by the chi route
// pattern, which keeps label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &httputil.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.Status)).Inc()
		HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveEvaluation records one scored evaluation.
func ObserveEvaluation(country, visaType string, normalized float64, passing bool) {
	EvaluationsTotal.WithLabelValues(country, visaType, strconv.FormatBool(passing)).Inc()
	EvaluationScore.WithLabelValues(country).Observe(normalized)
}
