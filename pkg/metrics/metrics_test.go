package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/evaluations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/evaluations/{id}", http.MethodGet, "404"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/evaluations/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/evaluations/def", nil))

	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("/evaluations/{id}", http.MethodGet, "404"))
	assert.Equal(t, before+2, after)
}

func TestObserveEvaluation(t *testing.T) {
	counter := EvaluationsTotal.WithLabelValues("Germany", "EU Blue Card", "true")
	before := testutil.ToFloat64(counter)

	ObserveEvaluation("Germany", "EU Blue Card", 84.75, true)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	ComparisonsTotal.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "eligibility_comparisons_total"))
}
