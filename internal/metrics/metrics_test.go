package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewHTTP(reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/notfound", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/test", "/notfound"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "404")))
	require.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestNewHTTP_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewHTTP(reg)
	require.NoError(t, err)
	_, err = NewHTTP(reg)
	require.Error(t, err)
}

func TestHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewHTTP(reg)
	require.NoError(t, err)
	m.Observe("GET", "/x", 200, 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "markercheck_http_requests_total")
}
