package restapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MBL11/transit-app-sub002/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler_NilMetrics(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	MetricsHandler(nil)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsHandler_LabelsByPattern(t *testing.T) {
	m := metrics.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/where/stops-search.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("found"))
	})
	handler := MetricsHandler(m)(mux)

	for _, path := range []string{"/api/where/stops-search.json?input=a", "/api/where/stops-search.json?input=b", "/nope"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues("GET", "GET /api/where/stops-search.json", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestMetricsHandler_VariousStatusCodes(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"BadRequest", http.StatusBadRequest},
		{"NotFound", http.StatusNotFound},
		{"TooManyRequests", http.StatusTooManyRequests},
		{"InternalServerError", http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New()
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			})

			rec := httptest.NewRecorder()
			MetricsHandler(m)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tc.statusCode, rec.Code)
			assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestsTotal))
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	t.Run("defaults to 200", func(t *testing.T) {
		w := newStatusRecorder(httptest.NewRecorder())
		_, _ = w.Write([]byte("body"))
		assert.Equal(t, http.StatusOK, w.statusCode)
	})

	t.Run("keeps the first status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		w := newStatusRecorder(rec)
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusInternalServerError)

		assert.Equal(t, http.StatusNotFound, w.statusCode)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unwraps", func(t *testing.T) {
		rec := httptest.NewRecorder()
		assert.Same(t, rec, newStatusRecorder(rec).Unwrap())
	})
}

func TestMetricsEndpoint(t *testing.T) {
	api := createTestApi(t)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(MetricsHandler(api.Metrics)(mux))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/where/config.json?key=TEST")
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "transit_http_requests_total")
	assert.Contains(t, string(body), `path="GET /api/where/config.json"`)
}
