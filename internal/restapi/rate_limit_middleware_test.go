package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/clock"
	"github.com/MBL11/transit-app-sub002/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, target, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware_ExceedsBurst(t *testing.T) {
	c := clock.NewMockClock(time.Date(2024, 6, 18, 8, 0, 0, 0, time.UTC))
	rl := NewRateLimitMiddleware(2, time.Second, nil, c)
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "/x?key=k1", "").Code)
	}

	rec := doRequest(handler, "/x?key=k1", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	var model models.ResponseModel
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&model))
	assert.Equal(t, http.StatusTooManyRequests, model.Code)
	assert.Equal(t, c.NowUnixMilli(), model.CurrentTime)
}

func TestRateLimitMiddleware_SeparateBuckets(t *testing.T) {
	rl := NewRateLimitMiddleware(1, time.Minute, nil, nil)
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(handler, "/x?key=k1", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "/x?key=k2", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/x?key=k1", "").Code)

	assert.Equal(t, http.StatusOK, doRequest(handler, "/x", "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "/x", "10.0.0.2:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/x", "10.0.0.1:5678").Code,
		"keyless requests share a bucket per host")
	assert.Equal(t, 4, rl.limiterCount())
}

func TestRateLimitMiddleware_ExemptKeys(t *testing.T) {
	rl := NewRateLimitMiddleware(1, time.Minute, []string{" ops "}, nil)
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "/x?key=ops", "").Code)
	}
	assert.Equal(t, 0, rl.limiterCount())
}

func TestRateLimitMiddleware_Limits(t *testing.T) {
	t.Run("negative rate disables limiting", func(t *testing.T) {
		rl := NewRateLimitMiddleware(-1, time.Second, nil, nil)
		defer rl.Stop()
		handler := rl.Handler()(okHandler())
		for i := 0; i < 20; i++ {
			assert.Equal(t, http.StatusOK, doRequest(handler, "/x?key=k", "").Code)
		}
	})

	t.Run("zero rate rejects everything", func(t *testing.T) {
		rl := NewRateLimitMiddleware(0, time.Second, nil, nil)
		defer rl.Stop()
		rec := doRequest(rl.Handler()(okHandler()), "/x?key=k", "")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	})

	t.Run("slow rate retries after the refill interval", func(t *testing.T) {
		rl := NewRateLimitMiddleware(1, 10*time.Second, nil, nil)
		defer rl.Stop()
		assert.InDelta(t, float64(10*time.Second), float64(rl.retryAfter()), float64(time.Millisecond))
	})
}

func TestRateLimitMiddleware_CleanupEvictsIdleLimiters(t *testing.T) {
	c := clock.NewMockClock(time.Date(2024, 6, 18, 8, 0, 0, 0, time.UTC))
	rl := NewRateLimitMiddleware(5, time.Second, nil, c)
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	doRequest(handler, "/x?key=idle", "")
	c.Advance(limiterIdleThreshold - time.Minute)
	doRequest(handler, "/x?key=active", "")
	require.Equal(t, 2, rl.limiterCount())

	c.Advance(2 * time.Minute)
	rl.cleanupOnce()

	assert.Equal(t, 1, rl.limiterCount())
	rl.mu.RLock()
	_, kept := rl.limiters["key:active"]
	rl.mu.RUnlock()
	assert.True(t, kept)
}

func TestRateLimitMiddleware_StopTwice(t *testing.T) {
	rl := NewRateLimitMiddleware(1, time.Second, nil, nil)
	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}

func TestRateLimitOnProtectedRoute(t *testing.T) {
	api := createTestApi(t)
	api.rateLimiter.Stop()
	api.rateLimiter = NewRateLimitMiddleware(1, time.Minute, nil, api.Clock)

	mux := http.NewServeMux()
	api.SetRoutes(mux)

	assert.Equal(t, http.StatusOK, doRequest(mux, "/api/where/config.json?key=TEST", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(mux, "/api/where/config.json?key=TEST", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(mux, "/healthz", "").Code, "health is not rate limited")
}
