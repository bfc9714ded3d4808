package restapi

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/stretchr/testify/assert"
)

const uuidPattern = `^[0-9a-f-]{36}$`

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		preserve bool
	}{
		{"missing", "", false},
		{"valid", "my-custom-trace-id-123", true},
		{"dotted with colon", "edge:1.2_3", true},
		{"exactly 128 characters", strings.Repeat("a", 128), true},
		{"too long", strings.Repeat("a", 129), false},
		{"invalid characters", "bad-id-<script>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
			if tt.preserve {
				assert.Equal(t, tt.header, seen)
			} else {
				assert.Regexp(t, uuidPattern, seen)
			}
		})
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestRequestIDMiddleware_ContextLogger(t *testing.T) {
	var logBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&logBuf, nil))

	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info("handled")
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil)
	req = req.WithContext(logging.WithLogger(req.Context(), base))
	req.Header.Set("X-Request-ID", "ctx-logger-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, logBuf.String(), `"request_id":"ctx-logger-42"`)
}

func TestRequestIDLoggingIntegration(t *testing.T) {
	var logBuf bytes.Buffer
	testLogger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := RequestIDMiddleware(NewRequestLoggingMiddleware(testLogger)(finalHandler))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/test", nil)
	req.Header.Set("X-Request-ID", "integration-test-id-999")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, `"request_id":"integration-test-id-999"`)
	assert.Contains(t, logOutput, `"status":418`)
}
