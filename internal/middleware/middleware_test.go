package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskBoard/internal/middleware"

	"github.com/stretchr/testify/assert"
)

// TestRequestID тестирует проброс и генерацию id запроса
func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "success - generated"},
		{name: "success - kept", incoming: "abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest("GET", "/", nil)
			if tt.incoming != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(middleware.RequestIDHeader))
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, seen)
			}
		})
	}
}

func TestLogging_KeepsStatus(t *testing.T) {
	h := middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("x"))
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

// TestLimiter тестирует окно лимита
func TestLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := middleware.NewLimiter(2, func() time.Time { return now })

	ok, remaining, _ := l.Allow("1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, _, _ = l.Allow("1.1.1.1")
	assert.True(t, ok)

	ok, _, _ = l.Allow("1.1.1.1")
	assert.False(t, ok)

	ok, _, _ = l.Allow("2.2.2.2")
	assert.True(t, ok, "limits are per ip")

	now = now.Add(61 * time.Second)
	ok, _, _ = l.Allow("1.1.1.1")
	assert.True(t, ok, "window resets")
}

func TestLimiter_Middleware(t *testing.T) {
	h := middleware.NewLimiter(1, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/tasks", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
