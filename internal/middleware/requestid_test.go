package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	t.Run("generates a uuid when no header is present", func(t *testing.T) {
		var seen string
		handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, w.Header().Get(HeaderXRequestID))
	})

	t.Run("preserves a valid incoming id", func(t *testing.T) {
		var seen string
		handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderXRequestID, "trace-abc_123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "trace-abc_123", seen)
		assert.Equal(t, "trace-abc_123", w.Header().Get(HeaderXRequestID))
	})

	t.Run("replaces an invalid incoming id", func(t *testing.T) {
		tests := []struct {
			name string
			id   string
		}{
			{"disallowed characters", "bad id with spaces"},
			{"injection attempt", "abc\r\nSet-Cookie: x"},
			{"too long", strings.Repeat("a", 200)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var seen string
				handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					seen = GetRequestID(r.Context())
				}))

				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set(HeaderXRequestID, tt.id)
				handler.ServeHTTP(httptest.NewRecorder(), req)

				assert.NotEqual(t, tt.id, seen)
				_, err := uuid.Parse(seen)
				assert.NoError(t, err)
			})
		}
	})
}

func TestClientIP(t *testing.T) {
	run := func(trustProxy bool, remoteAddr string, headers map[string]string) string {
		var seen string
		handler := ClientIP(trustProxy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetClientIP(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		return seen
	}

	t.Run("uses remote addr without proxy trust", func(t *testing.T) {
		ip := run(false, "192.0.2.10:54321", map[string]string{
			HeaderXForwardedFor: "10.0.0.1",
		})
		assert.Equal(t, "192.0.2.10", ip)
	})

	t.Run("honors the first forwarded-for entry when trusted", func(t *testing.T) {
		ip := run(true, "192.0.2.10:54321", map[string]string{
			HeaderXForwardedFor: "203.0.113.7, 10.0.0.1",
		})
		assert.Equal(t, "203.0.113.7", ip)
	})

	t.Run("falls back to real-ip header", func(t *testing.T) {
		ip := run(true, "192.0.2.10:54321", map[string]string{
			HeaderXRealIP: "203.0.113.9",
		})
		assert.Equal(t, "203.0.113.9", ip)
	})

	t.Run("falls back to remote addr when no headers", func(t *testing.T) {
		ip := run(true, "192.0.2.10:54321", nil)
		assert.Equal(t, "192.0.2.10", ip)
	})

	t.Run("handles remote addr without port", func(t *testing.T) {
		ip := run(false, "192.0.2.10", nil)
		assert.Equal(t, "192.0.2.10", ip)
	})
}
