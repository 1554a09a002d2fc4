package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates a UUID when absent", func(t *testing.T) {
		var ctxID string
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = RequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/api/v1/presets", http.NoBody)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		hdrID := w.Header().Get("X-Request-ID")
		if hdrID == "" || hdrID != ctxID {
			t.Fatalf("header ID %q, context ID %q, want matching non-empty values", hdrID, ctxID)
		}
		if _, err := uuid.Parse(hdrID); err != nil {
			t.Errorf("generated ID %q is not a UUID: %v", hdrID, err)
		}
	})

	t.Run("keeps an upstream ID", func(t *testing.T) {
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := RequestID(r.Context()); id != "proxy-trace-7" {
				t.Errorf("context ID = %q, want %q", id, "proxy-trace-7")
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/api/v1/presets", http.NoBody)
		req.Header.Set("X-Request-ID", "proxy-trace-7")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if id := w.Header().Get("X-Request-ID"); id != "proxy-trace-7" {
			t.Errorf("response X-Request-ID = %q, want %q", id, "proxy-trace-7")
		}
	})
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"run_id":"r1"}`))
	})

	handler := LoggingMiddleware(testLogger(), []string{"/healthz"})(inner)

	req := httptest.NewRequest("POST", "/api/v1/analyze", http.NoBody)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Body.String(); got != `{"run_id":"r1"}` {
		t.Errorf("body = %q, response altered by logging wrapper", got)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/presets", http.NoBody)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	tests := []struct {
		header string
		want   string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Content-Security-Policy", "default-src 'self'"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
	}
	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestVersionHeaderMiddleware(t *testing.T) {
	handler := VersionHeaderMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/presets", http.NoBody)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if v := w.Header().Get("X-Glyscope-Version"); v == "" {
		t.Error("expected X-Glyscope-Version header to be set")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("converts panic to problem response", func(t *testing.T) {
		inner := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic("detector blew up")
		})
		handler := RecoveryMiddleware(testLogger())(inner)

		req := httptest.NewRequest("POST", "/api/v1/analyze", http.NoBody)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Errorf("content-type = %q, want %q", ct, "application/problem+json")
		}
	})

	t.Run("no-op without panic", func(t *testing.T) {
		handler := RecoveryMiddleware(testLogger())(okHandler())

		req := httptest.NewRequest("GET", "/api/v1/presets", http.NoBody)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks past the burst", func(t *testing.T) {
		handler := RateLimitMiddleware(1, 1, nil)(okHandler())

		req := httptest.NewRequest("POST", "/api/v1/analyze", http.NoBody)
		req.RemoteAddr = "10.0.0.1:9999"

		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, req)
		if w1.Code != http.StatusOK {
			t.Fatalf("first request: status = %d, want %d", w1.Code, http.StatusOK)
		}

		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req)
		if w2.Code != http.StatusTooManyRequests {
			t.Fatalf("second request: status = %d, want %d", w2.Code, http.StatusTooManyRequests)
		}
	})

	t.Run("limits addresses independently", func(t *testing.T) {
		handler := RateLimitMiddleware(1, 1, nil)(okHandler())

		first := httptest.NewRequest("GET", "/api/v1/presets", http.NoBody)
		first.RemoteAddr = "10.0.0.2:9999"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, first)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, first)
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("exhausted address: status = %d, want %d", w.Code, http.StatusTooManyRequests)
		}

		other := httptest.NewRequest("GET", "/api/v1/presets", http.NoBody)
		other.RemoteAddr = "10.0.0.3:9999"
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, other)
		if w.Code != http.StatusOK {
			t.Errorf("fresh address: status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("never throttles probe paths", func(t *testing.T) {
		handler := RateLimitMiddleware(0.001, 1, []string{"/healthz"})(okHandler())

		req := httptest.NewRequest("GET", "/healthz", http.NoBody)
		req.RemoteAddr = "10.0.0.4:9999"
		for i := 0; i < 10; i++ {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
			}
		}
	})
}

func TestChain(t *testing.T) {
	var order []string

	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	})

	handler := Chain(inner, tag("outer"), tag("inner"))

	req := httptest.NewRequest("GET", "/api/v1/presets", http.NoBody)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	expected := []string{"outer-before", "inner-before", "handler", "inner-after", "outer-after"}
	if len(order) != len(expected) {
		t.Fatalf("execution order = %v, want %v", order, expected)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], expected[i])
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "socket peer",
			remoteAddr: "192.168.1.100:12345",
			want:       "192.168.1.100",
		},
		{
			name:       "first forwarded hop wins",
			remoteAddr: "127.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"},
			want:       "203.0.113.50",
		},
		{
			name:       "real-ip fallback",
			remoteAddr: "127.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded-for beats real-ip",
			remoteAddr: "127.0.0.1:12345",
			headers: map[string]string{
				"X-Forwarded-For": "198.51.100.4",
				"X-Real-IP":       "203.0.113.9",
			},
			want: "198.51.100.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusWriter(t *testing.T) {
	t.Run("captures status and size", func(t *testing.T) {
		w := httptest.NewRecorder()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		sw.WriteHeader(http.StatusNotFound)
		_, _ = sw.Write([]byte("not found"))

		if sw.status != http.StatusNotFound {
			t.Errorf("status = %d, want %d", sw.status, http.StatusNotFound)
		}
		if sw.bytes != int64(len("not found")) {
			t.Errorf("bytes = %d, want %d", sw.bytes, len("not found"))
		}
	})

	t.Run("first WriteHeader wins", func(t *testing.T) {
		w := httptest.NewRecorder()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		sw.WriteHeader(http.StatusCreated)
		sw.WriteHeader(http.StatusNotFound)

		if sw.status != http.StatusCreated {
			t.Errorf("status = %d, want %d", sw.status, http.StatusCreated)
		}
	})

	t.Run("accumulates across writes", func(t *testing.T) {
		w := httptest.NewRecorder()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		_, _ = sw.Write([]byte("abc"))
		_, _ = sw.Write([]byte("defgh"))

		if sw.bytes != 8 {
			t.Errorf("bytes = %d, want 8", sw.bytes)
		}
	})
}
