package httpserver

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/telemetry/logger"
	"github.com/yndnr/bookcache/internal/telemetry/metric"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	t.Run("generates ULID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(HeaderRequestID)
		if len(id) != 26 {
			t.Errorf("request ID %q is not a ULID", id)
		}
		if seen != id {
			t.Errorf("context ID = %q, header ID = %q", seen, id)
		}
	})

	t.Run("reuses client ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "client-abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Header().Get(HeaderRequestID) != "client-abc" || seen != "client-abc" {
			t.Errorf("client request ID not propagated: %q", seen)
		}
	})

	t.Run("replaces oversized ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, strings.Repeat("x", maxRequestIDLength+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if len(seen) != 26 {
			t.Errorf("oversized ID should be replaced, got %q", seen)
		}
	})
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler, mark("a"), mark("b"), mark("c")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "a,b,c" {
		t.Errorf("order = %v, want a,b,c", order)
	}
}

func TestRecover(t *testing.T) {
	log, buf := newBufferLogger()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID(), Recover(log))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") != domain.ErrInternal.Code {
		t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["request_id"] != rec.Header().Get(HeaderRequestID) {
		t.Errorf("request_id = %v", body["request_id"])
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestAccessLog(t *testing.T) {
	log, buf := newBufferLogger()
	reg := metric.NewRegistry()

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), RequestID(), AccessLog(log, reg, "GET /v1/entries/{key}"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/entries/abc", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for 4xx", entry["level"])
	}
	if entry["route"] != "GET /v1/entries/{key}" || entry["path"] != "/v1/entries/abc" {
		t.Errorf("route/path = %v %v", entry["route"], entry["path"])
	}
	if entry["request_id"] == "" {
		t.Error("request_id missing from access log")
	}

	got := testutil.ToFloat64(reg.RequestsTotal.WithLabelValues("GET", "GET /v1/entries/{key}", "404"))
	if got != 1 {
		t.Errorf("http_requests_total = %v, want 1", got)
	}
}

func TestAccessLog_RecordsRecoveredPanic(t *testing.T) {
	log, _ := newBufferLogger()
	reg := metric.NewRegistry()

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID(), AccessLog(log, reg, "GET /v1/stats"), Recover(log))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	if got := testutil.ToFloat64(reg.RequestsTotal.WithLabelValues("GET", "GET /v1/stats", "500")); got != 1 {
		t.Errorf("http_requests_total{status=500} = %v, want 1", got)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(1, 2)(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Error("429 should carry Retry-After")
		}
	}

	if codes[0] != 200 || codes[1] != 200 || codes[2] != 429 {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	l := NewRateLimiter(10, 1)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("a") {
		t.Fatal("first request should pass")
	}
	if l.Allow("a") {
		t.Fatal("burst of 1 should reject the second request")
	}
	now = now.Add(150 * time.Millisecond)
	if !l.Allow("a") {
		t.Error("bucket should refill after 100ms at 10 rps")
	}
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	l := NewRateLimiter(10, 1)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	if l.Clients() != 2 {
		t.Fatalf("clients = %d, want 2", l.Clients())
	}

	now = now.Add(DefaultLimiterIdleTTL + time.Second)
	l.Allow("c")
	if l.Clients() != 1 {
		t.Errorf("clients = %d, want 1 after sweep", l.Clients())
	}
}

func TestRateLimiter_Concurrency(t *testing.T) {
	l := NewRateLimiter(1, 50)

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("10.0.0.1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed < 50 || allowed > 51 {
		t.Errorf("allowed = %d, want about the burst of 50", allowed)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.1:1234", nil, "192.168.1.1"},
		{"ipv6", "[::1]:8080", nil, "::1"},
		{"no port", "192.168.1.1", nil, "192.168.1.1"},
		{"forwarded for", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError)

	if w.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want first status 201", w.statusCode)
	}
	if w.Unwrap() != rec {
		t.Error("Unwrap should return the underlying writer")
	}
}
