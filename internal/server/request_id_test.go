package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"clipstream/internal/observability/logging"
)

func TestRequestIDMiddlewareHonorsInboundHeader(t *testing.T) {
	var seen string
	chain := requestIDMiddleware(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = logging.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("X-Request-Id", "req-abc-123")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	if seen != "req-abc-123" {
		t.Fatalf("expected inbound id in context, got %q", seen)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-abc-123" {
		t.Fatalf("expected inbound id echoed, got %q", got)
	}
}

func TestRequestIDMiddlewareGeneratesWhenMissing(t *testing.T) {
	generated := "generated-id"
	chain := requestIDMiddlewareWithGenerator(nil, func() string { return generated }, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if got := rec.Header().Get("X-Request-Id"); got != generated {
		t.Fatalf("expected generated id, got %q", got)
	}
}

func TestNewRequestIDIsUnique(t *testing.T) {
	first := newRequestID()
	second := newRequestID()
	if first == "" || first == second {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", first, second)
	}
}
