package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsTestChain(t *testing.T, origins ...string) http.Handler {
	t.Helper()
	policy, err := newCORSPolicy(CORSConfig{AllowedOrigins: origins})
	if err != nil {
		t.Fatalf("newCORSPolicy: %v", err)
	}
	return corsMiddleware(policy, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSMiddlewareIgnoresNonBrowserRequests(t *testing.T) {
	chain := corsTestChain(t)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected requests without Origin to pass, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected no CORS headers without Origin")
	}
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	chain := corsTestChain(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://APP.example.com")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected allowed origin, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://APP.example.com" {
		t.Fatalf("expected origin echoed back, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials allowed")
	}
}

func TestCORSMiddlewareRejectsUnknownOrigin(t *testing.T) {
	chain := corsTestChain(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown origin, got %d", rec.Code)
	}
}

func TestCORSMiddlewareAllowsSameOrigin(t *testing.T) {
	chain := corsTestChain(t)

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/api/videos", nil)
	req.Host = "api.example.com"
	req.Header.Set("Origin", "http://api.example.com")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected same-origin request to pass, got %d", rec.Code)
	}
}

func TestCORSMiddlewareAnswersPreflight(t *testing.T) {
	chain := corsTestChain(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Request-Id")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("expected allowed methods on preflight")
	}
	if rec.Header().Get("Access-Control-Allow-Headers") != "Content-Type, X-Request-Id" {
		t.Fatalf("expected requested headers echoed, got %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestNewCORSPolicyRejectsBareHosts(t *testing.T) {
	if _, err := newCORSPolicy(CORSConfig{AllowedOrigins: []string{"app.example.com"}}); err == nil {
		t.Fatalf("expected error for origin without scheme")
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	chain := securityHeadersMiddleware(SecurityConfig{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY, got %q", got)
	}
	if rec.Header().Get("Content-Security-Policy") == "" || rec.Header().Get("Referrer-Policy") == "" {
		t.Fatalf("expected hardening headers to be set")
	}

	custom := securityHeadersMiddleware(SecurityConfig{FrameOptions: "SAMEORIGIN"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec = httptest.NewRecorder()
	custom.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := rec.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Fatalf("expected override, got %q", got)
	}
}
