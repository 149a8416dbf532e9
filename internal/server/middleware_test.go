package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipstream/internal/api"
	"clipstream/internal/auth"
	"clipstream/internal/observability/logging"
	"clipstream/internal/storage"
)

func newAuthTestHandler(t *testing.T) (*api.Handler, *storage.Storage, *auth.Issuer) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	issuer, err := auth.NewIssuer(auth.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return api.NewHandler(store, issuer, nil, nil), store, issuer
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := api.UserFromContext(r.Context()); ok {
			w.Write([]byte(user.Username))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

func TestAuthMiddlewarePublicPaths(t *testing.T) {
	handler, _, _ := newAuthTestHandler(t)
	chain := authMiddleware(handler, echoUser())

	for _, path := range []string{"/healthz", "/api/auth/register", "/api/auth/login", "/api/auth/refresh"} {
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected pass-through, got %d", path, rec.Code)
		}
	}
}

func TestAuthMiddlewareOptionalPaths(t *testing.T) {
	handler, _, _ := newAuthTestHandler(t)
	chain := authMiddleware(handler, echoUser())

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Fatalf("expected anonymous browse, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/somebody", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected public channel profile, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for /api/users/me, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated POST, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing access token") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestAuthMiddlewareVerifiesBearerTokens(t *testing.T) {
	handler, store, issuer := newAuthTestHandler(t)
	user, err := store.CreateUser(storage.CreateUserParams{
		Username: "alice",
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := issuer.IssueAccessToken(auth.Identity{ID: user.ID, Username: user.Username, Email: user.Email})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	chain := authMiddleware(handler, echoUser())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "alice" {
		t.Fatalf("expected authenticated user, got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestAuditMiddlewareRecordsActingUser(t *testing.T) {
	handler, store, issuer := newAuthTestHandler(t)
	user, err := store.CreateUser(storage.CreateUserParams{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := issuer.IssueAccessToken(auth.Identity{ID: user.ID, Username: user.Username, Email: user.Email})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	var buf bytes.Buffer
	auditLogger := logging.New(logging.Config{Writer: &buf})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	chain := authMiddleware(handler, auditMiddleware(auditLogger, inner))

	req := httptest.NewRequest(http.MethodPost, "/api/playlists", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one audit record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "audit" || record["user_id"] != user.ID {
		t.Fatalf("expected audit record with user_id %q, got %v", user.ID, record)
	}
	if record["method"] != http.MethodPost || record["status"] != float64(http.StatusCreated) {
		t.Fatalf("unexpected audit fields: %v", record)
	}

	buf.Reset()
	getReq := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, getReq)
	if buf.Len() != 0 {
		t.Fatalf("expected reads to skip the audit log, got %q", buf.String())
	}
}

func TestRateLimitMiddlewareGlobalBucket(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{GlobalRPS: 0.001, GlobalBurst: 2})
	chain := rateLimitMiddleware(rl, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the bucket drains, got %d", rec.Code)
	}
}

func TestRateLimitMiddlewareLoginAttempts(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 2, LoginWindow: time.Hour})
	chain := rateLimitMiddleware(rl, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	loginRequest := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":51234"
		return req
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, loginRequest("10.0.0.1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, loginRequest("10.0.0.1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for third attempt, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, loginRequest("10.0.0.2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected other addresses unaffected, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:51234"
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected GET to bypass the login limiter, got %d", rec.Code)
	}
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:1234"
	if got := extractClientIP(req); got != "192.0.2.9" {
		t.Fatalf("expected remote addr host, got %q", got)
	}

	req.Header.Set("X-Real-IP", "198.51.100.7")
	if got := extractClientIP(req); got != "198.51.100.7" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 198.51.100.7")
	if got := extractClientIP(req); got != "203.0.113.5" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
