package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"clipstream/internal/api"
)

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	Addr        string
	TLS         TLSConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Security    SecurityConfig
	Logger      *slog.Logger
	AuditLogger *slog.Logger
}

// Server wires the API handlers behind the middleware chain and owns the
// http.Server lifecycle.
type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	auditLogger *slog.Logger
	rateLimiter *rateLimiter
	tlsCertFile string
	tlsKeyFile  string
}

func New(handler *api.Handler, cfg Config) (*Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handler.Health)

	mux.HandleFunc("/api/auth/register", handler.Register)
	mux.HandleFunc("/api/auth/login", handler.Login)
	mux.HandleFunc("/api/auth/logout", handler.Logout)
	mux.HandleFunc("/api/auth/refresh", handler.Refresh)
	mux.HandleFunc("/api/auth/password", handler.ChangePassword)
	mux.HandleFunc("/api/auth/me", handler.CurrentUser)

	mux.HandleFunc("/api/users/me", handler.Me)
	mux.HandleFunc("/api/users/me/avatar", handler.UpdateAvatar)
	mux.HandleFunc("/api/users/me/cover", handler.UpdateCoverImage)
	mux.HandleFunc("/api/users/me/history", handler.WatchHistoryHandler)
	mux.HandleFunc("/api/users/", handler.UserByID)

	mux.HandleFunc("/api/videos", handler.Videos)
	mux.HandleFunc("/api/videos/", handler.VideoByID)
	mux.HandleFunc("/api/comments/", handler.CommentByID)
	mux.HandleFunc("/api/likes/videos", handler.LikedVideos)

	mux.HandleFunc("/api/playlists", handler.Playlists)
	mux.HandleFunc("/api/playlists/", handler.PlaylistByID)

	mux.HandleFunc("/api/subscriptions", handler.Subscriptions)
	mux.HandleFunc("/api/subscriptions/", handler.ChannelSubscription)

	mux.HandleFunc("/api/dashboard/stats", handler.DashboardStats)
	mux.HandleFunc("/api/dashboard/videos", handler.DashboardVideos)

	corsPolicy, err := newCORSPolicy(cfg.CORS)
	if err != nil {
		return nil, err
	}

	rl := newRateLimiter(cfg.RateLimit)
	chain := http.Handler(mux)
	// Audit sits inside auth so it sees the authenticated account on the
	// request context.
	chain = auditMiddleware(cfg.AuditLogger, chain)
	chain = authMiddleware(handler, chain)
	chain = rateLimitMiddleware(rl, cfg.Logger, chain)
	chain = corsMiddleware(corsPolicy, chain)
	chain = securityHeadersMiddleware(cfg.Security, chain)
	chain = loggingMiddleware(cfg.Logger, chain)
	chain = requestIDMiddleware(cfg.Logger, chain)

	srv := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           chain,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Minute,
			WriteTimeout:      15 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
		logger:      cfg.Logger,
		auditLogger: cfg.AuditLogger,
		rateLimiter: rl,
		tlsCertFile: strings.TrimSpace(cfg.TLS.CertFile),
		tlsKeyFile:  strings.TrimSpace(cfg.TLS.KeyFile),
	}
	if srv.servesTLS() {
		srv.httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return srv, nil
}

func (s *Server) servesTLS() bool {
	return s.tlsCertFile != "" && s.tlsKeyFile != ""
}

func (s *Server) Start() error {
	if s.httpServer == nil {
		return fmt.Errorf("http server is not configured")
	}
	if s.servesTLS() {
		return s.httpServer.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response status for the logging middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		loggerWithRequestContext(r.Context(), logger).Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_ip", extractClientIP(r))
	})
}

func rateLimitMiddleware(rl *rateLimiter, logger *slog.Logger, next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.AllowRequest() {
			http.Error(w, "global rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
			allowed, retryAfter, err := rl.AllowLogin(r.Context(), extractClientIP(r))
			if err != nil {
				if logger != nil {
					logger.Error("rate limiter failure", "error", err)
				}
				http.Error(w, "rate limit failure", http.StatusServiceUnavailable)
				return
			}
			if !allowed {
				if retryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
				}
				http.Error(w, "too many login attempts", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// auditMiddleware records every mutating API call, with the acting account
// when one is authenticated.
func auditMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		if r.Method == http.MethodGet || r.Method == http.MethodHead || !strings.HasPrefix(r.URL.Path, "/api/") {
			return
		}
		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_ip", extractClientIP(r),
		}
		if user, ok := api.UserFromContext(r.Context()); ok {
			fields = append(fields, "user_id", user.ID)
		}
		logger.Info("audit", fields...)
	})
}

// extractClientIP prefers proxy-supplied headers over the socket address.
func extractClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// publicPaths never require a token.
var publicPaths = map[string]struct{}{
	"/healthz":           {},
	"/api/auth/register": {},
	"/api/auth/login":    {},
	"/api/auth/refresh":  {},
}

// optionalAuthPath reports whether an unauthenticated GET may pass through.
// Browsing videos, channels, playlists and subscriber lists is public; the
// handlers behind these routes still use the viewer identity when present.
func optionalAuthPath(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	path := r.URL.Path
	switch {
	case path == "/api/videos" || strings.HasPrefix(path, "/api/videos/"):
		return true
	case strings.HasPrefix(path, "/api/users/") && !strings.HasPrefix(path, "/api/users/me"):
		return true
	case path == "/api/playlists" || strings.HasPrefix(path, "/api/playlists/"):
		return true
	case strings.HasPrefix(path, "/api/subscriptions/") && strings.HasSuffix(path, "/subscribers"):
		return true
	default:
		return false
	}
}

func authMiddleware(handler *api.Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if _, public := publicPaths[path]; public || !strings.HasPrefix(path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		token := api.ExtractToken(r)
		if token == "" {
			if optionalAuthPath(r) {
				next.ServeHTTP(w, r)
				return
			}
			api.WriteError(w, http.StatusUnauthorized, fmt.Errorf("missing access token"))
			return
		}
		user, err := handler.AuthenticateRequest(r)
		if err != nil {
			api.WriteError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(api.ContextWithUser(r.Context(), user)))
	})
}
