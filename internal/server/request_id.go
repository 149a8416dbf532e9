package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clipstream/internal/observability/logging"
)

const requestIDHeader = "X-Request-Id"

type idGenerator func() string

// requestIDMiddleware assigns every request an id, reusing the inbound
// X-Request-Id header when a proxy already set one. The id rides the context
// so downstream log lines correlate, and it is echoed on the response.
func requestIDMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return requestIDMiddlewareWithGenerator(logger, newRequestID, next)
}

func requestIDMiddlewareWithGenerator(logger *slog.Logger, generate idGenerator, next http.Handler) http.Handler {
	if generate == nil {
		generate = newRequestID
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = generate()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := logging.ContextWithRequestID(r.Context(), id)
		ctx = logging.ContextWithLogger(ctx, logging.WithContext(ctx, logger))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(raw[:])
}

// loggerWithRequestContext prefers the request-scoped logger stashed on the
// context, falling back to annotating the server logger.
func loggerWithRequestContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if scoped := logging.LoggerFromContext(ctx); scoped != nil {
		return scoped
	}
	return logging.WithContext(ctx, logger)
}
