package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clipstream/internal/auth"
	"clipstream/internal/media"
	"clipstream/internal/storage"
)

// Handler owns the HTTP surface of the API. Route registration lives in the
// server package; handlers here only deal with requests and storage.
type Handler struct {
	Store     storage.Repository
	Tokens    *auth.Issuer
	Media     media.Uploader
	Logger    *slog.Logger
	startedAt time.Time
}

func NewHandler(store storage.Repository, tokens *auth.Issuer, uploader media.Uploader, logger *slog.Logger) *Handler {
	if uploader == nil {
		uploader = media.NewUploader(media.Config{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:     store,
		Tokens:    tokens,
		Media:     uploader,
		Logger:    logger,
		startedAt: time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// WriteError is an exported helper for returning JSON API errors.
func WriteError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, err)
}

// writeStorageError maps repository sentinel errors onto HTTP statuses.
// Anything unmapped is treated as a validation failure.
func writeStorageError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePagination(values url.Values) (page, pageSize int, err error) {
	page = 1
	pageSize = 0
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid page %q", raw)
		}
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		pageSize, err = strconv.Atoi(raw)
		if err != nil || pageSize < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q", raw)
		}
	}
	return page, pageSize, nil
}

func totalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = 10
	}
	if total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	if r.URL != nil && strings.EqualFold(r.URL.Scheme, "https") {
		return true
	}
	return false
}

// Health reports process liveness plus backing-store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	status := "ok"
	storageStatus := "ok"
	if h.Store != nil {
		if err := h.Store.Ping(); err != nil {
			status = "degraded"
			storageStatus = err.Error()
		}
	}
	httpStatus := http.StatusOK
	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"storage":   storageStatus,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
