package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"clipstream/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ExtractToken pulls the access token from the Authorization header or, as a
// fallback, from the access cookie set at login.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(accessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthenticateRequest verifies the access token on the request and loads the
// account it belongs to.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, fmt.Errorf("missing access token")
	}
	claims, err := h.Tokens.VerifyAccessToken(token)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid or expired access token")
	}
	user, exists := h.Store.GetUser(claims.Subject)
	if !exists {
		return models.User{}, fmt.Errorf("account not found")
	}
	return user, nil
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.User{}, false
	}
	return user, true
}

// requireOwner enforces the ownership rule for mutations. Callers must have
// already confirmed the resource exists so missing resources surface as 404
// before any ownership decision leaks their existence.
func requireOwner(w http.ResponseWriter, user models.User, ownerID string) bool {
	if strings.TrimSpace(ownerID) != strings.TrimSpace(user.ID) {
		WriteError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return false
	}
	return true
}
