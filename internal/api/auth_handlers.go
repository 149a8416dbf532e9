package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"clipstream/internal/auth"
	"clipstream/internal/models"
	"clipstream/internal/storage"
)

type userProfile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newUserProfile(user models.User) userProfile {
	return userProfile{
		ID:            user.ID,
		Username:      user.Username,
		FullName:      user.FullName,
		Email:         user.Email,
		AvatarURL:     user.AvatarURL,
		CoverImageURL: user.CoverImageURL,
		CreatedAt:     user.CreatedAt,
	}
}

type sessionResponse struct {
	User         userProfile `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// issueSession signs a fresh token pair, persists the refresh token and sets
// both cookies. Storing the refresh token replaces any previous one, so a new
// login invalidates older sessions' refresh path.
func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, user models.User) (sessionResponse, error) {
	accessToken, err := h.Tokens.IssueAccessToken(auth.Identity{ID: user.ID, Username: user.Username, Email: user.Email})
	if err != nil {
		return sessionResponse{}, err
	}
	refreshToken, err := h.Tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return sessionResponse{}, err
	}
	if err := h.Store.SetRefreshToken(user.ID, refreshToken); err != nil {
		return sessionResponse{}, err
	}
	h.setSessionCookies(w, r, accessToken, refreshToken)
	return sessionResponse{
		User:         newUserProfile(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

type registerRequest struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. Multipart bodies may carry optional avatar and
// coverImage files; JSON bodies carry metadata only. All validation runs
// before anything is written.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	isMultipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	if isMultipart {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
			return
		}
		req = registerRequest{
			Username: r.FormValue("username"),
			FullName: r.FormValue("fullName"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("username is required"))
		return
	}
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, fmt.Errorf("a valid email is required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("password must be at least 8 characters"))
		return
	}

	params := storage.CreateUserParams{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	}

	if isMultipart {
		avatar, present, err := h.formFileAsset(r.Context(), r, "avatar", "avatars")
		if err != nil {
			writeError(w, uploadErrorStatus(err), err)
			return
		}
		if present {
			params.AvatarURL = avatar.URL
		}
		cover, present, err := h.formFileAsset(r.Context(), r, "coverImage", "covers")
		if err != nil {
			writeError(w, uploadErrorStatus(err), err)
			return
		}
		if present {
			params.CoverImageURL = cover.URL
		}
	}

	user, err := h.Store.CreateUser(params)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": newUserProfile(user)})
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("username or email and password are required"))
		return
	}

	user, err := h.Store.AuthenticateUser(identifier, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}

	session, err := h.issueSession(w, r, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Logout clears the stored refresh token, which ends the session's ability to
// mint new access tokens, and drops both cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := h.Store.ClearRefreshToken(user.ID); err != nil {
		writeStorageError(w, err)
		return
	}
	clearSessionCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges a valid refresh token for a new token pair. The incoming
// token must match the one stored for the user; rotation replaces it, so a
// refresh token can only be used once.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	token := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("refresh token is required"))
		return
	}

	claims, err := h.Tokens.VerifyRefreshToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid or expired refresh token"))
		return
	}
	user, exists := h.Store.GetUser(claims.Subject)
	if !exists || user.RefreshToken == "" || user.RefreshToken != token {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("refresh token is no longer valid"))
		return
	}

	session, err := h.issueSession(w, r, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("new password must be at least 8 characters"))
		return
	}

	if err := h.Store.SetUserPassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// CurrentUser returns the authenticated account's profile.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": newUserProfile(user)})
}
