package api

import (
	"fmt"
	"net/http"
	"strings"

	"clipstream/internal/storage"
)

type channelProfile struct {
	userProfile
	SubscriberCount   int  `json:"subscriberCount"`
	SubscribedToCount int  `json:"subscribedToCount"`
	IsSubscribed      bool `json:"isSubscribed"`
}

// UserByID serves public channel profiles: GET /api/users/{idOrUsername}.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	identifier := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if identifier == "" || strings.Contains(identifier, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("user not found"))
		return
	}

	user, ok := h.Store.GetUser(identifier)
	if !ok {
		user, ok = h.Store.FindUserByUsername(identifier)
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("user not found"))
		return
	}

	subscribedTo := 0
	if channels, err := h.Store.ListSubscribedChannels(user.ID); err == nil {
		subscribedTo = len(channels)
	}
	profile := channelProfile{
		userProfile:       newUserProfile(user),
		SubscriberCount:   h.Store.CountSubscribers(user.ID),
		SubscribedToCount: subscribedTo,
	}
	if viewer, ok := UserFromContext(r.Context()); ok {
		profile.IsSubscribed = h.Store.IsSubscribed(user.ID, viewer.ID)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"channel": profile})
}

type updateAccountRequest struct {
	Username *string `json:"username"`
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

// Me dispatches /api/users/me: GET profile, PATCH account metadata.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.CurrentUser(w, r)
	case http.MethodPatch:
		h.updateAccount(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Username == nil && req.FullName == nil && req.Email == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no fields to update"))
		return
	}
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		writeError(w, http.StatusBadRequest, fmt.Errorf("a valid email is required"))
		return
	}

	updated, err := h.Store.UpdateUser(user.ID, storage.UserUpdate{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": newUserProfile(updated)})
}

// UpdateAvatar replaces the account's avatar image: PUT /api/users/me/avatar.
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateProfileImage(w, r, "avatar", "avatars")
}

// UpdateCoverImage replaces the account's cover image: PUT /api/users/me/cover.
func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateProfileImage(w, r, "coverImage", "covers")
}

func (h *Handler) updateProfileImage(w http.ResponseWriter, r *http.Request, field, keyPrefix string) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPut, http.MethodPatch)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
		return
	}
	asset, present, err := h.formFileAsset(r.Context(), r, field, keyPrefix)
	if err != nil {
		writeError(w, uploadErrorStatus(err), err)
		return
	}
	if !present {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%s file is required", field))
		return
	}

	update := storage.UserUpdate{}
	switch field {
	case "avatar":
		update.AvatarURL = &asset.URL
	default:
		update.CoverImageURL = &asset.URL
	}
	updated, err := h.Store.UpdateUser(user.ID, update)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": newUserProfile(updated)})
}

// WatchHistoryHandler lists the authenticated user's watch history, most
// recent first: GET /api/users/me/history.
func (h *Handler) WatchHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	videos, err := h.Store.WatchHistory(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}
