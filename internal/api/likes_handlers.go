package api

import (
	"net/http"

	"clipstream/internal/models"
)

// toggleVideoLike serves POST /api/videos/{id}/like.
func (h *Handler) toggleVideoLike(w http.ResponseWriter, r *http.Request, videoID string) {
	h.toggleLike(w, r, models.LikeTargetVideo, videoID)
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request, target models.LikeTarget, targetID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	liked, err := h.Store.ToggleLike(target, targetID, user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"liked": liked,
		"likes": h.Store.CountLikes(target, targetID),
	})
}

// LikedVideos lists the videos the authenticated user has liked:
// GET /api/likes/videos.
func (h *Handler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	videos, err := h.Store.ListLikedVideos(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}
