package api

import (
	"fmt"
	"net/http"
	"strings"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

// Playlists serves the collection routes: GET /api/playlists?owner= lists a
// user's playlists, POST /api/playlists creates one.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPlaylists(w, r)
	case http.MethodPost:
		h.createPlaylist(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) listPlaylists(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))
	if ownerID == "" {
		if user, ok := UserFromContext(r.Context()); ok {
			ownerID = user.ID
		}
	}
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("owner is required"))
		return
	}

	playlists, err := h.Store.ListPlaylists(ownerID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) createPlaylist(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	playlist, err := h.Store.CreatePlaylist(user.ID, req.Name, req.Description)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"playlist": playlist})
}

// PlaylistByID dispatches /api/playlists/{id} and
// /api/playlists/{id}/videos/{videoId}.
func (h *Handler) PlaylistByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/playlists/"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
		return
	}
	playlistID := parts[0]

	if len(parts) == 3 && parts[1] == "videos" && parts[2] != "" {
		h.playlistVideo(w, r, playlistID, parts[2])
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown playlist route"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getPlaylist(w, r, playlistID)
	case http.MethodPatch:
		h.updatePlaylist(w, r, playlistID)
	case http.MethodDelete:
		h.deletePlaylist(w, r, playlistID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (h *Handler) getPlaylist(w http.ResponseWriter, r *http.Request, playlistID string) {
	playlist, ok := h.Store.GetPlaylist(playlistID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
		return
	}

	videos := make([]models.Video, 0, len(playlist.VideoIDs))
	for _, videoID := range playlist.VideoIDs {
		if video, ok := h.Store.GetVideo(videoID); ok {
			videos = append(videos, video)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playlist": playlist,
		"videos":   videos,
	})
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *Handler) updatePlaylist(w http.ResponseWriter, r *http.Request, playlistID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	playlist, exists := h.Store.GetPlaylist(playlistID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
		return
	}
	if !requireOwner(w, user, playlist.OwnerID) {
		return
	}

	var req updatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.Store.UpdatePlaylist(playlistID, storage.PlaylistUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlist": updated})
}

func (h *Handler) deletePlaylist(w http.ResponseWriter, r *http.Request, playlistID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	playlist, exists := h.Store.GetPlaylist(playlistID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
		return
	}
	if !requireOwner(w, user, playlist.OwnerID) {
		return
	}

	if err := h.Store.DeletePlaylist(playlistID); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// playlistVideo adds or removes a single video: POST adds, DELETE removes.
// Adding a video already present answers 409.
func (h *Handler) playlistVideo(w http.ResponseWriter, r *http.Request, playlistID, videoID string) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	playlist, exists := h.Store.GetPlaylist(playlistID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
		return
	}
	if !requireOwner(w, user, playlist.OwnerID) {
		return
	}

	var (
		updated models.Playlist
		err     error
	)
	if r.Method == http.MethodPost {
		updated, err = h.Store.AddVideoToPlaylist(playlistID, videoID)
	} else {
		updated, err = h.Store.RemoveVideoFromPlaylist(playlistID, videoID)
	}
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlist": updated})
}
