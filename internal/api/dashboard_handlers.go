package api

import (
	"net/http"

	"clipstream/internal/storage"
)

// DashboardStats returns the authenticated channel's aggregate counters:
// GET /api/dashboard/stats.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	stats, err := h.Store.ChannelStats(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// DashboardVideos lists every video on the authenticated channel including
// drafts: GET /api/dashboard/videos.
func (h *Handler) DashboardVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	page, pageSize, err := parsePagination(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	videos, total, err := h.Store.ListVideos(storage.VideoQuery{
		OwnerID:            user.ID,
		Page:               page,
		PageSize:           pageSize,
		IncludeUnpublished: true,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, videoListResponse{
		Videos:     videos,
		Total:      total,
		Page:       page,
		TotalPages: totalPages(total, pageSize),
	})
}
