package api

import (
	"fmt"
	"net/http"
	"strings"

	"clipstream/internal/models"
)

type commentListResponse struct {
	Comments   []models.Comment `json:"comments"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// videoComments serves /api/videos/{id}/comments: GET lists newest first,
// POST adds a comment.
func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		h.listComments(w, r, videoID)
	case http.MethodPost:
		h.createComment(w, r, videoID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request, videoID string) {
	page, pageSize, err := parsePagination(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	comments, total, err := h.Store.ListComments(videoID, page, pageSize)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commentListResponse{
		Comments:   comments,
		Total:      total,
		Page:       page,
		TotalPages: totalPages(total, pageSize),
	})
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request, videoID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("content is required"))
		return
	}

	comment, err := h.Store.CreateComment(videoID, user.ID, req.Content)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"comment": comment})
}

// CommentByID dispatches /api/comments/{id} and /api/comments/{id}/like.
// PATCH edits and DELETE removes; only the comment's author may do either,
// and missing comments answer 404 before any ownership check.
func (h *Handler) CommentByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/comments/"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 2 && parts[1] == "like" && parts[0] != "" {
		h.toggleLike(w, r, models.LikeTargetComment, parts[0])
		return
	}
	if len(parts) != 1 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("comment not found"))
		return
	}
	commentID := parts[0]

	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	comment, exists := h.Store.GetComment(commentID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("comment not found"))
		return
	}
	if !requireOwner(w, user, comment.OwnerID) {
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req commentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateComment(commentID, req.Content)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"comment": updated})
	case http.MethodDelete:
		if err := h.Store.DeleteComment(commentID); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
	}
}
