package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"clipstream/internal/media"
	"clipstream/internal/models"
	"clipstream/internal/storage"
)

type videoListResponse struct {
	Videos     []models.Video `json:"videos"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

// Videos serves the collection routes: GET /api/videos lists and searches,
// POST /api/videos publishes a new upload.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listVideos(w, r)
	case http.MethodPost:
		h.publishVideo(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page, pageSize, err := parsePagination(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	query := storage.VideoQuery{
		Search:   values.Get("query"),
		OwnerID:  strings.TrimSpace(values.Get("owner")),
		SortBy:   strings.TrimSpace(values.Get("sortBy")),
		Page:     page,
		PageSize: pageSize,
	}
	if strings.EqualFold(values.Get("sortOrder"), "asc") {
		query.SortAscending = true
	}
	// Owners see their own drafts when listing their channel.
	if viewer, ok := UserFromContext(r.Context()); ok && query.OwnerID != "" && query.OwnerID == viewer.ID {
		query.IncludeUnpublished = true
	}

	videos, total, err := h.Store.ListVideos(query)
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

// publishVideo accepts a multipart body with a video file, a thumbnail and
// metadata fields. Both files are required and are pushed to the object store
// concurrently.
func (h *Handler) publishVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}
	duration := 0.0
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid duration %q", raw))
			return
		}
		duration = parsed
	}

	var videoAsset, thumbAsset media.Asset
	group, ctx := errgroup.WithContext(r.Context())
	group.Go(func() error {
		asset, present, err := h.formFileAsset(ctx, r, "video", "videos")
		if err != nil {
			return err
		}
		if !present {
			return fmt.Errorf("video file is required")
		}
		videoAsset = asset
		return nil
	})
	group.Go(func() error {
		asset, present, err := h.formFileAsset(ctx, r, "thumbnail", "thumbnails")
		if err != nil {
			return err
		}
		if !present {
			return fmt.Errorf("thumbnail file is required")
		}
		thumbAsset = asset
		return nil
	})
	if err := group.Wait(); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errUpstream) {
			status = http.StatusBadGateway
		}
		writeError(w, status, err)
		return
	}

	video, err := h.Store.CreateVideo(storage.CreateVideoParams{
		OwnerID:         user.ID,
		Title:           title,
		Description:     r.FormValue("description"),
		VideoURL:        videoAsset.URL,
		VideoKey:        videoAsset.Key,
		ThumbnailURL:    thumbAsset.URL,
		ThumbnailKey:    thumbAsset.Key,
		DurationSeconds: duration,
		Tags:            r.Form["tags"],
		Published:       !strings.EqualFold(r.FormValue("draft"), "true"),
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"video": video})
}

// VideoByID dispatches /api/videos/{id} and its subroutes.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
		return
	}
	videoID := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case "publish":
			h.togglePublish(w, r, videoID)
		case "comments":
			h.videoComments(w, r, videoID)
		case "like":
			h.toggleVideoLike(w, r, videoID)
		default:
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown video route"))
		}
		return
	}
	if len(parts) > 2 {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown video route"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getVideo(w, r, videoID)
	case http.MethodPatch:
		h.updateVideo(w, r, videoID)
	case http.MethodDelete:
		h.deleteVideo(w, r, videoID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// getVideo returns a video and records the view. Unpublished videos are only
// visible to their owner.
func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	video, ok := h.Store.GetVideo(videoID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
		return
	}
	viewer, authenticated := UserFromContext(r.Context())
	if !video.Published && (!authenticated || viewer.ID != video.OwnerID) {
		writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
		return
	}

	viewerID := ""
	if authenticated {
		viewerID = viewer.ID
	}
	video, err := h.Store.RecordView(videoID, viewerID)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	likes := h.Store.CountLikes(models.LikeTargetVideo, videoID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video": video,
		"likes": likes,
	})
}

type updateVideoRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	video, exists := h.Store.GetVideo(videoID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
		return
	}
	if !requireOwner(w, user, video.OwnerID) {
		return
	}

	update := storage.VideoUpdate{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
			return
		}
		if title := r.FormValue("title"); title != "" {
			update.Title = &title
		}
		if _, ok := r.Form["description"]; ok {
			description := r.FormValue("description")
			update.Description = &description
		}
		asset, present, err := h.formFileAsset(r.Context(), r, "thumbnail", "thumbnails")
		if err != nil {
			writeError(w, uploadErrorStatus(err), err)
			return
		}
		if present {
			update.ThumbnailURL = &asset.URL
			update.ThumbnailKey = &asset.Key
		}
	} else {
		var req updateVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		update.Title = req.Title
		update.Description = req.Description
		update.Tags = req.Tags
	}

	updated, err := h.Store.UpdateVideo(videoID, update)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"video": updated})
}

// deleteVideo removes the record and then clears the stored objects. Object
// deletion failures are logged, not surfaced; the record is already gone.
func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	video, exists := h.Store.GetVideo(videoID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
		return
	}
	if !requireOwner(w, user, video.OwnerID) {
		return
	}

	deleted, err := h.Store.DeleteVideo(videoID)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	if h.Media.Enabled() {
		for _, key := range []string{deleted.VideoKey, deleted.ThumbnailKey} {
			if key == "" {
				continue
			}
			if err := h.Media.Delete(r.Context(), key); err != nil {
				h.Logger.Warn("delete media object", "key", key, "error", err)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) togglePublish(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	video, exists := h.Store.GetVideo(videoID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("video not found"))
		return
	}
	if !requireOwner(w, user, video.OwnerID) {
		return
	}

	updated, err := h.Store.TogglePublish(videoID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"video": updated})
}
