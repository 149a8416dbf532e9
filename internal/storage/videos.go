package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"clipstream/internal/models"
)

// CreateVideoParams captures the attributes required to publish a new video.
type CreateVideoParams struct {
	OwnerID         string
	Title           string
	Description     string
	VideoURL        string
	VideoKey        string
	ThumbnailURL    string
	ThumbnailKey    string
	DurationSeconds float64
	Tags            []string
	Published       bool
}

// VideoUpdate represents the mutable metadata of a video.
type VideoUpdate struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	ThumbnailKey *string
	Tags         *[]string
}

// VideoQuery controls filtering, ordering and pagination of video listings.
type VideoQuery struct {
	Search        string
	OwnerID       string
	SortBy        string
	SortAscending bool
	Page          int
	PageSize      int
	// IncludeUnpublished lists drafts too. Callers enable it only when the
	// requester owns the channel being listed.
	IncludeUnpublished bool
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var caseFolder = cases.Fold()

func foldForSearch(value string) string {
	return caseFolder.String(strings.TrimSpace(value))
}

func (s *Storage) CreateVideo(params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, errors.New("title is required")
	}
	if strings.TrimSpace(params.VideoURL) == "" {
		return models.Video{}, errors.New("video file is required")
	}
	if strings.TrimSpace(params.ThumbnailURL) == "" {
		return models.Video{}, errors.New("thumbnail is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.OwnerID]; !ok {
		return models.Video{}, fmt.Errorf("user %s: %w", params.OwnerID, ErrNotFound)
	}

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:              id,
		OwnerID:         params.OwnerID,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		VideoURL:        strings.TrimSpace(params.VideoURL),
		VideoKey:        strings.TrimSpace(params.VideoKey),
		ThumbnailURL:    strings.TrimSpace(params.ThumbnailURL),
		ThumbnailKey:    strings.TrimSpace(params.ThumbnailKey),
		DurationSeconds: params.DurationSeconds,
		Published:       params.Published,
		Tags:            normalizeTags(params.Tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData
	return video, nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := strings.ToLower(strings.TrimSpace(tag))
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		normalized = append(normalized, cleaned)
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok
}

// ListVideos applies search, ownership and publication filters, sorts the
// result and returns the requested page plus the total match count.
func (s *Storage) ListVideos(query VideoQuery) ([]models.Video, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := foldForSearch(query.Search)

	matches := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if query.OwnerID != "" && video.OwnerID != query.OwnerID {
			continue
		}
		if !video.Published && !query.IncludeUnpublished {
			continue
		}
		if needle != "" {
			haystack := foldForSearch(video.Title + " " + video.Description)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		matches = append(matches, video)
	}

	if err := sortVideos(matches, query.SortBy, query.SortAscending); err != nil {
		return nil, 0, err
	}

	total := len(matches)
	page, pageSize := normalizePage(query.Page, query.PageSize)
	start := (page - 1) * pageSize
	if start >= total {
		return []models.Video{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func sortVideos(videos []models.Video, sortBy string, ascending bool) error {
	var less func(a, b models.Video) bool
	switch sortBy {
	case "", "createdAt":
		less = func(a, b models.Video) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "views":
		less = func(a, b models.Video) bool { return a.Views < b.Views }
	case "duration":
		less = func(a, b models.Video) bool { return a.DurationSeconds < b.DurationSeconds }
	case "title":
		less = func(a, b models.Video) bool { return foldForSearch(a.Title) < foldForSearch(b.Title) }
	default:
		return fmt.Errorf("unsupported sort field %q", sortBy)
	}

	sort.SliceStable(videos, func(i, j int) bool {
		if ascending {
			return less(videos[i], videos[j])
		}
		return less(videos[j], videos[i])
	})
	return nil
}

func (s *Storage) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, errors.New("title cannot be empty")
		}
		video.Title = title
	}
	if update.Description != nil {
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.ThumbnailURL != nil {
		url := strings.TrimSpace(*update.ThumbnailURL)
		if url == "" {
			return models.Video{}, errors.New("thumbnail cannot be empty")
		}
		video.ThumbnailURL = url
	}
	if update.ThumbnailKey != nil {
		video.ThumbnailKey = strings.TrimSpace(*update.ThumbnailKey)
	}
	if update.Tags != nil {
		video.Tags = normalizeTags(*update.Tags)
	}

	video.UpdatedAt = time.Now().UTC()
	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData
	return video, nil
}

// DeleteVideo removes a video along with its comments, likes, playlist
// references and watch-history entries.
func (s *Storage) DeleteVideo(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	delete(updatedData.Videos, id)

	removedComments := make(map[string]struct{})
	for commentID, comment := range updatedData.Comments {
		if comment.VideoID == id {
			removedComments[commentID] = struct{}{}
			delete(updatedData.Comments, commentID)
		}
	}

	for likeID, like := range updatedData.Likes {
		switch like.Target {
		case models.LikeTargetVideo:
			if like.TargetID == id {
				delete(updatedData.Likes, likeID)
			}
		case models.LikeTargetComment:
			if _, removed := removedComments[like.TargetID]; removed {
				delete(updatedData.Likes, likeID)
			}
		}
	}

	for playlistID, playlist := range updatedData.Playlists {
		filtered := playlist.VideoIDs[:0]
		for _, videoID := range playlist.VideoIDs {
			if videoID != id {
				filtered = append(filtered, videoID)
			}
		}
		if len(filtered) != len(playlist.VideoIDs) {
			playlist.VideoIDs = filtered
			playlist.UpdatedAt = time.Now().UTC()
			updatedData.Playlists[playlistID] = playlist
		}
	}

	for userID, entries := range updatedData.WatchHistory {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.VideoID != id {
				filtered = append(filtered, entry)
			}
		}
		if len(filtered) != len(entries) {
			updatedData.WatchHistory[userID] = filtered
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData
	return video, nil
}

// TogglePublish flips a video between published and draft states.
func (s *Storage) TogglePublish(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	video.Published = !video.Published
	video.UpdatedAt = time.Now().UTC()
	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData
	return video, nil
}

// RecordView increments the view counter and, when viewerID is set, prepends
// the video to that viewer's watch history.
func (s *Storage) RecordView(videoID, viewerID string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[videoID]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	video.Views++
	updatedData.Videos[videoID] = video

	if viewerID != "" {
		entries := updatedData.WatchHistory[viewerID]
		filtered := make([]models.WatchEntry, 0, len(entries)+1)
		filtered = append(filtered, models.WatchEntry{VideoID: videoID, WatchedAt: time.Now().UTC()})
		for _, entry := range entries {
			if entry.VideoID != videoID {
				filtered = append(filtered, entry)
			}
		}
		updatedData.WatchHistory[viewerID] = filtered
	}

	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData
	return video, nil
}
