package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"clipstream/internal/models"
)

func (s *Storage) CreateComment(videoID, ownerID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Comment{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        id,
		VideoID:   videoID,
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Comments[id] = comment
	if err := s.persistDataset(updatedData); err != nil {
		return models.Comment{}, err
	}

	s.data = updatedData
	return comment, nil
}

func (s *Storage) GetComment(id string) (models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok
}

// ListComments returns a newest-first page of comments for a video along with
// the total comment count.
func (s *Storage) ListComments(videoID string, page, pageSize int) ([]models.Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return nil, 0, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})

	total := len(comments)
	page, pageSize = normalizePage(page, pageSize)
	start := (page - 1) * pageSize
	if start >= total {
		return []models.Comment{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return comments[start:end], total, nil
}

func (s *Storage) UpdateComment(id, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	comment, ok := updatedData.Comments[id]
	if !ok {
		return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	comment.Content = content
	comment.UpdatedAt = time.Now().UTC()
	updatedData.Comments[id] = comment
	if err := s.persistDataset(updatedData); err != nil {
		return models.Comment{}, err
	}

	s.data = updatedData
	return comment, nil
}

// DeleteComment removes a comment and any likes attached to it.
func (s *Storage) DeleteComment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	delete(updatedData.Comments, id)

	for likeID, like := range updatedData.Likes {
		if like.Target == models.LikeTargetComment && like.TargetID == id {
			delete(updatedData.Likes, likeID)
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}
