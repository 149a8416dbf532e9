package storage

import (
	"fmt"
	"sort"
	"time"

	"clipstream/internal/models"
)

// ToggleLike flips a user's like on the given target. It reports whether the
// target is liked after the toggle.
func (s *Storage) ToggleLike(target models.LikeTarget, targetID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch target {
	case models.LikeTargetVideo:
		if _, ok := s.data.Videos[targetID]; !ok {
			return false, fmt.Errorf("video %s: %w", targetID, ErrNotFound)
		}
	case models.LikeTargetComment:
		if _, ok := s.data.Comments[targetID]; !ok {
			return false, fmt.Errorf("comment %s: %w", targetID, ErrNotFound)
		}
	default:
		return false, fmt.Errorf("unsupported like target %q", target)
	}

	updatedData := cloneDataset(s.data)

	for likeID, like := range updatedData.Likes {
		if like.Target == target && like.TargetID == targetID && like.UserID == userID {
			delete(updatedData.Likes, likeID)
			if err := s.persistDataset(updatedData); err != nil {
				return false, err
			}
			s.data = updatedData
			return false, nil
		}
	}

	id, err := generateID()
	if err != nil {
		return false, err
	}
	updatedData.Likes[id] = models.Like{
		ID:        id,
		Target:    target,
		TargetID:  targetID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}

	s.data = updatedData
	return true, nil
}

// CountLikes reports how many likes a target currently has.
func (s *Storage) CountLikes(target models.LikeTarget, targetID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, like := range s.data.Likes {
		if like.Target == target && like.TargetID == targetID {
			count++
		}
	}
	return count
}

// ListLikedVideos returns the videos a user has liked, most recently liked
// first. Videos that have since been deleted or unpublished are skipped.
func (s *Storage) ListLikedVideos(userID string) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	likes := make([]models.Like, 0)
	for _, like := range s.data.Likes {
		if like.Target == models.LikeTargetVideo && like.UserID == userID {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool {
		return likes[i].CreatedAt.After(likes[j].CreatedAt)
	})

	videos := make([]models.Video, 0, len(likes))
	for _, like := range likes {
		video, ok := s.data.Videos[like.TargetID]
		if !ok || !video.Published {
			continue
		}
		videos = append(videos, video)
	}
	return videos, nil
}
