package storage

import (
	"fmt"
	"sort"

	"clipstream/internal/models"
)

// ChannelStats aggregates the dashboard counters for a channel.
func (s *Storage) ChannelStats(channelID string) (models.ChannelStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[channelID]; !ok {
		return models.ChannelStats{}, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	stats := models.ChannelStats{}
	channelVideos := make(map[string]struct{})
	for _, video := range s.data.Videos {
		if video.OwnerID != channelID {
			continue
		}
		stats.TotalVideos++
		stats.TotalViews += video.Views
		channelVideos[video.ID] = struct{}{}
	}
	for _, sub := range s.data.Subscriptions {
		if sub.ChannelID == channelID {
			stats.TotalSubscribers++
		}
	}
	for _, like := range s.data.Likes {
		if like.Target != models.LikeTargetVideo {
			continue
		}
		if _, ok := channelVideos[like.TargetID]; ok {
			stats.TotalLikes++
		}
	}
	return stats, nil
}

// WatchHistory returns a user's watch entries joined with their videos, most
// recently watched first. Deleted videos are skipped.
func (s *Storage) WatchHistory(userID string) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[userID]; !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	entries := append([]models.WatchEntry(nil), s.data.WatchHistory[userID]...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].WatchedAt.After(entries[j].WatchedAt)
	})

	videos := make([]models.Video, 0, len(entries))
	for _, entry := range entries {
		if video, ok := s.data.Videos[entry.VideoID]; ok {
			videos = append(videos, video)
		}
	}
	return videos, nil
}
