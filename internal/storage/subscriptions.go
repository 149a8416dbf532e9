package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"clipstream/internal/models"
)

// ToggleSubscription flips the subscriber's subscription to a channel and
// reports whether it is active after the toggle. Subscribing to yourself is
// rejected.
func (s *Storage) ToggleSubscription(channelID, subscriberID string) (bool, error) {
	if channelID == subscriberID {
		return false, errors.New("cannot subscribe to your own channel")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[channelID]; !ok {
		return false, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)

	for subID, sub := range updatedData.Subscriptions {
		if sub.ChannelID == channelID && sub.SubscriberID == subscriberID {
			delete(updatedData.Subscriptions, subID)
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
	updatedData.Subscriptions[id] = models.Subscription{
		ID:           id,
		ChannelID:    channelID,
		SubscriberID: subscriberID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}

	s.data = updatedData
	return true, nil
}

// ListChannelSubscribers returns the users subscribed to a channel, newest
// first.
func (s *Storage) ListChannelSubscribers(channelID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	subs := subscriptionsByChannelLocked(s.data, channelID)
	users := make([]models.User, 0, len(subs))
	for _, sub := range subs {
		if user, ok := s.data.Users[sub.SubscriberID]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// ListSubscribedChannels returns the channels a user subscribes to, newest
// first.
func (s *Storage) ListSubscribedChannels(subscriberID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[subscriberID]; !ok {
		return nil, fmt.Errorf("user %s: %w", subscriberID, ErrNotFound)
	}

	subs := make([]models.Subscription, 0)
	for _, sub := range s.data.Subscriptions {
		if sub.SubscriberID == subscriberID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})

	channels := make([]models.User, 0, len(subs))
	for _, sub := range subs {
		if user, ok := s.data.Users[sub.ChannelID]; ok {
			channels = append(channels, user)
		}
	}
	return channels, nil
}

// CountSubscribers reports a channel's subscriber count.
func (s *Storage) CountSubscribers(channelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sub := range s.data.Subscriptions {
		if sub.ChannelID == channelID {
			count++
		}
	}
	return count
}

// IsSubscribed reports whether subscriberID currently follows channelID.
func (s *Storage) IsSubscribed(channelID, subscriberID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.data.Subscriptions {
		if sub.ChannelID == channelID && sub.SubscriberID == subscriberID {
			return true
		}
	}
	return false
}

func subscriptionsByChannelLocked(data dataset, channelID string) []models.Subscription {
	subs := make([]models.Subscription, 0)
	for _, sub := range data.Subscriptions {
		if sub.ChannelID == channelID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	return subs
}
