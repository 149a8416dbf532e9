package storage

import (
	"errors"
	"testing"
)

func TestToggleSubscription(t *testing.T) {
	store := newTestStore(t)
	channel := createTestUser(t, store, "channel")
	viewer := createTestUser(t, store, "viewer")

	subscribed, err := store.ToggleSubscription(channel.ID, viewer.ID)
	if err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}
	if !subscribed {
		t.Fatalf("expected subscription after first toggle")
	}
	if !store.IsSubscribed(channel.ID, viewer.ID) {
		t.Fatalf("IsSubscribed should report true")
	}
	if count := store.CountSubscribers(channel.ID); count != 1 {
		t.Fatalf("expected 1 subscriber, got %d", count)
	}

	subscribed, err = store.ToggleSubscription(channel.ID, viewer.ID)
	if err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}
	if subscribed {
		t.Fatalf("expected unsubscribe after second toggle")
	}
	if store.IsSubscribed(channel.ID, viewer.ID) {
		t.Fatalf("IsSubscribed should report false")
	}
}

func TestToggleSubscriptionRejectsSelfAndMissing(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")

	if _, err := store.ToggleSubscription(alice.ID, alice.ID); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected plain validation error for self-subscribe, got %v", err)
	}
	if _, err := store.ToggleSubscription("missing", alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing channel, got %v", err)
	}
}

func TestSubscriptionListings(t *testing.T) {
	store := newTestStore(t)
	channel := createTestUser(t, store, "channel")
	first := createTestUser(t, store, "first")
	second := createTestUser(t, store, "second")

	for _, viewer := range []string{first.ID, second.ID} {
		if _, err := store.ToggleSubscription(channel.ID, viewer); err != nil {
			t.Fatalf("ToggleSubscription: %v", err)
		}
	}
	if _, err := store.ToggleSubscription(first.ID, second.ID); err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}

	subscribers, err := store.ListChannelSubscribers(channel.ID)
	if err != nil {
		t.Fatalf("ListChannelSubscribers: %v", err)
	}
	if len(subscribers) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(subscribers))
	}

	channels, err := store.ListSubscribedChannels(second.ID)
	if err != nil {
		t.Fatalf("ListSubscribedChannels: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("expected second to follow 2 channels, got %d", len(channels))
	}

	if _, err := store.ListChannelSubscribers("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.ListSubscribedChannels("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
