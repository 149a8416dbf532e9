package storage

import (
	"errors"
	"testing"
	"time"

	"clipstream/internal/models"
)

func TestToggleLikeFlipsState(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	video := createTestVideo(t, store, alice.ID, "clip")

	liked, err := store.ToggleLike(models.LikeTargetVideo, video.ID, bob.ID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !liked {
		t.Fatalf("expected like on first toggle")
	}
	if count := store.CountLikes(models.LikeTargetVideo, video.ID); count != 1 {
		t.Fatalf("expected 1 like, got %d", count)
	}

	liked, err = store.ToggleLike(models.LikeTargetVideo, video.ID, bob.ID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if liked {
		t.Fatalf("expected unlike on second toggle")
	}
	if count := store.CountLikes(models.LikeTargetVideo, video.ID); count != 0 {
		t.Fatalf("expected 0 likes, got %d", count)
	}
}

func TestToggleLikeValidatesTarget(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")

	if _, err := store.ToggleLike(models.LikeTargetVideo, "missing", alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video, got %v", err)
	}
	if _, err := store.ToggleLike(models.LikeTargetComment, "missing", alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing comment, got %v", err)
	}
	if _, err := store.ToggleLike("channel", "x", alice.ID); err == nil {
		t.Fatalf("expected error for unsupported target")
	}
}

func TestListLikedVideosSkipsUnavailable(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")

	first := createTestVideo(t, store, alice.ID, "first")
	second := createTestVideo(t, store, alice.ID, "second")
	third := createTestVideo(t, store, alice.ID, "third")

	for _, id := range []string{first.ID, second.ID, third.ID} {
		if _, err := store.ToggleLike(models.LikeTargetVideo, id, bob.ID); err != nil {
			t.Fatalf("ToggleLike %s: %v", id, err)
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := store.DeleteVideo(first.ID); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if _, err := store.TogglePublish(second.ID); err != nil {
		t.Fatalf("TogglePublish: %v", err)
	}

	videos, err := store.ListLikedVideos(bob.ID)
	if err != nil {
		t.Fatalf("ListLikedVideos: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != third.ID {
		t.Fatalf("expected only the published survivor, got %v", videos)
	}
}
