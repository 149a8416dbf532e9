package storage

import (
	"path/filepath"
	"testing"

	"clipstream/internal/models"
)

func newTestStore(t *testing.T) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *Storage, username string) models.User {
	t.Helper()
	user, err := store.CreateUser(CreateUserParams{
		Username: username,
		FullName: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("CreateUser %s: %v", username, err)
	}
	return user
}

func createTestVideo(t *testing.T, store *Storage, ownerID, title string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(CreateVideoParams{
		OwnerID:      ownerID,
		Title:        title,
		VideoURL:     "https://media.example.com/videos/" + title + ".mp4",
		ThumbnailURL: "https://media.example.com/thumbnails/" + title + ".jpg",
		Published:    true,
	})
	if err != nil {
		t.Fatalf("CreateVideo %s: %v", title, err)
	}
	return video
}
