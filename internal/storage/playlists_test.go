package storage

import (
	"errors"
	"testing"
	"time"
)

func TestCreatePlaylistValidation(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")

	if _, err := store.CreatePlaylist(alice.ID, "  ", ""); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := store.CreatePlaylist("missing", "watch later", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing owner, got %v", err)
	}

	playlist, err := store.CreatePlaylist(alice.ID, " Watch Later ", " queue ")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if playlist.Name != "Watch Later" || playlist.Description != "queue" {
		t.Fatalf("expected trimmed fields, got %q %q", playlist.Name, playlist.Description)
	}
	if playlist.VideoIDs == nil || len(playlist.VideoIDs) != 0 {
		t.Fatalf("expected empty video list, got %v", playlist.VideoIDs)
	}
}

func TestListPlaylistsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")

	if _, err := store.CreatePlaylist(alice.ID, "older", ""); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	time.Sleep(time.Millisecond)
	newer, err := store.CreatePlaylist(alice.ID, "newer", "")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if _, err := store.CreatePlaylist(bob.ID, "other", ""); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	playlists, err := store.ListPlaylists(alice.ID)
	if err != nil {
		t.Fatalf("ListPlaylists: %v", err)
	}
	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}
	if playlists[0].ID != newer.ID {
		t.Fatalf("expected newest playlist first")
	}

	if _, err := store.ListPlaylists("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaylistMembership(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")
	video := createTestVideo(t, store, alice.ID, "clip")
	playlist, err := store.CreatePlaylist(alice.ID, "favs", "")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	updated, err := store.AddVideoToPlaylist(playlist.ID, video.ID)
	if err != nil {
		t.Fatalf("AddVideoToPlaylist: %v", err)
	}
	if len(updated.VideoIDs) != 1 || updated.VideoIDs[0] != video.ID {
		t.Fatalf("unexpected playlist contents %v", updated.VideoIDs)
	}

	if _, err := store.AddVideoToPlaylist(playlist.ID, video.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate add, got %v", err)
	}
	if _, err := store.AddVideoToPlaylist(playlist.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video, got %v", err)
	}
	if _, err := store.AddVideoToPlaylist("missing", video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing playlist, got %v", err)
	}

	updated, err = store.RemoveVideoFromPlaylist(playlist.ID, video.ID)
	if err != nil {
		t.Fatalf("RemoveVideoFromPlaylist: %v", err)
	}
	if len(updated.VideoIDs) != 0 {
		t.Fatalf("expected video removed, got %v", updated.VideoIDs)
	}
	if _, err := store.RemoveVideoFromPlaylist(playlist.ID, video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent video, got %v", err)
	}
}

func TestUpdateAndDeletePlaylist(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")
	playlist, err := store.CreatePlaylist(alice.ID, "favs", "")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	name := "renamed"
	description := "new description"
	updated, err := store.UpdatePlaylist(playlist.ID, PlaylistUpdate{Name: &name, Description: &description})
	if err != nil {
		t.Fatalf("UpdatePlaylist: %v", err)
	}
	if updated.Name != "renamed" || updated.Description != "new description" {
		t.Fatalf("unexpected playlist %q %q", updated.Name, updated.Description)
	}

	empty := ""
	if _, err := store.UpdatePlaylist(playlist.ID, PlaylistUpdate{Name: &empty}); err == nil {
		t.Fatalf("expected error for empty name")
	}

	if err := store.DeletePlaylist(playlist.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if err := store.DeletePlaylist(playlist.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
