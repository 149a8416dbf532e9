package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCreateUserNormalizesIdentifiers(t *testing.T) {
	store := newTestStore(t)

	user, err := store.CreateUser(CreateUserParams{
		Username: "  ViewerOne ",
		Email:    " Viewer@Example.COM ",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "viewerone" {
		t.Fatalf("expected lowercased username, got %q", user.Username)
	}
	if user.Email != "viewer@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.FullName != "viewerone" {
		t.Fatalf("expected full name to default to username, got %q", user.FullName)
	}
	if user.PasswordHash == "" || user.PasswordHash == "hunter2hunter2" {
		t.Fatalf("expected hashed password, got %q", user.PasswordHash)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	createTestUser(t, store, "alice")

	_, err := store.CreateUser(CreateUserParams{
		Username: "ALICE",
		Email:    "other@example.com",
		Password: "hunter2hunter2",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	_, err = store.CreateUser(CreateUserParams{
		Username: "bob",
		Email:    "Alice@Example.com",
		Password: "hunter2hunter2",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestUpdateUserUniquenessExcludesSelf(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")
	createTestUser(t, store, "bob")

	sameName := "Alice"
	if _, err := store.UpdateUser(alice.ID, UserUpdate{Username: &sameName}); err != nil {
		t.Fatalf("UpdateUser keeping own username: %v", err)
	}

	taken := "bob"
	if _, err := store.UpdateUser(alice.ID, UserUpdate{Username: &taken}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for taken username, got %v", err)
	}

	if _, err := store.UpdateUser("missing", UserUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestPersistFailureLeavesDataUntouched(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")

	store.persistOverride = func(dataset) error {
		return errors.New("persist failed")
	}

	fullName := "Updated Name"
	if _, err := store.UpdateUser(alice.ID, UserUpdate{FullName: &fullName}); err == nil {
		t.Fatalf("expected UpdateUser error when persist fails")
	}

	current, ok := store.GetUser(alice.ID)
	if !ok {
		t.Fatalf("user missing after failed persist")
	}
	if current.FullName != alice.FullName {
		t.Fatalf("expected full name %q, got %q", alice.FullName, current.FullName)
	}
}

func TestCreateUserPersistFailureLeavesNoPartialUser(t *testing.T) {
	store := newTestStore(t)
	store.persistOverride = func(dataset) error {
		return errors.New("persist failed")
	}

	_, err := store.CreateUser(CreateUserParams{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "hunter2hunter2",
	})
	if err == nil {
		t.Fatalf("expected CreateUser error when persist fails")
	}
	if _, ok := store.FindUserByUsername("carol"); ok {
		t.Fatalf("user visible after failed persist")
	}

	store.persistOverride = nil
	if _, err := store.CreateUser(CreateUserParams{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("retry after failed persist: %v", err)
	}
}

func TestStorageReloadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	alice := createTestUser(t, store, "alice")
	video := createTestVideo(t, store, alice.ID, "first")

	reloaded, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage reload: %v", err)
	}
	if _, ok := reloaded.GetUser(alice.ID); !ok {
		t.Fatalf("expected user to survive reload")
	}
	got, ok := reloaded.GetVideo(video.ID)
	if !ok {
		t.Fatalf("expected video to survive reload")
	}
	if got.Title != "first" {
		t.Fatalf("expected title %q, got %q", "first", got.Title)
	}
}
