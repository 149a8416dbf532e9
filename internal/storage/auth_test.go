package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	encoded, err := hashPassword("hunter2 but longer")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if !strings.HasPrefix(encoded, "pbkdf2$sha256$") {
		t.Fatalf("unexpected hash format %q", encoded)
	}
	if strings.Contains(encoded, "hunter2") {
		t.Fatalf("plaintext leaked into hash")
	}
	if err := verifyPassword(encoded, "hunter2 but longer"); err != nil {
		t.Fatalf("verifyPassword: %v", err)
	}
	if err := verifyPassword(encoded, "hunter3 but longer"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	again, err := hashPassword("hunter2 but longer")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if again == encoded {
		t.Fatalf("expected distinct salts per hash")
	}

	if err := verifyPassword("bcrypt$whatever", "x"); err == nil {
		t.Fatalf("expected error for foreign hash format")
	}
}

func TestAuthenticateUserAcceptsEmailOrUsername(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")

	byEmail, err := store.AuthenticateUser("alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}
	if byEmail.ID != alice.ID {
		t.Fatalf("expected user %s, got %s", alice.ID, byEmail.ID)
	}

	byUsername, err := store.AuthenticateUser("Alice", "correct horse battery")
	if err != nil {
		t.Fatalf("authenticate by username: %v", err)
	}
	if byUsername.ID != alice.ID {
		t.Fatalf("expected user %s, got %s", alice.ID, byUsername.ID)
	}
}

func TestAuthenticateUserRejectsBadCredentials(t *testing.T) {
	store := newTestStore(t)
	createTestUser(t, store, "alice")

	if _, err := store.AuthenticateUser("alice", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := store.AuthenticateUser("nobody@example.com", "correct horse battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestSetUserPasswordVerifiesCurrent(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")

	if err := store.SetUserPassword(alice.ID, "wrong password", "replacement secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := store.SetUserPassword(alice.ID, "correct horse battery", "replacement secret"); err != nil {
		t.Fatalf("SetUserPassword: %v", err)
	}
	if _, err := store.AuthenticateUser("alice", "replacement secret"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if _, err := store.AuthenticateUser("alice", "correct horse battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to stop working, got %v", err)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice")

	if err := store.SetRefreshToken(alice.ID, "token-one"); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}
	user, _ := store.GetUser(alice.ID)
	if user.RefreshToken != "token-one" {
		t.Fatalf("expected stored refresh token, got %q", user.RefreshToken)
	}

	if err := store.ClearRefreshToken(alice.ID); err != nil {
		t.Fatalf("ClearRefreshToken: %v", err)
	}
	user, _ = store.GetUser(alice.ID)
	if user.RefreshToken != "" {
		t.Fatalf("expected refresh token cleared, got %q", user.RefreshToken)
	}

	if err := store.SetRefreshToken("missing", "token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}
