package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"clipstream/internal/models"
)

const (
	passwordHashIterations = 120000
	passwordSaltLength     = 16
	passwordKeyLength      = 32
)

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(key)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encoded, password string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return errors.New("unsupported password hash format")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return errors.New("invalid password hash iterations")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return errors.New("invalid password hash salt")
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return errors.New("invalid password hash key")
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	if subtle.ConstantTimeCompare(key, expected) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// AuthenticateUser verifies credentials against the stored hash. The login
// identifier may be either an email address or a username. Lookup misses and
// password mismatches both surface as ErrInvalidCredentials so callers cannot
// distinguish which part failed.
func (s *Storage) AuthenticateUser(identifier, password string) (models.User, error) {
	user, ok := s.FindUserByEmail(identifier)
	if !ok {
		user, ok = s.FindUserByUsername(identifier)
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// SetUserPassword re-hashes and stores a new password after verifying the
// current one.
func (s *Storage) SetUserPassword(userID, currentPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return errors.New("new password is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err := verifyPassword(user.PasswordHash, currentPassword); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	updatedData := cloneDataset(s.data)
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[userID] = user
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}

// SetRefreshToken records the user's current refresh token. Issuing a new
// token replaces the previous one, which invalidates earlier sessions.
func (s *Storage) SetRefreshToken(userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)
	user.RefreshToken = token
	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[userID] = user
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}

// ClearRefreshToken removes the stored refresh token at logout.
func (s *Storage) ClearRefreshToken(userID string) error {
	return s.SetRefreshToken(userID, "")
}
