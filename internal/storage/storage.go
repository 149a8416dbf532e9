package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clipstream/internal/models"
)

var (
	// ErrNotFound marks lookups for resources that do not exist. Handlers map
	// it to a 404 ahead of any ownership decision.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks uniqueness violations such as duplicate registrations.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredentials is returned when password verification fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type dataset struct {
	Users         map[string]models.User         `json:"users"`
	Videos        map[string]models.Video        `json:"videos"`
	Comments      map[string]models.Comment      `json:"comments"`
	Likes         map[string]models.Like         `json:"likes"`
	Playlists     map[string]models.Playlist     `json:"playlists"`
	Subscriptions map[string]models.Subscription `json:"subscriptions"`
	WatchHistory  map[string][]models.WatchEntry `json:"watchHistory"`
}

func newDataset() dataset {
	return dataset{
		Users:         make(map[string]models.User),
		Videos:        make(map[string]models.Video),
		Comments:      make(map[string]models.Comment),
		Likes:         make(map[string]models.Like),
		Playlists:     make(map[string]models.Playlist),
		Subscriptions: make(map[string]models.Subscription),
		WatchHistory:  make(map[string][]models.WatchEntry),
	}
}

// Storage is the JSON-file-backed repository used for local development and
// tests. Mutations clone the dataset, persist the clone atomically, and only
// then swap it in, so a failed write never leaves partial state behind.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()
	return nil
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
	if s.data.Likes == nil {
		s.data.Likes = make(map[string]models.Like)
	}
	if s.data.Playlists == nil {
		s.data.Playlists = make(map[string]models.Playlist)
	}
	if s.data.Subscriptions == nil {
		s.data.Subscriptions = make(map[string]models.Subscription)
	}
	if s.data.WatchHistory == nil {
		s.data.WatchHistory = make(map[string][]models.WatchEntry)
	}
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		return s.persistOverride(data)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := newDataset()

	for id, user := range src.Users {
		clone.Users[id] = user
	}
	for id, video := range src.Videos {
		cloned := video
		if video.Tags != nil {
			cloned.Tags = append([]string(nil), video.Tags...)
		}
		clone.Videos[id] = cloned
	}
	for id, comment := range src.Comments {
		clone.Comments[id] = comment
	}
	for id, like := range src.Likes {
		clone.Likes[id] = like
	}
	for id, playlist := range src.Playlists {
		cloned := playlist
		if playlist.VideoIDs != nil {
			cloned.VideoIDs = append([]string(nil), playlist.VideoIDs...)
		}
		clone.Playlists[id] = cloned
	}
	for id, sub := range src.Subscriptions {
		clone.Subscriptions[id] = sub
	}
	for userID, entries := range src.WatchHistory {
		clone.WatchHistory[userID] = append([]models.WatchEntry(nil), entries...)
	}

	return clone
}

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// User operations

// CreateUserParams captures the attributes that can be set when registering.
type CreateUserParams struct {
	Username      string
	FullName      string
	Email         string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	username := normalizeUsername(params.Username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	email := normalizeEmail(params.Email)
	if email == "" {
		return models.User{}, errors.New("email is required")
	}
	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		fullName = username
	}
	if params.Password == "" {
		return models.User{}, errors.New("password is required")
	}

	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.data.Users {
		if user.Email == email {
			return models.User{}, fmt.Errorf("email %s: %w", email, ErrConflict)
		}
		if user.Username == username {
			return models.User{}, fmt.Errorf("username %s: %w", username, ErrConflict)
		}
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	user := models.User{
		ID:            id,
		Username:      username,
		FullName:      fullName,
		Email:         email,
		AvatarURL:     strings.TrimSpace(params.AvatarURL),
		CoverImageURL: strings.TrimSpace(params.CoverImageURL),
		PasswordHash:  passwordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}

	s.data = updatedData
	return user, nil
}

func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByEmail looks up a user by their normalized email address.
func (s *Storage) FindUserByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalized := normalizeEmail(email)
	for _, user := range s.data.Users {
		if user.Email == normalized {
			return user, true
		}
	}
	return models.User{}, false
}

// FindUserByUsername looks up a user by their normalized username.
func (s *Storage) FindUserByUsername(username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalized := normalizeUsername(username)
	for _, user := range s.data.Users {
		if user.Username == normalized {
			return user, true
		}
	}
	return models.User{}, false
}

// UserUpdate represents the account fields that can be modified.
type UserUpdate struct {
	Username      *string
	FullName      *string
	Email         *string
	AvatarURL     *string
	CoverImageURL *string
}

// UpdateUser mutates account metadata while enforcing uniqueness constraints.
func (s *Storage) UpdateUser(id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	if update.Username != nil {
		username := normalizeUsername(*update.Username)
		if username == "" {
			return models.User{}, errors.New("username cannot be empty")
		}
		for existingID, existing := range updatedData.Users {
			if existingID != id && existing.Username == username {
				return models.User{}, fmt.Errorf("username %s: %w", username, ErrConflict)
			}
		}
		user.Username = username
	}

	if update.FullName != nil {
		fullName := strings.TrimSpace(*update.FullName)
		if fullName == "" {
			return models.User{}, errors.New("fullName cannot be empty")
		}
		user.FullName = fullName
	}

	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if email == "" {
			return models.User{}, errors.New("email cannot be empty")
		}
		for existingID, existing := range updatedData.Users {
			if existingID != id && existing.Email == email {
				return models.User{}, fmt.Errorf("email %s: %w", email, ErrConflict)
			}
		}
		user.Email = email
	}

	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.CoverImageURL != nil {
		user.CoverImageURL = strings.TrimSpace(*update.CoverImageURL)
	}

	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}

	s.data = updatedData
	return user, nil
}
