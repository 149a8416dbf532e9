package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"clipstream/internal/auth"
	"clipstream/internal/models"
	"clipstream/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	tokens, err := auth.NewIssuer(auth.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return NewHandler(store, tokens, nil, nil), store
}

func createAccount(t *testing.T, store *storage.Storage, username string) models.User {
	t.Helper()
	user, err := store.CreateUser(storage.CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("CreateUser %s: %v", username, err)
	}
	return user
}

func publishedVideo(t *testing.T, store *storage.Storage, ownerID, title string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(storage.CreateVideoParams{
		OwnerID:      ownerID,
		Title:        title,
		VideoURL:     "https://cdn.example.com/" + title + ".mp4",
		ThumbnailURL: "https://cdn.example.com/" + title + ".jpg",
		Published:    true,
	})
	if err != nil {
		t.Fatalf("CreateVideo %s: %v", title, err)
	}
	return video
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, user models.User) *http.Request {
	return req.WithContext(ContextWithUser(req.Context(), user))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func findCookie(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("cookie %s not found", name)
	return nil
}
