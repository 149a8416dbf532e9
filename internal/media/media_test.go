package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stageFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.bin")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write staged file: %v", err)
	}
	return path
}

func TestUploadFileSignsAndRemovesStagedFile(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	uploader := NewUploader(Config{
		Endpoint:  server.URL,
		Bucket:    "clips",
		Prefix:    "uploads",
		AccessKey: "AKIATEST",
		SecretKey: "secret",
	})
	if !uploader.Enabled() {
		t.Fatalf("expected uploader enabled")
	}

	staged := stageFile(t, "video-bytes")
	asset, err := uploader.UploadFile(context.Background(), staged, "videos/clip.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Fatalf("expected PUT, got %s", gotMethod)
	}
	if gotPath != "/clips/uploads/videos/clip.mp4" {
		t.Fatalf("unexpected object path %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKIATEST/") {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotBody != "video-bytes" {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if asset.Key != "uploads/videos/clip.mp4" {
		t.Fatalf("unexpected asset key %q", asset.Key)
	}
	if asset.URL != server.URL+"/clips/uploads/videos/clip.mp4" {
		t.Fatalf("unexpected asset URL %q", asset.URL)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected staged file removed, stat err=%v", err)
	}
}

func TestUploadFileRemovesStagedFileOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	uploader := NewUploader(Config{Endpoint: server.URL, Bucket: "clips"})
	staged := stageFile(t, "doomed")

	if _, err := uploader.UploadFile(context.Background(), staged, "videos/clip.mp4", "video/mp4"); err == nil {
		t.Fatalf("expected error for upstream failure")
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected staged file removed after failure, stat err=%v", err)
	}
}

func TestUploadFilePublicEndpointOverridesURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	uploader := NewUploader(Config{
		Endpoint:       server.URL,
		Bucket:         "clips",
		PublicEndpoint: "https://cdn.example.com/clips/",
	})
	staged := stageFile(t, "payload")

	asset, err := uploader.UploadFile(context.Background(), staged, "clip.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if asset.URL != "https://cdn.example.com/clips/clip.mp4" {
		t.Fatalf("unexpected public URL %q", asset.URL)
	}
}

func TestDeleteIssuesSignedDelete(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	uploader := NewUploader(Config{Endpoint: server.URL, Bucket: "clips"})
	if err := uploader.Delete(context.Background(), "videos/clip.mp4"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", gotMethod)
	}
	if gotPath != "/clips/videos/clip.mp4" {
		t.Fatalf("unexpected object path %q", gotPath)
	}
}

func TestDisabledUploaderRemovesStagedFile(t *testing.T) {
	uploader := NewUploader(Config{})
	if uploader.Enabled() {
		t.Fatalf("expected uploader disabled without configuration")
	}

	staged := stageFile(t, "orphan")
	if _, err := uploader.UploadFile(context.Background(), staged, "clip.mp4", "video/mp4"); err == nil {
		t.Fatalf("expected error from disabled uploader")
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected staged file removed, stat err=%v", err)
	}
	if err := uploader.Delete(context.Background(), "clip.mp4"); err != nil {
		t.Fatalf("disabled Delete should be a no-op, got %v", err)
	}
}
