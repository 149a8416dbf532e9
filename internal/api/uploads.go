package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"clipstream/internal/media"
)

// errUpstream marks failures talking to the object store so handlers can
// answer 502 instead of blaming the client.
var errUpstream = errors.New("upstream storage failure")

func uploadErrorStatus(err error) int {
	if errors.Is(err, errUpstream) {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

// maxUploadBytes bounds multipart request bodies. Video files dominate this
// limit; metadata fields are negligible.
const maxUploadBytes = 2 << 30

func randomAssetName() (string, error) {
	bytes := make([]byte, 12)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate asset name: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// stageMultipartFile copies an uploaded part to a local temp file so the
// object-store client can read and then discard it.
func stageMultipartFile(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "clipstream-upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("stage uploaded file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

// formFileAsset stages the named multipart file and pushes it to the object
// store under keyPrefix. The second return reports whether the field was
// present at all.
func (h *Handler) formFileAsset(ctx context.Context, r *http.Request, field, keyPrefix string) (media.Asset, bool, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return media.Asset{}, false, nil
	}
	if err != nil {
		return media.Asset{}, false, fmt.Errorf("read %s upload: %w", field, err)
	}
	_ = file.Close()

	if !h.Media.Enabled() {
		return media.Asset{}, true, fmt.Errorf("%w: object storage is not configured", errUpstream)
	}

	localPath, err := stageMultipartFile(header)
	if err != nil {
		return media.Asset{}, true, err
	}

	name, err := randomAssetName()
	if err != nil {
		_ = os.Remove(localPath)
		return media.Asset{}, true, err
	}
	key := keyPrefix + "/" + name + sanitizeExtension(header.Filename)
	contentType := header.Header.Get("Content-Type")

	asset, err := h.Media.UploadFile(ctx, localPath, key, contentType)
	if err != nil {
		return media.Asset{}, true, fmt.Errorf("%w: store %s upload: %v", errUpstream, field, err)
	}
	return asset, true, nil
}

func sanitizeExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
