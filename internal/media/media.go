// Package media stores uploaded video files and images in an S3-compatible
// object store and hands back public URLs for them.
package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// Asset identifies a stored object and the URL clients fetch it from.
type Asset struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Uploader moves local temp files into the object store. UploadFile removes
// the local file after the attempt whether or not the upload succeeded, so
// failed requests never accumulate temp files on disk.
type Uploader interface {
	Enabled() bool
	UploadFile(ctx context.Context, localPath, key, contentType string) (Asset, error)
	Delete(ctx context.Context, key string) error
}

// Config describes the S3-compatible endpoint assets are written to.
type Config struct {
	Endpoint       string
	PublicEndpoint string
	Bucket         string
	Prefix         string
	Region         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	RequestTimeout time.Duration
}

func (cfg Config) requestTimeout() time.Duration {
	if cfg.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return cfg.RequestTimeout
}

// NewUploader builds an uploader for the configured endpoint. When no
// endpoint or bucket is configured it returns a disabled uploader, which lets
// deployments without object storage boot and reject upload endpoints
// gracefully.
func NewUploader(cfg Config) Uploader {
	bucket := strings.TrimSpace(cfg.Bucket)
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if bucket == "" || endpoint == "" {
		return disabledUploader{}
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	if strings.Contains(endpoint, "://") {
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.Host
		}
	}
	baseURL := &url.URL{Scheme: scheme, Host: endpoint}
	if baseURL.Host == "" {
		return disabledUploader{}
	}
	cfg.Bucket = bucket
	return &s3Uploader{
		cfg:        cfg,
		endpoint:   baseURL,
		httpClient: &http.Client{Timeout: cfg.requestTimeout()},
	}
}

type disabledUploader struct{}

func (disabledUploader) Enabled() bool { return false }

func (disabledUploader) UploadFile(ctx context.Context, localPath, key, contentType string) (Asset, error) {
	_ = os.Remove(localPath)
	return Asset{}, fmt.Errorf("object storage is not configured")
}

func (disabledUploader) Delete(ctx context.Context, key string) error { return nil }

type s3Uploader struct {
	cfg        Config
	endpoint   *url.URL
	httpClient *http.Client
}

func (u *s3Uploader) Enabled() bool { return true }

func (u *s3Uploader) UploadFile(ctx context.Context, localPath, key, contentType string) (Asset, error) {
	defer func() {
		_ = os.Remove(localPath)
	}()

	body, err := os.ReadFile(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("read upload file: %w", err)
	}
	return u.upload(ctx, key, contentType, body)
}

func (u *s3Uploader) upload(ctx context.Context, key, contentType string, body []byte) (Asset, error) {
	finalKey := u.applyPrefix(key)
	target := u.objectURL(finalKey)
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), bytes.NewReader(body))
	if err != nil {
		return Asset{}, fmt.Errorf("create upload request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if err := u.signRequest(request, hashSHA256Hex(body)); err != nil {
		return Asset{}, err
	}
	response, err := u.httpClient.Do(request)
	if err != nil {
		return Asset{}, fmt.Errorf("upload object %s: %w", finalKey, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return Asset{}, fmt.Errorf("upload object %s: unexpected status %d", finalKey, response.StatusCode)
	}
	return Asset{Key: finalKey, URL: u.publicURL(finalKey)}, nil
}

func (u *s3Uploader) Delete(ctx context.Context, key string) error {
	finalKey := u.applyPrefix(key)
	target := u.objectURL(finalKey)
	request, err := http.NewRequestWithContext(ctx, http.MethodDelete, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	if err := u.signRequest(request, emptyPayloadHash); err != nil {
		return err
	}
	response, err := u.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", finalKey, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("delete object %s: unexpected status %d", finalKey, response.StatusCode)
}

func (u *s3Uploader) applyPrefix(key string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(key), "/")
	prefix := strings.Trim(strings.TrimSpace(u.cfg.Prefix), "/")
	if prefix == "" {
		return trimmed
	}
	if trimmed == "" {
		return prefix
	}
	if trimmed == prefix || strings.HasPrefix(trimmed, prefix+"/") {
		return trimmed
	}
	return prefix + "/" + trimmed
}

func (u *s3Uploader) objectURL(finalKey string) *url.URL {
	basePath := strings.TrimRight(u.endpoint.Path, "/")
	path := "/" + strings.TrimLeft(u.cfg.Bucket, "/")
	trimmedKey := strings.TrimLeft(finalKey, "/")
	if trimmedKey != "" {
		path += "/" + trimmedKey
	}
	if basePath != "" {
		path = basePath + path
	}
	target := *u.endpoint
	target.Path = path
	return &target
}

// publicURL falls back to the signed endpoint when no public CDN endpoint is
// configured, so assets remain reachable in single-host setups.
func (u *s3Uploader) publicURL(key string) string {
	base := strings.TrimSpace(u.cfg.PublicEndpoint)
	if base == "" {
		base = u.endpoint.Scheme + "://" + u.endpoint.Host + "/" + strings.TrimLeft(u.cfg.Bucket, "/")
	}
	trimmedBase := strings.TrimRight(base, "/")
	trimmedKey := strings.TrimLeft(key, "/")
	if trimmedKey == "" {
		return trimmedBase
	}
	return trimmedBase + "/" + trimmedKey
}
