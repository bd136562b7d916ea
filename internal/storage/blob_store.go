package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"brandsim/server/internal/config"
	"brandsim/server/internal/models"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._/-]`)

// FileBlobStore writes uploaded images to a local directory served under a public base URL
type FileBlobStore struct {
	directory string
	baseURL   string
	maxBytes  int64
}

func NewFileBlobStore(cfg config.BlobConfig) (*FileBlobStore, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileBlobStore{
		directory: cfg.Directory,
		baseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:  cfg.MaxBytes,
	}, nil
}

// Directory is the root the public URLs are served from.
func (s *FileBlobStore) Directory() string {
	return s.directory
}

// Upload decodes a base64 payload (raw or data URL), stores it under key with an
// extension derived from its content and returns its public URL.
func (s *FileBlobStore) Upload(ctx context.Context, key string, payload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := decodeBase64Payload(payload)
	if err != nil {
		return "", fmt.Errorf("%w: image is not valid base64", models.ErrValidation)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image is empty", models.ErrValidation)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: image exceeds %d bytes", models.ErrValidation, s.maxBytes)
	}

	name, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	name += mimetype.Detect(data).Extension()

	fullPath := filepath.Join(s.directory, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

func decodeBase64Payload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(payload)
	}
	return data, nil
}

func sanitizeKey(key string) (string, error) {
	cleaned := path.Clean("/" + unsafeKeyChars.ReplaceAllString(key, "_"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return cleaned, nil
}
