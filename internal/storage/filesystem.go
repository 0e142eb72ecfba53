// Package storage persists generated video artifacts on the local
// filesystem under a fixed, per-conversation key scheme.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ArtifactStore writes finished renders to disk. Artifacts are addressed by
// deterministic keys, so re-running a job for the same conversation
// overwrites the previous file instead of accumulating copies.
type ArtifactStore struct {
	basePath string
}

// NewArtifactStore initializes a store rooted at basePath, creating it when
// missing.
func NewArtifactStore(basePath string) (*ArtifactStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &ArtifactStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *ArtifactStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// VideoKey builds the storage key for a conversation's render:
// <pipeline label>/<chat id>/output.mp4.
func VideoKey(pipelineLabel, chatID string) string {
	return path.Join(pipelineLabel, chatID, "output.mp4")
}

// WriteVideo persists a finished render for the given pipeline and chat and
// returns the public URL path of the artifact, rooted at /videos/.
func (s *ArtifactStore) WriteVideo(ctx context.Context, pipelineLabel, chatID string, data []byte) (string, error) {
	key, err := s.Write(ctx, VideoKey(pipelineLabel, chatID), data)
	if err != nil {
		return "", err
	}
	return "/videos/" + key, nil
}

// Write persists the provided bytes at the given relative key and returns the
// canonicalized storage key. Keys are cleaned to prevent directory traversal.
func (s *ArtifactStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
