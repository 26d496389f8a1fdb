// Package artifacts persists synthesized report bytes on the local
// filesystem. Paths returned by Write are opaque addresses; callers hold
// them in the report cache and never derive meaning from them.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage is a filesystem-backed implementation of schemas.ArtifactStorage.
type Storage struct {
	dir    string
	logger *zap.Logger
}

// NewStorage ensures the artifact directory exists and returns a storage
// handle rooted there.
func NewStorage(dir string, logger *zap.Logger) (*Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact storage directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	return &Storage{
		dir:    dir,
		logger: logger.Named("artifacts"),
	}, nil
}

// Write persists the bytes under a fresh random name and returns its path.
func (s *Storage) Write(data []byte) (string, error) {
	path := filepath.Join(s.dir, uuid.New().String())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	s.logger.Debug("Artifact written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// Exists reports whether the path still holds a readable artifact.
func (s *Storage) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the artifact bytes at path.
func (s *Storage) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	return data, nil
}
