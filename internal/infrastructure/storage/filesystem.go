package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileSystemArchive writes documents below a base directory
type FileSystemArchive struct {
	basePath string
	logger   *zap.Logger
}

// NewFileSystemArchive creates the base directory if needed
func NewFileSystemArchive(basePath string, logger *zap.Logger) (*FileSystemArchive, error) {
	if basePath == "" {
		basePath = "."
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", basePath, err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemArchive{basePath: abs, logger: logger.Named("archive")}, nil
}

// BasePath returns the absolute archive root
func (a *FileSystemArchive) BasePath() string {
	return a.basePath
}

// Put implements DocumentArchive. The returned location is the file path.
func (a *FileSystemArchive) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath, err := a.resolve(key)
	if err != nil {
		a.logger.Warn("blocked archive key", zap.String("key", key))
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fullPath, err)
	}

	a.logger.Info("document archived",
		zap.String("path", fullPath),
		zap.Int("size", len(data)))
	return fullPath, nil
}

// resolve maps key below the base path and verifies it stays there
func (a *FileSystemArchive) resolve(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, key)
	}

	fullPath := filepath.Join(a.basePath, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(fullPath, a.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return fullPath, nil
}

var _ DocumentArchive = (*FileSystemArchive)(nil)
