package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/invoicegen/backend/internal/domain/invoice"
)

// FileCounter keeps the invoice sequence as a single integer in a text file
type FileCounter struct {
	path string
	mu   sync.Mutex
}

// NewFileCounter creates a counter backed by the file at path
func NewFileCounter(path string) *FileCounter {
	return &FileCounter{path: path}
}

// Current returns the stored value. A missing or unparsable file reads as 0.
func (c *FileCounter) Current(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read invoice counter %s: %w", c.path, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Store overwrites the file with n
func (c *FileCounter) Store(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create counter directory: %w", err)
		}
	}
	if err := os.WriteFile(c.path, []byte(strconv.Itoa(n)), 0o644); err != nil {
		return fmt.Errorf("write invoice counter %s: %w", c.path, err)
	}
	return nil
}

var _ invoice.Counter = (*FileCounter)(nil)
