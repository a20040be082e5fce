// Package storage keeps copies of generated invoice documents.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/invoicegen/backend/internal/domain/invoice"
)

// ErrInvalidKey is returned for empty keys and keys escaping the archive root
var ErrInvalidKey = errors.New("invalid archive key")

// DocumentArchive stores generated documents under a key
type DocumentArchive interface {
	// Put stores data and returns where it was written
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// DocumentKey builds the archive key of a generated file: <invoice number>/<file name>
func DocumentKey(number, fileName string) string {
	return path.Join(invoice.SanitizeFilename(number), fileName)
}

// cleanKey normalises a slash separated key and rejects traversal
func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
