package receipts

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store persists receipt files attached to expenses.
type Store interface {
	// Put stores the content and returns the generated object key.
	Put(ctx context.Context, filename, contentType string, content io.Reader) (string, error)
	// Get opens the stored object. Callers must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	// Delete removes the stored object.
	Delete(ctx context.Context, key string) error
}

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// NewKey builds a unique object key preserving the original extension.
func NewKey(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported receipt file type %q", ext)
	}
	return uuid.NewString() + ext, nil
}
