package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalService stores photos on the local filesystem under a single
// server-controlled directory. Keys look like "uploads/<uuid>.jpg" and are
// served by the HTTP layer as static files.
type LocalService struct {
	dir string
}

func NewLocalService(dir string) (*LocalService, error) {
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalService{dir: clean}, nil
}

func (s *LocalService) SavePhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := uuid.NewString() + sanitizeExt(filename)
	dst := filepath.Join(s.dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close photo file: %w", err)
	}

	return path.Join("uploads", name), nil
}

func (s *LocalService) RemovePhoto(ctx context.Context, relPath string) error {
	name := strings.TrimPrefix(relPath, "uploads/")
	clean := filepath.Join(s.dir, filepath.Clean("/"+name))
	// never step outside the uploads dir, whatever the stored path says
	if rel, err := filepath.Rel(s.dir, clean); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("photo path %q escapes uploads dir", relPath)
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove photo: %w", err)
	}
	return nil
}

func (s *LocalService) PhotoURL(ctx context.Context, relPath string, expires time.Duration) (string, error) {
	return "/" + strings.TrimPrefix(relPath, "/"), nil
}

// Dir exposes the backing directory so the router can serve it statically.
func (s *LocalService) Dir() string {
	return s.dir
}

var _ Service = (*LocalService)(nil)

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
