package storage

import (
	"context"
	"io"
	"time"
)

// Service persists uploaded catch photos. SavePhoto returns the relative
// path (or object key) recorded on the catch; the record never stores the
// photo bytes themselves.
type Service interface {
	SavePhoto(ctx context.Context, filename string, r io.Reader) (string, error)
	RemovePhoto(ctx context.Context, relPath string) error
	PhotoURL(ctx context.Context, relPath string, expires time.Duration) (string, error)
}
