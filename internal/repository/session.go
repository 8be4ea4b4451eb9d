package repository

import (
	"context"
	"time"

	"fishlog/internal/domain"
)

// SessionRepository maps opaque session ids to users. Delete is idempotent:
// removing an absent session is not an error.
type SessionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
