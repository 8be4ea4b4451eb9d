package repository

import (
	"context"

	"fishlog/internal/domain"
)

// CatchRepository exposes persistence operations for catch records.
// ListByOwner returns rows in insertion order (ascending id); that is the
// order the HTTP layer promises to clients.
type CatchRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, c *domain.Catch) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Catch, error)
	ListByOwner(ctx context.Context, ownerID int64, folderID *int64) ([]domain.Catch, error)
	Delete(ctx context.Context, id int64) error
}

// FolderRepository manages catch folders. DeleteCascade must clear the
// folder reference on every catch filed under the folder before removing
// the folder row, inside one transaction.
type FolderRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, f *domain.Folder) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Folder, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Folder, error)
	DeleteCascade(ctx context.Context, id int64) error
}
