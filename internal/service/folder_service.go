package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jellydator/validation"

	"fishlog/internal/domain"
	"fishlog/internal/repository"
)

// FolderService manages catch folders.
type FolderService interface {
	Create(ctx context.Context, ownerID int64, name string) (*domain.Folder, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Folder, error)
	Delete(ctx context.Context, id, requestingUserID int64) error
}

type folderService struct {
	folders repository.FolderRepository
}

func NewFolderService(folders repository.FolderRepository) FolderService {
	return &folderService{folders: folders}
}

func (s *folderService) Create(ctx context.Context, ownerID int64, name string) (*domain.Folder, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name,
		validation.Required.Error("folder name is required"),
		validation.Length(1, 128),
	); err != nil {
		return nil, fmt.Errorf("%w: name: %v", ErrValidation, err)
	}

	f := &domain.Folder{
		UserID: ownerID,
		Name:   name,
	}
	if _, err := s.folders.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *folderService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Folder, error) {
	return s.folders.ListByOwner(ctx, ownerID)
}

// Delete authorizes in two steps (existence, then ownership) and then runs
// the clear-then-delete cascade in the repository.
func (s *folderService) Delete(ctx context.Context, id, requestingUserID int64) error {
	f, err := s.folders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if f.UserID != requestingUserID {
		return ErrForbidden
	}

	if err := s.folders.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
