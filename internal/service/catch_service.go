package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jellydator/validation"

	"fishlog/internal/domain"
	"fishlog/internal/repository"
)

// CatchInput carries the user-supplied fields of a catch submission.
// Every field is required; the photo and folder are handled separately
// because they are optional.
type CatchInput struct {
	Species     string
	Size        string
	Weight      string
	CatchMethod string
	Location    string
	Date        string
}

func (in CatchInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Species, validation.Required),
		validation.Field(&in.Size, validation.Required),
		validation.Field(&in.Weight, validation.Required),
		validation.Field(&in.CatchMethod, validation.Required),
		validation.Field(&in.Location, validation.Required),
		validation.Field(&in.Date, validation.Required),
	)
}

// CatchService coordinates catch record operations backed by repositories.
type CatchService interface {
	Create(ctx context.Context, ownerID int64, in CatchInput, photoPath string, folderID *int64) (*domain.Catch, error)
	ListByOwner(ctx context.Context, ownerID int64, folderID *int64) ([]domain.Catch, error)
	Delete(ctx context.Context, id, requestingUserID int64) (*domain.Catch, error)
}

type catchService struct {
	catches repository.CatchRepository
	folders repository.FolderRepository
}

func NewCatchService(catches repository.CatchRepository, folders repository.FolderRepository) CatchService {
	return &catchService{
		catches: catches,
		folders: folders,
	}
}

func (s *catchService) Create(ctx context.Context, ownerID int64, in CatchInput, photoPath string, folderID *int64) (*domain.Catch, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if folderID != nil {
		folder, err := s.folders.Get(ctx, *folderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrFolderNotOwned
			}
			return nil, err
		}
		if folder.UserID != ownerID {
			return nil, ErrFolderNotOwned
		}
	}

	c := &domain.Catch{
		UserID:      ownerID,
		Species:     in.Species,
		Size:        in.Size,
		Weight:      in.Weight,
		CatchMethod: in.CatchMethod,
		Location:    in.Location,
		Date:        in.Date,
		PhotoPath:   photoPath,
		FolderID:    folderID,
	}

	if _, err := s.catches.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *catchService) ListByOwner(ctx context.Context, ownerID int64, folderID *int64) ([]domain.Catch, error) {
	return s.catches.ListByOwner(ctx, ownerID, folderID)
}

// Delete checks existence first and ownership second, in that order, before
// removing the row. It returns the removed record so the caller can clean
// up the stored photo. A concurrent delete losing the race surfaces as
// ErrNotFound from the repository's affected-rows check.
func (s *catchService) Delete(ctx context.Context, id, requestingUserID int64) (*domain.Catch, error) {
	c, err := s.catches.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if c.UserID != requestingUserID {
		return nil, ErrForbidden
	}

	if err := s.catches.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}
