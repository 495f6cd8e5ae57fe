// Package review implements book reviews: anyone signed in may review a
// book, only the author of a review may edit it, and the author or an
// Admin may delete it.
package review

import (
	"context"
	"strings"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/repository"
)

// Store is the persistence the service needs.
type Store interface {
	ListByBook(ctx context.Context, bookID uint64, p repository.Page) ([]model.ReviewWithUser, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Review, error)
	Create(ctx context.Context, r *model.Review) error
	Update(ctx context.Context, r *model.Review) error
	Delete(ctx context.Context, id uint64) error
}

// BookLookup confirms a book exists.
type BookLookup interface {
	Exists(ctx context.Context, id uint64) error
}

type Service struct {
	store Store
	books BookLookup
}

func NewService(store Store, books BookLookup) *Service {
	return &Service{store: store, books: books}
}

// Input is the editable part of a review.
type Input struct {
	Comment string
	Rating  int
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Comment) == "" {
		return apperr.Validation("comment is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}
	return nil
}

func (s *Service) List(ctx context.Context, bookID uint64, p repository.Page) ([]model.ReviewWithUser, int64, error) {
	if err := s.books.Exists(ctx, bookID); err != nil {
		return nil, 0, err
	}
	return s.store.ListByBook(ctx, bookID, p)
}

func (s *Service) Create(ctx context.Context, userID, bookID uint64, in Input) (model.Review, error) {
	if err := in.validate(); err != nil {
		return model.Review{}, err
	}
	if err := s.books.Exists(ctx, bookID); err != nil {
		return model.Review{}, err
	}
	r := model.Review{BookID: bookID, UserID: userID, Comment: strings.TrimSpace(in.Comment), Rating: in.Rating}
	if err := s.store.Create(ctx, &r); err != nil {
		return model.Review{}, err
	}
	return r, nil
}

// Update edits a review. Only its author may do so.
func (s *Service) Update(ctx context.Context, userID, reviewID uint64, in Input) (model.Review, error) {
	r, err := s.store.GetByID(ctx, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if r.UserID != userID {
		return model.Review{}, apperr.Forbidden("forbidden")
	}
	if err := in.validate(); err != nil {
		return model.Review{}, err
	}
	r.Comment, r.Rating = strings.TrimSpace(in.Comment), in.Rating
	if err := s.store.Update(ctx, &r); err != nil {
		return model.Review{}, err
	}
	return r, nil
}

// Delete removes a review written by userID, or any review for an Admin.
func (s *Service) Delete(ctx context.Context, userID uint64, role string, reviewID uint64) error {
	r, err := s.store.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.UserID != userID && role != model.RoleAdmin {
		return apperr.Forbidden("forbidden")
	}
	return s.store.Delete(ctx, reviewID)
}
