package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/handler"
	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/repository"
	"github.com/iliyamo/library-lifecycle/internal/review"
)

type reviewStore struct {
	rows map[uint64]model.Review
}

func (s *reviewStore) ListByBook(_ context.Context, bookID uint64, _ repository.Page) ([]model.ReviewWithUser, int64, error) {
	out := []model.ReviewWithUser{}
	for _, r := range s.rows {
		if r.BookID == bookID {
			out = append(out, model.ReviewWithUser{Review: r, UserName: "Ada"})
		}
	}
	return out, int64(len(out)), nil
}

func (s *reviewStore) GetByID(_ context.Context, id uint64) (model.Review, error) {
	r, ok := s.rows[id]
	if !ok {
		return model.Review{}, apperr.NotFound("review not found")
	}
	return r, nil
}

func (s *reviewStore) Create(_ context.Context, r *model.Review) error {
	r.ID = uint64(len(s.rows) + 1)
	s.rows[r.ID] = *r
	return nil
}

func (s *reviewStore) Update(_ context.Context, r *model.Review) error {
	s.rows[r.ID] = *r
	return nil
}

func (s *reviewStore) Delete(_ context.Context, id uint64) error {
	delete(s.rows, id)
	return nil
}

type bookSet map[uint64]bool

func (b bookSet) Exists(_ context.Context, id uint64) error {
	if !b[id] {
		return apperr.NotFound("book not found")
	}
	return nil
}

func TestReviewHandler(t *testing.T) {
	store := &reviewStore{rows: map[uint64]model.Review{}}
	h := handler.NewReviewHandler(review.NewService(store, bookSet{1: true}), zerolog.Nop())
	e, g := newEcho()
	g.GET("/books/:id/reviews", h.List)
	g.POST("/books/:id/reviews", h.Create)
	g.PUT("/reviews/:id", h.Update)
	g.DELETE("/reviews/:id", h.Delete)
	ada := bearer(t, 7, model.RoleMember)
	bob := bearer(t, 8, model.RoleMember)

	rec := do(e, http.MethodPost, "/v1/books/1/reviews", `{"comment":"Great","rating":5}`, ada)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 7, decode(t, rec)["user_id"])

	rec = do(e, http.MethodPost, "/v1/books/1/reviews", `{"comment":"Great","rating":6}`, ada)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(e, http.MethodPost, "/v1/books/2/reviews", `{"comment":"Great","rating":4}`, ada)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/v1/books/1/reviews", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = do(e, http.MethodPut, "/v1/reviews/1", `{"comment":"Mine now","rating":1}`, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(e, http.MethodDelete, "/v1/reviews/1", "", bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPut, "/v1/reviews/1", `{"comment":"Still great","rating":4}`, ada)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Still great", decode(t, rec)["comment"])

	rec = do(e, http.MethodDelete, "/v1/reviews/1", "", bearer(t, 1, model.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.rows)
}
