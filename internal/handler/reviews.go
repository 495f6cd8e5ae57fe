package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/repository"
	"github.com/iliyamo/library-lifecycle/internal/review"
)

// Reviews is implemented by *review.Service.
type Reviews interface {
	List(ctx context.Context, bookID uint64, p repository.Page) ([]model.ReviewWithUser, int64, error)
	Create(ctx context.Context, userID, bookID uint64, in review.Input) (model.Review, error)
	Update(ctx context.Context, userID, reviewID uint64, in review.Input) (model.Review, error)
	Delete(ctx context.Context, userID uint64, role string, reviewID uint64) error
}

type ReviewHandler struct {
	Reviews Reviews
	Log     zerolog.Logger
}

func NewReviewHandler(reviews Reviews, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Log: log}
}

type reviewReq struct {
	Comment string `json:"comment" validate:"required,max=2000"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
}

// List handles GET /v1/books/:id/reviews.
func (h *ReviewHandler) List(c echo.Context) error {
	bookID, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	p := pageFrom(c)
	reviews, total, err := h.Reviews.List(c.Request().Context(), bookID, p)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newList(reviews, p, total))
}

// Create handles POST /v1/books/:id/reviews.
func (h *ReviewHandler) Create(c echo.Context) error {
	bookID, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	r, err := h.Reviews.Create(c.Request().Context(), actor(c).UserID, bookID, review.Input{Comment: req.Comment, Rating: req.Rating})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Update handles PUT /v1/reviews/:id.
func (h *ReviewHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	r, err := h.Reviews.Update(c.Request().Context(), actor(c).UserID, id, review.Input{Comment: req.Comment, Rating: req.Rating})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Delete handles DELETE /v1/reviews/:id.
func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	a := actor(c)
	if err := h.Reviews.Delete(c.Request().Context(), a.UserID, a.Role, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
