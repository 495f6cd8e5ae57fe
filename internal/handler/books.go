package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/repository"
)

// BookStore is the catalog persistence used by BookHandler.
type BookStore interface {
	Search(ctx context.Context, q repository.BookQuery) ([]model.BookWithAuthor, int64, error)
	GetByID(ctx context.Context, id uint64) (model.BookWithAuthor, error)
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id uint64) error
	Recommend(ctx context.Context, userID uint64, limit int) ([]model.BookWithAuthor, error)
}

// BookHandler serves the catalog. Status is read-only here; it changes
// only through the lifecycle routes.
type BookHandler struct {
	Books BookStore
	Log   zerolog.Logger
}

func NewBookHandler(books BookStore, log zerolog.Logger) *BookHandler {
	return &BookHandler{Books: books, Log: log}
}

type bookReq struct {
	Title         string `json:"title" validate:"required,max=255"`
	ISBN          string `json:"isbn" validate:"required,max=32"`
	AuthorID      uint64 `json:"author_id" validate:"required"`
	PublishedDate string `json:"published_date" validate:"required,datetime=2006-01-02"`
}

func (r bookReq) book() model.Book {
	published, _ := parseDate(r.PublishedDate)
	return model.Book{
		Title:         strings.TrimSpace(r.Title),
		ISBN:          strings.TrimSpace(r.ISBN),
		AuthorID:      r.AuthorID,
		PublishedDate: published,
	}
}

// List handles GET /v1/books?search=&status=&author_id=.
func (h *BookHandler) List(c echo.Context) error {
	q := repository.BookQuery{
		Search: c.QueryParam("search"),
		Page:   pageFrom(c),
	}
	if s := model.BookStatus(c.QueryParam("status")); s != "" {
		if !s.Valid() {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "status must be Available or Borrowed"})
		}
		q.Status = s
	}
	if c.QueryParam("author_id") != "" {
		id, err := parseQueryID(c, "author_id")
		if err != nil {
			return fail(c, h.Log, err)
		}
		q.AuthorID = id
	}
	books, total, err := h.Books.Search(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newList(books, q.Page, total))
}

func (h *BookHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	b, err := h.Books.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookHandler) Create(c echo.Context) error {
	var req bookReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	b := req.book()
	if err := h.Books.Create(c.Request().Context(), &b); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BookHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req bookReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	b := req.book()
	b.ID = id
	if err := h.Books.Update(c.Request().Context(), &b); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Books.Delete(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Recommendations handles GET /v1/me/recommendations.
func (h *BookHandler) Recommendations(c echo.Context) error {
	a := actor(c)
	books, err := h.Books.Recommend(c.Request().Context(), a.UserID, 10)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": books})
}
