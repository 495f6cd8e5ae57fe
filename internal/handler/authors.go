package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/repository"
)

type AuthorStore interface {
	List(ctx context.Context, q repository.AuthorQuery) ([]model.Author, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Author, error)
	Create(ctx context.Context, a *model.Author) error
	Update(ctx context.Context, a *model.Author) error
	Delete(ctx context.Context, id uint64) error
}

type AuthorHandler struct {
	Authors AuthorStore
	Log     zerolog.Logger
}

func NewAuthorHandler(authors AuthorStore, log zerolog.Logger) *AuthorHandler {
	return &AuthorHandler{Authors: authors, Log: log}
}

type authorReq struct {
	Name      string `json:"name" validate:"required,max=255"`
	Bio       string `json:"bio" validate:"max=2000"`
	Birthdate string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
}

func (r authorReq) author() model.Author {
	a := model.Author{Name: strings.TrimSpace(r.Name), Bio: strings.TrimSpace(r.Bio)}
	if r.Birthdate != "" {
		if t, err := time.ParseInLocation(dateLayout, r.Birthdate, time.UTC); err == nil {
			a.Birthdate = &t
		}
	}
	return a
}

func (h *AuthorHandler) List(c echo.Context) error {
	q := repository.AuthorQuery{Search: c.QueryParam("search"), Page: pageFrom(c)}
	authors, total, err := h.Authors.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newList(authors, q.Page, total))
}

func (h *AuthorHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	a, err := h.Authors.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AuthorHandler) Create(c echo.Context) error {
	var req authorReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	a := req.author()
	if err := h.Authors.Create(c.Request().Context(), &a); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AuthorHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req authorReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	a := req.author()
	a.ID = id
	if err := h.Authors.Update(c.Request().Context(), &a); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Delete handles DELETE /v1/authors/:id. Authors with books answer 400.
func (h *AuthorHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Authors.Delete(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
