package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/repository"
)

// UserStore is the account persistence shared by UserHandler and
// AuthHandler.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, q repository.UserQuery) ([]model.User, int64, error)
	Update(ctx context.Context, u *model.User, password string) error
	Delete(ctx context.Context, id uint64) error
}

// UserHandler is the Admin account management surface.
type UserHandler struct {
	Users UserStore
	Log   zerolog.Logger
}

func NewUserHandler(users UserStore, log zerolog.Logger) *UserHandler {
	return &UserHandler{Users: users, Log: log}
}

type createUserReq struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=Admin Librarian Member"`
}

// updateUserReq leaves the password unchanged when it is empty.
type updateUserReq struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=Admin Librarian Member"`
}

// List handles GET /v1/users?search=&role=.
func (h *UserHandler) List(c echo.Context) error {
	q := repository.UserQuery{Search: c.QueryParam("search"), Page: pageFrom(c)}
	if r := c.QueryParam("role"); r != "" {
		if !model.ValidRole(r) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "role must be Admin, Librarian or Member"})
		}
		q.Role = r
	}
	users, total, err := h.Users.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newList(users, q.Page, total))
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	u := model.User{Name: req.Name, Email: req.Email, Role: req.Role}
	if err := h.Users.Create(c.Request().Context(), &u, req.Password); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	u := model.User{ID: id, Name: req.Name, Email: req.Email, Role: req.Role}
	if err := h.Users.Update(c.Request().Context(), &u, req.Password); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
