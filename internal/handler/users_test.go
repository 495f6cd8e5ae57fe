package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lifecycle/internal/handler"
	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/repository"
)

type listingUsers struct {
	fakeUsers
	q        repository.UserQuery
	password string
}

func (l *listingUsers) List(_ context.Context, q repository.UserQuery) ([]model.User, int64, error) {
	l.q = q
	return []model.User{}, 0, nil
}

func (l *listingUsers) Update(_ context.Context, u *model.User, password string) error {
	l.password = password
	return nil
}

func TestUserHandler(t *testing.T) {
	users := &listingUsers{fakeUsers: fakeUsers{byID: map[uint64]model.User{}}}
	h := handler.NewUserHandler(users, zerolog.Nop())
	e, g := newEcho()
	g.GET("/users", h.List)
	g.POST("/users", h.Create)
	g.PUT("/users/:id", h.Update)
	admin := bearer(t, 1, model.RoleAdmin)

	rec := do(e, http.MethodGet, "/v1/users?role=Librarian&search=ada", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Librarian", users.q.Role)
	assert.Equal(t, "ada", users.q.Search)

	rec = do(e, http.MethodGet, "/v1/users?role=Owner", "", admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(e, http.MethodPost, "/v1/users", `{"name":"Lin","email":"lin@example.com","password":"longenough","role":"Librarian"}`, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Librarian", decode(t, rec)["role"])

	rec = do(e, http.MethodPost, "/v1/users", `{"name":"Lin","email":"lin2@example.com","password":"longenough","role":"Owner"}`, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// an empty password keeps the current one
	rec = do(e, http.MethodPut, "/v1/users/1", `{"name":"Lin","email":"lin@example.com","role":"Admin"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, users.password)
}
