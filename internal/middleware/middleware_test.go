package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lifecycle/internal/config"
	"github.com/iliyamo/library-lifecycle/internal/middleware"
	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/policy"
	"github.com/iliyamo/library-lifecycle/internal/utils"
)

const secret = "mw-secret"

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuthAndCapability(t *testing.T) {
	e := echo.New()
	g := e.Group("/v1", middleware.JWTAuth(secret))
	g.POST("/books", func(c echo.Context) error {
		id, ok := middleware.UserID(c)
		require.True(t, ok)
		return c.JSON(http.StatusCreated, echo.Map{"user_id": id, "role": middleware.Role(c)})
	}, middleware.RequireCapability(policy.Default(), policy.ManageBooks))

	rec := serve(e, http.MethodPost, "/v1/books", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = serve(e, http.MethodPost, "/v1/books", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())

	other, err := utils.NewAccessToken("another-secret", 2, model.RoleLibrarian, 5)
	require.NoError(t, err)
	rec = serve(e, http.MethodPost, "/v1/books", "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodPost, "/v1/books", token(t, 7, model.RoleMember))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	rec = serve(e, http.MethodPost, "/v1/books", token(t, 2, model.RoleLibrarian))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"user_id":2,"role":"Librarian"}`, rec.Body.String())
}

func TestResponseCache_LocalFallback(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "test:cache",
		MaxBodyBytes: 1 << 20,
		LocalEntries: 16,
	}
	rc := middleware.NewResponseCache(cfg, nil, zerolog.Nop())

	calls := 0
	title := "Dune"
	e := echo.New()
	e.GET("/v1/books", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"title": title})
	}, rc.Middleware())
	e.GET("/v1/missing", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
	}, rc.Middleware())
	e.PUT("/v1/books/1", func(c echo.Context) error {
		title = "Dune Messiah"
		return c.NoContent(http.StatusNoContent)
	}, rc.Invalidate())
	e.PUT("/v1/books/2", func(c echo.Context) error {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed"})
	}, rc.Invalidate())

	rec := serve(e, http.MethodGet, "/v1/books", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = serve(e, http.MethodGet, "/v1/books", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"title":"Dune"}`, rec.Body.String())
	assert.Equal(t, 1, calls)

	// a different query is a different page
	serve(e, http.MethodGet, "/v1/books?page=2", "")
	assert.Equal(t, 2, calls)

	// failed writes keep the cache
	serve(e, http.MethodPut, "/v1/books/2", "")
	serve(e, http.MethodGet, "/v1/books", "")
	assert.Equal(t, 2, calls)

	serve(e, http.MethodPut, "/v1/books/1", "")
	rec = serve(e, http.MethodGet, "/v1/books", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"title":"Dune Messiah"}`, rec.Body.String())
	assert.Equal(t, 3, calls)

	// errors are never cached
	serve(e, http.MethodGet, "/v1/missing", "")
	serve(e, http.MethodGet, "/v1/missing", "")
	assert.Equal(t, 5, calls)
}

func TestResponseCache_Disabled(t *testing.T) {
	rc := middleware.NewResponseCache(config.CacheConfig{Enabled: false}, nil, zerolog.Nop())
	calls := 0
	e := echo.New()
	e.GET("/v1/authors", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, rc.Middleware())

	serve(e, http.MethodGet, "/v1/authors", "")
	rec := serve(e, http.MethodGet, "/v1/authors", "")
	assert.Equal(t, 2, calls)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRateLimit_PassesWithoutRedis(t *testing.T) {
	mw := middleware.NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, zerolog.Nop())
	e := echo.New()
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/healthz", "").Code)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(middleware.RequestLogger(zerolog.New(&buf)))
	g := e.Group("/v1", middleware.JWTAuth(secret))
	g.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	serve(e, http.MethodGet, "/v1/me", token(t, 9, model.RoleMember))
	line := buf.String()
	assert.Contains(t, line, `"level":"info"`)
	assert.Contains(t, line, `"route":"/v1/me"`)
	assert.Contains(t, line, `"user_id":9`)

	buf.Reset()
	rec := serve(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, strings.Contains(buf.String(), `"level":"warn"`), buf.String())
}
