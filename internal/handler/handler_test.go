package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lifecycle/internal/handler"
	"github.com/iliyamo/library-lifecycle/internal/middleware"
	"github.com/iliyamo/library-lifecycle/internal/utils"
)

const testSecret = "test-secret"

// newEcho returns an echo instance with the validator and a JWT-protected
// /v1 group.
func newEcho() (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.Validator = handler.NewValidator()
	return e, e.Group("/v1", middleware.JWTAuth(testSecret))
}

func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

// do sends a JSON request; auth may be empty.
func do(e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
