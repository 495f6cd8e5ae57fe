package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lifecycle/internal/policy"
)

// RequireCapability rejects callers whose role is not granted want by p.
// It must run after JWTAuth.
func RequireCapability(p *policy.Policy, want policy.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !p.Authorize(Role(c), want) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
