// Package router wires handlers, JWT authentication, capability checks and
// the response cache onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lifecycle/internal/handler"
	"github.com/iliyamo/library-lifecycle/internal/middleware"
	"github.com/iliyamo/library-lifecycle/internal/policy"
)

// Deps groups everything the routes need.
type Deps struct {
	JWTSecret string
	Policy    *policy.Policy
	Cache     *middleware.ResponseCache // nil disables response caching
	DB        handler.Pinger

	Auth      *handler.AuthHandler
	Books     *handler.BookHandler
	Authors   *handler.AuthorHandler
	Reviews   *handler.ReviewHandler
	Users     *handler.UserHandler
	Ledgers   *handler.LedgerHandler
	Lifecycle *handler.LifecycleHandler
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
}

// RegisterAuth registers the session endpoints under /v1/auth and returns
// the JWT-protected /v1 group the other registrars build on.
func RegisterAuth(e *echo.Echo, d Deps) *echo.Group {
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	// rotates the refresh token
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/refresh-access", d.Auth.RefreshAccess)
	// outside JWTAuth so a refresh token alone can end a session
	g.POST("/logout", d.Auth.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	auth.GET("/me", d.Auth.Me)
	return auth
}

// Register mounts every route on e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d)
	v1 := RegisterAuth(e, d)
	RegisterCatalog(v1, d)
	RegisterLifecycle(v1, d)
	RegisterAccounts(v1, d)
}

// can is shorthand for a capability check on one route.
func can(d Deps, want policy.Capability) echo.MiddlewareFunc {
	return middleware.RequireCapability(d.Policy, want)
}

func cached(d Deps) echo.MiddlewareFunc {
	if d.Cache == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return d.Cache.Middleware()
}

// purges drops cached catalog pages after a successful write.
func purges(d Deps) echo.MiddlewareFunc {
	if d.Cache == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return d.Cache.Invalidate()
}
