package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lifecycle/internal/policy"
)

// RegisterAccounts registers Admin user management.
func RegisterAccounts(g *echo.Group, d Deps) {
	g.GET("/users", d.Users.List, can(d, policy.ViewUsers))
	g.GET("/users/:id", d.Users.Get, can(d, policy.ViewUsers))
	g.POST("/users", d.Users.Create, can(d, policy.ManageUsers))
	g.PUT("/users/:id", d.Users.Update, can(d, policy.ManageUsers))
	g.DELETE("/users/:id", d.Users.Delete, can(d, policy.DeleteUsers))
}
