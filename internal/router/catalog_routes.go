package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lifecycle/internal/policy"
)

// RegisterCatalog registers books, authors and reviews. Reads are cached;
// writes purge the cache.
func RegisterCatalog(g *echo.Group, d Deps) {
	// ---- Books ----
	g.GET("/books", d.Books.List, cached(d))
	g.GET("/books/:id", d.Books.Get, cached(d))
	g.POST("/books", d.Books.Create, can(d, policy.ManageBooks), purges(d))
	g.PUT("/books/:id", d.Books.Update, can(d, policy.ManageBooks), purges(d))
	g.DELETE("/books/:id", d.Books.Delete, can(d, policy.DeleteBooks), purges(d))

	// ---- Authors ----
	g.GET("/authors", d.Authors.List, cached(d))
	g.GET("/authors/:id", d.Authors.Get, cached(d))
	g.POST("/authors", d.Authors.Create, can(d, policy.ManageAuthors), purges(d))
	g.PUT("/authors/:id", d.Authors.Update, can(d, policy.ManageAuthors), purges(d))
	g.DELETE("/authors/:id", d.Authors.Delete, can(d, policy.DeleteAuthors), purges(d))

	// ---- Reviews ----
	// ownership is checked by the review service
	g.GET("/books/:id/reviews", d.Reviews.List, cached(d))
	g.POST("/books/:id/reviews", d.Reviews.Create, purges(d))
	g.PUT("/reviews/:id", d.Reviews.Update, purges(d))
	g.DELETE("/reviews/:id", d.Reviews.Delete, purges(d))
}
