package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lifecycle/internal/policy"
)

// RegisterLifecycle registers borrowing, reservations and fines. The
// engine authorizes its own operations, so the write routes carry no
// capability middleware; the ledger listings do.
func RegisterLifecycle(g *echo.Group, d Deps) {
	// status changes show up in the cached book pages
	g.POST("/books/:id/borrow", d.Lifecycle.Borrow, purges(d))
	g.POST("/books/:id/return", d.Lifecycle.Return, purges(d))
	g.POST("/books/:id/reservations", d.Lifecycle.Reserve)
	g.PATCH("/reservations/:id", d.Lifecycle.SetReservationStatus, purges(d))
	g.POST("/borrow-records/:id/fine", d.Lifecycle.CalculateFine)
	g.POST("/fines/:id/pay", d.Lifecycle.PayFine)

	g.GET("/borrow-records", d.Ledgers.ListBorrowRecords, can(d, policy.ViewBorrowRecords))
	g.GET("/borrow-records/:id", d.Ledgers.GetBorrowRecord, can(d, policy.ViewBorrowRecords))
	g.GET("/reservations", d.Ledgers.ListReservations, can(d, policy.ManageReservations))
	g.GET("/reservations/:id", d.Ledgers.GetReservation, can(d, policy.ManageReservations))
	g.GET("/fines", d.Ledgers.ListFines, can(d, policy.ManageFines))
	g.GET("/fines/:id", d.Ledgers.GetFine, can(d, policy.ManageFines))

	// ---- Self service ----
	g.GET("/me/borrow-records", d.Ledgers.MyBorrowRecords)
	g.GET("/me/reservations", d.Ledgers.MyReservations)
	g.GET("/me/fines", d.Ledgers.MyFines)
	g.GET("/me/recommendations", d.Books.Recommendations)
}
