package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/repository"
)

// BorrowRecordReader, ReservationReader and FineReader are the read side
// of the lifecycle ledgers. Writes go through the engine.
type BorrowRecordReader interface {
	List(ctx context.Context, q repository.BorrowRecordQuery) ([]model.BorrowRecord, int64, error)
	GetByID(ctx context.Context, id uint64) (model.BorrowRecord, error)
}

type ReservationReader interface {
	List(ctx context.Context, q repository.ReservationQuery) ([]model.Reservation, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
}

type FineReader interface {
	List(ctx context.Context, q repository.FineQuery) ([]model.Fine, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Fine, error)
}

// LedgerHandler lists borrow records, reservations and fines. The staff
// routes filter by any user; the /me routes pin the filter to the caller.
type LedgerHandler struct {
	Records      BorrowRecordReader
	Reservations ReservationReader
	Fines        FineReader
	Log          zerolog.Logger
}

func NewLedgerHandler(records BorrowRecordReader, reservations ReservationReader, fines FineReader, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{Records: records, Reservations: reservations, Fines: fines, Log: log}
}

// optQueryID returns 0 when name is absent.
func optQueryID(c echo.Context, name string) (uint64, error) {
	if c.QueryParam(name) == "" {
		return 0, nil
	}
	return parseQueryID(c, name)
}

func (h *LedgerHandler) listRecords(c echo.Context, userID uint64) error {
	q := repository.BorrowRecordQuery{UserID: userID, Open: optBool(c, "open"), Page: pageFrom(c)}
	bookID, err := optQueryID(c, "book_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	q.BookID = bookID
	recs, total, err := h.Records.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newList(recs, q.Page, total))
}

// ListBorrowRecords handles GET /v1/borrow-records?user_id=&book_id=&open=.
func (h *LedgerHandler) ListBorrowRecords(c echo.Context) error {
	userID, err := optQueryID(c, "user_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.listRecords(c, userID)
}

func (h *LedgerHandler) MyBorrowRecords(c echo.Context) error {
	return h.listRecords(c, actor(c).UserID)
}

func (h *LedgerHandler) GetBorrowRecord(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	rec, err := h.Records.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *LedgerHandler) listReservations(c echo.Context, userID uint64) error {
	q := repository.ReservationQuery{UserID: userID, Page: pageFrom(c)}
	bookID, err := optQueryID(c, "book_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	q.BookID = bookID
	switch s := model.ReservationStatus(c.QueryParam("status")); s {
	case "":
	case model.ReservationPending, model.ReservationConfirmed, model.ReservationCancelled:
		q.Status = s
	default:
		return fail(c, h.Log, apperr.Validation("status must be Pending, Confirmed or Cancelled"))
	}
	res, total, err := h.Reservations.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newList(res, q.Page, total))
}

// ListReservations handles GET /v1/reservations?user_id=&book_id=&status=.
func (h *LedgerHandler) ListReservations(c echo.Context) error {
	userID, err := optQueryID(c, "user_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.listReservations(c, userID)
}

func (h *LedgerHandler) MyReservations(c echo.Context) error {
	return h.listReservations(c, actor(c).UserID)
}

func (h *LedgerHandler) GetReservation(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	r, err := h.Reservations.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *LedgerHandler) listFines(c echo.Context, userID uint64) error {
	q := repository.FineQuery{UserID: userID, Paid: optBool(c, "paid"), Page: pageFrom(c)}
	fines, total, err := h.Fines.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newList(fines, q.Page, total))
}

// ListFines handles GET /v1/fines?user_id=&paid=.
func (h *LedgerHandler) ListFines(c echo.Context) error {
	userID, err := optQueryID(c, "user_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.listFines(c, userID)
}

func (h *LedgerHandler) MyFines(c echo.Context) error {
	return h.listFines(c, actor(c).UserID)
}

func (h *LedgerHandler) GetFine(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	f, err := h.Fines.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, f)
}
