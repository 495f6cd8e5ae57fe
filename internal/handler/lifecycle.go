package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/lifecycle"
	"github.com/iliyamo/library-lifecycle/internal/model"
)

// LifecycleHandler exposes the engine operations. Authorization happens
// inside the engine, so these routes only need JWTAuth.
type LifecycleHandler struct {
	Engine *lifecycle.Engine
	Log    zerolog.Logger
}

func NewLifecycleHandler(e *lifecycle.Engine, log zerolog.Logger) *LifecycleHandler {
	return &LifecycleHandler{Engine: e, Log: log}
}

// Borrow handles POST /v1/books/:id/borrow.
func (h *LifecycleHandler) Borrow(c echo.Context) error {
	bookID, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	rec, err := h.Engine.Borrow(c.Request().Context(), actor(c), bookID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Book borrowed successfully", "borrow_record": rec})
}

// Return handles POST /v1/books/:id/return.
func (h *LifecycleHandler) Return(c echo.Context) error {
	bookID, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	rec, err := h.Engine.Return(c.Request().Context(), actor(c), bookID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Book returned successfully", "borrow_record": rec})
}

type reserveReq struct {
	ReservedFrom string `json:"reserved_from" validate:"required,datetime=2006-01-02"`
	ReservedTo   string `json:"reserved_to" validate:"required,datetime=2006-01-02"`
}

// Reserve handles POST /v1/books/:id/reservations.
func (h *LifecycleHandler) Reserve(c echo.Context) error {
	bookID, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req reserveReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	from, _ := parseDate(req.ReservedFrom)
	to, _ := parseDate(req.ReservedTo)
	res, err := h.Engine.Reserve(c.Request().Context(), actor(c), lifecycle.ReserveInput{BookID: bookID, From: from, To: to})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type reservationStatusReq struct {
	Status string `json:"status" validate:"required,oneof=Confirmed Cancelled"`
}

// SetReservationStatus handles PATCH /v1/reservations/:id.
func (h *LifecycleHandler) SetReservationStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req reservationStatusReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	res, err := h.Engine.SetReservationStatus(c.Request().Context(), actor(c), id, model.ReservationStatus(req.Status))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CalculateFine handles POST /v1/borrow-records/:id/fine. A new fine
// answers 201, an existing one 200, and a loan that was not late 200
// with a null fine.
func (h *LifecycleHandler) CalculateFine(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	out, err := h.Engine.CalculateFine(c.Request().Context(), actor(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	switch {
	case out.Fine == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "No fine applicable", "fine": nil})
	case out.Created:
		return c.JSON(http.StatusCreated, echo.Map{"message": "Fine calculated", "fine": out.Fine})
	default:
		return c.JSON(http.StatusOK, echo.Map{"message": "Fine already exists", "fine": out.Fine})
	}
}

// PayFine handles POST /v1/fines/:id/pay.
func (h *LifecycleHandler) PayFine(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	fine, err := h.Engine.PayFine(c.Request().Context(), actor(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Fine paid successfully", "fine": fine})
}
