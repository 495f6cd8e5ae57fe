// Package handler contains the echo HTTP handlers. Handlers bind and
// validate input, call a repository, the review service or the lifecycle
// engine, and map apperr kinds to status codes.
package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/lifecycle"
	"github.com/iliyamo/library-lifecycle/internal/middleware"
	"github.com/iliyamo/library-lifecycle/internal/repository"
)

const dateLayout = "2006-01-02"

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator reports fields by their json names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (v *Validator) Validate(i interface{}) error { return v.v.Struct(i) }

// listResp wraps one page of a listing.
type listResp struct {
	Data     any   `json:"data"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func newList(data any, p repository.Page, total int64) listResp {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return listResp{Data: data, Page: p.Page, PageSize: p.PageSize, Total: total}
}

// pageFrom reads ?page= and ?page_size=; junk values become defaults.
func pageFrom(c echo.Context) repository.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	return repository.Page{Page: page, PageSize: size}
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// parseQueryID reads a positive numeric query parameter.
func parseQueryID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// parseDate parses YYYY-MM-DD as midnight UTC.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
}

// optBool parses an optional boolean query parameter.
func optBool(c echo.Context, name string) *bool {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// actor builds the lifecycle caller from the JWT context.
func actor(c echo.Context) lifecycle.Actor {
	id, _ := middleware.UserID(c)
	return lifecycle.Actor{UserID: id, Role: middleware.Role(c)}
}

// bind decodes the body into req and validates it. The returned error is
// already an *echo.HTTPError.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return &echo.HTTPError{Code: http.StatusUnprocessableEntity, Message: echo.Map{"error": "validation failed", "fields": fields}}
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// fail writes err as {"error": msg}. Untyped errors are logged and
// reported as 500 without detail.
func fail(c echo.Context, log zerolog.Logger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(echo.Map); ok {
			return c.JSON(he.Code, m)
		}
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	}
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("route", c.Path()).Msg("request failed")
	}
	return c.JSON(status, echo.Map{"error": apperr.Message(err)})
}
