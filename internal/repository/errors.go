// Package repository holds the MySQL data access layer. Every repo works
// on a *sqlx.DB for plain reads and exposes ...Tx variants that run inside
// a caller-owned *sqlx.Tx. Driver errors leave this package already
// translated into apperr kinds so handlers never see sql.ErrNoRows or a
// raw MySQL error number.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
)

// MySQL error numbers the repos care about.
const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

// errNoRows stands in for a write that matched no row. The DSN sets
// clientFoundRows, so an UPDATE that changes nothing still counts its row.
var errNoRows = sql.ErrNoRows

// notFound maps sql.ErrNoRows to apperr.NotFound(msg) and passes other
// errors through translate.
func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(msg)
	}
	return translate(err)
}

// translate turns constraint violations into apperr kinds. dup is the
// message used for a duplicate key.
func translate(err error, dup ...string) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDupEntry:
		msg := "duplicate value"
		if len(dup) > 0 {
			msg = dup[0]
		}
		return apperr.Validation(msg)
	case errRowIsReferenced:
		return apperr.Conflict("record is still referenced")
	case errNoReferencedRow:
		return apperr.Validation("referenced record does not exist")
	}
	return err
}

// Page is the pagination window shared by list queries.
type Page struct {
	Page     int
	PageSize int
}

const (
	maxPageSize = 100
	maxPage     = 1_000_000
)

// normalize clamps the window to sane values.
func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Page) limit() uint  { return uint(p.normalize().PageSize) }
func (p Page) offset() uint { n := p.normalize(); return uint((n.Page - 1) * n.PageSize) }
