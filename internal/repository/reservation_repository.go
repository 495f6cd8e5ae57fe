package repository

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-lifecycle/internal/model"
)

// ReservationRepo is the reservation ledger. Dates are stored as DATE
// columns; status is Pending, Confirmed or Cancelled.
type ReservationRepo struct {
	db *sqlx.DB
}

func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = "id, user_id, book_id, reserved_from, reserved_to, status, created_at, updated_at"

type ReservationQuery struct {
	UserID uint64
	BookID uint64
	Status model.ReservationStatus
	Page
}

func (r *ReservationRepo) List(ctx context.Context, q ReservationQuery) ([]model.Reservation, int64, error) {
	ds := dialect.From("reservations").
		Select(goqu.C("id"), goqu.C("user_id"), goqu.C("book_id"), goqu.C("reserved_from"), goqu.C("reserved_to"),
			goqu.C("status"), goqu.C("created_at"), goqu.C("updated_at")).
		Order(goqu.C("id").Desc())
	if q.UserID != 0 {
		ds = ds.Where(goqu.C("user_id").Eq(q.UserID))
	}
	if q.BookID != 0 {
		ds = ds.Where(goqu.C("book_id").Eq(q.BookID))
	}
	if q.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(q.Status)))
	}
	out := []model.Reservation{}
	total, err := selectList(ctx, r.db, ds, q.Page, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id); err != nil {
		return model.Reservation{}, notFound(err, "reservation not found")
	}
	return res, nil
}

// CreateTx inserts res and reads back the stored row.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, book_id, reserved_from, reserved_to, status) VALUES (?, ?, ?, ?, ?)`,
		res.UserID, res.BookID, res.ReservedFrom, res.ReservedTo, string(res.Status))
	if err != nil {
		return translate(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	return tx.GetContext(ctx, res, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
}

func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Reservation, error) {
	var res model.Reservation
	if err := tx.GetContext(ctx, &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id); err != nil {
		return model.Reservation{}, notFound(err, "reservation not found")
	}
	return res, nil
}

func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uint64, status model.ReservationStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "reservation not found")
	}
	return nil
}
