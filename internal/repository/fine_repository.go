package repository

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-lifecycle/internal/model"
)

// FineRepo is the fine ledger. amount_cents is fixed at insert; only
// paid changes afterwards.
type FineRepo struct {
	db *sqlx.DB
}

func NewFineRepo(db *sqlx.DB) *FineRepo { return &FineRepo{db: db} }

const fineColumns = "id, user_id, borrow_record_id, amount_cents, paid, created_at"

type FineQuery struct {
	UserID uint64
	Paid   *bool
	Page
}

func (r *FineRepo) List(ctx context.Context, q FineQuery) ([]model.Fine, int64, error) {
	ds := dialect.From("fines").
		Select(goqu.C("id"), goqu.C("user_id"), goqu.C("borrow_record_id"), goqu.C("amount_cents"), goqu.C("paid"), goqu.C("created_at")).
		Order(goqu.C("id").Desc())
	if q.UserID != 0 {
		ds = ds.Where(goqu.C("user_id").Eq(q.UserID))
	}
	if q.Paid != nil {
		ds = ds.Where(goqu.C("paid").Eq(*q.Paid))
	}
	out := []model.Fine{}
	total, err := selectList(ctx, r.db, ds, q.Page, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *FineRepo) GetByID(ctx context.Context, id uint64) (model.Fine, error) {
	var f model.Fine
	if err := r.db.GetContext(ctx, &f, `SELECT `+fineColumns+` FROM fines WHERE id = ?`, id); err != nil {
		return model.Fine{}, notFound(err, "fine not found")
	}
	return f, nil
}

func (r *FineRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, f *model.Fine) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO fines (user_id, borrow_record_id, amount_cents, paid, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.UserID, f.BorrowRecordID, f.AmountCents, f.Paid, f.CreatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

func (r *FineRepo) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Fine, error) {
	var f model.Fine
	if err := tx.GetContext(ctx, &f, `SELECT `+fineColumns+` FROM fines WHERE id = ? FOR UPDATE`, id); err != nil {
		return model.Fine{}, notFound(err, "fine not found")
	}
	return f, nil
}

// ListByBorrowRecordTx returns a record's fines oldest first, locked.
func (r *FineRepo) ListByBorrowRecordTx(ctx context.Context, tx *sqlx.Tx, borrowRecordID uint64) ([]model.Fine, error) {
	out := []model.Fine{}
	err := tx.SelectContext(ctx, &out,
		`SELECT `+fineColumns+` FROM fines WHERE borrow_record_id = ? ORDER BY id ASC FOR UPDATE`, borrowRecordID)
	return out, err
}

func (r *FineRepo) MarkPaidTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `UPDATE fines SET paid = TRUE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "fine not found")
	}
	return nil
}
