package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-lifecycle/internal/model"
)

// BorrowRecordRepo is the loan ledger. Rows are created by a borrow,
// closed by a return and never deleted.
type BorrowRecordRepo struct {
	db *sqlx.DB
}

func NewBorrowRecordRepo(db *sqlx.DB) *BorrowRecordRepo { return &BorrowRecordRepo{db: db} }

const borrowRecordColumns = "id, user_id, book_id, borrowed_at, due_at, returned_at"

// BorrowRecordQuery filters the ledger listing. Open selects records
// still out (true) or already back (false); nil means both.
type BorrowRecordQuery struct {
	UserID uint64
	BookID uint64
	Open   *bool
	Page
}

func (r *BorrowRecordRepo) List(ctx context.Context, q BorrowRecordQuery) ([]model.BorrowRecord, int64, error) {
	ds := dialect.From("borrow_records").
		Select(goqu.C("id"), goqu.C("user_id"), goqu.C("book_id"), goqu.C("borrowed_at"), goqu.C("due_at"), goqu.C("returned_at")).
		Order(goqu.C("id").Desc())
	if q.UserID != 0 {
		ds = ds.Where(goqu.C("user_id").Eq(q.UserID))
	}
	if q.BookID != 0 {
		ds = ds.Where(goqu.C("book_id").Eq(q.BookID))
	}
	if q.Open != nil {
		if *q.Open {
			ds = ds.Where(goqu.C("returned_at").IsNull())
		} else {
			ds = ds.Where(goqu.C("returned_at").IsNotNull())
		}
	}
	out := []model.BorrowRecord{}
	total, err := selectList(ctx, r.db, ds, q.Page, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *BorrowRecordRepo) GetByID(ctx context.Context, id uint64) (model.BorrowRecord, error) {
	var rec model.BorrowRecord
	if err := r.db.GetContext(ctx, &rec, `SELECT `+borrowRecordColumns+` FROM borrow_records WHERE id = ?`, id); err != nil {
		return model.BorrowRecord{}, notFound(err, "borrow record not found")
	}
	return rec, nil
}

// CreateTx inserts rec and sets its generated ID.
func (r *BorrowRecordRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, rec *model.BorrowRecord) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO borrow_records (user_id, book_id, borrowed_at, due_at) VALUES (?, ?, ?, ?)`,
		rec.UserID, rec.BookID, rec.BorrowedAt, rec.DueAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

func (r *BorrowRecordRepo) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.BorrowRecord, error) {
	var rec model.BorrowRecord
	if err := tx.GetContext(ctx, &rec, `SELECT `+borrowRecordColumns+` FROM borrow_records WHERE id = ? FOR UPDATE`, id); err != nil {
		return model.BorrowRecord{}, notFound(err, "borrow record not found")
	}
	return rec, nil
}

// LatestOpenForUpdateTx locks the newest unreturned record of a book.
func (r *BorrowRecordRepo) LatestOpenForUpdateTx(ctx context.Context, tx *sqlx.Tx, bookID uint64) (model.BorrowRecord, error) {
	const q = `SELECT ` + borrowRecordColumns + ` FROM borrow_records
	           WHERE book_id = ? AND returned_at IS NULL
	           ORDER BY id DESC LIMIT 1 FOR UPDATE`
	var rec model.BorrowRecord
	if err := tx.GetContext(ctx, &rec, q, bookID); err != nil {
		return model.BorrowRecord{}, notFound(err, "no open borrow record")
	}
	return rec, nil
}

func (r *BorrowRecordRepo) MarkReturnedTx(ctx context.Context, tx *sqlx.Tx, id uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE borrow_records SET returned_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "borrow record not found")
	}
	return nil
}
