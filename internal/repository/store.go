package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-lifecycle/internal/lifecycle"
	"github.com/iliyamo/library-lifecycle/internal/model"
)

// dialect builds the dynamic list queries; static statements stay plain SQL.
var dialect = goqu.Dialect("mysql")

// selectList runs a goqu dataset twice: once as COUNT(*) and once with the
// page window applied, scanning rows into dest.
func selectList(ctx context.Context, db sqlx.QueryerContext, ds *goqu.SelectDataset, p Page, dest any) (int64, error) {
	countSQL, countArgs, err := ds.ClearOrder().Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	var total int64
	if err := sqlx.GetContext(ctx, db, &total, countSQL, countArgs...); err != nil {
		return 0, err
	}
	q, args, err := ds.Limit(p.limit()).Offset(p.offset()).Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	if err := sqlx.SelectContext(ctx, db, dest, q, args...); err != nil {
		return 0, err
	}
	return total, nil
}

// Store implements lifecycle.Store on MySQL. Each InTx call is one
// database transaction; the ForUpdate reads take row locks.
type Store struct {
	db           *sqlx.DB
	books        *BookRepo
	records      *BorrowRecordRepo
	reservations *ReservationRepo
	fines        *FineRepo
}

// NewStore wires the lifecycle ledgers over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:           db,
		books:        NewBookRepo(db),
		records:      NewBorrowRecordRepo(db),
		reservations: NewReservationRepo(db),
		fines:        NewFineRepo(db),
	}
}

// InTx begins a transaction, hands it to fn and commits only when fn
// succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, txScope{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type txScope struct {
	s  *Store
	tx *sqlx.Tx
}

func (t txScope) Books() lifecycle.Books                 { return bookTx(t) }
func (t txScope) BorrowRecords() lifecycle.BorrowRecords { return recordTx(t) }
func (t txScope) Reservations() lifecycle.Reservations   { return reservationTx(t) }
func (t txScope) Fines() lifecycle.Fines                 { return fineTx(t) }

type bookTx txScope

func (b bookTx) GetForUpdate(ctx context.Context, id uint64) (model.Book, error) {
	return b.s.books.GetForUpdateTx(ctx, b.tx, id)
}

func (b bookTx) UpdateStatus(ctx context.Context, id uint64, status model.BookStatus) error {
	return b.s.books.UpdateStatusTx(ctx, b.tx, id, status)
}

type recordTx txScope

func (r recordTx) Create(ctx context.Context, rec *model.BorrowRecord) error {
	return r.s.records.CreateTx(ctx, r.tx, rec)
}

func (r recordTx) GetForUpdate(ctx context.Context, id uint64) (model.BorrowRecord, error) {
	return r.s.records.GetForUpdateTx(ctx, r.tx, id)
}

func (r recordTx) LatestOpenForUpdate(ctx context.Context, bookID uint64) (model.BorrowRecord, error) {
	return r.s.records.LatestOpenForUpdateTx(ctx, r.tx, bookID)
}

func (r recordTx) MarkReturned(ctx context.Context, id uint64, at time.Time) error {
	return r.s.records.MarkReturnedTx(ctx, r.tx, id, at)
}

type reservationTx txScope

func (r reservationTx) Create(ctx context.Context, res *model.Reservation) error {
	return r.s.reservations.CreateTx(ctx, r.tx, res)
}

func (r reservationTx) GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	return r.s.reservations.GetForUpdateTx(ctx, r.tx, id)
}

func (r reservationTx) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	return r.s.reservations.UpdateStatusTx(ctx, r.tx, id, status)
}

type fineTx txScope

func (f fineTx) Create(ctx context.Context, fine *model.Fine) error {
	return f.s.fines.CreateTx(ctx, f.tx, fine)
}

func (f fineTx) GetForUpdate(ctx context.Context, id uint64) (model.Fine, error) {
	return f.s.fines.GetForUpdateTx(ctx, f.tx, id)
}

func (f fineTx) ListByBorrowRecord(ctx context.Context, borrowRecordID uint64) ([]model.Fine, error) {
	return f.s.fines.ListByBorrowRecordTx(ctx, f.tx, borrowRecordID)
}

func (f fineTx) MarkPaid(ctx context.Context, id uint64) error {
	return f.s.fines.MarkPaidTx(ctx, f.tx, id)
}
