package lifecycle

import (
	"context"
	"time"

	"github.com/iliyamo/library-lifecycle/internal/model"
)

// Books is the slice of the catalog the engine reads and writes. Lookups
// that end in ForUpdate lock the row until the surrounding transaction
// ends. A missing row is reported as apperr.ErrNotFound.
type Books interface {
	GetForUpdate(ctx context.Context, id uint64) (model.Book, error)
	UpdateStatus(ctx context.Context, id uint64, status model.BookStatus) error
}

// BorrowRecords is the borrow ledger.
type BorrowRecords interface {
	Create(ctx context.Context, r *model.BorrowRecord) error
	GetForUpdate(ctx context.Context, id uint64) (model.BorrowRecord, error)
	// LatestOpenForUpdate returns the most recently created record for the
	// book that has no returned_at, or apperr.ErrNotFound.
	LatestOpenForUpdate(ctx context.Context, bookID uint64) (model.BorrowRecord, error)
	MarkReturned(ctx context.Context, id uint64, at time.Time) error
}

// Reservations is the reservation ledger.
type Reservations interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error
}

// Fines is the fine ledger.
type Fines interface {
	Create(ctx context.Context, f *model.Fine) error
	GetForUpdate(ctx context.Context, id uint64) (model.Fine, error)
	// ListByBorrowRecord returns the fines of one record, oldest first.
	ListByBorrowRecord(ctx context.Context, borrowRecordID uint64) ([]model.Fine, error)
	MarkPaid(ctx context.Context, id uint64) error
}

// Tx scopes the ledgers to a single transaction.
type Tx interface {
	Books() Books
	BorrowRecords() BorrowRecords
	Reservations() Reservations
	Fines() Fines
}

// Store runs fn inside one all-or-nothing transaction. When fn returns
// an error nothing it wrote is kept.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
