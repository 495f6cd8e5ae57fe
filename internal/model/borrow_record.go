package model

import "time"

// BorrowRecord describes one loan of a book. A record is "open" while
// ReturnedAt is nil; at most one open record exists per book. Records are
// created by a borrow and closed by a return, never deleted.
//
// Fields:
//
//	ID         – primary key identifier.
//	UserID     – borrowing user.
//	BookID     – borrowed book.
//	BorrowedAt – when the loan started.
//	DueAt      – BorrowedAt plus the configured loan period.
//	ReturnedAt – when the book came back (nil while open).
type BorrowRecord struct {
	ID         uint64     `db:"id" json:"id"`                   // borrow_records.id
	UserID     uint64     `db:"user_id" json:"user_id"`         // borrow_records.user_id
	BookID     uint64     `db:"book_id" json:"book_id"`         // borrow_records.book_id
	BorrowedAt time.Time  `db:"borrowed_at" json:"borrowed_at"` // borrow_records.borrowed_at
	DueAt      time.Time  `db:"due_at" json:"due_at"`           // borrow_records.due_at
	ReturnedAt *time.Time `db:"returned_at" json:"returned_at"` // borrow_records.returned_at (nullable)
}

// Open reports whether the book is still out under this record.
func (r BorrowRecord) Open() bool { return r.ReturnedAt == nil }
