package model

import "time"

// Fine is a late charge tied to one borrow record. AmountCents never
// changes after creation; only Paid flips to true.
type Fine struct {
	ID             uint64    `db:"id" json:"id"`                             // fines.id
	UserID         uint64    `db:"user_id" json:"user_id"`                   // fines.user_id
	BorrowRecordID uint64    `db:"borrow_record_id" json:"borrow_record_id"` // fines.borrow_record_id
	AmountCents    int64     `db:"amount_cents" json:"amount_cents"`         // fines.amount_cents
	Paid           bool      `db:"paid" json:"paid"`                         // fines.paid
	CreatedAt      time.Time `db:"created_at" json:"created_at"`             // fines.created_at
}
