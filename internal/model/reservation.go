package model

import "time"

// ReservationStatus is the state of a reservation. Pending is implicit at
// creation; Confirmed and Cancelled are set by staff.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "Pending"
	ReservationConfirmed ReservationStatus = "Confirmed"
	ReservationCancelled ReservationStatus = "Cancelled"
)

// Reservation records a user's future hold on a book.
//
// Fields:
//
//	ID           – primary key identifier.
//	UserID       – user who reserved.
//	BookID       – reserved book.
//	ReservedFrom – first day of the hold (DATE).
//	ReservedTo   – last day of the hold (DATE), after ReservedFrom.
//	Status       – Pending, Confirmed or Cancelled.
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type Reservation struct {
	ID           uint64            `db:"id" json:"id"`                       // reservations.id
	UserID       uint64            `db:"user_id" json:"user_id"`             // reservations.user_id
	BookID       uint64            `db:"book_id" json:"book_id"`             // reservations.book_id
	ReservedFrom time.Time         `db:"reserved_from" json:"reserved_from"` // reservations.reserved_from
	ReservedTo   time.Time         `db:"reserved_to" json:"reserved_to"`     // reservations.reserved_to
	Status       ReservationStatus `db:"status" json:"status"`               // reservations.status
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`       // reservations.created_at
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`       // reservations.updated_at
}
