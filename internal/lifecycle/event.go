package lifecycle

import (
	"context"
	"time"
)

// Event types published after a lifecycle operation commits.
const (
	EventBookBorrowed         = "book.borrowed"
	EventBookReturned         = "book.returned"
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventFineCreated          = "fine.created"
	EventFinePaid             = "fine.paid"
)

// Event describes a committed lifecycle change.
type Event struct {
	Type        string
	BookID      uint64
	UserID      uint64 // owner of the record (borrower, reserver, fined user)
	ActorID     uint64 // caller that triggered the change
	RecordID    uint64 // borrow record, reservation or fine id
	AmountCents int64
	OccurredAt  time.Time
}

// Publisher delivers events to interested parties. Delivery is best
// effort: the engine logs a failure and carries on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
