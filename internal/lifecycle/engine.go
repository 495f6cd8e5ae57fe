// Package lifecycle owns the availability of books: borrowing, returning,
// reserving, confirming or cancelling reservations, and charging and
// paying late fines. Every operation checks the caller's capability,
// runs in a single transaction and funnels status changes through one
// transition function.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/policy"
)

const (
	DefaultLoanPeriod     = 14 * day
	DefaultDailyRateCents = 100
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint64
	Role   string
}

// Authorizer decides whether a role holds a capability.
type Authorizer interface {
	Can(role string, c policy.Capability) error
}

// Engine executes lifecycle operations against a Store.
type Engine struct {
	store          Store
	auth           Authorizer
	pub            Publisher
	log            zerolog.Logger
	now            func() time.Time
	loanPeriod     time.Duration
	dailyRateCents int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets the destination for committed lifecycle events.
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.pub = p } }

// WithLogger sets the logger used for transition audit lines.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLoanPeriod sets how long a loan lasts before it is due.
func WithLoanPeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.loanPeriod = d
		}
	}
}

// WithDailyRate sets the fine charged per late day, in cents.
func WithDailyRate(cents int64) Option {
	return func(e *Engine) {
		if cents > 0 {
			e.dailyRateCents = cents
		}
	}
}

// New returns an Engine over store, gated by auth.
func New(store Store, auth Authorizer, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		auth:           auth,
		pub:            noopPublisher{},
		log:            zerolog.Nop(),
		now:            time.Now,
		loanPeriod:     DefaultLoanPeriod,
		dailyRateCents: DefaultDailyRateCents,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoanPeriod returns the configured loan period.
func (e *Engine) LoanPeriod() time.Duration { return e.loanPeriod }

// DailyRateCents returns the configured fine per late day.
func (e *Engine) DailyRateCents() int64 { return e.dailyRateCents }

// clock reads the current time at the precision the ledgers store.
func (e *Engine) clock() time.Time { return e.now().UTC().Truncate(time.Second) }

// Borrow lends an Available book to the actor and opens a borrow record
// due after the loan period.
func (e *Engine) Borrow(ctx context.Context, actor Actor, bookID uint64) (model.BorrowRecord, error) {
	if err := e.auth.Can(actor.Role, policy.BorrowBooks); err != nil {
		return model.BorrowRecord{}, err
	}
	var rec model.BorrowRecord
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		book, err := tx.Books().GetForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		// a cancelled reservation can free the status while a loan is open
		switch _, err := tx.BorrowRecords().LatestOpenForUpdate(ctx, book.ID); {
		case err == nil:
			return apperr.Conflict("book not available")
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}
		if _, err := e.applyTransition(ctx, tx, book, CauseBorrow, actor); err != nil {
			return err
		}
		now := e.clock()
		rec = model.BorrowRecord{
			UserID:     actor.UserID,
			BookID:     book.ID,
			BorrowedAt: now,
			DueAt:      now.Add(e.loanPeriod),
		}
		return tx.BorrowRecords().Create(ctx, &rec)
	})
	if err != nil {
		return model.BorrowRecord{}, err
	}
	e.publish(ctx, Event{
		Type:       EventBookBorrowed,
		BookID:     rec.BookID,
		UserID:     rec.UserID,
		ActorID:    actor.UserID,
		RecordID:   rec.ID,
		OccurredAt: rec.BorrowedAt,
	})
	return rec, nil
}

// Return closes the open loan of a Borrowed book. The open loan is the
// latest unreturned record for the book, whoever borrowed it.
func (e *Engine) Return(ctx context.Context, actor Actor, bookID uint64) (model.BorrowRecord, error) {
	if err := e.auth.Can(actor.Role, policy.ReturnBooks); err != nil {
		return model.BorrowRecord{}, err
	}
	var rec model.BorrowRecord
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		book, err := tx.Books().GetForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if book.Status != model.BookBorrowed {
			return apperr.Conflict("book not borrowed")
		}
		rec, err = tx.BorrowRecords().LatestOpenForUpdate(ctx, book.ID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Conflict("book not borrowed")
			}
			return err
		}
		if _, err := e.applyTransition(ctx, tx, book, CauseReturn, actor); err != nil {
			return err
		}
		now := e.clock()
		if err := tx.BorrowRecords().MarkReturned(ctx, rec.ID, now); err != nil {
			return err
		}
		rec.ReturnedAt = &now
		return nil
	})
	if err != nil {
		return model.BorrowRecord{}, err
	}
	e.publish(ctx, Event{
		Type:       EventBookReturned,
		BookID:     rec.BookID,
		UserID:     rec.UserID,
		ActorID:    actor.UserID,
		RecordID:   rec.ID,
		OccurredAt: *rec.ReturnedAt,
	})
	return rec, nil
}

// ReserveInput is the payload of Reserve. Only the calendar dates of From
// and To are used.
type ReserveInput struct {
	BookID uint64
	From   time.Time
	To     time.Time
}

// Reserve records a pending hold on an Available book. The book's status
// does not change until the reservation is confirmed.
func (e *Engine) Reserve(ctx context.Context, actor Actor, in ReserveInput) (model.Reservation, error) {
	if err := e.auth.Can(actor.Role, policy.ReserveBooks); err != nil {
		return model.Reservation{}, err
	}
	today := dateOnly(e.clock())
	from, to := dateOnly(in.From), dateOnly(in.To)
	if !from.After(today) {
		return model.Reservation{}, apperr.Validation("reserved_from must be after today")
	}
	if !to.After(from) {
		return model.Reservation{}, apperr.Validation("reserved_to must be after reserved_from")
	}

	var res model.Reservation
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		book, err := tx.Books().GetForUpdate(ctx, in.BookID)
		if err != nil {
			return err
		}
		if book.Status != model.BookAvailable {
			return apperr.Conflict("book not available")
		}
		now := e.clock()
		res = model.Reservation{
			UserID:       actor.UserID,
			BookID:       book.ID,
			ReservedFrom: from,
			ReservedTo:   to,
			Status:       model.ReservationPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.Reservations().Create(ctx, &res)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	e.publish(ctx, Event{
		Type:       EventReservationCreated,
		BookID:     res.BookID,
		UserID:     res.UserID,
		ActorID:    actor.UserID,
		RecordID:   res.ID,
		OccurredAt: res.CreatedAt,
	})
	return res, nil
}

// SetReservationStatus confirms or cancels a reservation. Confirming forces
// the book to Borrowed and cancelling forces it to Available, whether or
// not a borrow record exists.
func (e *Engine) SetReservationStatus(ctx context.Context, actor Actor, reservationID uint64, target model.ReservationStatus) (model.Reservation, error) {
	if err := e.auth.Can(actor.Role, policy.ManageReservations); err != nil {
		return model.Reservation{}, err
	}
	var cause Cause
	switch target {
	case model.ReservationConfirmed:
		cause = CauseReservationConfirmed
	case model.ReservationCancelled:
		cause = CauseReservationCancelled
	default:
		return model.Reservation{}, apperr.Validation("status must be Confirmed or Cancelled")
	}

	var res model.Reservation
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		res, err = tx.Reservations().GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		book, err := tx.Books().GetForUpdate(ctx, res.BookID)
		if err != nil {
			return err
		}
		if _, err := e.applyTransition(ctx, tx, book, cause, actor); err != nil {
			return err
		}
		if err := tx.Reservations().UpdateStatus(ctx, res.ID, target); err != nil {
			return err
		}
		res.Status = target
		res.UpdatedAt = e.clock()
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	typ := EventReservationConfirmed
	if target == model.ReservationCancelled {
		typ = EventReservationCancelled
	}
	e.publish(ctx, Event{
		Type:       typ,
		BookID:     res.BookID,
		UserID:     res.UserID,
		ActorID:    actor.UserID,
		RecordID:   res.ID,
		OccurredAt: res.UpdatedAt,
	})
	return res, nil
}

// FineResult is the outcome of CalculateFine. Fine is nil when the loan
// was not late. Created is false when an existing fine was returned.
type FineResult struct {
	Fine    *model.Fine
	Created bool
}

// CalculateFine charges the borrower of a late loan. Lateness is measured
// against returned_at, or against now for a loan still open. An unpaid fine
// already on the record is returned as is; when earlier fines were paid
// only the part of the total not yet charged is billed.
func (e *Engine) CalculateFine(ctx context.Context, actor Actor, borrowRecordID uint64) (FineResult, error) {
	if err := e.auth.Can(actor.Role, policy.ManageFines); err != nil {
		return FineResult{}, err
	}
	var out FineResult
	var bookID uint64
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		rec, err := tx.BorrowRecords().GetForUpdate(ctx, borrowRecordID)
		if err != nil {
			return err
		}
		bookID = rec.BookID
		now := e.clock()
		effective := now
		if rec.ReturnedAt != nil {
			effective = *rec.ReturnedAt
		}
		days := lateDays(rec.DueAt, effective)
		if days == 0 {
			return nil
		}
		total := days * e.dailyRateCents

		existing, err := tx.Fines().ListByBorrowRecord(ctx, rec.ID)
		if err != nil {
			return err
		}
		var charged int64
		for _, f := range existing {
			if !f.Paid {
				fine := f
				out.Fine = &fine
				return nil
			}
			charged += f.AmountCents
		}
		if total <= charged {
			if n := len(existing); n > 0 {
				fine := existing[n-1]
				out.Fine = &fine
			}
			return nil
		}

		fine := model.Fine{
			UserID:         rec.UserID,
			BorrowRecordID: rec.ID,
			AmountCents:    total - charged,
			CreatedAt:      now,
		}
		if err := tx.Fines().Create(ctx, &fine); err != nil {
			return err
		}
		out = FineResult{Fine: &fine, Created: true}
		return nil
	})
	if err != nil {
		return FineResult{}, err
	}
	if out.Created {
		e.publish(ctx, Event{
			Type:        EventFineCreated,
			BookID:      bookID,
			UserID:      out.Fine.UserID,
			ActorID:     actor.UserID,
			RecordID:    out.Fine.ID,
			AmountCents: out.Fine.AmountCents,
			OccurredAt:  out.Fine.CreatedAt,
		})
	}
	return out, nil
}

// PayFine marks a fine as paid. Paying a paid fine leaves it paid.
func (e *Engine) PayFine(ctx context.Context, actor Actor, fineID uint64) (model.Fine, error) {
	if err := e.auth.Can(actor.Role, policy.PayFines); err != nil {
		return model.Fine{}, err
	}
	var fine model.Fine
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		fine, err = tx.Fines().GetForUpdate(ctx, fineID)
		if err != nil {
			return err
		}
		if err := tx.Fines().MarkPaid(ctx, fine.ID); err != nil {
			return err
		}
		fine.Paid = true
		return nil
	})
	if err != nil {
		return model.Fine{}, err
	}
	e.publish(ctx, Event{
		Type:        EventFinePaid,
		UserID:      fine.UserID,
		ActorID:     actor.UserID,
		RecordID:    fine.ID,
		AmountCents: fine.AmountCents,
		OccurredAt:  e.clock(),
	})
	return fine, nil
}

func (e *Engine) publish(ctx context.Context, ev Event) {
	if err := e.pub.Publish(ctx, ev); err != nil {
		e.log.Warn().Err(err).Str("event", ev.Type).Uint64("record_id", ev.RecordID).Msg("publish lifecycle event failed")
	}
}
