package lifecycle

import (
	"context"
	"fmt"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/model"
)

// Cause is the reason a book's status is about to change.
type Cause string

const (
	CauseBorrow               Cause = "borrow"
	CauseReturn               Cause = "return"
	CauseReservationConfirmed Cause = "reservation-confirmed"
	CauseReservationCancelled Cause = "reservation-cancelled"
)

// transition decides the next status of a book. It is the only place the
// availability rules live: loans need an Available book and returns a
// Borrowed one, while reservation decisions force the status.
func transition(from model.BookStatus, cause Cause) (model.BookStatus, error) {
	switch cause {
	case CauseBorrow:
		if from != model.BookAvailable {
			return from, apperr.Conflict("book not available")
		}
		return model.BookBorrowed, nil
	case CauseReturn:
		if from != model.BookBorrowed {
			return from, apperr.Conflict("book not borrowed")
		}
		return model.BookAvailable, nil
	case CauseReservationConfirmed:
		return model.BookBorrowed, nil
	case CauseReservationCancelled:
		return model.BookAvailable, nil
	}
	return from, fmt.Errorf("lifecycle: unknown transition cause %q", cause)
}

// applyTransition runs transition for book and persists the result inside
// tx. Every status change of every flow goes through here and leaves one
// audit line.
func (e *Engine) applyTransition(ctx context.Context, tx Tx, book model.Book, cause Cause, actor Actor) (model.Book, error) {
	to, err := transition(book.Status, cause)
	if err != nil {
		return book, err
	}
	if to != book.Status {
		if err := tx.Books().UpdateStatus(ctx, book.ID, to); err != nil {
			return book, err
		}
	}
	e.log.Info().
		Uint64("book_id", book.ID).
		Str("from", string(book.Status)).
		Str("to", string(to)).
		Str("cause", string(cause)).
		Uint64("actor_id", actor.UserID).
		Str("actor_role", actor.Role).
		Msg("book status transition")
	book.Status = to
	return book, nil
}
