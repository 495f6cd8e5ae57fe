package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/lifecycle"
	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/policy"
	"github.com/iliyamo/library-lifecycle/internal/repository/memory"
)

var (
	member    = lifecycle.Actor{UserID: 7, Role: model.RoleMember}
	otherMem  = lifecycle.Actor{UserID: 8, Role: model.RoleMember}
	librarian = lifecycle.Actor{UserID: 2, Role: model.RoleLibrarian}
	admin     = lifecycle.Actor{UserID: 1, Role: model.RoleAdmin}
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func newClock() *clock                   { return &clock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)} }
func (c *clock) Today() time.Time {
	y, m, d := c.now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
func (c *clock) Days(n int) time.Time { return c.Today().AddDate(0, 0, n) }

type recordingPublisher struct {
	events []lifecycle.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev lifecycle.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store *memory.Store
	clock *clock
	pub   *recordingPublisher
	eng   *lifecycle.Engine
	book  model.Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), clock: newClock(), pub: &recordingPublisher{}}
	f.eng = lifecycle.New(f.store, policy.Default(),
		lifecycle.WithClock(f.clock.Now),
		lifecycle.WithPublisher(f.pub),
	)
	f.book = f.store.PutBook(model.Book{Title: "Dune", ISBN: "9780441013593", AuthorID: 1})
	return f
}

func (f *fixture) openRecords() int {
	n := 0
	for _, rec := range f.store.BorrowRecords() {
		if rec.BookID == f.book.ID && rec.Open() {
			n++
		}
	}
	return n
}

func (f *fixture) status(t *testing.T) model.BookStatus {
	t.Helper()
	b, ok := f.store.Book(f.book.ID)
	require.True(t, ok)
	return b.Status
}

func TestBorrow(t *testing.T) {
	f := newFixture(t)

	rec, err := f.eng.Borrow(context.Background(), member, f.book.ID)
	require.NoError(t, err)

	assert.NotZero(t, rec.ID)
	assert.Equal(t, member.UserID, rec.UserID)
	assert.Equal(t, f.book.ID, rec.BookID)
	assert.Equal(t, f.clock.now, rec.BorrowedAt)
	assert.Equal(t, f.clock.now.Add(14*24*time.Hour), rec.DueAt)
	assert.Nil(t, rec.ReturnedAt)
	assert.Equal(t, model.BookBorrowed, f.status(t))
	assert.Equal(t, []string{lifecycle.EventBookBorrowed}, f.pub.types())
}

func TestBorrow_BookNotAvailable(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Borrow(context.Background(), member, f.book.ID)
	require.NoError(t, err)

	_, err = f.eng.Borrow(context.Background(), otherMem, f.book.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.EqualError(t, err, "book not available")
	assert.Len(t, f.store.BorrowRecords(), 1)
}

func TestBorrow_UnknownBook(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Borrow(context.Background(), member, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, f.store.BorrowRecords())
}

func TestBorrow_Forbidden(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Borrow(context.Background(), librarian, f.book.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, model.BookAvailable, f.status(t))
	assert.Empty(t, f.store.BorrowRecords())
	assert.Empty(t, f.pub.events)
}

func TestBorrow_TimestampsAtSecondPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.now = f.clock.now.Add(123456789 * time.Nanosecond)

	rec, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)
	assert.Zero(t, rec.BorrowedAt.Nanosecond())
	assert.Zero(t, rec.DueAt.Nanosecond())

	f.clock.Advance(time.Hour)
	rec, err = f.eng.Return(ctx, member, f.book.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.ReturnedAt)
	assert.Zero(t, rec.ReturnedAt.Nanosecond())
	stored := f.store.BorrowRecords()[0]
	require.NotNil(t, stored.ReturnedAt)
	assert.True(t, stored.ReturnedAt.Equal(*rec.ReturnedAt))
}

func TestBorrow_ConfiguredLoanPeriod(t *testing.T) {
	store := memory.New()
	c := newClock()
	eng := lifecycle.New(store, policy.Default(), lifecycle.WithClock(c.Now), lifecycle.WithLoanPeriod(7*24*time.Hour))
	book := store.PutBook(model.Book{Title: "Emma"})

	rec, err := eng.Borrow(context.Background(), member, book.ID)
	require.NoError(t, err)
	assert.Equal(t, c.now.AddDate(0, 0, 7), rec.DueAt)
}

func TestReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	borrowed, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)

	f.clock.Advance(3 * 24 * time.Hour)
	rec, err := f.eng.Return(ctx, member, f.book.ID)
	require.NoError(t, err)

	assert.Equal(t, borrowed.ID, rec.ID)
	require.NotNil(t, rec.ReturnedAt)
	assert.Equal(t, f.clock.now, *rec.ReturnedAt)
	assert.Equal(t, model.BookAvailable, f.status(t))
	assert.Equal(t, []string{lifecycle.EventBookBorrowed, lifecycle.EventBookReturned}, f.pub.types())
}

func TestReturn_NotBorrowed(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Return(context.Background(), member, f.book.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.EqualError(t, err, "book not borrowed")
}

func TestReturn_ClosesLatestOpenRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book.Status = model.BookBorrowed
	f.store.PutBook(f.book)
	old := f.store.PutBorrowRecord(model.BorrowRecord{UserID: 3, BookID: f.book.ID, BorrowedAt: f.clock.now, DueAt: f.clock.now})
	latest := f.store.PutBorrowRecord(model.BorrowRecord{UserID: member.UserID, BookID: f.book.ID, BorrowedAt: f.clock.now, DueAt: f.clock.now})

	rec, err := f.eng.Return(ctx, member, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, rec.ID)
	assert.NotEqual(t, old.ID, rec.ID)
	assert.Equal(t, member.UserID, rec.UserID)
}

func TestReturn_AnyMemberMayClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)

	rec, err := f.eng.Return(ctx, otherMem, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, member.UserID, rec.UserID)
	assert.Equal(t, otherMem.UserID, f.pub.events[1].ActorID)
}

func TestReserve(t *testing.T) {
	f := newFixture(t)

	res, err := f.eng.Reserve(context.Background(), member, lifecycle.ReserveInput{
		BookID: f.book.ID,
		From:   f.clock.Days(1),
		To:     f.clock.Days(3),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, res.Status)
	assert.Equal(t, f.clock.Days(1), res.ReservedFrom)
	assert.Equal(t, f.clock.Days(3), res.ReservedTo)
	assert.Equal(t, model.BookAvailable, f.status(t))
	assert.Equal(t, []string{lifecycle.EventReservationCreated}, f.pub.types())
}

func TestReserve_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name     string
		from, to time.Time
	}{
		{"from_today", f.clock.Days(0), f.clock.Days(2)},
		{"from_past", f.clock.Days(-1), f.clock.Days(2)},
		{"to_equals_from", f.clock.Days(2), f.clock.Days(2)},
		{"to_before_from", f.clock.Days(3), f.clock.Days(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.Reserve(context.Background(), member, lifecycle.ReserveInput{BookID: f.book.ID, From: tt.from, To: tt.to})
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
	assert.Empty(t, f.store.Reservations())
}

func TestReserve_ValidatesBeforeLookup(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Reserve(context.Background(), member, lifecycle.ReserveInput{BookID: 999, From: f.clock.Days(0), To: f.clock.Days(1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReserve_BookNotAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)

	_, err = f.eng.Reserve(ctx, otherMem, lifecycle.ReserveInput{BookID: f.book.ID, From: f.clock.Days(1), To: f.clock.Days(2)})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Empty(t, f.store.Reservations())
}

func TestSetReservationStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.eng.Reserve(ctx, member, lifecycle.ReserveInput{BookID: f.book.ID, From: f.clock.Days(1), To: f.clock.Days(2)})
	require.NoError(t, err)

	confirmed, err := f.eng.SetReservationStatus(ctx, librarian, res.ID, model.ReservationConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, confirmed.Status)
	assert.Equal(t, model.BookBorrowed, f.status(t))

	cancelled, err := f.eng.SetReservationStatus(ctx, admin, res.ID, model.ReservationCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)
	assert.Equal(t, model.BookAvailable, f.status(t))

	assert.Equal(t, []string{
		lifecycle.EventReservationCreated,
		lifecycle.EventReservationConfirmed,
		lifecycle.EventReservationCancelled,
	}, f.pub.types())
}

func TestSetReservationStatus_CancelForcesAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.eng.Reserve(ctx, member, lifecycle.ReserveInput{BookID: f.book.ID, From: f.clock.Days(1), To: f.clock.Days(2)})
	require.NoError(t, err)
	_, err = f.eng.Borrow(ctx, otherMem, f.book.ID)
	require.NoError(t, err)

	_, err = f.eng.SetReservationStatus(ctx, librarian, res.ID, model.ReservationCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.BookAvailable, f.status(t))

	_, err = f.eng.Borrow(ctx, member, f.book.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.EqualError(t, err, "book not available")
	assert.Equal(t, 1, f.openRecords())
	assert.Equal(t, model.BookAvailable, f.status(t))
}

func TestBorrow_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	const n = 50
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_, err := f.eng.Borrow(context.Background(), lifecycle.Actor{UserID: id, Role: model.RoleMember}, f.book.ID)
			errs <- err
		}(uint64(100 + i))
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, f.store.BorrowRecords(), 1)
	assert.Equal(t, model.BookBorrowed, f.status(t))
}

func TestSetReservationStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.eng.Reserve(ctx, member, lifecycle.ReserveInput{BookID: f.book.ID, From: f.clock.Days(1), To: f.clock.Days(2)})
	require.NoError(t, err)

	_, err = f.eng.SetReservationStatus(ctx, librarian, res.ID, model.ReservationPending)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.eng.SetReservationStatus(ctx, librarian, 999, model.ReservationConfirmed)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.eng.SetReservationStatus(ctx, member, res.ID, model.ReservationConfirmed)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.Equal(t, model.ReservationPending, f.store.Reservations()[0].Status)
	assert.Equal(t, model.BookAvailable, f.status(t))
}

func TestCalculateFine_ReturnedLate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)

	f.clock.Advance(14*24*time.Hour + 2*24*time.Hour + time.Hour)
	_, err = f.eng.Return(ctx, member, f.book.ID)
	require.NoError(t, err)

	out, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Fine)
	assert.True(t, out.Created)
	assert.Equal(t, int64(300), out.Fine.AmountCents)
	assert.Equal(t, member.UserID, out.Fine.UserID)
	assert.False(t, out.Fine.Paid)
}

func TestCalculateFine_NotLate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)
	f.clock.Advance(14 * 24 * time.Hour)
	_, err = f.eng.Return(ctx, member, f.book.ID)
	require.NoError(t, err)

	out, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Fine)
	assert.False(t, out.Created)
	assert.Empty(t, f.store.Fines())
}

func TestCalculateFine_OpenLoanUsesNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)
	f.clock.Advance(15 * 24 * time.Hour)

	out, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Fine)
	assert.Equal(t, int64(100), out.Fine.AmountCents)
}

func TestCalculateFine_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)
	f.clock.Advance(17 * 24 * time.Hour)
	_, err = f.eng.Return(ctx, member, f.book.ID)
	require.NoError(t, err)

	first, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)
	second, err := f.eng.CalculateFine(ctx, admin, rec.ID)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Fine.ID, second.Fine.ID)
	assert.Len(t, f.store.Fines(), 1)
}

func TestCalculateFine_AfterPaymentChargesOnlyTheRest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)

	f.clock.Advance(15 * 24 * time.Hour)
	first, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)
	_, err = f.eng.PayFine(ctx, member, first.Fine.ID)
	require.NoError(t, err)

	again, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.Fine.ID, again.Fine.ID)

	f.clock.Advance(2 * 24 * time.Hour)
	delta, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)
	assert.True(t, delta.Created)
	assert.Equal(t, int64(200), delta.Fine.AmountCents)
	assert.Len(t, f.store.Fines(), 2)
}

func TestCalculateFine_Errors(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.CalculateFine(context.Background(), librarian, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.eng.CalculateFine(context.Background(), member, 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCalculateFine_ConfiguredRate(t *testing.T) {
	store := memory.New()
	c := newClock()
	eng := lifecycle.New(store, policy.Default(), lifecycle.WithClock(c.Now), lifecycle.WithDailyRate(250))
	rec := store.PutBorrowRecord(model.BorrowRecord{UserID: 7, BookID: 1, BorrowedAt: c.now.AddDate(0, 0, -20), DueAt: c.now.AddDate(0, 0, -6)})

	out, err := eng.CalculateFine(context.Background(), librarian, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), out.Fine.AmountCents)
}

func TestPayFine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)
	f.clock.Advance(16 * 24 * time.Hour)
	out, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)

	paid, err := f.eng.PayFine(ctx, member, out.Fine.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.Equal(t, out.Fine.AmountCents, paid.AmountCents)

	again, err := f.eng.PayFine(ctx, member, out.Fine.ID)
	require.NoError(t, err)
	assert.True(t, again.Paid)

	_, err = f.eng.PayFine(ctx, member, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.eng.PayFine(ctx, librarian, out.Fine.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{err: errors.New("broker down")}
	eng := lifecycle.New(store, policy.Default(), lifecycle.WithPublisher(pub))
	book := store.PutBook(model.Book{Title: "Ulysses"})

	_, err := eng.Borrow(context.Background(), member, book.ID)
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
	b, _ := store.Book(book.ID)
	assert.Equal(t, model.BookBorrowed, b.Status)
}

// failingStore makes every borrow record insert fail after the book row
// has already been updated.
type failingStore struct{ *memory.Store }

func (s failingStore) InTx(ctx context.Context, fn func(context.Context, lifecycle.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		return fn(ctx, failingTx{tx})
	})
}

type failingTx struct{ lifecycle.Tx }

func (t failingTx) BorrowRecords() lifecycle.BorrowRecords {
	return failingRecords{t.Tx.BorrowRecords()}
}

type failingRecords struct{ lifecycle.BorrowRecords }

func (failingRecords) Create(context.Context, *model.BorrowRecord) error {
	return errors.New("disk full")
}

func TestBorrow_RollsBackOnFailure(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	eng := lifecycle.New(failingStore{store}, policy.Default(), lifecycle.WithPublisher(pub))
	book := store.PutBook(model.Book{Title: "Middlemarch"})

	_, err := eng.Borrow(context.Background(), member, book.ID)
	require.EqualError(t, err, "disk full")

	b, _ := store.Book(book.ID)
	assert.Equal(t, model.BookAvailable, b.Status)
	assert.Empty(t, store.BorrowRecords())
	assert.Empty(t, pub.events)
}

func TestScenario_BorrowReturnLateFine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.eng.Borrow(ctx, member, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookBorrowed, f.status(t))
	assert.Equal(t, rec.BorrowedAt.AddDate(0, 0, 14), rec.DueAt)

	f.clock.Advance(16 * 24 * time.Hour)
	returned, err := f.eng.Return(ctx, member, f.book.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, model.BookAvailable, f.status(t))

	out, err := f.eng.CalculateFine(ctx, librarian, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Fine)
	assert.Equal(t, int64(200), out.Fine.AmountCents)
	assert.False(t, out.Fine.Paid)
	assert.Equal(t, rec.ID, out.Fine.BorrowRecordID)
}
