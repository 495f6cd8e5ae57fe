// Package memory is an in-process implementation of lifecycle.Store. A
// single mutex serializes transactions, and each transaction works on the
// live maps after taking a snapshot that is restored if the callback
// fails. It backs the engine and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
	"github.com/iliyamo/library-lifecycle/internal/lifecycle"
	"github.com/iliyamo/library-lifecycle/internal/model"
)

type state struct {
	books        map[uint64]model.Book
	records      map[uint64]model.BorrowRecord
	reservations map[uint64]model.Reservation
	fines        map[uint64]model.Fine
	seq          map[table]uint64
}

// table keys the per-table id sequences, like AUTO_INCREMENT.
type table int

const (
	tBooks table = iota
	tRecords
	tReservations
	tFines
)

func (s *state) clone() *state {
	c := &state{
		books:        make(map[uint64]model.Book, len(s.books)),
		records:      make(map[uint64]model.BorrowRecord, len(s.records)),
		reservations: make(map[uint64]model.Reservation, len(s.reservations)),
		fines:        make(map[uint64]model.Fine, len(s.fines)),
		seq:          make(map[table]uint64, len(s.seq)),
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.records {
		if v.ReturnedAt != nil {
			at := *v.ReturnedAt
			v.ReturnedAt = &at
		}
		c.records[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.fines {
		c.fines[k] = v
	}
	return c
}

func (s *state) id(t table) uint64 {
	s.seq[t]++
	return s.seq[t]
}

// claim assigns the next id of t when id is zero and keeps the sequence
// ahead of explicit ids.
func (s *state) claim(t table, id uint64) uint64 {
	if id == 0 {
		return s.id(t)
	}
	if id > s.seq[t] {
		s.seq[t] = id
	}
	return id
}

// Store keeps every ledger in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{
		books:        map[uint64]model.Book{},
		records:      map[uint64]model.BorrowRecord{},
		reservations: map[uint64]model.Reservation{},
		fines:        map[uint64]model.Fine{},
		seq:          map[table]uint64{},
	}}
}

// InTx implements lifecycle.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, txView{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// PutBook inserts or replaces a book. A zero ID gets the next free id.
func (s *Store) PutBook(b model.Book) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.st.claim(tBooks, b.ID)
	if b.Status == "" {
		b.Status = model.BookAvailable
	}
	s.st.books[b.ID] = b
	return b
}

// PutBorrowRecord inserts or replaces a borrow record.
func (s *Store) PutBorrowRecord(r model.BorrowRecord) model.BorrowRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.st.claim(tRecords, r.ID)
	s.st.records[r.ID] = r
	return r
}

// Book returns a copy of the book with id.
func (s *Store) Book(id uint64) (model.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.books[id]
	return b, ok
}

// BorrowRecords returns every borrow record ordered by id.
func (s *Store) BorrowRecords() []model.BorrowRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.BorrowRecord, 0, len(s.st.records))
	for _, r := range s.st.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reservations returns every reservation ordered by id.
func (s *Store) Reservations() []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0, len(s.st.reservations))
	for _, r := range s.st.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Fines returns every fine ordered by id.
func (s *Store) Fines() []model.Fine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedFines(s.st.fines, func(model.Fine) bool { return true })
}

func sortedFines(m map[uint64]model.Fine, keep func(model.Fine) bool) []model.Fine {
	out := make([]model.Fine, 0)
	for _, f := range m {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// txView exposes the ledgers while the store mutex is held.
type txView struct{ st *state }

func (t txView) Books() lifecycle.Books                 { return books{t.st} }
func (t txView) BorrowRecords() lifecycle.BorrowRecords { return records{t.st} }
func (t txView) Reservations() lifecycle.Reservations   { return reservations{t.st} }
func (t txView) Fines() lifecycle.Fines                 { return fines{t.st} }

type books struct{ st *state }

func (b books) GetForUpdate(_ context.Context, id uint64) (model.Book, error) {
	book, ok := b.st.books[id]
	if !ok {
		return model.Book{}, apperr.NotFound("book not found")
	}
	return book, nil
}

func (b books) UpdateStatus(_ context.Context, id uint64, status model.BookStatus) error {
	book, ok := b.st.books[id]
	if !ok {
		return apperr.NotFound("book not found")
	}
	book.Status = status
	book.UpdatedAt = time.Now().UTC()
	b.st.books[id] = book
	return nil
}

type records struct{ st *state }

func (r records) Create(_ context.Context, rec *model.BorrowRecord) error {
	rec.ID = r.st.id(tRecords)
	r.st.records[rec.ID] = *rec
	return nil
}

func (r records) GetForUpdate(_ context.Context, id uint64) (model.BorrowRecord, error) {
	rec, ok := r.st.records[id]
	if !ok {
		return model.BorrowRecord{}, apperr.NotFound("borrow record not found")
	}
	return rec, nil
}

func (r records) LatestOpenForUpdate(_ context.Context, bookID uint64) (model.BorrowRecord, error) {
	var latest model.BorrowRecord
	for _, rec := range r.st.records {
		if rec.BookID == bookID && rec.Open() && rec.ID > latest.ID {
			latest = rec
		}
	}
	if latest.ID == 0 {
		return model.BorrowRecord{}, apperr.NotFound("no open borrow record")
	}
	return latest, nil
}

func (r records) MarkReturned(_ context.Context, id uint64, at time.Time) error {
	rec, ok := r.st.records[id]
	if !ok {
		return apperr.NotFound("borrow record not found")
	}
	rec.ReturnedAt = &at
	r.st.records[id] = rec
	return nil
}

type reservations struct{ st *state }

func (r reservations) Create(_ context.Context, res *model.Reservation) error {
	res.ID = r.st.id(tReservations)
	r.st.reservations[res.ID] = *res
	return nil
}

func (r reservations) GetForUpdate(_ context.Context, id uint64) (model.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return model.Reservation{}, apperr.NotFound("reservation not found")
	}
	return res, nil
}

func (r reservations) UpdateStatus(_ context.Context, id uint64, status model.ReservationStatus) error {
	res, ok := r.st.reservations[id]
	if !ok {
		return apperr.NotFound("reservation not found")
	}
	res.Status = status
	res.UpdatedAt = time.Now().UTC()
	r.st.reservations[id] = res
	return nil
}

type fines struct{ st *state }

func (f fines) Create(_ context.Context, fine *model.Fine) error {
	fine.ID = f.st.id(tFines)
	f.st.fines[fine.ID] = *fine
	return nil
}

func (f fines) GetForUpdate(_ context.Context, id uint64) (model.Fine, error) {
	fine, ok := f.st.fines[id]
	if !ok {
		return model.Fine{}, apperr.NotFound("fine not found")
	}
	return fine, nil
}

func (f fines) ListByBorrowRecord(_ context.Context, borrowRecordID uint64) ([]model.Fine, error) {
	return sortedFines(f.st.fines, func(x model.Fine) bool { return x.BorrowRecordID == borrowRecordID }), nil
}

func (f fines) MarkPaid(_ context.Context, id uint64) error {
	fine, ok := f.st.fines[id]
	if !ok {
		return apperr.NotFound("fine not found")
	}
	fine.Paid = true
	f.st.fines[id] = fine
	return nil
}
