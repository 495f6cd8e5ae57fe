package repository

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-lifecycle/internal/model"
)

// BookRepo reads and writes the books table. Catalog writes never touch
// status; only the lifecycle engine changes it through UpdateStatusTx.
type BookRepo struct {
	db *sqlx.DB
}

func NewBookRepo(db *sqlx.DB) *BookRepo { return &BookRepo{db: db} }

const bookColumns = "id, title, isbn, author_id, published_date, status, created_at, updated_at"

// BookQuery filters the catalog listing. Search matches title, ISBN or
// author name, case-insensitively.
type BookQuery struct {
	Search   string
	Status   model.BookStatus
	AuthorID uint64
	Page
}

// Search returns one page of books joined with their author's name and
// the total number of matches.
func (r *BookRepo) Search(ctx context.Context, q BookQuery) ([]model.BookWithAuthor, int64, error) {
	out := []model.BookWithAuthor{}
	total, err := selectList(ctx, r.db, bookSearch(q), q.Page, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func bookSearch(q BookQuery) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("books").As("b")).
		Join(goqu.T("authors").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("b.author_id")))).
		Select(
			goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.isbn"), goqu.I("b.author_id"),
			goqu.I("b.published_date"), goqu.I("b.status"), goqu.I("b.created_at"), goqu.I("b.updated_at"),
			goqu.I("a.name").As("author_name"),
		).
		Order(goqu.I("b.id").Asc())

	if s := strings.TrimSpace(q.Search); s != "" {
		// the mysql dialect renders ILIKE as plain LIKE; Like would be LIKE BINARY
		like := "%" + strings.ToLower(s) + "%"
		ds = ds.Where(goqu.Or(
			goqu.Func("LOWER", goqu.I("b.title")).ILike(like),
			goqu.Func("LOWER", goqu.I("b.isbn")).ILike(like),
			goqu.Func("LOWER", goqu.I("a.name")).ILike(like),
		))
	}
	if q.Status != "" {
		ds = ds.Where(goqu.I("b.status").Eq(string(q.Status)))
	}
	if q.AuthorID != 0 {
		ds = ds.Where(goqu.I("b.author_id").Eq(q.AuthorID))
	}
	return ds
}

// GetByID returns a book with its author's name.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (model.BookWithAuthor, error) {
	const q = `SELECT b.id, b.title, b.isbn, b.author_id, b.published_date, b.status,
	                  b.created_at, b.updated_at, a.name AS author_name
	           FROM books b JOIN authors a ON a.id = b.author_id
	           WHERE b.id = ?`
	var b model.BookWithAuthor
	if err := r.db.GetContext(ctx, &b, q, id); err != nil {
		return model.BookWithAuthor{}, notFound(err, "book not found")
	}
	return b, nil
}

// Create inserts b as Available and reloads it to pick up defaults.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	const q = `INSERT INTO books (title, isbn, author_id, published_date, status) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.Title, b.ISBN, b.AuthorID, b.PublishedDate, string(model.BookAvailable))
	if err != nil {
		return translate(err, "isbn already exists")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	return r.reload(ctx, uint64(id), b)
}

// Update changes the catalog fields of b. Status is left alone.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	const q = `UPDATE books SET title = ?, isbn = ?, author_id = ?, published_date = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, b.Title, b.ISBN, b.AuthorID, b.PublishedDate, b.ID)
	if err != nil {
		return translate(err, "isbn already exists")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "book not found")
	}
	return r.reload(ctx, b.ID, b)
}

// Delete removes a book. Books with borrow history are kept by the
// foreign keys and reported as a conflict.
func (r *BookRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "book not found")
	}
	return nil
}

func (r *BookRepo) reload(ctx context.Context, id uint64, b *model.Book) error {
	if err := r.db.GetContext(ctx, b, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id); err != nil {
		return notFound(err, "book not found")
	}
	return nil
}

// GetForUpdateTx locks the book row until tx ends.
func (r *BookRepo) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Book, error) {
	var b model.Book
	if err := tx.GetContext(ctx, &b, `SELECT `+bookColumns+` FROM books WHERE id = ? FOR UPDATE`, id); err != nil {
		return model.Book{}, notFound(err, "book not found")
	}
	return b, nil
}

// UpdateStatusTx sets the availability status inside tx.
func (r *BookRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uint64, status model.BookStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE books SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "book not found")
	}
	return nil
}

// Recommend suggests Available books for a user: titles by authors the
// user has borrowed before that the user has not read yet, most borrowed
// first. Users without history get the most borrowed books overall.
func (r *BookRepo) Recommend(ctx context.Context, userID uint64, limit int) ([]model.BookWithAuthor, error) {
	const personal = `SELECT b.id, b.title, b.isbn, b.author_id, b.published_date, b.status,
	                         b.created_at, b.updated_at, a.name AS author_name
	                  FROM books b
	                  JOIN authors a ON a.id = b.author_id
	                  LEFT JOIN borrow_records popular ON popular.book_id = b.id
	                  WHERE b.status = 'Available'
	                    AND b.author_id IN (SELECT bk.author_id FROM borrow_records br JOIN books bk ON bk.id = br.book_id WHERE br.user_id = ?)
	                    AND b.id NOT IN (SELECT book_id FROM borrow_records WHERE user_id = ?)
	                  GROUP BY b.id, a.name
	                  ORDER BY COUNT(popular.id) DESC, b.id ASC
	                  LIMIT ?`
	out := []model.BookWithAuthor{}
	if err := r.db.SelectContext(ctx, &out, personal, userID, userID, limit); err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}

	const overall = `SELECT b.id, b.title, b.isbn, b.author_id, b.published_date, b.status,
	                        b.created_at, b.updated_at, a.name AS author_name
	                 FROM books b
	                 JOIN authors a ON a.id = b.author_id
	                 LEFT JOIN borrow_records popular ON popular.book_id = b.id
	                 WHERE b.status = 'Available'
	                 GROUP BY b.id, a.name
	                 ORDER BY COUNT(popular.id) DESC, b.id ASC
	                 LIMIT ?`
	if err := r.db.SelectContext(ctx, &out, overall, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports NotFound when no book has id.
func (r *BookRepo) Exists(ctx context.Context, id uint64) error {
	var one int
	if err := r.db.GetContext(ctx, &one, `SELECT 1 FROM books WHERE id = ?`, id); err != nil {
		return notFound(err, "book not found")
	}
	return nil
}
