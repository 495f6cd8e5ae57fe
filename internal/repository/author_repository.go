package repository

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-lifecycle/internal/model"
)

// AuthorRepo provides CRUD for the authors table.
type AuthorRepo struct {
	db *sqlx.DB
}

func NewAuthorRepo(db *sqlx.DB) *AuthorRepo { return &AuthorRepo{db: db} }

const authorColumns = "id, name, bio, birthdate, created_at, updated_at"

// AuthorQuery filters the author listing by a name fragment.
type AuthorQuery struct {
	Search string
	Page
}

func (r *AuthorRepo) List(ctx context.Context, q AuthorQuery) ([]model.Author, int64, error) {
	ds := dialect.From("authors").
		Select(goqu.C("id"), goqu.C("name"), goqu.C("bio"), goqu.C("birthdate"), goqu.C("created_at"), goqu.C("updated_at")).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc())
	if s := strings.TrimSpace(q.Search); s != "" {
		ds = ds.Where(goqu.Func("LOWER", goqu.C("name")).ILike("%" + strings.ToLower(s) + "%"))
	}
	out := []model.Author{}
	total, err := selectList(ctx, r.db, ds, q.Page, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *AuthorRepo) GetByID(ctx context.Context, id uint64) (model.Author, error) {
	var a model.Author
	if err := r.db.GetContext(ctx, &a, `SELECT `+authorColumns+` FROM authors WHERE id = ?`, id); err != nil {
		return model.Author{}, notFound(err, "author not found")
	}
	return a, nil
}

func (r *AuthorRepo) Create(ctx context.Context, a *model.Author) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO authors (name, bio, birthdate) VALUES (?, ?, ?)`,
		a.Name, a.Bio, a.Birthdate)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	*a, err = r.GetByID(ctx, uint64(id))
	return err
}

func (r *AuthorRepo) Update(ctx context.Context, a *model.Author) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE authors SET name = ?, bio = ?, birthdate = ? WHERE id = ?`,
		a.Name, a.Bio, a.Birthdate, a.ID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "author not found")
	}
	*a, err = r.GetByID(ctx, a.ID)
	return err
}

// Delete removes an author. An author who still has books is a conflict.
func (r *AuthorRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "author not found")
	}
	return nil
}
