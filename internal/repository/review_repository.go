package repository

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-lifecycle/internal/model"
)

// ReviewRepo stores book reviews.
type ReviewRepo struct {
	db *sqlx.DB
}

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewColumns = "id, book_id, user_id, comment, rating, created_at, updated_at"

// ListByBook returns one page of a book's reviews with reviewer names.
func (r *ReviewRepo) ListByBook(ctx context.Context, bookID uint64, p Page) ([]model.ReviewWithUser, int64, error) {
	ds := dialect.From(goqu.T("reviews").As("r")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("r.user_id")))).
		Select(
			goqu.I("r.id"), goqu.I("r.book_id"), goqu.I("r.user_id"), goqu.I("r.comment"), goqu.I("r.rating"),
			goqu.I("r.created_at"), goqu.I("r.updated_at"), goqu.I("u.name").As("user_name"),
		).
		Where(goqu.I("r.book_id").Eq(bookID)).
		Order(goqu.I("r.id").Desc())
	out := []model.ReviewWithUser{}
	total, err := selectList(ctx, r.db, ds, p, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	var rv model.Review
	if err := r.db.GetContext(ctx, &rv, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id); err != nil {
		return model.Review{}, notFound(err, "review not found")
	}
	return rv, nil
}

func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (book_id, user_id, comment, rating) VALUES (?, ?, ?, ?)`,
		rv.BookID, rv.UserID, rv.Comment, rv.Rating)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	*rv, err = r.GetByID(ctx, uint64(id))
	return err
}

func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reviews SET comment = ?, rating = ? WHERE id = ?`, rv.Comment, rv.Rating, rv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "review not found")
	}
	*rv, err = r.GetByID(ctx, rv.ID)
	return err
}

func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "review not found")
	}
	return nil
}
