package repository

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-lifecycle/internal/model"
	"github.com/iliyamo/library-lifecycle/internal/utils"
)

// UserRepo manages the users table. Emails are stored lower-cased and
// trimmed; passwords only as bcrypt hashes.
type UserRepo struct {
	db   *sqlx.DB
	cost int
}

// NewUserRepo binds the repo to db, hashing new passwords with cost.
func NewUserRepo(db *sqlx.DB, cost int) *UserRepo { return &UserRepo{db: db, cost: cost} }

const userColumns = "id, name, email, password_hash, role, created_at, updated_at"

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes password, inserts the user and fills u from the stored row.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string) error {
	hash, err := utils.HashPassword(password, r.cost)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(u.Name), normalizeEmail(u.Email), hash, u.Role)
	if err != nil {
		return translate(err, "email already exists")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	*u, err = r.GetByID(ctx, uint64(id))
	return err
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, normalizeEmail(email))
	if err != nil {
		return model.User{}, notFound(err, "user not found")
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id); err != nil {
		return model.User{}, notFound(err, "user not found")
	}
	return u, nil
}

type UserQuery struct {
	Search string
	Role   string
	Page
}

// List pages through users, optionally filtered by role or a name/email
// fragment.
func (r *UserRepo) List(ctx context.Context, q UserQuery) ([]model.User, int64, error) {
	ds := dialect.From("users").
		Select(goqu.C("id"), goqu.C("name"), goqu.C("email"), goqu.C("password_hash"), goqu.C("role"),
			goqu.C("created_at"), goqu.C("updated_at")).
		Order(goqu.C("id").Asc())
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		ds = ds.Where(goqu.Or(
			goqu.Func("LOWER", goqu.C("name")).ILike(like),
			goqu.C("email").ILike(like),
		))
	}
	if q.Role != "" {
		ds = ds.Where(goqu.C("role").Eq(q.Role))
	}
	out := []model.User{}
	total, err := selectList(ctx, r.db, ds, q.Page, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update writes name, email and role. A non-empty password is re-hashed.
func (r *UserRepo) Update(ctx context.Context, u *model.User, password string) error {
	sets := goqu.Record{
		"name":  strings.TrimSpace(u.Name),
		"email": normalizeEmail(u.Email),
		"role":  u.Role,
	}
	if password != "" {
		hash, err := utils.HashPassword(password, r.cost)
		if err != nil {
			return err
		}
		sets["password_hash"] = hash
	}
	q, args, err := dialect.Update("users").Set(sets).Where(goqu.C("id").Eq(u.ID)).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return translate(err, "email already exists")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "user not found")
	}
	*u, err = r.GetByID(ctx, u.ID)
	return err
}

// Delete removes a user. Users with loans, fines or reservations on file
// are kept by the foreign keys.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(errNoRows, "user not found")
	}
	return nil
}
