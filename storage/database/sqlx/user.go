package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	SectionIDs   pq.StringArray `db:"section_ids"`
	PasswordHash null.Bytes     `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r userRow) unrow() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		SectionIDs:   r.SectionIDs,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	e := getExec(repo.db, exec)

	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	const q = `
		SELECT id, name, username, email, is_active, roles, section_ids, password_hash, created_at, updated_at
		FROM "user" WHERE id = $1`
	if err := sqlx.GetContext(ctx, e, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	return row.unrow(), nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	e := getExec(repo.db, exec)

	usr.ID = uuid.New().String()
	const q = `
		INSERT INTO "user" (id, name, username, email, is_active, roles, section_ids, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := e.ExecContext(ctx, q,
		usr.ID, usr.Name,
		null.NewString(usr.Username, usr.Username != ""),
		null.NewString(usr.Email, usr.Email != ""),
		usr.IsActive,
		pq.StringArray(usr.Roles),
		pq.StringArray(usr.SectionIDs),
		null.BytesFrom(usr.PasswordHash),
		usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

// BulkAddSections unions each grant into the user's membership set in one
// statement per grant; the guard clause keeps re-runs from duplicating
// entries. A grant for an already-member user affects zero rows, which is
// success.
func (repo userRepository) BulkAddSections(ctx context.Context, grants []user.SectionGrant, exec ...core.DBExecutor) error {
	e := getExec(repo.db, exec)

	const q = `
		UPDATE "user"
		SET section_ids = array_append(section_ids, $2::uuid), updated_at = now()
		WHERE id = $1 AND NOT ($2::uuid = ANY (section_ids))`
	for _, grant := range grants {
		if _, err := e.ExecContext(ctx, q, grant.UserID, grant.SectionID); err != nil {
			return errors.Wrapf(err, "adding section %s to user %s", grant.SectionID, grant.UserID)
		}
	}
	return nil
}
