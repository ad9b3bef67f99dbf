package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/users"
)

var _ users.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db DB
}

func NewUserRepo(db DB) *UserRepo {
	return &UserRepo{db: db}
}

const upsertUserSQL = `INSERT INTO users (id, username, name, email, avatar_url, admin, moderator, groups, created_at, last_login_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (id) DO UPDATE SET
	username = EXCLUDED.username,
	name = EXCLUDED.name,
	email = EXCLUDED.email,
	avatar_url = EXCLUDED.avatar_url,
	admin = EXCLUDED.admin,
	moderator = EXCLUDED.moderator,
	groups = EXCLUDED.groups,
	last_login_at = EXCLUDED.last_login_at`

const selectUserColumns = `SELECT id, username, name, email, avatar_url, admin, moderator, groups, created_at, last_login_at FROM users`

func (r *UserRepo) Upsert(ctx context.Context, u *users.User) error {
	if u == nil || u.ID == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "user id is required")
	}
	_, err := r.db.Exec(ctx, upsertUserSQL,
		u.ID,
		u.Username,
		u.Name,
		u.Email,
		u.AvatarURL,
		u.Admin,
		u.Moderator,
		nonNil(u.Groups),
		u.LastLoginAt,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert user %s", u.ID)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUserColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.Email,
		&u.AvatarURL,
		&u.Admin,
		&u.Moderator,
		&u.Groups,
		&u.CreatedAt,
		&u.LastLoginAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
