package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

type userRepository struct {
	pool *pgxpool.Pool
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, role, created_at, updated_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to select user", goerr.V("id", id))
	}
	return &u, nil
}

func (r *userRepository) Put(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		return goerr.New("user ID is required")
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	err := r.pool.QueryRow(ctx, `INSERT INTO users (id, email, name, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET email=EXCLUDED.email, name=EXCLUDED.name, role=EXCLUDED.role, updated_at=EXCLUDED.updated_at
		RETURNING created_at`,
		u.ID, u.Email, u.Name, string(u.Role), u.CreatedAt, u.UpdatedAt).Scan(&u.CreatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to put user", goerr.V("id", u.ID))
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, role, created_at, updated_at FROM users ORDER BY email, id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan user")
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate users")
	}
	return users, nil
}
