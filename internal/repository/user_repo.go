package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"support-desk/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	MaxID(ctx context.Context) (int64, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const query = `
		SELECT id, username, password_hash
		FROM users
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	const query = `
		SELECT id, username, password_hash
		FROM users
		WHERE username = $1
	`
	return r.scanOne(ctx, query, username)
}

func (r *PgUserRepository) MaxID(ctx context.Context) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM users`).Scan(&id)
	return id, err
}

func (r *PgUserRepository) scanOne(ctx context.Context, query string, arg any) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}
