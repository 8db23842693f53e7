package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"support-desk/internal/domain"
)

// PgSessionRepository persiste la tabla de sesiones en Postgres para que sobreviva reinicios.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, username, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Username,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

func (r *PgSessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	const query = `
		SELECT id, user_id, username, expires_at, created_at
		FROM sessions
		WHERE id = $1
	`
	var session domain.Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Username,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, ErrNotFound
	}
	return session, err
}

func (r *PgSessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *PgSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
