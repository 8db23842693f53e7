package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"support-desk/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	List(ctx context.Context) ([]domain.Message, error)
	ListByUserID(ctx context.Context, userID int64) ([]domain.Message, error)
	SetReply(ctx context.Context, id int64, reply string) (domain.Message, error)
	MaxID(ctx context.Context) (int64, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, user_id, username, user_message, admin_reply)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.UserID,
		message.Username,
		message.UserMessage,
		message.AdminReply,
	)
	return err
}

func (r *PgMessageRepository) List(ctx context.Context) ([]domain.Message, error) {
	const query = `
		SELECT id, user_id, username, user_message, admin_reply
		FROM messages
		ORDER BY id ASC
	`
	return r.query(ctx, query)
}

func (r *PgMessageRepository) ListByUserID(ctx context.Context, userID int64) ([]domain.Message, error) {
	const query = `
		SELECT id, user_id, username, user_message, admin_reply
		FROM messages
		WHERE user_id = $1
		ORDER BY id ASC
	`
	return r.query(ctx, query, userID)
}

func (r *PgMessageRepository) SetReply(ctx context.Context, id int64, reply string) (domain.Message, error) {
	const query = `
		UPDATE messages
		SET admin_reply = $2
		WHERE id = $1
		RETURNING id, user_id, username, user_message, admin_reply
	`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id, reply).Scan(
		&msg.ID,
		&msg.UserID,
		&msg.Username,
		&msg.UserMessage,
		&msg.AdminReply,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, ErrNotFound
	}
	return msg, err
}

func (r *PgMessageRepository) MaxID(ctx context.Context) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM messages`).Scan(&id)
	return id, err
}

func (r *PgMessageRepository) query(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.Username,
			&msg.UserMessage,
			&msg.AdminReply,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
