package repository

import (
	"context"
	"errors"
	"fmt"

	"support-desk/internal/domain"
	"support-desk/internal/store"
)

// FileMessageRepository implementa MessageRepository sobre un documento JSON.
type FileMessageRepository struct {
	store *store.Store[domain.Message]
}

func NewFileMessageRepository(path string) (*FileMessageRepository, error) {
	s, err := store.Open[domain.Message](path)
	if err != nil {
		return nil, err
	}
	return &FileMessageRepository{store: s}, nil
}

func (r *FileMessageRepository) Create(ctx context.Context, message domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.Append(message); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (r *FileMessageRepository) List(_ context.Context) ([]domain.Message, error) {
	return r.store.ReadAll(), nil
}

func (r *FileMessageRepository) ListByUserID(_ context.Context, userID int64) ([]domain.Message, error) {
	out := []domain.Message{}
	for _, msg := range r.store.ReadAll() {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *FileMessageRepository) SetReply(ctx context.Context, id int64, reply string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	msg, err := r.store.Update(
		func(m domain.Message) bool { return m.ID == id },
		func(m *domain.Message) { m.AdminReply = &reply },
	)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Message{}, ErrNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("update message %d: %w", id, err)
	}
	return msg, nil
}

func (r *FileMessageRepository) MaxID(_ context.Context) (int64, error) {
	var maxID int64
	for _, msg := range r.store.ReadAll() {
		if msg.ID > maxID {
			maxID = msg.ID
		}
	}
	return maxID, nil
}
