package repository

import (
	"context"
	"errors"
	"fmt"

	"support-desk/internal/domain"
	"support-desk/internal/store"
)

// userRecord es la forma en disco de users.json; el hash se guarda bajo "password".
type userRecord struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// FileUserRepository implementa UserRepository sobre un documento JSON.
type FileUserRepository struct {
	store *store.Store[userRecord]
}

func NewFileUserRepository(path string) (*FileUserRepository, error) {
	s, err := store.Open[userRecord](path)
	if err != nil {
		return nil, err
	}
	return &FileUserRepository{store: s}, nil
}

func (r *FileUserRepository) Create(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := userRecord{ID: user.ID, Username: user.Username, Password: user.PasswordHash}
	err := r.store.AppendIf(rec, func(existing userRecord) bool {
		return existing.Username == user.Username
	})
	if errors.Is(err, store.ErrConflict) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("append user: %w", err)
	}
	return nil
}

func (r *FileUserRepository) GetByID(_ context.Context, id int64) (domain.User, error) {
	return r.find(func(rec userRecord) bool { return rec.ID == id })
}

func (r *FileUserRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	return r.find(func(rec userRecord) bool { return rec.Username == username })
}

func (r *FileUserRepository) MaxID(_ context.Context) (int64, error) {
	var maxID int64
	for _, rec := range r.store.ReadAll() {
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}
	return maxID, nil
}

func (r *FileUserRepository) find(match func(userRecord) bool) (domain.User, error) {
	for _, rec := range r.store.ReadAll() {
		if match(rec) {
			return domain.User{ID: rec.ID, Username: rec.Username, PasswordHash: rec.Password}, nil
		}
	}
	return domain.User{}, ErrNotFound
}
