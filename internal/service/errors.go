package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrMessageNotFound    = errors.New("message not found")
	ErrPersistence        = errors.New("persistence failure")
	ErrRateLimited        = errors.New("rate limited")
)

// persistenceError envuelve fallas de almacenamiento; el detalle queda para los logs.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
