package repository

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// uniqueViolation es el SQLSTATE de Postgres para violaciones de UNIQUE.
const uniqueViolation = "23505"
