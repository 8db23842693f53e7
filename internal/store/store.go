// Package store implementa un documento JSON persistido como un arreglo de registros,
// leído y escrito como una unidad.
//
// Cada Store tiene un único escritor a la vez: las mutaciones toman un mutex, parten de
// una copia del snapshot vigente, escriben el documento completo de forma atómica
// (archivo temporal + rename) y recién entonces publican el nuevo snapshot. Las lecturas
// no esperan a los escritores; ven el último snapshot publicado.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// Store guarda registros de tipo T en un único archivo JSON.
type Store[T any] struct {
	path string

	writeMu sync.Mutex

	mu      sync.RWMutex
	records []T

	write func(path string, data []byte) error
}

// Open carga el documento en path. Un archivo inexistente equivale a una colección vacía;
// un archivo con contenido inválido es un error.
func Open[T any](path string) (*Store[T], error) {
	s := &Store[T]{
		path:  path,
		write: writeFileAtomic,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.records = []T{}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if records == nil {
		records = []T{}
	}
	s.records = records
	return s, nil
}

func (s *Store[T]) Path() string {
	return s.path
}

// ReadAll devuelve una copia del snapshot vigente.
func (s *Store[T]) ReadAll() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}

// Append agrega rec al final de la colección.
func (s *Store[T]) Append(rec T) error {
	return s.mutate(func(records []T) ([]T, error) {
		return append(records, rec), nil
	})
}

// AppendIf agrega rec salvo que algún registro existente cumpla conflict, en cuyo caso
// devuelve ErrConflict. La verificación y el append ocurren dentro de la misma sección crítica.
func (s *Store[T]) AppendIf(rec T, conflict func(T) bool) error {
	return s.mutate(func(records []T) ([]T, error) {
		for _, existing := range records {
			if conflict(existing) {
				return nil, ErrConflict
			}
		}
		return append(records, rec), nil
	})
}

// Update aplica mutate al primer registro que cumpla match y devuelve el resultado.
func (s *Store[T]) Update(match func(T) bool, mutate func(*T)) (T, error) {
	var updated T
	err := s.mutate(func(records []T) ([]T, error) {
		for i := range records {
			if match(records[i]) {
				mutate(&records[i])
				updated = records[i]
				return records, nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

func (s *Store[T]) mutate(fn func([]T) ([]T, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := fn(s.ReadAll())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	data = append(data, '\n')

	if err := s.write(s.path, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.records = next
	s.mu.Unlock()
	return nil
}

// writeFileAtomic escribe data en un temporal del mismo directorio y lo renombra sobre path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file for %s: %w", path, err)
	}
	tmp := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temporary file for %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod temporary file for %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
