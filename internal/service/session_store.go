package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"support-desk/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore guarda la asociación sesión -> identidad del lado del servidor.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string]domain.Session
	now   func() time.Time
}

// NewMemorySessionStore crea la tabla de sesiones en memoria del proceso.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items: make(map[string]domain.Session),
		now:   time.Now,
	}
}

func (s *memorySessionStore) Create(_ context.Context, session domain.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.ID] = session
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if !ok {
		return domain.Session{}, ErrSessionNotFound
	}
	if session.Expired(s.now().UTC()) {
		delete(s.items, id)
		return domain.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *memorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *memorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.items {
		if session.Expired(now) {
			delete(s.items, id)
			removed++
		}
	}
	return removed, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKV
	prefix string
}

// NewRedisSessionStore guarda sesiones en Redis; la expiración la resuelve el TTL de la clave.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client: client,
		prefix: "session:",
	}
}

func (s *redisSessionStore) Create(ctx context.Context, session domain.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return errors.New("session id is required")
	}
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+session.ID, data, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Session{}, ErrSessionNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+id).Err()
}

func (s *redisSessionStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
