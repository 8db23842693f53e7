package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"support-desk/internal/domain"
)

func TestMemorySessionStore_Lifecycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore().(*memorySessionStore)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	session := domain.Session{ID: "abc", UserID: 1, Username: "alice", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.Get(ctx, "abc")
	if err != nil || got.Username != "alice" {
		t.Fatalf("get: %+v, %v", got, err)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := store.Get(ctx, "abc"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemorySessionStore_LazyExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore().(*memorySessionStore)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Create(ctx, domain.Session{ID: "abc", CreatedAt: now, ExpiresAt: now.Add(time.Minute)})
	now = now.Add(time.Minute)

	if _, err := store.Get(ctx, "abc"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if len(store.items) != 0 {
		t.Fatalf("expired session should be evicted on read")
	}
}

func TestMemorySessionStore_DeleteExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore()
	ctx := context.Background()

	_ = store.Create(ctx, domain.Session{ID: "old", CreatedAt: now, ExpiresAt: now.Add(time.Minute)})
	_ = store.Create(ctx, domain.Session{ID: "new", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})

	removed, err := store.DeleteExpired(ctx, now.Add(2*time.Minute))
	if err != nil || removed != 1 {
		t.Fatalf("delete expired: removed=%d err=%v", removed, err)
	}
}

func TestMemorySessionStore_RejectsEmptyID(t *testing.T) {
	if err := NewMemorySessionStore().Create(context.Background(), domain.Session{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

type mockRedisKV struct {
	values  map[string]string
	ttls    map[string]time.Duration
	deleted []string
	err     error
}

func newMockRedisKV() *mockRedisKV {
	return &mockRedisKV{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockRedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	m.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		m.deleted = append(m.deleted, k)
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	session := domain.Session{ID: "abc", UserID: 3, Username: "carol", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)}

	t.Run("nil client constructor", func(t *testing.T) {
		if NewRedisSessionStore(nil) != nil {
			t.Fatalf("expected nil store without client")
		}
	})

	t.Run("create stores json with ttl", func(t *testing.T) {
		kv := newMockRedisKV()
		store := &redisSessionStore{client: kv, prefix: "session:"}
		if err := store.Create(ctx, session); err != nil {
			t.Fatalf("create: %v", err)
		}
		if kv.ttls["session:abc"] != 24*time.Hour {
			t.Fatalf("unexpected ttl: %v", kv.ttls["session:abc"])
		}
		var decoded domain.Session
		if err := json.Unmarshal([]byte(kv.values["session:abc"]), &decoded); err != nil {
			t.Fatalf("stored value is not json: %v", err)
		}
		if decoded.UserID != 3 || decoded.Username != "carol" {
			t.Fatalf("unexpected stored session: %+v", decoded)
		}

		got, err := store.Get(ctx, "abc")
		if err != nil || got.Identity() != session.Identity() {
			t.Fatalf("get: %+v, %v", got, err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		store := &redisSessionStore{client: newMockRedisKV(), prefix: "session:"}
		if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		kv := newMockRedisKV()
		store := &redisSessionStore{client: kv, prefix: "session:"}
		_ = store.Create(ctx, session)
		if err := store.Delete(ctx, "abc"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := store.Delete(ctx, "abc"); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if len(kv.deleted) != 2 || kv.deleted[0] != "session:abc" {
			t.Fatalf("unexpected deletes: %+v", kv.deleted)
		}
	})

	t.Run("non positive ttl is not stored", func(t *testing.T) {
		kv := newMockRedisKV()
		store := &redisSessionStore{client: kv, prefix: "session:"}
		expired := session
		expired.ExpiresAt = expired.CreatedAt
		if err := store.Create(ctx, expired); err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(kv.values) != 0 {
			t.Fatalf("expected nothing stored")
		}
	})

	t.Run("backend error", func(t *testing.T) {
		kv := newMockRedisKV()
		kv.err = errors.New("connection refused")
		store := &redisSessionStore{client: kv, prefix: "session:"}
		if err := store.Create(ctx, session); err == nil {
			t.Fatalf("expected create error")
		}
		if _, err := store.Get(ctx, "abc"); err == nil || errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected backend error, got %v", err)
		}
	})

	t.Run("sweep is a no-op", func(t *testing.T) {
		store := &redisSessionStore{client: newMockRedisKV(), prefix: "session:"}
		removed, err := store.DeleteExpired(ctx, now)
		if err != nil || removed != 0 {
			t.Fatalf("unexpected sweep result: %d, %v", removed, err)
		}
	})
}
