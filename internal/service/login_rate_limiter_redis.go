package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cada fallo es un miembro de un sorted set con score en milisegundos, de modo que
// la ventana desliza igual que en la implementación en memoria.
const (
	redisLoginFailScript = `
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", cutoff)
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return redis.call("ZCARD", KEYS[1])
`
	redisLoginCountScript = `
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", cutoff)
return redis.call("ZCARD", KEYS[1])
`
)

type redisLimiterClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisLoginRateLimiter struct {
	client redisLimiterClient
	window time.Duration
	max    int
	prefix string
	now    func() time.Time
}

// NewRedisLoginRateLimiter comparte el conteo de fallos de login entre instancias vía Redis.
func NewRedisLoginRateLimiter(client *redis.Client, window time.Duration, max int) LoginRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "login:fail:",
		now:    time.Now,
	}
}

func (l *redisLoginRateLimiter) Allow(key string) bool {
	redisKey, ok := l.key(key)
	if !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	count, err := l.client.Eval(ctx, redisLoginCountScript, []string{redisKey}, l.windowArgs()...).Int()
	if err != nil {
		// fail-open: Redis caído no debe bloquear el login.
		return true
	}
	return count < l.max
}

func (l *redisLoginRateLimiter) Fail(key string) {
	redisKey, ok := l.key(key)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	args := append(l.windowArgs(), uuid.NewString())
	_ = l.client.Eval(ctx, redisLoginFailScript, []string{redisKey}, args...).Err()
}

func (l *redisLoginRateLimiter) Reset(key string) {
	redisKey, ok := l.key(key)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = l.client.Del(ctx, redisKey).Err()
}

func (l *redisLoginRateLimiter) key(key string) (string, bool) {
	if l == nil || l.client == nil {
		return "", false
	}
	normalized := normalizeLimiterKey(key)
	if normalized == "" {
		return "", false
	}
	return l.prefix + normalized, true
}

func (l *redisLoginRateLimiter) windowArgs() []interface{} {
	return []interface{}{
		strconv.FormatInt(l.now().UnixMilli(), 10),
		strconv.FormatInt(l.window.Milliseconds(), 10),
	}
}
