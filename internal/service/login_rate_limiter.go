package service

import (
	"strings"
	"sync"
	"time"
)

// LoginRateLimiter cuenta intentos de login fallidos por clave dentro de una ventana.
// Un login exitoso limpia la clave.
type LoginRateLimiter interface {
	Allow(key string) bool
	Fail(key string)
	Reset(key string)
}

type loginRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	failures  map[string][]time.Time
	lastPrune time.Time
	now       func() time.Time
}

// NewLoginRateLimiter crea un rate limiter en memoria de ventana deslizante.
func NewLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &loginRateLimiter{
		window:   window,
		max:      max,
		failures: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow indica si la clave todavía no alcanzó el máximo de fallos en la ventana.
func (l *loginRateLimiter) Allow(key string) bool {
	key = normalizeLimiterKey(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UTC()
	l.pruneLocked(now)
	return len(l.recentLocked(key, now)) < l.max
}

func (l *loginRateLimiter) Fail(key string) {
	key = normalizeLimiterKey(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UTC()
	l.failures[key] = append(l.recentLocked(key, now), now)
}

func (l *loginRateLimiter) Reset(key string) {
	key = normalizeLimiterKey(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
}

// recentLocked descarta los fallos fuera de la ventana; borra la clave si no queda ninguno.
func (l *loginRateLimiter) recentLocked(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	entries := l.failures[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = kept
	return kept
}

// pruneLocked recorre todas las claves como mucho una vez por ventana.
func (l *loginRateLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	l.lastPrune = now
	for key := range l.failures {
		l.recentLocked(key, now)
	}
}

func normalizeLimiterKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
