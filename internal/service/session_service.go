package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"

	"support-desk/internal/domain"
	"support-desk/internal/repository"
)

const (
	sessionIDBytes    = 32
	DefaultSessionTTL = 24 * time.Hour
)

// SessionService emite, resuelve y destruye sesiones basadas en cookie.
type SessionService struct {
	logger *zap.Logger
	store  SessionStore
	signer *CookieSigner
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(logger *zap.Logger, store SessionStore, secret string, ttl time.Duration) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemorySessionStore()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		logger: logger,
		store:  store,
		signer: NewCookieSigner(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// CreateSession asocia una sesión nueva a identity y devuelve el valor firmado para la cookie.
func (s *SessionService) CreateSession(ctx context.Context, identity domain.Identity) (string, domain.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return "", domain.Session{}, err
	}
	now := s.now().UTC()
	session := domain.Session{
		ID:        id,
		UserID:    identity.UserID,
		Username:  identity.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return "", domain.Session{}, persistenceError("create session", err)
	}
	cookie, err := s.signer.Sign(session)
	if err != nil {
		_ = s.store.Delete(ctx, id)
		return "", domain.Session{}, err
	}
	return cookie, session, nil
}

// Resolve devuelve la identidad asociada a la cookie. Una cookie malformada, adulterada,
// desconocida o vencida equivale a no tener sesión.
func (s *SessionService) Resolve(ctx context.Context, cookie string) (domain.Identity, bool) {
	id, err := s.signer.Parse(cookie)
	if err != nil {
		return domain.Identity{}, false
	}
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("session lookup failed", zap.Error(err))
		}
		return domain.Identity{}, false
	}
	if session.Expired(s.now().UTC()) {
		_ = s.store.Delete(ctx, id)
		return domain.Identity{}, false
	}
	return session.Identity(), true
}

func (s *SessionService) RequireAuthenticated(ctx context.Context, cookie string) (domain.Identity, error) {
	identity, ok := s.Resolve(ctx, cookie)
	if !ok {
		return domain.Identity{}, ErrUnauthenticated
	}
	return identity, nil
}

// Destroy elimina la sesión. Es idempotente: una cookie inválida o ya destruida no es error.
func (s *SessionService) Destroy(ctx context.Context, cookie string) error {
	id, err := s.signer.Parse(cookie)
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return persistenceError("delete session", err)
	}
	return nil
}

// Sweep elimina las sesiones vencidas y devuelve cuántas se borraron.
func (s *SessionService) Sweep(ctx context.Context) (int, error) {
	return s.store.DeleteExpired(ctx, s.now().UTC())
}

// Run ejecuta Sweep cada interval hasta que ctx se cancele.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
