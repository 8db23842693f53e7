package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"support-desk/internal/domain"
	"support-desk/internal/idgen"
	"support-desk/internal/repository"
)

const MinPasswordLength = 8

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	ids     *idgen.Generator
	cost    int
	limiter LoginRateLimiter

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, ids *idgen.Generator, cost int, limiter LoginRateLimiter) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ids == nil {
		ids = idgen.New()
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{
		logger:  logger,
		users:   users,
		ids:     ids,
		cost:    cost,
		limiter: limiter,
	}
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
	ClientIP string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	username := strings.TrimSpace(input.Username)
	if username == "" || len(input.Password) < MinPasswordLength {
		return domain.User{}, ErrInvalidInput
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, persistenceError("lookup user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return domain.User{}, ErrInvalidInput
		}
		return domain.User{}, err
	}

	user := domain.User{
		ID:           s.ids.Next(),
		Username:     username,
		PasswordHash: string(hash),
	}
	// La unicidad se vuelve a verificar dentro del repositorio, bajo su lock de escritura.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, persistenceError("create user", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	user.PasswordHash = ""
	return user, nil
}

// Authenticate valida credenciales. Usuario inexistente y contraseña incorrecta
// devuelven el mismo error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.burnComparison(password)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, persistenceError("lookup user", err)
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// Login aplica el rate limit de fallos por usuario e IP; solo las credenciales inválidas cuentan.
func (s *UserService) Login(ctx context.Context, input LoginInput) (domain.User, error) {
	if s == nil {
		return domain.User{}, errors.New("user service not configured")
	}
	key := strings.TrimSpace(input.Username) + "|" + input.ClientIP
	if s.limiter != nil && !s.limiter.Allow(key) {
		return domain.User{}, ErrRateLimited
	}

	user, err := s.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			if s.limiter != nil {
				s.limiter.Fail(key)
			}
			s.logger.Info("login rejected", zap.String("client_ip", input.ClientIP))
		}
		return domain.User{}, err
	}
	if s.limiter != nil {
		s.limiter.Reset(key)
	}
	return user, nil
}

// burnComparison iguala el costo de la respuesta cuando el usuario no existe.
func (s *UserService) burnComparison(password string) {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("support-desk-placeholder"), s.cost)
		if err != nil {
			s.logger.Warn("dummy hash generation failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
	}
}
