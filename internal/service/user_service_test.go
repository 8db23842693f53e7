package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"support-desk/internal/domain"
	"support-desk/internal/repository"
)

type mockUserRepo struct {
	mu         sync.Mutex
	byID       map[int64]domain.User
	byUsername map[string]int64
	createErr  error
	lookupErr  error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:       make(map[int64]domain.User),
		byUsername: make(map[string]int64),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byUsername[user.Username]; ok {
		return repository.ErrDuplicate
	}
	m.byID[user.ID] = user
	m.byUsername[user.Username] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return domain.User{}, m.lookupErr
	}
	id, ok := m.byUsername[username]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.byID[id], nil
}

func (m *mockUserRepo) MaxID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var maxID int64
	for id := range m.byID {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func newTestUserService(repo repository.UserRepository, limiter LoginRateLimiter) *UserService {
	return NewUserService(nil, repo, nil, bcrypt.MinCost, limiter)
}

func TestUserService_Register(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "  alice ", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash != "" {
		t.Fatalf("hash must not be returned")
	}

	stored, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if stored.PasswordHash == "password1" {
		t.Fatalf("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestUserService_RegisterInvalidInput(t *testing.T) {
	svc := newTestUserService(newMockUserRepo(), nil)

	cases := []RegisterInput{
		{Username: "", Password: "password1"},
		{Username: "   ", Password: "password1"},
		{Username: "alice", Password: "short"},
		{Username: "alice", Password: string(make([]byte, 80)) + "x"},
	}
	for _, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %q, got %v", in.Username, err)
		}
	}
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "password2"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected a single stored user, got %d", len(repo.byID))
	}
}

func TestUserService_RegisterConcurrentSameUsername(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, nil)

	const attempts = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		taken int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), RegisterInput{Username: "carol", Password: "password1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrUsernameTaken):
				taken++
			}
		}()
	}
	wg.Wait()

	if wins != 1 || taken != attempts-1 {
		t.Fatalf("expected one winner, got wins=%d taken=%d", wins, taken)
	}
}

func TestUserService_RegisterPersistenceFailure(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = errors.New("disk full")
	svc := newTestUserService(repo, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Password: "password1"})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestUserService_Authenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, nil)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(ctx, "alice", "password1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != registered.ID || user.Username != "alice" || user.PasswordHash != "" {
		t.Fatalf("unexpected user: %+v", user)
	}

	_, wrongPassword := svc.Authenticate(ctx, "alice", "password2")
	_, unknownUser := svc.Authenticate(ctx, "mallory", "password1")
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v / %v", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("failure causes must be indistinguishable")
	}

	if _, err := svc.Authenticate(ctx, "Alice", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected case-sensitive username match, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}

func TestUserService_AuthenticateLookupFailure(t *testing.T) {
	repo := newMockUserRepo()
	repo.lookupErr = errors.New("connection reset")
	svc := newTestUserService(repo, nil)

	if _, err := svc.Authenticate(context.Background(), "alice", "password1"); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

type denyAllLimiter struct{ keys []string }

func (d *denyAllLimiter) Allow(key string) bool {
	d.keys = append(d.keys, key)
	return false
}

func (d *denyAllLimiter) Fail(string)  {}
func (d *denyAllLimiter) Reset(string) {}

func TestUserService_LoginRateLimited(t *testing.T) {
	repo := newMockUserRepo()
	limiter := &denyAllLimiter{}
	svc := newTestUserService(repo, limiter)

	_, err := svc.Login(context.Background(), LoginInput{Username: " alice ", Password: "password1", ClientIP: "10.0.0.1"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "alice|10.0.0.1" {
		t.Fatalf("unexpected limiter key: %+v", limiter.keys)
	}
}

func TestUserService_LoginWithinLimit(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, NewLoginRateLimiter(0, 5))
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "password1", ClientIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestUserService_SuccessfulLoginsDoNotCount(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, NewLoginRateLimiter(time.Minute, 3))
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 0; i < 6; i++ {
		if _, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "password1", ClientIP: "10.0.0.1"}); err != nil {
			t.Fatalf("login %d: %v", i+1, err)
		}
	}
}

func TestUserService_FailedLoginsHitLimit(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, NewLoginRateLimiter(time.Minute, 3))
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	bad := LoginInput{Username: "alice", Password: "wrong-pass", ClientIP: "10.0.0.1"}
	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := svc.Login(ctx, bad); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after max failures, got %v", err)
	}
	good := LoginInput{Username: "alice", Password: "password1", ClientIP: "10.0.0.1"}
	if _, err := svc.Login(ctx, good); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected correct password still limited, got %v", err)
	}
	good.ClientIP = "10.0.0.2"
	if _, err := svc.Login(ctx, good); err != nil {
		t.Fatalf("expected other client allowed, got %v", err)
	}
}

func TestUserService_SuccessResetsFailures(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, NewLoginRateLimiter(time.Minute, 3))
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	bad := LoginInput{Username: "alice", Password: "wrong-pass", ClientIP: "10.0.0.1"}
	good := LoginInput{Username: "alice", Password: "password1", ClientIP: "10.0.0.1"}
	for round := 0; round < 3; round++ {
		for i := 0; i < 2; i++ {
			if _, err := svc.Login(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("round %d attempt %d: expected ErrInvalidCredentials, got %v", round, i+1, err)
			}
		}
		if _, err := svc.Login(ctx, good); err != nil {
			t.Fatalf("round %d: expected success to reset failures, got %v", round, err)
		}
	}
}
