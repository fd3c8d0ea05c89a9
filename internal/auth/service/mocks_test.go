package service_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/squadboard/backend/internal/auth/service"
	"github.com/squadboard/backend/internal/common/clock"
	"github.com/squadboard/backend/internal/common/config"
	commonerrors "github.com/squadboard/backend/internal/common/errors"
	"github.com/squadboard/backend/internal/common/logger"
	userdomain "github.com/squadboard/backend/internal/user/domain"
)

const (
	testJWTSecret = "test-secret-key-must-be-at-least-32-bytes-long"
	testUserID    = "5f0c4b8e-2a61-4a4e-9d7b-3c2f1e0a9b88"
)

type mockUserRepo struct {
	createFunc           func(ctx context.Context, username, passwordHash string) (userdomain.User, error)
	findByUsernameFunc   func(ctx context.Context, username string) (userdomain.User, error)
	findByIDFunc         func(ctx context.Context, id userdomain.ID) (userdomain.User, error)
	existsByUsernameFunc func(ctx context.Context, username string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, username, passwordHash string) (userdomain.User, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, username, passwordHash)
	}
	return userdomain.User{ID: testUserID, Username: username, PasswordHash: passwordHash}, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (userdomain.User, error) {
	if m.findByUsernameFunc != nil {
		return m.findByUsernameFunc(ctx, username)
	}
	return userdomain.User{}, commonerrors.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id userdomain.ID) (userdomain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return userdomain.User{}, commonerrors.ErrUserNotFound
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFunc != nil {
		return m.existsByUsernameFunc(ctx, username)
	}
	return false, nil
}

type mockHasher struct {
	hashFunc   func(password string) (string, error)
	verifyFunc func(hash, password string) bool
	verifyN    int
	mu         sync.Mutex
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Verify(hash, password string) bool {
	m.mu.Lock()
	m.verifyN++
	m.mu.Unlock()
	if m.verifyFunc != nil {
		return m.verifyFunc(hash, password)
	}
	return hash == "hashed:"+password
}

func (m *mockHasher) verifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyN
}

// memoryRepo mimics the users table, including its unique constraint.
type memoryRepo struct {
	mu      sync.Mutex
	byName  map[string]userdomain.User
	byID    map[userdomain.ID]userdomain.User
	clock   clock.Clock
	creates int
}

func newMemoryRepo(c clock.Clock) *memoryRepo {
	return &memoryRepo{
		byName: make(map[string]userdomain.User),
		byID:   make(map[userdomain.ID]userdomain.User),
		clock:  c,
	}
}

func (r *memoryRepo) Create(_ context.Context, username, passwordHash string) (userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[username]; ok {
		return userdomain.User{}, commonerrors.ErrUsernameAlreadyExists
	}
	now := r.clock.Now()
	user := userdomain.User{
		ID:           userdomain.ID(uuid.NewString()),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byName[username] = user
	r.byID[user.ID] = user
	r.creates++
	return user, nil
}

func (r *memoryRepo) FindByUsername(_ context.Context, username string) (userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byName[username]
	if !ok {
		return userdomain.User{}, commonerrors.ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id userdomain.ID) (userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return userdomain.User{}, commonerrors.ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byName[username]
	return ok, nil
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "test", "error")
}

func testConfig() service.AuthServiceConfig {
	return service.AuthServiceConfig{
		JWTSecret:               testJWTSecret,
		TokenTTL:                30 * 24 * time.Hour,
		Policy:                  config.DefaultPasswordPolicy(),
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   time.Second,
		CircuitBreakerReset:     time.Minute,
	}
}

func setupAuthService(t *testing.T) (*service.AuthService, *mockUserRepo, *mockHasher, *clock.MockClock) {
	t.Helper()
	repo := &mockUserRepo{}
	hasher := &mockHasher{}
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	svc := service.NewAuthService(
		service.AuthServiceDeps{
			Repo:   repo,
			Hasher: hasher,
			Clock:  mockClock,
			Log:    testLogger(),
		},
		testConfig(),
	)

	return svc, repo, hasher, mockClock
}
