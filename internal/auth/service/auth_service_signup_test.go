package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/squadboard/backend/internal/auth/service"
	commonerrors "github.com/squadboard/backend/internal/common/errors"
	userdomain "github.com/squadboard/backend/internal/user/domain"
)

func TestAuthService_Signup_Success(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)

	var storedHash string
	repo.createFunc = func(_ context.Context, username, passwordHash string) (userdomain.User, error) {
		storedHash = passwordHash
		return userdomain.User{ID: testUserID, Username: username, PasswordHash: passwordHash}, nil
	}

	result, err := svc.Signup(context.Background(), service.SignupInput{
		Username: "alice1234",
		Password: "Secret!1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.UserID != testUserID {
		t.Errorf("expected user id %s, got %s", testUserID, result.UserID)
	}
	if result.Username != "alice1234" {
		t.Errorf("expected username alice1234, got %s", result.Username)
	}
	if result.Token == "" {
		t.Error("expected token to be set")
	}
	if storedHash != "hashed:Secret!1" {
		t.Errorf("expected hashed password to be stored, got %q", storedHash)
	}
}

func TestAuthService_Signup_ValidationError(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	repo.createFunc = func(context.Context, string, string) (userdomain.User, error) {
		t.Fatal("create must not be called for invalid input")
		return userdomain.User{}, nil
	}

	_, err := svc.Signup(context.Background(), service.SignupInput{Username: "alice1234", Password: "secret!1"})

	if !errors.Is(err, service.ErrValidationPasswordUpper) {
		t.Fatalf("expected uppercase validation error, got %v", err)
	}
	de, ok := commonerrors.AsDomainError(err)
	if !ok || de.HTTPStatus() != 400 {
		t.Errorf("expected 400 domain error, got %v", err)
	}
}

func TestAuthService_Signup_MissingFields(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)

	_, err := svc.Signup(context.Background(), service.SignupInput{Username: "", Password: "Secret!1"})

	if !errors.Is(err, service.ErrValidationRequired) {
		t.Fatalf("expected required error, got %v", err)
	}
}

func TestAuthService_Signup_PrecheckConflict(t *testing.T) {
	svc, repo, hasher, _ := setupAuthService(t)
	repo.existsByUsernameFunc = func(context.Context, string) (bool, error) {
		return true, nil
	}
	hasher.hashFunc = func(string) (string, error) {
		t.Fatal("hash must not run for a known duplicate")
		return "", nil
	}

	_, err := svc.Signup(context.Background(), service.SignupInput{Username: "alice1234", Password: "Secret!1"})

	if !errors.Is(err, service.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthService_Signup_UniqueViolationAfterPrecheck(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	repo.existsByUsernameFunc = func(context.Context, string) (bool, error) {
		return false, nil
	}
	repo.createFunc = func(context.Context, string, string) (userdomain.User, error) {
		return userdomain.User{}, commonerrors.ErrUsernameAlreadyExists
	}

	_, err := svc.Signup(context.Background(), service.SignupInput{Username: "alice1234", Password: "Secret!1"})

	if !errors.Is(err, service.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	de, _ := commonerrors.AsDomainError(err)
	if de.HTTPStatus() != 400 || de.Message() != "Username already exists" {
		t.Errorf("unexpected conflict presentation: %d %q", de.HTTPStatus(), de.Message())
	}
}

func TestAuthService_Signup_StoreFailure(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	repo.createFunc = func(context.Context, string, string) (userdomain.User, error) {
		return userdomain.User{}, errors.New("connection refused")
	}

	_, err := svc.Signup(context.Background(), service.SignupInput{Username: "alice1234", Password: "Secret!1"})

	de, ok := commonerrors.AsDomainError(err)
	if !ok {
		t.Fatalf("expected domain error, got %v", err)
	}
	if de.HTTPStatus() != 500 || de.Message() != "Server error" {
		t.Errorf("expected generic 500, got %d %q", de.HTTPStatus(), de.Message())
	}
}

func TestAuthService_Signup_HashError(t *testing.T) {
	svc, _, hasher, _ := setupAuthService(t)
	hasher.hashFunc = func(string) (string, error) {
		return "", errors.New("hash failed")
	}

	_, err := svc.Signup(context.Background(), service.SignupInput{Username: "alice1234", Password: "Secret!1"})

	de, ok := commonerrors.AsDomainError(err)
	if !ok || de.HTTPStatus() != 500 {
		t.Fatalf("expected 500 domain error, got %v", err)
	}
}

func TestAuthService_Signup_CircuitOpen(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	repo.existsByUsernameFunc = func(context.Context, string) (bool, error) {
		return false, errors.New("db down")
	}

	for i := 0; i < 3; i++ {
		_, _ = svc.Signup(context.Background(), service.SignupInput{Username: "alice1234", Password: "Secret!1"})
	}

	_, err := svc.Signup(context.Background(), service.SignupInput{Username: "alice1234", Password: "Secret!1"})
	if !errors.Is(err, service.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestAuthService_CheckUsername(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	repo.existsByUsernameFunc = func(_ context.Context, username string) (bool, error) {
		return username == "taken", nil
	}

	exists, err := svc.CheckUsername(context.Background(), "taken")
	if err != nil || !exists {
		t.Errorf("expected taken to exist, got %v %v", exists, err)
	}

	exists, err = svc.CheckUsername(context.Background(), "free")
	if err != nil || exists {
		t.Errorf("expected free to be available, got %v %v", exists, err)
	}

	if _, err := svc.CheckUsername(context.Background(), "  "); !errors.Is(err, service.ErrValidationUsernameRequired) {
		t.Errorf("expected username required error, got %v", err)
	}
}
