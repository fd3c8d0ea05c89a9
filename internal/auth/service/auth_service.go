package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/squadboard/backend/internal/common/clock"
	"github.com/squadboard/backend/internal/common/config"
	"github.com/squadboard/backend/internal/common/constants"
	commoncrypto "github.com/squadboard/backend/internal/common/crypto"
	commonerrors "github.com/squadboard/backend/internal/common/errors"
	"github.com/squadboard/backend/internal/common/logger"
	"github.com/squadboard/backend/internal/common/resilience"
	userdomain "github.com/squadboard/backend/internal/user/domain"
	userrepo "github.com/squadboard/backend/internal/user/repository"
)

const timingPassword = "timing-equalizer-password"

type AuthService struct {
	repo      userrepo.Repository
	hasher    commoncrypto.PasswordHasher
	tokens    *TokenIssuer
	validator *CredentialValidator
	breaker   *resilience.CircuitBreaker
	log       *logger.Logger

	dummyHashOnce sync.Once
	dummyHash     string
}

type AuthServiceDeps struct {
	Repo   userrepo.Repository
	Hasher commoncrypto.PasswordHasher
	Clock  clock.Clock
	Log    *logger.Logger
}

type AuthServiceConfig struct {
	JWTSecret               string
	TokenTTL                time.Duration
	Policy                  config.PasswordPolicy
	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration
}

func NewAuthService(deps AuthServiceDeps, cfg AuthServiceConfig) *AuthService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = constants.DefaultTokenTTL
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreakerThreshold,
		Timeout:    cfg.CircuitBreakerTimeout,
		ResetAfter: cfg.CircuitBreakerReset,
		Name:       "credential_store",
		Logger:     deps.Log,
		Clock:      clk,
	})

	return &AuthService{
		repo:      deps.Repo,
		hasher:    deps.Hasher,
		tokens:    NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, clk),
		validator: NewCredentialValidator(cfg.Policy),
		breaker:   breaker,
		log:       deps.Log,
	}
}

type SignupInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	UserID    userdomain.ID
	Username  string
	Token     string
	ExpiresAt time.Time
}

// TokenTTL is how long issued tokens stay valid; the HTTP layer uses it for cookie lifetime.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "signup_attempt",
	}).Info("signup attempt")

	if err := s.validator.Validate(username, input.Password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "signup_validation_failed",
		}).Warnf("signup validation failed: %v", err)
		recordSignup("invalid")
		return AuthResult{}, err
	}

	// The unique constraint is authoritative; this only avoids hashing for a known duplicate.
	var exists bool
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		exists, err = s.repo.ExistsByUsername(ctx, username)
		return err
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "signup_precheck_failed",
		}).Errorf("signup failed: existence check error: %v", err)
		recordSignup("error")
		return AuthResult{}, storeError(err)
	}
	if exists {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "signup_username_exists",
		}).Warn("signup failed: already exists")
		recordSignup("conflict")
		return AuthResult{}, ErrUsernameTaken
	}

	hash, err := s.hashPassword(ctx, input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "signup_hash_failed",
		}).Errorf("signup failed: password hash error: %v", err)
		recordSignup("error")
		if ctx.Err() != nil {
			return AuthResult{}, ErrServiceUnavailable.WithCause(err)
		}
		return AuthResult{}, newInternalError("HASH_ERROR", err)
	}

	var user userdomain.User
	err = s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.Create(ctx, username, hash)
		return err
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrUsernameAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"username": username,
				"action":   "signup_username_exists",
			}).Warn("signup failed: lost race on unique username")
			recordSignup("conflict")
			return AuthResult{}, ErrUsernameTaken.WithCause(err)
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "signup_create_failed",
		}).Errorf("signup failed: %v", err)
		recordSignup("error")
		return AuthResult{}, storeError(err)
	}

	result, err := s.issue(ctx, user, "signup")
	if err != nil {
		recordSignup("error")
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"user_id":  string(user.ID),
		"action":   "signup_success",
	}).Info("signup success")
	recordSignup("success")

	return result, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "login_attempt",
	}).Info("login attempt")

	if err := RequireCredentials(username, input.Password); err != nil {
		recordLogin("invalid")
		return AuthResult{}, err
	}

	var user userdomain.User
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.FindByUsername(ctx, username)
		return err
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			// Same work as a real comparison so response time does not reveal the username.
			_, _ = s.verifyPassword(ctx, s.timingHash(), input.Password)
			s.log.WithFields(ctx, logger.Fields{
				"username": username,
				"action":   "login_user_not_found",
			}).Warn("login failed: not found")
			recordLogin("invalid_credentials")
			return AuthResult{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		recordLogin("error")
		return AuthResult{}, storeError(err)
	}

	ok, err := s.verifyPassword(ctx, user.PasswordHash, input.Password)
	if err != nil {
		recordLogin("error")
		return AuthResult{}, ErrServiceUnavailable.WithCause(err)
	}
	if !ok {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "login_invalid_password",
		}).Warn("login failed: invalid password")
		recordLogin("invalid_credentials")
		return AuthResult{}, ErrInvalidCredentials
	}

	result, err := s.issue(ctx, user, "login")
	if err != nil {
		recordLogin("error")
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"user_id":  string(user.ID),
		"action":   "login_success",
	}).Info("login success")
	recordLogin("success")

	return result, nil
}

// CheckUsername reports whether a username is already registered.
func (s *AuthService) CheckUsername(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, ErrValidationUsernameRequired
	}

	var exists bool
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		exists, err = s.repo.ExistsByUsername(ctx, username)
		return err
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "check_username_failed",
		}).Errorf("check username failed: %v", err)
		return false, storeError(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"exists":   exists,
		"action":   "check_username",
	}).Debug("username checked")

	return exists, nil
}

// ResolveIdentity maps a session token to the user it was issued for.
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (userdomain.Identity, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		recordTokenValidation(err)
		return userdomain.Identity{}, err
	}

	var user userdomain.User
	err = s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.FindByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			recordTokenValidation(err)
			return userdomain.Identity{}, err
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(userID),
			"action":  "resolve_identity_failed",
		}).Errorf("resolve identity failed: %v", err)
		unavailable := ErrServiceUnavailable.WithCause(err)
		recordTokenValidation(unavailable)
		return userdomain.Identity{}, unavailable
	}

	recordTokenValidation(nil)
	return user.Identity(), nil
}

// Logout is stateless; tokens stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, identity userdomain.Identity) {
	s.log.WithFields(ctx, logger.Fields{
		"username": identity.Username,
		"user_id":  string(identity.ID),
		"action":   "logout",
	}).Info("logout")
}

func (s *AuthService) issue(ctx context.Context, user userdomain.User, action string) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": user.Username,
			"user_id":  string(user.ID),
			"action":   action + "_token_issue_failed",
		}).Errorf("%s failed: token issue error: %v", action, err)
		return AuthResult{}, newInternalError("TOKEN_ERROR", err)
	}

	return AuthResult{
		UserID:    user.ID,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) hashPassword(ctx context.Context, password string) (string, error) {
	type result struct {
		hash string
		err  error
	}

	done := make(chan result, 1)
	go func() {
		hash, err := s.hasher.Hash(password)
		done <- result{hash: hash, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.hash, r.err
	}
}

func (s *AuthService) verifyPassword(ctx context.Context, hash, password string) (bool, error) {
	done := make(chan bool, 1)
	go func() {
		done <- s.hasher.Verify(hash, password)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case ok := <-done:
		return ok, nil
	}
}

func (s *AuthService) timingHash() string {
	s.dummyHashOnce.Do(func() {
		hash, err := s.hasher.Hash(timingPassword)
		if err != nil {
			s.log.Warnf("failed to prepare timing hash: %v", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
