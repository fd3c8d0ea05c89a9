package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/squadboard/backend/internal/common/clock"
	commonerrors "github.com/squadboard/backend/internal/common/errors"
	userdomain "github.com/squadboard/backend/internal/user/domain"
)

var errMissingSigningSecret = errors.New("token signing secret is not configured")

// TokenIssuer signs and verifies HS256 session tokens carrying sub, iat and exp.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokenIssuer(secret string, ttl time.Duration, clk clock.Clock) *TokenIssuer {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clk,
	}
}

func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

func (ti *TokenIssuer) Issue(userID userdomain.ID) (string, time.Time, error) {
	if len(ti.secret) == 0 {
		return "", time.Time{}, errMissingSigningSecret
	}

	now := ti.clock.Now()
	expiresAt := now.Add(ti.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   string(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	incrementTokensIssued()
	return signed, expiresAt, nil
}

// Verify returns the subject of a valid token. Expired tokens yield
// ErrExpiredToken; every other failure yields ErrInvalidToken.
func (ti *TokenIssuer) Verify(tokenString string) (userdomain.ID, error) {
	if len(ti.secret) == 0 {
		return "", commonerrors.ErrInvalidToken.WithCause(errMissingSigningSecret)
	}
	if tokenString == "" {
		return "", commonerrors.ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (any, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", commonerrors.ErrExpiredToken.WithCause(err)
		}
		return "", commonerrors.ErrInvalidToken.WithCause(err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", commonerrors.ErrInvalidToken.WithCause(fmt.Errorf("subject is not a user id: %w", err))
	}

	return userdomain.ID(claims.Subject), nil
}
