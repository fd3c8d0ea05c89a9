package jwtverify

import (
	"context"
	"net/http"
	"strings"

	commonerrors "github.com/squadboard/backend/internal/common/errors"
	commonhttp "github.com/squadboard/backend/internal/common/http"
	"github.com/squadboard/backend/internal/common/logger"
	"github.com/squadboard/backend/internal/observability/metrics"
	userdomain "github.com/squadboard/backend/internal/user/domain"
)

var (
	ErrNoToken = commonerrors.NewDomainError(
		"UNAUTHORIZED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"Not authorized, no token",
	)

	ErrInvalidSession = commonerrors.NewDomainError(
		"INVALID_TOKEN",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"Not authorized, invalid token",
	)
)

const (
	sourceCookie = "cookie"
	sourceHeader = "header"
	sourceNone   = "none"
	bearerPrefix = "Bearer "
)

// IdentityResolver turns a raw session token into the user it belongs to.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (userdomain.Identity, error)
}

type contextKey string

const identityKey contextKey = "identity"

type Config struct {
	CookieName string
}

// Middleware admits a request only when it carries a token that resolves to
// an existing user. The cookie is consulted before the Authorization header.
func Middleware(resolver IdentityResolver, cfg Config, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, source := extractToken(r, cfg.CookieName)
			if token == "" {
				metrics.SessionGateDecisions.WithLabelValues("rejected_no_token", source).Inc()
				log.WithFields(ctx, logger.Fields{
					"path":   r.URL.Path,
					"action": "session_no_token",
				}).Warn("session rejected: no token")
				commonhttp.HandleError(w, r, ErrNoToken, log)
				return
			}

			identity, err := resolver.ResolveIdentity(ctx, token)
			if err != nil {
				if de, ok := commonerrors.AsDomainError(err); ok && de.HTTPStatus() == http.StatusServiceUnavailable {
					metrics.SessionGateDecisions.WithLabelValues("unavailable", source).Inc()
					commonhttp.HandleError(w, r, de, log)
					return
				}
				metrics.SessionGateDecisions.WithLabelValues("rejected_invalid", source).Inc()
				log.WithFields(ctx, logger.Fields{
					"path":   r.URL.Path,
					"source": source,
					"action": "session_invalid_token",
				}).Warnf("session rejected: %v", err)
				commonhttp.HandleError(w, r, ErrInvalidSession.WithCause(err), log)
				return
			}

			metrics.SessionGateDecisions.WithLabelValues("accepted", source).Inc()
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func extractToken(r *http.Request, cookieName string) (string, string) {
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value, sourceCookie
		}
	}

	raw := r.Header.Get("Authorization")
	if len(raw) > len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(raw[len(bearerPrefix):]); token != "" {
			return token, sourceHeader
		}
	}

	return "", sourceNone
}

func WithIdentity(ctx context.Context, identity userdomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (userdomain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(userdomain.Identity)
	return identity, ok
}
