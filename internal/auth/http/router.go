package http

import (
	"context"
	"net/http"
	"time"

	"github.com/squadboard/backend/internal/auth/service"
	"github.com/squadboard/backend/internal/common/constants"
	commonhttp "github.com/squadboard/backend/internal/common/http"
	"github.com/squadboard/backend/internal/common/jwtverify"
	"github.com/squadboard/backend/internal/common/logger"
	userdomain "github.com/squadboard/backend/internal/user/domain"
)

type AuthService interface {
	Signup(ctx context.Context, input service.SignupInput) (service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (service.AuthResult, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	Logout(ctx context.Context, identity userdomain.Identity)
	TokenTTL() time.Duration
}

type Config struct {
	RequestTimeout time.Duration
	CookieName     string
	CookieSecure   bool
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type checkUsernameRequest struct {
	Username string `json:"username"`
}

type authResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type checkUsernameResponse struct {
	Exists bool `json:"exists"`
}

type Handler struct {
	auth AuthService
	cfg  Config
	log  *logger.Logger
}

// NewHandler serves /api/auth/*. requireSession guards the routes that need
// an authenticated caller.
func NewHandler(auth AuthService, requireSession func(http.Handler) http.Handler, cfg Config, log *logger.Logger) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = constants.SessionCookieName
	}
	h := &Handler{auth: auth, cfg: cfg, log: log}

	post := commonhttp.RequireMethod(http.MethodPost)
	timeout := commonhttp.WithTimeout(cfg.RequestTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/signup", post(timeout(h.signup)))
	mux.HandleFunc("/api/auth/login", post(timeout(h.login)))
	mux.HandleFunc("/api/auth/check-username", post(timeout(h.checkUsername)))
	mux.HandleFunc("/api/auth/logout", post(timeout(requireSession(http.HandlerFunc(h.logout)).ServeHTTP)))
	return mux
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.invalidJSON(w, r, "signup", err)
		return
	}

	result, err := h.auth.Signup(r.Context(), service.SignupInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, toAuthResponse(result))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.invalidJSON(w, r, "login", err)
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	h.setSessionCookie(w, result.Token)
	commonhttp.WriteJSON(w, http.StatusOK, toAuthResponse(result))
}

func (h *Handler) checkUsername(w http.ResponseWriter, r *http.Request) {
	var req checkUsernameRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.invalidJSON(w, r, "check_username", err)
		return
	}

	exists, err := h.auth.CheckUsername(r.Context(), req.Username)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, checkUsernameResponse{Exists: exists})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if identity, ok := jwtverify.IdentityFromContext(r.Context()); ok {
		h.auth.Logout(r.Context(), identity)
	}

	h.clearSessionCookie(w)
	commonhttp.WriteJSON(w, http.StatusOK, commonhttp.MessageResponse{Message: "Logged out successfully"})
}

func (h *Handler) invalidJSON(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.log.WithFields(r.Context(), logger.Fields{
		"action": action + "_invalid_json",
	}).Warnf("%s failed: invalid json: %v", action, err)
	commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", commonhttp.TraceIDFromContext(r.Context()))
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     constants.SessionCookiePath,
		MaxAge:   int(h.auth.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func toAuthResponse(result service.AuthResult) authResponse {
	return authResponse{
		ID:       string(result.UserID),
		Username: result.Username,
		Token:    result.Token,
	}
}
