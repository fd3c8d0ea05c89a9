package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "github.com/squadboard/backend/internal/auth/http"
	"github.com/squadboard/backend/internal/auth/service"
	"github.com/squadboard/backend/internal/common/jwtverify"
	"github.com/squadboard/backend/internal/common/logger"
	userdomain "github.com/squadboard/backend/internal/user/domain"
)

type mockAuthService struct {
	signupFunc        func(ctx context.Context, input service.SignupInput) (service.AuthResult, error)
	loginFunc         func(ctx context.Context, input service.LoginInput) (service.AuthResult, error)
	checkUsernameFunc func(ctx context.Context, username string) (bool, error)
	loggedOut         []userdomain.Identity
}

func (m *mockAuthService) Signup(ctx context.Context, input service.SignupInput) (service.AuthResult, error) {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, input)
	}
	return service.AuthResult{}, errors.New("not configured")
}

func (m *mockAuthService) Login(ctx context.Context, input service.LoginInput) (service.AuthResult, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, input)
	}
	return service.AuthResult{}, errors.New("not configured")
}

func (m *mockAuthService) CheckUsername(ctx context.Context, username string) (bool, error) {
	if m.checkUsernameFunc != nil {
		return m.checkUsernameFunc(ctx, username)
	}
	return false, nil
}

func (m *mockAuthService) Logout(_ context.Context, identity userdomain.Identity) {
	m.loggedOut = append(m.loggedOut, identity)
}

func (m *mockAuthService) TokenTTL() time.Duration {
	return 30 * 24 * time.Hour
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var alice = userdomain.Identity{ID: "5f0c4b8e-2a61-4a4e-9d7b-3c2f1e0a9b88", Username: "alice1234"}

// fakeGate admits requests carrying "Bearer ok".
func fakeGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(jwtverify.WithIdentity(r.Context(), alice)))
	})
}

func newHandler(svc *mockAuthService, secure bool) http.Handler {
	log := logger.NewWithWriter(io.Discard, "test", "error")
	return authhttp.NewHandler(svc, fakeGate, authhttp.Config{
		RequestTimeout: 5 * time.Second,
		CookieName:     "jwt",
		CookieSecure:   secure,
	}, log)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return env
}

func TestAuthHTTP_Signup_Created(t *testing.T) {
	svc := &mockAuthService{
		signupFunc: func(_ context.Context, input service.SignupInput) (service.AuthResult, error) {
			return service.AuthResult{UserID: alice.ID, Username: input.Username, Token: "signed"}, nil
		},
	}

	rec := postJSON(t, newHandler(svc, false), "/api/auth/signup", map[string]string{"username": "alice1234", "password": "Secret!1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != string(alice.ID) || body["username"] != "alice1234" || body["token"] != "signed" {
		t.Errorf("unexpected body %v", body)
	}
	if _, leaked := body["password"]; leaked {
		t.Error("password must never be returned")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("signup must not set a session cookie")
	}
}

func TestAuthHTTP_Signup_InvalidJSON(t *testing.T) {
	h := newHandler(&mockAuthService{}, false)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Code != "INVALID_JSON" {
		t.Errorf("expected INVALID_JSON, got %s", env.Code)
	}
}

func TestAuthHTTP_Signup_ServiceErrors(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", service.ErrValidationPasswordUpper, http.StatusBadRequest, "Password must contain at least one uppercase letter"},
		{"duplicate", service.ErrUsernameTaken, http.StatusBadRequest, "Username already exists"},
		{"unexpected", errors.New("db exploded"), http.StatusInternalServerError, "Server error"},
		{"unavailable", service.ErrServiceUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAuthService{
				signupFunc: func(context.Context, service.SignupInput) (service.AuthResult, error) {
					return service.AuthResult{}, tc.err
				},
			}

			rec := postJSON(t, newHandler(svc, false), "/api/auth/signup", map[string]string{"username": "alice1234", "password": "secret!1"})

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if env := decodeError(t, rec); env.Message != tc.message {
				t.Errorf("expected message %q, got %q", tc.message, env.Message)
			}
		})
	}
}

func TestAuthHTTP_Login_SetsCookie(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(_ context.Context, input service.LoginInput) (service.AuthResult, error) {
			return service.AuthResult{UserID: alice.ID, Username: input.Username, Token: "signed"}, nil
		},
	}

	rec := postJSON(t, newHandler(svc, true), "/api/auth/login", map[string]string{"username": "alice1234", "password": "Secret!1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "jwt" || c.Value != "signed" {
		t.Errorf("unexpected cookie %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.Path != "/" || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie attributes: %+v", c)
	}
	if c.MaxAge != 30*24*60*60 {
		t.Errorf("expected 30 day max-age, got %d", c.MaxAge)
	}
}

func TestAuthHTTP_Login_CookieNotSecureOutsideProduction(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(context.Context, service.LoginInput) (service.AuthResult, error) {
			return service.AuthResult{UserID: alice.ID, Username: "alice1234", Token: "signed"}, nil
		},
	}

	rec := postJSON(t, newHandler(svc, false), "/api/auth/login", map[string]string{"username": "alice1234", "password": "Secret!1"})

	if c := rec.Result().Cookies()[0]; c.Secure {
		t.Error("cookie must not be Secure outside production")
	}
}

func TestAuthHTTP_Login_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(context.Context, service.LoginInput) (service.AuthResult, error) {
			return service.AuthResult{}, service.ErrInvalidCredentials
		},
	}

	rec := postJSON(t, newHandler(svc, false), "/api/auth/login", map[string]string{"username": "alice1234", "password": "Wrong!123"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Message != "Invalid username or password" {
		t.Errorf("unexpected message %q", env.Message)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("failed login must not set a cookie")
	}
}

func TestAuthHTTP_Login_RequestHasDeadline(t *testing.T) {
	var hasDeadline bool
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, _ service.LoginInput) (service.AuthResult, error) {
			_, hasDeadline = ctx.Deadline()
			return service.AuthResult{}, service.ErrInvalidCredentials
		},
	}

	postJSON(t, newHandler(svc, false), "/api/auth/login", map[string]string{"username": "a", "password": "b"})

	if !hasDeadline {
		t.Error("expected the request timeout to reach the service")
	}
}

func TestAuthHTTP_CheckUsername(t *testing.T) {
	svc := &mockAuthService{
		checkUsernameFunc: func(_ context.Context, username string) (bool, error) {
			if username == "" {
				return false, service.ErrValidationUsernameRequired
			}
			return username == "alice1234", nil
		},
	}
	h := newHandler(svc, false)

	rec := postJSON(t, h, "/api/auth/check-username", map[string]string{"username": "alice1234"})
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"exists\":true}\n" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, h, "/api/auth/check-username", map[string]string{"username": "nobody"})
	if rec.Body.String() != "{\"exists\":false}\n" {
		t.Errorf("unexpected response %s", rec.Body.String())
	}

	rec = postJSON(t, h, "/api/auth/check-username", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing username, got %d", rec.Code)
	}
}

func TestAuthHTTP_Logout(t *testing.T) {
	svc := &mockAuthService{}
	h := newHandler(svc, false)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "jwt" || cookies[0].MaxAge >= 0 {
		t.Errorf("expected the session cookie to be cleared, got %+v", cookies)
	}
	if len(svc.loggedOut) != 1 || svc.loggedOut[0] != alice {
		t.Errorf("expected logout for %v, got %v", alice, svc.loggedOut)
	}
}

func TestAuthHTTP_Logout_RequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(&mockAuthService{}, false).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthHTTP_MethodNotAllowed(t *testing.T) {
	for _, path := range []string{"/api/auth/signup", "/api/auth/login", "/api/auth/check-username", "/api/auth/logout"} {
		rec := httptest.NewRecorder()
		newHandler(&mockAuthService{}, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", path, rec.Code)
		}
	}
}
