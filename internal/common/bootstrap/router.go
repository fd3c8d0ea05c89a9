package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhttp "github.com/squadboard/backend/internal/auth/http"
	"github.com/squadboard/backend/internal/auth/service"
	"github.com/squadboard/backend/internal/common/config"
	"github.com/squadboard/backend/internal/common/constants"
	commonhttp "github.com/squadboard/backend/internal/common/http"
	"github.com/squadboard/backend/internal/common/jwtverify"
	"github.com/squadboard/backend/internal/common/logger"
	dashboardhttp "github.com/squadboard/backend/internal/dashboard/http"
	dashboardservice "github.com/squadboard/backend/internal/dashboard/service"
)

type RouterDeps struct {
	Auth      *service.AuthService
	Dashboard *dashboardservice.DashboardService
	DB        commonhttp.Pinger
	Config    config.AuthConfig
	Log       *logger.Logger
}

// NewRouter mounts every public route. Middleware shared by all routes is
// added by commonhttp.BuildBaseHandler.
func NewRouter(deps RouterDeps) http.Handler {
	requireSession := jwtverify.Middleware(deps.Auth, jwtverify.Config{
		CookieName: constants.SessionCookieName,
	}, deps.Log)

	authHandler := authhttp.NewHandler(deps.Auth, requireSession, authhttp.Config{
		RequestTimeout: deps.Config.RequestTimeout,
		CookieName:     constants.SessionCookieName,
		CookieSecure:   deps.Config.CookieSecure(),
	}, deps.Log)
	dashboardHandler := dashboardhttp.NewHandler(deps.Dashboard, requireSession, deps.Config.RequestTimeout, deps.Log)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", authHandler)
	mux.Handle("/api/user", dashboardHandler)
	mux.Handle("/api/dashboard", dashboardHandler)
	mux.HandleFunc("/health", commonhttp.HealthHandler(deps.Log, deps.DB))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			commonhttp.WriteErrorEnvelope(w, http.StatusNotFound, commonhttp.CodeNotFound, "Not found", commonhttp.TraceIDFromContext(r.Context()))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("API is running..."))
	})
	return mux
}
