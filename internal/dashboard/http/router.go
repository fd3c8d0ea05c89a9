package http

import (
	"net/http"
	"time"

	commonhttp "github.com/squadboard/backend/internal/common/http"
	"github.com/squadboard/backend/internal/common/jwtverify"
	"github.com/squadboard/backend/internal/common/logger"
	"github.com/squadboard/backend/internal/dashboard/service"
)

type Handler struct {
	dashboard *service.DashboardService
	log       *logger.Logger
}

func NewHandler(dashboard *service.DashboardService, requireSession func(http.Handler) http.Handler, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	h := &Handler{dashboard: dashboard, log: log}

	get := commonhttp.RequireMethod(http.MethodGet)
	timeout := commonhttp.WithTimeout(requestTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/user", get(timeout(requireSession(http.HandlerFunc(h.user)).ServeHTTP)))
	mux.HandleFunc("/api/dashboard", get(timeout(requireSession(http.HandlerFunc(h.summary)).ServeHTTP)))
	return mux
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) {
	identity, ok := jwtverify.IdentityFromContext(r.Context())
	if !ok {
		commonhttp.HandleError(w, r, jwtverify.ErrNoToken, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, h.dashboard.Profile(r.Context(), identity))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	identity, ok := jwtverify.IdentityFromContext(r.Context())
	if !ok {
		commonhttp.HandleError(w, r, jwtverify.ErrNoToken, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, h.dashboard.Summary(r.Context(), identity))
}
