package http

import (
	"context"
	"net/http"
	"time"

	"github.com/squadboard/backend/internal/common/logger"
)

const healthPingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports 200 when the database answers a ping. A nil pinger
// makes it a plain liveness probe.
func HealthHandler(log *logger.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteErrorEnvelope(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", TraceIDFromContext(r.Context()))
			return
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				log.WithFields(r.Context(), logger.Fields{"action": "health_check_failed"}).Warnf("database ping failed: %v", err)
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
				return
			}
		}

		log.Debug("health check ok")
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
