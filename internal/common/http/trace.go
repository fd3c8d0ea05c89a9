package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/squadboard/backend/internal/common/constants"
)

const traceIDHeader = "X-Trace-ID"

// TraceIDMiddleware reuses an inbound X-Trace-ID or generates one, and
// stores it where the logger and error envelopes can find it.
func TraceIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" || len(traceID) > 128 {
			traceID = uuid.NewString()
		}

		w.Header().Set(traceIDHeader, traceID)

		ctx := context.WithValue(r.Context(), constants.TraceIDKey, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(constants.TraceIDKey).(string)
	return traceID
}
