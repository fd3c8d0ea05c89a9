package http

import (
	"net/http"

	"github.com/squadboard/backend/internal/common/constants"
	"github.com/squadboard/backend/internal/common/httpmetrics"
	"github.com/squadboard/backend/internal/common/logger"
)

// BuildBaseHandler wraps handler with the middleware every service shares.
func BuildBaseHandler(log *logger.Logger, handler http.Handler) http.Handler {
	metrics := httpmetrics.New()
	recovery := RecoveryMiddleware(log)
	traceID := TraceIDMiddleware
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)
	securityHeaders := SecurityHeadersMiddleware
	csp := ContentSecurityPolicyMiddleware("")

	return securityHeaders(csp(traceID(recovery(maxRequestSize(metrics.Wrap(handler))))))
}
