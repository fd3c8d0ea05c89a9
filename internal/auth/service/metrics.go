package service

import (
	"errors"

	commonerrors "github.com/squadboard/backend/internal/common/errors"
	"github.com/squadboard/backend/internal/observability/metrics"
)

func incrementTokensIssued() {
	metrics.TokensIssued.Inc()
}

func recordSignup(result string) {
	metrics.SignupsTotal.WithLabelValues(result).Inc()
}

func recordLogin(result string) {
	metrics.LoginsTotal.WithLabelValues(result).Inc()
}

func recordTokenValidation(err error) {
	metrics.TokenValidationsTotal.Inc()
	if err == nil {
		return
	}

	reason := "invalid"
	switch {
	case errors.Is(err, commonerrors.ErrExpiredToken):
		reason = "expired"
	case errors.Is(err, commonerrors.ErrUserNotFound):
		reason = "user_not_found"
	case errors.Is(err, ErrServiceUnavailable):
		reason = "unavailable"
	}
	metrics.TokenValidationsFailed.WithLabelValues(reason).Inc()
}
