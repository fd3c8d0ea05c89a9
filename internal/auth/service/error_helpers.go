package service

import (
	"context"
	"errors"
	"net/http"

	commonerrors "github.com/squadboard/backend/internal/common/errors"
)

// storeError converts a failed store call into the error a client may see.
func storeError(err error) error {
	switch {
	case errors.Is(err, commonerrors.ErrCircuitOpen),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrServiceUnavailable.WithCause(err)
	default:
		return newInternalError("DB_ERROR", err)
	}
}

func newInternalError(code string, cause error) commonerrors.DomainError {
	err := commonerrors.NewDomainError(
		code,
		commonerrors.CategoryInternal,
		http.StatusInternalServerError,
		commonerrors.ErrInternalError.Message(),
	)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
