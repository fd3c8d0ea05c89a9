package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/squadboard/backend/internal/common/constants"
	"github.com/squadboard/backend/internal/common/logger"
)

// ShutdownHook releases a resource once the server has stopped serving.
type ShutdownHook func(ctx context.Context) error

// StartWithGracefulShutdown serves until SIGINT or SIGTERM.
func StartWithGracefulShutdown(server *http.Server, log *logger.Logger, serviceName string, hooks []ShutdownHook) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, server, log, serviceName, constants.ShutdownTimeout, hooks)
}

// Run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests and runs hooks in order.
func Run(ctx context.Context, server *http.Server, log *logger.Logger, serviceName string, shutdownTimeout time.Duration, hooks []ShutdownHook) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = constants.ShutdownTimeout
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("%s service listening on %s", serviceName, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Infof("shutting down %s service...", serviceName)
	case err, ok := <-serveErr:
		if ok && err != nil {
			runErr = fmt.Errorf("%s service failed: %w", serviceName, err)
			log.Errorf("%v", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	server.SetKeepAlivesEnabled(false)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service forced to shutdown: %v", serviceName, err)
	} else {
		log.Infof("%s service stopped accepting requests", serviceName)
	}

	for i, hook := range hooks {
		if err := hook(shutdownCtx); err != nil {
			log.Errorf("%s service: shutdown hook %d failed: %v", serviceName, i, err)
		}
	}

	log.Infof("%s service stopped", serviceName)
	return runErr
}
