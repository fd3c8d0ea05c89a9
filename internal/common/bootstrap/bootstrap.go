package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/squadboard/backend/internal/auth/service"
	"github.com/squadboard/backend/internal/common/config"
	"github.com/squadboard/backend/internal/common/constants"
	commoncrypto "github.com/squadboard/backend/internal/common/crypto"
	"github.com/squadboard/backend/internal/common/db"
	commonhttp "github.com/squadboard/backend/internal/common/http"
	"github.com/squadboard/backend/internal/common/logger"
	"github.com/squadboard/backend/internal/common/server"
	dashboardservice "github.com/squadboard/backend/internal/dashboard/service"
	userrepo "github.com/squadboard/backend/internal/user/repository"
)

const serviceName = "auth"

type AuthApp struct {
	Config  config.AuthConfig
	Log     *logger.Logger
	Pool    *pgxpool.Pool
	Handler http.Handler
	Hooks   []server.ShutdownHook
}

// NewAuthApp loads configuration, opens the database and wires every
// component. The returned hooks release what was opened, in reverse order.
func NewAuthApp(ctx context.Context) (*AuthApp, error) {
	log, err := logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.SetLevel(cfg.LogLevel)

	if cfg.Database.RunMigrations {
		if err := db.Migrate(ctx, log, cfg.Database.URL); err != nil {
			_ = log.Close()
			return nil, err
		}
	}

	pool, err := db.NewPool(ctx, log, cfg.Database)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	db.StartPoolMetrics(metricsCtx, pool, constants.DBPoolMetricsInterval)

	authService := service.NewAuthService(
		service.AuthServiceDeps{
			Repo:   userrepo.NewPgRepository(pool),
			Hasher: commoncrypto.NewBcryptHasher(cfg.BcryptCost),
			Log:    log,
		},
		service.AuthServiceConfig{
			JWTSecret:               cfg.JWTSecret,
			TokenTTL:                cfg.TokenTTL,
			Policy:                  cfg.Policy,
			CircuitBreakerThreshold: cfg.CircuitBreaker.Threshold,
			CircuitBreakerTimeout:   cfg.CircuitBreaker.Timeout,
			CircuitBreakerReset:     cfg.CircuitBreaker.ResetAfter,
		},
	)

	router := NewRouter(RouterDeps{
		Auth:      authService,
		Dashboard: dashboardservice.NewDashboardService(log),
		DB:        pool,
		Config:    cfg,
		Log:       log,
	})

	hooks := []server.ShutdownHook{
		func(context.Context) error {
			stopMetrics()
			return nil
		},
		func(context.Context) error {
			log.Info("closing database pool")
			pool.Close()
			return nil
		},
		func(context.Context) error {
			return log.Close()
		},
	}

	log.Infof("auth app initialized: env=%s port=%s", cfg.Environment, cfg.HTTPPort)

	return &AuthApp{
		Config:  cfg,
		Log:     log,
		Pool:    pool,
		Handler: commonhttp.BuildBaseHandler(log, router),
		Hooks:   hooks,
	}, nil
}
