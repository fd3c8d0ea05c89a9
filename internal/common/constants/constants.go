package constants

import "time"

const (
	UsernameMinLength  = 3
	UsernameMaxLength  = 32
	PasswordMinLength  = 8
	PasswordMaxLength  = 72
	PasswordSymbols    = "!@#$%^&*"
	JWTSecretMinLength = 32

	DefaultBcryptCost     = 12
	DefaultMaxRequestSize = 1 << 20

	DefaultTokenTTL    = 30 * 24 * time.Hour
	SessionCookieName  = "jwt"
	SessionCookiePath  = "/"
	ProductionEnv      = "production"
	DefaultEnvironment = "development"

	DBPoolMaxConns        = 10
	DBPoolMinConns        = 2
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBApplicationName     = "squadboard"

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second

	DefaultAuthHTTPPort       = "5000"
	DefaultAuthRequestTimeout = 5 * time.Second

	DefaultCircuitBreakerThreshold = 50
	DefaultCircuitBreakerTimeout   = 3 * time.Second
	DefaultCircuitBreakerReset     = 10 * time.Second

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
