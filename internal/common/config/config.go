package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/squadboard/backend/internal/common/constants"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrInvalidJWTSecret   = errors.New("JWT_SECRET must be at least 32 bytes")
	ErrInvalidPolicy      = errors.New("invalid credential policy")
)

// PasswordPolicy holds the signup rules for usernames and passwords.
type PasswordPolicy struct {
	UsernameMinLength int
	UsernameMaxLength int
	MinLength         int
	MaxLength         int
	RequireLower      bool
	RequireUpper      bool
	RequireSymbol     bool
	Symbols           string
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		UsernameMinLength: constants.UsernameMinLength,
		UsernameMaxLength: constants.UsernameMaxLength,
		MinLength:         constants.PasswordMinLength,
		MaxLength:         constants.PasswordMaxLength,
		RequireLower:      true,
		RequireUpper:      true,
		RequireSymbol:     true,
		Symbols:           constants.PasswordSymbols,
	}
}

func (p PasswordPolicy) Validate() error {
	if p.UsernameMinLength < 1 || p.UsernameMaxLength < p.UsernameMinLength {
		return fmt.Errorf("%w: username length bounds %d..%d", ErrInvalidPolicy, p.UsernameMinLength, p.UsernameMaxLength)
	}
	if p.MinLength < 1 || p.MaxLength < p.MinLength {
		return fmt.Errorf("%w: password length bounds %d..%d", ErrInvalidPolicy, p.MinLength, p.MaxLength)
	}
	if p.MaxLength > constants.PasswordMaxLength {
		return fmt.Errorf("%w: password max length %d exceeds bcrypt limit %d", ErrInvalidPolicy, p.MaxLength, constants.PasswordMaxLength)
	}
	if p.RequireSymbol && p.Symbols == "" {
		return fmt.Errorf("%w: symbol set is empty", ErrInvalidPolicy)
	}
	if strings.ContainsAny(p.Symbols, ",|") {
		return fmt.Errorf("%w: symbol set must not contain ',' or '|'", ErrInvalidPolicy)
	}
	return nil
}

type DatabaseConfig struct {
	URL           string
	MaxConns      int32
	MinConns      int32
	RunMigrations bool
}

type CircuitBreakerConfig struct {
	Threshold  int32
	Timeout    time.Duration
	ResetAfter time.Duration
}

type AuthConfig struct {
	HTTPPort       string
	Environment    string
	Database       DatabaseConfig
	JWTSecret      string
	TokenTTL       time.Duration
	BcryptCost     int
	RequestTimeout time.Duration
	Policy         PasswordPolicy
	CircuitBreaker CircuitBreakerConfig
	LogDir         string
	LogLevel       string
}

// CookieSecure reports whether the session cookie must carry the Secure flag.
func (c AuthConfig) CookieSecure() bool {
	return strings.EqualFold(c.Environment, constants.ProductionEnv)
}

// LoadAuthConfig reads the environment. Values from ENV_FILE (default ".env")
// are loaded first and never override variables that are already set.
func LoadAuthConfig() (AuthConfig, error) {
	loadEnvFile(getEnv("ENV_FILE", ".env"))

	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}

	if err := validateJWTSecret(jwtSecret); err != nil {
		return AuthConfig{}, err
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return AuthConfig{}, err
	}

	defaults := DefaultPasswordPolicy()
	policy := PasswordPolicy{
		UsernameMinLength: getIntEnv("USERNAME_MIN_LENGTH", defaults.UsernameMinLength),
		UsernameMaxLength: getIntEnv("USERNAME_MAX_LENGTH", defaults.UsernameMaxLength),
		MinLength:         getIntEnv("PASSWORD_MIN_LENGTH", defaults.MinLength),
		MaxLength:         getIntEnv("PASSWORD_MAX_LENGTH", defaults.MaxLength),
		RequireLower:      getBoolEnv("PASSWORD_REQUIRE_LOWER", defaults.RequireLower),
		RequireUpper:      getBoolEnv("PASSWORD_REQUIRE_UPPER", defaults.RequireUpper),
		RequireSymbol:     getBoolEnv("PASSWORD_REQUIRE_SYMBOL", defaults.RequireSymbol),
		Symbols:           getEnv("PASSWORD_SYMBOLS", defaults.Symbols),
	}
	if err := policy.Validate(); err != nil {
		return AuthConfig{}, err
	}

	environment := getEnv("APP_ENV", "")
	if environment == "" {
		environment = getEnv("NODE_ENV", constants.DefaultEnvironment)
	}

	return AuthConfig{
		HTTPPort:    getEnv("PORT", constants.DefaultAuthHTTPPort),
		Environment: environment,
		Database: DatabaseConfig{
			URL:           databaseURL,
			MaxConns:      int32(getIntEnv("DB_MAX_CONNS", constants.DBPoolMaxConns)),
			MinConns:      int32(getIntEnv("DB_MIN_CONNS", constants.DBPoolMinConns)),
			RunMigrations: getBoolEnv("DB_RUN_MIGRATIONS", true),
		},
		JWTSecret:      jwtSecret,
		TokenTTL:       getDurationEnv("JWT_TTL", constants.DefaultTokenTTL),
		BcryptCost:     getIntEnv("BCRYPT_COST", constants.DefaultBcryptCost),
		RequestTimeout: getDurationEnv("AUTH_REQUEST_TIMEOUT", constants.DefaultAuthRequestTimeout),
		Policy:         policy,
		CircuitBreaker: CircuitBreakerConfig{
			Threshold:  int32(getIntEnv("CIRCUIT_BREAKER_THRESHOLD", constants.DefaultCircuitBreakerThreshold)),
			Timeout:    getDurationEnv("CIRCUIT_BREAKER_TIMEOUT", constants.DefaultCircuitBreakerTimeout),
			ResetAfter: getDurationEnv("CIRCUIT_BREAKER_RESET", constants.DefaultCircuitBreakerReset),
		},
		LogDir:   getEnv("LOG_DIR", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidJWTSecret, len(secret))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBoolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
