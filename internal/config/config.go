package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Lockout  LockoutConfig
	Session  SessionConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	BaseURL         string // Canonical origin; redirect targets must match it
	DefaultRedirect string // Fallback destination for rejected redirect targets
}

// LockoutConfig is the explicit lockout policy value threaded into every
// policy call. Read once at startup; nothing consults ambient state afterwards.
type LockoutConfig struct {
	MaxFailedAttempts     int
	LockoutDuration       time.Duration
	LoginRecordingEnabled bool // Gates all attempt-ledger writes
	RememberUsername      bool // Gates echoing the submitted email back to the caller
}

type SessionConfig struct {
	Secret          string
	TokenExpiry     time.Duration
	CleanupInterval time.Duration
	CookieDomain    string
	CookieSecure    bool
}

type EmailConfig struct {
	AWSRegion        string
	FromAddress      string
	ResetURLBase     string
	ResetTokenExpiry time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gatehouse"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
			DefaultRedirect: getEnv("DEFAULT_REDIRECT", "/"),
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts:     getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
			LockoutDuration:       getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			LoginRecordingEnabled: getEnvAsBool("LOGIN_RECORDING_ENABLED", true),
			RememberUsername:      getEnvAsBool("REMEMBER_USERNAME", false),
		},
		Session: SessionConfig{
			Secret:          sessionSecret,
			TokenExpiry:     getEnvAsDuration("SESSION_TOKEN_EXPIRY", 12*time.Hour),
			CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			CookieDomain:    getEnv("SESSION_COOKIE_DOMAIN", ""),
			CookieSecure:    getEnvAsBool("SESSION_COOKIE_SECURE", env == "production"),
		},
		Email: EmailConfig{
			AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
			FromAddress:      getEnv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
			ResetURLBase:     getEnv("RESET_URL_BASE", "http://localhost:8080"),
			ResetTokenExpiry: getEnvAsDuration("RESET_TOKEN_EXPIRY", 1*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Lockout.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("MAX_FAILED_ATTEMPTS must be positive (got %d)", cfg.Lockout.MaxFailedAttempts)
	}
	if cfg.Lockout.LockoutDuration < 0 {
		return nil, fmt.Errorf("LOCKOUT_DURATION must not be negative")
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSessionSecret enforces minimum standards for the session signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires a 256-bit secret
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
