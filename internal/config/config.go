// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links, CORS and ICS feeds.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds authentication-related settings.
	Auth AuthConfig

	// Scheduling holds the calendar grid and timezone settings.
	Scheduling SchedulingConfig

	// Presence holds the active-user tracking settings.
	Presence PresenceConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SecretKey guards production deployments; must be 32+ characters there.
	SecretKey string

	// SessionTTL is how long login sessions last before expiring.
	SessionTTL time.Duration
}

// SchedulingConfig controls the availability calendar.
type SchedulingConfig struct {
	// CanonicalTimezone is the IANA zone all availability and sessions are
	// stored in.
	CanonicalTimezone string

	// TimezoneAliases are extra zone names treated as equivalent to the
	// canonical zone. Merged from TIMEZONE_ALIASES_FILE when set.
	TimezoneAliases []string

	// HourStart and HourEnd bound the hour grid as [HourStart, HourEnd).
	HourStart int
	HourEnd   int

	// WeekStart is the first day of normal and wide views.
	WeekStart time.Weekday

	// MaxFutureWeeks caps forward navigation from today.
	MaxFutureWeeks int

	// ReferenceDateMode is "today" or "slot"; see timezone.ReferenceMode.
	ReferenceDateMode string

	// FetchDebounce delays grid refetches after navigation.
	FetchDebounce time.Duration
}

// PresenceConfig controls the active-user store.
type PresenceConfig struct {
	// TTL is how long a user counts as active after their last request.
	TTL time.Duration

	// SweepSpec is the cron expression for evicting stale entries.
	SweepSpec string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first without overriding
// variables already present in the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "scheduler"),
			Password:        getEnv("DB_PASSWORD", "scheduler"),
			Name:            getEnv("DB_NAME", "scheduler"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SecretKey:  getEnv("SECRET_KEY", ""),
			SessionTTL: getEnvDuration("SESSION_TTL", 720*time.Hour),
		},

		Scheduling: SchedulingConfig{
			CanonicalTimezone: getEnv("CANONICAL_TIMEZONE", "America/New_York"),
			HourStart:         getEnvInt("HOUR_START", 8),
			HourEnd:           getEnvInt("HOUR_END", 23),
			MaxFutureWeeks:    getEnvInt("MAX_FUTURE_WEEKS", 12),
			ReferenceDateMode: strings.ToLower(getEnv("REFERENCE_DATE_MODE", "today")),
			FetchDebounce:     getEnvDuration("FETCH_DEBOUNCE", 300*time.Millisecond),
		},

		Presence: PresenceConfig{
			TTL:       getEnvDuration("PRESENCE_TTL", 5*time.Minute),
			SweepSpec: getEnv("PRESENCE_SWEEP", "@every 1m"),
		},
	}

	weekStart, err := parseWeekStart(getEnv("WEEK_START", "monday"))
	if err != nil {
		return nil, err
	}
	cfg.Scheduling.WeekStart = weekStart

	if path := getEnv("TIMEZONE_ALIASES_FILE", ""); path != "" {
		aliases, err := LoadAliases(path)
		if err != nil {
			return nil, err
		}
		if aliases.Canonical != "" && aliases.Canonical != cfg.Scheduling.CanonicalTimezone {
			return nil, fmt.Errorf("alias file %s is for %s, not %s",
				path, aliases.Canonical, cfg.Scheduling.CanonicalTimezone)
		}
		cfg.Scheduling.TimezoneAliases = aliases.Aliases
	}

	if err := cfg.Scheduling.Validate(); err != nil {
		return nil, err
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}

	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// Validate checks the grid bounds, reference mode and canonical zone.
func (s SchedulingConfig) Validate() error {
	if s.HourStart < 0 || s.HourEnd > 24 || s.HourStart >= s.HourEnd {
		return fmt.Errorf("HOUR_START/HOUR_END must satisfy 0 <= start < end <= 24, got %d/%d",
			s.HourStart, s.HourEnd)
	}
	if s.MaxFutureWeeks < 0 {
		return fmt.Errorf("MAX_FUTURE_WEEKS must not be negative")
	}
	switch s.ReferenceDateMode {
	case "today", "slot":
	default:
		return fmt.Errorf("REFERENCE_DATE_MODE must be today or slot, got %q", s.ReferenceDateMode)
	}
	if _, err := time.LoadLocation(s.CanonicalTimezone); err != nil {
		return fmt.Errorf("CANONICAL_TIMEZONE %q: %w", s.CanonicalTimezone, err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

func parseWeekStart(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "monday", "mon", "":
		return time.Monday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	default:
		return time.Monday, fmt.Errorf("WEEK_START must be monday or sunday, got %q", v)
	}
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
