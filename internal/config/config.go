package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Log       LogConfig
	Cache     CacheConfig
	Store     StoreConfig
	Auth      AuthConfig
	Ledger    LedgerConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"stellar-pets-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"` // text or json
}

// CacheConfig holds Redis settings. Redis backs auth challenges, session tokens and the
// event stream; when it is unreachable the service falls back to in-memory equivalents.
type CacheConfig struct {
	Type          string `envconfig:"CACHE_TYPE" default:"redis"` // redis or memory
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix     string `envconfig:"REDIS_KEY_PREFIX" default:"stellarpets"`
	StreamMaxLen  int64  `envconfig:"EVENT_STREAM_MAXLEN" default:"10000"`
}

// StoreConfig holds the keyed persistent store settings.
type StoreConfig struct {
	Type     string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, postgres, mysql or memory
	Path     string `envconfig:"STORE_PATH" default:"./data/ledger.db"`
	Host     string `envconfig:"STORE_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_PORT"` // 0 picks the backend's default port
	Name     string `envconfig:"STORE_NAME" default:"stellarpets"`
	User     string `envconfig:"STORE_USER"` // empty picks the backend's default user
	Password string `envconfig:"STORE_PASS" default:""`
	SSLMode  string `envconfig:"STORE_SSLMODE" default:"disable"`
}

// AuthConfig holds wallet authentication settings.
type AuthConfig struct {
	ChallengeTTL time.Duration `envconfig:"AUTH_CHALLENGE_TTL" default:"5m"`
	TokenTTL     time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"1h"`
	// DevHeader lets local builds assert a caller identity without signing a challenge.
	// Ignored outside development.
	DevHeader bool `envconfig:"AUTH_DEV_HEADER" default:"false"`
	// AdminKeys guard /api/v1/admin. Empty disables the admin API.
	AdminKeys []string `envconfig:"ADMIN_API_KEYS"`
}

// LedgerConfig holds state machine settings.
type LedgerConfig struct {
	DecayAdvancesAnchor bool   `envconfig:"LEDGER_DECAY_ADVANCES_ANCHOR" default:"false"`
	DecaySchedule       string `envconfig:"LEDGER_DECAY_SCHEDULE" default:""` // cron spec, e.g. "@daily"
}

// RateLimitConfig holds per-caller request limits.
type RateLimitConfig struct {
	RequestsPerSecond int `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Default ports and users per SQL backend.
const (
	defaultPostgresPort = 5432
	defaultPostgresUser = "postgres"
	defaultMySQLPort    = 3306
	defaultMySQLUser    = "root"
)

func (s *StoreConfig) portOr(def int) int {
	if s.Port == 0 {
		return def
	}
	return s.Port
}

func (s *StoreConfig) userOr(def string) string {
	if s.User == "" {
		return def
	}
	return s.User
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.userOr(defaultPostgresUser), s.Password),
		Host:     fmt.Sprintf("%s:%d", s.Host, s.portOr(defaultPostgresPort)),
		Path:     s.Name,
		RawQuery: "sslmode=" + s.SSLMode,
	}
	return u.String()
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.userOr(defaultMySQLUser), s.Password, s.Host, s.portOr(defaultMySQLPort), s.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Ledger.DecaySchedule != "" && !cfg.Ledger.DecayAdvancesAnchor {
		return nil, fmt.Errorf("LEDGER_DECAY_SCHEDULE requires LEDGER_DECAY_ADVANCES_ANCHOR=true: a sweep would otherwise compound decay")
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
