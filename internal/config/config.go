package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/martinhantha/kutt/internal/shortener"
)

// Cache drivers
const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Logging   LoggingConfig
	Shortener shortener.Config
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port          string `envconfig:"PORT" default:"3000"`
	DefaultDomain string `envconfig:"DEFAULT_DOMAIN" default:"localhost:3000"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Client    string `envconfig:"DB_CLIENT" default:"better-sqlite3"`
	Filename  string `envconfig:"DB_FILENAME" default:"db/data"`
	URL       string `envconfig:"DB_URL"`
	AuthToken string `envconfig:"DB_AUTH_TOKEN"`
	Host      string `envconfig:"DB_HOST" default:"localhost"`
	Port      int    `envconfig:"DB_PORT" default:"5432"`
	Name      string `envconfig:"DB_NAME" default:"kutt"`
	User      string `envconfig:"DB_USER" default:"postgres"`
	Password  string `envconfig:"DB_PASSWORD"`
	SSL       bool   `envconfig:"DB_SSL" default:"false"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Driver   string        `envconfig:"CACHE_DRIVER" default:"redis"`
	Host     string        `envconfig:"REDIS_HOST" default:"127.0.0.1"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"LINK_CACHE_TTL" default:"15m"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level   string `envconfig:"LOG_LEVEL" default:"info"`
	Verbose bool   `envconfig:"VERBOSE" default:"false"`
}

// Load reads the configuration from the environment and validates it.
// Loading a .env file is left to the caller.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Cache); err != nil {
		return nil, fmt.Errorf("failed to load cache config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to load logging config: %w", err)
	}
	cfg.Shortener = shortener.DefaultConfig()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Database.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (c *ServerConfig) validate() error {
	if c.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("server port must be numeric, got: %q", c.Port)
	}
	if c.DefaultDomain == "" {
		return fmt.Errorf("default domain cannot be empty")
	}
	return nil
}

func (c *DatabaseConfig) validate() error {
	switch c.Kind() {
	case "sqlite", "sqlite-pure":
		if c.Filename == "" {
			return fmt.Errorf("database filename cannot be empty")
		}
	case "libsql":
		if c.URL == "" {
			return fmt.Errorf("database URL is required for libsql")
		}
	case "postgres":
		if c.Host == "" {
			return fmt.Errorf("database host cannot be empty")
		}
		if c.Name == "" {
			return fmt.Errorf("database name cannot be empty")
		}
		if c.Port <= 0 {
			return fmt.Errorf("database port must be positive, got: %d", c.Port)
		}
	default:
		return fmt.Errorf("unsupported database client: %q", c.Client)
	}
	return nil
}

// Kind groups DB_CLIENT aliases into "sqlite", "sqlite-pure", "libsql" or "postgres"
func (c *DatabaseConfig) Kind() string {
	switch strings.ToLower(strings.TrimSpace(c.Client)) {
	case "sqlite", "sqlite3", "better-sqlite3":
		return "sqlite"
	case "sqlite-pure", "modernc":
		return "sqlite-pure"
	case "libsql", "turso":
		return "libsql"
	case "pg", "postgres", "postgresql", "pgx":
		return "postgres"
	default:
		return ""
	}
}

// DSN returns the data source name for the configured driver
func (c *DatabaseConfig) DSN() string {
	switch c.Kind() {
	case "libsql":
		if c.AuthToken == "" {
			return c.URL
		}
		sep := "?"
		if strings.Contains(c.URL, "?") {
			sep = "&"
		}
		return c.URL + sep + "authToken=" + url.QueryEscape(c.AuthToken)
	case "postgres":
		sslMode := "disable"
		if c.SSL {
			sslMode = "require"
		}
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:     "/" + c.Name,
			RawQuery: "sslmode=" + sslMode,
		}
		return dsn.String()
	case "sqlite-pure":
		return "file:" + c.Filename + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	default:
		return "file:" + c.Filename + "?_foreign_keys=1&_busy_timeout=5000"
	}
}

func (c *CacheConfig) validate() error {
	if c.Driver != CacheDriverRedis && c.Driver != CacheDriverMemory {
		return fmt.Errorf("cache driver must be %q or %q, got: %q", CacheDriverRedis, CacheDriverMemory, c.Driver)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("link cache TTL must be positive, got: %v", c.TTL)
	}
	if c.Enabled && c.Driver == CacheDriverRedis && c.Host == "" {
		return fmt.Errorf("redis host cannot be empty when the cache is enabled")
	}
	return nil
}

// Addr returns the Redis host:port address
func (c *CacheConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *LoggingConfig) validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.Level)
	}
}
