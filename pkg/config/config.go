package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	State    StateConfig
	DB       DBConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Password PasswordConfig
	Notify   NotifyConfig
	Jobs     JobsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.State.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8787"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	// CORSOrigins are the UI origins allowed to call the local shell.
	CORSOrigins []string `envconfig:"STOREFRONT_APP_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the client at the storefront REST API.
type APIConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_API_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"STOREFRONT_API_REQUEST_TIMEOUT" default:"15s"`
	CSRFPath       string        `envconfig:"STOREFRONT_API_CSRF_PATH" default:"/api/csrf-token"`
	UserAgent      string        `envconfig:"STOREFRONT_API_USER_AGENT" default:"storefront-client/1.0"`
}

func (a *APIConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(a.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", EnvAPIBaseURL, a.BaseURL)
	}
	a.BaseURL = strings.TrimRight(parsed.String(), "/")
	return nil
}

// StateConfig selects where the client persists its local state (token, user, cart, catalog cache).
type StateConfig struct {
	Driver      string `envconfig:"STOREFRONT_STATE_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"STOREFRONT_STATE_SQLITE_PATH" default:"storefront-state.db"`
	PostgresDSN string `envconfig:"STOREFRONT_STATE_POSTGRES_DSN"`
	Namespace   string `envconfig:"STOREFRONT_STATE_NAMESPACE" default:"sf"`
	Passphrase  string `envconfig:"STOREFRONT_STATE_PASSPHRASE"`
	AutoMigrate bool   `envconfig:"STOREFRONT_STATE_AUTO_MIGRATE" default:"true"`
}

func (s *StateConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StateDriverMemory, StateDriverSQLite, StateDriverRedis:
		return nil
	case StateDriverPostgres:
		if strings.TrimSpace(s.PostgresDSN) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvStatePostgresDSN, EnvStateDriver, StateDriverPostgres)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvStateDriver, s.Driver)
	}
}

// Sealed reports whether token/user values are encrypted at rest.
func (s StateConfig) Sealed() bool {
	return s.Passphrase != ""
}

type DBConfig struct {
	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CatalogConfig struct {
	TTL time.Duration `envconfig:"STOREFRONT_CATALOG_TTL" default:"5m"`
}

// PasswordConfig holds the argon2id parameters used to derive the state sealing key.
type PasswordConfig struct {
	ArgonMemoryKB    int    `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSalt        string `envconfig:"STOREFRONT_ARGON_SALT" default:"storefront-state"`
}

type NotifyConfig struct {
	DismissAfter time.Duration `envconfig:"STOREFRONT_NOTIFY_DISMISS_AFTER" default:"3s"`
}

// JobsConfig controls the background jobs run by the local HTTP shell.
type JobsConfig struct {
	Enabled  bool          `envconfig:"STOREFRONT_JOBS_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"STOREFRONT_JOBS_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"STOREFRONT_JOBS_LOCK_TTL" default:"5m"`
}
