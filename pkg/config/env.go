package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StateDriverMemory   = "memory"
	StateDriverSQLite   = "sqlite"
	StateDriverPostgres = "postgres"
	StateDriverRedis    = "redis"
)

const (
	EnvAppEnv           = "STOREFRONT_APP_ENV"
	EnvPort             = "STOREFRONT_APP_PORT"
	EnvLogLevel         = "STOREFRONT_LOG_LEVEL"
	EnvCORSOrigins      = "STOREFRONT_APP_CORS_ORIGINS"
	EnvAPIBaseURL       = "STOREFRONT_API_BASE_URL"
	EnvAPITimeout       = "STOREFRONT_API_REQUEST_TIMEOUT"
	EnvStateDriver      = "STOREFRONT_STATE_DRIVER"
	EnvStateSQLitePath  = "STOREFRONT_STATE_SQLITE_PATH"
	EnvStatePostgresDSN = "STOREFRONT_STATE_POSTGRES_DSN"
	EnvStatePassphrase  = "STOREFRONT_STATE_PASSPHRASE"
	EnvRedisURL         = "STOREFRONT_REDIS_URL"
	EnvCatalogTTL       = "STOREFRONT_CATALOG_TTL"
	EnvJobsEnabled      = "STOREFRONT_JOBS_ENABLED"
	EnvJobsInterval     = "STOREFRONT_JOBS_INTERVAL"
)
