package config

const EnvPrefix = "ARTMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "ARTMARKET_APP_ENV"
	EnvPort              = "ARTMARKET_APP_PORT"
	EnvDBDriver          = "ARTMARKET_DB_DRIVER"
	EnvDBDSN             = "ARTMARKET_DB_DSN"
	EnvRedisURL          = "ARTMARKET_REDIS_URL"
	EnvRedisAddr         = "ARTMARKET_REDIS_ADDR"
	EnvJWTSecret         = "ARTMARKET_JWT_SECRET"
	EnvJWTIssuer         = "ARTMARKET_JWT_ISSUER"
	EnvCartStorageDriver = "ARTMARKET_CART_STORAGE_DRIVER"
	EnvCartIdleTTL       = "ARTMARKET_CART_IDLE_TTL"
)
