package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/artmarket/artmarket-backend/pkg/enums"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cart         CartConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	driver, err := enums.ParseStorageDriver(c.Cart.StorageDriver)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvCartStorageDriver, err)
	}
	c.Cart.StorageDriver = driver.String()

	currency, err := enums.ParseCurrency(c.Cart.Currency)
	if err != nil {
		return fmt.Errorf("ARTMARKET_CART_CURRENCY: %w", err)
	}
	c.Cart.Currency = currency.String()

	if err := c.DB.validate(); err != nil {
		return err
	}
	if driver == enums.StorageDriverRedis && !c.Redis.Enabled() {
		return fmt.Errorf("%s or %s is required when %s=%s", EnvRedisURL, EnvRedisAddr, EnvCartStorageDriver, driver)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"ARTMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"ARTMARKET_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ARTMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ARTMARKET_LOG_WARN_STACK" default:"false"`

	ShutdownTimeout time.Duration `envconfig:"ARTMARKET_SHUTDOWN_TIMEOUT" default:"15s"`
	AllowedOrigins  []string      `envconfig:"ARTMARKET_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	Driver string `envconfig:"ARTMARKET_DB_DRIVER" default:"postgres"`
	DSN    string `envconfig:"ARTMARKET_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"ARTMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ARTMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ARTMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARTMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is configured.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

func (db *DBConfig) validate() error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("%s must be %s or %s, got %q", EnvDBDriver, DBDriverPostgres, DBDriverSQLite, db.Driver)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"ARTMARKET_REDIS_URL"`
	Address      string        `envconfig:"ARTMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"ARTMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARTMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARTMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ARTMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ARTMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARTMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARTMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// JWTConfig validates the bearer authToken minted by the auth service.
type JWTConfig struct {
	Secret string `envconfig:"ARTMARKET_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"ARTMARKET_JWT_ISSUER" required:"true"`
}

// CartConfig tunes the session cart stores.
type CartConfig struct {
	StorageDriver string        `envconfig:"ARTMARKET_CART_STORAGE_DRIVER" default:"db"`
	StorageTTL    time.Duration `envconfig:"ARTMARKET_CART_STORAGE_TTL" default:"0"`
	WriteTimeout  time.Duration `envconfig:"ARTMARKET_CART_WRITE_TIMEOUT" default:"5s"`
	IdleTTL       time.Duration `envconfig:"ARTMARKET_CART_IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"ARTMARKET_CART_SWEEP_INTERVAL" default:"5m"`
	Currency      string        `envconfig:"ARTMARKET_CART_CURRENCY" default:"USD"`
}

// Driver returns the parsed storage driver.
func (c CartConfig) Driver() enums.StorageDriver {
	return enums.StorageDriver(strings.ToLower(strings.TrimSpace(c.StorageDriver)))
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ARTMARKET_AUTO_MIGRATE" default:"false"`
}
