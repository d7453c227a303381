package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Store    StoreConfig
	Sync     SyncConfig
	Listener ListenerConfig
}

type ServerConfig struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	GRPCPort string `envconfig:"GRPC_PORT" default:":8082"`
	HTTPPort string `envconfig:"HTTP_PORT" default:":8083"`
	// ShutdownTimeout bounds graceful stop before in-flight calls are cut off.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

type LoggerConfig struct {
	Level             string `envconfig:"LOGGER_LEVEL" default:"debug"`
	Encoding          string `envconfig:"LOGGER_ENCODING" default:"console"`
	DisableCaller     bool   `envconfig:"LOGGER_DISABLE_CALLER" default:"false"`
	DisableStacktrace bool   `envconfig:"LOGGER_DISABLE_STACKTRACE" default:"true"`
	FilePath          string `envconfig:"LOGGER_FILE_PATH"`
	MaxSizeMB         int    `envconfig:"LOGGER_MAX_SIZE_MB" default:"100"`
	MaxBackups        int    `envconfig:"LOGGER_MAX_BACKUPS" default:"5"`
	MaxAgeDays        int    `envconfig:"LOGGER_MAX_AGE_DAYS" default:"14"`
}

type PostgresConfig struct {
	Host            string        `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port            string        `envconfig:"POSTGRES_PORT" default:"5432"`
	User            string        `envconfig:"POSTGRES_USER" default:"pantry"`
	Password        string        `envconfig:"POSTGRES_PASSWORD" default:"pantry"`
	DBName          string        `envconfig:"POSTGRES_DB" default:"pantry"`
	SSLMode         string        `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"POSTGRES_CONN_MAX_IDLE_TIME" default:"1m"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StoreConfig selects the repository backend: "postgres" or "memory".
type StoreConfig struct {
	Driver string `envconfig:"STORE_DRIVER" default:"postgres"`
}

type SyncConfig struct {
	// IdempotencyDriver is "redis", "bolt" or "memory".
	IdempotencyDriver string        `envconfig:"SYNC_IDEMPOTENCY_DRIVER" default:"redis"`
	IdempotencyTTL    time.Duration `envconfig:"SYNC_IDEMPOTENCY_TTL" default:"24h"`
	BoltPath          string        `envconfig:"SYNC_BOLT_PATH" default:"pantry-sync.db"`
	// PurgeInterval is how often expired bolt records are removed.
	PurgeInterval time.Duration `envconfig:"SYNC_PURGE_INTERVAL" default:"1h"`
	// CommitLag holds the sync watermark back for writes made by other instances.
	CommitLag time.Duration `envconfig:"SYNC_COMMIT_LAG" default:"0s"`
}

type ListenerConfig struct {
	Enabled  bool          `envconfig:"LISTENER_ENABLED" default:"true"`
	Stream   string        `envconfig:"LISTENER_STREAM" default:"pantry.consumption"`
	Group    string        `envconfig:"LISTENER_GROUP" default:"pantry-ledger"`
	Consumer string        `envconfig:"LISTENER_CONSUMER" default:"pantry-1"`
	Batch    int64         `envconfig:"LISTENER_BATCH" default:"16"`
	Block    time.Duration `envconfig:"LISTENER_BLOCK" default:"5s"`
	// RetryAfter is how long a failed event stays pending before it is retried.
	RetryAfter time.Duration `envconfig:"LISTENER_RETRY_AFTER" default:"30s"`
}

// LoadEnv reads the process environment; call godotenv first to pick up a .env file.
func LoadEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
