package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "TRADEPORT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names shared with tests and deploy manifests.
const (
	EnvAppEnv       = "TRADEPORT_APP_ENV"
	EnvPort         = "TRADEPORT_APP_PORT"
	EnvDBDSN        = "TRADEPORT_DB_DSN"
	EnvDBHost       = "TRADEPORT_DB_HOST"
	EnvDBUser       = "TRADEPORT_DB_USER"
	EnvDBName       = "TRADEPORT_DB_NAME"
	EnvRedisURL     = "TRADEPORT_REDIS_URL"
	EnvJWTSecret    = "TRADEPORT_JWT_SECRET"
	EnvJWTIssuer    = "TRADEPORT_JWT_ISSUER"
	EnvJWTExpMins   = "TRADEPORT_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID = "TRADEPORT_GCP_PROJECT_ID"
	EnvPubSubTopic  = "TRADEPORT_PUBSUB_NOTIFICATIONS_TOPIC"
	EnvPubSubSub    = "TRADEPORT_PUBSUB_NOTIFICATIONS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Tokens       TokensConfig
	Password     PasswordConfig
	Importer     ImporterConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	SMTP         SMTPConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRADEPORT_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADEPORT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRADEPORT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADEPORT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEPORT_DB_DSN"`
	Driver string `envconfig:"TRADEPORT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEPORT_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEPORT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEPORT_DB_USER"`
	LegacyPassword string `envconfig:"TRADEPORT_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEPORT_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEPORT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEPORT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEPORT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEPORT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEPORT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEPORT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADEPORT_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEPORT_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEPORT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEPORT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEPORT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEPORT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEPORT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEPORT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADEPORT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADEPORT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADEPORT_JWT_EXPIRATION_MINUTES" required:"true"`
}

type TokensConfig struct {
	ConfirmTTL time.Duration `envconfig:"TRADEPORT_CONFIRM_TOKEN_TTL" default:"24h"`
	ResetTTL   time.Duration `envconfig:"TRADEPORT_RESET_TOKEN_TTL" default:"1h"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TRADEPORT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TRADEPORT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TRADEPORT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TRADEPORT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TRADEPORT_ARGON_KEY_LEN" default:"32"`

	MinLength int `envconfig:"TRADEPORT_PASSWORD_MIN_LENGTH" default:"8"`
}

type ImporterConfig struct {
	FetchTimeout  time.Duration `envconfig:"TRADEPORT_IMPORT_FETCH_TIMEOUT" default:"10s"`
	FetchAttempts uint64        `envconfig:"TRADEPORT_IMPORT_FETCH_ATTEMPTS" default:"3"`
	MaxFeedBytes  int64         `envconfig:"TRADEPORT_IMPORT_MAX_FEED_BYTES" default:"5242880"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TRADEPORT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationsTopic        string `envconfig:"TRADEPORT_PUBSUB_NOTIFICATIONS_TOPIC"`
	NotificationsSubscription string `envconfig:"TRADEPORT_PUBSUB_NOTIFICATIONS_SUBSCRIPTION"`
}

type SMTPConfig struct {
	Host     string `envconfig:"TRADEPORT_SMTP_HOST"`
	Port     int    `envconfig:"TRADEPORT_SMTP_PORT" default:"587"`
	Username string `envconfig:"TRADEPORT_SMTP_USERNAME"`
	Password string `envconfig:"TRADEPORT_SMTP_PASSWORD"`
	From     string `envconfig:"TRADEPORT_SMTP_FROM"`
}

type OutboxConfig struct {
	PollInterval   time.Duration `envconfig:"TRADEPORT_OUTBOX_POLL_INTERVAL" default:"2s"`
	BatchSize      int           `envconfig:"TRADEPORT_OUTBOX_BATCH_SIZE" default:"100"`
	IdempotencyTTL time.Duration `envconfig:"TRADEPORT_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"TRADEPORT_CRON_INTERVAL" default:"24h"`
	LockTTL             time.Duration `envconfig:"TRADEPORT_CRON_LOCK_TTL" default:"25h"`
	OutboxRetentionDays int           `envconfig:"TRADEPORT_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	BasketRetentionDays int           `envconfig:"TRADEPORT_CRON_BASKET_RETENTION_DAYS" default:"90"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADEPORT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
