package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Media        MediaConfig
	RateLimit    RateLimitConfig
	Idempotency  IdempotencyConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PARTYHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"PARTYHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PARTYHUB_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PARTYHUB_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PARTYHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"PARTYHUB_DB_DSN"`
	Driver     string `envconfig:"PARTYHUB_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"PARTYHUB_SQLITE_PATH" default:"partyhub.db"`

	LegacyHost     string `envconfig:"PARTYHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"PARTYHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARTYHUB_DB_USER"`
	LegacyPassword string `envconfig:"PARTYHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARTYHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARTYHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARTYHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARTYHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARTYHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARTYHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	LockTimeout     time.Duration `envconfig:"PARTYHUB_DB_LOCK_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARTYHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PARTYHUB_REDIS_ADDR"`
	Password     string        `envconfig:"PARTYHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARTYHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARTYHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARTYHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARTYHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARTYHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARTYHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how bearer tokens minted by the identity service are verified.
type JWTConfig struct {
	Secret   string        `envconfig:"PARTYHUB_JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"PARTYHUB_JWT_ISSUER" required:"true"`
	Audience string        `envconfig:"PARTYHUB_JWT_AUDIENCE"`
	Leeway   time.Duration `envconfig:"PARTYHUB_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PARTYHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PARTYHUB_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PARTYHUB_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PartyEventsTopic string `envconfig:"PARTYHUB_PUBSUB_PARTY_EVENTS_TOPIC" default:"party-events"`
	Endpoint         string `envconfig:"PARTYHUB_PUBSUB_ENDPOINT"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"PARTYHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"PARTYHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"PARTYHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"PARTYHUB_OUTBOX_METRICS_ADDR" default:":9091"`
}

type MediaConfig struct {
	ImageRoot string `envconfig:"PARTYHUB_MEDIA_IMAGE_ROOT" default:"uploads"`
}

type RateLimitConfig struct {
	ApplicationWindow time.Duration `envconfig:"PARTYHUB_RATE_LIMIT_APPLICATION_WINDOW" default:"1m"`
	ApplicationLimit  int           `envconfig:"PARTYHUB_RATE_LIMIT_APPLICATION_LIMIT" default:"10"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"PARTYHUB_IDEMPOTENCY_TTL" default:"24h"`
}

type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"PARTYHUB_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxAge         time.Duration `envconfig:"PARTYHUB_CORS_MAX_AGE" default:"5m"`
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
