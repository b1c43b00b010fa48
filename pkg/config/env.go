package config

const (
	EnvPrefix = "PARTYHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv   = "PARTYHUB_APP_ENV"
	EnvPort     = "PARTYHUB_APP_PORT"
	EnvLogLevel = "PARTYHUB_LOG_LEVEL"

	EnvDBDSN  = "PARTYHUB_DB_DSN"
	EnvDBHost = "PARTYHUB_DB_HOST"
	EnvDBUser = "PARTYHUB_DB_USER"
	EnvDBName = "PARTYHUB_DB_NAME"

	EnvUseSQLite = "PARTYHUB_USE_SQLITE"

	EnvRedisURL  = "PARTYHUB_REDIS_URL"
	EnvJWTSecret = "PARTYHUB_JWT_SECRET"
	EnvJWTIssuer = "PARTYHUB_JWT_ISSUER"

	EnvPubSubPartyEventsTopic = "PARTYHUB_PUBSUB_PARTY_EVENTS_TOPIC"
	EnvMediaImageRoot         = "PARTYHUB_MEDIA_IMAGE_ROOT"
	EnvApplicationRateLimit   = "PARTYHUB_RATE_LIMIT_APPLICATION_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
