package config

// EnvPrefix is passed to envconfig; every field below sets an explicit name so the prefix only
// matters for fields without an envconfig tag.
const EnvPrefix = "PARKFINDER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "PARKFINDER_APP_ENV"
	EnvPort          = "PARKFINDER_APP_PORT"
	EnvLogLevel      = "PARKFINDER_LOG_LEVEL"
	EnvLogFormat     = "PARKFINDER_LOG_FORMAT"
	EnvLogWarnStack  = "PARKFINDER_LOG_WARN_STACK"
	EnvCORSOrigins   = "PARKFINDER_CORS_ORIGINS"
	EnvInstanceID    = "PARKFINDER_INSTANCE_ID"
	EnvDBDSN         = "PARKFINDER_DB_DSN"
	EnvDBHost        = "PARKFINDER_DB_HOST"
	EnvDBPort        = "PARKFINDER_DB_PORT"
	EnvDBUser        = "PARKFINDER_DB_USER"
	EnvDBPassword    = "PARKFINDER_DB_PASSWORD"
	EnvDBName        = "PARKFINDER_DB_NAME"
	EnvDBSSLMode     = "PARKFINDER_DB_SSLMODE"
	EnvRedisURL      = "PARKFINDER_REDIS_URL"
	EnvJWTSecret     = "PARKFINDER_JWT_SECRET"
	EnvJWTIssuer     = "PARKFINDER_JWT_ISSUER"
	EnvJWTExpMins    = "PARKFINDER_JWT_EXPIRATION_MINUTES"
	EnvRefreshTTL    = "PARKFINDER_REFRESH_TOKEN_TTL_MINUTES"
	EnvRateWindow    = "PARKFINDER_RATE_LIMIT_WINDOW"
	EnvRateMax       = "PARKFINDER_RATE_LIMIT_MAX_REQUESTS"
	EnvCheckInRadius = "PARKFINDER_CHECKIN_RADIUS_METERS"
	EnvCheckInReward = "PARKFINDER_CHECKIN_REWARD_COINS"
	EnvCheckInCool   = "PARKFINDER_CHECKIN_COOLDOWN"
	EnvOccStrict     = "PARKFINDER_OCCUPANCY_STRICT"
	EnvMapsAPIKey    = "PARKFINDER_GOOGLE_MAPS_API_KEY"
	EnvAutoMigrate   = "PARKFINDER_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
