package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "MARKETPLACE_APP_ENV"
	EnvPort     = "MARKETPLACE_APP_PORT"
	EnvDBDSN    = "MARKETPLACE_DB_DSN"
	EnvDBDriver = "MARKETPLACE_DB_DRIVER"
	EnvDBHost   = "MARKETPLACE_DB_HOST"
	EnvDBUser   = "MARKETPLACE_DB_USER"
	EnvDBName   = "MARKETPLACE_DB_NAME"
	EnvRedisURL = "MARKETPLACE_REDIS_URL"

	EnvJWTSecret              = "MARKETPLACE_JWT_SECRET"
	EnvJWTIssuer              = "MARKETPLACE_JWT_ISSUER"
	EnvJWTExpMins             = "MARKETPLACE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MARKETPLACE_REFRESH_TOKEN_TTL_MINUTES"

	EnvStorageEndpoint  = "MARKETPLACE_STORAGE_ENDPOINT"
	EnvStorageAccessKey = "MARKETPLACE_STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "MARKETPLACE_STORAGE_SECRET_KEY"
	EnvStorageBucket    = "MARKETPLACE_STORAGE_AVATAR_BUCKET"

	EnvPubSubProjectID   = "MARKETPLACE_PUBSUB_PROJECT_ID"
	EnvPubSubDomainTopic = "MARKETPLACE_PUBSUB_DOMAIN_TOPIC"
)
