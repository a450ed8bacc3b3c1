package config

const EnvPrefix = "CATALOG"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageDriverGCS   = "gcs"
	StorageDriverLocal = "local"
)

const (
	EnvAppEnv           = "CATALOG_APP_ENV"
	EnvPort             = "CATALOG_APP_PORT"
	EnvLogLevel         = "CATALOG_LOG_LEVEL"
	EnvLogFormat        = "CATALOG_LOG_FORMAT"
	EnvPublicBaseURL    = "CATALOG_PUBLIC_BASE_URL"
	EnvDBDSN            = "CATALOG_DB_DSN"
	EnvDBHost           = "CATALOG_DB_HOST"
	EnvDBPort           = "CATALOG_DB_PORT"
	EnvDBUser           = "CATALOG_DB_USER"
	EnvDBPassword       = "CATALOG_DB_PASSWORD"
	EnvDBName           = "CATALOG_DB_NAME"
	EnvRedisURL         = "CATALOG_REDIS_URL"
	EnvJWTSecret        = "CATALOG_JWT_SECRET"
	EnvJWTIssuer        = "CATALOG_JWT_ISSUER"
	EnvJWTExpMins       = "CATALOG_JWT_EXPIRATION_MINUTES"
	EnvRefreshTTLMins   = "CATALOG_REFRESH_TOKEN_TTL_MINUTES"
	EnvStorageDriver    = "CATALOG_STORAGE_DRIVER"
	EnvStorageLocalDir  = "CATALOG_STORAGE_LOCAL_DIR"
	EnvGCPProjectID     = "CATALOG_GCP_PROJECT_ID"
	EnvGCSBucket        = "CATALOG_GCS_BUCKET_NAME"
	EnvMediaMaxFiles    = "CATALOG_MEDIA_MAX_FILES"
	EnvMediaMaxImageMB  = "CATALOG_MEDIA_MAX_IMAGE_MB"
	EnvMediaMaxVideoMB  = "CATALOG_MEDIA_MAX_VIDEO_MB"
	EnvPubSubTopic      = "CATALOG_PUBSUB_CATALOG_TOPIC"
	EnvPubSubSub        = "CATALOG_PUBSUB_CATALOG_SUBSCRIPTION"
	EnvOutboxRetention  = "CATALOG_OUTBOX_RETENTION_DAYS"
	EnvCronInterval     = "CATALOG_CRON_INTERVAL"
	EnvAutoMigrate      = "CATALOG_AUTO_MIGRATE"
	EnvCORSOrigins      = "CATALOG_CORS_ORIGINS"
	EnvEnableEvents     = "CATALOG_ENABLE_EVENTS"
	EnvMediaProbeOnBoot = "CATALOG_MEDIA_PROBE_ON_STARTUP"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
