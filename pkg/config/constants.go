package config

// EnvPrefix is empty because every field carries its fully qualified variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverPostgres  = "postgres"
	StoreDriverSQLite    = "sqlite"
	StoreDriverFirestore = "firestore"
)

const (
	EnvAppEnv                = "MEDORDERS_APP_ENV"
	EnvPort                  = "MEDORDERS_APP_PORT"
	EnvStoreDriver           = "MEDORDERS_STORE_DRIVER"
	EnvDBDSN                 = "MEDORDERS_DB_DSN"
	EnvDBHost                = "MEDORDERS_DB_HOST"
	EnvDBUser                = "MEDORDERS_DB_USER"
	EnvDBName                = "MEDORDERS_DB_NAME"
	EnvRedisURL              = "MEDORDERS_REDIS_URL"
	EnvJWTSecret             = "MEDORDERS_JWT_SECRET"
	EnvJWTIssuer             = "MEDORDERS_JWT_ISSUER"
	EnvRazorpayWebhookSecret = "MEDORDERS_RAZORPAY_WEBHOOK_SECRET"
	EnvGCPProjectID          = "MEDORDERS_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
