package config

const EnvPrefix = "STORE_MANAGER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:store_manager.db?cache=shared"
)

const (
	EnvAppEnv   = "STORE_MANAGER_APP_ENV"
	EnvPort     = "STORE_MANAGER_APP_PORT"
	EnvLogLevel = "STORE_MANAGER_LOG_LEVEL"

	EnvDBDSN    = "STORE_MANAGER_DB_DSN"
	EnvDBDriver = "STORE_MANAGER_DB_DRIVER"
	EnvDBHost   = "STORE_MANAGER_DB_HOST"
	EnvDBPort   = "STORE_MANAGER_DB_PORT"
	EnvDBUser   = "STORE_MANAGER_DB_USER"
	EnvDBPass   = "STORE_MANAGER_DB_PASSWORD"
	EnvDBName   = "STORE_MANAGER_DB_NAME"

	EnvRedisURL  = "STORE_MANAGER_REDIS_URL"
	EnvRedisAddr = "STORE_MANAGER_REDIS_ADDR"

	EnvMemoryCache     = "STORE_MANAGER_MEMORY_CACHE"
	EnvAutoMigrate     = "STORE_MANAGER_AUTO_MIGRATE"
	EnvBackfillDetails = "STORE_MANAGER_INVENTORY_BACKFILL_DETAILS"

	EnvOTLPEndpoint = "STORE_MANAGER_OTLP_ENDPOINT"
	EnvKafkaBrokers = "STORE_MANAGER_KAFKA_BROKERS"
	EnvKafkaTopic   = "STORE_MANAGER_KAFKA_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
