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
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	Tracing      TracingConfig
	Kafka        KafkaConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if !cfg.FeatureFlags.MemoryCache && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("either %s or %s is required unless %s is set", EnvRedisURL, EnvRedisAddr, EnvMemoryCache)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"STORE_MANAGER_APP_ENV" required:"true"`
	Port            string        `envconfig:"STORE_MANAGER_APP_PORT" required:"true"`
	LogLevel        string        `envconfig:"STORE_MANAGER_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"STORE_MANAGER_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"STORE_MANAGER_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"STORE_MANAGER_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STORE_MANAGER_DB_DSN"`
	Driver string `envconfig:"STORE_MANAGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STORE_MANAGER_DB_HOST"`
	LegacyPort     int    `envconfig:"STORE_MANAGER_DB_PORT"`
	LegacyUser     string `envconfig:"STORE_MANAGER_DB_USER"`
	LegacyPassword string `envconfig:"STORE_MANAGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"STORE_MANAGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"STORE_MANAGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORE_MANAGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORE_MANAGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORE_MANAGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORE_MANAGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// NormalizedDriver returns the lower-cased driver name, defaulting to postgres.
func (db DBConfig) NormalizedDriver() string {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	if driver == "" {
		return DriverPostgres
	}
	return driver
}

type RedisConfig struct {
	URL          string        `envconfig:"STORE_MANAGER_REDIS_URL"`
	Address      string        `envconfig:"STORE_MANAGER_REDIS_ADDR"`
	Password     string        `envconfig:"STORE_MANAGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORE_MANAGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORE_MANAGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORE_MANAGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORE_MANAGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORE_MANAGER_REDIS_READ_TIMEOUT" default:"2s"`
	WriteTimeout time.Duration `envconfig:"STORE_MANAGER_REDIS_WRITE_TIMEOUT" default:"2s"`
	KeyNamespace string        `envconfig:"STORE_MANAGER_REDIS_KEY_NAMESPACE" default:"sm"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STORE_MANAGER_AUTO_MIGRATE" default:"false"`
	// MemoryCache keeps stock records in process memory instead of Redis.
	MemoryCache bool `envconfig:"STORE_MANAGER_MEMORY_CACHE" default:"false"`
}

type InventoryConfig struct {
	BackfillDetails bool `envconfig:"STORE_MANAGER_INVENTORY_BACKFILL_DETAILS" default:"true"`
}

type TracingConfig struct {
	Endpoint    string  `envconfig:"STORE_MANAGER_OTLP_ENDPOINT"`
	Insecure    bool    `envconfig:"STORE_MANAGER_OTLP_INSECURE" default:"true"`
	SampleRatio float64 `envconfig:"STORE_MANAGER_TRACE_SAMPLE_RATIO" default:"1"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"STORE_MANAGER_KAFKA_BROKERS"`
	OrdersTopic  string        `envconfig:"STORE_MANAGER_KAFKA_ORDERS_TOPIC" default:"store-manager.orders"`
	WriteTimeout time.Duration `envconfig:"STORE_MANAGER_KAFKA_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether at least one broker is configured.
func (k KafkaConfig) Enabled() bool {
	for _, broker := range k.Brokers {
		if strings.TrimSpace(broker) != "" {
			return true
		}
	}
	return false
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	driver := db.NormalizedDriver()
	if driver == DriverSQLite {
		db.DSN = defaultSQLiteDSN
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

	switch driver {
	case DriverPostgres:
		db.DSN = db.postgresDSN()
	case DriverMySQL:
		db.DSN = db.mysqlDSN()
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
	return nil
}

func (db *DBConfig) postgresDSN() string {
	port := db.LegacyPort
	if port == 0 {
		port = 5432
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, port),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (db *DBConfig) mysqlDSN() string {
	port := db.LegacyPort
	if port == 0 {
		port = 3306
	}
	creds := db.LegacyUser
	if db.LegacyPassword != "" {
		creds = creds + ":" + db.LegacyPassword
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4", creds, db.LegacyHost, port, db.LegacyName)
}
