package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Razorpay RazorpayConfig
	Webhook  WebhookConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Firebase FirebaseConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.UsesSQL() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Store.Driver == StoreDriverFirestore && strings.TrimSpace(cfg.GCP.ProjectID) == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvStoreDriver, StoreDriverFirestore)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MEDORDERS_APP_ENV" required:"true"`
	Port         string `envconfig:"MEDORDERS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEDORDERS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEDORDERS_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"MEDORDERS_LOG_FORMAT"`
	AutoMigrate  bool   `envconfig:"MEDORDERS_AUTO_MIGRATE" default:"false"`

	CORSAllowedOrigins []string `envconfig:"MEDORDERS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the backing store for orders, products and accounts.
type StoreConfig struct {
	Driver string `envconfig:"MEDORDERS_STORE_DRIVER" default:"postgres"`
}

// UsesSQL reports whether the configured driver is served by gorm.
func (s StoreConfig) UsesSQL() bool {
	return s.Driver == StoreDriverPostgres || s.Driver == StoreDriverSQLite
}

func (s *StoreConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverFirestore:
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvStoreDriver, s.Driver)
	}
}

type DBConfig struct {
	DSN string `envconfig:"MEDORDERS_DB_DSN"`

	LegacyHost     string `envconfig:"MEDORDERS_DB_HOST"`
	LegacyPort     int    `envconfig:"MEDORDERS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEDORDERS_DB_USER"`
	LegacyPassword string `envconfig:"MEDORDERS_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEDORDERS_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEDORDERS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEDORDERS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEDORDERS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEDORDERS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEDORDERS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEDORDERS_REDIS_URL"`
	Address      string        `envconfig:"MEDORDERS_REDIS_ADDR"`
	Password     string        `envconfig:"MEDORDERS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEDORDERS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEDORDERS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEDORDERS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEDORDERS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEDORDERS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEDORDERS_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"MEDORDERS_REDIS_KEY_PREFIX" default:"mo"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"MEDORDERS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEDORDERS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MEDORDERS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RazorpayConfig struct {
	KeyID         string        `envconfig:"MEDORDERS_RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"MEDORDERS_RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"MEDORDERS_RAZORPAY_WEBHOOK_SECRET" required:"true"`
	BaseURL       string        `envconfig:"MEDORDERS_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Currency      string        `envconfig:"MEDORDERS_RAZORPAY_CURRENCY" default:"INR"`
	Timeout       time.Duration `envconfig:"MEDORDERS_RAZORPAY_TIMEOUT" default:"30s"`
}

// Enabled reports whether gateway order creation is configured.
func (r RazorpayConfig) Enabled() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MEDORDERS_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MEDORDERS_GCP_PROJECT_ID"`
	CredentialsFile string `envconfig:"MEDORDERS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"MEDORDERS_PUBSUB_ORDERS_TOPIC"`
	// Ordered publishes events of one order in commit order. The topic's
	// subscriptions must have message ordering enabled to benefit.
	Ordered bool `envconfig:"MEDORDERS_PUBSUB_ORDERED" default:"true"`
}

type FirebaseConfig struct {
	MessagingEnabled bool   `envconfig:"MEDORDERS_FIREBASE_MESSAGING_ENABLED" default:"false"`
	TopicPrefix      string `envconfig:"MEDORDERS_FIREBASE_TOPIC_PREFIX" default:"orders_"`
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
