package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SAUTI"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SAUTI_DB_DSN"
	EnvDBHost = "SAUTI_DB_HOST"
	EnvDBUser = "SAUTI_DB_USER"
	EnvDBName = "SAUTI_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	FeatureFlags   FeatureFlagsConfig
	Eventing       EventingConfig
	GCP            GCPConfig
	PubSub         PubSubConfig
	Outbox         OutboxConfig
	Paystack       PaystackConfig
	AfricasTalking AfricasTalkingConfig
	Wallet         WalletConfig
	Reconcile      ReconcileConfig
	Surveys        SurveysConfig
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
	Env          string `envconfig:"SAUTI_APP_ENV" required:"true"`
	Port         string `envconfig:"SAUTI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SAUTI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SAUTI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SAUTI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SAUTI_DB_DSN"`
	Driver string `envconfig:"SAUTI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SAUTI_DB_HOST"`
	LegacyPort     int    `envconfig:"SAUTI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SAUTI_DB_USER"`
	LegacyPassword string `envconfig:"SAUTI_DB_PASSWORD"`
	LegacyName     string `envconfig:"SAUTI_DB_NAME"`
	LegacySSLMode  string `envconfig:"SAUTI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SAUTI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAUTI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAUTI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAUTI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SAUTI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SAUTI_REDIS_ADDR"`
	Password     string        `envconfig:"SAUTI_REDIS_PASSWORD"`
	DB           int           `envconfig:"SAUTI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SAUTI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAUTI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAUTI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAUTI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SAUTI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SAUTI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SAUTI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SAUTI_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SAUTI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SAUTI_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SAUTI_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SAUTI_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SAUTI_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SAUTI_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PaymentsTopic             string `envconfig:"SAUTI_PUBSUB_PAYMENTS_TOPIC" default:"sauti-payment-events"`
	PaymentsSubscription      string `envconfig:"SAUTI_PUBSUB_PAYMENTS_SUBSCRIPTION"`
	RewardsTopic              string `envconfig:"SAUTI_PUBSUB_REWARDS_TOPIC" default:"sauti-reward-events"`
	RewardsSubscription       string `envconfig:"SAUTI_PUBSUB_REWARDS_SUBSCRIPTION"`
	NotificationsTopic        string `envconfig:"SAUTI_PUBSUB_NOTIFICATIONS_TOPIC" default:"sauti-notification-events"`
	NotificationsSubscription string `envconfig:"SAUTI_PUBSUB_NOTIFICATIONS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SAUTI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SAUTI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SAUTI_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"SAUTI_PAYSTACK_SECRET_KEY"`
	BaseURL     string        `envconfig:"SAUTI_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"SAUTI_PAYSTACK_CALLBACK_URL"`
	HTTPTimeout time.Duration `envconfig:"SAUTI_PAYSTACK_HTTP_TIMEOUT" default:"15s"`
}

type AfricasTalkingConfig struct {
	Username    string        `envconfig:"SAUTI_AT_USERNAME"`
	APIKey      string        `envconfig:"SAUTI_AT_API_KEY"`
	BaseURL     string        `envconfig:"SAUTI_AT_BASE_URL" default:"https://api.africastalking.com"`
	HTTPTimeout time.Duration `envconfig:"SAUTI_AT_HTTP_TIMEOUT" default:"15s"`
	MaxRetries  int           `envconfig:"SAUTI_AT_MAX_RETRIES" default:"3"`
}

type SurveysConfig struct {
	BaseURL      string        `envconfig:"SAUTI_SURVEYS_BASE_URL"`
	ServiceToken string        `envconfig:"SAUTI_SURVEYS_SERVICE_TOKEN"`
	HTTPTimeout  time.Duration `envconfig:"SAUTI_SURVEYS_HTTP_TIMEOUT" default:"10s"`
}

type WalletConfig struct {
	DefaultCurrency    string `envconfig:"SAUTI_WALLET_DEFAULT_CURRENCY" default:"KES"`
	IndividualTenantID string `envconfig:"SAUTI_WALLET_INDIVIDUAL_TENANT_ID"`
}

type ReconcileConfig struct {
	PendingSLA   time.Duration `envconfig:"SAUTI_RECONCILE_PENDING_SLA" default:"30m"`
	PollInterval time.Duration `envconfig:"SAUTI_RECONCILE_POLL_INTERVAL" default:"5m"`
	BatchSize    int           `envconfig:"SAUTI_RECONCILE_BATCH_SIZE" default:"100"`
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
