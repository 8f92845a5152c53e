package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PARTNERHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "PARTNERHUB_APP_ENV"
	EnvPort            = "PARTNERHUB_APP_PORT"
	EnvDBDSN           = "PARTNERHUB_DB_DSN"
	EnvDBHost          = "PARTNERHUB_DB_HOST"
	EnvDBUser          = "PARTNERHUB_DB_USER"
	EnvDBName          = "PARTNERHUB_DB_NAME"
	EnvRedisURL        = "PARTNERHUB_REDIS_URL"
	EnvJWTSecret       = "PARTNERHUB_JWT_SECRET"
	EnvJWTIssuer       = "PARTNERHUB_JWT_ISSUER"
	EnvNotifyTransport = "PARTNERHUB_NOTIFY_TRANSPORT"
	EnvGCPProjectID    = "PARTNERHUB_GCP_PROJECT_ID"
	EnvLicenseTopic    = "PARTNERHUB_PUBSUB_LICENSE_TOPIC"

	NotifyTransportInbox  = "inbox"
	NotifyTransportPubSub = "pubsub"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Referrals    ReferralsConfig
	Licenses     LicensesConfig
	Notify       NotifyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Notify.validate(cfg.GCP, cfg.PubSub); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PARTNERHUB_APP_ENV" required:"true"`
	Port         string   `envconfig:"PARTNERHUB_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"PARTNERHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PARTNERHUB_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PARTNERHUB_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"PARTNERHUB_DB_DSN"`
	SQLitePath string `envconfig:"PARTNERHUB_SQLITE_PATH" default:"partnerhub.db"`

	LegacyHost     string `envconfig:"PARTNERHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"PARTNERHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARTNERHUB_DB_USER"`
	LegacyPassword string `envconfig:"PARTNERHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARTNERHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARTNERHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARTNERHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARTNERHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARTNERHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARTNERHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARTNERHUB_REDIS_URL"`
	Address      string        `envconfig:"PARTNERHUB_REDIS_ADDR"`
	Password     string        `envconfig:"PARTNERHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARTNERHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARTNERHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARTNERHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARTNERHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARTNERHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARTNERHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how identity tokens minted by the session provider are verified.
type JWTConfig struct {
	Secret string `envconfig:"PARTNERHUB_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PARTNERHUB_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PARTNERHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PARTNERHUB_AUTO_MIGRATE" default:"false"`
}

type ReferralsConfig struct {
	TransitionTimeout time.Duration `envconfig:"PARTNERHUB_REFERRAL_TRANSITION_TIMEOUT" default:"5s"`
}

type LicensesConfig struct {
	SweepWorkers      int `envconfig:"PARTNERHUB_LICENSE_SWEEP_WORKERS" default:"4"`
	ExpiringDaysLimit int `envconfig:"PARTNERHUB_LICENSE_EXPIRING_DAYS_LIMIT" default:"365"`
}

type NotifyConfig struct {
	Transport string `envconfig:"PARTNERHUB_NOTIFY_TRANSPORT" default:"inbox"`
}

// UsesPubSub reports whether license notifications leave the process through Pub/Sub.
func (n NotifyConfig) UsesPubSub() bool {
	return strings.EqualFold(strings.TrimSpace(n.Transport), NotifyTransportPubSub)
}

func (n NotifyConfig) validate(gcp GCPConfig, ps PubSubConfig) error {
	switch strings.ToLower(strings.TrimSpace(n.Transport)) {
	case NotifyTransportInbox:
		return nil
	case NotifyTransportPubSub:
		if strings.TrimSpace(gcp.ProjectID) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvNotifyTransport, NotifyTransportPubSub)
		}
		if strings.TrimSpace(ps.LicenseTopic) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvLicenseTopic, EnvNotifyTransport, NotifyTransportPubSub)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvNotifyTransport, n.Transport)
	}
}

type GCPConfig struct {
	ProjectID       string `envconfig:"PARTNERHUB_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"PARTNERHUB_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	LicenseTopic string `envconfig:"PARTNERHUB_PUBSUB_LICENSE_TOPIC" default:"ph-license-notifications"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"PARTNERHUB_CRON_INTERVAL" default:"24h"`
	LockTTL               time.Duration `envconfig:"PARTNERHUB_CRON_LOCK_TTL" default:"25h"`
	JobTimeout            time.Duration `envconfig:"PARTNERHUB_CRON_JOB_TIMEOUT" default:"30m"`
	NotificationRetention time.Duration `envconfig:"PARTNERHUB_NOTIFICATION_RETENTION" default:"720h"`
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
