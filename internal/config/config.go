package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Arango       ArangoConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Admin        AdminConfig
	Notification NotificationConfig
	Certificates CertificatesConfig
	Chat         ChatConfig
	RateLimit    RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"certification-service"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	FrontendURL           string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN             string        `env:"POSTGRES_DSN"`
	MaxConns        int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations   bool          `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec  int32         `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec  int32         `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
	ConnectAttempts int           `env:"POSTGRES_CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectBackoff  time.Duration `env:"POSTGRES_CONNECT_BACKOFF" envDefault:"500ms"`
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"certsvc:"`
}

// ArangoConfig locates the standards catalog. An empty URL selects the in-memory catalog.
type ArangoConfig struct {
	URL        string `env:"ARANGO_URL"`
	Username   string `env:"ARANGO_USERNAME" envDefault:"root"`
	Password   string `env:"ARANGO_PASSWORD"`
	Database   string `env:"ARANGO_DATABASE" envDefault:"iso"`
	Collection string `env:"ARANGO_STANDARDS_COLLECTION" envDefault:"standards"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret            string        `env:"AUTH_JWT_SECRET" envDefault:"dev-secret"`
	TokenSecret          string        `env:"AUTH_TOKEN_SECRET"`
	AccessTokenTTL       time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"24h"`
	RefreshTokenTTL      time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"168h"`
	ConfirmationMaxAge   time.Duration `env:"AUTH_CONFIRMATION_MAX_AGE" envDefault:"1h"`
	PasswordResetMaxAge  time.Duration `env:"AUTH_PASSWORD_RESET_MAX_AGE" envDefault:"1h"`
	InvitationTTL        time.Duration `env:"AUTH_INVITATION_TTL" envDefault:"168h"`
	BcryptCost           int           `env:"AUTH_BCRYPT_COST" envDefault:"12"`
	RevokedTokenSweepTTL time.Duration `env:"AUTH_REVOKED_TOKEN_SWEEP_INTERVAL" envDefault:"1h"`
}

// AdminConfig seeds the first administrator.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	FullName string `env:"ADMIN_FULL_NAME" envDefault:"Administrator"`
	Password string `env:"ADMIN_PASSWORD"`
}

// NotificationConfig selects how notifications leave the process.
type NotificationConfig struct {
	MailFrom     string `env:"MAIL_DEFAULT_SENDER" envDefault:"noreply@example.com"`
	SMTPHost     string `env:"MAIL_SERVER"`
	SMTPPort     int    `env:"MAIL_PORT" envDefault:"587"`
	SMTPUsername string `env:"MAIL_USERNAME"`
	SMTPPassword string `env:"MAIL_PASSWORD"`
	EventStream  string `env:"NOTIFY_EVENT_STREAM" envDefault:"certification:events"`
}

// CertificatesConfig controls where rendered certificates are written.
type CertificatesConfig struct {
	OutputDir string `env:"CERTIFICATES_DIR" envDefault:"certificates"`
}

// ChatConfig configures the standards assistant. An empty APIKey disables chat.
type ChatConfig struct {
	APIKey          string        `env:"OPENAI_API_KEY"`
	BaseURL         string        `env:"OPENAI_BASE_URL"`
	Model           string        `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	HistoryTTL      time.Duration `env:"CHAT_HISTORY_TTL" envDefault:"1h"`
	HistoryMaxTurns int           `env:"CHAT_HISTORY_MAX_TURNS" envDefault:"20"`
	NodeID          int64         `env:"CHAT_NODE_ID" envDefault:"1"`
}

// RateLimitConfig bounds requests to the authentication endpoints per client IP.
type RateLimitConfig struct {
	Requests int           `env:"RATELIMIT_AUTH_REQUESTS" envDefault:"20"`
	Window   time.Duration `env:"RATELIMIT_AUTH_WINDOW" envDefault:"1m"`
	Burst    int           `env:"RATELIMIT_AUTH_BURST" envDefault:"20"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Auth.TokenSecret == "" {
		cfg.Auth.TokenSecret = cfg.Auth.JWTSecret
	}
	if cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = 12
	}
	return &cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SMTPEnabled reports whether outbound mail should go through SMTP.
func (n NotificationConfig) SMTPEnabled() bool {
	return n.SMTPHost != ""
}
