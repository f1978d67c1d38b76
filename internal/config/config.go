package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Backend modes.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Backend    BackendConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Media      MediaConfig
	Auth       AuthConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port           string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite   time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"60s"`
	TimeoutIdle    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	RequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"60s"`
	MaxUploadBytes int64         `envconfig:"HTTP_MAX_UPLOAD_BYTES" default:"10485760"`
	// Per-IP limit on storefront routes; 0 disables it.
	StorefrontRatePerMinute int `envconfig:"STOREFRONT_RATE_PER_MINUTE" default:"120"`
	StorefrontRateBurst     int `envconfig:"STOREFRONT_RATE_BURST" default:"30"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port                string        `envconfig:"GRPC_SERVER_PORT" default:"9090"`
	HealthCheckInterval time.Duration `envconfig:"GRPC_HEALTH_INTERVAL" default:"15s"`
}

// BackendConfig selects where catalogue data lives: a remote REST API or a
// PostgreSQL database owned by this service.
type BackendConfig struct {
	Mode    string        `envconfig:"BACKEND_MODE" default:"rest"`
	BaseURL string        `envconfig:"BACKEND_BASE_URL"`
	Token   string        `envconfig:"BACKEND_TOKEN"`
	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"30s"`
}

// PostgresConfig holds PostgreSQL database connection details. Only used in postgres mode.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// RedisConfig holds the draft and cart store settings.
type RedisConfig struct {
	URL      string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	DraftTTL time.Duration `envconfig:"DRAFT_TTL" default:"168h"`
	CartTTL  time.Duration `envconfig:"CART_TTL" default:"720h"`
}

// MediaConfig holds object storage and image settings. Uploads in postgres mode
// are disabled when Bucket is empty.
type MediaConfig struct {
	Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"AWS_ENDPOINT"`
	AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	Bucket          string `envconfig:"AWS_S3_BUCKET"`
	Prefix          string `envconfig:"AWS_S3_PREFIX" default:"products/"`
	MaxDimension    int    `envconfig:"MEDIA_MAX_DIMENSION" default:"1600"`
}

// AuthConfig holds the admin token settings.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// Load initializes the configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil { // Empty prefix: variables are read by their tag names
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Avoid logging secrets or the DSN.
	zap.L().Info("configuration loaded",
		zap.String("app_env", cfg.AppEnv),
		zap.String("backend_mode", cfg.Backend.Mode),
	)
	return &cfg, nil
}

// Validate checks the fields that depend on the backend mode.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend.Mode {
	case BackendREST:
		if c.Backend.BaseURL == "" {
			errs = append(errs, errors.New("BACKEND_BASE_URL is required when BACKEND_MODE=rest"))
		}
	case BackendPostgres:
		for name, v := range map[string]string{
			"POSTGRES_HOST":     c.Postgres.Host,
			"POSTGRES_USER":     c.Postgres.User,
			"POSTGRES_PASSWORD": c.Postgres.Password,
			"POSTGRES_DBNAME":   c.Postgres.DBName,
		} {
			if v == "" {
				errs = append(errs, fmt.Errorf("%s is required when BACKEND_MODE=postgres", name))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("invalid BACKEND_MODE %q: must be rest or postgres", c.Backend.Mode))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.HttpServer.StorefrontRatePerMinute < 0 || c.HttpServer.StorefrontRateBurst < 0 {
		errs = append(errs, errors.New("STOREFRONT_RATE_PER_MINUTE and STOREFRONT_RATE_BURST must not be negative"))
	}
	if c.Media.MaxDimension < 0 {
		errs = append(errs, errors.New("MEDIA_MAX_DIMENSION must not be negative"))
	}
	if c.Redis.DraftTTL <= 0 || c.Redis.CartTTL <= 0 {
		errs = append(errs, errors.New("DRAFT_TTL and CART_TTL must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
