package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Skotchmaster/user_management/pkg/db"
)

type Config struct {
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// SlowRequestThreshold logs slower successful requests at WARN; 0 disables.
	SlowRequestThreshold time.Duration `env:"SLOW_REQUEST_THRESHOLD" envDefault:"1s"`

	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	DB          DB     `envPrefix:"DB_"`

	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	JWTAccessTTL    time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	JWTRefreshTTL   time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	MaxPictureBytes int64         `env:"MAX_PICTURE_BYTES" envDefault:"5242880"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	S3 S3 `envPrefix:"S3_"`

	Google OAuthClient `envPrefix:"OAUTH_GOOGLE_"`
	GitHub OAuthClient `envPrefix:"OAUTH_GITHUB_"`
	// OAuthSuccessRedirect receives ?token=<access token> after a federated login.
	OAuthSuccessRedirect string `env:"OAUTH_SUCCESS_REDIRECT" envDefault:"http://localhost:3000/oauth2/redirect"`
}

// DB sizes the connection pool. Unset values use db.DefaultPool.
type DB struct {
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME"`
}

func (d DB) Pool() db.Pool {
	return db.Pool{
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

type S3 struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	PathStyle       bool   `env:"PATH_STYLE"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

type OAuthClient struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("notice: .env file not found, using system environment variables")
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("parse config: JWT_SECRET must be at least 32 bytes")
	}
	if cfg.JWTAccessTTL <= 0 || cfg.JWTRefreshTTL <= 0 {
		return Config{}, fmt.Errorf("parse config: token TTLs must be positive")
	}
	return cfg, nil
}
