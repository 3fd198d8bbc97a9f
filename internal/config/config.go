// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is an optional Redis URL; when set, OTP state is kept in Redis instead of Postgres.
	RedisURL string `mapstructure:"REDIS_URL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// AccessTokenTTL is the access token lifetime (e.g. "15m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the refresh token lifetime (e.g. "168h").
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`

	// GrantPrivateKey is the PEM-encoded private key (RSA or ECDSA) or a path to one;
	// signs realtime channel grants.
	GrantPrivateKey string `mapstructure:"GRANT_PRIVATE_KEY"`
	// GrantPublicKey is the PEM-encoded public key or a path to one; the realtime
	// transport verifies grants with it.
	GrantPublicKey string `mapstructure:"GRANT_PUBLIC_KEY"`
	// GrantIssuer is the iss claim stamped on channel grants.
	GrantIssuer string `mapstructure:"GRANT_ISSUER"`

	// SMTP settings for the OTP delivery mailer (worker, or brokerless fallback).
	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	// KafkaBrokers is a comma-separated broker list; when set, OTP delivery events
	// are published to Kafka and cmd/worker sends the mail.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// OTPDeliveryTopic is the Kafka topic for OTP delivery events.
	OTPDeliveryTopic string `mapstructure:"OTP_DELIVERY_TOPIC"`
	// KafkaGroupID is the consumer group ID for the delivery worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces/metrics; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h") // 7d
	v.SetDefault("GRANT_ISSUER", "chat-auth")
	v.SetDefault("SMTP_PORT", 1025)
	v.SetDefault("SMTP_FROM", "no-reply@chat.local")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("OTP_DELIVERY_TOPIC", "chat-otp-delivery")
	v.SetDefault("KAFKA_GROUP_ID", "chat-otp-delivery-worker")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTokenTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses RefreshTokenTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTokenTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// A non-empty list means OTP delivery goes through Kafka.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
