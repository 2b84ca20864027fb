// Package config loads and validates client config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds client configuration loaded from the environment.
type Config struct {
	// APIURL is the Lynqio backend REST base URL (e.g. https://api.lynqio.com).
	APIURL string `mapstructure:"LYNQIO_API_URL"`
	// AuthURL is the hosted identity provider base URL.
	AuthURL string `mapstructure:"LYNQIO_AUTH_URL"`
	// GatewayKey is the static service-gateway key sent as a Bearer token on every
	// backend request. It satisfies the gateway-level check only; tenant scoping
	// comes from the tenant token header.
	GatewayKey string `mapstructure:"LYNQIO_GATEWAY_KEY"`
	// StateDir is the directory for the local sqlite state store (last-activated
	// org id, cached memberships). Default is ".lynqio".
	StateDir string `mapstructure:"LYNQIO_STATE_DIR"`
	// ActivationInterval is the fixed wait between activation polling attempts (e.g. "400ms").
	ActivationInterval string `mapstructure:"LYNQIO_ACTIVATION_INTERVAL"`
	// ActivationMaxAttempts bounds the activation polling loop (default 20).
	ActivationMaxAttempts int `mapstructure:"LYNQIO_ACTIVATION_MAX_ATTEMPTS"`
	// RequestTimeout is the per-request timeout for backend and provider calls (e.g. "30s").
	RequestTimeout string `mapstructure:"LYNQIO_REQUEST_TIMEOUT"`
	// ChatPollInterval is the chat panel refresh interval (e.g. "5s").
	ChatPollInterval string `mapstructure:"LYNQIO_CHAT_POLL_INTERVAL"`
	// LogLevel is the zap log level: debug, info, warn, error.
	LogLevel string `mapstructure:"LYNQIO_LOG_LEVEL"`
	// OTLPEndpoint is the optional OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"LYNQIO_OTLP_ENDPOINT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("LYNQIO_API_URL", "https://api.lynqio.com")
	v.SetDefault("LYNQIO_AUTH_URL", "https://auth.lynqio.com")
	v.SetDefault("LYNQIO_GATEWAY_KEY", "")
	v.SetDefault("LYNQIO_STATE_DIR", ".lynqio")
	v.SetDefault("LYNQIO_ACTIVATION_INTERVAL", "400ms")
	v.SetDefault("LYNQIO_ACTIVATION_MAX_ATTEMPTS", 20)
	v.SetDefault("LYNQIO_REQUEST_TIMEOUT", "30s")
	v.SetDefault("LYNQIO_CHAT_POLL_INTERVAL", "5s")
	v.SetDefault("LYNQIO_LOG_LEVEL", "info")
	v.SetDefault("LYNQIO_OTLP_ENDPOINT", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIURL == "" {
		return nil, errors.New("config: LYNQIO_API_URL must be set")
	}
	if cfg.AuthURL == "" {
		return nil, errors.New("config: LYNQIO_AUTH_URL must be set")
	}
	if cfg.GatewayKey == "" {
		return nil, errors.New("config: LYNQIO_GATEWAY_KEY must be set")
	}
	if cfg.ActivationMaxAttempts <= 0 {
		cfg.ActivationMaxAttempts = 20
	}

	return &cfg, nil
}

// ActivationIntervalDuration parses ActivationInterval. Returns 400ms if unset or invalid.
func (c *Config) ActivationIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.ActivationInterval)
	if err != nil || d <= 0 {
		return 400 * time.Millisecond
	}
	return d
}

// RequestTimeoutDuration parses RequestTimeout. Returns 30s if unset or invalid.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ChatPollIntervalDuration parses ChatPollInterval. Returns 5s if unset or invalid.
func (c *Config) ChatPollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.ChatPollInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}
