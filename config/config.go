package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Config carries every tunable of the service. Values come from an
 * optional .env file, environment variables, and defaults, in that
 * order of precedence.
 */

type Config struct {
	Port string `mapstructure:"PORT"`

	// Webhook ingress
	WebhookSecret         string        `mapstructure:"WEBHOOK_SECRET"`
	WebhookSecretPrevious string        `mapstructure:"WEBHOOK_SECRET_PREVIOUS"`
	RateLimitPerSecond    float64       `mapstructure:"RATE_LIMIT_PER_SECOND"`
	RateLimitBurst        int           `mapstructure:"RATE_LIMIT_BURST"`
	ReplayBackend         string        `mapstructure:"REPLAY_BACKEND"`
	ReplayTTL             time.Duration `mapstructure:"REPLAY_TTL"`

	// Redis replay guard (used when REPLAY_BACKEND=redis)
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Queue and workers
	QueueCapacity int `mapstructure:"QUEUE_CAPACITY"`
	Workers       int `mapstructure:"WORKERS"`

	// Upstream provider API
	GithubAPIBaseURL string        `mapstructure:"GITHUB_API_BASE_URL"`
	GithubToken      string        `mapstructure:"GITHUB_TOKEN"`
	UpstreamTimeout  time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`

	// Artifact resolution
	ResolveMaxAttempts int           `mapstructure:"RESOLVE_MAX_ATTEMPTS"`
	ResolveBaseBackoff time.Duration `mapstructure:"RESOLVE_BASE_BACKOFF"`
	ResolveMaxBackoff  time.Duration `mapstructure:"RESOLVE_MAX_BACKOFF"`
	ResolveBudget      time.Duration `mapstructure:"RESOLVE_BUDGET"`

	// Check run publication
	PublishMaxAttempts int           `mapstructure:"PUBLISH_MAX_ATTEMPTS"`
	PublishBaseBackoff time.Duration `mapstructure:"PUBLISH_BASE_BACKOFF"`
	PublishMaxBackoff  time.Duration `mapstructure:"PUBLISH_MAX_BACKOFF"`

	// Circuit breaker
	BreakerThreshold int           `mapstructure:"BREAKER_THRESHOLD"`
	BreakerCooldown  time.Duration `mapstructure:"BREAKER_COOLDOWN"`

	// Execution store
	StoreTTL        time.Duration `mapstructure:"STORE_TTL"`
	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`

	// Per-repository policies
	PolicyFile string `mapstructure:"POLICY_FILE"`
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("RATE_LIMIT_PER_SECOND", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("REPLAY_BACKEND", "memory")
	viper.SetDefault("REPLAY_TTL", time.Hour)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("QUEUE_CAPACITY", 256)
	viper.SetDefault("WORKERS", 4)
	viper.SetDefault("UPSTREAM_TIMEOUT", 10*time.Second)
	viper.SetDefault("RESOLVE_MAX_ATTEMPTS", 12)
	viper.SetDefault("RESOLVE_BASE_BACKOFF", 500*time.Millisecond)
	viper.SetDefault("RESOLVE_MAX_BACKOFF", 10*time.Second)
	viper.SetDefault("RESOLVE_BUDGET", 2*time.Minute)
	viper.SetDefault("PUBLISH_MAX_ATTEMPTS", 5)
	viper.SetDefault("PUBLISH_BASE_BACKOFF", 500*time.Millisecond)
	viper.SetDefault("PUBLISH_MAX_BACKOFF", 5*time.Second)
	viper.SetDefault("BREAKER_THRESHOLD", 5)
	viper.SetDefault("BREAKER_COOLDOWN", 30*time.Second)
	viper.SetDefault("STORE_TTL", time.Hour)
	viper.SetDefault("CLEANUP_INTERVAL", 5*time.Minute)
	viper.SetDefault("POLICY_FILE", "")

	err := viper.ReadInConfig()
	if err != nil {
		// The .env file is optional; env vars and defaults cover everything
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	var config Config
	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required")
	}
	if c.ReplayBackend != "memory" && c.ReplayBackend != "redis" {
		return fmt.Errorf("REPLAY_BACKEND must be memory or redis, got %q", c.ReplayBackend)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive, got %d", c.QueueCapacity)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	return nil
}

// Secrets returns the active and any previous webhook secret, newest first.
func (c *Config) Secrets() []string {
	secrets := []string{c.WebhookSecret}
	if c.WebhookSecretPrevious != "" {
		secrets = append(secrets, c.WebhookSecretPrevious)
	}
	return secrets
}
