package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	"github.com/chatstealth/server-go/internal/model"
)

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	StoreDriver          string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL          string `env:"DATABASE_URL"`
	RedisURL             string `env:"REDIS_URL"`
	StripeSecretKey      string `env:"STRIPE_SECRET_KEY"`
	StripePublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET"`
	AppURL               string `env:"APP_URL" envDefault:"https://private-chat-130.emergent.host"`
	UpgradeSecretCode    string `env:"UPGRADE_SECRET_CODE"`
	SweepIntervalSeconds int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"30"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return DefaultSweepInterval
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Driver() model.StoreDriver {
	return model.StoreDriver(strings.ToLower(strings.TrimSpace(c.StoreDriver)))
}

// RedisEnabled reports whether rate limiting can be backed by Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

func (c *Config) Validate(isProduction bool) error {
	switch c.Driver() {
	case model.StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case model.StoreDriverMemory:
		if isProduction {
			log.Warn().Msg("STORE_DRIVER is memory in production: sessions and messages are lost on restart")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (expected postgres or memory)", c.StoreDriver)
	}

	if isProduction {
		if c.StripeSecretKey == "" {
			log.Warn().Msg("STRIPE_SECRET_KEY is empty in production: checkout creation will fail")
		}
		if c.StripeWebhookSecret == "" {
			log.Warn().Msg("STRIPE_WEBHOOK_SECRET is empty in production: webhook signature verification disabled")
		}
		if c.RedisURL == "" {
			log.Warn().Msg("REDIS_URL is empty in production: rate limiting disabled")
		} else if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
