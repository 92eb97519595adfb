package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string `env:"DATABASE_DSN,required=true"`
	RedisURL            string `env:"REDIS_URL,required=true"`
	JWTSecret           string `env:"JWT_SECRET,required=true"`
	FeedBackend         string `env:"FEED_BACKEND,default=redis"`
	PollIntervalSec     int    `env:"POLL_INTERVAL_SEC,default=30"`
	NotificationWindow  int    `env:"NOTIFICATION_WINDOW,default=100"`
	MutationRatePerSec  int    `env:"MUTATION_RATE_PER_SEC,default=20"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// PollInterval returns the polling fallback interval as a duration.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}
