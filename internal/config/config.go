package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration, populated from environment variables.
type Config struct {
	// Server
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/neighbornudge.db"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Reddit feed
	Subreddit   string `env:"REDDIT_SUBREDDIT" envDefault:"NeighborNudge"`
	RedditLimit int    `env:"REDDIT_LIMIT" envDefault:"25"`

	// Rate limiting for mutation endpoints, per client IP
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"30"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Encrypted database backups to S3-compatible storage.
	// Backups are disabled unless bucket and passphrase are both set.
	BackupBucket     string        `env:"BACKUP_S3_BUCKET"`
	BackupEndpoint   string        `env:"BACKUP_S3_ENDPOINT"`
	BackupRegion     string        `env:"BACKUP_S3_REGION" envDefault:"auto"`
	BackupAccessKey  string        `env:"BACKUP_S3_ACCESS_KEY"`
	BackupSecretKey  string        `env:"BACKUP_S3_SECRET_KEY"`
	BackupPassphrase string        `env:"BACKUP_PASSPHRASE"`
	BackupInterval   time.Duration `env:"BACKUP_INTERVAL" envDefault:"24h"`
	BackupKeep       int           `env:"BACKUP_KEEP" envDefault:"7"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// BackupEnabled reports whether enough settings are present to run backups.
func (c *Config) BackupEnabled() bool {
	return c.BackupBucket != "" && c.BackupPassphrase != ""
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
