package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port int `envconfig:"PORT" default:"8080"`
	// DatabaseURL is a postgres:// URL or a path to a SQLite file.
	DatabaseURL    string `envconfig:"DATABASE_URL" default:"file:pictoforge.db"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`

	MinZoom          float64       `envconfig:"MIN_ZOOM" default:"0.1"`
	MaxZoom          float64       `envconfig:"MAX_ZOOM" default:"10"`
	FitPadding       float64       `envconfig:"FIT_PADDING" default:"20"`
	HistoryLimit     int           `envconfig:"HISTORY_LIMIT" default:"100"`
	AutosaveInterval time.Duration `envconfig:"AUTOSAVE_INTERVAL" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MinZoom <= 0 || c.MaxZoom < c.MinZoom {
		return fmt.Errorf("zoom range [%g, %g] is invalid", c.MinZoom, c.MaxZoom)
	}
	if c.HistoryLimit < 2 {
		return fmt.Errorf("HISTORY_LIMIT must be at least 2, got %d", c.HistoryLimit)
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL must be positive, got %s", c.AutosaveInterval)
	}
	return nil
}

// Origins splits AllowedOrigins into its entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OriginPatterns strips the scheme from each origin for websocket.Accept.
func (c *Config) OriginPatterns() []string {
	origins := c.Origins()
	out := make([]string, len(origins))
	for i, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out[i] = o
	}
	return out
}

// UsesPostgres reports whether DatabaseURL points at PostgreSQL rather than
// a SQLite file.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// SQLitePath returns the database file named by a non-postgres
// DatabaseURL, without any file: scheme or query.
func (c *Config) SQLitePath() string {
	path := strings.TrimPrefix(c.DatabaseURL, "file:")
	path, _, _ = strings.Cut(path, "?")
	return path
}
