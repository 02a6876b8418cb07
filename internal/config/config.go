package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const Version = "0.1.0"

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	TrackingURL     string        `env:"TRACKING_URL" envDefault:"http://localhost:5000"`
	TrackingToken   string        `env:"TRACKING_TOKEN"`
	TrackingTimeout time.Duration `env:"TRACKING_TIMEOUT" envDefault:"10s"`

	// Optional; enables the event queue and the renderer tag cache
	RedisURL       string        `env:"REDIS_URL"`
	RendererTagTTL time.Duration `env:"RENDERER_TAG_TTL" envDefault:"5m"`

	// Optional; enables workflow notifications
	TemporalAddress   string `env:"TEMPORAL_ADDRESS"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE" envDefault:"default"`
	TemporalTaskQueue string `env:"TEMPORAL_TASK_QUEUE" envDefault:"labeling"`

	JWTSecret     string        `env:"JWT_SHARED_SECRET"`
	AutosaveDelay time.Duration `env:"AUTOSAVE_DELAY" envDefault:"500ms"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`

	// Workspaces unused for this long are closed
	WorkspaceIdleTimeout time.Duration `env:"WORKSPACE_IDLE_TIMEOUT" envDefault:"30m"`

	Version string `env:"-"`
}

// Load reads a .env file when present, then the environment
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Version = Version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.TrackingURL == "" {
		return fmt.Errorf("tracking url is required")
	}
	if u, err := url.Parse(c.TrackingURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tracking url %q is not an absolute url", c.TrackingURL)
	}
	if c.TrackingTimeout <= 0 {
		return fmt.Errorf("tracking timeout must be positive")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt shared secret is required")
	}
	if c.AutosaveDelay <= 0 {
		return fmt.Errorf("autosave delay must be positive")
	}
	if c.WorkspaceIdleTimeout <= 0 {
		return fmt.Errorf("workspace idle timeout must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

