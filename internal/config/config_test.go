package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SHARED_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:5000", cfg.TrackingURL)
	assert.Equal(t, 10*time.Second, cfg.TrackingTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RendererTagTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDelay)
	assert.Equal(t, 30*time.Minute, cfg.WorkspaceIdleTimeout)
	assert.Equal(t, "labeling", cfg.TemporalTaskQueue)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, Version, cfg.Version)
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SHARED_SECRET=from-file\nAUTOSAVE_DELAY=2s\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("PORT", "9090")
	// godotenv never overrides variables that are already set
	t.Setenv("JWT_SHARED_SECRET", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("AUTOSAVE_DELAY")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 2*time.Second, cfg.AutosaveDelay)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SHARED_SECRET", "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "jwt shared secret")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:            "8080",
		TrackingURL:     "http://tracking:5000",
		TrackingTimeout: time.Second,
		JWTSecret:       "x",
		AutosaveDelay:   time.Second,
		LogLevel:        "info",

		WorkspaceIdleTimeout: time.Minute,
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"relative url":  func(c *Config) { c.TrackingURL = "tracking" },
		"zero timeout":  func(c *Config) { c.TrackingTimeout = 0 },
		"zero delay":    func(c *Config) { c.AutosaveDelay = 0 },
		"zero idle":     func(c *Config) { c.WorkspaceIdleTimeout = 0 },
		"bad log level": func(c *Config) { c.LogLevel = "loud" },
		"no port":       func(c *Config) { c.Port = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
