package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 0.1, cfg.MinZoom)
	assert.Equal(t, 10.0, cfg.MaxZoom)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("MAX_ZOOM", "4")
	t.Setenv("AUTOSAVE_INTERVAL", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t, 4.0, cfg.MaxZoom)
	assert.Equal(t, 5*time.Second, cfg.AutosaveInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"zoom range":    {"MIN_ZOOM", "20"},
		"history limit": {"HISTORY_LIMIT", "1"},
		"not a number":  {"PORT", "eighty"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://localhost:5173, https://app.example.com,,"}
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.Origins())
	assert.Equal(t, []string{"localhost:5173", "app.example.com"}, cfg.OriginPatterns())
}

func TestSQLitePath(t *testing.T) {
	cases := map[string]string{
		"file:pictoforge.db":           "pictoforge.db",
		"file:/var/data/p.db?mode=rwc": "/var/data/p.db",
		"data/p.db":                    "data/p.db",
	}
	for url, want := range cases {
		cfg := Config{DatabaseURL: url}
		assert.Equal(t, want, cfg.SQLitePath(), url)
	}
}
