package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"stocks", "wallstreetbets"}, cfg.Collection.Subreddits)
	assert.Equal(t, "default", cfg.Analysis.Tag)
	assert.Equal(t, 5000, cfg.Analysis.Limit)
	assert.Equal(t, 0, cfg.Analysis.MaxRequestsPerMinute)
	assert.False(t, cfg.Analysis.KeywordShortcut)
	assert.False(t, cfg.Analysis.ValidateTickers)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Analysis.Model, cfg.Analysis.Model)
}

func TestSaveLoadRoundTripAndEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Analysis.Tag = "weekly"
	cfg.Analysis.KeywordShortcut = true
	cfg.Analysis.APIKey = "must-not-be-written"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "must-not-be-written")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STOCK_SENTIMENT_MODEL", "gpt-test")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "weekly", loaded.Analysis.Tag)
	assert.True(t, loaded.Analysis.KeywordShortcut)
	assert.Equal(t, "sk-test", loaded.Analysis.APIKey)
	assert.Equal(t, "gpt-test", loaded.Analysis.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty tag", func(c *Config) { c.Analysis.Tag = " " }},
		{"zero limit", func(c *Config) { c.Analysis.Limit = 0 }},
		{"negative rpm", func(c *Config) { c.Analysis.MaxRequestsPerMinute = -1 }},
		{"bad listing", func(c *Config) { c.Collection.Listing = "best" }},
		{"bad provider", func(c *Config) { c.Analysis.LLMProvider = "other" }},
		{"empty db", func(c *Config) { c.Database.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestRunConfig(t *testing.T) {
	cfg := Default()
	cfg.Analysis.TimeoutMinutes = 5
	cfg.Analysis.ValidateTickers = true

	rc := cfg.RunConfig()
	assert.Equal(t, 5*time.Minute, rc.Timeout)
	assert.True(t, rc.ValidateTickers)
	assert.Equal(t, "default", rc.Tag)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"stocks", "wallstreetbets", "investing"}, SplitList("stocks, wallstreetbets  investing,"))
	assert.Empty(t, SplitList(" , "))
}
