package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const appName = "stock-sentiment"

// Supported extraction providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Listing modes accepted by the collector.
var Listings = []string{"hot", "new", "rising", "top"}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration
type Config struct {
	Version    int              `toml:"version"`
	Database   DatabaseConfig   `toml:"database"`
	Collection CollectionConfig `toml:"collection"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Report     ReportConfig     `toml:"report"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Log        LogConfig        `toml:"log"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type CollectionConfig struct {
	Subreddits         []string `toml:"subreddits"`
	Listing            string   `toml:"listing"`
	PostLimit          int      `toml:"post_limit"`
	MaxCommentsPerPost int      `toml:"max_comments_per_post"`
	MoreLimit          int      `toml:"more_limit"`
	BotUsernames       []string `toml:"bot_usernames"`
	RequestsPerMinute  int      `toml:"requests_per_minute"`
	UserAgent          string   `toml:"user_agent"`
	ClientID           string   `toml:"client_id"`
	ClientSecret       string   `toml:"-"`
}

type AnalysisConfig struct {
	LLMProvider          string `toml:"llm_provider"`
	APIKey               string `toml:"-"`
	BaseURL              string `toml:"base_url"`
	Model                string `toml:"model"`
	Tag                  string `toml:"tag"`
	Limit                int    `toml:"limit"`
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"`
	TimeoutMinutes       int    `toml:"timeout_minutes"`
	RetryErrors          bool   `toml:"retry_errors"`
	IncludeSkipped       bool   `toml:"include_skipped"`
	KeywordShortcut      bool   `toml:"keyword_shortcut"`
	ValidateTickers      bool   `toml:"validate_tickers"`
	CaptureExchanges     bool   `toml:"capture_exchanges"`
}

type ReportConfig struct {
	TopN int `toml:"top_n"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	dbPath := "stock_sentiment.db"
	if dir, err := DataDir(); err == nil {
		dbPath = filepath.Join(dir, dbPath)
	}

	return &Config{
		Version:  1,
		Database: DatabaseConfig{Path: dbPath},
		Collection: CollectionConfig{
			Subreddits:         []string{"stocks", "wallstreetbets"},
			Listing:            "hot",
			PostLimit:          50,
			MaxCommentsPerPost: 500,
			MoreLimit:          0,
			BotUsernames:       []string{"AutoModerator", "VisualMod"},
			RequestsPerMinute:  60,
			UserAgent:          appName + "/1.0",
		},
		Analysis: AnalysisConfig{
			LLMProvider: ProviderOpenAI,
			Model:       "gpt-5-nano",
			Tag:         "default",
			Limit:       5000,
		},
		Report: ReportConfig{TopN: 25},
		Schedule: ScheduleConfig{
			Cron:     "@every 1h",
			Timezone: "Local",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir holds run snapshots and captured LLM exchanges.
func CacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DataDir holds the default database.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// Load reads config from path. An empty path means ConfigPath(). A missing
// file yields the defaults. Environment variables (and a .env file in the
// working directory) override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("STOCK_SENTIMENT_DB"); val != "" {
		c.Database.Path = val
	}
	if val := os.Getenv("STOCK_SENTIMENT_MODEL"); val != "" {
		c.Analysis.Model = val
	}
	if val := os.Getenv("STOCK_SENTIMENT_PROVIDER"); val != "" {
		c.Analysis.LLMProvider = val
	}
	if val := os.Getenv(c.APIKeyEnv()); val != "" {
		c.Analysis.APIKey = val
	}
	if val := os.Getenv("OPENAI_BASE_URL"); val != "" && c.Analysis.LLMProvider == ProviderOpenAI {
		c.Analysis.BaseURL = val
	}
	if val := os.Getenv("REDDIT_CLIENT_ID"); val != "" {
		c.Collection.ClientID = val
	}
	if val := os.Getenv("REDDIT_CLIENT_SECRET"); val != "" {
		c.Collection.ClientSecret = val
	}
	if val := os.Getenv("REDDIT_USER_AGENT"); val != "" {
		c.Collection.UserAgent = val
	}
}

// APIKeyEnv names the environment variable holding the provider key.
func (c *Config) APIKeyEnv() string {
	if c.Analysis.LLMProvider == ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// Validate checks value ranges. Secrets are not required here; callers
// check them when the relevant command runs.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is empty"))
	}
	switch c.Analysis.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown analysis.llm_provider %q", c.Analysis.LLMProvider))
	}
	if strings.TrimSpace(c.Analysis.Tag) == "" {
		errs = append(errs, errors.New("analysis.tag is empty"))
	}
	if c.Analysis.Limit < 1 {
		errs = append(errs, fmt.Errorf("analysis.limit must be >= 1, got %d", c.Analysis.Limit))
	}
	if c.Analysis.MaxRequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_requests_per_minute must be >= 0, got %d", c.Analysis.MaxRequestsPerMinute))
	}
	if !validListing(c.Collection.Listing) {
		errs = append(errs, fmt.Errorf("collection.listing must be one of %s", strings.Join(Listings, ", ")))
	}
	if c.Collection.PostLimit < 1 {
		errs = append(errs, fmt.Errorf("collection.post_limit must be >= 1, got %d", c.Collection.PostLimit))
	}
	if c.Collection.MaxCommentsPerPost < 1 {
		errs = append(errs, fmt.Errorf("collection.max_comments_per_post must be >= 1, got %d", c.Collection.MaxCommentsPerPost))
	}
	if c.Report.TopN < 1 {
		errs = append(errs, fmt.Errorf("report.top_n must be >= 1, got %d", c.Report.TopN))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func validListing(l string) bool {
	for _, v := range Listings {
		if l == v {
			return true
		}
	}
	return false
}

// Save writes config to path (ConfigPath() when empty).
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
