// Package auth stores the API credentials the collector and the extraction
// providers need.
package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/jad-chahin/stock-sentiment/internal/config"
)

// Credentials are the secrets persisted between runs.
type Credentials struct {
	OpenAIAPIKey       string    `json:"openai_api_key,omitempty"`
	AnthropicAPIKey    string    `json:"anthropic_api_key,omitempty"`
	RedditClientID     string    `json:"reddit_client_id,omitempty"`
	RedditClientSecret string    `json:"reddit_client_secret,omitempty"`
	RedditUserAgent    string    `json:"reddit_user_agent,omitempty"`
	SavedAt            time.Time `json:"saved_at"`
}

// APIKey returns the stored key for provider.
func (c *Credentials) APIKey(provider string) string {
	if provider == config.ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// SetAPIKey stores key for provider.
func (c *Credentials) SetAPIKey(provider, key string) {
	if provider == config.ProviderAnthropic {
		c.AnthropicAPIKey = key
		return
	}
	c.OpenAIAPIKey = key
}

// CredentialStore persists Credentials as a JSON file readable only by the
// owner.
type CredentialStore struct {
	path string
}

// NewCredentialStore creates a credential store at the given path
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// DefaultCredentialStorePath returns the default path for credential storage
func DefaultCredentialStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "credentials.json"), nil
}

// Path returns the file location.
func (cs *CredentialStore) Path() string { return cs.path }

// Save persists credentials to disk
func (cs *CredentialStore) Save(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(cs.path), 0700); err != nil {
		return err
	}

	stored := *creds
	stored.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(cs.path, data, 0600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(cs.path, 0600)
}

// Load retrieves credentials from disk. A missing file yields empty
// credentials.
func (cs *CredentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(cs.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Clear removes stored credentials
func (cs *CredentialStore) Clear() error {
	err := os.Remove(cs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
