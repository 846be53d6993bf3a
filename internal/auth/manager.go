package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/jad-chahin/stock-sentiment/internal/config"
)

// ErrMissingCredentials is returned when a required secret is absent and
// cannot be prompted for.
var ErrMissingCredentials = errors.New("missing credentials")

// Prompter asks the operator for values.
type Prompter interface {
	Input(message, def string) (string, error)
	Password(message string) (string, error)
}

// SurveyPrompter prompts on the terminal.
type SurveyPrompter struct{}

func (SurveyPrompter) Input(message, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &out)
	return strings.TrimSpace(out), err
}

func (SurveyPrompter) Password(message string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Password{Message: message}, &out)
	return strings.TrimSpace(out), err
}

// Need says which secrets a command requires.
type Need struct {
	LLM    bool
	Reddit bool
}

// Manager resolves credentials. Values already present in the config
// (from the environment or config file) take precedence over stored ones.
type Manager struct {
	store    *CredentialStore
	prompter Prompter
}

// NewManager creates a manager. prompter may be nil for non-interactive
// use; missing secrets then fail with ErrMissingCredentials.
func NewManager(store *CredentialStore, prompter Prompter) *Manager {
	return &Manager{store: store, prompter: prompter}
}

// Apply fills empty secret fields of cfg from the credential file.
func (m *Manager) Apply(cfg *config.Config) error {
	creds, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	apply(cfg, creds)
	return nil
}

func apply(cfg *config.Config, creds *Credentials) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&cfg.Analysis.APIKey, creds.APIKey(cfg.Analysis.LLMProvider))
	fill(&cfg.Collection.ClientID, creds.RedditClientID)
	fill(&cfg.Collection.ClientSecret, creds.RedditClientSecret)
	if creds.RedditUserAgent != "" && cfg.Collection.UserAgent == config.Default().Collection.UserAgent {
		cfg.Collection.UserAgent = creds.RedditUserAgent
	}
}

// Missing lists the secrets need requires that cfg lacks.
func Missing(cfg *config.Config, need Need) []string {
	var out []string
	if need.LLM && cfg.Analysis.APIKey == "" {
		out = append(out, cfg.APIKeyEnv())
	}
	if need.Reddit {
		if cfg.Collection.ClientID == "" {
			out = append(out, "REDDIT_CLIENT_ID")
		}
		if cfg.Collection.ClientSecret == "" {
			out = append(out, "REDDIT_CLIENT_SECRET")
		}
	}
	return out
}

// Ensure applies stored credentials and prompts for whatever need still
// lacks, saving the answers.
func (m *Manager) Ensure(cfg *config.Config, need Need) error {
	if err := m.Apply(cfg); err != nil {
		return err
	}
	missing := Missing(cfg, need)
	if len(missing) == 0 {
		return nil
	}
	if m.prompter == nil {
		return fmt.Errorf("%w: %s (set them in the environment or run setup)",
			ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return m.prompt(cfg, need, false)
}

// Setup prompts for every secret, offering to keep existing values.
func (m *Manager) Setup(cfg *config.Config) error {
	if m.prompter == nil {
		return fmt.Errorf("%w: setup needs a terminal", ErrMissingCredentials)
	}
	if err := m.Apply(cfg); err != nil {
		return err
	}
	return m.prompt(cfg, Need{LLM: true, Reddit: true}, true)
}

// Reset deletes the credential file.
func (m *Manager) Reset() error {
	return m.store.Clear()
}

func (m *Manager) prompt(cfg *config.Config, need Need, all bool) error {
	creds, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	ask := func(current *string, secret bool, message string) error {
		if *current != "" && !all {
			return nil
		}
		if *current != "" {
			message += " (blank keeps current)"
		}
		var (
			v   string
			err error
		)
		if secret {
			v, err = m.prompter.Password(message)
		} else {
			v, err = m.prompter.Input(message, "")
		}
		if err != nil {
			return err
		}
		if v != "" {
			*current = v
		}
		if *current == "" {
			return fmt.Errorf("%w: %s", ErrMissingCredentials, message)
		}
		return nil
	}

	if need.LLM {
		key := cfg.Analysis.APIKey
		name := "OpenAI"
		if cfg.Analysis.LLMProvider == config.ProviderAnthropic {
			name = "Anthropic"
		}
		if err := ask(&key, true, "Paste your "+name+" API key"); err != nil {
			return err
		}
		cfg.Analysis.APIKey = key
		creds.SetAPIKey(cfg.Analysis.LLMProvider, key)
	}
	if need.Reddit {
		if err := ask(&cfg.Collection.ClientID, false, "Reddit client_id"); err != nil {
			return err
		}
		if err := ask(&cfg.Collection.ClientSecret, true, "Reddit client_secret"); err != nil {
			return err
		}
		creds.RedditClientID = cfg.Collection.ClientID
		creds.RedditClientSecret = cfg.Collection.ClientSecret
		if all {
			ua, err := m.prompter.Input("Reddit user agent", cfg.Collection.UserAgent)
			if err != nil {
				return err
			}
			if ua != "" {
				cfg.Collection.UserAgent = ua
				creds.RedditUserAgent = ua
			}
		}
	}

	if err := m.store.Save(creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}
