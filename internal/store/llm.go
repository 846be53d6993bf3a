package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jad-chahin/stock-sentiment/internal/config"
)

// LLMExchange is one extraction request and the provider's reply.
type LLMExchange struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Input     string    `json:"input"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
	Duration  string    `json:"duration"`
}

// LLMCacheDir returns the path to the LLM exchange directory.
func LLMCacheDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "llm"), nil
}

// SaveLLMExchange writes the exchange as JSON and returns the file path.
func SaveLLMExchange(exchange LLMExchange) (string, error) {
	dir, err := LLMCacheDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}

	if exchange.ID == "" {
		exchange.ID = uuid.NewString()
	}
	if exchange.Timestamp.IsZero() {
		exchange.Timestamp = time.Now()
	}

	// Colons are not portable in filenames.
	filename := exchange.Timestamp.Format("2006-01-02T15-04-05") + "_" + exchange.ID[:8] + ".json"
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}

	return path, nil
}
