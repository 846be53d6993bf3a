package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jad-chahin/stock-sentiment/internal/config"
)

// ErrNoSnapshot is returned when no run snapshot has been written yet.
var ErrNoSnapshot = fmt.Errorf("no run snapshot: %w", ErrNotFound)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RunsDir returns the directory holding run snapshots.
func RunsDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "runs"), nil
}

// snapshotName builds a sortable filename for a run under tag.
func snapshotName(at time.Time, tag string) string {
	tag = unsafeName.ReplaceAllString(tag, "_")
	return at.UTC().Format("2006-01-02T15-04-05.000") + "_" + tag + ".json"
}

// SaveRunSnapshot saves a JSON-serializable run summary and returns its path.
func SaveRunSnapshot[T any](tag string, data T) (string, error) {
	dir, err := RunsDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runs dir: %w", err)
	}

	path := filepath.Join(dir, snapshotName(time.Now(), tag))

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run snapshot: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0600); err != nil {
		return "", fmt.Errorf("failed to write run snapshot: %w", err)
	}

	return path, nil
}

// LoadLatestRunSnapshot loads the most recent snapshot, optionally limited
// to one tag. It returns the data and the file it came from.
func LoadLatestRunSnapshot[T any](tag string) (T, string, error) {
	var zero T

	latestPath, err := latestSnapshotFile(tag)
	if err != nil {
		return zero, "", err
	}

	jsonData, err := os.ReadFile(latestPath)
	if err != nil {
		return zero, "", fmt.Errorf("failed to read run snapshot: %w", err)
	}

	var data T
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return zero, "", fmt.Errorf("failed to unmarshal run snapshot: %w", err)
	}

	return data, latestPath, nil
}

func latestSnapshotFile(tag string) (string, error) {
	dir, err := RunsDir()
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSnapshot
		}
		return "", err
	}

	suffix := ".json"
	if tag != "" {
		suffix = "_" + unsafeName.ReplaceAllString(tag, "_") + ".json"
	}

	// os.ReadDir sorts by name, which is chronological for these filenames.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", ErrNoSnapshot
}
