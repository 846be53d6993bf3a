package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runSummary struct {
	Tag      string `json:"tag"`
	Analyzed int    `json:"analyzed"`
}

func TestRunSnapshots(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	_, _, err := LoadLatestRunSnapshot[runSummary]("")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = SaveRunSnapshot("alpha", runSummary{Tag: "alpha", Analyzed: 1})
	require.NoError(t, err)
	_, err = SaveRunSnapshot("beta/2", runSummary{Tag: "beta/2", Analyzed: 2})
	require.NoError(t, err)

	got, path, err := LoadLatestRunSnapshot[runSummary]("alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Analyzed)
	assert.Contains(t, path, "_alpha.json")

	got, _, err = LoadLatestRunSnapshot[runSummary]("beta/2")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Analyzed)

	_, _, err = LoadLatestRunSnapshot[runSummary]("gamma")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSaveLLMExchange(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	path, err := SaveLLMExchange(LLMExchange{Provider: "openai", Model: "m", Input: "hi", Response: "{}"})
	require.NoError(t, err)
	assert.FileExists(t, path)
}
