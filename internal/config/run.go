package config

import (
	"strings"
	"time"
)

// RunConfig is everything a single analysis run needs. It is built once
// per invocation and passed by value; nothing in it is process-wide.
type RunConfig struct {
	Tag                  string
	Model                string
	Limit                int
	MaxRequestsPerMinute int
	RetryErrors          bool
	IncludeSkipped       bool
	Subreddits           []string
	Timeout              time.Duration
	KeywordShortcut      bool
	ValidateTickers      bool
}

// RunConfig derives the run configuration from the file/env values.
func (c *Config) RunConfig() RunConfig {
	return RunConfig{
		Tag:                  c.Analysis.Tag,
		Model:                c.Analysis.Model,
		Limit:                c.Analysis.Limit,
		MaxRequestsPerMinute: c.Analysis.MaxRequestsPerMinute,
		RetryErrors:          c.Analysis.RetryErrors,
		IncludeSkipped:       c.Analysis.IncludeSkipped,
		Timeout:              time.Duration(c.Analysis.TimeoutMinutes) * time.Minute,
		KeywordShortcut:      c.Analysis.KeywordShortcut,
		ValidateTickers:      c.Analysis.ValidateTickers,
	}
}

// SplitList splits a comma and/or space separated list, dropping empties.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
