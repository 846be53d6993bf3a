package analyzer

import (
	"fmt"
	"strings"
)

// APIError is a provider failure carrying the HTTP status when one exists.
// Providers translate their SDK errors into this shape.
type APIError struct {
	Provider   string
	StatusCode int    // 0 when no response was received
	Type       string // provider error type, e.g. "insufficient_quota"
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	for _, part := range []string{e.Type, e.Code} {
		if part != "" {
			b.WriteString(": " + part)
		}
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	} else if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }
