package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jad-chahin/stock-sentiment/internal/ticker"
)

// ErrMalformedResponse means the model's reply was not the expected JSON.
var ErrMalformedResponse = errors.New("malformed extraction response")

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*?\\})\\s*\\n?```")
	bareJSON   = regexp.MustCompile(`(?s)(\{.*\})`)
)

type extraction struct {
	Mentions []ticker.Raw `json:"mentions"`
}

// ParseResponse decodes {"mentions":[...]} from a model reply, tolerating
// markdown code fences and surrounding prose.
func ParseResponse(text string) ([]ticker.Raw, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var out extraction
	if err := json.Unmarshal([]byte(extractJSON(text)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v (response was: %.300s)", ErrMalformedResponse, err, text)
	}
	return out.Mentions, nil
}

// extractJSON pulls the JSON object out of a reply that may be wrapped in a
// code block or prose.
func extractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	if m := bareJSON.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}
