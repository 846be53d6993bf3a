// Package ticker turns raw symbol strings into canonical tickers and merges
// per-record sentiment.
package ticker

import (
	"regexp"
	"strings"
	"sync"
)

const maxCached = 8192

var (
	marketPrefix = regexp.MustCompile(`^[A-Z]+:`)
	disallowed   = regexp.MustCompile(`[^A-Z0-9./-]`)
	shareClass   = regexp.MustCompile(`^[A-Z]{1,6}-[A-Z0-9]{1,3}$`)

	cacheMu sync.Mutex
	cache   = make(map[string]string)
)

// Normalize returns the canonical form of a raw symbol. An empty result
// means the input is not a symbol.
//
//	"$TSLA"       -> "TSLA"
//	"NASDAQ:aapl" -> "AAPL"
//	"BRK-B"       -> "BRK.B"
//	"BRK/B"       -> "BRK.B"
func Normalize(raw string) string {
	cacheMu.Lock()
	if v, ok := cache[raw]; ok {
		cacheMu.Unlock()
		return v
	}
	cacheMu.Unlock()

	out := normalize(raw)

	cacheMu.Lock()
	if len(cache) >= maxCached {
		clear(cache)
	}
	cache[raw] = out
	cacheMu.Unlock()
	return out
}

func normalize(raw string) string {
	sym := strings.ToUpper(strings.TrimSpace(raw))
	if sym == "" {
		return ""
	}

	for _, sigil := range []string{"$", "€", "£", "¥", "#"} {
		if strings.HasPrefix(sym, sigil) {
			sym = strings.TrimPrefix(sym, sigil)
			break
		}
	}

	sym = marketPrefix.ReplaceAllString(sym, "")
	sym = disallowed.ReplaceAllString(sym, "")
	sym = strings.ReplaceAll(sym, "/", ".")

	if shareClass.MatchString(sym) {
		sym = strings.Replace(sym, "-", ".", 1)
	}
	return sym
}
