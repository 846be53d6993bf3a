package ticker

import (
	"regexp"
	"slices"
	"strings"
)

// hintWords are the buy/sell action terms that make a comment worth sending
// to the extraction service when the keyword shortcut is on.
var hintWords = []string{
	"buy", "buys", "buying", "bought",
	"accumulate", "accumulating", "accumulated",
	"add", "adds", "adding", "added",
	"increase", "increases", "increasing", "increased",
	"entry", "enter", "entering", "entered",
	"long", "upside", "up", "higher", "high",
	"rise", "rises", "rising", "rose",
	"gain", "gains", "gaining", "gained",
	"climb", "climbs", "climbing", "climbed",
	"jump", "jumps", "jumping", "jumped",
	"pop", "pops", "popping", "popped",
	"rally", "rallies", "rallying", "rallied",
	"surge", "surges", "surging", "surged",
	"soar", "soars", "soaring", "soared",
	"recover", "recovers", "recovering", "recovered",
	"rebound", "rebounds", "rebounding", "rebounded",
	"bounce", "bounces", "bouncing", "bounced",
	"uptick", "upticks", "green",
	"bullish", "bull", "bulls",
	"outperform", "outperforms", "outperforming", "outperformed",
	"beat", "beats", "beating", "hold", "holdings",

	"sell", "sells", "selling", "sold",
	"dump", "dumps", "dumping", "dumped",
	"exit", "exits", "exiting", "exited",
	"reduce", "reduces", "reducing", "reduced",
	"trim", "trims", "trimming", "trimmed",
	"cut", "cuts", "cutting",
	"short", "shorts", "shorting", "shorted",
	"downside", "down", "lower", "low",
	"fall", "falls", "falling", "fell",
	"drop", "drops", "dropping", "dropped",
	"decline", "declines", "declining", "declined",
	"lose", "loses", "losing", "lost",
	"slip", "slips", "slipping", "slipped",
	"slide", "slides", "sliding", "slid",
	"plunge", "plunges", "plunging", "plunged",
	"crash", "crashes", "crashing", "crashed",
	"tank", "tanks", "tanking", "tanked",
	"selloff", "sell-off", "red",
	"bearish", "bear", "bears",
	"weaken", "weakens", "weakening", "weakened",
	"underperform", "underperforms", "underperforming", "underperformed",
	"miss", "misses", "missing", "missed",
}

var financeHints = compileHints(hintWords)

// compileHints builds a case-insensitive word-boundary alternation, longest
// words first. Hyphenated words also match with a space or no separator.
func compileHints(words []string) *regexp.Regexp {
	seen := make(map[string]bool, len(words))
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		cleaned = append(cleaned, w)
	}
	slices.SortStableFunc(cleaned, func(a, b string) int { return len(b) - len(a) })

	patterns := make([]string, 0, len(cleaned))
	for _, w := range cleaned {
		parts := strings.FieldsFunc(w, func(r rune) bool { return r == '-' })
		if len(parts) < 2 {
			patterns = append(patterns, regexp.QuoteMeta(w))
			continue
		}
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		patterns = append(patterns, strings.Join(parts, `[-\s]?`))
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(patterns, "|") + `)\b`)
}

// HasFinanceHint reports whether text contains any buy/sell action term.
func HasFinanceHint(text string) bool {
	return text != "" && financeHints.MatchString(text)
}
