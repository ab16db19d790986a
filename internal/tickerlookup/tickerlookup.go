// Package tickerlookup provides the default implementation of the two
// external collaborators spec.md §6 describes as outside the core: a
// ticker lookup that maps free-form text to a ticker and a cleaned
// display name, and a company-name filter that strips corporate
// suffixes. The core only depends on the Resolver interface below; a
// real deployment can swap this out without touching the aggregator.
package tickerlookup

import (
	"regexp"
	"strings"
)

// Resolver parses a free-form research request into a ticker symbol and
// a cleaned company display name.
type Resolver interface {
	Resolve(text string) (symbol, companyName string, ok bool)
}

// known is a small fixture table standing in for the real ticker
// directory; spec.md explicitly scopes "ticker-name normalization
// tables" out of the core.
var known = map[string]string{
	"TESLA":             "TSLA",
	"APPLE":             "AAPL",
	"MICROSOFT":         "MSFT",
	"COCA-COLA":         "KO",
	"COCA COLA":         "KO",
	"THE COCA-COLA COMPANY": "KO",
	"AMAZON":            "AMZN",
	"GOOGLE":            "GOOGL",
	"ALPHABET":          "GOOGL",
	"NVIDIA":            "NVDA",
}

var suffixPattern = regexp.MustCompile(`(?i)\s*,?\s*\b(the|inc\.?|incorporated|corp\.?|corporation|co\.?|company|ltd\.?|limited|plc|llc)\b\.?\s*$`)

// cleanName repeatedly strips trailing corporate suffixes and a leading
// "The", e.g. "The Coca-Cola Company" -> "Coca-Cola".
func cleanName(name string) string {
	for {
		stripped := suffixPattern.ReplaceAllString(name, "")
		stripped = strings.TrimSpace(stripped)
		if len(stripped) > 4 && strings.EqualFold(stripped[:4], "the ") {
			stripped = strings.TrimSpace(stripped[4:])
		}
		if stripped == name || stripped == "" {
			break
		}
		name = stripped
	}
	return strings.TrimSpace(name)
}

var tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}(\.[A-Z])?\b`)

// Simple is the default Resolver: it looks for an explicit uppercase
// ticker token in the text, falling back to matching the text (minus a
// leading "Research" verb) against the known-company fixture.
type Simple struct{}

func NewSimple() Simple { return Simple{} }

func (Simple) Resolve(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "research ") {
		text = strings.TrimSpace(text[len("research "):])
	}

	// An explicit ticker token, e.g. "KO The Coca-Cola Company".
	words := strings.Fields(text)
	if len(words) > 0 {
		if sym := tickerPattern.FindString(words[0]); sym == words[0] && len(sym) <= 5 {
			rest := strings.TrimSpace(strings.Join(words[1:], " "))
			name := cleanName(rest)
			if name == "" {
				name = companyNameFor(sym)
			}
			return sym, name, true
		}
	}

	// Otherwise, match the whole phrase against the fixture.
	key := strings.ToUpper(cleanName(text))
	if sym, ok := known[key]; ok {
		return sym, cleanName(text), true
	}
	key = strings.ToUpper(text)
	if sym, ok := known[key]; ok {
		return sym, cleanName(text), true
	}
	return "", "", false
}

func companyNameFor(symbol string) string {
	for name, sym := range known {
		if sym == symbol {
			return strings.Title(strings.ToLower(name))
		}
	}
	return symbol
}
