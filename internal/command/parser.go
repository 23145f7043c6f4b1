// Package command turns activated utterances into intents. Parsing is pure;
// executing an intent is the job of a ports.ActionExecutor.
package command

import (
	"net/url"
	"strings"

	"github.com/samber/lo"

	"nina/internal/domain"
)

// Phrase tables in priority order. Longer prefixes come first so that
// "search for cats" does not yield the query "for cats".
var (
	openPrefixes      = []string{"open ", "ouvre ", "va sur "}
	searchPrefixes    = []string{"search for ", "search ", "recherche ", "cherche "}
	passwordPhrases   = []string{"password", "mot de passe"}
	scrollDownPhrases = []string{"scroll down", "descendre", "descends"}
	scrollUpPhrases   = []string{"scroll up", "remonter", "remonte"}
	clearPhrases      = []string{"clear", "efface"}
)

// Parse derives the intent of a command. The first matching rule wins:
// open, search, password, scroll down, scroll up, clear, then unknown.
func Parse(text string) domain.Intent {
	original := clean(text)
	cmd := strings.ToLower(original)

	if arg, ok := afterPrefix(original, cmd, openPrefixes); ok {
		if arg == "" {
			return Unknown()
		}
		return OpenURL(arg)
	}
	if arg, ok := afterPrefix(original, cmd, searchPrefixes); ok {
		if arg == "" {
			return Unknown()
		}
		return domain.Intent{Kind: domain.IntentSearch, Query: arg}
	}
	switch {
	case containsAny(cmd, passwordPhrases):
		return domain.Intent{Kind: domain.IntentPasswordHint}
	case containsAny(cmd, scrollDownPhrases):
		return domain.Intent{Kind: domain.IntentScroll, Direction: domain.ScrollDown}
	case containsAny(cmd, scrollUpPhrases):
		return domain.Intent{Kind: domain.IntentScroll, Direction: domain.ScrollUp}
	case containsAny(cmd, clearPhrases):
		return domain.Intent{Kind: domain.IntentClearMemory}
	}
	return Unknown()
}

// OpenURL builds an open intent, adding https:// to bare host names.
func OpenURL(target string) domain.Intent {
	return domain.Intent{Kind: domain.IntentOpenURL, URL: NormalizeURL(target)}
}

// Unknown is the fallback intent.
func Unknown() domain.Intent {
	return domain.Intent{Kind: domain.IntentUnknown}
}

// NormalizeURL leaves explicit schemes untouched and prefixes everything else
// with https://. Spoken host names sometimes come back with spaces around
// the dots, so whitespace is removed.
func NormalizeURL(target string) string {
	target = strings.TrimSpace(target)
	if strings.Contains(target, "://") {
		return target
	}
	return "https://" + strings.Join(strings.Fields(target), "")
}

// SearchURL expands a search template containing one %s with the escaped
// query. Templates without a placeholder get the query appended.
func SearchURL(template, query string) string {
	escaped := url.QueryEscape(query)
	if strings.Contains(template, "%s") {
		return strings.Replace(template, "%s", escaped, 1)
	}
	return template + escaped
}

// afterPrefix matches prefixes against the lower-cased command and returns
// the argument cut from the original, so URLs and queries keep their case.
func afterPrefix(original, cmd string, prefixes []string) (string, bool) {
	prefix, ok := lo.Find(prefixes, func(p string) bool {
		return strings.HasPrefix(cmd+" ", p)
	})
	if !ok {
		return "", false
	}
	if len(cmd) < len(prefix) {
		return "", true
	}
	if len(original) >= len(prefix) && strings.EqualFold(original[:len(prefix)], prefix) {
		return strings.TrimSpace(original[len(prefix):]), true
	}
	return strings.TrimSpace(cmd[len(prefix):]), true
}

func containsAny(cmd string, phrases []string) bool {
	return lo.ContainsBy(phrases, func(p string) bool {
		return strings.Contains(cmd, p)
	})
}

// clean collapses whitespace and trims the punctuation providers put around
// the command, keeping inner dots so host names survive.
func clean(text string) string {
	return strings.Trim(strings.Join(strings.Fields(text), " "), " ,;:!?.")
}
