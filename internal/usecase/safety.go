package usecase

import (
	"strings"

	"nina/internal/command"
	"nina/internal/domain"
)

// MatchesSafety reports whether text contains the safeword or the
// safecommand, ignoring case. Empty phrases never match.
func MatchesSafety(text string, cfg domain.SafetyConfig) bool {
	return containsFold(text, cfg.Safeword) || containsFold(text, cfg.Safecommand)
}

func containsFold(text, phrase string) bool {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return false
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(phrase)) {
		return true
	}
	return command.ContainsPhrase(text, phrase)
}
