package command

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalize lower-cases text, turns punctuation into spaces and collapses
// whitespace, so "Nina, open…" and "nina open" compare equal.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContainsPhrase reports whether the normalized phrase occurs anywhere in the
// normalized text. An empty phrase never matches.
func ContainsPhrase(text, phrase string) bool {
	phrase = Normalize(phrase)
	if phrase == "" {
		return false
	}
	return strings.Contains(Normalize(text), phrase)
}

// StripPhrase removes the first occurrence of phrase from text, keeping the
// rest of the text verbatim (dots in host names included).
func StripPhrase(text, phrase string) string {
	words := strings.Fields(Normalize(phrase))
	if len(words) == 0 {
		return strings.TrimSpace(text)
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(quoted, `[\s\p{P}]+`) + `[\s\p{P}]*`)
	if err != nil {
		return strings.TrimSpace(text)
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(strings.Replace(Normalize(text), Normalize(phrase), "", 1))
	}
	rest := text[:loc[0]] + " " + text[loc[1]:]
	return strings.Trim(strings.Join(strings.Fields(rest), " "), " ,;:!?")
}
