package oracle

import (
	"log/slog"
	"regexp"
)

// InjectionCheck holds the result of scanning essay text for instructions
// aimed at the oracle rather than a human reader.
type InjectionCheck struct {
	Suspicious bool
	Matches    []string
}

// injectionPatterns match phrasing that addresses the model directly. Bare
// keywords like "forget" or "you are" occur in ordinary essays, so only
// full instruction-shaped phrases count.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions?`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|text|rubric)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior)\s+instructions?`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s+prompt`),
	regexp.MustCompile(`(?i)(score|rate)\s+this\s+(essay\s+)?(a\s+)?10(\s*/\s*10)?\b`),
}

// CheckInjection scans text for instruction-shaped phrases. It never blocks:
// prompts already fence the essay, so a match is only worth a warning.
func CheckInjection(text string) InjectionCheck {
	var matches []string
	for _, p := range injectionPatterns {
		matches = append(matches, p.FindAllString(text, -1)...)
	}
	return InjectionCheck{Suspicious: len(matches) > 0, Matches: matches}
}

// LogInjectionWarning logs a warning when the check found anything.
func LogInjectionWarning(logger *slog.Logger, check InjectionCheck, source string) {
	if check.Suspicious {
		logger.Warn("essay text contains instructions aimed at the oracle", "source", source, "matches", check.Matches)
	}
}
