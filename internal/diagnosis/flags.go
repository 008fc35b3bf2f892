package diagnosis

import (
	"regexp"
	"sort"
	"strings"
)

// Structural flags raised by the lightweight text detectors. The evaluator may
// raise the same flags; the two sources are merged.
const (
	FlagQuotedDialogue   = "has_quoted_dialogue"
	FlagNamedIndividual  = "has_named_individual"
	FlagQuantifiedMetric = "has_quantified_metric"
	FlagNonlinearTime    = "has_nonlinear_time"
	FlagSensoryDetail    = "has_sensory_detail"
	FlagReflection       = "has_reflection"
)

var (
	quotedDialoguePattern = regexp.MustCompile(`["“][^"“”]{3,}[,.!?]["”]`)
	fullNamePattern       = regexp.MustCompile(`\b([A-Z][a-z]+)\s+([A-Z][a-z]{1,})\b`)
	titledNamePattern     = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Coach|Professor)\.?\s+[A-Z][a-z]+`)
	digitPattern          = regexp.MustCompile(`\d`)
	numberWordPattern     = regexp.MustCompile(`(?i)\b(?:hundred|thousand|million|dozen|percent)s?\b`)
	nonlinearTimePattern  = regexp.MustCompile(`(?i)\b(?:years? later|months? later|looking back|back then|flash(?:ing)? forward|years? (?:ago|earlier|before)|i remember|now,? (?:years|months)|earlier that|to this day|even now)\b`)
	sensoryPattern        = regexp.MustCompile(`(?i)\b(?:smell(?:ed)?|scent|taste[ds]?|hum(?:med|ming)?|buzz(?:ed|ing)?|cold|warm|rough|sticky|echo(?:ed)?|glare|flicker(?:ed|ing)?|creak(?:ed)?)\b`)
	reflectionPattern     = regexp.MustCompile(`(?i)\b(?:i realized|i learned|taught me|i understand now|now i (?:see|understand|know)|it occurred to me|i began to see)\b`)
)

// nameStopwords are capitalized words that commonly start sentences and are
// not the first half of a person's name.
var nameStopwords = map[string]bool{
	"The": true, "When": true, "After": true, "Before": true, "My": true,
	"Our": true, "That": true, "This": true, "Then": true, "But": true,
	"And": true, "In": true, "On": true, "At": true, "As": true, "If": true,
	"It": true, "We": true, "She": true, "He": true, "They": true, "I": true,
	"Every": true, "Each": true, "One": true, "By": true, "For": true,
	"High": true, "Middle": true, "New": true, "Saint": true, "North": true,
	"South": true, "East": true, "West": true,
}

// DetectFlags runs the structural pattern checks over a text.
func DetectFlags(text string) []string {
	var flags []string
	if quotedDialoguePattern.MatchString(text) {
		flags = append(flags, FlagQuotedDialogue)
	}
	if hasNamedIndividual(text) {
		flags = append(flags, FlagNamedIndividual)
	}
	if digitPattern.MatchString(text) || strings.Contains(text, "%") || numberWordPattern.MatchString(text) {
		flags = append(flags, FlagQuantifiedMetric)
	}
	if nonlinearTimePattern.MatchString(text) {
		flags = append(flags, FlagNonlinearTime)
	}
	if sensoryPattern.MatchString(text) {
		flags = append(flags, FlagSensoryDetail)
	}
	if reflectionPattern.MatchString(text) {
		flags = append(flags, FlagReflection)
	}
	sort.Strings(flags)
	return flags
}

// hasNamedIndividual looks for a person named with a surname or a title.
func hasNamedIndividual(text string) bool {
	if titledNamePattern.MatchString(text) {
		return true
	}
	for _, m := range fullNamePattern.FindAllStringSubmatch(text, -1) {
		if !nameStopwords[m[1]] && !nameStopwords[m[2]] {
			return true
		}
	}
	return false
}

// FlagSet is a lookup set of structural flags.
type FlagSet map[string]bool

// NewFlagSet merges flag lists into a set.
func NewFlagSet(lists ...[]string) FlagSet {
	set := make(FlagSet)
	for _, list := range lists {
		for _, f := range list {
			if f != "" {
				set[f] = true
			}
		}
	}
	return set
}

// Has reports whether flag is present.
func (s FlagSet) Has(flag string) bool {
	return s[flag]
}

// Sorted returns the flags in sorted order.
func (s FlagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
