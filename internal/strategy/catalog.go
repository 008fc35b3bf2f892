package strategy

import (
	"github.com/jonathan/essay-refiner/internal/diagnosis"
	"github.com/jonathan/essay-refiner/internal/types"
)

// DefaultLibrary returns the built-in strategy catalog for the v1 rubric.
func DefaultLibrary() *Library {
	return NewLibrary([]Strategy{
		{
			ID:         RemovePerformativeLanguage,
			Categories: []string{"authenticity"},
			Tier:       types.RiskSafe,
			Priority:   90,
			Directive: types.Directive{
				Goal:        "Replace claims written to impress with plain statements of what happened",
				Focus:       "sentences that assert a virtue instead of showing it",
				Constraints: []string{"keep every fact from the profile", "do not add achievements"},
				Avoid:       []string{"passion", "journey", "make a difference"},
			},
		},
		{
			ID:          AddNamedIndividual,
			Categories:  []string{"specificity", "authenticity"},
			SatisfiedBy: []string{diagnosis.FlagNamedIndividual},
			Tier:        types.RiskSafe,
			Priority:    88,
			Directive: types.Directive{
				Goal:        "Name one real person from the profile's relationships with first name and surname",
				Focus:       "the moment where another person changed what the writer did",
				Constraints: []string{"only use people listed in the profile"},
			},
		},
		{
			ID:         DeepenReflection,
			Categories: []string{"reflection"},
			Tier:       types.RiskSafe,
			Priority:   85,
			Directive: types.Directive{
				Goal:        "Turn the closing lesson into an insight the writer could not have had before the events",
				Focus:       "the final paragraph",
				Constraints: []string{"one idea, stated concretely"},
				Avoid:       []string{"I learned that", "taught me the value of"},
			},
		},
		{
			ID:          AddQuantifiedDetail,
			Categories:  []string{"specificity"},
			SatisfiedBy: []string{diagnosis.FlagQuantifiedMetric},
			Tier:        types.RiskSafe,
			Priority:    80,
			Directive: types.Directive{
				Goal:        "Anchor one claim with a number taken from the profile's measurable impact",
				Focus:       "the sentence describing the result",
				Constraints: []string{"numbers must come from the profile"},
			},
		},
		{
			ID:         SurfaceDoubt,
			Categories: []string{"vulnerability"},
			Tier:       types.RiskModerate,
			Priority:   80,
			Directive: types.Directive{
				Goal:  "Show a moment where the writer did not know whether they would succeed",
				Focus: "the challenge listed in the profile",
				Avoid: []string{"resolving the doubt in the same sentence"},
			},
		},
		{
			ID:         PlainVoicePass,
			Categories: []string{"voice", "authenticity"},
			Tier:       types.RiskSafe,
			Priority:   75,
			Directive: types.Directive{
				Goal:        "Rewrite in the register the writer would use speaking to a friend",
				Focus:       "vocabulary and sentence rhythm",
				Constraints: []string{"keep structure and facts unchanged"},
			},
		},
		{
			ID:          AddSensoryDetail,
			Categories:  []string{"specificity", "craft"},
			SatisfiedBy: []string{diagnosis.FlagSensoryDetail},
			Tier:        types.RiskSafe,
			Priority:    70,
			Directive: types.Directive{
				Goal:  "Add one physical detail of the setting at the essay's most important moment",
				Focus: "the scene with the highest stakes",
			},
		},
		{
			ID:          AddDialogue,
			Categories:  []string{"narrative_arc", "voice"},
			SatisfiedBy: []string{diagnosis.FlagQuotedDialogue},
			Tier:        types.RiskModerate,
			Priority:    70,
			Directive: types.Directive{
				Goal:        "Dramatize one exchange as short quoted dialogue",
				Focus:       "the turning point",
				Constraints: []string{"at most two lines of dialogue", "speakers must exist in the profile"},
			},
		},
		{
			ID:         TightenPacing,
			Categories: []string{"craft"},
			Tier:       types.RiskSafe,
			Priority:   68,
			Directive: types.Directive{
				Goal:        "Cut summary sentences so scenes carry the essay",
				Focus:       "transitions and restated points",
				Constraints: []string{"do not drop any profile fact"},
			},
		},
		{
			ID:         ReorderForTurn,
			Categories: []string{"narrative_arc"},
			Tier:       types.RiskModerate,
			Priority:   65,
			Directive: types.Directive{
				Goal:  "Move the moment of change later so the essay builds toward it",
				Focus: "paragraph order",
			},
		},
		{
			ID:         NameTheCost,
			Categories: []string{"vulnerability", "reflection"},
			Tier:       types.RiskModerate,
			Priority:   60,
			Directive: types.Directive{
				Goal:  "State what the experience cost the writer",
				Focus: "time, relationships or certainty given up",
			},
		},
		{
			ID:          NonlinearRestructure,
			Categories:  []string{"narrative_arc", "craft"},
			SatisfiedBy: []string{diagnosis.FlagNonlinearTime},
			Tier:        types.RiskBold,
			Priority:    55,
			Directive: types.Directive{
				Goal:        "Open in the middle of the key scene and return to the beginning later",
				Focus:       "overall chronology",
				Constraints: []string{"time shifts must be signposted"},
			},
		},
		{
			ID:         ReframeOpening,
			Categories: []string{"narrative_arc", "voice"},
			Tier:       types.RiskBold,
			Priority:   50,
			Directive: types.Directive{
				Goal:  "Replace the opening with an image or line only this writer could have written",
				Focus: "first two sentences",
				Avoid: []string{"quotations from famous people", "dictionary definitions"},
			},
		},
	})
}
