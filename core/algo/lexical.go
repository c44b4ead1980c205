package algo

import (
	"regexp"
	"slices"
	"strings"

	"github.com/huangsam/fluentgate/schema"
)

// minLexicalMatches is the number of trigger hits at which a ceiling is reported.
const minLexicalMatches = 3

// triggerPatterns holds one compiled case-insensitive word-boundary alternation per target tier.
var triggerPatterns = compileTriggers(schema.LexicalTriggers)

func compileTriggers(triggers map[schema.Tier]schema.LexicalTrigger) map[schema.Tier]*regexp.Regexp {
	out := make(map[schema.Tier]*regexp.Regexp, len(triggers))
	for tier, trig := range triggers {
		lemmas := slices.Clone(trig.Lemmas)
		// Longer phrases first so "kind of" wins over a shorter overlapping lemma.
		slices.SortStableFunc(lemmas, func(a, b string) int { return len(b) - len(a) })
		quoted := make([]string, len(lemmas))
		for i, l := range lemmas {
			quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(l), " ", `\s+`)
		}
		out[tier] = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return out
}

// DetectLexicalCeiling checks transcript against the trigger list for targetTier.
// It returns nil when the tier has no trigger or fewer than three trigger words were used.
func DetectLexicalCeiling(transcript string, targetTier schema.Tier) *schema.LexicalDetection {
	trig, ok := schema.LexicalTriggers[targetTier]
	if !ok {
		return nil
	}
	matches := triggerPatterns[targetTier].FindAllString(transcript, -1)
	if len(matches) < minLexicalMatches {
		return nil
	}

	var matched []string
	for _, m := range matches {
		w := strings.Join(strings.Fields(strings.ToLower(m)), " ")
		if !slices.Contains(matched, w) {
			matched = append(matched, w)
		}
	}

	ceiling, ok := targetTier.Prev()
	if !ok {
		ceiling = targetTier
	}
	return &schema.LexicalDetection{
		Category:     trig.Category,
		MatchedWords: matched,
		Upgrades:     slices.Clone(trig.Upgrades),
		Rationale:    trig.Rationale,
		MatchCount:   len(matches),
		TargetTier:   targetTier,
		CeilingTier:  ceiling,
	}
}

// DetectAll runs DetectLexicalCeiling once per tier and collects every hit.
// Each tier is evaluated independently.
func DetectAll(transcript string, tiers []schema.Tier) []schema.LexicalDetection {
	var out []schema.LexicalDetection
	for _, t := range tiers {
		if d := DetectLexicalCeiling(transcript, t); d != nil {
			out = append(out, *d)
		}
	}
	return out
}
