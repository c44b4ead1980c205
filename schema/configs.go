package schema

import "slices"

// filler rate limits, in filler words per speaking minute.
var (
	maxFillerB1 = 8.0
	maxFillerB2 = 6.0
	maxFillerC1 = 4.0
	maxFillerC2 = 3.0
)

// PromotionGates holds the gate for entering each tier above A1.
// A tier's gate is evaluated only from the tier directly below it.
var PromotionGates = map[Tier]PromotionGate{
	TierA2: {
		Tier:                  TierA2,
		MinSpeakingSeconds:    600,
		MinWords:              500,
		MinSessions:           3,
		MinActiveDays:         2,
		MaxMidSentencePauseMs: 1800,
		RequiredBand:          BandLow,
		AllowLexicalCeiling:   true,
	},
	TierB1: {
		Tier:                  TierB1,
		MinSpeakingSeconds:    1800,
		MinWords:              2000,
		MinSessions:           6,
		MinActiveDays:         4,
		MaxMidSentencePauseMs: 1500,
		RequiredBand:          BandLow,
		MaxFillerRatePerMin:   &maxFillerB1,
		AllowLexicalCeiling:   true,
	},
	TierB2: {
		Tier:                  TierB2,
		MinSpeakingSeconds:    3600,
		MinWords:              5000,
		MinSessions:           10,
		MinActiveDays:         7,
		MaxMidSentencePauseMs: 1200,
		RequiredBand:          BandMedium,
		MaxFillerRatePerMin:   &maxFillerB2,
		AllowLexicalCeiling:   false,
		MinPracticeTypes:      2,
	},
	TierC1: {
		Tier:                  TierC1,
		MinSpeakingSeconds:    7200,
		MinWords:              10000,
		MinSessions:           20,
		MinActiveDays:         12,
		MaxMidSentencePauseMs: 1000,
		RequiredBand:          BandHigh,
		MaxFillerRatePerMin:   &maxFillerC1,
		AllowLexicalCeiling:   false,
		MinPracticeTypes:      2,
	},
	TierC2: {
		Tier:                  TierC2,
		MinSpeakingSeconds:    14400,
		MinWords:              20000,
		MinSessions:           35,
		MinActiveDays:         20,
		MaxMidSentencePauseMs: 800,
		RequiredBand:          BandHigh,
		MaxFillerRatePerMin:   &maxFillerC2,
		AllowLexicalCeiling:   false,
		MinPracticeTypes:      3,
	},
}

// LexicalTriggers holds the vocabulary-ceiling definition for each tier transition.
// The key is the tier the speaker is trying to reach.
var LexicalTriggers = map[Tier]LexicalTrigger{
	TierA2: {
		TargetTier: TierA2,
		Category:   "basic_adjectives",
		Lemmas:     []string{"good", "bad", "nice", "big", "small", "happy", "sad"},
		Upgrades:   []string{"great", "terrible", "pleasant", "huge", "tiny", "glad", "upset"},
		Rationale:  "Relying on a handful of basic adjectives keeps descriptions flat. Swap in more precise everyday words.",
	},
	TierB1: {
		TargetTier: TierB1,
		Category:   "simple_connectors",
		Lemmas:     []string{"and", "but", "so", "because", "then"},
		Upgrades:   []string{"however", "therefore", "although", "since", "afterwards", "as a result"},
		Rationale:  "Chaining ideas with only the simplest connectors limits how clearly you can relate them. Use contrast and cause-effect linkers.",
	},
	TierB2: {
		TargetTier: TierB2,
		Category:   "hedges_intensifiers",
		Lemmas:     []string{"very", "really", "maybe", "a lot", "kind of", "sort of"},
		Upgrades:   []string{"extremely", "genuinely", "perhaps", "considerably", "somewhat", "to some extent"},
		Rationale:  "Heavy use of generic hedges and intensifiers signals missing nuance. Choose intensifiers and hedges that fit the register.",
	},
	TierC1: {
		TargetTier: TierC1,
		Category:   "common_adjectives",
		Lemmas:     []string{"interesting", "important", "different", "difficult", "amazing", "great"},
		Upgrades:   []string{"compelling", "crucial", "distinct", "challenging", "remarkable", "outstanding"},
		Rationale:  "Advanced speakers vary evaluative language. Replace overused common adjectives with more specific alternatives.",
	},
}

// GateFor returns the promotion gate guarding entry into tier.
func GateFor(tier Tier) (PromotionGate, bool) {
	g, ok := PromotionGates[tier]
	return g, ok
}

// TriggerTiers returns the target tiers that have lexical triggers, in ascending order.
func TriggerTiers() []Tier {
	var out []Tier
	for _, t := range AllTiers {
		if _, ok := LexicalTriggers[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// TriggerTiersAbove returns the trigger target tiers strictly above current.
func TriggerTiersAbove(current Tier) []Tier {
	all := TriggerTiers()
	return slices.DeleteFunc(all, func(t Tier) bool { return t.Rank() <= current.Rank() })
}
