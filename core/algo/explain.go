package algo

import (
	"fmt"

	"github.com/huangsam/fluentgate/schema"
)

// explanations is keyed by band, then by the component that cost the most points.
var explanations = map[schema.ConfidenceBand]map[penaltyKey]string{
	schema.BandHigh: {
		penaltyMidSentence: "Speech flows with few hesitations. The occasional mid-sentence pause (%.0f%% of words) is the main thing left to polish.",
		penaltyPauseVar:    "Speech flows confidently. Pause lengths vary a little (variance %.2f) but rarely break the rhythm.",
		penaltyRateVar:     "Speech flows confidently. Pace shifts slightly between stretches (variance %.2f).",
		penaltyRecovery:    "Speech flows confidently and hesitations are brief. Recovery after a pause could be quicker (%.0f%%).",
	},
	schema.BandMedium: {
		penaltyMidSentence: "Mid-sentence pauses are noticeable (%.0f%% of words). Practise completing phrases before pausing.",
		penaltyPauseVar:    "Pause lengths are uneven (variance %.2f), which suggests searching for words at times.",
		penaltyRateVar:     "Speaking pace speeds up and slows down (variance %.2f). Aim for a steadier rhythm.",
		penaltyRecovery:    "After hesitating it takes a while to get going again (recovery %.0f%%). Short bridging phrases help.",
	},
	schema.BandLow: {
		penaltyMidSentence: "Frequent mid-sentence pauses (%.0f%% of words) break up most utterances. Focus on short, complete phrases.",
		penaltyPauseVar:    "Pauses are long and irregular (variance %.2f), a sign that retrieval is still effortful.",
		penaltyRateVar:     "Pace is very uneven (variance %.2f). Bursts of speech alternate with long stalls.",
		penaltyRecovery:    "Hesitations often turn into longer stalls (recovery %.0f%%). Practise keeping going after a pause.",
	},
}

// explain picks the template for band and the largest penalty, filling in that metric.
// Ties go to the earlier component.
func explain(band schema.ConfidenceBand, m schema.ConfidenceMetrics) string {
	penalties := penaltiesFor(m)
	dominant := penaltyMidSentence
	for k := penaltyPauseVar; k <= penaltyRecovery; k++ {
		if penalties[k] > penalties[dominant] {
			dominant = k
		}
	}

	var value float64
	switch dominant {
	case penaltyMidSentence:
		value = m.MidSentencePauseRatio * 100
	case penaltyPauseVar:
		value = m.PauseVariance
	case penaltyRateVar:
		value = m.SpeechRateVariance
	case penaltyRecovery:
		value = m.RecoveryScore * 100
	}
	return fmt.Sprintf(explanations[band][dominant], value)
}
