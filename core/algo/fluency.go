package algo

import (
	"math"

	"github.com/huangsam/fluentgate/schema"
)

// Session score weights.
const (
	weightConfidence = 0.30
	weightHesitation = 0.25
	weightSpeed      = 0.25
	weightGrammar    = 0.20
)

// Speed and summary thresholds.
const (
	TargetWPM           = 130.0
	MinSummaryWords     = 5  // below this the session is treated as silent
	PassiveWordCount    = 50 // below this the speaker is flagged as passive
	MaxWeaknesses       = 3
	hesitationThreshold = 60.0
	speedThreshold      = 60.0
	grammarThreshold    = 70.0
)

// SessionScore is the weighted fluency score of one speaker in one live session.
type SessionScore struct {
	Fluency    float64 `json:"fluency"`
	Confidence float64 `json:"confidence"`
	Hesitation float64 `json:"hesitation"`
	Speed      float64 `json:"speed"`
	Grammar    float64 `json:"grammar"`
	Silent     bool    `json:"silent"`
}

// ScoreSession combines the running speech counters with the confidence analysis.
// Fewer than MinSummaryWords words bypass the weighting and score 0.
func ScoreSession(m schema.SpeechMetrics, conf schema.ConfidenceResult) SessionScore {
	if m.WordCount < MinSummaryWords {
		return SessionScore{Silent: true}
	}
	s := SessionScore{
		Confidence: conf.Score,
		Hesitation: clamp(100-200*conf.Metrics.MidSentencePauseRatio, 0, 100),
		Speed:      clamp(100-math.Abs(m.SpeechRateWPM-TargetWPM)/TargetWPM*100, 0, 100),
		Grammar:    clamp(100-float64(m.GrammarErrors)/math.Max(float64(m.WordCount)/10, 1)*100, 0, 100),
	}
	s.Fluency = weightConfidence*s.Confidence +
		weightHesitation*s.Hesitation +
		weightSpeed*s.Speed +
		weightGrammar*s.Grammar
	return s
}

// DetectWeaknesses returns at most MaxWeaknesses tags in priority order.
// A silent session always yields PASSIVITY and SILENCE.
func DetectWeaknesses(s SessionScore, band schema.ConfidenceBand, wordCount int) []schema.WeaknessTag {
	if s.Silent {
		return []schema.WeaknessTag{schema.WeaknessPassivity, schema.WeaknessSilence}
	}
	hit := map[schema.WeaknessTag]bool{
		schema.WeaknessHesitation: s.Hesitation < hesitationThreshold,
		schema.WeaknessSpeed:      s.Speed < speedThreshold,
		schema.WeaknessGrammar:    s.Grammar < grammarThreshold,
		schema.WeaknessConfidence: band == schema.BandLow,
		schema.WeaknessPassivity:  wordCount < PassiveWordCount,
	}
	out := []schema.WeaknessTag{}
	for _, tag := range schema.WeaknessPriority {
		if hit[tag] && len(out) < MaxWeaknesses {
			out = append(out, tag)
		}
	}
	return out
}

// EstimateTier maps a session fluency score onto the tier a live session would claim.
// The estimate is only ever recorded as the preliminary tier of an audit record.
func EstimateTier(fluency float64) schema.Tier {
	switch {
	case fluency >= 85:
		return schema.TierC2
	case fluency >= 70:
		return schema.TierC1
	case fluency >= 55:
		return schema.TierB2
	case fluency >= 40:
		return schema.TierB1
	case fluency >= 20:
		return schema.TierA2
	default:
		return schema.TierA1
	}
}

// SegmentDelta measures one final transcript segment for the running speech counters.
// Hesitations are the mid-sentence pauses inside the segment.
func SegmentDelta(words []schema.WordTiming) schema.SpeechDelta {
	d := schema.SpeechDelta{Words: len(words)}
	if len(words) == 0 {
		return d
	}
	for _, w := range words {
		if schema.IsFiller(w.Word) {
			d.Fillers++
		}
	}
	if len(words) > 1 {
		for _, gap := range interWordGaps(words) {
			if gap > midSentenceMinMs && gap < boundaryPauseMs {
				d.Hesitations++
			}
		}
	}
	d.SpeakingSeconds = math.Max(0, words[len(words)-1].End-words[0].Start)
	return d
}
