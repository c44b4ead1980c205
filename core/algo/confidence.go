// Package algo has the pure scoring algorithms: timing-only confidence analysis,
// lexical ceiling detection and promotion gate evaluation.
package algo

import (
	"math"

	"github.com/huangsam/fluentgate/schema"
)

// Timing thresholds in milliseconds.
const (
	pauseThresholdMs     = 250.0  // a gap above this is a pause
	midSentenceMinMs     = 700.0  // a pause above this is a hesitation
	boundaryPauseMs      = 2000.0 // pauses at or above this are deliberate boundaries
	strongRecoveryGapMs  = 500.0  // filler followed by a gap below this bridges the hesitation
	normalRecoveryGapMs  = 400.0  // any word followed by a gap below this resumes fluency
	breakdownGapMs       = 800.0  // a word followed by a gap above this stalls again
	strongRecoveryWeight = 1.5
)

// Rolling speech-rate window in seconds.
const (
	rateWindowSeconds = 10.0
	rateStepSeconds   = 5.0
	minWindowSeconds  = 1.0
)

// Composite score weights.
const (
	wMidSentence  = 35.0
	wPauseVar     = 20.0
	wRateVar      = 20.0
	wRecovery     = 25.0
	midRatioScale = 0.3 // ratio at which the mid-sentence penalty saturates
)

// Band cut-offs.
const (
	highBandMin   = 75.0
	mediumBandMin = 50.0
)

// Flag thresholds.
const (
	flagMidRatio    = 0.1
	flagPauseVar    = 0.6
	flagRateVar     = 0.4
	flagRecoveryMin = 0.5
)

const zeroExplanation = "Not enough timed speech to judge confidence."

// AnalyzeConfidence derives a confidence score purely from word timings.
// Word identity is only consulted for filler detection inside the recovery heuristic,
// so transcription errors do not move the primary score.
// Fewer than two words returns the zero sentinel.
func AnalyzeConfidence(words []schema.WordTiming, totalDurationSeconds float64) schema.ConfidenceResult {
	if len(words) < 2 {
		return zeroResult()
	}

	gaps := interWordGaps(words)

	// Boundary pauses count toward the pause average and variance but never as hesitations.
	var pauses, midPauses []float64
	for _, g := range gaps {
		if g <= pauseThresholdMs {
			continue
		}
		pauses = append(pauses, g)
		if g > midSentenceMinMs && g < boundaryPauseMs {
			midPauses = append(midPauses, g)
		}
	}

	duration := totalDurationSeconds
	if duration <= 0 {
		duration = words[len(words)-1].End
	}

	m := schema.ConfidenceMetrics{
		AvgPauseMs:            mean(pauses),
		MidSentencePauseRatio: float64(len(midPauses)) / float64(len(words)),
		PauseVariance:         relativeStdDev(pauses),
		SpeechRateWPM:         overallRate(len(words), duration),
		SpeechRateVariance:    relativeStdDev(rollingRates(words, duration)),
		RecoveryScore:         recoveryScore(words, gaps),
		MidSentencePauseCount: len(midPauses),
		AvgMidSentencePauseMs: mean(midPauses),
	}

	score := CompositeScore(m)
	band := BandForScore(score)
	return schema.ConfidenceResult{
		Score:       score,
		Band:        band,
		Explanation: explain(band, m),
		Metrics:     m,
		Flags: schema.HesitationFlags{
			FrequentMidSentencePauses: m.MidSentencePauseRatio > flagMidRatio,
			IrregularPauses:           m.PauseVariance > flagPauseVar,
			UnevenPace:                m.SpeechRateVariance > flagRateVar,
			WeakRecovery:              m.RecoveryScore < flagRecoveryMin,
		},
	}
}

// CompositeScore combines the timing metrics into a 0-100 score.
// It is non-increasing in the ratio and both variances and non-decreasing in recovery.
func CompositeScore(m schema.ConfidenceMetrics) float64 {
	penalties := penaltiesFor(m)
	score := 100.0
	for _, p := range penalties {
		score -= p
	}
	return clamp(score, 0, 100)
}

// BandForScore maps a composite score onto its confidence band.
func BandForScore(score float64) schema.ConfidenceBand {
	switch {
	case score >= highBandMin:
		return schema.BandHigh
	case score >= mediumBandMin:
		return schema.BandMedium
	default:
		return schema.BandLow
	}
}

func zeroResult() schema.ConfidenceResult {
	return schema.ConfidenceResult{
		Score:       0,
		Band:        schema.BandLow,
		Explanation: zeroExplanation,
	}
}

// utteranceJoinSeconds is the silence placed between utterances whose clocks restart or jump.
// It is a boundary pause, so a joint never reads as a hesitation.
const utteranceJoinSeconds = 2.5

// JoinUtterances lays separately timed utterances end to end on one timeline starting at 0.
// Timings inside an utterance are kept. The gap to the next utterance is kept when it is
// shorter than a boundary pause; a gap that runs backwards, as when a transcription stream
// restarts its clock, or that spans a boundary becomes a fixed boundary pause.
func JoinUtterances(utterances [][]schema.WordTiming) []schema.WordTiming {
	var out []schema.WordTiming
	var prevEnd float64
	for _, u := range utterances {
		if len(u) == 0 {
			continue
		}
		offset := -u[0].Start
		if len(out) > 0 {
			gap := u[0].Start - prevEnd
			if gap < 0 || gap*1000 >= boundaryPauseMs {
				gap = utteranceJoinSeconds
			}
			offset = out[len(out)-1].End + gap - u[0].Start
		}
		for _, w := range u {
			w.Start += offset
			w.End += offset
			out = append(out, w)
		}
		prevEnd = u[len(u)-1].End
	}
	return out
}

// SpanSeconds is the time from the start of the first word to the end of the last.
func SpanSeconds(words []schema.WordTiming) float64 {
	if len(words) == 0 {
		return 0
	}
	return math.Max(0, words[len(words)-1].End-words[0].Start)
}

// penaltyKey names the component a penalty came from.
type penaltyKey int

const (
	penaltyMidSentence penaltyKey = iota
	penaltyPauseVar
	penaltyRateVar
	penaltyRecovery
)

func penaltiesFor(m schema.ConfidenceMetrics) [4]float64 {
	return [4]float64{
		penaltyMidSentence: wMidSentence * math.Min(m.MidSentencePauseRatio/midRatioScale, 1),
		penaltyPauseVar:    wPauseVar * math.Min(m.PauseVariance, 1),
		penaltyRateVar:     wRateVar * math.Min(m.SpeechRateVariance, 1),
		penaltyRecovery:    wRecovery * (1 - m.RecoveryScore),
	}
}

// interWordGaps returns the silence before each word after the first, in milliseconds.
// Overlapping timestamps yield a zero gap.
func interWordGaps(words []schema.WordTiming) []float64 {
	gaps := make([]float64, len(words)-1)
	for i := 1; i < len(words); i++ {
		gaps[i-1] = math.Max(0, (words[i].Start-words[i-1].End)*1000)
	}
	return gaps
}

// rollingRates slides a 10s window every 5s and returns words-per-minute per window.
// Trailing windows shorter than a second are dropped.
func rollingRates(words []schema.WordTiming, duration float64) []float64 {
	var rates []float64
	for start := 0.0; start < duration; start += rateStepSeconds {
		end := math.Min(start+rateWindowSeconds, duration)
		span := end - start
		if span < minWindowSeconds {
			break
		}
		count := 0
		for _, w := range words {
			if w.Start >= start && w.Start < end {
				count++
			}
		}
		rates = append(rates, float64(count)*60/span)
	}
	return rates
}

func overallRate(wordCount int, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(wordCount) * 60 / duration
}

// recoveryScore classifies what follows every hesitation and returns a
// Laplace-smoothed recovery ratio, strictly inside (0,1).
func recoveryScore(words []schema.WordTiming, gaps []float64) float64 {
	var recoveries, breakdowns float64
	// gaps[i-1] precedes words[i]; gaps[i] follows it.
	for i := 1; i < len(words)-1; i++ {
		if gaps[i-1] <= midSentenceMinMs {
			continue
		}
		following := gaps[i]
		switch {
		case schema.IsFiller(words[i].Word) && following < strongRecoveryGapMs:
			recoveries += strongRecoveryWeight
		case following < normalRecoveryGapMs:
			recoveries++
		case following > breakdownGapMs:
			breakdowns++
		}
	}
	return (recoveries + 1) / (recoveries + breakdowns + 2)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// relativeStdDev is the population standard deviation divided by the mean.
// It is 0 for fewer than two values or a zero mean.
func relativeStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	if mu == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return math.Sqrt(ss/float64(len(xs))) / mu
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
