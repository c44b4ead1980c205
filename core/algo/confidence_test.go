package algo

import (
	"testing"

	"github.com/huangsam/fluentgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timedWords builds a word sequence where each word lasts 250ms and gapsMs[i] is the
// silence before word i+1.
func timedWords(words []string, gapsMs []float64) []schema.WordTiming {
	out := make([]schema.WordTiming, len(words))
	t := 0.0
	for i, w := range words {
		if i > 0 {
			t += gapsMs[i-1] / 1000
		}
		out[i] = schema.WordTiming{Word: w, Start: t, End: t + 0.25}
		t += 0.25
	}
	return out
}

// evenlyPaced returns n words spoken every 400ms with a 100ms gap.
func evenlyPaced(n int) []schema.WordTiming {
	out := make([]schema.WordTiming, n)
	for i := range out {
		start := 0.4 * float64(i)
		out[i] = schema.WordTiming{Word: "word", Start: start, End: start + 0.3}
	}
	return out
}

func TestAnalyzeConfidence_DegenerateInput(t *testing.T) {
	tests := []struct {
		name  string
		words []schema.WordTiming
	}{
		{name: "nil", words: nil},
		{name: "empty", words: []schema.WordTiming{}},
		{name: "single word", words: []schema.WordTiming{{Word: "hello", Start: 0, End: 0.4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := AnalyzeConfidence(tt.words, 10)
			assert.Equal(t, 0.0, res.Score)
			assert.Equal(t, schema.BandLow, res.Band)
			assert.Equal(t, schema.ConfidenceMetrics{}, res.Metrics)
			assert.Equal(t, zeroResult(), res)
		})
	}
}

func TestAnalyzeConfidence_FluentSpeech(t *testing.T) {
	res := AnalyzeConfidence(evenlyPaced(50), 20)

	assert.Equal(t, schema.BandHigh, res.Band)
	assert.InDelta(t, 87.15, res.Score, 0.1)
	assert.Equal(t, 0.0, res.Metrics.MidSentencePauseRatio)
	assert.Equal(t, 0.0, res.Metrics.PauseVariance)
	assert.Equal(t, 0, res.Metrics.MidSentencePauseCount)
	assert.InDelta(t, 150.0, res.Metrics.SpeechRateWPM, 0.001)
	assert.InDelta(t, 0.5, res.Metrics.RecoveryScore, 0.0001)
	assert.False(t, res.Flags.FrequentMidSentencePauses)
	assert.False(t, res.Flags.UnevenPace)
	assert.NotEmpty(t, res.Explanation)
	assert.NotEqual(t, zeroResult(), res)
}

func TestAnalyzeConfidence_DurationFallback(t *testing.T) {
	words := evenlyPaced(10)
	res := AnalyzeConfidence(words, 0)
	// 10 words over the 3.9s until the last word ends.
	assert.InDelta(t, 10*60/3.9, res.Metrics.SpeechRateWPM, 0.001)
}

func TestAnalyzeConfidence_PauseClassification(t *testing.T) {
	tests := []struct {
		name          string
		gapsMs        []float64
		expectedMid   int
		expectedAvgMs float64
	}{
		{name: "short gaps are not pauses", gapsMs: []float64{100, 200, 250}, expectedMid: 0, expectedAvgMs: 0},
		{name: "pause below hesitation threshold", gapsMs: []float64{500, 100, 100}, expectedMid: 0, expectedAvgMs: 0},
		{name: "hesitation", gapsMs: []float64{900, 100, 100}, expectedMid: 1, expectedAvgMs: 900},
		{name: "boundary pause is not a hesitation", gapsMs: []float64{2000, 2500, 100}, expectedMid: 0, expectedAvgMs: 0},
		{name: "mixed", gapsMs: []float64{300, 800, 1200}, expectedMid: 2, expectedAvgMs: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := timedWords([]string{"a", "b", "c", "d"}, tt.gapsMs)
			res := AnalyzeConfidence(words, 0)
			assert.Equal(t, tt.expectedMid, res.Metrics.MidSentencePauseCount)
			assert.InDelta(t, float64(tt.expectedMid)/4, res.Metrics.MidSentencePauseRatio, 1e-9)
			assert.InDelta(t, tt.expectedAvgMs, res.Metrics.AvgMidSentencePauseMs, 1e-6)
		})
	}
}

func TestAnalyzeConfidence_BoundaryPausesInVariance(t *testing.T) {
	words := timedWords([]string{"a", "b", "c", "d"}, []float64{300, 2500, 100})
	res := AnalyzeConfidence(words, 0)

	// Pauses are 300ms and 2500ms: mean 1400, population stdev 1100.
	assert.InDelta(t, 1400, res.Metrics.AvgPauseMs, 1e-6)
	assert.InDelta(t, 1100.0/1400, res.Metrics.PauseVariance, 1e-6)
	assert.Equal(t, 0, res.Metrics.MidSentencePauseCount)
	assert.Equal(t, 0.0, res.Metrics.AvgMidSentencePauseMs)
}

func TestJoinUtterances(t *testing.T) {
	first := []schema.WordTiming{{Word: "so", Start: 120, End: 120.3}, {Word: "then", Start: 120.4, End: 120.8}}

	t.Run("rebased to zero", func(t *testing.T) {
		got := JoinUtterances([][]schema.WordTiming{first})
		require.Len(t, got, 2)
		assert.InDelta(t, 0, got[0].Start, 1e-9)
		assert.InDelta(t, 0.8, got[1].End, 1e-9)
		assert.Equal(t, "then", got[1].Word)
		assert.Equal(t, 120.0, first[0].Start, "input untouched")
	})

	t.Run("short gap kept", func(t *testing.T) {
		next := []schema.WordTiming{{Word: "we", Start: 121.3, End: 121.5}}
		got := JoinUtterances([][]schema.WordTiming{first, next})
		require.Len(t, got, 3)
		assert.InDelta(t, 1.3, got[2].Start, 1e-9)
	})

	t.Run("restarted clock", func(t *testing.T) {
		next := []schema.WordTiming{{Word: "we", Start: 0.5, End: 0.7}, {Word: "go", Start: 0.9, End: 1.1}}
		got := JoinUtterances([][]schema.WordTiming{first, next})
		require.Len(t, got, 4)
		assert.InDelta(t, 0.8+utteranceJoinSeconds, got[2].Start, 1e-9)
		assert.InDelta(t, 0.8+utteranceJoinSeconds+0.6, got[3].End, 1e-9)
	})

	t.Run("long silence capped", func(t *testing.T) {
		next := []schema.WordTiming{{Word: "we", Start: 180, End: 180.2}}
		got := JoinUtterances([][]schema.WordTiming{first, nil, next})
		require.Len(t, got, 3)
		assert.InDelta(t, 0.8+utteranceJoinSeconds, got[2].Start, 1e-9)
	})

	assert.Empty(t, JoinUtterances(nil))
}

func TestSpanSeconds(t *testing.T) {
	words := []schema.WordTiming{{Start: 1, End: 1.2}, {Start: 3, End: 4.5}}
	assert.InDelta(t, 3.5, SpanSeconds(words), 1e-9)
	assert.InDelta(t, 0.2, SpanSeconds(words[:1]), 1e-9)
	assert.Equal(t, 0.0, SpanSeconds(nil))
}

func TestRecoveryScore(t *testing.T) {
	tests := []struct {
		name     string
		words    []string
		gapsMs   []float64
		expected float64
	}{
		{
			name:     "no hesitations is neutral",
			words:    []string{"I", "went", "home"},
			gapsMs:   []float64{100, 100},
			expected: 0.5,
		},
		{
			name:     "filler bridges the hesitation",
			words:    []string{"I", "um", "went"},
			gapsMs:   []float64{1000, 100},
			expected: 2.5 / 3.5,
		},
		{
			name:     "quick resume after hesitation",
			words:    []string{"I", "went", "home"},
			gapsMs:   []float64{1000, 300},
			expected: 2.0 / 3.0,
		},
		{
			name:     "breakdown after hesitation",
			words:    []string{"I", "went", "home"},
			gapsMs:   []float64{1000, 900},
			expected: 1.0 / 3.0,
		},
		{
			name:     "neutral outcome is ignored",
			words:    []string{"I", "went", "home"},
			gapsMs:   []float64{1000, 600},
			expected: 0.5,
		},
		{
			name:     "filler with slow follow-up is not strong",
			words:    []string{"I", "uh", "went"},
			gapsMs:   []float64{1000, 550},
			expected: 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := timedWords(tt.words, tt.gapsMs)
			got := recoveryScore(words, interWordGaps(words))
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.Greater(t, got, 0.0)
			assert.Less(t, got, 1.0)
		})
	}
}

func TestBandForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected schema.ConfidenceBand
	}{
		{100, schema.BandHigh},
		{75, schema.BandHigh},
		{74.99, schema.BandMedium},
		{50, schema.BandMedium},
		{49.99, schema.BandLow},
		{49, schema.BandLow},
		{0, schema.BandLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, BandForScore(tt.score), "score %v", tt.score)
	}
}

func TestCompositeScore_Monotonic(t *testing.T) {
	base := schema.ConfidenceMetrics{
		MidSentencePauseRatio: 0.1,
		PauseVariance:         0.3,
		SpeechRateVariance:    0.2,
		RecoveryScore:         0.6,
	}
	baseScore := CompositeScore(base)

	worse := []func(m *schema.ConfidenceMetrics){
		func(m *schema.ConfidenceMetrics) { m.MidSentencePauseRatio = 0.2 },
		func(m *schema.ConfidenceMetrics) { m.PauseVariance = 0.8 },
		func(m *schema.ConfidenceMetrics) { m.SpeechRateVariance = 0.9 },
		func(m *schema.ConfidenceMetrics) { m.RecoveryScore = 0.3 },
	}
	for i, apply := range worse {
		m := base
		apply(&m)
		assert.Less(t, CompositeScore(m), baseScore, "case %d", i)
	}

	better := base
	better.RecoveryScore = 0.9
	assert.Greater(t, CompositeScore(better), baseScore)

	saturated := base
	saturated.PauseVariance = 5
	capped := base
	capped.PauseVariance = 1
	assert.Equal(t, CompositeScore(capped), CompositeScore(saturated))
}

func TestCompositeScore_Clamped(t *testing.T) {
	worst := schema.ConfidenceMetrics{MidSentencePauseRatio: 1, PauseVariance: 3, SpeechRateVariance: 3, RecoveryScore: 0}
	assert.Equal(t, 0.0, CompositeScore(worst))

	best := schema.ConfidenceMetrics{RecoveryScore: 1}
	assert.Equal(t, 100.0, CompositeScore(best))
}

func TestRelativeStdDev(t *testing.T) {
	assert.Equal(t, 0.0, relativeStdDev(nil))
	assert.Equal(t, 0.0, relativeStdDev([]float64{300}))
	assert.Equal(t, 0.0, relativeStdDev([]float64{0, 0}))
	assert.InDelta(t, 0.0, relativeStdDev([]float64{400, 400, 400}), 1e-9)
	assert.InDelta(t, 0.5, relativeStdDev([]float64{500, 1500}), 1e-9)
}

func TestRollingRates(t *testing.T) {
	assert.Empty(t, rollingRates(evenlyPaced(5), 0))

	rates := rollingRates(evenlyPaced(50), 20)
	require.Len(t, rates, 4)
	assert.InDelta(t, 150.0, rates[0], 1e-9)
	assert.InDelta(t, 150.0, rates[1], 1e-9)
	assert.InDelta(t, 150.0, rates[2], 1e-9)
	assert.InDelta(t, 144.0, rates[3], 1e-9)

	// A trailing sliver shorter than a second is dropped.
	assert.Len(t, rollingRates(evenlyPaced(5), 10.5), 2)
}

func TestExplain_DominantPenalty(t *testing.T) {
	m := schema.ConfidenceMetrics{MidSentencePauseRatio: 0.3, RecoveryScore: 0.9}
	assert.Contains(t, explain(schema.BandLow, m), "Frequent mid-sentence pauses (30% of words)")

	m = schema.ConfidenceMetrics{SpeechRateVariance: 0.8, RecoveryScore: 0.9}
	assert.Contains(t, explain(schema.BandMedium, m), "variance 0.80")

	m = schema.ConfidenceMetrics{RecoveryScore: 0.5}
	assert.Contains(t, explain(schema.BandHigh, m), "Recovery after a pause could be quicker (50%)")
}
