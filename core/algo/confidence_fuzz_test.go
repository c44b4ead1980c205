package algo

import (
	"math"
	"testing"

	"github.com/huangsam/fluentgate/schema"
)

// FuzzAnalyzeConfidence drives the analyzer with byte-encoded gaps and checks its bounds.
func FuzzAnalyzeConfidence(f *testing.F) {
	f.Add([]byte{5, 40, 60, 5, 5}, uint8(3))
	f.Add([]byte{}, uint8(0))
	f.Add([]byte{255, 0, 255, 0, 36, 36, 36}, uint8(2))

	f.Fuzz(func(t *testing.T, gaps []byte, fillerEvery uint8) {
		if len(gaps) > 200 {
			gaps = gaps[:200]
		}
		words := make([]schema.WordTiming, 0, len(gaps)+1)
		at := 0.0
		for i := 0; i <= len(gaps); i++ {
			if i > 0 {
				at += float64(gaps[i-1]) * 20 / 1000
			}
			w := "word"
			if fillerEvery > 0 && i%int(fillerEvery) == 0 {
				w = "um"
			}
			words = append(words, schema.WordTiming{Word: w, Start: at, End: at + 0.25})
			at += 0.25
		}

		res := AnalyzeConfidence(words, 0)
		if res.Score < 0 || res.Score > 100 || math.IsNaN(res.Score) {
			t.Fatalf("score out of range: %v", res.Score)
		}
		if len(words) >= 2 && (res.Metrics.RecoveryScore <= 0 || res.Metrics.RecoveryScore >= 1) {
			t.Fatalf("recovery out of range: %v", res.Metrics.RecoveryScore)
		}
		if res.Band != BandForScore(res.Score) {
			t.Fatalf("band %s does not match score %v", res.Band, res.Score)
		}
	})
}

// FuzzCompositeScore checks the clamp over arbitrary finite metric values.
func FuzzCompositeScore(f *testing.F) {
	f.Add(0.0, 0.0, 0.0, 0.5)
	f.Add(1.0, 3.0, 2.0, 0.01)
	f.Add(0.05, 0.2, 0.1, 0.99)

	f.Fuzz(func(t *testing.T, ratio, pv, srv, rec float64) {
		for _, v := range []float64{ratio, pv, srv} {
			if math.IsNaN(v) || v < 0 || v > 10 {
				t.Skip()
			}
		}
		if math.IsNaN(rec) || rec < 0 || rec > 1 {
			t.Skip()
		}
		score := CompositeScore(schema.ConfidenceMetrics{
			MidSentencePauseRatio: ratio,
			PauseVariance:         pv,
			SpeechRateVariance:    srv,
			RecoveryScore:         rec,
		})
		if score < 0 || score > 100 {
			t.Fatalf("score out of range: %v", score)
		}
	})
}
