package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huangsam/fluentgate/core/algo"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

// AnalyzeTranscript scores one transcript the way the summarizer scores a live participant,
// without touching the store. Lexical detection only looks at tiers above current.
func AnalyzeTranscript(t schema.Transcript, current schema.Tier) schema.TranscriptAnalysis {
	if !current.Valid() {
		current = schema.TierA2
	}
	text := t.Text
	if text == "" {
		parts := make([]string, len(t.Words))
		for i, w := range t.Words {
			parts[i] = w.Word
		}
		text = strings.Join(parts, " ")
	}

	delta := algo.SegmentDelta(t.Words)
	duration := t.DurationSeconds
	if duration <= 0 {
		duration = delta.SpeakingSeconds
	}
	metrics := schema.SpeechMetrics{
		UserID:          t.UserID,
		WordCount:       delta.Words,
		FillerCount:     delta.Fillers,
		HesitationCount: delta.Hesitations,
		SpeakingSeconds: duration,
	}
	if duration > 0 {
		metrics.SpeechRateWPM = float64(delta.Words) / duration * 60
	}

	conf := algo.AnalyzeConfidence(t.Words, duration)
	score := algo.ScoreSession(metrics, conf)
	return schema.TranscriptAnalysis{
		Source:          t.Source,
		WordCount:       delta.Words,
		CurrentTier:     current,
		FluencyScore:    score.Fluency,
		EstimatedTier:   algo.EstimateTier(score.Fluency),
		Silent:          score.Silent,
		Confidence:      conf,
		Weaknesses:      algo.DetectWeaknesses(score, conf.Band, delta.Words),
		LexicalBlockers: nonNilDetections(algo.DetectAll(text, schema.TriggerTiersAbove(current))),
	}
}

// UpdateFromAnalysis turns an offline analysis into the payload accepted by the profile write path.
func UpdateFromAnalysis(a schema.TranscriptAnalysis, userID string, modality schema.Modality, sessionRef string) schema.ProfileUpdate {
	return schema.ProfileUpdate{
		UserID:                userID,
		RawTier:               a.EstimatedTier,
		RawScore:              a.FluencyScore,
		ConfidenceScore:       a.Confidence.Score,
		ConfidenceBand:        a.Confidence.Band,
		ConfidenceExplanation: a.Confidence.Explanation,
		Metrics:               a.Confidence.Metrics,
		WordCount:             a.WordCount,
		LexicalBlockers:       a.LexicalBlockers,
		Modality:              modality,
		SessionRef:            sessionRef,
	}
}

// CurrentTier reads the stored tier of userID, falling back to defaultTier for unknown users.
func CurrentTier(ctx context.Context, profiles contract.ProfileStore, userID string, defaultTier schema.Tier) (schema.Tier, error) {
	p, err := profiles.GetProfile(ctx, userID)
	if errors.Is(err, contract.ErrNotFound) || (err == nil && !p.Tier.Valid()) {
		return defaultTier, nil
	}
	if err != nil {
		return "", err
	}
	return p.Tier, nil
}

// BuildPromotionReport evaluates the next promotion of userID against freshly aggregated practice.
// The demotion advisory is only computed on request and never changes the stored tier.
func BuildPromotionReport(
	ctx context.Context,
	profiles contract.ProfileStore,
	aggregator contract.MetricsAggregator,
	userID string,
	defaultTier schema.Tier,
	now time.Time,
	adviseDemotion bool,
) (schema.PromotionReport, error) {
	current, err := CurrentTier(ctx, profiles, userID, defaultTier)
	if err != nil {
		return schema.PromotionReport{}, err
	}
	metrics, err := aggregator.Aggregate(ctx, userID, now)
	if err != nil {
		return schema.PromotionReport{}, err
	}
	report := schema.PromotionReport{
		UserID:  userID,
		Metrics: metrics,
		Result:  algo.EvaluatePromotion(current, metrics),
	}
	if adviseDemotion {
		advice := algo.CheckDemotion(current, metrics.LastSessionDate, now)
		report.Demotion = &advice
	}
	return report, nil
}
