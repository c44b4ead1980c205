// Package core has the fluency services that sit between the store and the pure algorithms:
// the session summarizer and the single profile write path.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/huangsam/fluentgate/core/algo"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

// maintenanceDrill is assigned when no stored exercise matches any weakness.
var maintenanceDrill = schema.DrillEntry{
	Weakness:     schema.WeaknessNone,
	ExerciseID:   "maintenance-default",
	Title:        "Keep the streak going",
	Instructions: "Hold a five minute conversation on a topic of your choice without stopping.",
}

// SummarizerDeps are the collaborators of a Summarizer.
type SummarizerDeps struct {
	Speech    contract.SpeechStore
	Summaries contract.SummaryStore
	Exercises contract.ExerciseStore
	Profiles  contract.ProfileStore
	Writer    contract.ProfileWriter
}

// Summarizer turns the recorded speech of an ended session into one summary per participant.
type Summarizer struct {
	deps        SummarizerDeps
	defaultTier schema.Tier
	logger      *slog.Logger

	// Overridable for tests.
	now  func() time.Time
	pick func(n int) int
}

var _ contract.SessionSummarizer = &Summarizer{} // Compile-time check

// NewSummarizer creates a Summarizer. Users without a profile are assumed to be at defaultTier.
func NewSummarizer(deps SummarizerDeps, defaultTier schema.Tier, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	if !defaultTier.Valid() {
		defaultTier = schema.TierA2
	}
	return &Summarizer{
		deps:        deps,
		defaultTier: defaultTier,
		logger:      logger.With("component", "summarizer"),
		now:         time.Now,
		pick:        rand.IntN,
	}
}

// SummarizeSession writes a summary for every participant of s and hands each result to the profile writer.
// Summaries are upserted, so summarizing the same session twice converges on one row per participant.
func (z *Summarizer) SummarizeSession(ctx context.Context, s schema.Session) error {
	var errs []error
	for _, userID := range s.Participants() {
		if err := z.summarizeParticipant(ctx, s, userID); err != nil {
			errs = append(errs, fmt.Errorf("participant %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

func (z *Summarizer) summarizeParticipant(ctx context.Context, s schema.Session, userID string) error {
	logger := z.logger.With("session_id", s.ID, "user_id", userID)

	metrics, err := z.deps.Speech.GetMetrics(ctx, s.ID, userID)
	if errors.Is(err, contract.ErrNotFound) {
		metrics = schema.SpeechMetrics{SessionID: s.ID, UserID: userID}
	} else if err != nil {
		return err
	}
	segments, err := z.deps.Speech.ListSegments(ctx, s.ID, userID)
	if err != nil {
		return err
	}

	words, transcript := joinSegments(segments)
	conf := algo.AnalyzeConfidence(words, algo.SpanSeconds(words))
	score := algo.ScoreSession(metrics, conf)
	weaknesses := algo.DetectWeaknesses(score, conf.Band, metrics.WordCount)

	summary := schema.SessionSummary{
		SessionID:             s.ID,
		UserID:                userID,
		ConfidenceScore:       conf.Score,
		ConfidenceBand:        conf.Band,
		FluencyScore:          score.Fluency,
		AvgMidSentencePauseMs: conf.Metrics.AvgMidSentencePauseMs,
		Weaknesses:            weaknesses,
		Drills:                z.selectDrills(ctx, weaknesses, score.Silent),
		UpdatedAt:             z.now().UTC(),
	}
	if err := z.deps.Summaries.UpsertSummary(ctx, summary); err != nil {
		return err
	}
	logger.Info("session summarized", "fluency", score.Fluency, "band", conf.Band, "weaknesses", weaknesses)

	if z.deps.Writer == nil {
		return nil
	}
	outcome := z.deps.Writer.Update(ctx, schema.ProfileUpdate{
		UserID:                userID,
		RawTier:               algo.EstimateTier(score.Fluency),
		RawScore:              score.Fluency,
		ConfidenceScore:       conf.Score,
		ConfidenceBand:        conf.Band,
		ConfidenceExplanation: conf.Explanation,
		Metrics:               conf.Metrics,
		WordCount:             metrics.WordCount,
		LexicalBlockers:       algo.DetectAll(transcript, schema.TriggerTiersAbove(z.currentTier(ctx, userID))),
		Modality:              schema.LiveModality,
		SessionRef:            s.ID,
	})
	if !outcome.Applied {
		logger.Debug("profile not updated", "reason", outcome.Reason)
	}
	return nil
}

// selectDrills picks one random exercise per weakness. A silent session gets a single drill.
func (z *Summarizer) selectDrills(ctx context.Context, weaknesses []schema.WeaknessTag, silent bool) []schema.DrillEntry {
	drills := []schema.DrillEntry{}
	for _, tag := range weaknesses {
		if d, ok := z.randomDrill(ctx, tag); ok {
			drills = append(drills, d)
			if silent {
				break
			}
		}
	}
	if len(drills) > 0 {
		return drills
	}
	if d, ok := z.randomDrill(ctx, schema.WeaknessNone); ok {
		return []schema.DrillEntry{d}
	}
	return []schema.DrillEntry{maintenanceDrill}
}

func (z *Summarizer) randomDrill(ctx context.Context, tag schema.WeaknessTag) (schema.DrillEntry, bool) {
	if z.deps.Exercises == nil {
		return schema.DrillEntry{}, false
	}
	exercises, err := z.deps.Exercises.ListExercises(ctx, tag)
	if err != nil {
		z.logger.Error("failed to list exercises", "weakness", tag, "error", err)
		return schema.DrillEntry{}, false
	}
	if len(exercises) == 0 {
		return schema.DrillEntry{}, false
	}
	e := exercises[z.pick(len(exercises))]
	return schema.DrillEntry{Weakness: tag, ExerciseID: e.ID, Title: e.Title, Instructions: e.Instructions}, true
}

func (z *Summarizer) currentTier(ctx context.Context, userID string) schema.Tier {
	if z.deps.Profiles == nil {
		return z.defaultTier
	}
	p, err := z.deps.Profiles.GetProfile(ctx, userID)
	if err != nil || !p.Tier.Valid() {
		return z.defaultTier
	}
	return p.Tier
}

// joinSegments puts segment words in capture order on one timeline along with the transcript text.
// Segment timestamps are relative to their transcription stream, which starts late and restarts
// on reconnects, so they are rebased before analysis.
func joinSegments(segments []schema.TranscriptSegment) ([]schema.WordTiming, string) {
	utterances := make([][]schema.WordTiming, 0, len(segments))
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		utterances = append(utterances, seg.Words)
		if seg.Text != "" {
			texts = append(texts, seg.Text)
		}
	}
	return algo.JoinUtterances(utterances), strings.Join(texts, " ")
}
