package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/fluentgate/core/algo"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

// MinProfileWords is the smallest word count accepted by the profile write path.
const MinProfileWords = 10

// Outcome reasons reported by ProfileUpdater.
const (
	ReasonInsufficientWords = "insufficient words"
	ReasonAggregationFailed = "aggregation failed"
	ReasonPersistenceFailed = "persistence failed"
)

// ProfileUpdaterDeps are the collaborators of a ProfileUpdater.
// Resolver, Lexical and Recorder are optional.
type ProfileUpdaterDeps struct {
	Profiles   contract.ProfileStore
	Aggregator contract.MetricsAggregator
	Resolver   contract.IdentityResolver
	Lexical    contract.LexicalStore
	Recorder   contract.PracticeRecorder
}

// ProfileUpdater is the single write path for fluency profiles.
// The caller's tier estimate is never stored; only the promotion gates move the tier.
type ProfileUpdater struct {
	deps         ProfileUpdaterDeps
	modelVersion string
	defaultTier  schema.Tier
	logger       *slog.Logger

	now   func() time.Time
	newID func() string
}

var _ contract.ProfileWriter = &ProfileUpdater{} // Compile-time check

// NewProfileUpdater creates a ProfileUpdater stamping every row with modelVersion.
func NewProfileUpdater(deps ProfileUpdaterDeps, modelVersion string, defaultTier schema.Tier, logger *slog.Logger) *ProfileUpdater {
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	if modelVersion == "" {
		modelVersion = contract.DefaultModelVersion
	}
	if !defaultTier.Valid() {
		defaultTier = schema.TierA2
	}
	return &ProfileUpdater{
		deps:         deps,
		modelVersion: modelVersion,
		defaultTier:  defaultTier,
		logger:       logger.With("component", "profile"),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Complete records a finished non-live practice and then applies its profile update.
// A recording failure is logged and does not block the update.
func (p *ProfileUpdater) Complete(ctx context.Context, c schema.PracticeCompletion) schema.UpdateOutcome {
	if p.deps.Recorder != nil {
		if c.Interactive != nil {
			if err := p.deps.Recorder.RecordInteractiveSession(ctx, *c.Interactive); err != nil {
				p.logger.Error("failed to record interactive session", "id", c.Interactive.ID, "error", err)
			}
		}
		if c.Drill != nil {
			if err := p.deps.Recorder.RecordDrillAttempt(ctx, *c.Drill); err != nil {
				p.logger.Error("failed to record drill attempt", "id", c.Drill.ID, "error", err)
			}
		}
	}
	return p.Update(ctx, c.Update)
}

// Update applies one normalized practice update. It never returns an error:
// skips and failures are logged and reported through the outcome.
func (p *ProfileUpdater) Update(ctx context.Context, u schema.ProfileUpdate) schema.UpdateOutcome {
	logger := p.logger.With("user_id", u.UserID, "modality", u.Modality, "session_ref", u.SessionRef)
	if u.WordCount < MinProfileWords {
		logger.Info("skipping profile update", "reason", ReasonInsufficientWords, "word_count", u.WordCount)
		return schema.UpdateOutcome{Reason: ReasonInsufficientWords}
	}
	now := p.now().UTC()

	userID := p.resolve(ctx, u.UserID, logger)
	logger = logger.With("resolved_user_id", userID)

	existing, err := p.deps.Profiles.GetProfile(ctx, userID)
	isNew := errors.Is(err, contract.ErrNotFound)
	if err != nil && !isNew {
		logger.Error("failed to read profile", "error", err)
		return schema.UpdateOutcome{Reason: ReasonPersistenceFailed}
	}
	current := existing.Tier
	if !current.Valid() {
		current = p.defaultTier
	}

	p.recordBlockers(ctx, userID, u, now, logger)

	aggregated, err := p.deps.Aggregator.Aggregate(ctx, userID, now)
	if err != nil {
		logger.Error("failed to aggregate practice", "error", err)
		return schema.UpdateOutcome{Reason: ReasonAggregationFailed}
	}

	result := algo.EvaluatePromotion(current, aggregated)
	final := current
	if result.Eligible && result.NextTier != nil {
		final = *result.NextTier
	}

	audit := schema.AuditRecord{
		ID:              p.newID(),
		SchemaVersion:   schema.AuditSchemaVersion,
		ModelVersion:    p.modelVersion,
		Timestamp:       now,
		Inputs:          u,
		ResolvedUserID:  userID,
		CurrentTier:     current,
		PreliminaryTier: u.RawTier,
		FinalTier:       final,
		Eligible:        result.Eligible,
		Gates:           result.Gates,
		Failures:        result.Failures,
		Transitions:     TierTransitions(u.RawTier, final, aggregated),
	}

	profile := existing
	if isNew {
		profile = schema.FluencyProfile{CreatedAt: now}
	}
	profile.UserID = userID
	profile.Tier = final
	profile.LastFluencyScore = u.RawScore
	profile.ConfidenceScore = u.ConfidenceScore
	profile.ConfidenceBand = u.ConfidenceBand
	profile.ConfidenceExplanation = u.ConfidenceExplanation
	profile.Metrics = u.Metrics
	profile.WordCount = u.WordCount
	profile.LexicalBlockers = nonNilDetections(u.LexicalBlockers)
	profile.SourceModality = u.Modality
	profile.SourceRef = u.SessionRef
	profile.ModelVersion = p.modelVersion
	profile.AuditTrail = appendAudit(profile.AuditTrail, audit)
	profile.GateFailures = result.Failures
	profile.Aggregated = &aggregated
	profile.AggregatedAt = &now
	profile.UpdatedAt = now

	if err := p.deps.Profiles.UpsertProfile(ctx, profile); err != nil {
		logger.Error("failed to upsert profile", "error", err)
		return schema.UpdateOutcome{Reason: ReasonPersistenceFailed, Result: &result}
	}
	logger.Info("profile updated", "current_tier", current, "final_tier", final,
		"preliminary_tier", u.RawTier, "eligible", result.Eligible, "failures", len(result.Failures))
	return schema.UpdateOutcome{Applied: true, Profile: &profile, Result: &result}
}

// resolve maps the caller identity to the canonical one, falling back to the caller identity on a miss.
func (p *ProfileUpdater) resolve(ctx context.Context, externalID string, logger *slog.Logger) string {
	if p.deps.Resolver == nil {
		return externalID
	}
	userID, err := p.deps.Resolver.ResolveUserID(ctx, externalID)
	if err != nil || userID == "" {
		logger.Warn("identity not resolved, using caller identity", "error", err)
		return externalID
	}
	return userID
}

func (p *ProfileUpdater) recordBlockers(ctx context.Context, userID string, u schema.ProfileUpdate, now time.Time, logger *slog.Logger) {
	if p.deps.Lexical == nil || len(u.LexicalBlockers) == 0 {
		return
	}
	detections := make([]schema.LexicalDetection, len(u.LexicalBlockers))
	for i, d := range u.LexicalBlockers {
		if d.DetectedAt.IsZero() {
			d.DetectedAt = now
		}
		detections[i] = d
	}
	if err := p.deps.Lexical.RecordDetections(ctx, userID, u.SessionRef, detections); err != nil {
		logger.Error("failed to record lexical detections", "error", err)
	}
}

// TierTransitions explains why the preliminary tier was not stored.
// Each failing gate of the tier directly above final becomes one transition from preliminary to final.
// Without a failing gate a single promotion transition is recorded.
func TierTransitions(preliminary, final schema.Tier, aggregated schema.AggregatedMetrics) []schema.TierTransition {
	out := []schema.TierTransition{}
	if !preliminary.Valid() || preliminary == final {
		return out
	}
	if preliminary.Rank() > final.Rank() {
		if next, ok := final.Next(); ok {
			if gate, ok := schema.GateFor(next); ok {
				for _, g := range algo.CheckGates(gate, aggregated) {
					if g.Passed {
						continue
					}
					out = append(out, schema.TierTransition{
						Gate:   g.Gate,
						From:   preliminary,
						To:     final,
						Reason: fmt.Sprintf("%s gate for %s requires %s, actual %s", g.Gate, next, g.Required, g.Actual),
					})
				}
			}
		}
	}
	if len(out) == 0 {
		out = append(out, schema.TierTransition{
			Gate:   schema.GatePromotion,
			From:   preliminary,
			To:     final,
			Reason: "tier only moves one step at a time through the promotion gates",
		})
	}
	return out
}

// appendAudit keeps the newest schema.MaxAuditRecords records.
func appendAudit(trail []schema.AuditRecord, rec schema.AuditRecord) []schema.AuditRecord {
	trail = append(trail, rec)
	if over := len(trail) - schema.MaxAuditRecords; over > 0 {
		trail = append([]schema.AuditRecord(nil), trail[over:]...)
	}
	return trail
}

func nonNilDetections(in []schema.LexicalDetection) []schema.LexicalDetection {
	if in == nil {
		return []schema.LexicalDetection{}
	}
	return in
}
