package schema

import "strings"

// Transcript is a recorded utterance submitted for offline analysis.
// Text falls back to the joined words when empty, and DurationSeconds to the span of the words.
type Transcript struct {
	Source          string       `json:"source"`
	UserID          string       `json:"user_id,omitempty"`
	Text            string       `json:"text"`
	Words           []WordTiming `json:"words"`
	DurationSeconds float64      `json:"duration_seconds"`
}

// TranscriptAnalysis is the presentation model of one transcript analyzed offline.
type TranscriptAnalysis struct {
	Source          string             `json:"source"`
	WordCount       int                `json:"word_count"`
	CurrentTier     Tier               `json:"current_tier"`
	FluencyScore    float64            `json:"fluency_score"`
	EstimatedTier   Tier               `json:"estimated_tier"`
	Silent          bool               `json:"silent"`
	Confidence      ConfidenceResult   `json:"confidence"`
	Weaknesses      []WeaknessTag      `json:"weaknesses"`
	LexicalBlockers []LexicalDetection `json:"lexical_blockers"`
}

// PromotionReport bundles the aggregated metrics and the gate decision for one user.
type PromotionReport struct {
	UserID   string            `json:"user_id"`
	Metrics  AggregatedMetrics `json:"metrics"`
	Result   PromotionResult   `json:"result"`
	Demotion *DemotionAdvice   `json:"demotion,omitempty"`
}

// TierPath renders a promotion attempt such as "B1 -> B2", or "C2 (ceiling)" when there is no next tier.
func TierPath(current Tier, next *Tier) string {
	if next == nil {
		return string(current) + " (ceiling)"
	}
	return string(current) + " -> " + string(*next)
}

// JoinModalities renders modalities as a pipe-separated list.
func JoinModalities(modalities []Modality) string {
	parts := make([]string, len(modalities))
	for i, m := range modalities {
		parts[i] = string(m)
	}
	return strings.Join(parts, "|")
}

// JoinFailures renders failure codes as a pipe-separated list.
func JoinFailures(codes []FailureCode) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, "|")
}

// JoinWeaknesses renders weakness tags as a pipe-separated list.
func JoinWeaknesses(tags []WeaknessTag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, "|")
}
