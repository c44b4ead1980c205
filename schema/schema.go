// Package schema holds the data model shared by the analyzers, the store and the CLI.
package schema

import "time"

// WordTiming is a single transcribed word with start and end offsets in seconds.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Session is a two-party live practice room.
type Session struct {
	ID           string        `json:"id"`
	RoomName     string        `json:"room_name"`
	ParticipantA string        `json:"participant_a"`
	ParticipantB string        `json:"participant_b"`
	Status       SessionStatus `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
}

// Participants returns the two human identities of the session, skipping empty slots.
func (s Session) Participants() []string {
	var out []string
	for _, p := range []string{s.ParticipantA, s.ParticipantB} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SpeechMetrics holds the running counters for one user in one session.
// Counters only ever grow.
type SpeechMetrics struct {
	SessionID       string  `json:"session_id"`
	UserID          string  `json:"user_id"`
	WordCount       int     `json:"word_count"`
	FillerCount     int     `json:"filler_count"`
	HesitationCount int     `json:"hesitation_count"`
	SpeakingSeconds float64 `json:"speaking_seconds"`
	SpeechRateWPM   float64 `json:"speech_rate_wpm"`
	GrammarErrors   int     `json:"grammar_errors"`
}

// SpeechDelta is an increment applied to SpeechMetrics as transcript segments arrive.
type SpeechDelta struct {
	Words           int
	Fillers         int
	Hesitations     int
	SpeakingSeconds float64
	GrammarErrors   int
}

// TranscriptSegment is an append-only final transcript fragment with word timings.
type TranscriptSegment struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id"`
	UserID     string       `json:"user_id"`
	Text       string       `json:"text"`
	Words      []WordTiming `json:"words"`
	CapturedAt time.Time    `json:"captured_at"`
}

// ConfidenceMetrics are the timing-derived components of a confidence score.
type ConfidenceMetrics struct {
	AvgPauseMs            float64 `json:"avg_pause_ms"`
	MidSentencePauseRatio float64 `json:"mid_sentence_pause_ratio"`
	PauseVariance         float64 `json:"pause_variance"`
	SpeechRateWPM         float64 `json:"speech_rate_wpm"`
	SpeechRateVariance    float64 `json:"speech_rate_variance"`
	RecoveryScore         float64 `json:"recovery_score"`
	MidSentencePauseCount int     `json:"mid_sentence_pause_count"`
	AvgMidSentencePauseMs float64 `json:"avg_mid_sentence_pause_ms"`
}

// HesitationFlags mark which timing signals crossed their warning thresholds.
type HesitationFlags struct {
	FrequentMidSentencePauses bool `json:"frequent_mid_sentence_pauses"`
	IrregularPauses           bool `json:"irregular_pauses"`
	UnevenPace                bool `json:"uneven_pace"`
	WeakRecovery              bool `json:"weak_recovery"`
}

// ConfidenceResult is the output of the timing-only confidence analyzer.
type ConfidenceResult struct {
	Score       float64           `json:"score"`
	Band        ConfidenceBand    `json:"band"`
	Explanation string            `json:"explanation"`
	Metrics     ConfidenceMetrics `json:"metrics"`
	Flags       HesitationFlags   `json:"flags"`
}

// LexicalTrigger is the static vocabulary-ceiling definition for one target tier.
type LexicalTrigger struct {
	TargetTier Tier     `json:"target_tier"`
	Category   string   `json:"category"`
	Lemmas     []string `json:"lemmas"`
	Upgrades   []string `json:"upgrades"`
	Rationale  string   `json:"rationale"`
}

// LexicalDetection reports repeated reliance on lower-tier vocabulary.
type LexicalDetection struct {
	Category     string    `json:"category"`
	MatchedWords []string  `json:"matched_words"`
	Upgrades     []string  `json:"upgrades"`
	Rationale    string    `json:"rationale"`
	MatchCount   int       `json:"match_count"`
	TargetTier   Tier      `json:"target_tier"`
	CeilingTier  Tier      `json:"ceiling_tier"`
	DetectedAt   time.Time `json:"detected_at,omitzero"`
}

// DrillEntry is one remedial exercise assigned after a session.
type DrillEntry struct {
	Weakness     WeaknessTag `json:"weakness"`
	ExerciseID   string      `json:"exercise_id"`
	Title        string      `json:"title"`
	Instructions string      `json:"instructions"`
}

// Exercise is a remedial exercise stored against a weakness tag.
type Exercise struct {
	ID           string      `json:"id"`
	Weakness     WeaknessTag `json:"weakness"`
	Title        string      `json:"title"`
	Instructions string      `json:"instructions"`
}

// SessionSummary is the per-session, per-user outcome. One row per (session, user).
type SessionSummary struct {
	SessionID             string         `json:"session_id"`
	UserID                string         `json:"user_id"`
	ConfidenceScore       float64        `json:"confidence_score"`
	ConfidenceBand        ConfidenceBand `json:"confidence_band"`
	FluencyScore          float64        `json:"fluency_score"`
	AvgMidSentencePauseMs float64        `json:"avg_mid_sentence_pause_ms"`
	Weaknesses            []WeaknessTag  `json:"weaknesses"`
	Drills                []DrillEntry   `json:"drills"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// PracticeRecord is one practice activity normalized from any modality.
// Nil pointers mark relations the source could not provide; they contribute zero.
type PracticeRecord struct {
	Modality              Modality  `json:"modality"`
	SessionRef            string    `json:"session_ref"`
	OccurredAt            time.Time `json:"occurred_at"`
	Completed             bool      `json:"completed"`
	DurationSeconds       *float64  `json:"duration_seconds,omitempty"`
	WordCount             *int      `json:"word_count,omitempty"`
	FillerCount           *int      `json:"filler_count,omitempty"`
	AvgMidSentencePauseMs *float64  `json:"avg_mid_sentence_pause_ms,omitempty"`
}

// AggregatedMetrics is the rolling behavioral profile of one user.
type AggregatedMetrics struct {
	TotalSeconds          float64        `json:"total_seconds"`
	TotalWords            int            `json:"total_words"`
	SessionCount          int            `json:"session_count"`
	ActiveDays            int            `json:"active_days"`
	AvgMidSentencePauseMs float64        `json:"avg_mid_sentence_pause_ms"`
	ConfidenceBand        ConfidenceBand `json:"confidence_band"`
	CrutchWordRatePerMin  float64        `json:"crutch_word_rate_per_min"`
	LexicalBlockers       []string       `json:"lexical_blockers"`
	PracticeTypes         []Modality     `json:"practice_types"`
	NonEnglishSegments    int            `json:"non_english_segments"`
	LastSessionDate       *time.Time     `json:"last_session_date,omitempty"`
	WindowDays            int            `json:"window_days"`
}

// PromotionGate is the static threshold set guarding entry into a tier.
type PromotionGate struct {
	Tier                  Tier           `json:"tier"`
	MinSpeakingSeconds    float64        `json:"min_speaking_seconds"`
	MinWords              int            `json:"min_words"`
	MinSessions           int            `json:"min_sessions"`
	MinActiveDays         int            `json:"min_active_days"`
	MaxMidSentencePauseMs float64        `json:"max_mid_sentence_pause_ms"`
	RequiredBand          ConfidenceBand `json:"required_band"`
	MaxFillerRatePerMin   *float64       `json:"max_filler_rate_per_min,omitempty"`
	AllowLexicalCeiling   bool           `json:"allow_lexical_ceiling"`
	MinPracticeTypes      int            `json:"min_practice_types,omitempty"`
}

// GateStatus is the outcome of a single gate check.
type GateStatus struct {
	Gate     string      `json:"gate"`
	Code     FailureCode `json:"code"`
	Required string      `json:"required"`
	Actual   string      `json:"actual"`
	Passed   bool        `json:"passed"`
}

// PromotionResult is the gate-by-gate decision for one promotion attempt.
type PromotionResult struct {
	CurrentTier Tier          `json:"current_tier"`
	NextTier    *Tier         `json:"next_tier"`
	Eligible    bool          `json:"eligible"`
	Failures    []FailureCode `json:"failures"`
	Gates       []GateStatus  `json:"gates"`
}

// DemotionAdvice is the advisory inactivity check result. It is never applied automatically.
type DemotionAdvice struct {
	Recommended     bool    `json:"recommended"`
	CurrentTier     Tier    `json:"current_tier"`
	SuggestedTier   *Tier   `json:"suggested_tier,omitempty"`
	InactiveDays    int     `json:"inactive_days"`
	ThresholdDays   int     `json:"threshold_days"`
	Reason          string  `json:"reason"`
	LastSessionDate *string `json:"last_session_date,omitempty"`
}
