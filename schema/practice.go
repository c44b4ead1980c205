package schema

import "time"

// TranscriptResult is one message from the streaming speech-to-text service.
// Interim results may be revised; only final results are persisted.
type TranscriptResult struct {
	Text     string       `json:"text"`
	Words    []WordTiming `json:"words"`
	IsFinal  bool         `json:"is_final"`
	Start    float64      `json:"start"`
	Duration float64      `json:"duration"`
}

// MatchQueueEntry is a user waiting to be paired into a live session.
type MatchQueueEntry struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// InteractiveSession is one completed AI conversation practice.
type InteractiveSession struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	StartedAt             time.Time  `json:"started_at"`
	EndedAt               *time.Time `json:"ended_at,omitempty"`
	DurationSeconds       float64    `json:"duration_seconds"`
	WordCount             int        `json:"word_count"`
	FillerCount           int        `json:"filler_count"`
	AvgMidSentencePauseMs *float64   `json:"avg_mid_sentence_pause_ms,omitempty"`
	Completed             bool       `json:"completed"`
}

// DrillAttempt is one attempt at a remedial exercise.
type DrillAttempt struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	ExerciseID      string      `json:"exercise_id"`
	Weakness        WeaknessTag `json:"weakness"`
	AttemptedAt     time.Time   `json:"attempted_at"`
	DurationSeconds float64     `json:"duration_seconds"`
	WordCount       int         `json:"word_count"`
	Completed       bool        `json:"completed"`
}

// PracticeCompletion is what a non-live practice surface submits when it finishes.
// At most one of Interactive and Drill is set; Update is always applied.
type PracticeCompletion struct {
	Interactive *InteractiveSession `json:"interactive,omitempty"`
	Drill       *DrillAttempt       `json:"drill,omitempty"`
	Update      ProfileUpdate       `json:"update"`
}
