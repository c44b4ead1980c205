// Package contract provides interfaces and shared utilities for the fluentgate internal architecture.
package contract

import (
	"context"
	"errors"
	"time"

	"github.com/huangsam/fluentgate/schema"
)

// Sentinel errors shared by every store implementation.
var (
	// ErrNotFound is returned when a keyed lookup has no row.
	ErrNotFound = errors.New("not found")

	// ErrIllegalTransition is returned when a session status change is not in the transition table.
	ErrIllegalTransition = errors.New("illegal session status transition")
)

// --- Persistence ---

// SessionStore persists live practice sessions.
type SessionStore interface {
	// ListSessionsByStatus returns every session whose status is one of statuses.
	ListSessionsByStatus(ctx context.Context, statuses ...schema.SessionStatus) ([]schema.Session, error)

	// GetSession returns the session with id, or ErrNotFound.
	GetSession(ctx context.Context, id string) (schema.Session, error)

	// UpsertSession creates or replaces a session keyed by id.
	UpsertSession(ctx context.Context, s schema.Session) error

	// TransitionSession moves a session to next if its stored status is a legal predecessor.
	// Entering ended stamps the end time with at. Returns ErrIllegalTransition otherwise.
	TransitionSession(ctx context.Context, id string, next schema.SessionStatus, at time.Time) error

	// ListUnsummarized returns ended sessions where a participant has no summary row yet.
	ListUnsummarized(ctx context.Context) ([]schema.Session, error)
}

// MatchQueueStore persists the pairing queue that feeds live sessions.
type MatchQueueStore interface {
	Enqueue(ctx context.Context, e schema.MatchQueueEntry) error

	// PurgeStaleQueue deletes entries that joined before cutoff and returns how many were removed.
	PurgeStaleQueue(ctx context.Context, cutoff time.Time) (int64, error)
}

// SpeechStore persists transcript segments and the running speech counters.
type SpeechStore interface {
	// AppendSegment stores a final transcript fragment. Segments are never updated.
	AppendSegment(ctx context.Context, seg schema.TranscriptSegment) error

	// IncrementMetrics adds delta to the (session, user) counters, creating the row on first use.
	// The stored speech rate is recomputed from the new totals.
	IncrementMetrics(ctx context.Context, sessionID, userID string, delta schema.SpeechDelta) error

	// GetMetrics returns the counters for (session, user), or ErrNotFound.
	GetMetrics(ctx context.Context, sessionID, userID string) (schema.SpeechMetrics, error)

	// ListSegments returns the segments of one speaker in capture order.
	ListSegments(ctx context.Context, sessionID, userID string) ([]schema.TranscriptSegment, error)
}

// SummaryStore persists per-session summaries keyed by (session, user).
type SummaryStore interface {
	UpsertSummary(ctx context.Context, s schema.SessionSummary) error
	GetSummary(ctx context.Context, sessionID, userID string) (schema.SessionSummary, error)
	ListSummaries(ctx context.Context) ([]schema.SessionSummary, error)
}

// ProfileStore persists the canonical fluency profile keyed by user.
type ProfileStore interface {
	// GetProfile returns the stored profile, or ErrNotFound.
	GetProfile(ctx context.Context, userID string) (schema.FluencyProfile, error)

	// UpsertProfile creates or replaces the profile row for p.UserID.
	UpsertProfile(ctx context.Context, p schema.FluencyProfile) error

	ListProfiles(ctx context.Context) ([]schema.FluencyProfile, error)
}

// PracticeRecorder persists non-live practice activity.
type PracticeRecorder interface {
	RecordInteractiveSession(ctx context.Context, s schema.InteractiveSession) error
	RecordDrillAttempt(ctx context.Context, a schema.DrillAttempt) error
}

// PracticeSource reads one modality's activity for a user since a cutoff.
type PracticeSource interface {
	Modality() schema.Modality
	ListPractice(ctx context.Context, userID string, since time.Time) ([]schema.PracticeRecord, error)
}

// ExerciseStore looks up remedial exercises.
type ExerciseStore interface {
	ListExercises(ctx context.Context, weakness schema.WeaknessTag) ([]schema.Exercise, error)
	UpsertExercise(ctx context.Context, e schema.Exercise) error
}

// LexicalStore persists lexical ceiling detections.
type LexicalStore interface {
	RecordDetections(ctx context.Context, userID, sessionRef string, detections []schema.LexicalDetection) error

	// ListDetectionCategories returns the distinct categories detected for userID since cutoff.
	ListDetectionCategories(ctx context.Context, userID string, since time.Time) ([]string, error)
}

// IdentityResolver maps an external caller identity to the canonical user id.
type IdentityResolver interface {
	// ResolveUserID returns ErrNotFound when the identity is unknown.
	ResolveUserID(ctx context.Context, externalID string) (string, error)
}

// --- Realtime transport ---

// AudioTrack is a subscribed media track from one participant.
type AudioTrack interface {
	SID() string
	Kind() string

	// ReadFrame blocks for the next PCM frame (s16le mono). It returns io.EOF once the track ends.
	ReadFrame(ctx context.Context) ([]byte, error)
}

// RoomEvents are the callbacks a connector invokes for one joined room.
// Nil callbacks are skipped.
type RoomEvents struct {
	OnParticipantConnected    func(identity string)
	OnParticipantDisconnected func(identity string)
	OnTrackSubscribed         func(identity string, track AudioTrack)
	OnDisconnected            func(err error)
}

// RoomHandle is a joined realtime room.
type RoomHandle interface {
	Name() string

	// Participants returns the identities currently present, including bots.
	Participants() []string

	Disconnect() error
}

// RoomConnector joins realtime rooms.
type RoomConnector interface {
	Join(ctx context.Context, room, credential string, events RoomEvents) (RoomHandle, error)
}

// CredentialIssuer mints short-lived, room-scoped join credentials.
type CredentialIssuer interface {
	IssueJoinToken(room, identity string, ttl time.Duration) (string, error)
}

// --- Speech to text ---

// TranscriptionStream is one open streaming recognition session.
type TranscriptionStream interface {
	SendAudio(pcm []byte) error

	// Results is closed when the stream ends.
	Results() <-chan schema.TranscriptResult

	Close() error
}

// SpeechToText opens streaming recognition sessions.
type SpeechToText interface {
	Open(ctx context.Context) (TranscriptionStream, error)
}

// --- Core services ---

// SessionSummarizer produces per-participant summaries for an ended session.
type SessionSummarizer interface {
	SummarizeSession(ctx context.Context, s schema.Session) error
}

// ProfileWriter is the single write path for fluency profiles.
type ProfileWriter interface {
	Update(ctx context.Context, u schema.ProfileUpdate) schema.UpdateOutcome
}

// MetricsAggregator builds the rolling behavioral profile of one user.
type MetricsAggregator interface {
	Aggregate(ctx context.Context, userID string, now time.Time) (schema.AggregatedMetrics, error)
}
