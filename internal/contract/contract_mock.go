package contract

import (
	"context"
	"time"

	"github.com/huangsam/fluentgate/schema"
	"github.com/stretchr/testify/mock"
)

// MockSessionStore is a mock implementation of SessionStore for testing.
type MockSessionStore struct {
	mock.Mock
}

var _ SessionStore = &MockSessionStore{} // Compile-time check

// ListSessionsByStatus implements the SessionStore interface.
func (m *MockSessionStore) ListSessionsByStatus(ctx context.Context, statuses ...schema.SessionStatus) ([]schema.Session, error) {
	args := m.Called(ctx, statuses)
	sessions, _ := args.Get(0).([]schema.Session)
	return sessions, args.Error(1)
}

// GetSession implements the SessionStore interface.
func (m *MockSessionStore) GetSession(ctx context.Context, id string) (schema.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schema.Session), args.Error(1)
}

// UpsertSession implements the SessionStore interface.
func (m *MockSessionStore) UpsertSession(ctx context.Context, s schema.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// TransitionSession implements the SessionStore interface.
func (m *MockSessionStore) TransitionSession(ctx context.Context, id string, next schema.SessionStatus, at time.Time) error {
	args := m.Called(ctx, id, next, at)
	return args.Error(0)
}

// ListUnsummarized implements the SessionStore interface.
func (m *MockSessionStore) ListUnsummarized(ctx context.Context) ([]schema.Session, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]schema.Session)
	return sessions, args.Error(1)
}

// MockMatchQueueStore is a mock implementation of MatchQueueStore for testing.
type MockMatchQueueStore struct {
	mock.Mock
}

var _ MatchQueueStore = &MockMatchQueueStore{} // Compile-time check

// Enqueue implements the MatchQueueStore interface.
func (m *MockMatchQueueStore) Enqueue(ctx context.Context, e schema.MatchQueueEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

// PurgeStaleQueue implements the MatchQueueStore interface.
func (m *MockMatchQueueStore) PurgeStaleQueue(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockSpeechStore is a mock implementation of SpeechStore for testing.
type MockSpeechStore struct {
	mock.Mock
}

var _ SpeechStore = &MockSpeechStore{} // Compile-time check

// AppendSegment implements the SpeechStore interface.
func (m *MockSpeechStore) AppendSegment(ctx context.Context, seg schema.TranscriptSegment) error {
	args := m.Called(ctx, seg)
	return args.Error(0)
}

// IncrementMetrics implements the SpeechStore interface.
func (m *MockSpeechStore) IncrementMetrics(ctx context.Context, sessionID, userID string, delta schema.SpeechDelta) error {
	args := m.Called(ctx, sessionID, userID, delta)
	return args.Error(0)
}

// GetMetrics implements the SpeechStore interface.
func (m *MockSpeechStore) GetMetrics(ctx context.Context, sessionID, userID string) (schema.SpeechMetrics, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.Get(0).(schema.SpeechMetrics), args.Error(1)
}

// ListSegments implements the SpeechStore interface.
func (m *MockSpeechStore) ListSegments(ctx context.Context, sessionID, userID string) ([]schema.TranscriptSegment, error) {
	args := m.Called(ctx, sessionID, userID)
	segs, _ := args.Get(0).([]schema.TranscriptSegment)
	return segs, args.Error(1)
}

// MockSummaryStore is a mock implementation of SummaryStore for testing.
type MockSummaryStore struct {
	mock.Mock
}

var _ SummaryStore = &MockSummaryStore{} // Compile-time check

// UpsertSummary implements the SummaryStore interface.
func (m *MockSummaryStore) UpsertSummary(ctx context.Context, s schema.SessionSummary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// GetSummary implements the SummaryStore interface.
func (m *MockSummaryStore) GetSummary(ctx context.Context, sessionID, userID string) (schema.SessionSummary, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.Get(0).(schema.SessionSummary), args.Error(1)
}

// ListSummaries implements the SummaryStore interface.
func (m *MockSummaryStore) ListSummaries(ctx context.Context) ([]schema.SessionSummary, error) {
	args := m.Called(ctx)
	sums, _ := args.Get(0).([]schema.SessionSummary)
	return sums, args.Error(1)
}

// MockProfileStore is a mock implementation of ProfileStore for testing.
type MockProfileStore struct {
	mock.Mock
}

var _ ProfileStore = &MockProfileStore{} // Compile-time check

// GetProfile implements the ProfileStore interface.
func (m *MockProfileStore) GetProfile(ctx context.Context, userID string) (schema.FluencyProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(schema.FluencyProfile), args.Error(1)
}

// UpsertProfile implements the ProfileStore interface.
func (m *MockProfileStore) UpsertProfile(ctx context.Context, p schema.FluencyProfile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// ListProfiles implements the ProfileStore interface.
func (m *MockProfileStore) ListProfiles(ctx context.Context) ([]schema.FluencyProfile, error) {
	args := m.Called(ctx)
	profiles, _ := args.Get(0).([]schema.FluencyProfile)
	return profiles, args.Error(1)
}

// MockPracticeRecorder is a mock implementation of PracticeRecorder for testing.
type MockPracticeRecorder struct {
	mock.Mock
}

var _ PracticeRecorder = &MockPracticeRecorder{} // Compile-time check

// RecordInteractiveSession implements the PracticeRecorder interface.
func (m *MockPracticeRecorder) RecordInteractiveSession(ctx context.Context, s schema.InteractiveSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// RecordDrillAttempt implements the PracticeRecorder interface.
func (m *MockPracticeRecorder) RecordDrillAttempt(ctx context.Context, a schema.DrillAttempt) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// MockPracticeSource is a mock implementation of PracticeSource for testing.
type MockPracticeSource struct {
	mock.Mock
}

var _ PracticeSource = &MockPracticeSource{} // Compile-time check

// Modality implements the PracticeSource interface.
func (m *MockPracticeSource) Modality() schema.Modality {
	args := m.Called()
	return args.Get(0).(schema.Modality)
}

// ListPractice implements the PracticeSource interface.
func (m *MockPracticeSource) ListPractice(ctx context.Context, userID string, since time.Time) ([]schema.PracticeRecord, error) {
	args := m.Called(ctx, userID, since)
	records, _ := args.Get(0).([]schema.PracticeRecord)
	return records, args.Error(1)
}

// MockExerciseStore is a mock implementation of ExerciseStore for testing.
type MockExerciseStore struct {
	mock.Mock
}

var _ ExerciseStore = &MockExerciseStore{} // Compile-time check

// ListExercises implements the ExerciseStore interface.
func (m *MockExerciseStore) ListExercises(ctx context.Context, weakness schema.WeaknessTag) ([]schema.Exercise, error) {
	args := m.Called(ctx, weakness)
	exercises, _ := args.Get(0).([]schema.Exercise)
	return exercises, args.Error(1)
}

// UpsertExercise implements the ExerciseStore interface.
func (m *MockExerciseStore) UpsertExercise(ctx context.Context, e schema.Exercise) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

// MockLexicalStore is a mock implementation of LexicalStore for testing.
type MockLexicalStore struct {
	mock.Mock
}

var _ LexicalStore = &MockLexicalStore{} // Compile-time check

// RecordDetections implements the LexicalStore interface.
func (m *MockLexicalStore) RecordDetections(ctx context.Context, userID, sessionRef string, detections []schema.LexicalDetection) error {
	args := m.Called(ctx, userID, sessionRef, detections)
	return args.Error(0)
}

// ListDetectionCategories implements the LexicalStore interface.
func (m *MockLexicalStore) ListDetectionCategories(ctx context.Context, userID string, since time.Time) ([]string, error) {
	args := m.Called(ctx, userID, since)
	cats, _ := args.Get(0).([]string)
	return cats, args.Error(1)
}

// MockIdentityResolver is a mock implementation of IdentityResolver for testing.
type MockIdentityResolver struct {
	mock.Mock
}

var _ IdentityResolver = &MockIdentityResolver{} // Compile-time check

// ResolveUserID implements the IdentityResolver interface.
func (m *MockIdentityResolver) ResolveUserID(ctx context.Context, externalID string) (string, error) {
	args := m.Called(ctx, externalID)
	return args.String(0), args.Error(1)
}

// MockCredentialIssuer is a mock implementation of CredentialIssuer for testing.
type MockCredentialIssuer struct {
	mock.Mock
}

var _ CredentialIssuer = &MockCredentialIssuer{} // Compile-time check

// IssueJoinToken implements the CredentialIssuer interface.
func (m *MockCredentialIssuer) IssueJoinToken(room, identity string, ttl time.Duration) (string, error) {
	args := m.Called(room, identity, ttl)
	return args.String(0), args.Error(1)
}

// MockRoomConnector is a mock implementation of RoomConnector for testing.
type MockRoomConnector struct {
	mock.Mock
}

var _ RoomConnector = &MockRoomConnector{} // Compile-time check

// Join implements the RoomConnector interface.
func (m *MockRoomConnector) Join(ctx context.Context, room, credential string, events RoomEvents) (RoomHandle, error) {
	args := m.Called(ctx, room, credential, events)
	handle, _ := args.Get(0).(RoomHandle)
	return handle, args.Error(1)
}

// MockSessionSummarizer is a mock implementation of SessionSummarizer for testing.
type MockSessionSummarizer struct {
	mock.Mock
}

var _ SessionSummarizer = &MockSessionSummarizer{} // Compile-time check

// SummarizeSession implements the SessionSummarizer interface.
func (m *MockSessionSummarizer) SummarizeSession(ctx context.Context, s schema.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// MockProfileWriter is a mock implementation of ProfileWriter for testing.
type MockProfileWriter struct {
	mock.Mock
}

var _ ProfileWriter = &MockProfileWriter{} // Compile-time check

// Update implements the ProfileWriter interface.
func (m *MockProfileWriter) Update(ctx context.Context, u schema.ProfileUpdate) schema.UpdateOutcome {
	args := m.Called(ctx, u)
	return args.Get(0).(schema.UpdateOutcome)
}

// MockMetricsAggregator is a mock implementation of MetricsAggregator for testing.
type MockMetricsAggregator struct {
	mock.Mock
}

var _ MetricsAggregator = &MockMetricsAggregator{} // Compile-time check

// Aggregate implements the MetricsAggregator interface.
func (m *MockMetricsAggregator) Aggregate(ctx context.Context, userID string, now time.Time) (schema.AggregatedMetrics, error) {
	args := m.Called(ctx, userID, now)
	return args.Get(0).(schema.AggregatedMetrics), args.Error(1)
}
