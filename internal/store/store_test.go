package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_NoneBackend(t *testing.T) {
	ctx := context.Background()
	s, err := Open(schema.NoneBackend, "")
	require.NoError(t, err)

	assert.NoError(t, s.UpsertSession(ctx, schema.Session{ID: "s1"}))
	assert.NoError(t, s.TransitionSession(ctx, "s1", schema.StatusEnded, base))
	assert.NoError(t, s.IncrementMetrics(ctx, "s1", "u1", schema.SpeechDelta{Words: 3}))
	assert.NoError(t, s.UpsertProfile(ctx, schema.FluencyProfile{UserID: "u1"}))

	sessions, err := s.ListSessionsByStatus(ctx, schema.StatusLive)
	assert.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, contract.ErrNotFound)

	_, err = s.Migrate(-1)
	assert.Error(t, err)

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, s.Close())
}

func TestStore_UnsupportedBackend(t *testing.T) {
	_, err := Open(schema.DatabaseBackend("redis"), "")
	assert.Error(t, err)
}

func TestStore_MigratesAndSeeds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	version, dirty, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	exercises, err := s.ListExercises(ctx, schema.WeaknessHesitation)
	require.NoError(t, err)
	require.Len(t, exercises, 2)
	assert.Equal(t, schema.WeaknessHesitation, exercises[0].Weakness)

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, uint(2), status.SchemaVersion)
	assert.Len(t, status.TableSizes, len(AllTables))
	assert.Equal(t, int64(14), status.TableSizes[exercisesTable])
}

func TestStore_MigrateDownAndUp(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Migrate(-1)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Contains(t, res.String(), "No migration needed")

	res, err = s.Migrate(1)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(2), res.FromVersion)
	assert.Equal(t, uint(1), res.ToVersion)

	exercises, err := s.ListExercises(context.Background(), schema.WeaknessSpeed)
	require.NoError(t, err)
	assert.Empty(t, exercises)

	res, err = s.Migrate(-1)
	require.NoError(t, err)
	assert.Equal(t, uint(2), res.ToVersion)
	assert.Contains(t, res.String(), "Successfully migrated")
}

func TestStore_SessionTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertSession(ctx, schema.Session{
		ID: "s1", RoomName: "room-1", ParticipantA: "alice", ParticipantB: "bob",
		Status: schema.StatusWaiting, StartedAt: base,
	}))

	active, err := s.ListSessionsByStatus(ctx, schema.StatusWaiting, schema.StatusLive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "room-1", active[0].RoomName)
	assert.True(t, base.Equal(active[0].StartedAt))
	assert.Nil(t, active[0].EndedAt)

	require.NoError(t, s.TransitionSession(ctx, "s1", schema.StatusLive, base.Add(time.Minute)))
	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, schema.StatusLive, got.Status)
	assert.Nil(t, got.EndedAt)

	end := base.Add(10 * time.Minute)
	require.NoError(t, s.TransitionSession(ctx, "s1", schema.StatusEnded, end))
	got, err = s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, schema.StatusEnded, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.True(t, end.Equal(*got.EndedAt))

	// Ended is absorbing.
	err = s.TransitionSession(ctx, "s1", schema.StatusLive, end)
	assert.ErrorIs(t, err, contract.ErrIllegalTransition)
	err = s.TransitionSession(ctx, "s1", schema.StatusEnded, end.Add(time.Minute))
	assert.ErrorIs(t, err, contract.ErrIllegalTransition)
	got, err = s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, end.Equal(*got.EndedAt))

	err = s.TransitionSession(ctx, "missing", schema.StatusEnded, end)
	assert.ErrorIs(t, err, contract.ErrNotFound)

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestStore_ListUnsummarized(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertSession(ctx, schema.Session{
		ID: "s1", RoomName: "r", ParticipantA: "alice", ParticipantB: "bob", Status: schema.StatusWaiting, StartedAt: base,
	}))
	require.NoError(t, s.UpsertSession(ctx, schema.Session{
		ID: "s2", RoomName: "r2", ParticipantA: "carol", ParticipantB: "dan", Status: schema.StatusLive, StartedAt: base,
	}))
	require.NoError(t, s.TransitionSession(ctx, "s1", schema.StatusEnded, base.Add(time.Minute)))

	pending, err := s.ListUnsummarized(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s1", pending[0].ID)

	require.NoError(t, s.UpsertSummary(ctx, schema.SessionSummary{SessionID: "s1", UserID: "alice", UpdatedAt: base}))
	pending, err = s.ListUnsummarized(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, s.UpsertSummary(ctx, schema.SessionSummary{SessionID: "s1", UserID: "bob", UpdatedAt: base}))
	pending, err = s.ListUnsummarized(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStore_MatchQueue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, schema.MatchQueueEntry{UserID: "old", JoinedAt: base.Add(-2 * time.Minute)}))
	require.NoError(t, s.Enqueue(ctx, schema.MatchQueueEntry{UserID: "fresh", JoinedAt: base.Add(-10 * time.Second)}))

	n, err := s.PurgeStaleQueue(ctx, base.Add(-60*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.PurgeStaleQueue(ctx, base.Add(-60*time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_SpeechMetricsIncrement(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.IncrementMetrics(ctx, "s1", "alice", schema.SpeechDelta{Words: 20, Fillers: 2, Hesitations: 1, SpeakingSeconds: 10}))
	require.NoError(t, s.IncrementMetrics(ctx, "s1", "alice", schema.SpeechDelta{Words: 40, Fillers: 1, SpeakingSeconds: 20, GrammarErrors: 3}))

	m, err := s.GetMetrics(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 60, m.WordCount)
	assert.Equal(t, 3, m.FillerCount)
	assert.Equal(t, 1, m.HesitationCount)
	assert.Equal(t, 3, m.GrammarErrors)
	assert.InDelta(t, 30.0, m.SpeakingSeconds, 1e-9)
	assert.InDelta(t, 120.0, m.SpeechRateWPM, 1e-9)

	_, err = s.GetMetrics(ctx, "s1", "bob")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestStore_Segments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	words := []schema.WordTiming{{Word: "hello", Start: 0, End: 0.4}, {Word: "there", Start: 0.5, End: 0.9}}
	require.NoError(t, s.AppendSegment(ctx, schema.TranscriptSegment{
		ID: "b", SessionID: "s1", UserID: "alice", Text: "second", CapturedAt: base.Add(time.Second),
	}))
	require.NoError(t, s.AppendSegment(ctx, schema.TranscriptSegment{
		ID: "a", SessionID: "s1", UserID: "alice", Text: "hello there", Words: words, CapturedAt: base,
	}))
	require.NoError(t, s.AppendSegment(ctx, schema.TranscriptSegment{
		ID: "c", SessionID: "s1", UserID: "bob", Text: "other", CapturedAt: base,
	}))

	segs, err := s.ListSegments(ctx, "s1", "alice")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "hello there", segs[0].Text)
	assert.Equal(t, words, segs[0].Words)
	assert.Equal(t, "second", segs[1].Text)
}

func TestStore_SummaryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := schema.SessionSummary{
		SessionID: "s1", UserID: "alice", ConfidenceScore: 40, ConfidenceBand: schema.BandLow,
		FluencyScore: 55, Weaknesses: []schema.WeaknessTag{schema.WeaknessHesitation}, UpdatedAt: base,
	}
	second := first
	second.FluencyScore = 72.5
	second.ConfidenceBand = schema.BandMedium
	second.Drills = []schema.DrillEntry{{Weakness: schema.WeaknessHesitation, ExerciseID: "seed-hesitation-1", Title: "Shadow speaking"}}
	second.UpdatedAt = base.Add(time.Minute)

	require.NoError(t, s.UpsertSummary(ctx, first))
	require.NoError(t, s.UpsertSummary(ctx, second))

	all, err := s.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.InDelta(t, 72.5, all[0].FluencyScore, 1e-9)
	assert.Equal(t, schema.BandMedium, all[0].ConfidenceBand)
	assert.Equal(t, second.Drills, all[0].Drills)

	got, err := s.GetSummary(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.True(t, second.UpdatedAt.Equal(got.UpdatedAt))

	_, err = s.GetSummary(ctx, "s1", "bob")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	aggAt := base.Add(time.Hour)
	p := schema.FluencyProfile{
		UserID: "alice", Tier: schema.TierB1, LastFluencyScore: 85, ConfidenceScore: 40,
		ConfidenceBand: schema.BandLow, ConfidenceExplanation: "x",
		Metrics:        schema.ConfidenceMetrics{MidSentencePauseRatio: 0.2, RecoveryScore: 0.5},
		WordCount:      300,
		SourceModality: schema.InteractiveModality, SourceRef: "is-1", ModelVersion: contract.DefaultModelVersion,
		AuditTrail: []schema.AuditRecord{{
			ID: "a1", SchemaVersion: schema.AuditSchemaVersion, CurrentTier: schema.TierB1,
			PreliminaryTier: schema.TierC1, FinalTier: schema.TierB1,
			Transitions: []schema.TierTransition{{Gate: schema.GateConfidence, From: schema.TierC1, To: schema.TierB1}},
		}},
		GateFailures: []schema.FailureCode{schema.FailConfidence},
		Aggregated:   &schema.AggregatedMetrics{TotalWords: 300, WindowDays: 30},
		AggregatedAt: &aggAt,
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, s.UpsertProfile(ctx, p))

	got, err := s.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, schema.TierB1, got.Tier)
	assert.Equal(t, p.Metrics, got.Metrics)
	require.Len(t, got.AuditTrail, 1)
	assert.Equal(t, schema.TierC1, got.AuditTrail[0].PreliminaryTier)
	assert.Equal(t, p.GateFailures, got.GateFailures)
	require.NotNil(t, got.Aggregated)
	assert.Equal(t, 300, got.Aggregated.TotalWords)
	require.NotNil(t, got.AggregatedAt)
	assert.True(t, aggAt.Equal(*got.AggregatedAt))

	// A later upsert keeps the original creation time.
	p.Tier = schema.TierB2
	p.CreatedAt = base.Add(24 * time.Hour)
	p.UpdatedAt = base.Add(24 * time.Hour)
	require.NoError(t, s.UpsertProfile(ctx, p))

	got, err = s.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, schema.TierB2, got.Tier)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.True(t, p.UpdatedAt.Equal(got.UpdatedAt))

	all, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestStore_Identity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.ResolveUserID(ctx, "auth|123")
	assert.ErrorIs(t, err, contract.ErrNotFound)

	require.NoError(t, s.LinkIdentity(ctx, "auth|123", "alice"))
	id, err := s.ResolveUserID(ctx, "auth|123")
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	require.NoError(t, s.LinkIdentity(ctx, "auth|123", "alice-2"))
	id, err = s.ResolveUserID(ctx, "auth|123")
	require.NoError(t, err)
	assert.Equal(t, "alice-2", id)
}

func TestStore_LexicalDetections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordDetections(ctx, "alice", "old", []schema.LexicalDetection{
		{Category: "stale", MatchedWords: []string{"good"}, MatchCount: 3, DetectedAt: base.Add(-40 * 24 * time.Hour)},
	}))
	require.NoError(t, s.RecordDetections(ctx, "alice", "s1", []schema.LexicalDetection{
		{Category: "simple_connectors", MatchCount: 4, TargetTier: schema.TierB2, CeilingTier: schema.TierB1, DetectedAt: base},
		{Category: "basic_adjectives", MatchCount: 3, TargetTier: schema.TierB1, CeilingTier: schema.TierA2, DetectedAt: base},
		{Category: "basic_adjectives", MatchCount: 5, TargetTier: schema.TierB1, CeilingTier: schema.TierA2, DetectedAt: base},
	}))
	require.NoError(t, s.RecordDetections(ctx, "alice", "empty", nil))

	cats, err := s.ListDetectionCategories(ctx, "alice", base.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"basic_adjectives", "simple_connectors"}, cats)

	cats, err = s.ListDetectionCategories(ctx, "bob", base.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestStore_PracticeSources(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	since := base.Add(-30 * 24 * time.Hour)

	// Live: one ended session with metrics, one live session with nothing else, one outside the window.
	require.NoError(t, s.UpsertSession(ctx, schema.Session{ID: "live-1", RoomName: "r1", ParticipantA: "alice", ParticipantB: "bob", Status: schema.StatusLive, StartedAt: base}))
	require.NoError(t, s.TransitionSession(ctx, "live-1", schema.StatusEnded, base.Add(5*time.Minute)))
	require.NoError(t, s.IncrementMetrics(ctx, "live-1", "alice", schema.SpeechDelta{Words: 200, Fillers: 4, SpeakingSeconds: 120}))
	require.NoError(t, s.UpsertSummary(ctx, schema.SessionSummary{SessionID: "live-1", UserID: "alice", AvgMidSentencePauseMs: 0, UpdatedAt: base}))
	require.NoError(t, s.UpsertSession(ctx, schema.Session{ID: "live-2", RoomName: "r2", ParticipantA: "carol", ParticipantB: "alice", Status: schema.StatusLive, StartedAt: base.Add(time.Hour)}))
	require.NoError(t, s.UpsertSession(ctx, schema.Session{ID: "live-old", RoomName: "r0", ParticipantA: "alice", Status: schema.StatusEnded, StartedAt: since.Add(-time.Hour)}))

	avg := 850.0
	require.NoError(t, s.RecordInteractiveSession(ctx, schema.InteractiveSession{
		ID: "is-1", UserID: "alice", StartedAt: base, DurationSeconds: 300, WordCount: 400, FillerCount: 6,
		AvgMidSentencePauseMs: &avg, Completed: true,
	}))
	require.NoError(t, s.RecordDrillAttempt(ctx, schema.DrillAttempt{
		ID: "d-1", UserID: "alice", ExerciseID: "seed-speed-1", Weakness: schema.WeaknessSpeed,
		AttemptedAt: base, DurationSeconds: 60, WordCount: 90, Completed: false,
	}))

	sources := s.PracticeSources()
	require.Len(t, sources, 3)
	byModality := map[schema.Modality][]schema.PracticeRecord{}
	for _, src := range sources {
		recs, err := src.ListPractice(ctx, "alice", since)
		require.NoError(t, err)
		byModality[src.Modality()] = recs
	}

	live := byModality[schema.LiveModality]
	require.Len(t, live, 2)
	assert.Equal(t, "live-1", live[0].SessionRef)
	assert.True(t, live[0].Completed)
	require.NotNil(t, live[0].WordCount)
	assert.Equal(t, 200, *live[0].WordCount)
	require.NotNil(t, live[0].AvgMidSentencePauseMs)
	assert.Zero(t, *live[0].AvgMidSentencePauseMs)
	assert.False(t, live[1].Completed)
	assert.Nil(t, live[1].WordCount)
	assert.Nil(t, live[1].DurationSeconds)
	assert.Nil(t, live[1].AvgMidSentencePauseMs)

	interactive := byModality[schema.InteractiveModality]
	require.Len(t, interactive, 1)
	assert.True(t, interactive[0].Completed)
	require.NotNil(t, interactive[0].AvgMidSentencePauseMs)
	assert.InDelta(t, 850.0, *interactive[0].AvgMidSentencePauseMs, 1e-9)
	assert.Equal(t, 6, *interactive[0].FillerCount)

	drills := byModality[schema.DrillModality]
	require.Len(t, drills, 1)
	assert.False(t, drills[0].Completed)
	assert.Nil(t, drills[0].FillerCount)
	assert.Equal(t, 90, *drills[0].WordCount)
}

func TestStore_QueryBuilding(t *testing.T) {
	pg := &Store{backend: schema.PostgreSQLBackend}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)", pg.rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)"))

	lite := &Store{backend: schema.SQLiteBackend}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
	assert.Equal(t,
		"INSERT INTO t (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = excluded.v",
		lite.upsertQuery("t", []string{"k", "v"}, []string{"k"}, []string{"v"}))

	my := &Store{backend: schema.MySQLBackend}
	assert.Equal(t,
		"INSERT INTO t (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		my.upsertQuery("t", []string{"k", "v"}, []string{"k"}, []string{"v"}))
	assert.Contains(t, my.incrementMetricsQuery(), "ON DUPLICATE KEY UPDATE speech_rate_wpm")

	dsn, err := normalizeMySQLDSN("root:pw@tcp(localhost:3306)/fluentgate")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "multiStatements=true")

	_, err = normalizeMySQLDSN("not a dsn")
	assert.Error(t, err)
}

func TestTimeScanner(t *testing.T) {
	ts := &timeScanner{}
	require.NoError(t, ts.Scan(nil))
	got, err := ts.Time()
	require.NoError(t, err)
	assert.Nil(t, got)

	ts = &timeScanner{}
	require.NoError(t, ts.Scan("2026-03-10T09:30:00.000000000Z"))
	got, err = ts.Time()
	require.NoError(t, err)
	assert.True(t, base.Equal(*got))

	ts = &timeScanner{}
	require.NoError(t, ts.Scan(base.In(time.FixedZone("X", 3600))))
	got, err = ts.Time()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())

	ts = &timeScanner{}
	assert.Error(t, ts.Scan(42))

	ts = &timeScanner{}
	require.NoError(t, ts.Scan("yesterday"))
	_, err = ts.Time()
	assert.Error(t, err)
}

func TestStore_Export(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	var out bytes.Buffer

	err := s.Export(ctx, "", &out)
	assert.Error(t, err)

	prefix := filepath.Join(t.TempDir(), "fluentgate")
	err = s.Export(ctx, prefix, &out)
	assert.Error(t, err, "empty store has nothing to export")

	require.NoError(t, s.UpsertProfile(ctx, schema.FluencyProfile{UserID: "alice", Tier: schema.TierA2, CreatedAt: base, UpdatedAt: base}))
	require.NoError(t, s.UpsertSummary(ctx, schema.SessionSummary{SessionID: "s1", UserID: "alice", UpdatedAt: base}))

	out.Reset()
	require.NoError(t, s.Export(ctx, prefix, &out))
	assert.Contains(t, out.String(), "Exported 1 profiles")
	assert.FileExists(t, prefix+".profiles.parquet")
	assert.FileExists(t, prefix+".summaries.parquet")
}
