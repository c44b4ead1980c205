//go:build database

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/internal/store"
	"github.com/huangsam/fluentgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var base = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

// TestStoreWithMySQL runs the store against a MySQL backend.
func TestStoreWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "fluentgate",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/fluentgate", host, port.Port())
	exerciseStore(t, schema.MySQLBackend, connStr)
	exerciseCLI(t, schema.MySQLBackend, connStr)
}

// TestStoreWithPostgres runs the store against a PostgreSQL backend.
func TestStoreWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	exerciseStore(t, schema.PostgreSQLBackend, connStr)
	exerciseCLI(t, schema.PostgreSQLBackend, connStr)
}

// exerciseStore checks migrations, the session state machine, metric increments,
// profile upserts and lexical detections on a live database.
func exerciseStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	version, dirty, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Reopening an already migrated database is a no-op.
	res, err := s.Migrate(-1)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	exercises, err := s.ListExercises(ctx, schema.WeaknessHesitation)
	require.NoError(t, err)
	assert.NotEmpty(t, exercises)

	require.NoError(t, s.UpsertSession(ctx, schema.Session{
		ID: "s1", RoomName: "room-1", ParticipantA: "alice", ParticipantB: "bob",
		Status: schema.StatusWaiting, StartedAt: base,
	}))
	require.NoError(t, s.TransitionSession(ctx, "s1", schema.StatusLive, base.Add(time.Minute)))
	end := base.Add(10 * time.Minute)
	require.NoError(t, s.TransitionSession(ctx, "s1", schema.StatusEnded, end))
	err = s.TransitionSession(ctx, "s1", schema.StatusLive, end)
	assert.ErrorIs(t, err, contract.ErrIllegalTransition)

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, schema.StatusEnded, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.True(t, end.Equal(*got.EndedAt))

	require.NoError(t, s.IncrementMetrics(ctx, "s1", "alice", schema.SpeechDelta{Words: 20, Fillers: 2, SpeakingSeconds: 10}))
	require.NoError(t, s.IncrementMetrics(ctx, "s1", "alice", schema.SpeechDelta{Words: 40, Hesitations: 1, SpeakingSeconds: 20}))
	m, err := s.GetMetrics(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 60, m.WordCount)
	assert.Equal(t, 2, m.FillerCount)
	assert.Equal(t, 1, m.HesitationCount)
	assert.InDelta(t, 120.0, m.SpeechRateWPM, 1e-9)

	p := schema.FluencyProfile{
		UserID: "alice", Tier: schema.TierB1, LastFluencyScore: 82, ConfidenceScore: 71,
		ConfidenceBand: schema.BandHigh, SourceModality: schema.LiveModality, SourceRef: "s1",
		ModelVersion: contract.DefaultModelVersion,
		GateFailures: []schema.FailureCode{schema.FailConfidence},
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, s.UpsertProfile(ctx, p))
	p.Tier = schema.TierB2
	p.CreatedAt = end
	p.UpdatedAt = end
	require.NoError(t, s.UpsertProfile(ctx, p))

	profile, err := s.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, schema.TierB2, profile.Tier)
	assert.True(t, base.Equal(profile.CreatedAt))
	assert.Equal(t, p.GateFailures, profile.GateFailures)

	require.NoError(t, s.RecordDetections(ctx, "alice", "s1", []schema.LexicalDetection{
		{Category: "simple_connectors", MatchCount: 4, TargetTier: schema.TierB2, CeilingTier: schema.TierB1, DetectedAt: end},
	}))
	cats, err := s.ListDetectionCategories(ctx, "alice", base)
	require.NoError(t, err)
	assert.Equal(t, []string{"simple_connectors"}, cats)

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, string(backend), status.Backend)
	assert.Equal(t, uint(2), status.SchemaVersion)
}

// exerciseCLI drives the binary against the same database through environment config.
func exerciseCLI(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()

	_ = os.Setenv("FLUENTGATE_BACKEND", string(backend))
	_ = os.Setenv("FLUENTGATE_DB_CONNECT", connStr)
	defer func() { _ = os.Unsetenv("FLUENTGATE_BACKEND") }()
	defer func() { _ = os.Unsetenv("FLUENTGATE_DB_CONNECT") }()

	out, err := runFluentgateCommand(t, "store", "status")
	require.NoError(t, err)
	assert.Contains(t, out, string(backend))

	_, err = runFluentgateCommand(t, "profile", "link", "auth|alice", "alice")
	require.NoError(t, err)

	out, err = runFluentgateCommand(t, "profile", "show", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	_, err = runFluentgateCommand(t, "promote", "alice", "--advise-demotion")
	require.NoError(t, err)
}
