package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

// RecordInteractiveSession implements contract.PracticeRecorder.
func (s *Store) RecordInteractiveSession(ctx context.Context, is schema.InteractiveSession) error {
	if s.disabled() {
		return nil
	}
	cols := []string{"id", "user_id", "started_at", "ended_at", "duration_seconds", "word_count",
		"filler_count", "avg_mid_sentence_pause_ms", "completed"}
	q := s.upsertQuery(interactiveTable, cols, []string{"id"}, cols[1:])
	var avg any
	if is.AvgMidSentencePauseMs != nil {
		avg = *is.AvgMidSentencePauseMs
	}
	_, err := s.exec(ctx, q, is.ID, is.UserID, s.formatTime(is.StartedAt), s.formatOptionalTime(is.EndedAt),
		is.DurationSeconds, is.WordCount, is.FillerCount, avg, is.Completed)
	if err != nil {
		return fmt.Errorf("failed to record interactive session %s: %w", is.ID, err)
	}
	return nil
}

// RecordDrillAttempt implements contract.PracticeRecorder.
func (s *Store) RecordDrillAttempt(ctx context.Context, a schema.DrillAttempt) error {
	if s.disabled() {
		return nil
	}
	cols := []string{"id", "user_id", "exercise_id", "weakness", "attempted_at", "duration_seconds",
		"word_count", "completed"}
	q := s.upsertQuery(drillAttemptsTable, cols, []string{"id"}, cols[1:])
	_, err := s.exec(ctx, q, a.ID, a.UserID, a.ExerciseID, string(a.Weakness), s.formatTime(a.AttemptedAt),
		a.DurationSeconds, a.WordCount, a.Completed)
	if err != nil {
		return fmt.Errorf("failed to record drill attempt %s: %w", a.ID, err)
	}
	return nil
}

// PracticeSources returns one source per practice modality, all reading from this store.
func (s *Store) PracticeSources() []contract.PracticeSource {
	return []contract.PracticeSource{
		&LivePractice{store: s},
		&InteractivePractice{store: s},
		&DrillPractice{store: s},
	}
}

// LivePractice reads peer live sessions joined with their speech metrics and summaries.
type LivePractice struct {
	store *Store
}

// Modality implements contract.PracticeSource.
func (*LivePractice) Modality() schema.Modality { return schema.LiveModality }

// ListPractice implements contract.PracticeSource. Metrics and summary rows are optional.
func (p *LivePractice) ListPractice(ctx context.Context, userID string, since time.Time) ([]schema.PracticeRecord, error) {
	s := p.store
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT s.id, s.status, s.started_at, m.speaking_seconds, m.word_count, m.filler_count,
			sm.avg_mid_sentence_pause_ms
		FROM %s s
		LEFT JOIN %s m ON m.session_id = s.id AND m.user_id = ?
		LEFT JOIN %s sm ON sm.session_id = s.id AND sm.user_id = ?
		WHERE (s.participant_a = ? OR s.participant_b = ?) AND s.started_at >= ?
		ORDER BY s.started_at`, sessionsTable, speechMetricsTable, summariesTable)
	rows, err := s.query(ctx, q, userID, userID, userID, userID, s.formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query live practice for %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.PracticeRecord
	for rows.Next() {
		rec := schema.PracticeRecord{Modality: schema.LiveModality}
		var status string
		var secs, avg sql.NullFloat64
		var words, fillers sql.NullInt64
		started := newTimeScanner()
		if err := rows.Scan(&rec.SessionRef, &status, started, &secs, &words, &fillers, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan live practice: %w", err)
		}
		if rec.OccurredAt, err = started.MustTime(); err != nil {
			return nil, err
		}
		rec.Completed = schema.SessionStatus(status) == schema.StatusEnded
		rec.DurationSeconds = nullFloat(secs)
		rec.WordCount = nullInt(words)
		rec.FillerCount = nullInt(fillers)
		rec.AvgMidSentencePauseMs = nullFloat(avg)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InteractivePractice reads AI conversation practice sessions.
type InteractivePractice struct {
	store *Store
}

// Modality implements contract.PracticeSource.
func (*InteractivePractice) Modality() schema.Modality { return schema.InteractiveModality }

// ListPractice implements contract.PracticeSource.
func (p *InteractivePractice) ListPractice(ctx context.Context, userID string, since time.Time) ([]schema.PracticeRecord, error) {
	s := p.store
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT id, started_at, duration_seconds, word_count, filler_count, avg_mid_sentence_pause_ms, completed
		FROM %s WHERE user_id = ? AND started_at >= ? ORDER BY started_at`, interactiveTable)
	rows, err := s.query(ctx, q, userID, s.formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query interactive practice for %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.PracticeRecord
	for rows.Next() {
		rec := schema.PracticeRecord{Modality: schema.InteractiveModality}
		var secs, avg sql.NullFloat64
		var words, fillers sql.NullInt64
		started := newTimeScanner()
		if err := rows.Scan(&rec.SessionRef, started, &secs, &words, &fillers, &avg, &rec.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan interactive practice: %w", err)
		}
		if rec.OccurredAt, err = started.MustTime(); err != nil {
			return nil, err
		}
		rec.DurationSeconds = nullFloat(secs)
		rec.WordCount = nullInt(words)
		rec.FillerCount = nullInt(fillers)
		rec.AvgMidSentencePauseMs = nullFloat(avg)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DrillPractice reads remedial drill attempts. Drills carry no filler or pause data.
type DrillPractice struct {
	store *Store
}

// Modality implements contract.PracticeSource.
func (*DrillPractice) Modality() schema.Modality { return schema.DrillModality }

// ListPractice implements contract.PracticeSource.
func (p *DrillPractice) ListPractice(ctx context.Context, userID string, since time.Time) ([]schema.PracticeRecord, error) {
	s := p.store
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT id, attempted_at, duration_seconds, word_count, completed
		FROM %s WHERE user_id = ? AND attempted_at >= ? ORDER BY attempted_at`, drillAttemptsTable)
	rows, err := s.query(ctx, q, userID, s.formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query drill practice for %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.PracticeRecord
	for rows.Next() {
		rec := schema.PracticeRecord{Modality: schema.DrillModality}
		var secs sql.NullFloat64
		var words sql.NullInt64
		attempted := newTimeScanner()
		if err := rows.Scan(&rec.SessionRef, attempted, &secs, &words, &rec.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan drill practice: %w", err)
		}
		if rec.OccurredAt, err = attempted.MustTime(); err != nil {
			return nil, err
		}
		rec.DurationSeconds = nullFloat(secs)
		rec.WordCount = nullInt(words)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
