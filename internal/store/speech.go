package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/huangsam/fluentgate/schema"
)

// speechCounters are the additive columns of the speech metrics row.
var speechCounters = []string{"word_count", "filler_count", "hesitation_count", "speaking_seconds", "grammar_errors"}

// AppendSegment implements contract.SpeechStore.
func (s *Store) AppendSegment(ctx context.Context, seg schema.TranscriptSegment) error {
	if s.disabled() {
		return nil
	}
	words, err := marshalJSON(seg.Words)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (id, session_id, user_id, text, words, captured_at) VALUES (?, ?, ?, ?, ?, ?)", segmentsTable)
	if _, err := s.exec(ctx, q, seg.ID, seg.SessionID, seg.UserID, seg.Text, words, s.formatTime(seg.CapturedAt)); err != nil {
		return fmt.Errorf("failed to append transcript segment for %s/%s: %w", seg.SessionID, seg.UserID, err)
	}
	return nil
}

// IncrementMetrics implements contract.SpeechStore.
func (s *Store) IncrementMetrics(ctx context.Context, sessionID, userID string, delta schema.SpeechDelta) error {
	if s.disabled() {
		return nil
	}
	initialRate := 0.0
	if delta.SpeakingSeconds > 0 {
		initialRate = float64(delta.Words) * 60 / delta.SpeakingSeconds
	}
	_, err := s.exec(ctx, s.incrementMetricsQuery(),
		sessionID, userID, delta.Words, delta.Fillers, delta.Hesitations, delta.SpeakingSeconds, delta.GrammarErrors, initialRate)
	if err != nil {
		return fmt.Errorf("failed to increment speech metrics for %s/%s: %w", sessionID, userID, err)
	}
	return nil
}

// incrementMetricsQuery adds the inserted counters onto an existing row and recomputes the rate
// from the new totals in the same statement.
func (s *Store) incrementMetricsQuery() string {
	insert := fmt.Sprintf(`INSERT INTO %s (session_id, user_id, word_count, filler_count, hesitation_count,
		speaking_seconds, grammar_errors, speech_rate_wpm) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, speechMetricsTable)

	if s.backend == schema.MySQLBackend {
		// MySQL applies assignments left to right, so the rate reads the old totals first.
		sets := []string{`speech_rate_wpm = CASE WHEN speaking_seconds + VALUES(speaking_seconds) > 0
			THEN (word_count + VALUES(word_count)) * 60 / (speaking_seconds + VALUES(speaking_seconds)) ELSE 0 END`}
		for _, c := range speechCounters {
			sets = append(sets, fmt.Sprintf("%s = %s + VALUES(%s)", c, c, c))
		}
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}

	t := speechMetricsTable
	var sets []string
	for _, c := range speechCounters {
		sets = append(sets, fmt.Sprintf("%s = %s.%s + excluded.%s", c, t, c, c))
	}
	sets = append(sets, fmt.Sprintf(`speech_rate_wpm = CASE WHEN %[1]s.speaking_seconds + excluded.speaking_seconds > 0
		THEN (%[1]s.word_count + excluded.word_count) * 60.0 / (%[1]s.speaking_seconds + excluded.speaking_seconds) ELSE 0 END`, t))
	return insert + " ON CONFLICT (session_id, user_id) DO UPDATE SET " + strings.Join(sets, ", ")
}

// GetMetrics implements contract.SpeechStore.
func (s *Store) GetMetrics(ctx context.Context, sessionID, userID string) (schema.SpeechMetrics, error) {
	m := schema.SpeechMetrics{SessionID: sessionID, UserID: userID}
	what := fmt.Sprintf("speech metrics %s/%s", sessionID, userID)
	if s.disabled() {
		return m, notFound(sql.ErrNoRows, what)
	}
	q := fmt.Sprintf(`SELECT word_count, filler_count, hesitation_count, speaking_seconds, speech_rate_wpm, grammar_errors
		FROM %s WHERE session_id = ? AND user_id = ?`, speechMetricsTable)
	err := s.queryRow(ctx, q, sessionID, userID).Scan(
		&m.WordCount, &m.FillerCount, &m.HesitationCount, &m.SpeakingSeconds, &m.SpeechRateWPM, &m.GrammarErrors)
	if err != nil {
		return m, notFound(err, what)
	}
	return m, nil
}

// ListSegments implements contract.SpeechStore.
func (s *Store) ListSegments(ctx context.Context, sessionID, userID string) ([]schema.TranscriptSegment, error) {
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT id, text, words, captured_at FROM %s
		WHERE session_id = ? AND user_id = ? ORDER BY captured_at, id`, segmentsTable)
	rows, err := s.query(ctx, q, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.TranscriptSegment
	for rows.Next() {
		seg := schema.TranscriptSegment{SessionID: sessionID, UserID: userID}
		var words sql.NullString
		captured := newTimeScanner()
		if err := rows.Scan(&seg.ID, &seg.Text, &words, captured); err != nil {
			return nil, fmt.Errorf("failed to scan transcript segment: %w", err)
		}
		if err := unmarshalJSON(words, &seg.Words); err != nil {
			return nil, err
		}
		if seg.CapturedAt, err = captured.MustTime(); err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}
