package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/huangsam/fluentgate/schema"
)

const summaryColumns = "session_id, user_id, confidence_score, confidence_band, fluency_score, avg_mid_sentence_pause_ms, weaknesses, drills, updated_at"

// UpsertSummary implements contract.SummaryStore. Re-summarizing a session replaces its row.
func (s *Store) UpsertSummary(ctx context.Context, sum schema.SessionSummary) error {
	if s.disabled() {
		return nil
	}
	weaknesses, err := marshalJSON(nonNil(sum.Weaknesses))
	if err != nil {
		return err
	}
	drills, err := marshalJSON(nonNil(sum.Drills))
	if err != nil {
		return err
	}
	q := s.upsertQuery(summariesTable,
		[]string{"session_id", "user_id", "confidence_score", "confidence_band", "fluency_score",
			"avg_mid_sentence_pause_ms", "weaknesses", "drills", "updated_at"},
		[]string{"session_id", "user_id"},
		[]string{"confidence_score", "confidence_band", "fluency_score",
			"avg_mid_sentence_pause_ms", "weaknesses", "drills", "updated_at"})
	_, err = s.exec(ctx, q,
		sum.SessionID, sum.UserID, sum.ConfidenceScore, string(sum.ConfidenceBand), sum.FluencyScore,
		sum.AvgMidSentencePauseMs, weaknesses, drills, s.formatTime(sum.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert summary %s/%s: %w", sum.SessionID, sum.UserID, err)
	}
	return nil
}

// GetSummary implements contract.SummaryStore.
func (s *Store) GetSummary(ctx context.Context, sessionID, userID string) (schema.SessionSummary, error) {
	what := fmt.Sprintf("summary %s/%s", sessionID, userID)
	if s.disabled() {
		return schema.SessionSummary{}, notFound(sql.ErrNoRows, what)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE session_id = ? AND user_id = ?", summaryColumns, summariesTable)
	sum, err := s.scanSummary(s.queryRow(ctx, q, sessionID, userID))
	if err != nil {
		return schema.SessionSummary{}, notFound(err, what)
	}
	return sum, nil
}

// ListSummaries implements contract.SummaryStore.
func (s *Store) ListSummaries(ctx context.Context) ([]schema.SessionSummary, error) {
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY updated_at, session_id, user_id", summaryColumns, summariesTable)
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.SessionSummary
	for rows.Next() {
		sum, err := s.scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) scanSummary(row rowScanner) (schema.SessionSummary, error) {
	var sum schema.SessionSummary
	var band string
	var weaknesses, drills sql.NullString
	updated := newTimeScanner()
	if err := row.Scan(&sum.SessionID, &sum.UserID, &sum.ConfidenceScore, &band, &sum.FluencyScore,
		&sum.AvgMidSentencePauseMs, &weaknesses, &drills, updated); err != nil {
		return sum, err
	}
	sum.ConfidenceBand = schema.ConfidenceBand(band)
	if err := unmarshalJSON(weaknesses, &sum.Weaknesses); err != nil {
		return sum, err
	}
	if err := unmarshalJSON(drills, &sum.Drills); err != nil {
		return sum, err
	}
	var err error
	sum.UpdatedAt, err = updated.MustTime()
	return sum, err
}

// nonNil turns a nil slice into an empty one so JSON columns hold [] instead of null.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
