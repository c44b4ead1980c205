package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/fluentgate/schema"
)

// RecordDetections implements contract.LexicalStore. Detections without a timestamp are stamped now.
func (s *Store) RecordDetections(ctx context.Context, userID, sessionRef string, detections []schema.LexicalDetection) error {
	if s.disabled() || len(detections) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := s.rebind(fmt.Sprintf(`INSERT INTO %s (id, user_id, session_ref, category, target_tier, ceiling_tier,
		matched_words, match_count, detected_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, detectionsTable))
	for _, d := range detections {
		words, err := marshalJSON(nonNil(d.MatchedWords))
		if err != nil {
			return err
		}
		at := d.DetectedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := tx.ExecContext(ctx, q, uuid.NewString(), userID, sessionRef, d.Category,
			string(d.TargetTier), string(d.CeilingTier), words, d.MatchCount, s.formatTime(at)); err != nil {
			return fmt.Errorf("failed to record lexical detection %s for %s: %w", d.Category, userID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lexical detections: %w", err)
	}
	return nil
}

// ListDetectionCategories implements contract.LexicalStore.
func (s *Store) ListDetectionCategories(ctx context.Context, userID string, since time.Time) ([]string, error) {
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT DISTINCT category FROM %s WHERE user_id = ? AND detected_at >= ? ORDER BY category", detectionsTable)
	rows, err := s.query(ctx, q, userID, s.formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query lexical detections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan lexical category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
