package store

import (
	"context"
	"fmt"

	"github.com/huangsam/fluentgate/schema"
)

// ListExercises implements contract.ExerciseStore.
func (s *Store) ListExercises(ctx context.Context, weakness schema.WeaknessTag) ([]schema.Exercise, error) {
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT id, weakness, title, instructions FROM %s WHERE weakness = ? ORDER BY id", exercisesTable)
	rows, err := s.query(ctx, q, string(weakness))
	if err != nil {
		return nil, fmt.Errorf("failed to query exercises for %s: %w", weakness, err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.Exercise
	for rows.Next() {
		var e schema.Exercise
		var tag string
		if err := rows.Scan(&e.ID, &tag, &e.Title, &e.Instructions); err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		e.Weakness = schema.WeaknessTag(tag)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertExercise implements contract.ExerciseStore.
func (s *Store) UpsertExercise(ctx context.Context, e schema.Exercise) error {
	if s.disabled() {
		return nil
	}
	q := s.upsertQuery(exercisesTable,
		[]string{"id", "weakness", "title", "instructions"},
		[]string{"id"},
		[]string{"weakness", "title", "instructions"})
	if _, err := s.exec(ctx, q, e.ID, string(e.Weakness), e.Title, e.Instructions); err != nil {
		return fmt.Errorf("failed to upsert exercise %s: %w", e.ID, err)
	}
	return nil
}
