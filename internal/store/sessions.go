package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

const sessionColumns = "id, room_name, participant_a, participant_b, status, started_at, ended_at"

// ListSessionsByStatus implements contract.SessionStore.
func (s *Store) ListSessionsByStatus(ctx context.Context, statuses ...schema.SessionStatus) ([]schema.Session, error) {
	if s.disabled() || len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE status IN (%s) ORDER BY started_at",
		sessionColumns, sessionsTable, inPlaceholders(len(statuses)))
	return s.querySessions(ctx, q, args...)
}

// GetSession implements contract.SessionStore.
func (s *Store) GetSession(ctx context.Context, id string) (schema.Session, error) {
	if s.disabled() {
		return schema.Session{}, fmt.Errorf("session %s: %w", id, contract.ErrNotFound)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", sessionColumns, sessionsTable)
	sess, err := s.scanSession(s.queryRow(ctx, q, id))
	if err != nil {
		return schema.Session{}, notFound(err, "session "+id)
	}
	return sess, nil
}

// UpsertSession implements contract.SessionStore.
func (s *Store) UpsertSession(ctx context.Context, sess schema.Session) error {
	if s.disabled() {
		return nil
	}
	q := s.upsertQuery(sessionsTable,
		[]string{"id", "room_name", "participant_a", "participant_b", "status", "started_at", "ended_at"},
		[]string{"id"},
		[]string{"room_name", "participant_a", "participant_b", "status", "started_at", "ended_at"})
	_, err := s.exec(ctx, q,
		sess.ID, sess.RoomName, sess.ParticipantA, sess.ParticipantB, string(sess.Status),
		s.formatTime(sess.StartedAt), s.formatOptionalTime(sess.EndedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", sess.ID, err)
	}
	return nil
}

// TransitionSession implements contract.SessionStore. The UPDATE only matches rows whose
// stored status is a legal predecessor of next, so concurrent writers cannot skip a state.
func (s *Store) TransitionSession(ctx context.Context, id string, next schema.SessionStatus, at time.Time) error {
	if s.disabled() {
		return nil
	}
	preds := next.Predecessors()
	if len(preds) == 0 {
		return fmt.Errorf("session %s to %s: %w", id, next, contract.ErrIllegalTransition)
	}

	args := []any{string(next)}
	setEnded := ""
	if next == schema.StatusEnded {
		setEnded = ", ended_at = ?"
		args = append(args, s.formatTime(at))
	}
	args = append(args, id)
	for _, p := range preds {
		args = append(args, string(p))
	}

	q := fmt.Sprintf("UPDATE %s SET status = ?%s WHERE id = ? AND status IN (%s)",
		sessionsTable, setEnded, inPlaceholders(len(preds)))
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to transition session %s to %s: %w", id, next, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	current, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("session %s from %s to %s: %w", id, current.Status, next, contract.ErrIllegalTransition)
}

// ListUnsummarized implements contract.SessionStore.
func (s *Store) ListUnsummarized(ctx context.Context) ([]schema.Session, error) {
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT %s FROM %s s WHERE s.status = ? AND (
		(s.participant_a <> '' AND NOT EXISTS (SELECT 1 FROM %s m WHERE m.session_id = s.id AND m.user_id = s.participant_a))
		OR (s.participant_b <> '' AND NOT EXISTS (SELECT 1 FROM %s m WHERE m.session_id = s.id AND m.user_id = s.participant_b))
	) ORDER BY s.ended_at`,
		prefixColumns("s", sessionColumns), sessionsTable, summariesTable, summariesTable)
	return s.querySessions(ctx, q, string(schema.StatusEnded))
}

// Enqueue implements contract.MatchQueueStore.
func (s *Store) Enqueue(ctx context.Context, e schema.MatchQueueEntry) error {
	if s.disabled() {
		return nil
	}
	q := s.upsertQuery(matchQueueTable, []string{"user_id", "joined_at"}, []string{"user_id"}, []string{"joined_at"})
	if _, err := s.exec(ctx, q, e.UserID, s.formatTime(e.JoinedAt)); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", e.UserID, err)
	}
	return nil
}

// PurgeStaleQueue implements contract.MatchQueueStore.
func (s *Store) PurgeStaleQueue(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.disabled() {
		return 0, nil
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE joined_at < ?", matchQueueTable)
	res, err := s.exec(ctx, q, s.formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge match queue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *Store) querySessions(ctx context.Context, q string, args ...any) ([]schema.Session, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.Session
	for rows.Next() {
		sess, err := s.scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanSession(row rowScanner) (schema.Session, error) {
	var sess schema.Session
	var status string
	started, ended := newTimeScanner(), newTimeScanner()
	if err := row.Scan(&sess.ID, &sess.RoomName, &sess.ParticipantA, &sess.ParticipantB, &status, started, ended); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sess, err
		}
		return sess, fmt.Errorf("failed to scan session: %w", err)
	}
	sess.Status = schema.SessionStatus(status)
	var err error
	if sess.StartedAt, err = started.MustTime(); err != nil {
		return sess, err
	}
	if sess.EndedAt, err = ended.Time(); err != nil {
		return sess, err
	}
	return sess, nil
}

// prefixColumns qualifies a comma-separated column list with alias.
func prefixColumns(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
