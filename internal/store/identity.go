package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ResolveUserID implements contract.IdentityResolver.
// An identity with no link row resolves to contract.ErrNotFound.
func (s *Store) ResolveUserID(ctx context.Context, externalID string) (string, error) {
	what := "identity " + externalID
	if s.disabled() {
		return "", notFound(sql.ErrNoRows, what)
	}
	var userID string
	q := fmt.Sprintf("SELECT user_id FROM %s WHERE external_id = ?", identitiesTable)
	if err := s.queryRow(ctx, q, externalID).Scan(&userID); err != nil {
		return "", notFound(err, what)
	}
	return userID, nil
}

// LinkIdentity maps an external caller identity onto a canonical user id.
func (s *Store) LinkIdentity(ctx context.Context, externalID, userID string) error {
	if s.disabled() {
		return nil
	}
	q := s.upsertQuery(identitiesTable, []string{"external_id", "user_id"}, []string{"external_id"}, []string{"user_id"})
	if _, err := s.exec(ctx, q, externalID, userID); err != nil {
		return fmt.Errorf("failed to link identity %s: %w", externalID, err)
	}
	return nil
}
