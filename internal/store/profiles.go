package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/huangsam/fluentgate/schema"
)

var profileColumns = []string{
	"user_id", "tier", "last_fluency_score", "confidence_score", "confidence_band",
	"confidence_explanation", "metrics", "word_count", "lexical_blockers", "source_modality",
	"source_ref", "model_version", "audit_trail", "gate_failures", "aggregated", "aggregated_at",
	"created_at", "updated_at",
}

// GetProfile implements contract.ProfileStore.
func (s *Store) GetProfile(ctx context.Context, userID string) (schema.FluencyProfile, error) {
	what := "profile " + userID
	if s.disabled() {
		return schema.FluencyProfile{}, notFound(sql.ErrNoRows, what)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ?", strings.Join(profileColumns, ", "), profilesTable)
	p, err := s.scanProfile(s.queryRow(ctx, q, userID))
	if err != nil {
		return schema.FluencyProfile{}, notFound(err, what)
	}
	return p, nil
}

// UpsertProfile implements contract.ProfileStore. created_at is kept from the first insert.
func (s *Store) UpsertProfile(ctx context.Context, p schema.FluencyProfile) error {
	if s.disabled() {
		return nil
	}
	metrics, err := marshalJSON(p.Metrics)
	if err != nil {
		return err
	}
	blockers, err := marshalJSON(nonNil(p.LexicalBlockers))
	if err != nil {
		return err
	}
	audit, err := marshalJSON(nonNil(p.AuditTrail))
	if err != nil {
		return err
	}
	failures, err := marshalJSON(nonNil(p.GateFailures))
	if err != nil {
		return err
	}
	var aggregated any
	if p.Aggregated != nil {
		if aggregated, err = marshalJSON(p.Aggregated); err != nil {
			return err
		}
	}

	q := s.upsertQuery(profilesTable, profileColumns, []string{"user_id"}, profileColumns[1:len(profileColumns)-2])
	q += s.updatedAtSuffix()
	_, err = s.exec(ctx, q,
		p.UserID, string(p.Tier), p.LastFluencyScore, p.ConfidenceScore, string(p.ConfidenceBand),
		p.ConfidenceExplanation, metrics, p.WordCount, blockers, string(p.SourceModality),
		p.SourceRef, p.ModelVersion, audit, failures, aggregated, s.formatOptionalTime(p.AggregatedAt),
		s.formatTime(p.CreatedAt), s.formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

// updatedAtSuffix appends the updated_at assignment to an upsert built by upsertQuery.
func (s *Store) updatedAtSuffix() string {
	if s.backend == schema.MySQLBackend {
		return ", updated_at = VALUES(updated_at)"
	}
	return ", updated_at = excluded.updated_at"
}

// ListProfiles implements contract.ProfileStore.
func (s *Store) ListProfiles(ctx context.Context) ([]schema.FluencyProfile, error) {
	if s.disabled() {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY user_id", strings.Join(profileColumns, ", "), profilesTable)
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.FluencyProfile
	for rows.Next() {
		p, err := s.scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) scanProfile(row rowScanner) (schema.FluencyProfile, error) {
	var p schema.FluencyProfile
	var tier, band, modality string
	var metrics, blockers, audit, failures, aggregated sql.NullString
	aggregatedAt, created, updated := newTimeScanner(), newTimeScanner(), newTimeScanner()

	err := row.Scan(&p.UserID, &tier, &p.LastFluencyScore, &p.ConfidenceScore, &band,
		&p.ConfidenceExplanation, &metrics, &p.WordCount, &blockers, &modality,
		&p.SourceRef, &p.ModelVersion, &audit, &failures, &aggregated, aggregatedAt,
		created, updated)
	if err != nil {
		return p, err
	}
	p.Tier = schema.Tier(tier)
	p.ConfidenceBand = schema.ConfidenceBand(band)
	p.SourceModality = schema.Modality(modality)

	for _, col := range []struct {
		raw sql.NullString
		dst any
	}{
		{metrics, &p.Metrics},
		{blockers, &p.LexicalBlockers},
		{audit, &p.AuditTrail},
		{failures, &p.GateFailures},
	} {
		if err := unmarshalJSON(col.raw, col.dst); err != nil {
			return p, err
		}
	}
	if aggregated.Valid {
		p.Aggregated = &schema.AggregatedMetrics{}
		if err := unmarshalJSON(aggregated, p.Aggregated); err != nil {
			return p, err
		}
	}
	if p.AggregatedAt, err = aggregatedAt.Time(); err != nil {
		return p, err
	}
	if p.CreatedAt, err = created.MustTime(); err != nil {
		return p, err
	}
	if p.UpdatedAt, err = updated.MustTime(); err != nil {
		return p, err
	}
	return p, nil
}
