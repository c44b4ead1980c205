// Package parquet provides data structures and functions for exporting fluency
// profiles and session summaries to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/fluentgate/schema"
	"github.com/parquet-go/parquet-go"
)

// Profile represents one canonical fluency profile.
// This struct maps to the fg_fluency_profiles database table.
type Profile struct {
	// UserID is the canonical user identity
	UserID string `parquet:"user_id,snappy"`

	// Tier is the stored CEFR tier
	Tier string `parquet:"tier,snappy"`

	// LastFluencyScore is the raw score reported by the latest practice update
	LastFluencyScore float64 `parquet:"last_fluency_score,snappy"`

	// ConfidenceScore is the latest timing-derived confidence score (0-100)
	ConfidenceScore float64 `parquet:"confidence_score,snappy"`

	// ConfidenceBand is Low, Medium or High
	ConfidenceBand string `parquet:"confidence_band,snappy"`

	// MidSentencePauseRatio is the share of words preceded by a mid-sentence pause
	MidSentencePauseRatio float64 `parquet:"mid_sentence_pause_ratio,snappy"`

	// RecoveryScore is the smoothed recovery ratio, strictly between 0 and 1
	RecoveryScore float64 `parquet:"recovery_score,snappy"`

	// WordCount is the word count of the latest update
	WordCount int32 `parquet:"word_count,snappy"`

	// LexicalBlockers is a comma-separated list of detected ceiling categories
	LexicalBlockers string `parquet:"lexical_blockers,snappy"`

	// GateFailures is a comma-separated list of failed gate codes from the latest evaluation
	GateFailures string `parquet:"gate_failures,snappy"`

	// SourceModality is the practice modality of the latest update
	SourceModality string `parquet:"source_modality,snappy"`

	// ModelVersion is the scoring model that wrote the row
	ModelVersion string `parquet:"model_version,snappy"`

	// AuditRecords is the number of retained audit records
	AuditRecords int32 `parquet:"audit_records,snappy"`

	// AggregatedAt is when the behavioral aggregate was last cached (nullable)
	AggregatedAt *time.Time `parquet:"aggregated_at,optional,snappy"`

	// CreatedAt is when the profile was first written
	CreatedAt time.Time `parquet:"created_at,snappy"`

	// UpdatedAt is when the profile was last written
	UpdatedAt time.Time `parquet:"updated_at,snappy"`
}

// Summary represents the outcome of one live session for one participant.
// This struct maps to the fg_session_summaries database table.
type Summary struct {
	SessionID             string    `parquet:"session_id,snappy"`
	UserID                string    `parquet:"user_id,snappy"`
	ConfidenceScore       float64   `parquet:"confidence_score,snappy"`
	ConfidenceBand        string    `parquet:"confidence_band,snappy"`
	FluencyScore          float64   `parquet:"fluency_score,snappy"`
	AvgMidSentencePauseMs float64   `parquet:"avg_mid_sentence_pause_ms,snappy"`
	Weaknesses            string    `parquet:"weaknesses,snappy"`
	Drills                string    `parquet:"drills,snappy"`
	UpdatedAt             time.Time `parquet:"updated_at,snappy"`
}

// WriteProfilesParquet writes a slice of Profile structs to a Parquet file.
func WriteProfilesParquet(data []Profile, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteSummariesParquet writes a slice of Summary structs to a Parquet file.
func WriteSummariesParquet(data []Summary, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet infers the schema from T's struct tags and writes every row.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertProfiles converts schema.FluencyProfile to Profile for Parquet export.
func ConvertProfiles(profiles []schema.FluencyProfile) []Profile {
	result := make([]Profile, len(profiles))
	for i, p := range profiles {
		blockers := make([]string, 0, len(p.LexicalBlockers))
		for _, d := range p.LexicalBlockers {
			blockers = append(blockers, d.Category)
		}
		failures := make([]string, 0, len(p.GateFailures))
		for _, f := range p.GateFailures {
			failures = append(failures, string(f))
		}
		result[i] = Profile{
			UserID:                p.UserID,
			Tier:                  string(p.Tier),
			LastFluencyScore:      p.LastFluencyScore,
			ConfidenceScore:       p.ConfidenceScore,
			ConfidenceBand:        string(p.ConfidenceBand),
			MidSentencePauseRatio: p.Metrics.MidSentencePauseRatio,
			RecoveryScore:         p.Metrics.RecoveryScore,
			WordCount:             int32(p.WordCount),
			LexicalBlockers:       strings.Join(blockers, ","),
			GateFailures:          strings.Join(failures, ","),
			SourceModality:        string(p.SourceModality),
			ModelVersion:          p.ModelVersion,
			AuditRecords:          int32(len(p.AuditTrail)),
			AggregatedAt:          p.AggregatedAt,
			CreatedAt:             p.CreatedAt,
			UpdatedAt:             p.UpdatedAt,
		}
	}
	return result
}

// ConvertSummaries converts schema.SessionSummary to Summary for Parquet export.
func ConvertSummaries(summaries []schema.SessionSummary) []Summary {
	result := make([]Summary, len(summaries))
	for i, s := range summaries {
		weaknesses := make([]string, len(s.Weaknesses))
		for j, w := range s.Weaknesses {
			weaknesses[j] = string(w)
		}
		drills := make([]string, len(s.Drills))
		for j, d := range s.Drills {
			drills[j] = d.ExerciseID
		}
		result[i] = Summary{
			SessionID:             s.SessionID,
			UserID:                s.UserID,
			ConfidenceScore:       s.ConfidenceScore,
			ConfidenceBand:        string(s.ConfidenceBand),
			FluencyScore:          s.FluencyScore,
			AvgMidSentencePauseMs: s.AvgMidSentencePauseMs,
			Weaknesses:            strings.Join(weaknesses, ","),
			Drills:                strings.Join(drills, ","),
			UpdatedAt:             s.UpdatedAt,
		}
	}
	return result
}
