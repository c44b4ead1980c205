package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainConfig() *contract.Config {
	return &contract.Config{Precision: 1, Width: 120, UseColors: false, Output: schema.TextOut}
}

func sampleAnalysis() schema.TranscriptAnalysis {
	return schema.TranscriptAnalysis{
		Source:        "interview.json",
		WordCount:     84,
		CurrentTier:   schema.TierA2,
		FluencyScore:  61.25,
		EstimatedTier: schema.TierB2,
		Confidence: schema.ConfidenceResult{
			Score:       58.4,
			Band:        schema.BandMedium,
			Explanation: "Pauses are irregular.",
			Metrics:     schema.ConfidenceMetrics{MidSentencePauseRatio: 0.125, SpeechRateWPM: 118.3},
			Flags:       schema.HesitationFlags{IrregularPauses: true},
		},
		Weaknesses: []schema.WeaknessTag{schema.WeaknessHesitation},
		LexicalBlockers: []schema.LexicalDetection{{
			Category:     "simple_connectors",
			MatchedWords: []string{"and", "so"},
			Upgrades:     []string{"however", "therefore"},
			MatchCount:   6,
			TargetTier:   schema.TierB1,
			CeilingTier:  schema.TierA2,
		}},
	}
}

func sampleReport() schema.PromotionReport {
	next := schema.TierB2
	suggested := schema.TierA2
	return schema.PromotionReport{
		UserID: "user-1",
		Metrics: schema.AggregatedMetrics{
			TotalSeconds:  4200,
			TotalWords:    5600,
			SessionCount:  11,
			ActiveDays:    8,
			PracticeTypes: []schema.Modality{schema.LiveModality, schema.DrillModality},
			WindowDays:    30,
		},
		Result: schema.PromotionResult{
			CurrentTier: schema.TierB1,
			NextTier:    &next,
			Failures:    []schema.FailureCode{schema.FailConfidence},
			Gates: []schema.GateStatus{
				{Gate: schema.GateWordCount, Code: schema.FailWordCount, Required: ">= 5000", Actual: "5600", Passed: true},
				{Gate: schema.GateConfidence, Code: schema.FailConfidence, Required: "Medium", Actual: "Low", Passed: false},
			},
		},
		Demotion: &schema.DemotionAdvice{
			Recommended:   true,
			CurrentTier:   schema.TierB1,
			SuggestedTier: &suggested,
			InactiveDays:  41,
			ThresholdDays: 30,
			Reason:        "inactive for 41 days (threshold 30)",
		},
	}
}

func sampleProfile() schema.FluencyProfile {
	updated := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return schema.FluencyProfile{
		UserID:           "user-1",
		Tier:             schema.TierB1,
		LastFluencyScore: 72,
		ConfidenceScore:  48.5,
		ConfidenceBand:   schema.BandLow,
		WordCount:        140,
		SourceModality:   schema.InteractiveModality,
		SourceRef:        "conv-9",
		GateFailures:     []schema.FailureCode{schema.FailConfidence},
		ModelVersion:     "fluentgate-2",
		AuditTrail: []schema.AuditRecord{{
			Timestamp:       updated,
			Inputs:          schema.ProfileUpdate{Modality: schema.InteractiveModality},
			PreliminaryTier: schema.TierC1,
			FinalTier:       schema.TierB1,
			Transitions: []schema.TierTransition{
				{Gate: schema.GateConfidence, From: schema.TierC1, To: schema.TierB1},
			},
		}},
		UpdatedAt: updated,
	}
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteAnalysisText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeAnalysisText(&buf, sampleAnalysis(), plainConfig(), newFormatter(1)))
	out := buf.String()

	assert.Contains(t, out, "Transcript: interview.json (current tier A2)")
	assert.Contains(t, out, "confidence_band")
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "12.5%")
	assert.Contains(t, out, "Why: Pauses are irregular.")
	assert.Contains(t, out, "Flags: irregular_pauses")
	assert.Contains(t, out, "Weaknesses: HESITATION")
	assert.Contains(t, out, "simple_connectors")
	assert.NotContains(t, out, "Too few words")
}

func TestWriteAnalysisText_NoBlockers(t *testing.T) {
	a := sampleAnalysis()
	a.LexicalBlockers = nil
	a.Silent = true
	var buf bytes.Buffer
	require.NoError(t, writeAnalysisText(&buf, a, plainConfig(), newFormatter(1)))
	assert.Contains(t, buf.String(), "Too few words to score this transcript.")
	assert.Contains(t, buf.String(), "No lexical ceiling detected.")
}

func TestWriteAnalysisCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeAnalysisCSV(&buf, sampleAnalysis(), newFormatter(2)))
	records := readCSV(t, &buf)

	values := map[string]string{}
	for _, rec := range records[1:] {
		values[rec[0]] = rec[1]
	}
	assert.Equal(t, []string{"metric", "value"}, records[0])
	assert.Equal(t, "Medium", values["confidence_band"])
	assert.Equal(t, "61.25", values["fluency_score"])
	assert.Equal(t, "84", values["words"])
	assert.Equal(t, "irregular_pauses", values["hesitation_flags"])
	assert.Equal(t, "and|so", values["lexical_simple_connectors"])
}

func TestWritePromotionText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePromotionText(&buf, sampleReport(), plainConfig(), newFormatter(1)))
	out := buf.String()

	assert.Contains(t, out, "Promotion B1 -> B2 for user-1: not eligible")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "Last 30 days: 70.0 min speaking, 5600 words, 11 sessions on 8 days, practice live|drill")
	assert.Contains(t, out, "Demotion advisory: B1 -> A2 suggested")
}

func TestWriteDemotionAdvice_NotRecommended(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDemotionAdvice(&buf, schema.DemotionAdvice{Reason: "active within the last 30 days"}))
	assert.Equal(t, "Demotion advisory: none (active within the last 30 days)\n", buf.String())
}

func TestWriteGatesCSV(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	require.NoError(t, writeGatesCSV(&buf, r.UserID, r.Result))
	records := readCSV(t, &buf)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"user-1", "B1", "B2", "confidence", "CONFIDENCE_BAND_TOO_LOW", "Medium", "Low", "FAIL"}, records[2])
}

func TestWriteProfileDetail(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeProfileDetail(&buf, sampleProfile(), plainConfig(), newFormatter(1)))
	out := buf.String()

	assert.Contains(t, out, "user-1")
	assert.Contains(t, out, "48.5 (Low)")
	assert.Contains(t, out, "CONFIDENCE_BAND_TOO_LOW")
	assert.Contains(t, out, "confidence:C1>B1")
	assert.Contains(t, out, "No lexical ceiling detected.")
}

func TestWriteAuditTable_ShowsNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var trail []schema.AuditRecord
	for i := range 7 {
		trail = append(trail, schema.AuditRecord{Timestamp: base.AddDate(0, 0, i), FinalTier: schema.TierA2})
	}
	var buf bytes.Buffer
	require.NoError(t, writeAuditTable(&buf, trail, plainConfig()))
	out := buf.String()

	assert.Contains(t, out, "Showing 5 of 7 audit records")
	assert.Contains(t, out, "2026-03-07")
	assert.NotContains(t, out, "2026-03-02")
	assert.Less(t, strings.Index(out, "2026-03-07"), strings.Index(out, "2026-03-03"))
}

func TestWriteProfilesCSV(t *testing.T) {
	p := sampleProfile()
	p.LexicalBlockers = []schema.LexicalDetection{{Category: "simple_connectors"}, {Category: "basic_adjectives"}}
	var buf bytes.Buffer
	require.NoError(t, writeProfilesCSV(&buf, []schema.FluencyProfile{p}, newFormatter(1)))
	records := readCSV(t, &buf)

	require.Len(t, records, 2)
	assert.Equal(t, "user_id", records[0][0])
	assert.Equal(t, "B1", records[1][1])
	assert.Equal(t, "simple_connectors|basic_adjectives", records[1][8])
	assert.Equal(t, "2026-03-10T12:00:00Z", records[1][10])
}

func TestWriteProfileTable(t *testing.T) {
	other := sampleProfile()
	other.UserID = "user-2"
	var buf bytes.Buffer
	require.NoError(t, writeProfileTable(&buf, []schema.FluencyProfile{sampleProfile(), other}, plainConfig(), newFormatter(1)))
	assert.Contains(t, buf.String(), "user-2")
	assert.Contains(t, buf.String(), "Showing 2 profiles")
}

func TestWriteOutcome(t *testing.T) {
	t.Run("skipped", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutcomeText(&buf, schema.UpdateOutcome{Reason: "insufficient words"}, plainConfig(), newFormatter(1)))
		assert.Equal(t, "Profile not updated: insufficient words\n", buf.String())
	})

	t.Run("applied with capped claim", func(t *testing.T) {
		p := sampleProfile()
		r := sampleReport().Result
		var buf bytes.Buffer
		require.NoError(t, writeOutcomeText(&buf, schema.UpdateOutcome{Applied: true, Profile: &p, Result: &r}, plainConfig(), newFormatter(1)))
		out := buf.String()
		assert.Contains(t, out, "Profile updated: user-1 is B1")
		assert.Contains(t, out, "Gates for B1 -> B2")
		assert.Contains(t, out, "Claimed tier C1 capped at B1 by confidence:C1>B1")
	})

	t.Run("csv", func(t *testing.T) {
		p := sampleProfile()
		r := sampleReport().Result
		var buf bytes.Buffer
		require.NoError(t, writeOutcomeCSV(&buf, schema.UpdateOutcome{Applied: true, Profile: &p, Result: &r}))
		records := readCSV(t, &buf)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"true", "", "user-1", "B1", "false", "CONFIDENCE_BAND_TOO_LOW"}, records[1])
	})
}

func TestWriteProfileResults_JSONFile(t *testing.T) {
	cfg := plainConfig()
	cfg.Output = schema.JSONOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "profile.json")

	require.NoError(t, NewOutWriter(cfg).WriteProfiles([]schema.FluencyProfile{sampleProfile()}))
	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)

	var got schema.FluencyProfile
	require.NoError(t, json.Unmarshal(content, &got))
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, schema.TierB1, got.Tier)
}

func TestWritePromotion_CSVFile(t *testing.T) {
	cfg := plainConfig()
	cfg.Output = schema.CSVOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "gates.csv")

	require.NoError(t, NewOutWriter(cfg).WritePromotion(sampleReport()))
	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(content), "\n"))
}

func TestGetMaxTextWidth(t *testing.T) {
	tests := []struct {
		width, fixed, want int
	}{
		{width: 200, fixed: 50, want: 90},
		{width: 60, fixed: 50, want: 20},
		{width: 100, fixed: 25, want: 65},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetMaxTextWidth(&contract.Config{Width: tt.width}, tt.fixed))
	}
}
