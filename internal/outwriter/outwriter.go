// Package outwriter renders analysis, promotion and profile results as text tables, JSON or CSV.
package outwriter

import (
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct {
	cfg *contract.Config
}

// NewOutWriter creates an output writer bound to the rendering settings of cfg.
func NewOutWriter(cfg *contract.Config) *OutWriter {
	return &OutWriter{cfg: cfg}
}

// WriteAnalysis prints an offline transcript analysis.
func (ow *OutWriter) WriteAnalysis(a schema.TranscriptAnalysis) error {
	return WriteAnalysisResult(a, ow.cfg)
}

// WritePromotion prints a promotion report.
func (ow *OutWriter) WritePromotion(r schema.PromotionReport) error {
	return WritePromotionReport(r, ow.cfg)
}

// WriteProfiles prints one or more fluency profiles.
func (ow *OutWriter) WriteProfiles(profiles []schema.FluencyProfile) error {
	return WriteProfileResults(profiles, ow.cfg)
}

// WriteOutcome prints the outcome of a profile update.
func (ow *OutWriter) WriteOutcome(o schema.UpdateOutcome) error {
	return WriteUpdateOutcome(o, ow.cfg)
}

// bandLabel returns the band label, colored when the config asks for it.
func bandLabel(band schema.ConfidenceBand, cfg *contract.Config) string {
	if band == "" {
		return "-"
	}
	if cfg.UseColors {
		return contract.GetColorBand(band)
	}
	return string(band)
}

// passedLabel returns PASS or FAIL, colored when the config asks for it.
func passedLabel(passed bool, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorPassed(passed)
	}
	return contract.GetPlainPassed(passed)
}

// tierLabel highlights a tier when colors are on.
func tierLabel(tier schema.Tier, cfg *contract.Config) string {
	if tier == "" {
		return "-"
	}
	if cfg.UseColors {
		return contract.TierColor.Sprint(string(tier))
	}
	return string(tier)
}

// orDash renders empty values as a dash in tables.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// yesNo renders a boolean for human-readable tables.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
