package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// auditRowsShown caps the audit trail in table output; JSON always carries all of it.
const auditRowsShown = 5

// WriteProfileResults outputs fluency profiles, dispatching on the configured format.
// A single profile gets a detailed view in text mode; several get a summary table.
func WriteProfileResults(profiles []schema.FluencyProfile, cfg *contract.Config) error {
	f := newFormatter(cfg.Precision)
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(profiles) == 1 {
				return writeJSON(w, profiles[0])
			}
			return writeJSON(w, profiles)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeProfilesCSV(w, profiles, f)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(profiles) == 1 {
				return writeProfileDetail(w, profiles[0], cfg, f)
			}
			return writeProfileTable(w, profiles, cfg, f)
		}, "Wrote table")
	}
}

// WriteUpdateOutcome outputs what a profile update did, dispatching on the configured format.
func WriteUpdateOutcome(o schema.UpdateOutcome, cfg *contract.Config) error {
	f := newFormatter(cfg.Precision)
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, o)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeOutcomeCSV(w, o)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeOutcomeText(w, o, cfg, f)
		}, "Wrote table")
	}
}

func writeProfileTable(w io.Writer, profiles []schema.FluencyProfile, cfg *contract.Config, f formatter) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"User", "Tier", "Fluency", "Confidence", "Band", "Words", "Source", "Updated"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, p := range profiles {
		data = append(data, []string{
			contract.TruncateText(p.UserID, GetMaxTextWidth(cfg, 70)),
			tierLabel(p.Tier, cfg),
			f.Float(p.LastFluencyScore),
			f.Float(p.ConfidenceScore),
			bandLabel(p.ConfidenceBand, cfg),
			f.Int(p.WordCount),
			orDash(string(p.SourceModality)),
			p.UpdatedAt.Format(contract.DateTimeFormat),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d profiles\n", len(profiles))
	return err
}

func writeProfileDetail(w io.Writer, p schema.FluencyProfile, cfg *contract.Config, f formatter) error {
	maxText := GetMaxTextWidth(cfg, 25)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Field", "Value"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignLeft}
	})
	data := [][]string{
		{"User", p.UserID},
		{"Tier", tierLabel(p.Tier, cfg)},
		{"Fluency", f.Float(p.LastFluencyScore)},
		{"Confidence", fmt.Sprintf("%s (%s)", f.Float(p.ConfidenceScore), bandLabel(p.ConfidenceBand, cfg))},
		{"Why", contract.TruncateText(orDash(p.ConfidenceExplanation), maxText)},
		{"Words", f.Int(p.WordCount)},
		{"Source", fmt.Sprintf("%s %s", orDash(string(p.SourceModality)), p.SourceRef)},
		{"Gate failures", orDash(schema.JoinFailures(p.GateFailures))},
		{"Model", orDash(p.ModelVersion)},
		{"Updated", p.UpdatedAt.Format(contract.DateTimeFormat)},
	}
	if p.Aggregated != nil {
		a := p.Aggregated
		data = append(data,
			[]string{"Practice", fmt.Sprintf("%s, %d words, %d sessions, %d days", f.Minutes(a.TotalSeconds), a.TotalWords, a.SessionCount, a.ActiveDays)},
			[]string{"Fillers/min", f.Float(a.CrutchWordRatePerMin)},
		)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if err := writeLexicalTable(w, p.LexicalBlockers, cfg); err != nil {
		return err
	}
	return writeAuditTable(w, p.AuditTrail, cfg)
}

// writeAuditTable renders the newest audit records first.
func writeAuditTable(w io.Writer, trail []schema.AuditRecord, cfg *contract.Config) error {
	if len(trail) == 0 {
		return nil
	}
	maxText := GetMaxTextWidth(cfg, 60)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"When", "Source", "Claimed", "Final", "Eligible", "Transitions"})
	var data [][]string
	shown := 0
	for i := len(trail) - 1; i >= 0 && shown < auditRowsShown; i-- {
		r := trail[i]
		data = append(data, []string{
			r.Timestamp.Format(contract.DateTimeFormat),
			orDash(string(r.Inputs.Modality)),
			tierLabel(r.PreliminaryTier, cfg),
			tierLabel(r.FinalTier, cfg),
			yesNo(r.Eligible),
			contract.TruncateText(formatTransitions(r.Transitions), maxText),
		})
		shown++
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if len(trail) > shown {
		_, err := fmt.Fprintf(w, "Showing %d of %d audit records\n", shown, len(trail))
		return err
	}
	return nil
}

// formatTransitions renders transitions as "gate:FROM>TO" pairs.
func formatTransitions(ts []schema.TierTransition) string {
	if len(ts) == 0 {
		return "-"
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = fmt.Sprintf("%s:%s>%s", t.Gate, t.From, t.To)
	}
	return strings.Join(parts, ", ")
}

func writeOutcomeText(w io.Writer, o schema.UpdateOutcome, cfg *contract.Config, f formatter) error {
	if o.Applied && o.Profile != nil {
		if _, err := fmt.Fprintf(w, "Profile updated: %s is %s\n", o.Profile.UserID, tierLabel(o.Profile.Tier, cfg)); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintf(w, "Profile not updated: %s\n", orDash(o.Reason)); err != nil {
		return err
	}
	if o.Result != nil {
		if _, err := fmt.Fprintf(w, "Gates for %s\n", schema.TierPath(o.Result.CurrentTier, o.Result.NextTier)); err != nil {
			return err
		}
		if err := writeGateTable(w, o.Result.Gates, cfg); err != nil {
			return err
		}
	}
	if o.Profile != nil && len(o.Profile.AuditTrail) > 0 {
		last := o.Profile.AuditTrail[len(o.Profile.AuditTrail)-1]
		if len(last.Transitions) > 0 {
			if _, err := fmt.Fprintf(w, "Claimed tier %s capped at %s by %s\n", last.PreliminaryTier, last.FinalTier, formatTransitions(last.Transitions)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "Confidence %s (%s)\n", f.Float(o.Profile.ConfidenceScore), bandLabel(o.Profile.ConfidenceBand, cfg)); err != nil {
			return err
		}
	}
	return nil
}

func writeOutcomeCSV(w io.Writer, o schema.UpdateOutcome) error {
	header := []string{"applied", "reason", "user_id", "tier", "eligible", "failures"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		var userID, tier string
		if o.Profile != nil {
			userID = o.Profile.UserID
			tier = string(o.Profile.Tier)
		}
		var eligible, failures string
		if o.Result != nil {
			eligible = fmt.Sprint(o.Result.Eligible)
			failures = schema.JoinFailures(o.Result.Failures)
		}
		return cw.Write([]string{fmt.Sprint(o.Applied), o.Reason, userID, tier, eligible, failures})
	})
}

func writeProfilesCSV(w io.Writer, profiles []schema.FluencyProfile, f formatter) error {
	header := []string{
		"user_id",
		"tier",
		"last_fluency_score",
		"confidence_score",
		"confidence_band",
		"word_count",
		"source_modality",
		"gate_failures",
		"lexical_blockers",
		"model_version",
		"updated_at",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, p := range profiles {
			categories := make([]string, len(p.LexicalBlockers))
			for i, d := range p.LexicalBlockers {
				categories[i] = d.Category
			}
			rec := []string{
				p.UserID,
				string(p.Tier),
				f.Float(p.LastFluencyScore),
				f.Float(p.ConfidenceScore),
				string(p.ConfidenceBand),
				f.Int(p.WordCount),
				string(p.SourceModality),
				schema.JoinFailures(p.GateFailures),
				strings.Join(categories, "|"),
				p.ModelVersion,
				p.UpdatedAt.Format(contract.DateTimeFormat),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
