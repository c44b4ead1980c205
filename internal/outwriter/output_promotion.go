package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WritePromotionReport outputs a promotion decision, dispatching on the configured format.
func WritePromotionReport(r schema.PromotionReport, cfg *contract.Config) error {
	f := newFormatter(cfg.Precision)
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, r)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGatesCSV(w, r.UserID, r.Result)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePromotionText(w, r, cfg, f)
		}, "Wrote table")
	}
}

func writePromotionText(w io.Writer, r schema.PromotionReport, cfg *contract.Config, f formatter) error {
	verdict := "not eligible"
	if r.Result.Eligible {
		verdict = "eligible"
	}
	if _, err := fmt.Fprintf(w, "Promotion %s for %s: %s\n",
		schema.TierPath(r.Result.CurrentTier, r.Result.NextTier), r.UserID, verdict); err != nil {
		return err
	}
	if err := writeGateTable(w, r.Result.Gates, cfg); err != nil {
		return err
	}

	m := r.Metrics
	if _, err := fmt.Fprintf(w, "Last %d days: %s speaking, %d words, %d sessions on %d days, practice %s\n",
		m.WindowDays, f.Minutes(m.TotalSeconds), m.TotalWords, m.SessionCount, m.ActiveDays,
		orDash(schema.JoinModalities(m.PracticeTypes))); err != nil {
		return err
	}
	if d := r.Demotion; d != nil {
		if err := writeDemotionAdvice(w, *d); err != nil {
			return err
		}
	}
	return nil
}

// writeGateTable renders one row per evaluated gate.
func writeGateTable(w io.Writer, gates []schema.GateStatus, cfg *contract.Config) error {
	if len(gates) == 0 {
		_, err := fmt.Fprintln(w, "No gates to evaluate.")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Gate", "Required", "Actual", "Status"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignCenter}
	})
	var data [][]string
	for _, g := range gates {
		data = append(data, []string{g.Gate, g.Required, g.Actual, passedLabel(g.Passed, cfg)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeDemotionAdvice(w io.Writer, d schema.DemotionAdvice) error {
	if !d.Recommended {
		_, err := fmt.Fprintf(w, "Demotion advisory: none (%s)\n", d.Reason)
		return err
	}
	suggested := "-"
	if d.SuggestedTier != nil {
		suggested = string(*d.SuggestedTier)
	}
	_, err := fmt.Fprintf(w, "Demotion advisory: %s -> %s suggested, %s. Not applied automatically.\n",
		d.CurrentTier, suggested, d.Reason)
	return err
}

func writeGatesCSV(w io.Writer, userID string, res schema.PromotionResult) error {
	next := ""
	if res.NextTier != nil {
		next = string(*res.NextTier)
	}
	header := []string{"user_id", "current_tier", "next_tier", "gate", "code", "required", "actual", "passed"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, g := range res.Gates {
			rec := []string{
				userID,
				string(res.CurrentTier),
				next,
				g.Gate,
				string(g.Code),
				g.Required,
				g.Actual,
				contract.GetPlainPassed(g.Passed),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
