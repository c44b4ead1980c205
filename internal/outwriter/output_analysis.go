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

// WriteAnalysisResult outputs a transcript analysis, dispatching on the configured format.
func WriteAnalysisResult(a schema.TranscriptAnalysis, cfg *contract.Config) error {
	f := newFormatter(cfg.Precision)
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, a)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAnalysisCSV(w, a, f)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAnalysisText(w, a, cfg, f)
		}, "Wrote table")
	}
}

// analysisRows lists the metric rows shared by the table and CSV renderings.
func analysisRows(a schema.TranscriptAnalysis, f formatter) [][2]string {
	m := a.Confidence.Metrics
	return [][2]string{
		{"words", f.Int(a.WordCount)},
		{"fluency_score", f.Float(a.FluencyScore)},
		{"estimated_tier", string(a.EstimatedTier)},
		{"confidence_score", f.Float(a.Confidence.Score)},
		{"confidence_band", string(a.Confidence.Band)},
		{"avg_pause_ms", f.Float(m.AvgPauseMs)},
		{"mid_sentence_pause_ratio", f.Ratio(m.MidSentencePauseRatio)},
		{"mid_sentence_pause_count", f.Int(m.MidSentencePauseCount)},
		{"avg_mid_sentence_pause_ms", f.Float(m.AvgMidSentencePauseMs)},
		{"pause_variance", f.Float(m.PauseVariance)},
		{"speech_rate_wpm", f.Float(m.SpeechRateWPM)},
		{"speech_rate_variance", f.Float(m.SpeechRateVariance)},
		{"recovery_score", f.Float(m.RecoveryScore)},
	}
}

// flagNames lists the hesitation flags that fired.
func flagNames(fl schema.HesitationFlags) []string {
	var out []string
	if fl.FrequentMidSentencePauses {
		out = append(out, "frequent_mid_sentence_pauses")
	}
	if fl.IrregularPauses {
		out = append(out, "irregular_pauses")
	}
	if fl.UnevenPace {
		out = append(out, "uneven_pace")
	}
	if fl.WeakRecovery {
		out = append(out, "weak_recovery")
	}
	return out
}

func writeAnalysisText(w io.Writer, a schema.TranscriptAnalysis, cfg *contract.Config, f formatter) error {
	if _, err := fmt.Fprintf(w, "Transcript: %s (current tier %s)\n", orDash(a.Source), tierLabel(a.CurrentTier, cfg)); err != nil {
		return err
	}
	if a.Silent {
		if _, err := fmt.Fprintln(w, "Too few words to score this transcript."); err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignRight}
	})
	var data [][]string
	for _, row := range analysisRows(a, f) {
		value := row[1]
		switch row[0] {
		case "confidence_band":
			value = bandLabel(a.Confidence.Band, cfg)
		case "estimated_tier":
			value = tierLabel(a.EstimatedTier, cfg)
		}
		data = append(data, []string{row[0], value})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if a.Confidence.Explanation != "" {
		if _, err := fmt.Fprintf(w, "Why: %s\n", a.Confidence.Explanation); err != nil {
			return err
		}
	}
	if flags := flagNames(a.Confidence.Flags); len(flags) > 0 {
		if _, err := fmt.Fprintf(w, "Flags: %s\n", strings.Join(flags, ", ")); err != nil {
			return err
		}
	}
	if len(a.Weaknesses) > 0 {
		if _, err := fmt.Fprintf(w, "Weaknesses: %s\n", strings.ReplaceAll(schema.JoinWeaknesses(a.Weaknesses), "|", ", ")); err != nil {
			return err
		}
	}
	return writeLexicalTable(w, a.LexicalBlockers, cfg)
}

// writeLexicalTable renders lexical ceiling detections. Nothing is written when there are none.
func writeLexicalTable(w io.Writer, detections []schema.LexicalDetection, cfg *contract.Config) error {
	if len(detections) == 0 {
		_, err := fmt.Fprintln(w, "No lexical ceiling detected.")
		return err
	}
	maxText := GetMaxTextWidth(cfg, 50)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Target", "Category", "Matches", "Overused", "Try instead"})
	var data [][]string
	for _, d := range detections {
		data = append(data, []string{
			tierLabel(d.TargetTier, cfg),
			d.Category,
			fmt.Sprint(d.MatchCount),
			strings.Join(d.MatchedWords, ", "),
			contract.TruncateText(strings.Join(d.Upgrades, ", "), maxText),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeAnalysisCSV(w io.Writer, a schema.TranscriptAnalysis, f formatter) error {
	return writeCSVWithHeader(w, []string{"metric", "value"}, func(cw *csv.Writer) error {
		for _, row := range analysisRows(a, f) {
			if err := cw.Write(row[:]); err != nil {
				return err
			}
		}
		extra := [][]string{
			{"hesitation_flags", strings.Join(flagNames(a.Confidence.Flags), "|")},
			{"weaknesses", schema.JoinWeaknesses(a.Weaknesses)},
		}
		for _, d := range a.LexicalBlockers {
			extra = append(extra, []string{"lexical_" + d.Category, strings.Join(d.MatchedWords, "|")})
		}
		for _, rec := range extra {
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
