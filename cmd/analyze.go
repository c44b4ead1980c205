package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/fluentgate/core"
	"github.com/huangsam/fluentgate/internal/outwriter"
	"github.com/huangsam/fluentgate/internal/store"
	"github.com/huangsam/fluentgate/schema"
	"github.com/spf13/cobra"
)

// readJSONInput decodes path into v. A path of "-" reads standard input.
func readJSONInput(path string, v any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// readTranscript loads a transcript file, naming it after the path when it has no source.
func readTranscript(path string) (schema.Transcript, error) {
	var t schema.Transcript
	if err := readJSONInput(path, &t); err != nil {
		return t, err
	}
	if t.Source == "" {
		t.Source = path
	}
	return t, nil
}

// analyzeCmd scores a recorded transcript without writing anything.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <transcript.json>",
	Short: "Score a transcript offline: confidence, weaknesses and lexical ceiling",
	Long: `Analyze a transcript file with word timings the same way a live session is summarized.

The file holds {"text": "...", "words": [{"word": "so", "start": 0.1, "end": 0.3}, ...]}.
Confidence only looks at timing. Lexical ceiling detection scans the tiers above the
speaker's current tier, taken from --tier, the stored profile of --user, or default-tier.

Examples:
  fluentgate analyze call.json --tier B1
  fluentgate analyze call.json --user alice --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := readTranscript(args[0])
		if err != nil {
			return err
		}
		tier, err := analyzeTier(cmd)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter(cfg).WriteAnalysis(core.AnalyzeTranscript(t, tier))
	},
}

// analyzeTier resolves the current tier from --tier, then --user, then default-tier.
func analyzeTier(cmd *cobra.Command) (schema.Tier, error) {
	if raw, _ := cmd.Flags().GetString("tier"); raw != "" {
		return schema.ParseTier(raw)
	}
	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		return cfg.DefaultTier, nil
	}
	s, err := store.Open(cfg.Backend, cfg.DBConnect)
	if err != nil {
		return "", fmt.Errorf("failed to open store: %w", err)
	}
	db = s
	return core.CurrentTier(rootCtx, db, userID, cfg.DefaultTier)
}
