package cmd

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/fluentgate/core"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/internal/outwriter"
	"github.com/huangsam/fluentgate/schema"
	"github.com/spf13/cobra"
)

// profileCmd groups the fluency profile commands.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and update fluency profiles",
	Long: `Inspect and update fluency profiles.

Subcommands:
  show   - Show one profile in detail, or list every profile
  update - Apply a practice result through the promotion gates
  link   - Map an external caller identity onto a canonical user id`,
}

// profileShowCmd prints one or all profiles.
var profileShowCmd = &cobra.Command{
	Use:   "show [user-id]",
	Short: "Show a fluency profile, or all of them",
	Long: `Show the stored fluency profile of a user, including gate failures, lexical
blockers and the most recent audit records. Without a user id, every profile is listed.

Examples:
  fluentgate profile show alice
  fluentgate profile show --output csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: storeSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		var profiles []schema.FluencyProfile
		if len(args) == 1 {
			p, err := db.GetProfile(rootCtx, args[0])
			if errors.Is(err, contract.ErrNotFound) {
				return fmt.Errorf("no profile for %s", args[0])
			}
			if err != nil {
				return err
			}
			profiles = append(profiles, p)
		} else {
			all, err := db.ListProfiles(rootCtx)
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Println("No profiles found.")
				return nil
			}
			profiles = all
		}
		return outwriter.NewOutWriter(cfg).WriteProfiles(profiles)
	},
}

// profileUpdateCmd is the interactive-practice entry into the profile write path.
var profileUpdateCmd = &cobra.Command{
	Use:   "update [payload.json]",
	Short: "Apply a practice result to a profile",
	Long: `Apply one practice result through the gated profile write path.

The payload is a practice completion: {"update": {...}, "interactive": {...}} or
{"update": {...}, "drill": {...}}. The interactive session or drill attempt is
recorded first so it counts toward aggregation. Use "-" to read standard input.

With --transcript the payload is built by analyzing a transcript file instead.

The caller's tier is recorded for audit only; the stored tier moves at most one
step, and only when every gate of the next tier passes.

Examples:
  fluentgate profile update completion.json
  fluentgate profile update --transcript call.json --user alice --session-ref conv-42`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: storeSetup,
	RunE: func(cmd *cobra.Command, args []string) error {
		completion, err := readCompletion(cmd, args)
		if err != nil {
			return err
		}
		outcome := newProfileUpdater().Complete(rootCtx, completion)
		return outwriter.NewOutWriter(cfg).WriteOutcome(outcome)
	},
}

// readCompletion builds the practice completion from a payload file or a transcript.
func readCompletion(cmd *cobra.Command, args []string) (schema.PracticeCompletion, error) {
	var c schema.PracticeCompletion
	transcriptPath, _ := cmd.Flags().GetString("transcript")
	if transcriptPath == "" {
		if len(args) != 1 {
			return c, errors.New("a payload file or --transcript is required")
		}
		if err := readJSONInput(args[0], &c); err != nil {
			return c, err
		}
		if c.Update.UserID == "" {
			return c, errors.New("payload update.user_id is required")
		}
		if !slices.Contains(schema.AllModalities, c.Update.Modality) {
			return c, fmt.Errorf("invalid payload modality %q", c.Update.Modality)
		}
		return c, nil
	}

	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		return c, errors.New("--user is required with --transcript")
	}
	rawModality, _ := cmd.Flags().GetString("modality")
	modality := schema.Modality(rawModality)
	if !slices.Contains(schema.AllModalities, modality) {
		return c, fmt.Errorf("invalid --modality %q. must be live, interactive or drill", rawModality)
	}
	sessionRef, _ := cmd.Flags().GetString("session-ref")

	t, err := readTranscript(transcriptPath)
	if err != nil {
		return c, err
	}
	if sessionRef == "" {
		sessionRef = t.Source
	}
	tier, err := core.CurrentTier(rootCtx, db, userID, cfg.DefaultTier)
	if err != nil {
		return c, err
	}
	analysis := core.AnalyzeTranscript(t, tier)
	c.Update = core.UpdateFromAnalysis(analysis, userID, modality, sessionRef)
	if modality == schema.InteractiveModality {
		c.Interactive = interactiveFromTranscript(t, analysis, userID, sessionRef)
	}
	return c, nil
}

// interactiveFromTranscript records an analyzed transcript as a completed interactive session
// so it counts toward aggregation.
func interactiveFromTranscript(t schema.Transcript, a schema.TranscriptAnalysis, userID, sessionRef string) *schema.InteractiveSession {
	duration := t.DurationSeconds
	if duration <= 0 && len(t.Words) > 0 {
		duration = t.Words[len(t.Words)-1].End
	}
	ended := time.Now().UTC()
	return &schema.InteractiveSession{
		ID:              sessionRef,
		UserID:          userID,
		StartedAt:       ended.Add(-time.Duration(duration * float64(time.Second))),
		EndedAt:         &ended,
		DurationSeconds: duration,
		WordCount:       a.WordCount,
		Completed:       true,
	}
}

// profileLinkCmd maps an external identity onto a canonical user id.
var profileLinkCmd = &cobra.Command{
	Use:   "link <external-id> <user-id>",
	Short: "Link an external identity to a canonical user id",
	Long: `Map an external caller identity (for example an auth provider subject) onto the
canonical user id used by profiles. Profile updates resolve identities through this map
and fall back to the caller identity when no link exists.

Examples:
  fluentgate profile link auth0|123 alice`,
	Args:    cobra.ExactArgs(2),
	PreRunE: storeSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		if err := db.LinkIdentity(rootCtx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Linked %s to %s.\n", args[0], args[1])
		return nil
	},
}
