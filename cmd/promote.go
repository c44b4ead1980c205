package cmd

import (
	"time"

	"github.com/huangsam/fluentgate/core"
	"github.com/huangsam/fluentgate/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// promoteCmd shows the gate-by-gate promotion decision for one user.
var promoteCmd = &cobra.Command{
	Use:   "promote <user-id>",
	Short: "Evaluate the promotion gates for a user",
	Long: `Aggregate a user's recent practice across live, interactive and drill sessions
and evaluate every gate guarding the next tier. Nothing is written: the stored tier
only moves through profile updates.

With --advise-demotion the report also includes the inactivity advisory. Demotion
is never applied automatically.

Examples:
  fluentgate promote alice
  fluentgate promote alice --advise-demotion --output csv --output-file gates.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: storeSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		report, err := core.BuildPromotionReport(rootCtx, db, newAggregator(), args[0],
			cfg.DefaultTier, time.Now().UTC(), viper.GetBool("advise-demotion"))
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter(cfg).WritePromotion(report)
	},
}
