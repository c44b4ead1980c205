package cmd

import (
	"runtime"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/spf13/cobra"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of fluentgate.",
	Long: `Display version information including build details.

Shows:
- Release version
- Git commit hash
- Build timestamp
- Go runtime version
- Default scoring model version`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("fluentgate CLI\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", commit)
		cmd.Printf("  Built:   %s\n", date)
		cmd.Printf("  Runtime: %s\n", runtime.Version())
		cmd.Printf("  Model:   %s\n", contract.DefaultModelVersion)
	},
}
