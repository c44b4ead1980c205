package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeCmd focused on store management.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the session and profile store",
	Long: `Manage the store holding sessions, speech metrics, summaries, practice records and profiles.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (writes are dropped)

Subcommands:
  status  - Show connection details, schema version and table sizes
  migrate - Run database schema migrations
  export  - Export profiles and session summaries to Parquet

Examples:
  # Check store status
  fluentgate store status

  # Use PostgreSQL (set connection string via env variable)
  FLUENTGATE_BACKEND=postgresql FLUENTGATE_DB_CONNECT="postgres://..." fluentgate store status`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details",
	Long: `Show the backend, connection health, schema version and the row count of every table.

Examples:
  fluentgate store status`,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := db.GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		store.PrintStatus(os.Stdout, status)
	},
}

// storeMigrateCmd runs database migrations for the store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the store.

Opening the store always migrates to the latest version. Use --target-version to
move to a specific version afterwards, or 0 to roll everything back.

Examples:
  # Migrate to latest version (default)
  fluentgate store migrate

  # Rollback to the initial state
  fluentgate store migrate --target-version 0`,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		result, err := db.Migrate(viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println(result)
	},
}

// storeExportCmd exports profiles and summaries to Parquet files.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export profiles and session summaries to Parquet",
	Long: `Export every fluency profile and session summary to Parquet for analytics tools.

Writes <output-file>.profiles.parquet and <output-file>.summaries.parquet.

Requires: --output-file parameter

Examples:
  fluentgate store export --output-file fluency
  duckdb -c "SELECT tier, count(*) FROM read_parquet('fluency.profiles.parquet') GROUP BY tier"`,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := db.Export(rootCtx, cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export store data", err)
		}
	},
}
