// Package cmd defines the command-line interface for fluentgate.
package cmd

import (
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the profile subcommands to the parent profile command
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profileLinkCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storeExportCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("db-connect", "", "Database connection string (sqlite path, user:pass@tcp(host:port)/dbname, or postgres://...)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("model-version", contract.DefaultModelVersion, "Model version stamped on every profile and audit record")
	rootCmd.PersistentFlags().String("default-tier", string(schema.TierA2), "Tier assumed for users without a profile")
	rootCmd.PersistentFlags().String("aggregation-window", "30 days", "How far back practice counts toward promotion")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of monitorCmd to Viper
	monitorCmd.Flags().String("relay-url", "", "Media relay base URL (ws:// or wss://)")
	monitorCmd.Flags().String("room-api-key", "", "API key used as the credential issuer")
	monitorCmd.Flags().String("room-api-secret", "", "API secret used to sign join credentials")
	monitorCmd.Flags().String("bot-identity", contract.DefaultBotIdentityBase, "Identity prefix of the monitoring participant")
	monitorCmd.Flags().String("credential-ttl", "2h", "Lifetime of issued join credentials")
	monitorCmd.Flags().String("discovery-interval", "5s", "How often active sessions are discovered")
	monitorCmd.Flags().String("duration-cap-interval", "60s", "How often the session duration cap is enforced")
	monitorCmd.Flags().String("ended-sweep-interval", "10s", "How often ended sessions are summarized")
	monitorCmd.Flags().String("queue-cleanup-interval", "30s", "How often stale match queue entries are purged")
	monitorCmd.Flags().String("grace-period", "15s", "How long a session survives with fewer than two participants")
	monitorCmd.Flags().String("max-session-duration", "15m", "Hard cap on live session duration")
	monitorCmd.Flags().String("queue-stale-after", "60s", "Age after which match queue entries are purged")
	monitorCmd.Flags().String("stt-url", "", "Streaming speech-to-text listen URL")
	monitorCmd.Flags().String("stt-api-key", "", "Speech-to-text API key")
	monitorCmd.Flags().String("stt-model", "", "Speech-to-text model")
	monitorCmd.Flags().Int("stt-endpointing", contract.DefaultSTTEndpointingMs, "Endpointing silence in milliseconds (0 disables)")
	monitorCmd.Flags().String("stt-filler-words", "yes", "Ask the speech-to-text service to keep filler words")
	monitorCmd.Flags().Int("stt-sample-rate", contract.DefaultSTTSampleRate, "PCM sample rate sent to speech-to-text")
	if err := viper.BindPFlags(monitorCmd.Flags()); err != nil {
		contract.LogFatal("Error binding monitor flags", err)
	}

	// Local flags read straight from the command; "user" is shared and must not collide in Viper
	analyzeCmd.Flags().String("tier", "", "Current tier of the speaker (defaults to the stored profile or default-tier)")
	analyzeCmd.Flags().String("user", "", "Read the current tier from this user's profile")

	// Bind all flags of promoteCmd to Viper
	promoteCmd.Flags().Bool("advise-demotion", false, "Also report the advisory inactivity demotion check")
	if err := viper.BindPFlags(promoteCmd.Flags()); err != nil {
		contract.LogFatal("Error binding promote flags", err)
	}

	profileUpdateCmd.Flags().String("transcript", "", "Analyze this transcript file instead of reading a payload")
	profileUpdateCmd.Flags().String("user", "", "User id for --transcript updates")
	profileUpdateCmd.Flags().String("modality", string(schema.InteractiveModality), "Practice modality for --transcript updates")
	profileUpdateCmd.Flags().String("session-ref", "", "Session reference for --transcript updates")

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
