package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/internal/store"
	"github.com/huangsam/fluentgate/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// logger is built from log-level and log-format once the config is validated.
var logger = contract.DiscardLogger()

// db is the store opened by storeSetup. It stays nil for commands that never touch it.
var db *store.Store

// envFiles are loaded in order before viper reads the environment. Existing variables win.
var envFiles = []string{".env.local", ".env"}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "fluentgate",
	Short:              "Assess spoken fluency from live sessions and gate tier promotion.",
	Long:               `Fluentgate monitors live conversation rooms, scores speaking confidence from word timing, and promotes speakers through CEFR tiers only when the behavioral gates pass.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeStore()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			contract.LogWarn("could not load "+f, err)
		}
	}

	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".fluentgate") // Name of config file (without extension)
		viper.SetConfigType("yaml")        // We'll use YAML format
		viper.AddConfigPath(".")           // Look in the current directory
		viper.AddConfigPath("$HOME")       // Look in the home directory
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("FLUENTGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("backend", schema.SQLiteBackend)
	viper.SetDefault("db-connect", "")
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")
	viper.SetDefault("model-version", contract.DefaultModelVersion)
	viper.SetDefault("default-tier", schema.TierA2)
	viper.SetDefault("aggregation-window", fmt.Sprintf("%d days", contract.DefaultAggregationDays))
	viper.SetDefault("stt-sample-rate", contract.DefaultSTTSampleRate)
	viper.SetDefault("stt-endpointing", contract.DefaultSTTEndpointingMs)
	viper.SetDefault("stt-filler-words", "yes")
}

// loadConfigFile reads the config file if present.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and builds the logger.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	logger = contract.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// storeSetup runs sharedSetup and opens the configured store.
func storeSetup(cmd *cobra.Command, args []string) error {
	if err := sharedSetup(rootCtx, cmd, args); err != nil {
		return err
	}
	s, err := store.Open(cfg.Backend, cfg.DBConnect)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	db = s
	logger.Debug("store opened", "backend", cfg.Backend)
	return nil
}

func closeStore() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = closeStore() }()
	return rootCmd.Execute()
}
