package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/fluentgate/core/lifecycle"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/internal/relay"
	"github.com/huangsam/fluentgate/internal/roomauth"
	"github.com/huangsam/fluentgate/internal/stt"
	"github.com/spf13/cobra"
)

// monitorSetup validates the monitor-only settings on top of the store setup.
func monitorSetup(cmd *cobra.Command, args []string) error {
	if err := storeSetup(cmd, args); err != nil {
		return err
	}
	return contract.ValidateMonitorConfig(cfg, input)
}

// monitorCmd runs the session lifecycle monitor until interrupted.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor live conversation rooms and finalize sessions",
	Long: `Run the long-lived session lifecycle monitor.

The monitor discovers waiting and live sessions, joins each room as a hidden
participant, streams every speaker's audio to speech-to-text, and records
transcript segments and running speech metrics. Sessions end when fewer than
two participants remain past the grace period, or when they hit the maximum
duration. Ended sessions are summarized and fed through the promotion gates.

Examples:
  # Run against a local relay and speech-to-text service
  FLUENTGATE_ROOM_API_SECRET=... fluentgate monitor \
    --relay-url ws://localhost:7880 --stt-url ws://localhost:8080/v1/listen`,
	PreRunE: monitorSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		issuer, err := roomauth.NewIssuer(cfg.Monitor.RoomAPIKey, cfg.Monitor.RoomAPISecret)
		if err != nil {
			return err
		}
		updater := newProfileUpdater()
		mgr := lifecycle.NewManager(lifecycle.Deps{
			Sessions:   db,
			Queue:      db,
			Speech:     db,
			Summarizer: newSummarizer(updater),
			Connector:  relay.NewConnector(cfg.Monitor.RelayURL, logger),
			Issuer:     issuer,
			STT:        stt.NewClient(cfg.STT, logger),
		}, cfg.Monitor, nil, lifecycle.RealClock{}, logger)

		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("monitor starting", "bot_identity", mgr.BotIdentity(), "relay_url", cfg.Monitor.RelayURL)
		if err := mgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
