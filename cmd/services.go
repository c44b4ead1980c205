package cmd

import (
	"github.com/huangsam/fluentgate/core"
	"github.com/huangsam/fluentgate/core/agg"
	"github.com/huangsam/fluentgate/internal/mcp"
)

// newAggregator builds the metrics aggregator over every practice modality of the open store.
func newAggregator() *agg.Aggregator {
	return agg.NewAggregator(db.PracticeSources(), db, db, cfg.WindowDays(), logger)
}

// newProfileUpdater builds the single profile write path over the open store.
func newProfileUpdater() *core.ProfileUpdater {
	return core.NewProfileUpdater(core.ProfileUpdaterDeps{
		Profiles:   db,
		Aggregator: newAggregator(),
		Resolver:   db,
		Lexical:    db,
		Recorder:   db,
	}, cfg.ModelVersion, cfg.DefaultTier, logger)
}

// newSummarizer builds the live-session summarizer, handing its results to updater.
func newSummarizer(updater *core.ProfileUpdater) *core.Summarizer {
	return core.NewSummarizer(core.SummarizerDeps{
		Speech:    db,
		Summaries: db,
		Exercises: db,
		Profiles:  db,
		Writer:    updater,
	}, cfg.DefaultTier, logger)
}

// mcpServices wires the MCP store tools to the open store.
func mcpServices() mcp.Services {
	return mcp.Services{
		Profiles:   db,
		Aggregator: newAggregator(),
		Writer:     newProfileUpdater(),
	}
}
