package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/fluentgate/internal/parquet"
)

// Export writes every fluency profile and session summary to Parquet files next to outputFile.
func (s *Store) Export(ctx context.Context, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := s.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TableSizes[profilesTable] == 0 && status.TableSizes[summariesTable] == 0 {
		return errors.New("no profile or summary data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total profiles: %d\n", status.TableSizes[profilesTable])
	_, _ = fmt.Fprintf(w, "Total session summaries: %d\n", status.TableSizes[summariesTable])

	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve profiles: %w", err)
	}
	summaries, err := s.ListSummaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve summaries: %w", err)
	}

	profilesFile := outputFile + ".profiles.parquet"
	profileRows := parquet.ConvertProfiles(profiles)
	if err := parquet.WriteProfilesParquet(profileRows, profilesFile); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d profiles to: %s\n", len(profileRows), profilesFile)

	summariesFile := outputFile + ".summaries.parquet"
	summaryRows := parquet.ConvertSummaries(summaries)
	if err := parquet.WriteSummariesParquet(summaryRows, summariesFile); err != nil {
		return fmt.Errorf("failed to write summaries: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d session summaries to: %s\n", len(summaryRows), summariesFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be used with:")
	_, _ = fmt.Fprintln(w, "  - Apache Spark")
	_, _ = fmt.Fprintln(w, "  - Pandas (via pyarrow)")
	_, _ = fmt.Fprintln(w, "  - DuckDB")
	return nil
}
