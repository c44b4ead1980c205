package store

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/huangsam/fluentgate/schema"
)

// GetStatus reports connectivity, schema version and per-table row counts.
func (s *Store) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.disabled() {
		return status, nil
	}

	version, dirty, err := s.SchemaVersion(ctx)
	if err != nil {
		return status, err
	}
	status.SchemaVersion = version
	status.Dirty = dirty

	for _, table := range AllTables {
		var count int64
		if err := s.queryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.Profiles = status.TableSizes[profilesTable]

	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status IN (?, ?)", sessionsTable)
	if err := s.queryRow(ctx, q, string(schema.StatusWaiting), string(schema.StatusLive)).Scan(&status.ActiveSessions); err != nil {
		return status, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return status, nil
}

// PrintStatus prints store status information.
func PrintStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Schema Version: %d", status.SchemaVersion)
	if status.Dirty {
		_, _ = fmt.Fprint(w, " (dirty)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Active Sessions: %d\n", status.ActiveSessions)
	_, _ = fmt.Fprintf(w, "Profiles: %d\n", status.Profiles)
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
