//go:build basic

package integration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/fluentgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTranscript writes a transcript with evenly spaced word timings and returns its path.
func writeTranscript(t *testing.T, dir, text string) string {
	t.Helper()
	tr := schema.Transcript{Source: "call-1", UserID: "alice", Text: text}
	for i, w := range strings.Fields(text) {
		start := float64(i) * 0.45
		tr.Words = append(tr.Words, schema.WordTiming{Word: w, Start: start, End: start + 0.3})
	}
	data, err := json.Marshal(tr)
	require.NoError(t, err)
	path := filepath.Join(dir, "transcript.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// sqliteEnv points the binary at a throwaway SQLite file.
func sqliteEnv(dir string) []string {
	return []string{
		"FLUENTGATE_BACKEND=sqlite",
		"FLUENTGATE_DB_CONNECT=" + filepath.Join(dir, "fluentgate.db"),
		"FLUENTGATE_LOG_LEVEL=error",
		"FLUENTGATE_COLOR=no",
	}
}

func TestAnalyzeTranscriptJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeTranscript(t, dir,
		"I went there and then I stayed so I left but I came back because I wanted to see it again")
	outFile := filepath.Join(dir, "analysis.json")

	_, err := runFluentgateWithEnv(t, sqliteEnv(dir),
		"analyze", path, "--tier", "A2", "--output", "json", "--output-file", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var a schema.TranscriptAnalysis
	require.NoError(t, json.Unmarshal(data, &a))

	assert.Equal(t, "call-1", a.Source)
	assert.Equal(t, schema.TierA2, a.CurrentTier)
	assert.False(t, a.Silent)
	assert.Greater(t, a.WordCount, 0)

	var categories []string
	for _, d := range a.LexicalBlockers {
		categories = append(categories, d.Category)
	}
	assert.Contains(t, categories, "simple_connectors")
}

func TestAnalyzeRejectsBadTier(t *testing.T) {
	dir := t.TempDir()
	path := writeTranscript(t, dir, "hello there")

	_, err := runFluentgateWithEnv(t, sqliteEnv(dir), "analyze", path, "--tier", "Z9")
	assert.Error(t, err)
}

func TestProfileLifecycle(t *testing.T) {
	dir := t.TempDir()
	env := sqliteEnv(dir)
	path := writeTranscript(t, dir,
		"well I think the meeting went fine and we agreed on the plan so we can start tomorrow")

	out, err := runFluentgateWithEnv(t, env,
		"profile", "update", "--transcript", path, "--user", "alice", "--session-ref", "conv-42")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile")

	out, err = runFluentgateWithEnv(t, env, "profile", "show", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	_, err = runFluentgateWithEnv(t, env, "profile", "show", "nobody")
	assert.Error(t, err)

	out, err = runFluentgateWithEnv(t, env, "profile", "link", "auth|alice", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Linked auth|alice to alice.")

	gates := filepath.Join(dir, "gates.csv")
	_, err = runFluentgateWithEnv(t, env, "promote", "alice", "--output", "csv", "--output-file", gates)
	require.NoError(t, err)
	data, err := os.ReadFile(gates)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(string(data)))
}

func TestStoreCommands(t *testing.T) {
	dir := t.TempDir()
	env := sqliteEnv(dir)

	out, err := runFluentgateWithEnv(t, env, "store", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Store Backend: sqlite")

	out, err = runFluentgateWithEnv(t, env, "store", "migrate", "--target-version", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully migrated")

	// Opening the store migrates back to latest before the no-op target.
	out, err = runFluentgateWithEnv(t, env, "store", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "No migration needed")

	prefix := filepath.Join(dir, "fluency")
	_, err = runFluentgateWithEnv(t, env, "store", "export", "--output-file", prefix)
	require.NoError(t, err)
	for _, suffix := range []string{".profiles.parquet", ".summaries.parquet"} {
		_, err := os.Stat(prefix + suffix)
		assert.NoError(t, err, fmt.Sprintf("missing %s", suffix))
	}
}

func TestVersion(t *testing.T) {
	out, err := runFluentgateCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fluentgate CLI")
	assert.Contains(t, out, "Model:")
}
