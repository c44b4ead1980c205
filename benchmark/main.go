// Package main times the fluentgate CLI on synthetic transcripts of growing length.
// Each transcript is scored offline with analyze, then applied through profile update
// with the none backend and with a fresh SQLite store. The first store run is reported
// as cold and the rest are averaged as warm.
//
// Prerequisites:
// - fluentgate binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/fluentgate/schema"
)

// BenchmarkResult holds the timings of one transcript size.
type BenchmarkResult struct {
	Words       int
	Command     string
	NoStoreTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir    string
	Timeout    time.Duration
	NoStoreRun int
	StoreRuns  int
	WordCounts []int
}

// vocabulary mixes fillers and connectors so every detector has work to do.
var vocabulary = strings.Fields("so um I think the plan is good and then we can start because " +
	"the team is ready but uh we need a nice big review of the small details")

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:    os.Args[1],
		Timeout:    2 * time.Minute,
		NoStoreRun: 3,
		StoreRuns:  4,
		WordCounts: []int{50, 500, 5000, 50000},
	}

	if _, err := exec.LookPath("fluentgate"); err != nil {
		fmt.Printf("Prerequisites check failed: fluentgate binary not found in PATH\n")
		os.Exit(1)
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// writeTranscript generates a transcript of n evenly timed words.
func writeTranscript(dir string, n int) (string, error) {
	t := schema.Transcript{Source: fmt.Sprintf("bench-%d", n), UserID: "bench"}
	for i := range n {
		start := float64(i) * 0.4
		// Every twelfth gap is a long pause so hesitation scoring is exercised.
		if i%12 == 0 {
			start += 0.8
		}
		t.Words = append(t.Words, schema.WordTiming{Word: vocabulary[i%len(vocabulary)], Start: start, End: start + 0.3})
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, t.Source+".json")
	return path, os.WriteFile(path, data, 0o644)
}

// runBenchmarks executes all benchmark tests across configured transcript sizes.
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d sizes, %v timeout, no-store: %d runs, store: %d runs\n",
		len(config.WordCounts), config.Timeout, config.NoStoreRun, config.StoreRuns)

	for _, n := range config.WordCounts {
		path, err := writeTranscript(config.WorkDir, n)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Benchmarking %d words\n", n)

		results = append(results,
			runBenchmarkSuite(config, n, "analyze", []string{"analyze", path, "--tier", "A2"}),
			runBenchmarkSuite(config, n, "update", []string{"profile", "update", "--transcript", path, "--user", "bench"}),
		)
	}
	return results, nil
}

// runBenchmarkSuite runs both the none backend and the SQLite phases for a command.
func runBenchmarkSuite(config BenchmarkConfig, words int, command string, args []string) BenchmarkResult {
	average := func(times []float64) string {
		if len(times) == 0 {
			return "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	noStore := runBenchmark(config, args, []string{"FLUENTGATE_BACKEND=none"}, config.NoStoreRun)

	dbPath := filepath.Join(config.WorkDir, fmt.Sprintf("bench-%s-%d.db", command, words))
	_ = os.Remove(dbPath)
	stored := runBenchmark(config, args,
		[]string{"FLUENTGATE_BACKEND=sqlite", "FLUENTGATE_DB_CONNECT=" + dbPath}, config.StoreRuns)

	result := BenchmarkResult{
		Words:       words,
		Command:     command,
		NoStoreTime: average(noStore),
		ColdTime:    "TIMEOUT",
		WarmTime:    "TIMEOUT",
	}
	if len(stored) > 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", stored[0])
		result.WarmTime = average(stored[1:])
	}

	fmt.Printf("  %s: no-store average: %s, cold: %s, warm average: %s\n",
		command, result.NoStoreTime, result.ColdTime, result.WarmTime)
	return result
}

// runBenchmark executes the command numRuns times and returns the successful durations in seconds.
func runBenchmark(config BenchmarkConfig, args, env []string, numRuns int) []float64 {
	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("fluentgate", args...)
		cmd.Env = append(os.Environ(), append(env, "FLUENTGATE_LOG_LEVEL=error")...)

		done := make(chan error, 1)
		go func() {
			_, err := cmd.CombinedOutput()
			done <- err
		}()

		select {
		case err := <-done:
			if err == nil {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}
	return times
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/fluentgate_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"words", "cmd", "no_store_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{fmt.Sprint(r.Words), r.Command, r.NoStoreTime, r.ColdTime, r.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"analyze", "update"} {
		fmt.Printf("%s:\n", command)
		for _, r := range results {
			if r.Command == command {
				fmt.Printf("  %6d words: No-store: %s, Cold: %s, Warm: %s\n", r.Words, r.NoStoreTime, r.ColdTime, r.WarmTime)
			}
		}
	}
}
