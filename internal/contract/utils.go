package contract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/fluentgate/schema"
)

// Color variables for console output.
var (
	HighColor   = color.New(color.FgGreen, color.Bold) // HighColor marks a strong band or a passed gate.
	MediumColor = color.New(color.FgYellow)            // MediumColor marks a middling band.
	LowColor    = color.New(color.FgRed, color.Bold)   // LowColor marks a weak band or a failed gate.
	TierColor   = color.New(color.FgCyan, color.Bold)  // TierColor highlights tier labels.
)

// GetColorBand returns a colored band label for console output (table).
func GetColorBand(band schema.ConfidenceBand) string {
	text := string(band)
	switch band {
	case schema.BandHigh:
		return HighColor.Sprint(text)
	case schema.BandMedium:
		return MediumColor.Sprint(text)
	default:
		return LowColor.Sprint(text)
	}
}

// GetPlainPassed returns the plain label for a gate outcome.
func GetPlainPassed(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

// GetColorPassed returns a colored gate outcome label.
func GetColorPassed(passed bool) string {
	if passed {
		return HighColor.Sprint(GetPlainPassed(passed))
	}
	return LowColor.Sprint(GetPlainPassed(passed))
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetDBFilePath returns the path to the default SQLite DB file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".fluentgate.db"
	}
	return filepath.Join(homeDir, ".fluentgate.db")
}

// TruncateText shortens s to maxWidth runes with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and at least one character.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// ParseLogLevel parses debug, info, warn or error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", s)
	}
	return level, nil
}

// windowDurationRe captures "N [units]" and the short "Nd" form.
var windowDurationRe = regexp.MustCompile(`^(\d+)\s*(d|day|week|hour|minute)s?$`)

// ParseWindowDuration converts strings like "30 days", "30d" or "720h" into a time.Duration.
// It first tries Go's built-in time.ParseDuration for standard formats, then falls back
// to custom parsing for human-readable formats.
func ParseWindowDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if duration, err := time.ParseDuration(s); err == nil {
		if duration <= 0 {
			return 0, errors.New("duration must be positive")
		}
		return duration, nil
	}

	matches := windowDurationRe.FindStringSubmatch(strings.ToLower(s))
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}

	value, _ := strconv.Atoi(matches[1])
	var total time.Duration
	switch matches[2] {
	case "d", "day":
		total = time.Duration(value) * 24 * time.Hour
	case "week":
		total = time.Duration(value) * 7 * 24 * time.Hour
	case "hour":
		total = time.Duration(value) * time.Hour
	case "minute":
		total = time.Duration(value) * time.Minute
	}
	if total == 0 {
		return 0, errors.New("duration must be positive")
	}
	return total, nil
}
