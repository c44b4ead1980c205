package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/huangsam/fluentgate/internal/contract"
)

// writeWithFile opens the configured output, runs writer against it and cleans up.
// An empty path writes to stdout.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON encodes data with two-space indentation.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes a header row followed by whatever writeRows emits.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return writeRows(csvWriter)
}

// formatter renders numbers with the configured precision.
type formatter struct {
	precision int
}

func newFormatter(precision int) formatter {
	return formatter{precision: precision}
}

// Float renders v with the configured number of decimals.
func (f formatter) Float(v float64) string {
	return strconv.FormatFloat(v, 'f', f.precision, 64)
}

// Int renders v in base 10.
func (formatter) Int(v int) string {
	return strconv.Itoa(v)
}

// Ratio renders a 0..1 ratio as a percentage.
func (f formatter) Ratio(v float64) string {
	return f.Float(v*100) + "%"
}

// Minutes renders a duration in seconds as minutes.
func (f formatter) Minutes(seconds float64) string {
	return f.Float(seconds/60) + " min"
}
