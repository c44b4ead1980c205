package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		float     string
		ratio     string
	}{
		{name: "precision 1", precision: 1, value: 0.4567, float: "0.5", ratio: "45.7%"},
		{name: "precision 2", precision: 2, value: 0.4567, float: "0.46", ratio: "45.67%"},
		{name: "negative value", precision: 2, value: -42.567, float: "-42.57", ratio: "-4256.70%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFormatter(tt.precision)
			assert.Equal(t, tt.float, f.Float(tt.value))
			assert.Equal(t, tt.ratio, f.Ratio(tt.value))
		})
	}
	assert.Equal(t, "12", newFormatter(1).Int(12))
	assert.Equal(t, "2.5 min", newFormatter(1).Minutes(150))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]any{"tier": "B1", "eligible": false}))
	assert.Equal(t, "{\n  \"eligible\": false,\n  \"tier\": \"B1\"\n}\n", buf.String())

	err := writeJSON(&buf, make(chan int))
	assert.ErrorContains(t, err, "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"gate", "detail"}, func(w *csv.Writer) error {
		return w.Write([]string{"confidence", "Low, needs Medium"})
	})
	require.NoError(t, err)
	assert.Equal(t, "gate,detail\nconfidence,\"Low, needs Medium\"\n", buf.String())

	err = writeCSVWithHeader(&buf, []string{"col"}, func(*csv.Writer) error { return assert.AnError })
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFile(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		called := false
		err := writeWithFile("", func(io.Writer) error {
			called = true
			return nil
		}, "Wrote table")
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")
		err := writeWithFile(path, func(w io.Writer) error {
			return writeJSON(w, map[string]int{"words": 120})
		}, "Wrote JSON")
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		var got map[string]int
		require.NoError(t, json.Unmarshal(content, &got))
		assert.Equal(t, 120, got["words"])
	})

	t.Run("writer error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		err := writeWithFile(path, func(io.Writer) error { return assert.AnError }, "Wrote table")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		err := writeWithFile("/nonexistent/path/file.txt", func(io.Writer) error { return nil }, "Wrote table")
		assert.Error(t, err)
	})
}
