package outwriter

import (
	"os"

	"github.com/huangsam/fluentgate/internal/contract"
	"golang.org/x/term"
)

// GetMaxTextWidth returns the room left for a free-text column (explanations,
// rationales, transitions) once fixedWidth is reserved for the other columns.
func GetMaxTextWidth(cfg *contract.Config, fixedWidth int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Borders, separators and padding
	available := termWidth - fixedWidth - 10
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}
