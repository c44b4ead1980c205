package schema

import (
	"fmt"
	"strings"
	"time"
)

// Rank returns the zero-based ordinal of the tier, or -1 for an unknown tier.
func (t Tier) Rank() int {
	for i, tier := range AllTiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// Valid reports whether the tier is one of the six known levels.
func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// Next returns the tier directly above t. ok is false at the ceiling or for unknown tiers.
func (t Tier) Next() (next Tier, ok bool) {
	r := t.Rank()
	if r < 0 || r+1 >= len(AllTiers) {
		return "", false
	}
	return AllTiers[r+1], true
}

// Prev returns the tier directly below t. ok is false at the floor or for unknown tiers.
func (t Tier) Prev() (prev Tier, ok bool) {
	r := t.Rank()
	if r <= 0 {
		return "", false
	}
	return AllTiers[r-1], true
}

// ParseTier parses a case-insensitive tier label such as "b1".
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid tier %q. must be one of A1, A2, B1, B2, C1, C2", s)
	}
	return t, nil
}

// Rank returns the ordinal of the band on the Low < Medium < High scale, or -1 if unknown.
func (b ConfidenceBand) Rank() int {
	switch b {
	case BandLow:
		return 0
	case BandMedium:
		return 1
	case BandHigh:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether b is at or above the required band.
func (b ConfidenceBand) AtLeast(required ConfidenceBand) bool {
	return b.Rank() >= required.Rank() && b.Rank() >= 0
}

// ParseBand parses a case-insensitive band label.
func ParseBand(s string) (ConfidenceBand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return BandLow, nil
	case "medium":
		return BandMedium, nil
	case "high":
		return BandHigh, nil
	}
	return "", fmt.Errorf("invalid confidence band %q. must be Low, Medium or High", s)
}

// sessionTransitions is the exhaustive table of legal status changes.
// Ended is absorbing.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	StatusWaiting: {StatusLive, StatusEnded},
	StatusLive:    {StatusEnded},
	StatusEnded:   {},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors returns every status from which s may be reached.
func (s SessionStatus) Predecessors() []SessionStatus {
	var out []SessionStatus
	for _, from := range []SessionStatus{StatusWaiting, StatusLive, StatusEnded} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}

// Active reports whether the status still needs monitoring.
func (s SessionStatus) Active() bool {
	return s == StatusWaiting || s == StatusLive
}

// NormalizeWord lowercases a transcribed token and strips surrounding punctuation.
func NormalizeWord(w string) string {
	return strings.ToLower(strings.Trim(w, ".,!?;:\"'()[]-"))
}

// IsFiller reports whether the word belongs to the closed filler set.
func IsFiller(w string) bool {
	_, ok := FillerWords[NormalizeWord(w)]
	return ok
}

// CalendarDay truncates t to its UTC calendar date.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
