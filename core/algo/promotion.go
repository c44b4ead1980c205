package algo

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/huangsam/fluentgate/schema"
)

// DemotionInactivityDays is the inactivity span after which a one-tier drop is suggested.
const DemotionInactivityDays = 30

// EvaluatePromotion checks aggregated behavior against the gate of the tier directly above current.
// Every gate is checked; the result lists each outcome and the failure codes in gate order.
// At the top tier the result is ineligible with no next tier and no failures.
func EvaluatePromotion(current schema.Tier, agg schema.AggregatedMetrics) schema.PromotionResult {
	result := schema.PromotionResult{
		CurrentTier: current,
		Failures:    []schema.FailureCode{},
		Gates:       []schema.GateStatus{},
	}
	next, ok := current.Next()
	if !ok {
		return result
	}
	gate, ok := schema.GateFor(next)
	if !ok {
		return result
	}
	result.NextTier = &next
	result.Gates = CheckGates(gate, agg)
	result.Failures = FailuresOf(result.Gates)
	result.Eligible = len(result.Failures) == 0
	return result
}

// CheckGates evaluates every applicable check of gate independently.
func CheckGates(gate schema.PromotionGate, agg schema.AggregatedMetrics) []schema.GateStatus {
	gates := []schema.GateStatus{
		{
			Gate:     schema.GateSpeakingTime,
			Code:     schema.FailSpeakingTime,
			Required: ">= " + formatFloat(gate.MinSpeakingSeconds) + "s",
			Actual:   formatFloat(agg.TotalSeconds) + "s",
			Passed:   agg.TotalSeconds >= gate.MinSpeakingSeconds,
		},
		{
			Gate:     schema.GateWordCount,
			Code:     schema.FailWordCount,
			Required: ">= " + strconv.Itoa(gate.MinWords),
			Actual:   strconv.Itoa(agg.TotalWords),
			Passed:   agg.TotalWords >= gate.MinWords,
		},
		{
			Gate:     schema.GateSessionCount,
			Code:     schema.FailSessionCount,
			Required: ">= " + strconv.Itoa(gate.MinSessions),
			Actual:   strconv.Itoa(agg.SessionCount),
			Passed:   agg.SessionCount >= gate.MinSessions,
		},
		{
			Gate:     schema.GateActiveDays,
			Code:     schema.FailActiveDays,
			Required: ">= " + strconv.Itoa(gate.MinActiveDays),
			Actual:   strconv.Itoa(agg.ActiveDays),
			Passed:   agg.ActiveDays >= gate.MinActiveDays,
		},
		{
			Gate:     schema.GateMidSentencePause,
			Code:     schema.FailMidSentencePause,
			Required: "<= " + formatFloat(gate.MaxMidSentencePauseMs) + "ms",
			Actual:   formatFloat(agg.AvgMidSentencePauseMs) + "ms",
			Passed:   agg.AvgMidSentencePauseMs <= gate.MaxMidSentencePauseMs,
		},
		{
			Gate:     schema.GateConfidence,
			Code:     schema.FailConfidence,
			Required: ">= " + string(gate.RequiredBand),
			Actual:   bandLabel(agg.ConfidenceBand),
			Passed:   agg.ConfidenceBand.AtLeast(gate.RequiredBand),
		},
	}

	if !gate.AllowLexicalCeiling {
		gates = append(gates, schema.GateStatus{
			Gate:     schema.GateLexicalCeiling,
			Code:     schema.FailLexicalCeiling,
			Required: "none",
			Actual:   strconv.Itoa(len(agg.LexicalBlockers)),
			Passed:   len(agg.LexicalBlockers) == 0,
		})
	}
	if gate.MinPracticeTypes > 0 {
		gates = append(gates, schema.GateStatus{
			Gate:     schema.GatePracticeTypes,
			Code:     schema.FailPracticeTypes,
			Required: ">= " + strconv.Itoa(gate.MinPracticeTypes),
			Actual:   strconv.Itoa(len(agg.PracticeTypes)),
			Passed:   len(agg.PracticeTypes) >= gate.MinPracticeTypes,
		})
	}
	if gate.MaxFillerRatePerMin != nil {
		gates = append(gates, schema.GateStatus{
			Gate:     schema.GateFillerRate,
			Code:     schema.FailFillerRate,
			Required: "<= " + formatFloat(*gate.MaxFillerRatePerMin) + "/min",
			Actual:   formatFloat(agg.CrutchWordRatePerMin) + "/min",
			Passed:   agg.CrutchWordRatePerMin <= *gate.MaxFillerRatePerMin,
		})
	}
	// Language detection is not implemented, so this only fails if a source reports segments.
	gates = append(gates, schema.GateStatus{
		Gate:     schema.GateNonEnglish,
		Code:     schema.FailNonEnglish,
		Required: "0",
		Actual:   strconv.Itoa(agg.NonEnglishSegments),
		Passed:   agg.NonEnglishSegments == 0,
	})
	return gates
}

// FailuresOf returns the failure codes of the gates that did not pass, in order.
func FailuresOf(gates []schema.GateStatus) []schema.FailureCode {
	failures := []schema.FailureCode{}
	for _, g := range gates {
		if !g.Passed {
			failures = append(failures, g.Code)
		}
	}
	return failures
}

// CheckDemotion suggests dropping one tier after more than 30 days without practice.
// It is advisory only and never changes a stored profile.
func CheckDemotion(current schema.Tier, lastSession *time.Time, now time.Time) schema.DemotionAdvice {
	advice := schema.DemotionAdvice{
		CurrentTier:   current,
		ThresholdDays: DemotionInactivityDays,
	}
	if lastSession == nil {
		advice.Reason = "no recorded practice activity"
		return advice
	}
	last := lastSession.UTC().Format(time.DateOnly)
	advice.LastSessionDate = &last
	advice.InactiveDays = int(now.Sub(*lastSession).Hours() / 24)
	if advice.InactiveDays <= DemotionInactivityDays {
		advice.Reason = fmt.Sprintf("active within the last %d days", DemotionInactivityDays)
		return advice
	}
	prev, ok := current.Prev()
	if !ok {
		advice.Reason = fmt.Sprintf("inactive for %d days but already at the lowest tier", advice.InactiveDays)
		return advice
	}
	advice.Recommended = true
	advice.SuggestedTier = &prev
	advice.Reason = fmt.Sprintf("inactive for %d days (threshold %d)", advice.InactiveDays, DemotionInactivityDays)
	return advice
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func bandLabel(b schema.ConfidenceBand) string {
	if b == "" {
		return "unknown"
	}
	return string(b)
}
