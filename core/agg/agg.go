// Package agg builds the rolling behavioral profile of a user from every practice modality.
package agg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
	"golang.org/x/sync/errgroup"
)

// Aggregator implements contract.MetricsAggregator over a set of practice sources.
type Aggregator struct {
	sources    []contract.PracticeSource
	lexical    contract.LexicalStore
	profiles   contract.ProfileStore
	windowDays int
	logger     *slog.Logger
}

var _ contract.MetricsAggregator = &Aggregator{} // Compile-time check

// NewAggregator creates an Aggregator with a hard cutoff of windowDays.
func NewAggregator(sources []contract.PracticeSource, lexical contract.LexicalStore, profiles contract.ProfileStore, windowDays int, logger *slog.Logger) *Aggregator {
	if windowDays <= 0 {
		windowDays = contract.DefaultAggregationDays
	}
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	return &Aggregator{
		sources:    sources,
		lexical:    lexical,
		profiles:   profiles,
		windowDays: windowDays,
		logger:     logger.With("component", "aggregator"),
	}
}

// Aggregate reads every source, the recent lexical detections and the cached profile concurrently,
// then combines them. The confidence band is the cached profile's band and is empty when there is none.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, now time.Time) (schema.AggregatedMetrics, error) {
	since := now.Add(-time.Duration(a.windowDays) * 24 * time.Hour)

	perSource := make([][]schema.PracticeRecord, len(a.sources))
	var categories []string
	var band schema.ConfidenceBand

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			records, err := src.ListPractice(gctx, userID, since)
			if err != nil {
				return fmt.Errorf("failed to read %s practice: %w", src.Modality(), err)
			}
			perSource[i] = records
			return nil
		})
	}
	if a.lexical != nil {
		g.Go(func() error {
			cats, err := a.lexical.ListDetectionCategories(gctx, userID, since)
			if err != nil {
				return fmt.Errorf("failed to read lexical detections: %w", err)
			}
			categories = cats
			return nil
		})
	}
	if a.profiles != nil {
		g.Go(func() error {
			p, err := a.profiles.GetProfile(gctx, userID)
			if errors.Is(err, contract.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read cached profile: %w", err)
			}
			band = p.ConfidenceBand
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return schema.AggregatedMetrics{}, err
	}

	var records []schema.PracticeRecord
	for _, recs := range perSource {
		records = append(records, recs...)
	}
	out := Combine(records, categories, band, since, a.windowDays)
	a.logger.Debug("aggregated practice", "user_id", userID, "records", len(records),
		"sessions", out.SessionCount, "active_days", out.ActiveDays)
	return out, nil
}

// Combine folds normalized practice records into AggregatedMetrics.
// Records before since are ignored. Missing relations contribute zero.
func Combine(records []schema.PracticeRecord, lexicalCategories []string, band schema.ConfidenceBand, since time.Time, windowDays int) schema.AggregatedMetrics {
	out := schema.AggregatedMetrics{
		ConfidenceBand:  band,
		LexicalBlockers: distinctSorted(lexicalCategories),
		PracticeTypes:   []schema.Modality{},
		WindowDays:      windowDays,
	}

	days := map[time.Time]struct{}{}
	modalities := map[schema.Modality]struct{}{}
	var fillers int
	var pauseSum float64
	var pauseCount int
	var last time.Time

	for _, r := range records {
		if r.OccurredAt.Before(since) {
			continue
		}
		if r.DurationSeconds != nil {
			out.TotalSeconds += *r.DurationSeconds
		}
		if r.WordCount != nil {
			out.TotalWords += *r.WordCount
		}
		if r.FillerCount != nil {
			fillers += *r.FillerCount
		}
		if r.AvgMidSentencePauseMs != nil {
			pauseSum += *r.AvgMidSentencePauseMs
			pauseCount++
		}
		if r.Completed {
			out.SessionCount++
		}
		days[schema.CalendarDay(r.OccurredAt)] = struct{}{}
		modalities[r.Modality] = struct{}{}
		if r.OccurredAt.After(last) {
			last = r.OccurredAt
		}
	}

	out.ActiveDays = len(days)
	if pauseCount > 0 {
		out.AvgMidSentencePauseMs = pauseSum / float64(pauseCount)
	}
	if minutes := out.TotalSeconds / 60; minutes > 0 {
		out.CrutchWordRatePerMin = float64(fillers) / minutes
	}
	for _, m := range schema.AllModalities {
		if _, ok := modalities[m]; ok {
			out.PracticeTypes = append(out.PracticeTypes, m)
		}
	}
	if !last.IsZero() {
		l := last.UTC()
		out.LastSessionDate = &l
	}
	return out
}

func distinctSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
