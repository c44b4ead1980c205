package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/huangsam/fluentgate/core/algo"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

// pump forwards the PCM frames of one audio track to a transcription stream and
// records every final result. It returns when the track or the stream ends.
func (m *Manager) pump(ctx context.Context, sessionID, userID string, track contract.AudioTrack) {
	logger := m.logger.With("session_id", sessionID, "user_id", userID, "track_sid", track.SID())
	if m.deps.STT == nil {
		logger.Warn("no speech-to-text configured, ignoring audio track")
		return
	}
	m.registry.BeginPump(sessionID)
	defer m.registry.EndPump(sessionID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := m.deps.STT.Open(ctx)
	if err != nil {
		logger.Error("failed to open transcription stream", "error", err)
		return
	}
	logger.Info("audio pump started")

	var wg sync.WaitGroup
	wg.Go(func() {
		defer func() { _ = stream.Close() }()
		for {
			frame, err := track.ReadFrame(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					logger.Warn("audio track read failed", "error", err)
				}
				return
			}
			if err := stream.SendAudio(frame); err != nil {
				logger.Error("failed to forward audio frame", "error", err)
				return
			}
		}
	})

	for res := range stream.Results() {
		m.recordResult(ctx, sessionID, userID, res, logger)
	}
	cancel()
	wg.Wait()
	logger.Info("audio pump stopped")
}

// recordResult appends a final result as a transcript segment and bumps the speech counters.
// Interim results and results without word timings are dropped.
func (m *Manager) recordResult(ctx context.Context, sessionID, userID string, res schema.TranscriptResult, logger *slog.Logger) {
	if !res.IsFinal || len(res.Words) == 0 {
		return
	}
	seg := schema.TranscriptSegment{
		ID:         m.newID(),
		SessionID:  sessionID,
		UserID:     userID,
		Text:       res.Text,
		Words:      res.Words,
		CapturedAt: m.clock.Now().UTC(),
	}
	if err := m.deps.Speech.AppendSegment(ctx, seg); err != nil {
		logger.Error("failed to append transcript segment", "error", err)
	}
	if err := m.deps.Speech.IncrementMetrics(ctx, sessionID, userID, algo.SegmentDelta(res.Words)); err != nil {
		logger.Error("failed to increment speech metrics", "error", err)
	}
}
