// Package lifecycle keeps one monitoring flow alive per active live session and
// finalizes sessions under disconnects and timeouts.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
	"golang.org/x/sync/errgroup"
)

// activeStatuses are the persisted statuses that still need a monitor.
var activeStatuses = []schema.SessionStatus{schema.StatusWaiting, schema.StatusLive}

// minParticipants is the number of humans a session needs to stay alive.
const minParticipants = 2

// Deps are the collaborators of a Manager.
type Deps struct {
	Sessions   contract.SessionStore
	Queue      contract.MatchQueueStore
	Speech     contract.SpeechStore
	Summarizer contract.SessionSummarizer
	Connector  contract.RoomConnector
	Issuer     contract.CredentialIssuer
	STT        contract.SpeechToText
}

// Manager runs the discovery, duration cap, ended sweep and queue cleanup loops
// and owns the monitors of every joined room.
type Manager struct {
	deps        Deps
	cfg         contract.MonitorConfig
	registry    *Registry
	clock       Clock
	botIdentity string
	logger      *slog.Logger

	newID func() string
	spawn func(ctx context.Context, task string, fn func(ctx context.Context))
}

// NewManager creates a Manager. A nil registry or clock gets the default.
func NewManager(deps Deps, cfg contract.MonitorConfig, registry *Registry, clock Clock, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	base := cfg.BotIdentity
	if base == "" {
		base = contract.DefaultBotIdentityBase
	}
	m := &Manager{
		deps:        deps,
		cfg:         cfg,
		registry:    registry,
		clock:       clock,
		botIdentity: base + "-" + uuid.NewString()[:8],
		logger:      logger.With("component", "lifecycle"),
		newID:       uuid.NewString,
	}
	m.spawn = func(ctx context.Context, task string, fn func(ctx context.Context)) {
		contract.SafeGo(ctx, m.logger, task, fn)
	}
	return m
}

// Registry returns the tracked session set.
func (m *Manager) Registry() *Registry { return m.registry }

// BotIdentity returns the identity the monitor joins rooms with.
func (m *Manager) BotIdentity() string { return m.botIdentity }

// isBot reports whether identity belongs to a monitor bot, this process or another.
func (m *Manager) isBot(identity string) bool {
	base := m.cfg.BotIdentity
	if base == "" {
		base = contract.DefaultBotIdentityBase
	}
	return strings.HasPrefix(identity, base)
}

// Run performs the startup sweep and then runs every loop until ctx is done.
// Tracked rooms are disconnected on the way out.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Startup(ctx); err != nil {
		m.logger.Error("startup sweep failed", "error", err)
	}

	loops := []struct {
		name string
		cfg  intervalConfig
		fn   func(ctx context.Context) error
	}{
		{"discovery", intervalConfig{m.cfg.DiscoveryInterval, true}, m.DiscoverOnce},
		{"duration_cap", intervalConfig{m.cfg.DurationCapInterval, false}, m.EnforceDurationCap},
		{"ended_sweep", intervalConfig{m.cfg.EndedSweepInterval, true}, m.SweepEnded},
		{"queue_cleanup", intervalConfig{m.cfg.QueueCleanupInterval, false}, m.PurgeQueue},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range loops {
		g.Go(func() error {
			m.every(gctx, l.name, l.cfg, l.fn)
			return nil
		})
	}
	err := g.Wait()
	m.shutdown()
	m.logger.Info("monitor stopped")
	return err
}

// Startup ends every session left waiting or live by a previous process and purges the stale queue.
func (m *Manager) Startup(ctx context.Context) error {
	sessions, err := m.deps.Sessions.ListSessionsByStatus(ctx, activeStatuses...)
	if err != nil {
		return err
	}
	now := m.clock.Now().UTC()
	for _, s := range sessions {
		err := m.deps.Sessions.TransitionSession(ctx, s.ID, schema.StatusEnded, now)
		if err != nil && !errors.Is(err, contract.ErrIllegalTransition) {
			m.logger.Error("failed to end orphaned session", "session_id", s.ID, "error", err)
			continue
		}
		m.logger.Warn("ended orphaned session", "session_id", s.ID, "status", s.Status)
	}
	return m.PurgeQueue(ctx)
}

// DiscoverOnce starts a join for every active session that is not tracked yet.
func (m *Manager) DiscoverOnce(ctx context.Context) error {
	sessions, err := m.deps.Sessions.ListSessionsByStatus(ctx, activeStatuses...)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		gen, ok := m.registry.TryTrack(s.ID)
		if !ok {
			continue
		}
		m.logger.Debug("discovered session", "session_id", s.ID, "status", s.Status)
		m.spawn(ctx, "join", func(ctx context.Context) {
			defer m.untrackOnPanic(s.ID, gen)
			m.join(ctx, s, gen)
		})
	}
	return nil
}

// EnforceDurationCap force-ends every active session older than the maximum duration.
func (m *Manager) EnforceDurationCap(ctx context.Context) error {
	sessions, err := m.deps.Sessions.ListSessionsByStatus(ctx, activeStatuses...)
	if err != nil {
		return err
	}
	now := m.clock.Now()
	for _, s := range sessions {
		if now.Sub(s.StartedAt) > m.cfg.MaxSessionDuration {
			m.finalize(ctx, s.ID, AnyGeneration, "duration cap reached")
		}
	}
	return nil
}

// SweepEnded summarizes every ended session that still lacks a summary.
// Sessions whose audio pumps are still draining are left for a later tick.
func (m *Manager) SweepEnded(ctx context.Context) error {
	if m.deps.Summarizer == nil {
		return nil
	}
	sessions, err := m.deps.Sessions.ListUnsummarized(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if m.registry.Pumping(s.ID) {
			m.logger.Debug("transcription still draining, summary deferred", "session_id", s.ID)
			continue
		}
		if err := m.deps.Summarizer.SummarizeSession(ctx, s); err != nil {
			m.logger.Error("failed to summarize session", "session_id", s.ID, "error", err)
		}
	}
	return nil
}

// PurgeQueue removes match queue entries that have waited too long.
func (m *Manager) PurgeQueue(ctx context.Context) error {
	if m.deps.Queue == nil {
		return nil
	}
	cutoff := m.clock.Now().UTC().Add(-m.cfg.QueueStaleAfter)
	n, err := m.deps.Queue.PurgeStaleQueue(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		m.logger.Info("purged stale queue entries", "count", n)
	}
	return nil
}

// finalize ends the session, disconnects its room and untracks it.
// Ending an already ended session is a no-op. A specific generation only finalizes
// the monitor it was issued to; AnyGeneration also ends sessions this process does not track.
func (m *Manager) finalize(ctx context.Context, sessionID string, gen uint64, reason string) {
	logger := m.logger.With("session_id", sessionID)
	if !m.registry.SetState(sessionID, gen, StateEnded) && gen != AnyGeneration {
		logger.Debug("stale finalize ignored", "reason", reason)
		return
	}

	err := m.deps.Sessions.TransitionSession(ctx, sessionID, schema.StatusEnded, m.clock.Now().UTC())
	switch {
	case errors.Is(err, contract.ErrIllegalTransition):
		logger.Debug("session already ended")
	case err != nil:
		logger.Error("failed to end session", "error", err)
	default:
		logger.Info("session ended", "reason", reason)
	}

	if h := m.registry.Untrack(sessionID, gen); h != nil {
		if err := h.Disconnect(); err != nil {
			logger.Warn("failed to disconnect from room", "error", err)
		}
	}
}

func (m *Manager) shutdown() {
	for _, id := range m.registry.IDs() {
		if h := m.registry.Untrack(id, AnyGeneration); h != nil {
			_ = h.Disconnect()
		}
	}
}

// untrackOnPanic must be deferred directly so a crashed join is retried on the next discovery tick.
func (m *Manager) untrackOnPanic(sessionID string, gen uint64) {
	if r := recover(); r != nil {
		m.logger.Error("recovered panic during join", "session_id", sessionID, "panic", r)
		m.registry.Untrack(sessionID, gen)
	}
}
