package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

// roomMonitor follows the participants of one joined room.
type roomMonitor struct {
	m       *Manager
	session schema.Session
	logger  *slog.Logger
	gen     uint64

	mu       sync.Mutex
	present  map[string]struct{}
	attached bool
	held     bool
}

// join issues a credential, joins the room and starts following its events.
// Any failure untracks the session so the next discovery tick retries it.
func (m *Manager) join(ctx context.Context, s schema.Session, gen uint64) {
	room := s.RoomName
	if room == "" {
		room = s.ID
	}
	logger := m.logger.With("session_id", s.ID, "room", room)

	credential, err := m.deps.Issuer.IssueJoinToken(room, m.botIdentity, m.cfg.CredentialTTL)
	if err != nil {
		logger.Error("failed to issue join credential", "error", err)
		m.registry.Untrack(s.ID, gen)
		return
	}

	mon := &roomMonitor{m: m, session: s, logger: logger, gen: gen, present: map[string]struct{}{}}
	handle, err := m.deps.Connector.Join(ctx, room, credential, mon.events(ctx))
	if err != nil {
		logger.Error("failed to join room", "error", err)
		m.registry.Untrack(s.ID, gen)
		return
	}
	if !m.registry.Attach(s.ID, gen, handle) {
		// Ended while the join was in flight.
		_ = handle.Disconnect()
		return
	}
	for _, id := range handle.Participants() {
		mon.add(id)
	}
	held := mon.markAttached()
	logger.Info("monitoring session", "bot_identity", m.botIdentity)
	mon.checkLive(ctx)
	if held && mon.humans() < minParticipants {
		mon.startGrace(ctx, "")
	}
}

func (r *roomMonitor) events(ctx context.Context) contract.RoomEvents {
	return contract.RoomEvents{
		OnParticipantConnected: func(identity string) {
			r.add(identity)
			if r.m.isBot(identity) {
				return
			}
			r.logger.Debug("participant connected", "identity", identity)
			r.checkLive(ctx)
		},
		OnParticipantDisconnected: func(identity string) {
			r.remove(identity)
			if r.m.isBot(identity) || r.holdGrace() {
				return
			}
			r.startGrace(ctx, identity)
		},
		OnTrackSubscribed: func(identity string, track contract.AudioTrack) {
			if r.m.isBot(identity) || track.Kind() != "audio" {
				return
			}
			r.m.spawn(ctx, "audio_pump", func(ctx context.Context) {
				r.m.pump(ctx, r.session.ID, identity, track)
			})
		},
		OnDisconnected: func(err error) {
			if r.m.registry.State(r.session.ID) == StateEnded {
				return
			}
			if r.m.registry.Untrack(r.session.ID, r.gen) != nil {
				r.logger.Warn("room connection lost", "error", err)
			}
		},
	}
}

// checkLive promotes the session to live once enough humans are present.
func (r *roomMonitor) checkLive(ctx context.Context) {
	if r.humans() < minParticipants {
		return
	}
	err := r.m.deps.Sessions.TransitionSession(ctx, r.session.ID, schema.StatusLive, r.m.clock.Now().UTC())
	switch {
	case errors.Is(err, contract.ErrIllegalTransition):
		// already live or ended
	case err != nil:
		r.logger.Error("failed to mark session live", "error", err)
	default:
		r.logger.Info("session is live")
	}
}

// startGrace moves the session into its grace period and arms the timer that recounts humans.
func (r *roomMonitor) startGrace(ctx context.Context, identity string) {
	if !r.m.registry.SetState(r.session.ID, r.gen, StateGrace) {
		return
	}
	r.logger.Info("participant disconnected, grace period started", "identity", identity, "grace", r.m.cfg.GracePeriod)
	r.m.clock.AfterFunc(r.m.cfg.GracePeriod, func() {
		defer contract.Recover(r.logger, "grace")
		r.graceExpired(ctx)
	})
}

// graceExpired recounts humans when a grace timer fires. Timers are never cancelled,
// so a firing for a session that already ended, or for a monitor that was replaced
// by a rejoin, does nothing.
func (r *roomMonitor) graceExpired(ctx context.Context) {
	if r.m.registry.State(r.session.ID) != StateGrace {
		return
	}
	if n := r.humans(); n < minParticipants {
		r.m.finalize(ctx, r.session.ID, r.gen, "participants left")
		return
	}
	if r.m.registry.SetState(r.session.ID, r.gen, StateMonitoring) {
		r.logger.Debug("grace period over, participants returned")
	}
}

// holdGrace defers a disconnect that arrives before the room is attached.
// It returns false once the room is attached.
func (r *roomMonitor) holdGrace() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attached {
		return false
	}
	r.held = true
	return true
}

// markAttached reports whether a disconnect was held during the join.
func (r *roomMonitor) markAttached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = true
	held := r.held
	r.held = false
	return held
}

func (r *roomMonitor) add(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.present[identity] = struct{}{}
}

func (r *roomMonitor) remove(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.present, identity)
}

func (r *roomMonitor) humans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id := range r.present {
		if !r.m.isBot(id) {
			n++
		}
	}
	return n
}
