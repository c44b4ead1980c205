// Package relay joins realtime rooms through a WebSocket media relay.
//
// After the handshake the relay sends a room_state text frame listing the
// identities already present. Later text frames are JSON room events. Binary
// frames carry audio as [1-byte sid length][track sid][PCM s16le mono].
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/huangsam/fluentgate/internal/contract"
)

const (
	handshakeTimeout = 10 * time.Second
	trackBuffer      = 256
)

// Event types sent by the relay.
const (
	EventRoomState               = "room_state"
	EventParticipantConnected    = "participant_connected"
	EventParticipantDisconnected = "participant_disconnected"
	EventTrackSubscribed         = "track_subscribed"
	EventTrackUnsubscribed       = "track_unsubscribed"
)

// Event is one JSON text frame.
type Event struct {
	Type         string   `json:"type"`
	Identity     string   `json:"identity,omitempty"`
	TrackSID     string   `json:"track_sid,omitempty"`
	Kind         string   `json:"kind,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// EncodeFrame packs PCM audio for a track into a binary frame.
func EncodeFrame(sid string, pcm []byte) ([]byte, error) {
	if sid == "" || len(sid) > 255 {
		return nil, fmt.Errorf("track sid must be 1-255 bytes (received %d)", len(sid))
	}
	out := make([]byte, 0, 1+len(sid)+len(pcm))
	out = append(out, byte(len(sid)))
	out = append(out, sid...)
	return append(out, pcm...), nil
}

// DecodeFrame splits a binary frame into its track sid and PCM payload.
func DecodeFrame(data []byte) (string, []byte, error) {
	if len(data) < 1 {
		return "", nil, errors.New("empty audio frame")
	}
	n := int(data[0])
	if n == 0 || len(data) < 1+n {
		return "", nil, fmt.Errorf("malformed audio frame header (sid length %d, frame %d bytes)", n, len(data))
	}
	return string(data[1 : 1+n]), data[1+n:], nil
}

// Connector dials rooms on one relay.
type Connector struct {
	baseURL string
	dialer  websocket.Dialer
	logger  *slog.Logger
}

var _ contract.RoomConnector = &Connector{} // Compile-time check

// NewConnector creates a Connector for the relay at baseURL.
func NewConnector(baseURL string, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	return &Connector{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer:  websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger:  logger.With("component", "relay"),
	}
}

func (c *Connector) roomURL(room string) (string, error) {
	u, err := url.Parse(c.baseURL + "/rooms/" + url.PathEscape(room))
	if err != nil {
		return "", fmt.Errorf("invalid relay URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

// Join connects to room and waits for its initial state. Events are delivered
// on a single goroutine in the order the relay sent them.
func (c *Connector) Join(ctx context.Context, room, credential string, events contract.RoomEvents) (contract.RoomHandle, error) {
	endpoint, err := c.roomURL(room)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+credential)

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("failed to join room %s (status %d): %s", room, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("failed to join room %s: %w", room, err)
	}

	state, err := readRoomState(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to join room %s: %w", room, err)
	}

	r := &Room{
		name:         room,
		conn:         conn,
		events:       events,
		logger:       c.logger.With("room", room),
		participants: make(map[string]struct{}, len(state.Participants)),
		tracks:       make(map[string]*Track),
	}
	for _, id := range state.Participants {
		r.participants[id] = struct{}{}
	}
	go r.readLoop()
	return r, nil
}

func readRoomState(conn *websocket.Conn) (Event, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	kind, data, err := conn.ReadMessage()
	if err != nil {
		return Event{}, fmt.Errorf("no room state received: %w", err)
	}
	var ev Event
	if kind != websocket.TextMessage || json.Unmarshal(data, &ev) != nil || ev.Type != EventRoomState {
		return Event{}, errors.New("first relay message was not the room state")
	}
	return ev, nil
}

// Room is a joined room.
type Room struct {
	name   string
	conn   *websocket.Conn
	events contract.RoomEvents
	logger *slog.Logger

	mu           sync.Mutex
	participants map[string]struct{}
	tracks       map[string]*Track

	closed  atomic.Bool
	writeMu sync.Mutex
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// Participants returns the identities currently present in sorted order.
func (r *Room) Participants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.participants))
	for id := range r.participants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Disconnect leaves the room. OnDisconnected is not invoked for a local disconnect.
func (r *Room) Disconnect() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.writeMu.Lock()
	_ = r.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	r.writeMu.Unlock()
	return r.conn.Close()
}

func (r *Room) readLoop() {
	var err error
	defer func() {
		r.endAllTracks()
		if r.closed.Swap(true) {
			return
		}
		_ = r.conn.Close()
		if r.events.OnDisconnected != nil {
			r.events.OnDisconnected(err)
		}
	}()

	for {
		var kind int
		var data []byte
		kind, data, err = r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			return
		}
		switch kind {
		case websocket.BinaryMessage:
			r.dispatchFrame(data)
		case websocket.TextMessage:
			var ev Event
			if jsonErr := json.Unmarshal(data, &ev); jsonErr != nil {
				r.logger.Debug("skipping undecodable relay event", "error", jsonErr)
				continue
			}
			r.handle(ev)
		}
	}
}

func (r *Room) handle(ev Event) {
	switch ev.Type {
	case EventParticipantConnected:
		r.mu.Lock()
		r.participants[ev.Identity] = struct{}{}
		r.mu.Unlock()
		if r.events.OnParticipantConnected != nil {
			r.events.OnParticipantConnected(ev.Identity)
		}
	case EventParticipantDisconnected:
		r.mu.Lock()
		delete(r.participants, ev.Identity)
		var gone []*Track
		for sid, t := range r.tracks {
			if t.identity == ev.Identity {
				gone = append(gone, t)
				delete(r.tracks, sid)
			}
		}
		r.mu.Unlock()
		for _, t := range gone {
			t.end()
		}
		if r.events.OnParticipantDisconnected != nil {
			r.events.OnParticipantDisconnected(ev.Identity)
		}
	case EventTrackSubscribed:
		if ev.TrackSID == "" {
			return
		}
		t := newTrack(ev.TrackSID, ev.Kind, ev.Identity)
		r.mu.Lock()
		old := r.tracks[ev.TrackSID]
		r.tracks[ev.TrackSID] = t
		r.mu.Unlock()
		if old != nil {
			old.end()
		}
		if r.events.OnTrackSubscribed != nil {
			r.events.OnTrackSubscribed(ev.Identity, t)
		}
	case EventTrackUnsubscribed:
		r.mu.Lock()
		t := r.tracks[ev.TrackSID]
		delete(r.tracks, ev.TrackSID)
		r.mu.Unlock()
		if t != nil {
			t.end()
		}
	default:
		r.logger.Debug("ignoring relay event", "type", ev.Type)
	}
}

func (r *Room) dispatchFrame(data []byte) {
	sid, pcm, err := DecodeFrame(data)
	if err != nil {
		r.logger.Debug("skipping audio frame", "error", err)
		return
	}
	r.mu.Lock()
	t := r.tracks[sid]
	r.mu.Unlock()
	if t == nil {
		return
	}
	if !t.push(pcm) {
		r.logger.Debug("audio track buffer full, dropping frame", "track_sid", sid)
	}
}

func (r *Room) endAllTracks() {
	r.mu.Lock()
	tracks := r.tracks
	r.tracks = make(map[string]*Track)
	r.mu.Unlock()
	for _, t := range tracks {
		t.end()
	}
}

// Track is a subscribed remote track.
type Track struct {
	sid      string
	kind     string
	identity string
	frames   chan []byte
	done     chan struct{}
	once     sync.Once
}

var _ contract.AudioTrack = &Track{} // Compile-time check

func newTrack(sid, kind, identity string) *Track {
	return &Track{
		sid:      sid,
		kind:     kind,
		identity: identity,
		frames:   make(chan []byte, trackBuffer),
		done:     make(chan struct{}),
	}
}

// SID returns the track id.
func (t *Track) SID() string { return t.sid }

// Kind returns audio or video.
func (t *Track) Kind() string { return t.kind }

// ReadFrame returns the next buffered frame. Frames received before the track
// ended are still delivered; io.EOF follows the last one.
func (t *Track) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case f := <-t.frames:
		return f, nil
	case <-t.done:
		select {
		case f := <-t.frames:
			return f, nil
		default:
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Track) push(pcm []byte) bool {
	select {
	case <-t.done:
		return true
	default:
	}
	select {
	case t.frames <- pcm:
		return true
	default:
		return false
	}
}

func (t *Track) end() {
	t.once.Do(func() { close(t.done) })
}
