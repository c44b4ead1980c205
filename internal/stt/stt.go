// Package stt streams PCM audio to a Deepgram-compatible listen WebSocket and
// decodes the timed transcripts it sends back.
package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
)

const (
	defaultModel      = "nova-3"
	handshakeTimeout  = 10 * time.Second
	keepAliveInterval = 5 * time.Second
	drainTimeout      = 5 * time.Second
	resultsBuffer     = 64
)

var (
	keepAliveMessage   = []byte(`{"type":"KeepAlive"}`)
	closeStreamMessage = []byte(`{"type":"CloseStream"}`)
)

// ErrStreamClosed is returned when audio is sent after Close.
var ErrStreamClosed = errors.New("transcription stream closed")

// Client opens streaming recognition sessions.
type Client struct {
	cfg    contract.STTConfig
	dialer websocket.Dialer
	logger *slog.Logger
}

var _ contract.SpeechToText = &Client{} // Compile-time check

// NewClient creates a Client for the given settings.
func NewClient(cfg contract.STTConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	return &Client{
		cfg:    cfg,
		dialer: websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger: logger.With("component", "stt"),
	}
}

// listenURL builds the listen endpoint with the recognition options as query parameters.
func (c *Client) listenURL() (string, error) {
	if strings.TrimSpace(c.cfg.URL) == "" {
		return "", errors.New("speech-to-text URL is not configured")
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid speech-to-text URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	model := c.cfg.Model
	if model == "" {
		model = defaultModel
	}
	sampleRate := c.cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = contract.DefaultSTTSampleRate
	}
	endpointing := "false"
	if c.cfg.EndpointingMs > 0 {
		endpointing = strconv.Itoa(c.cfg.EndpointingMs)
	}

	q := u.Query()
	q.Set("model", model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("endpointing", endpointing)
	q.Set("filler_words", strconv.FormatBool(c.cfg.FillerWords))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open dials the listen endpoint. Cancelling ctx tears the connection down.
func (c *Client) Open(ctx context.Context) (contract.TranscriptionStream, error) {
	endpoint, err := c.listenURL()
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	if c.cfg.APIKey != "" {
		headers.Set("Authorization", "Token "+c.cfg.APIKey)
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("speech-to-text connect failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("speech-to-text connect failed: %w", err)
	}

	s := &stream{
		conn:    conn,
		results: make(chan schema.TranscriptResult, resultsBuffer),
		done:    make(chan struct{}),
		logger:  c.logger,
	}
	s.stopCtx = context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	go s.readLoop()
	go s.keepAlive()
	return s, nil
}

// stream is one open listen connection.
type stream struct {
	conn    *websocket.Conn
	results chan schema.TranscriptResult
	done    chan struct{}
	closed  atomic.Bool
	writeMu sync.Mutex
	stopCtx func() bool
	logger  *slog.Logger
}

// listenMessage is the subset of a listen response the monitor consumes.
type listenMessage struct {
	Type     string  `json:"type"`
	IsFinal  bool    `json:"is_final"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Channel  struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
			Words      []struct {
				Word           string  `json:"word"`
				PunctuatedWord string  `json:"punctuated_word"`
				Start          float64 `json:"start"`
				End            float64 `json:"end"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// toResult converts a Results message using its top alternative.
func (m listenMessage) toResult() schema.TranscriptResult {
	res := schema.TranscriptResult{IsFinal: m.IsFinal, Start: m.Start, Duration: m.Duration}
	if len(m.Channel.Alternatives) == 0 {
		return res
	}
	alt := m.Channel.Alternatives[0]
	res.Text = strings.TrimSpace(alt.Transcript)
	res.Words = make([]schema.WordTiming, 0, len(alt.Words))
	for _, w := range alt.Words {
		res.Words = append(res.Words, schema.WordTiming{Word: w.Word, Start: w.Start, End: w.End})
	}
	return res
}

func (s *stream) readLoop() {
	defer close(s.results)
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("transcription stream ended unexpectedly", "error", err)
			}
			return
		}
		var msg listenMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("skipping undecodable message", "error", err)
			continue
		}
		if msg.Type != "Results" {
			continue
		}
		s.results <- msg.toResult()
	}
}

// keepAlive stops the service from timing the connection out while a participant is silent.
func (s *stream) keepAlive() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.write(websocket.TextMessage, keepAliveMessage); err != nil {
				return
			}
		}
	}
}

func (s *stream) write(messageType int, data []byte) error {
	if s.closed.Load() {
		return ErrStreamClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

// SendAudio forwards one PCM frame.
func (s *stream) SendAudio(pcm []byte) error {
	return s.write(websocket.BinaryMessage, pcm)
}

// Results yields transcripts until the connection ends.
func (s *stream) Results() <-chan schema.TranscriptResult {
	return s.results
}

// Close asks the service to flush pending results, waits briefly for it to
// hang up, then closes the connection. It is safe to call more than once.
func (s *stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.stopCtx()

	s.writeMu.Lock()
	err := s.conn.WriteMessage(websocket.TextMessage, closeStreamMessage)
	s.writeMu.Unlock()

	if err == nil {
		select {
		case <-s.done:
		case <-time.After(drainTimeout):
			s.logger.Warn("transcription stream did not finish in time")
		}
	}

	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.conn.Close()
}
