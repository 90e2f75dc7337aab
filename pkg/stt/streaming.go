package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// Streaming message types on the AssemblyAI realtime wire.
const (
	msgTypeBegin       = "Begin"
	msgTypeTurn        = "Turn"
	msgTypeTermination = "Termination"
)

// streamMessage is the superset of JSON messages the realtime API sends.
type streamMessage struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	EndOfTurn  bool   `json:"end_of_turn,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OpenSession dials the realtime endpoint and starts a read pump that invokes
// h for every transcript event. The handler runs on the session's internal
// goroutine; the returned session is safe to use from a different goroutine
// than the handler.
func (a *AssemblyAI) OpenSession(ctx context.Context, cfg StreamConfig, h Handler) (StreamSession, error) {
	if !a.Available() {
		return nil, ErrNoAPIKey
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}

	endpoint, err := url.Parse(a.streamURL)
	if err != nil {
		return nil, fmt.Errorf("stt: parse stream URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	q.Set("format_turns", strconv.FormatBool(cfg.FormatTurns))
	endpoint.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", a.keyFn())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stt: dial stream (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("stt: dial stream: %w", err)
	}

	s := &streamSession{
		conn:    conn,
		handler: h,
		logger:  a.logger,
		done:    make(chan struct{}),
	}
	go s.readLoop()

	return s, nil
}

// streamSession is one live realtime transcription connection.
type streamSession struct {
	conn    *websocket.Conn
	handler Handler
	logger  interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool

	done chan struct{}
}

// SendAudio forwards one binary audio frame to the provider. Frames are sent
// in call order; the write lock keeps concurrent callers from interleaving
// partial frames.
func (s *streamSession) SendAudio(p []byte) error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return ErrSessionClosed
	}
	s.closeMu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return fmt.Errorf("stt: send audio: %w", err)
	}
	return nil
}

// Close asks the provider to terminate the session and closes the socket.
// Safe to call more than once; later calls are no-ops.
func (s *streamSession) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	// Best effort: tell the provider we're done before dropping the socket
	// so it can flush a final turn.
	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Terminate"}`))
	s.writeMu.Unlock()

	err := s.conn.Close()
	<-s.done
	return err
}

func (s *streamSession) readLoop() {
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.closeMu.Lock()
			closed := s.closed
			s.closeMu.Unlock()
			if !closed {
				s.logger.Warn("stream read ended", "error", err)
			}
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("ignoring unparseable stream message", "error", err)
			continue
		}

		switch msg.Type {
		case msgTypeBegin:
			s.logger.Debug("stream session began", "id", msg.ID)
		case msgTypeTurn:
			if s.handler != nil {
				s.handler(Event{Text: msg.Transcript, EndOfTurn: msg.EndOfTurn})
			}
		case msgTypeTermination:
			s.logger.Debug("stream session terminated by provider")
			return
		default:
			if msg.Error != "" {
				s.logger.Warn("stream error message", "error", msg.Error)
			}
		}
	}
}

var _ StreamSession = (*streamSession)(nil)
