// Package voice implements the real-time voice pipeline: a websocket session
// that relays client audio to a streaming transcription provider, routes
// transcript events back to the client, and answers each completed utterance
// with streamed language-model text and synthesized speech.
//
// Each Session owns one client connection and one transcription stream. The
// provider delivers transcript events from its own read goroutine; events are
// handed off through a channel and drained by a goroutine the Session owns,
// so Session state only ever mutates from Session-owned goroutines. At most
// one response run is in flight per Session at any instant, enforced by the
// filter's single-flight gate.
package voice

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arcnova-labs/arcnova/internal/log"
	"github.com/arcnova-labs/arcnova/pkg/chat"
	"github.com/arcnova-labs/arcnova/pkg/llm"
	"github.com/arcnova-labs/arcnova/pkg/persona"
	"github.com/arcnova-labs/arcnova/pkg/stt"
	"github.com/arcnova-labs/arcnova/pkg/tts"
)

// Websocket frame types, matching the RFC 6455 opcodes used by both fiber's
// and gorilla's websocket connections.
const (
	TextMessage   = 1
	BinaryMessage = 2
)

// Conn is the subset of a websocket connection the pipeline needs. Both
// *websocket.Conn implementations used by the server satisfy it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session lifecycle states. Transitions only move forward:
// Connecting -> Streaming -> Closing -> Closed.
const (
	stateConnecting int32 = iota
	stateStreaming
	stateClosing
	stateClosed
)

const (
	// DefaultSampleRate is the PCM sample rate clients are expected to send.
	DefaultSampleRate = 16000

	// drainTimeout bounds how long teardown waits for an in-flight response
	// run to finish sending trailing audio before the connection is closed.
	drainTimeout = 5 * time.Second

	// defaultChunkPause spaces out chunked tts_audio frames so a burst of
	// synthesized chunks does not overwhelm the client transport.
	defaultChunkPause = 100 * time.Millisecond

	// eventQueueSize buffers transcript events between the provider's read
	// goroutine and the Session's router.
	eventQueueSize = 32
)

// Config wires a Session to its collaborators.
type Config struct {
	// ID identifies the session in logs. Generated when empty.
	ID string

	// HistoryID keys the shared conversation log. Empty disables history
	// tracking and persona-aware prompting for this session.
	HistoryID string

	STT     stt.Streamer
	LLM     llm.Generator
	TTS     tts.Provider
	History *chat.Store
	Persona persona.Persona

	// Model names the generation model. Defaults to llm.DefaultModel.
	Model string

	// ChunkedTTS splits long responses into multiple synthesis requests
	// instead of truncating to a single one.
	ChunkedTTS bool

	// SampleRate of inbound PCM audio. Defaults to DefaultSampleRate.
	SampleRate int

	// ChunkPause overrides the pause between chunked tts_audio frames.
	ChunkPause time.Duration
}

// Session is one live voice connection.
type Session struct {
	cfg    Config
	conn   Conn
	logger *slog.Logger

	state   atomic.Int32
	writeMu sync.Mutex

	sttSession stt.StreamSession
	events     chan stt.Event
	done       chan struct{}
	closeOnce  sync.Once

	filter *turnFilter

	// wg tracks in-flight response runs so teardown can drain them.
	wg sync.WaitGroup
}

// NewSession creates a Session for conn. Run starts it.
func NewSession(conn Conn, cfg Config) *Session {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.ChunkPause <= 0 {
		cfg.ChunkPause = defaultChunkPause
	}
	if cfg.History == nil {
		cfg.History = chat.NewStore()
	}

	logger := log.Component("voice").With("session", cfg.ID)
	return &Session{
		cfg:    cfg,
		conn:   conn,
		logger: logger,
		events: make(chan stt.Event, eventQueueSize),
		done:   make(chan struct{}),
		filter: newTurnFilter(logger),
	}
}

// Run performs the transcription handshake and drives the session until the
// client disconnects, sends the EOF sentinel, or an unrecoverable error
// occurs. It always tears the session down before returning.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info("session connected", "history", s.cfg.HistoryID)

	streamCfg := stt.StreamConfig{SampleRate: s.cfg.SampleRate, FormatTurns: true}
	sess, err := s.cfg.STT.OpenSession(ctx, streamCfg, s.enqueueEvent)
	if err != nil {
		s.logger.Error("transcription handshake failed", "error", err)
		s.sendJSON(newErrorMsg("Failed to start transcription session"))
		s.state.Store(stateClosed)
		if cerr := s.conn.Close(); cerr != nil {
			s.logger.Debug("connection close failed", "error", cerr)
		}
		return
	}
	s.sttSession = sess
	s.state.Store(stateStreaming)

	go s.routeEvents(ctx)
	s.readLoop(ctx)
	s.teardown()
}

// sendJSON marshals v and writes it as a single text frame. Sends are skipped
// once the session is fully closed; during Closing they still go out so an
// in-flight response can deliver its trailing audio. Write failures are
// logged and returned but never panic.
func (s *Session) sendJSON(v any) error {
	if s.state.Load() == stateClosed {
		s.logger.Warn("send skipped, connection closed")
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("message marshal failed", "error", err)
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(TextMessage, data); err != nil {
		s.logger.Warn("send failed", "error", err)
		return err
	}
	return nil
}

// teardown releases the transcription stream, waits a bounded time for any
// in-flight response run to finish, and closes the connection. It is
// idempotent and never propagates close failures.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.state.Store(stateClosing)
		close(s.done)

		if s.sttSession != nil {
			if err := s.sttSession.Close(); err != nil {
				s.logger.Warn("transcription close failed", "error", err)
			}
		}

		if !waitTimeout(&s.wg, drainTimeout) {
			s.logger.Warn("abandoning response drain", "timeout", drainTimeout)
		}

		s.state.Store(stateClosed)
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("connection close failed", "error", err)
		}
		s.logger.Info("session closed")
	})
}

// waitTimeout waits for wg up to d. It reports false when the wait timed out.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}
