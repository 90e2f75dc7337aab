// Package stt provides speech-to-text for arcnova.
//
// Two capabilities are exposed: one-shot transcription of a complete audio
// buffer (used by the REST endpoints) and a realtime streaming session that
// accepts raw PCM audio and emits transcript events asynchronously (used by
// the websocket voice pipeline). Both are backed by AssemblyAI.
package stt

import (
	"context"
	"errors"
)

// Sentinel errors for the stt package.
var (
	// ErrNoAPIKey indicates the provider API key is not configured.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrSessionClosed is returned when sending audio on a closed session.
	ErrSessionClosed = errors.New("stt: session closed")
)

// Transcription statuses reported by one-shot transcription.
const (
	StatusCompleted   = "completed"
	StatusError       = "error"
	StatusUnavailable = "unavailable"
)

// Event is one transcript unit emitted by a streaming session.
// EndOfTurn marks a final transcript for the current utterance; events with
// EndOfTurn false are interim results.
type Event struct {
	Text      string
	EndOfTurn bool
}

// Handler receives transcript events. It is invoked from the session's
// internal read goroutine, not from the caller's goroutine, so handlers must
// be safe to call concurrently with SendAudio and must not block for long.
type Handler func(Event)

// StreamConfig holds configuration for a streaming session.
type StreamConfig struct {
	// SampleRate is the PCM sample rate in Hz (e.g. 16000).
	SampleRate int

	// FormatTurns requests punctuated, formatted final transcripts.
	FormatTurns bool
}

// StreamSession is one live transcription stream.
type StreamSession interface {
	// SendAudio forwards raw PCM16 audio bytes to the provider.
	SendAudio(p []byte) error

	// Close terminates the session and releases the connection.
	// Close is idempotent.
	Close() error
}

// Streamer opens realtime transcription sessions.
type Streamer interface {
	// OpenSession dials the provider and starts delivering events to h.
	OpenSession(ctx context.Context, cfg StreamConfig, h Handler) (StreamSession, error)
}

// Transcriber performs one-shot transcription of a complete audio buffer.
// The returned status is one of the Status constants; text may be empty even
// on StatusCompleted when nothing was recognized.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (text, status string, err error)
}
