// Package tts provides text-to-speech synthesis for arcnova.
//
// The REST surface hands clients a hosted audio URL; the realtime voice
// pipeline needs raw bytes it can base64-encode onto the websocket. Both come
// back as an Outcome so callers branch on what the provider produced instead
// of sniffing strings. A provider with no API key yields unavailable outcomes
// rather than errors so the rest of the app degrades quietly.
package tts

import "context"

// MaxTextLength is the longest text a single synthesis request accepts.
// Longer inputs are truncated or chunked by the caller.
const MaxTextLength = 3000

type outcomeKind int

const (
	outcomeUnavailable outcomeKind = iota
	outcomeURL
	outcomeAudio
)

// Outcome is the result of one synthesis request: a hosted audio URL, raw
// audio bytes, or nothing because the provider is not configured.
type Outcome struct {
	kind  outcomeKind
	url   string
	audio []byte
}

// URLOutcome wraps a hosted audio file URL.
func URLOutcome(u string) Outcome { return Outcome{kind: outcomeURL, url: u} }

// AudioOutcome wraps raw audio bytes.
func AudioOutcome(b []byte) Outcome { return Outcome{kind: outcomeAudio, audio: b} }

// Unavailable is the outcome of a provider with no credentials.
func Unavailable() Outcome { return Outcome{} }

// URL returns the hosted audio URL, if that is what the provider produced.
func (o Outcome) URL() (string, bool) { return o.url, o.kind == outcomeURL }

// Audio returns the raw audio bytes, if that is what the provider produced.
func (o Outcome) Audio() ([]byte, bool) { return o.audio, o.kind == outcomeAudio }

// Available reports whether the outcome carries any audio at all.
func (o Outcome) Available() bool { return o.kind != outcomeUnavailable }

// Voice describes one available synthesis voice.
type Voice struct {
	ID     string `json:"voice_id"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
	Gender string `json:"gender"`
}

// Provider converts text to speech.
type Provider interface {
	// Generate synthesizes text and returns a URL outcome pointing at the
	// hosted audio file, or an unavailable outcome when not configured.
	Generate(ctx context.Context, text, voiceID string) (Outcome, error)

	// Synthesize produces raw audio bytes for text, downloading the hosted
	// file when the provider only returns URLs.
	Synthesize(ctx context.Context, text, voiceID string) (Outcome, error)

	// Voices lists the voices the provider offers.
	Voices(ctx context.Context) ([]Voice, error)

	// Available reports whether the provider is configured.
	Available() bool
}
