// Package llm provides language-model text generation for arcnova.
package llm

import (
	"context"
	"errors"
)

// DefaultModel is used when a request does not name a model.
const DefaultModel = "gemini-1.5-flash-8b"

// ErrNoAPIKey indicates the provider API key is not configured.
var ErrNoAPIKey = errors.New("llm: API key required")

// ChunkFunc receives one streamed text chunk. Returning an error stops the
// stream early; generation already received is kept.
type ChunkFunc func(text string) error

// Generator produces text from prompts.
type Generator interface {
	// Generate returns the complete response for prompt.
	Generate(ctx context.Context, model, prompt string) (string, error)

	// GenerateStream streams the response, invoking fn once per chunk, and
	// returns the full accumulated text. When fn returns an error the stream
	// is abandoned and the text received so far is returned with a nil error.
	GenerateStream(ctx context.Context, model, prompt string, fn ChunkFunc) (string, error)

	// Available reports whether the provider is configured.
	Available() bool
}
