package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/arcnova-labs/arcnova/internal/log"
)

// Gemini implements Generator against the Gemini API.
//
// The API key is read through a function so a key changed at runtime takes
// effect on the next call; the underlying client is rebuilt when the key
// changes.
type Gemini struct {
	keyFn   func() string
	baseURL string
	logger  *slog.Logger

	mu        sync.Mutex
	client    *genai.Client
	clientKey string
}

// GeminiOption customizes a Gemini client.
type GeminiOption func(*Gemini)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(u string) GeminiOption {
	return func(g *Gemini) { g.baseURL = u }
}

// NewGemini creates a Gemini generator. keyFn is called on every request to
// obtain the current API key; an empty key makes the generator unavailable.
func NewGemini(keyFn func() string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		keyFn:  keyFn,
		logger: log.Component("llm.gemini"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Available reports whether an API key is configured.
func (g *Gemini) Available() bool {
	return g.keyFn() != ""
}

func (g *Gemini) clientFor(ctx context.Context) (*genai.Client, error) {
	key := g.keyFn()
	if key == "" {
		return nil, ErrNoAPIKey
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.clientKey == key {
		return g.client, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		cfg.HTTPOptions.BaseURL = g.baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}
	g.client = client
	g.clientKey = key
	return client, nil
}

// Generate returns the complete response text for prompt, trimmed of
// surrounding whitespace.
func (g *Gemini) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := g.clientFor(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GenerateStream streams the response for prompt, calling fn per chunk.
func (g *Gemini) GenerateStream(ctx context.Context, model, prompt string, fn ChunkFunc) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := g.clientFor(ctx)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for resp, err := range client.Models.GenerateContentStream(ctx, model, genai.Text(prompt), nil) {
		if err != nil {
			return full.String(), fmt.Errorf("llm: stream: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if fn != nil {
			if err := fn(chunk); err != nil {
				g.logger.Debug("stream consumer stopped early", "error", err)
				return full.String(), nil
			}
		}
	}
	return full.String(), nil
}

var _ Generator = (*Gemini)(nil)
