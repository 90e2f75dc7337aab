package tts

import (
	"log/slog"
	"time"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials. KeyFunc, when set, is consulted on every request
	// so a key changed at runtime takes effect immediately; otherwise APIKey
	// is used as-is.
	APIKey  string
	KeyFunc func() string
	BaseURL string

	// DefaultVoiceID is used when a request does not name a voice.
	DefaultVoiceID string

	// Format is the audio container to request (e.g. "mp3").
	Format string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Logger receives structured provider logs.
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets a static API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithKeyFunc sets a function consulted per request for the current API key.
func WithKeyFunc(fn func() string) Option {
	return func(c *Config) { c.KeyFunc = fn }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithDefaultVoice sets the fallback voice ID.
func WithDefaultVoice(voiceID string) Option {
	return func(c *Config) { c.DefaultVoiceID = voiceID }
}

// WithFormat sets the requested audio container format.
func WithFormat(format string) Option {
	return func(c *Config) { c.Format = format }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultVoiceID: "en-US-natalie",
		Format:         "mp3",
		Timeout:        30 * time.Second,
		Logger:         slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Key returns the current API key.
func (c *Config) Key() string {
	if c.KeyFunc != nil {
		return c.KeyFunc()
	}
	return c.APIKey
}
