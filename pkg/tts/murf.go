package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	murfBaseURL  = "https://api.murf.ai/v1"
	providerMurf = "murf"
)

// Murf implements Provider for the Murf.ai speech API.
type Murf struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewMurf creates a Murf TTS provider. A missing API key does not fail
// construction; the provider reports itself unavailable and synthesis yields
// unavailable outcomes.
func NewMurf(opts ...Option) *Murf {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = murfBaseURL
	}

	return &Murf{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "tts.murf"),
		baseURL: baseURL,
	}
}

// Available reports whether an API key is configured.
func (m *Murf) Available() bool {
	return m.config.Key() != ""
}

type generateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Format  string `json:"format"`
}

type generateResponse struct {
	AudioFile            string  `json:"audioFile"`
	AudioLengthInSeconds float64 `json:"audioLengthInSeconds"`
}

// Generate synthesizes text and returns a URL outcome for the hosted file.
func (m *Murf) Generate(ctx context.Context, text, voiceID string) (Outcome, error) {
	if !m.Available() {
		return Unavailable(), nil
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{}, ErrEmptyText
	}
	if voiceID == "" {
		voiceID = m.config.DefaultVoiceID
	}
	if voiceID == "" {
		return Outcome{}, ErrNoVoiceID
	}

	start := time.Now()

	payload, err := json.Marshal(generateRequest{
		Text:    text,
		VoiceID: voiceID,
		Format:  m.config.Format,
	})
	if err != nil {
		return Outcome{}, WrapError(providerMurf, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/speech/generate", bytes.NewReader(payload))
	if err != nil {
		return Outcome{}, WrapError(providerMurf, fmt.Errorf("create request: %w", err))
	}
	m.setHeaders(req)

	resp, err := m.client.Do(req)
	if err != nil {
		return Outcome{}, WrapError(providerMurf, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{}, m.parseError(resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Outcome{}, WrapError(providerMurf, fmt.Errorf("decode response: %w", err))
	}
	if out.AudioFile == "" {
		return Outcome{}, WrapError(providerMurf, fmt.Errorf("response carried no audio file"))
	}

	m.logger.Debug("synthesized audio",
		"chars", len(text),
		"voice", voiceID,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return URLOutcome(out.AudioFile), nil
}

// Synthesize produces raw audio bytes, downloading the hosted file Murf
// returns. Used by the realtime pipeline which ships base64 audio to clients.
func (m *Murf) Synthesize(ctx context.Context, text, voiceID string) (Outcome, error) {
	out, err := m.Generate(ctx, text, voiceID)
	if err != nil || !out.Available() {
		return out, err
	}

	u, _ := out.URL()
	audio, err := m.fetchAudio(ctx, u)
	if err != nil {
		return Outcome{}, err
	}
	return AudioOutcome(audio), nil
}

func (m *Murf) fetchAudio(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, WrapError(providerMurf, fmt.Errorf("create download request: %w", err))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, WrapError(providerMurf, fmt.Errorf("download audio: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, m.parseError(resp)
	}
	return io.ReadAll(resp.Body)
}

type voicesResponse []struct {
	VoiceID     string `json:"voiceId"`
	DisplayName string `json:"displayName"`
	Locale      string `json:"locale"`
	Gender      string `json:"gender"`
}

// Voices lists the voices available to the configured account.
func (m *Murf) Voices(ctx context.Context) ([]Voice, error) {
	if !m.Available() {
		return []Voice{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/speech/voices", nil)
	if err != nil {
		return nil, WrapError(providerMurf, fmt.Errorf("create request: %w", err))
	}
	m.setHeaders(req)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, WrapError(providerMurf, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, m.parseError(resp)
	}

	var raw voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, WrapError(providerMurf, fmt.Errorf("decode voices: %w", err))
	}

	voices := make([]Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, Voice{
			ID:     v.VoiceID,
			Name:   v.DisplayName,
			Locale: v.Locale,
			Gender: v.Gender,
		})
	}
	return voices, nil
}

func (m *Murf) setHeaders(req *http.Request) {
	req.Header.Set("api-key", m.config.Key())
	req.Header.Set("Content-Type", "application/json")
}

func (m *Murf) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
	}
	message := string(bytes.TrimSpace(body))
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.ErrorMessage != "" {
			message = errResp.ErrorMessage
		} else if errResp.Message != "" {
			message = errResp.Message
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerMurf,
	}
}

// Verify Murf implements Provider at compile time.
var _ Provider = (*Murf)(nil)
