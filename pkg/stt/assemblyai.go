package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arcnova-labs/arcnova/internal/httpc"
	"github.com/arcnova-labs/arcnova/internal/log"
)

const (
	assemblyAIBaseURL   = "https://api.assemblyai.com/v2"
	assemblyAIStreamURL = "wss://streaming.assemblyai.com/v3/ws"
)

// AssemblyAI implements Transcriber and Streamer against the AssemblyAI API.
type AssemblyAI struct {
	keyFn     func() string
	baseURL   string
	streamURL string
	client    *http.Client
	logger    *slog.Logger

	// pollInterval is the delay between one-shot transcript status polls.
	pollInterval time.Duration
}

// NewAssemblyAI creates an AssemblyAI client. The key is read through keyFn
// on every request so credential changes take effect without a restart. The
// key may be empty; the client then reports itself unavailable and one-shot
// transcription returns StatusUnavailable instead of an error.
func NewAssemblyAI(keyFn func() string) *AssemblyAI {
	return &AssemblyAI{
		keyFn:        keyFn,
		baseURL:      assemblyAIBaseURL,
		streamURL:    assemblyAIStreamURL,
		client:       httpc.Client,
		logger:       log.Component("stt.assemblyai"),
		pollInterval: time.Second,
	}
}

// Available reports whether an API key is configured.
func (a *AssemblyAI) Available() bool {
	return a.keyFn() != ""
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads a complete audio buffer, requests a transcript and polls
// until it completes. Returns ("", StatusUnavailable, nil) when no API key is
// configured so callers can degrade without branching on error values.
func (a *AssemblyAI) Transcribe(ctx context.Context, audio []byte) (string, string, error) {
	if !a.Available() {
		return "", StatusUnavailable, nil
	}

	audioURL, err := a.upload(ctx, audio)
	if err != nil {
		return "", StatusError, err
	}

	id, err := a.requestTranscript(ctx, audioURL)
	if err != nil {
		return "", StatusError, err
	}

	for {
		tr, err := a.pollTranscript(ctx, id)
		if err != nil {
			return "", StatusError, err
		}
		switch tr.Status {
		case StatusCompleted:
			return tr.Text, StatusCompleted, nil
		case StatusError:
			return "", StatusError, fmt.Errorf("stt: transcription failed: %s", tr.Error)
		}

		select {
		case <-ctx.Done():
			return "", StatusError, ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}

func (a *AssemblyAI) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", a.keyFn())
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := a.doJSON(req, &out); err != nil {
		return "", fmt.Errorf("stt: upload: %w", err)
	}
	return out.UploadURL, nil
}

func (a *AssemblyAI) requestTranscript(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", a.keyFn())
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := a.doJSON(req, &out); err != nil {
		return "", fmt.Errorf("stt: request transcript: %w", err)
	}
	return out.ID, nil
}

func (a *AssemblyAI) pollTranscript(ctx context.Context, id string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", a.keyFn())

	var out transcriptResponse
	if err := a.doJSON(req, &out); err != nil {
		return nil, fmt.Errorf("stt: poll transcript: %w", err)
	}
	return &out, nil
}

func (a *AssemblyAI) doJSON(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Verify interface compliance at compile time.
var (
	_ Transcriber = (*AssemblyAI)(nil)
	_ Streamer    = (*AssemblyAI)(nil)
)
