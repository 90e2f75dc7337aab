package tts_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arcnova-labs/arcnova/pkg/tts"
)

func TestMurfUnavailableWithoutKey(t *testing.T) {
	m := tts.NewMurf()
	ctx := context.Background()

	if m.Available() {
		t.Error("expected provider to be unavailable")
	}

	out, err := m.Generate(ctx, "hello", "en-US-natalie")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Available() {
		t.Error("expected unavailable outcome")
	}

	voices, err := m.Voices(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 0 {
		t.Errorf("expected no voices, got %d", len(voices))
	}
}

func TestMurfGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speech/generate" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("api-key"); got != "murf-key" {
			t.Errorf("expected api-key header, got %q", got)
		}
		fmt.Fprint(w, `{"audioFile":"https://cdn.murf.ai/out.mp3","audioLengthInSeconds":2.5}`)
	}))
	defer srv.Close()

	m := tts.NewMurf(tts.WithAPIKey("murf-key"), tts.WithBaseURL(srv.URL))
	ctx := context.Background()

	t.Run("returns URL outcome", func(t *testing.T) {
		out, err := m.Generate(ctx, "hello there", "en-US-natalie")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		u, ok := out.URL()
		if !ok {
			t.Fatal("expected a URL outcome")
		}
		if u != "https://cdn.murf.ai/out.mp3" {
			t.Errorf("unexpected URL: %s", u)
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		_, err := m.Generate(ctx, "   ", "en-US-natalie")
		if !errors.Is(err, tts.ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})

	t.Run("falls back to default voice", func(t *testing.T) {
		out, err := m.Generate(ctx, "hello", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.Available() {
			t.Error("expected an available outcome")
		}
	})
}

func TestMurfSynthesizeDownloadsAudio(t *testing.T) {
	audio := []byte("mp3-bytes")

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/speech/generate":
			fmt.Fprintf(w, `{"audioFile":%q}`, srv.URL+"/files/out.mp3")
		case "/files/out.mp3":
			w.Write(audio)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m := tts.NewMurf(tts.WithAPIKey("murf-key"), tts.WithBaseURL(srv.URL))

	out, err := m.Synthesize(context.Background(), "hello", "en-US-natalie")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := out.Audio()
	if !ok {
		t.Fatal("expected an audio outcome")
	}
	if string(got) != string(audio) {
		t.Errorf("unexpected audio bytes: %q", got)
	}
}

func TestMurfVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speech/voices" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `[
			{"voiceId":"en-US-natalie","displayName":"Natalie","locale":"en-US","gender":"Female"},
			{"voiceId":"en-US-maverick","displayName":"Maverick","locale":"en-US","gender":"Male"}
		]`)
	}))
	defer srv.Close()

	m := tts.NewMurf(tts.WithAPIKey("murf-key"), tts.WithBaseURL(srv.URL))

	voices, err := m.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if voices[0].ID != "en-US-natalie" || voices[0].Name != "Natalie" {
		t.Errorf("unexpected first voice: %+v", voices[0])
	}
}

func TestMurfAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errorMessage":"invalid api key"}`)
	}))
	defer srv.Close()

	m := tts.NewMurf(tts.WithAPIKey("bad-key"), tts.WithBaseURL(srv.URL))

	_, err := m.Generate(context.Background(), "hello", "en-US-natalie")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() {
		t.Errorf("expected unauthorized, got status %d", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid api key" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}
