package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcnova-labs/arcnova/internal/config"
	"github.com/arcnova-labs/arcnova/pkg/chat"
	"github.com/arcnova-labs/arcnova/pkg/llm"
	"github.com/arcnova-labs/arcnova/pkg/stt"
	"github.com/arcnova-labs/arcnova/pkg/tts"
)

type wsFrame struct {
	messageType int
	data        []byte
}

// fakeConn is an in-memory websocket connection. Tests feed inbound frames
// through a channel and inspect outbound JSON frames by type.
type fakeConn struct {
	in      chan wsFrame
	closeCh chan struct{}

	mu     sync.Mutex
	sent   []map[string]any
	closed bool
	closes int
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan wsFrame, 32), closeCh: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.in:
		return f.messageType, f.data, nil
	case <-c.closeCh:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed connection")
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	if !c.closed {
		c.closed = true
		close(c.closeCh)
	}
	return nil
}

func (c *fakeConn) sendText(s string)   { c.in <- wsFrame{TextMessage, []byte(s)} }
func (c *fakeConn) sendBinary(b []byte) { c.in <- wsFrame{BinaryMessage, b} }

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *fakeConn) messages(typ string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, m := range c.sent {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// fakeStreamer hands the transcript handler back to the test so it can play
// the transcription provider.
type fakeStreamer struct {
	openErr error
	session *fakeStreamSession

	mu      sync.Mutex
	handler stt.Handler
}

func (f *fakeStreamer) OpenSession(_ context.Context, _ stt.StreamConfig, h stt.Handler) (stt.StreamSession, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return f.session, nil
}

func (f *fakeStreamer) emit(text string, endOfTurn bool) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(stt.Event{Text: text, EndOfTurn: endOfTurn})
}

func (f *fakeStreamer) ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

type fakeStreamSession struct {
	mu     sync.Mutex
	audio  [][]byte
	closes int
}

func (s *fakeStreamSession) SendAudio(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, append([]byte(nil), p...))
	return nil
}

func (s *fakeStreamSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeStreamSession) audioFrames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.audio))
	copy(out, s.audio)
	return out
}

func (s *fakeStreamSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// fakeLLM streams canned chunks. A non-nil block channel makes GenerateStream
// wait before returning so tests can hold a response run in flight.
type fakeLLM struct {
	chunks []string
	err    error
	block  chan struct{}

	calls      atomic.Int32
	mu         sync.Mutex
	lastPrompt string
}

func (f *fakeLLM) Generate(_ context.Context, _, _ string) (string, error) {
	return strings.Join(f.chunks, ""), f.err
}

func (f *fakeLLM) GenerateStream(_ context.Context, _, prompt string, fn llm.ChunkFunc) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastPrompt = prompt
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	var b strings.Builder
	for _, c := range f.chunks {
		if err := fn(c); err != nil {
			return b.String(), nil
		}
		b.WriteString(c)
	}
	if f.block != nil {
		<-f.block
	}
	return b.String(), nil
}

func (f *fakeLLM) Available() bool { return f.err == nil }

func (f *fakeLLM) prompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrompt
}

// fakeTTS echoes the input text back as audio bytes, or reports no audio when
// failing is set.
type fakeTTS struct {
	failing bool
}

func (f *fakeTTS) Generate(_ context.Context, text, _ string) (tts.Outcome, error) {
	return tts.URLOutcome("https://audio.test/" + text), nil
}

func (f *fakeTTS) Synthesize(_ context.Context, text, _ string) (tts.Outcome, error) {
	if f.failing {
		return tts.Unavailable(), nil
	}
	return tts.AudioOutcome([]byte(text)), nil
}

func (f *fakeTTS) Voices(context.Context) ([]tts.Voice, error) { return nil, nil }
func (f *fakeTTS) Available() bool                             { return !f.failing }

type pipeline struct {
	conn *fakeConn
	stt  *fakeStreamer
	llm  *fakeLLM
	tts  *fakeTTS
	sess *Session
	done chan struct{}
}

func startPipeline(t *testing.T, mutate func(*Config)) *pipeline {
	t.Helper()

	p := &pipeline{
		conn: newFakeConn(),
		stt:  &fakeStreamer{session: &fakeStreamSession{}},
		llm:  &fakeLLM{chunks: []string{"Hi there."}},
		tts:  &fakeTTS{},
	}

	cfg := Config{
		STT:        p.stt,
		LLM:        p.llm,
		TTS:        p.tts,
		ChunkPause: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	p.sess = NewSession(p.conn, cfg)
	p.done = make(chan struct{})
	go func() {
		p.sess.Run(context.Background())
		close(p.done)
	}()

	require.Eventually(t, p.stt.ready, time.Second, time.Millisecond, "handshake never completed")
	return p
}

func (p *pipeline) finish(t *testing.T) {
	t.Helper()
	p.conn.sendText("EOF")
	p.waitClosed(t)
}

func (p *pipeline) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close")
	}
}

func (p *pipeline) waitMessages(t *testing.T, typ string, n int) []map[string]any {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(p.conn.messages(typ)) >= n
	}, 2*time.Second, 2*time.Millisecond, "waiting for %d %q messages", n, typ)
	return p.conn.messages(typ)
}

func TestPartialAndFinalTranscript(t *testing.T) {
	p := startPipeline(t, nil)

	p.stt.emit("hello world", false)
	p.stt.emit("hello world", true)

	transcripts := p.waitMessages(t, "transcript", 2)
	require.Equal(t, "hello world", transcripts[0]["text"])
	require.Equal(t, false, transcripts[0]["is_final"])
	require.Equal(t, true, transcripts[1]["is_final"])
	require.Equal(t, true, transcripts[1]["end_of_turn"])

	p.waitMessages(t, "llm_start", 1)
	complete := p.waitMessages(t, "llm_complete", 1)
	require.Equal(t, "Hi there.", complete[0]["full_response"])
	require.EqualValues(t, 1, p.llm.calls.Load())

	audio := p.waitMessages(t, "tts_audio", 1)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("Hi there.")), audio[0]["audio_base64"])
	require.EqualValues(t, 1, audio[0]["chunk_index"])

	p.finish(t)
}

func TestDuplicateTranscriptSuppressed(t *testing.T) {
	p := startPipeline(t, nil)

	p.stt.emit("what time is it", true)
	p.waitMessages(t, "llm_complete", 1)

	// Same normalized text again inside the debounce window.
	p.stt.emit("What time is it  ", true)
	p.waitMessages(t, "transcript", 2)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, p.llm.calls.Load())
	p.finish(t)
}

func TestSingleFlightDropsConcurrentTurn(t *testing.T) {
	block := make(chan struct{})
	p := startPipeline(t, nil)
	p.llm.block = block

	p.stt.emit("first question", true)
	p.waitMessages(t, "llm_start", 1)

	// A different utterance while the first run is still generating.
	p.stt.emit("second question entirely", true)
	p.waitMessages(t, "transcript", 2)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, p.llm.calls.Load())

	close(block)
	p.waitMessages(t, "llm_complete", 1)
	require.EqualValues(t, 1, p.llm.calls.Load())
	p.finish(t)
}

func TestShortTranscriptRelayedNotProcessed(t *testing.T) {
	p := startPipeline(t, nil)

	p.stt.emit("hm", true)
	p.waitMessages(t, "transcript", 1)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 0, p.llm.calls.Load())
	require.Empty(t, p.conn.messages("llm_start"))
	p.finish(t)
}

func TestPartialsNeverStartResponses(t *testing.T) {
	p := startPipeline(t, nil)

	for i := 0; i < 5; i++ {
		p.stt.emit("thinking out loud", false)
	}
	p.waitMessages(t, "transcript", 5)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 0, p.llm.calls.Load())
	p.finish(t)
}

func TestHandshakeFailureClosesWithError(t *testing.T) {
	conn := newFakeConn()
	streamer := &fakeStreamer{openErr: errors.New("dial failed")}
	sess := NewSession(conn, Config{STT: streamer, LLM: &fakeLLM{}, TTS: &fakeTTS{}})

	done := make(chan struct{})
	go func() {
		sess.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close after handshake failure")
	}

	errs := conn.messages("error")
	require.Len(t, errs, 1)
	require.Equal(t, "Failed to start transcription session", errs[0]["message"])
	require.Empty(t, conn.messages("transcript"))
	require.Equal(t, 1, conn.closeCount())
}

func TestEOFBeforeAnyTranscript(t *testing.T) {
	p := startPipeline(t, nil)

	p.finish(t)

	require.Empty(t, p.conn.messages("transcript"))
	require.Equal(t, 1, p.stt.session.closeCount())
}

func TestAudioForwardedInOrder(t *testing.T) {
	p := startPipeline(t, nil)

	p.conn.sendBinary([]byte{1, 1})
	p.conn.sendBinary([]byte{2, 2})
	p.conn.sendBinary([]byte{3, 3})

	require.Eventually(t, func() bool {
		return len(p.stt.session.audioFrames()) == 3
	}, 2*time.Second, 2*time.Millisecond)

	frames := p.stt.session.audioFrames()
	require.Equal(t, []byte{1, 1}, frames[0])
	require.Equal(t, []byte{2, 2}, frames[1])
	require.Equal(t, []byte{3, 3}, frames[2])
	p.finish(t)
}

func TestChunkedSynthesisOrdering(t *testing.T) {
	sentence := strings.Repeat("x", 2500) + "."
	long := sentence + " " + sentence + " " + sentence

	p := startPipeline(t, func(c *Config) {
		c.ChunkedTTS = true
	})
	p.llm.chunks = []string{long}

	p.stt.emit("tell me everything", true)

	audio := p.waitMessages(t, "tts_audio", 3)
	require.Len(t, audio, 3)
	for i, m := range audio {
		require.EqualValues(t, i+1, m["chunk_index"])
	}
	p.waitMessages(t, "llm_complete", 1)
	p.finish(t)
}

func TestEmptyGenerationSkipsSynthesis(t *testing.T) {
	p := startPipeline(t, nil)
	p.llm.chunks = nil

	p.stt.emit("say nothing", true)

	complete := p.waitMessages(t, "llm_complete", 1)
	require.Equal(t, "", complete[0]["full_response"])
	require.Empty(t, p.conn.messages("tts_audio"))
	p.finish(t)
}

func TestSynthesisFailureStillCompletes(t *testing.T) {
	p := startPipeline(t, nil)
	p.tts.failing = true

	p.stt.emit("can you speak", true)

	complete := p.waitMessages(t, "llm_complete", 1)
	require.Equal(t, "Hi there.", complete[0]["full_response"])
	require.Empty(t, p.conn.messages("tts_audio"))
	p.finish(t)
}

func TestUnconfiguredModelFallsBack(t *testing.T) {
	p := startPipeline(t, nil)
	p.llm.err = llm.ErrNoAPIKey

	p.stt.emit("are you there", true)

	complete := p.waitMessages(t, "llm_complete", 1)
	require.Equal(t, config.FallbackText, complete[0]["full_response"])

	chunks := p.conn.messages("llm_chunk")
	require.Len(t, chunks, 1)
	require.Equal(t, config.FallbackText, chunks[0]["text"])
	require.Empty(t, p.conn.messages("tts_audio"))
	p.finish(t)
}

func TestGenerationFailureKeepsSessionAlive(t *testing.T) {
	p := startPipeline(t, nil)
	p.llm.err = errors.New("model exploded")

	p.stt.emit("trigger a failure", true)

	errs := p.waitMessages(t, "llm_error", 1)
	require.Equal(t, "Failed to generate response", errs[0]["message"])
	require.Empty(t, p.conn.messages("llm_complete"))

	// The loop is still serving: later transcripts are relayed.
	p.stt.emit("still here", false)
	p.waitMessages(t, "transcript", 2)
	p.finish(t)
}

func TestTeardownIsIdempotent(t *testing.T) {
	p := startPipeline(t, nil)
	p.finish(t)

	// A second close must be a no-op, not a panic or double release.
	p.sess.teardown()

	require.Equal(t, 1, p.stt.session.closeCount())
	require.Equal(t, 1, p.conn.closeCount())
}

func TestHistoryFeedsPrompt(t *testing.T) {
	store := chat.NewStore()
	p := startPipeline(t, func(c *Config) {
		c.HistoryID = "sess-42"
		c.History = store
	})

	p.stt.emit("hello world", true)
	p.waitMessages(t, "llm_complete", 1)

	prompt := p.llm.prompt()
	require.True(t, strings.HasPrefix(prompt, "System:"), "prompt = %q", prompt)
	require.Contains(t, prompt, "User: hello world")
	require.True(t, strings.HasSuffix(prompt, "Assistant:"))

	history := store.History("sess-42")
	require.Len(t, history, 2)
	require.Equal(t, chat.RoleUser, history[0].Role)
	require.Equal(t, "hello world", history[0].Content)
	require.Equal(t, chat.RoleAssistant, history[1].Role)
	require.Equal(t, "Hi there.", history[1].Content)
	p.finish(t)
}
