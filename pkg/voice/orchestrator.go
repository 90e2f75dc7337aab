package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/arcnova-labs/arcnova/internal/config"
	"github.com/arcnova-labs/arcnova/pkg/chat"
	"github.com/arcnova-labs/arcnova/pkg/llm"
	"github.com/arcnova-labs/arcnova/pkg/textkit"
	"github.com/arcnova-labs/arcnova/pkg/tts"
)

// respond answers one accepted transcript: streams language-model text to the
// client, synthesizes speech for the full response, and closes with an
// llm_complete notice. Every provider failure is contained here; the session
// stays alive for further turns.
func (s *Session) respond(ctx context.Context, transcript string) {
	s.cfg.History.Append(s.cfg.HistoryID, chat.RoleUser, transcript)

	_ = s.sendJSON(newLLMStartMsg())

	prompt := transcript
	if s.cfg.HistoryID != "" {
		prompt = chat.BuildPrompt(s.cfg.Persona.SystemPrompt, s.cfg.History.History(s.cfg.HistoryID))
	}

	full, err := s.cfg.LLM.GenerateStream(ctx, s.cfg.Model, prompt, func(text string) error {
		return s.sendJSON(newLLMChunkMsg(text))
	})
	if errors.Is(err, llm.ErrNoAPIKey) {
		// No model configured: degrade to the canned fallback line instead of
		// failing the turn. Synthesis is skipped for fallback text below.
		full = config.FallbackText
		_ = s.sendJSON(newLLMChunkMsg(full))
		err = nil
	}
	if err != nil {
		s.logger.Error("generation failed", "error", err)
		_ = s.sendJSON(newLLMErrorMsg())
		return
	}

	if full != "" {
		s.cfg.History.Append(s.cfg.HistoryID, chat.RoleAssistant, full)
	}

	if full != "" && full != config.FallbackText {
		s.synthesize(ctx, full)
	}

	_ = s.sendJSON(newLLMCompleteMsg(full))
}

// synthesize produces speech for text and sends it as tts_audio frames.
// Single-shot mode truncates to one request; chunked mode splits on sentence
// boundaries and paces the frames so a long answer does not flood the client.
func (s *Session) synthesize(ctx context.Context, text string) {
	voice := s.cfg.Persona.Voice()

	if !s.cfg.ChunkedTTS {
		s.synthesizeChunk(ctx, textkit.Truncate(text, tts.MaxTextLength), voice, 1)
		return
	}

	for i, piece := range textkit.Chunk(text, tts.MaxTextLength) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ChunkPause):
			}
		}
		s.synthesizeChunk(ctx, piece, voice, i+1)
	}
}

// synthesizeChunk synthesizes one piece of text and forwards the audio with a
// 1-based chunk index. Failures are logged and swallowed so remaining chunks
// still get their chance.
func (s *Session) synthesizeChunk(ctx context.Context, text, voice string, index int) {
	out, err := s.cfg.TTS.Synthesize(ctx, text, voice)
	if err != nil {
		s.logger.Warn("synthesis failed", "chunk", index, "error", err)
		return
	}
	audio, ok := out.Audio()
	if !ok || len(audio) == 0 {
		s.logger.Warn("synthesis produced no audio", "chunk", index)
		return
	}

	_ = s.sendJSON(newTTSAudioMsg(base64.StdEncoding.EncodeToString(audio), index))
}
