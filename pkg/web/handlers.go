package web

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arcnova-labs/arcnova/internal/config"
	"github.com/arcnova-labs/arcnova/pkg/chat"
	"github.com/arcnova-labs/arcnova/pkg/llm"
	"github.com/arcnova-labs/arcnova/pkg/stt"
	"github.com/arcnova-labs/arcnova/pkg/textkit"
	"github.com/arcnova-labs/arcnova/pkg/tts"
)

type ttsRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

type ttsResponse struct {
	AudioURL string `json:"audio_url"`
	Message  string `json:"message"`
}

type transcribeResponse struct {
	Transcript *string `json:"transcript"`
	Status     string  `json:"status"`
}

type llmQueryRequest struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model"`
	VoiceID string `json:"voice_id"`
}

type llmQueryAudioResponse struct {
	TranscriptText *string  `json:"transcript_text"`
	LLMText        string   `json:"llm_text"`
	Model          string   `json:"model"`
	AudioURLs      []string `json:"audio_urls"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{"status": "ok"}
	if s.keys != nil {
		configured := 0
		for _, st := range s.keys.Status() {
			if st.Configured {
				configured++
			}
		}
		resp["configured_services"] = configured
	}
	return c.JSON(resp)
}

func (s *Server) handleGenerateTTS(c *fiber.Ctx) error {
	var req ttsRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
	}

	out, err := s.tts.Generate(c.UserContext(), req.Text, req.VoiceID)
	if err != nil {
		s.logger.Error("tts generation failed", "error", err)
		return c.JSON(ttsResponse{Message: config.FallbackText})
	}
	if u, ok := out.URL(); ok {
		return c.JSON(ttsResponse{AudioURL: u, Message: "Audio generated successfully"})
	}
	return c.JSON(ttsResponse{Message: config.FallbackText})
}

func (s *Server) handleUploadAudio(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.logger.Error("upload dir create failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store file"})
	}

	name := filepath.Base(fh.Filename)
	if err := c.SaveFile(fh, filepath.Join(s.uploadDir, name)); err != nil {
		s.logger.Error("upload save failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store file"})
	}

	return c.JSON(fiber.Map{
		"filename":     name,
		"content_type": fh.Header.Get("Content-Type"),
		"size":         fh.Size,
	})
}

func (s *Server) handleTranscribeFile(c *fiber.Ctx) error {
	data, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	text, status, err := s.transcriber.Transcribe(c.UserContext(), data)
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		return c.JSON(transcribeResponse{Status: stt.StatusError})
	}

	resp := transcribeResponse{Status: status}
	if text != "" {
		resp.Transcript = &text
	}
	return c.JSON(resp)
}

func (s *Server) handleVoices(c *fiber.Ctx) error {
	voices, err := s.tts.Voices(c.UserContext())
	if err != nil {
		s.logger.Error("voice listing failed", "error", err)
		voices = nil
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	return c.JSON(voices)
}

// handleTTSEcho transcribes the uploaded audio and speaks it back in the
// default voice.
func (s *Server) handleTTSEcho(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var transcribed string
	if data, err := readUpload(c); err == nil {
		text, status, terr := s.transcriber.Transcribe(ctx, data)
		if terr != nil {
			s.logger.Error("transcription failed", "error", terr)
		} else if status == stt.StatusCompleted {
			transcribed = strings.TrimSpace(text)
		}
	}
	if transcribed == "" {
		return c.JSON(fiber.Map{"transcript": nil, "audio_url": "", "message": config.FallbackText})
	}

	out, err := s.tts.Generate(ctx, transcribed, s.persona.Voice())
	if err != nil {
		s.logger.Error("tts generation failed", "error", err)
	}
	if u, ok := out.URL(); ok {
		return c.JSON(fiber.Map{
			"transcript": transcribed,
			"audio_url":  u,
			"message":    "Audio transcribed and regenerated successfully",
		})
	}
	return c.JSON(fiber.Map{"transcript": transcribed, "audio_url": "", "message": config.FallbackText})
}

// queryInput is the resolved input of /llm/query and /agent/chat, which both
// accept either a JSON prompt or multipart audio to transcribe first.
type queryInput struct {
	transcript *string
	prompt     string
	model      string
	voiceID    string
	ok         bool
}

func (s *Server) resolveQueryInput(c *fiber.Ctx) queryInput {
	in := queryInput{model: llm.DefaultModel, voiceID: s.persona.Voice()}

	if strings.Contains(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		var req llmQueryRequest
		if err := c.BodyParser(&req); err != nil {
			return in
		}
		if req.Model != "" {
			in.model = req.Model
		}
		if req.VoiceID != "" {
			in.voiceID = req.VoiceID
		}
		in.prompt = strings.TrimSpace(req.Prompt)
		in.ok = in.prompt != ""
		return in
	}

	if m := c.FormValue("model"); m != "" {
		in.model = m
	}
	if v := c.FormValue("voice_id"); v != "" {
		in.voiceID = v
	}

	if data, err := readUpload(c); err == nil {
		text, status, terr := s.transcriber.Transcribe(c.UserContext(), data)
		if terr != nil {
			s.logger.Error("transcription failed", "error", terr)
		} else if status == stt.StatusCompleted && strings.TrimSpace(text) != "" {
			t := strings.TrimSpace(text)
			in.transcript = &t
			in.prompt = t
			in.ok = true
			return in
		}
	}

	in.prompt = strings.TrimSpace(c.FormValue("prompt"))
	in.ok = in.prompt != ""
	return in
}

func (s *Server) handleLLMQuery(c *fiber.Ctx) error {
	ctx := c.UserContext()
	in := s.resolveQueryInput(c)
	if !in.ok {
		return c.JSON(llmQueryAudioResponse{LLMText: config.FallbackText, Model: in.model, AudioURLs: []string{}})
	}

	text, err := s.llm.Generate(ctx, in.model, in.prompt)
	if err != nil || text == "" {
		if err != nil {
			s.logger.Error("generation failed", "error", err)
		}
		text = config.FallbackText
	}

	return c.JSON(llmQueryAudioResponse{
		TranscriptText: in.transcript,
		LLMText:        text,
		Model:          in.model,
		AudioURLs:      s.synthesizeURLs(ctx, text, in.voiceID),
	})
}

// handleAgentChat is the persona-aware chat endpoint: greetings and skill
// commands are answered directly, everything else goes to the model with the
// session's history as context.
func (s *Server) handleAgentChat(c *fiber.Ctx) error {
	ctx := c.UserContext()
	session := c.Params("session")

	in := s.resolveQueryInput(c)
	if !in.ok {
		return c.JSON(llmQueryAudioResponse{LLMText: config.FallbackText, Model: in.model, AudioURLs: []string{}})
	}

	s.history.Append(session, chat.RoleUser, in.prompt)

	var reply string
	if s.persona.IsGreeting(in.prompt) {
		reply = s.persona.Greeting
	} else if skillReply, handled := s.dispatchSkill(ctx, in.prompt); handled {
		reply = skillReply
	} else {
		prompt := chat.BuildPrompt(s.persona.SystemPrompt, s.history.History(session))
		text, err := s.llm.Generate(ctx, in.model, prompt)
		if err != nil || text == "" {
			if err != nil {
				s.logger.Error("generation failed", "error", err)
			}
			text = config.FallbackText
		}
		reply = text
	}

	s.history.Append(session, chat.RoleAssistant, reply)

	return c.JSON(llmQueryAudioResponse{
		TranscriptText: in.transcript,
		LLMText:        reply,
		Model:          in.model,
		AudioURLs:      s.synthesizeURLs(ctx, reply, in.voiceID),
	})
}

func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	session := c.Params("session")
	history := s.history.History(session)
	if history == nil {
		history = []chat.Message{}
	}
	return c.JSON(fiber.Map{"session_id": session, "history": history})
}

func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	session := c.Params("session")
	s.history.Clear(session)
	return c.JSON(fiber.Map{"session_id": session, "cleared": true})
}

func (s *Server) dispatchSkill(ctx context.Context, text string) (string, bool) {
	if s.skills == nil {
		return "", false
	}
	return s.skills.Handle(ctx, text)
}

// synthesizeURLs generates hosted audio for each chunk of text. Failures are
// logged and skipped; fallback text is never spoken.
func (s *Server) synthesizeURLs(ctx context.Context, text, voiceID string) []string {
	urls := []string{}
	if text == "" || text == config.FallbackText || !s.tts.Available() {
		return urls
	}

	for _, piece := range textkit.Chunk(text, tts.MaxTextLength) {
		out, err := s.tts.Generate(ctx, piece, voiceID)
		if err != nil {
			s.logger.Warn("chunk synthesis failed", "error", err)
			continue
		}
		if u, ok := out.URL(); ok {
			urls = append(urls, u)
		}
	}
	return urls
}

func readUpload(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
