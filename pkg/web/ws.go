package web

import (
	"context"

	"github.com/gofiber/contrib/websocket"

	"github.com/arcnova-labs/arcnova/pkg/voice"
)

// handleAudioWS bridges an upgraded websocket connection into the realtime
// voice pipeline. The optional session query parameter keys the shared
// conversation history.
func (s *Server) handleAudioWS(c *websocket.Conn) {
	session := voice.NewSession(c, voice.Config{
		HistoryID:  c.Query("session"),
		STT:        s.streamer,
		LLM:        s.llm,
		TTS:        s.tts,
		History:    s.history,
		Persona:    s.persona,
		ChunkedTTS: true,
	})
	session.Run(context.Background())
}
